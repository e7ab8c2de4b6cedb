package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/mailsync/internal/api"
	"github.com/spf13/cobra"
)

func newActionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action",
		Short: "Manage outgoing actions",
	}
	cmd.AddCommand(newActionQueueCmd())
	cmd.AddCommand(newActionCompleteCmd())
	return cmd
}

func newActionQueueCmd() *cobra.Command {
	var userFlag, messageFlag, kindFlag string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Queue an outgoing action for a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" || messageFlag == "" {
				return errors.New("--user and --message are required")
			}
			return withClient(cmd, func(ctx context.Context, c *api.Client) error {
				resp, err := c.QueueAction(ctx, &api.QueueActionRequest{
					UserID: userFlag, MessageID: messageFlag, Kind: kindFlag,
				})
				if err != nil {
					return fmt.Errorf("queue action: %w", err)
				}
				if jsonFlag {
					return outputJSON(cmd.OutOrStdout(), resp)
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "user id")
	cmd.Flags().StringVar(&messageFlag, "message", "", "message id")
	cmd.Flags().StringVar(&kindFlag, "kind", "send", "send, save_draft, label, unlabel, read, unread or delete")
	return cmd
}

func newActionCompleteCmd() *cobra.Command {
	var errorFlag string

	cmd := &cobra.Command{
		Use:   "complete <action-id>",
		Short: "Mark an outgoing action done, or failed with --error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *api.Client) error {
				if _, err := c.CompleteAction(ctx, &api.CompleteActionRequest{ID: args[0], Error: errorFlag}); err != nil {
					return fmt.Errorf("complete action: %w", err)
				}
				if errorFlag != "" {
					fmt.Fprintln(cmd.OutOrStdout(), "Action marked failed.")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Action done.")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&errorFlag, "error", "", "failure reason")
	return cmd
}

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Inspect pending contact detail fetches",
	}

	var waitFlag time.Duration
	next := &cobra.Command{
		Use:   "next",
		Short: "Take the next contact detail-fetch request off the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *api.Client) error {
				resp, err := c.NextContactFetch(ctx, &api.NextContactFetchRequest{WaitMs: waitFlag.Milliseconds()})
				if err != nil {
					return fmt.Errorf("next contact fetch: %w", err)
				}
				if jsonFlag {
					return outputJSON(cmd.OutOrStdout(), resp)
				}
				if !resp.Found {
					fmt.Fprintln(cmd.OutOrStdout(), "No pending contact fetches.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User: %s\n", resp.Request.UserID)
				for _, id := range resp.Request.ContactIDs {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
				}
				return nil
			})
		},
	}
	next.Flags().DurationVar(&waitFlag, "wait", time.Second, "how long to wait for a request")
	cmd.AddCommand(next)
	return cmd
}
