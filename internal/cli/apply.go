package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/matheus3301/mailsync/internal/api"
	"github.com/spf13/cobra"
)

func newApplyCmd() *cobra.Command {
	var userFlag string
	var asyncFlag bool

	cmd := &cobra.Command{
		Use:   "apply <batch.json|batch.yaml|->",
		Short: "Apply one event batch to a user's cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return errors.New("--user is required")
			}
			batch, err := readBatch(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withClient(cmd, func(ctx context.Context, c *api.Client) error {
				resp, err := c.ApplyBatch(ctx, &api.ApplyBatchRequest{UserID: userFlag, Batch: batch, Async: asyncFlag})
				if err != nil {
					return fmt.Errorf("apply batch: %w", err)
				}
				out := cmd.OutOrStdout()
				if jsonFlag {
					return outputJSON(out, resp)
				}
				if resp.Queued {
					fmt.Fprintf(out, "Batch of %d items queued.\n", batch.Size())
					return nil
				}
				fmt.Fprintf(out, "Applied: %d\nSkipped: %d\n", resp.Applied, resp.Skipped)
				if resp.FetchesQueued+resp.FetchesDropped > 0 {
					fmt.Fprintf(out, "Contact fetches: %d queued, %d dropped\n", resp.FetchesQueued, resp.FetchesDropped)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "user whose cache receives the batch")
	cmd.Flags().BoolVar(&asyncFlag, "async", false, "return once the daemon has accepted the batch")
	return cmd
}
