package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/matheus3301/mailsync/internal/api"
	"github.com/matheus3301/mailsync/internal/lock"
	"github.com/matheus3301/mailsync/internal/session"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var userFlag string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and cached row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := resolveSession()
			if err != nil {
				return err
			}
			pid, err := lock.Holder(session.Dir(name))
			if err != nil {
				return err
			}
			if pid == 0 {
				return fmt.Errorf("no daemon running for session %q", name)
			}
			return withClient(cmd, func(ctx context.Context, c *api.Client) error {
				resp, err := c.Status(ctx, &api.StatusRequest{UserID: userFlag})
				if err != nil {
					return fmt.Errorf("daemon (pid %d) not responding: %w", pid, err)
				}
				if jsonFlag {
					return outputJSON(cmd.OutOrStdout(), resp)
				}
				printStatus(cmd.OutOrStdout(), pid, resp)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "also report this user's cached row counts")
	return cmd
}

func printStatus(w io.Writer, pid int, resp *api.StatusResponse) {
	fmt.Fprintf(w, "Session: %s (pid %d)\n", resp.Session, pid)
	fmt.Fprintf(w, "State:   %s since %s\n", resp.State, time.UnixMilli(resp.StateSinceMs).Format(time.RFC3339))
	fmt.Fprintf(w, "Uptime:  %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
	fmt.Fprintf(w, "Contact fetch queue: %d\n", resp.FetchQueueDepth)
	if resp.BusDropped > 0 {
		fmt.Fprintf(w, "Dropped bus events: %d\n", resp.BusDropped)
	}
	if len(resp.Rows) == 0 {
		return
	}
	tables := make([]string, 0, len(resp.Rows))
	for t := range resp.Rows {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	fmt.Fprintln(w, "Rows:")
	for _, t := range tables {
		fmt.Fprintf(w, "  %-15s %d\n", t, resp.Rows[t])
	}
}
