// Package cli implements mailsyncctl, the control client for mailsyncd.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/matheus3301/mailsync/internal/api"
	"github.com/matheus3301/mailsync/internal/session"
	"github.com/spf13/cobra"
)

var (
	// version is set via ldflags at build time.
	version = "dev"

	sessionFlag string
	jsonFlag    bool
	timeoutFlag time.Duration
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mailsyncctl",
		Short:         "Control a mailsync daemon",
		Long:          "Feed event batches to a mailsyncd session and inspect its state.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("mailsyncctl %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&sessionFlag, "session", "", "session name (overrides config default)")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	root.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 10*time.Second, "per-command deadline")
	root.AddCommand(newApplyCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newActionCmd())
	root.AddCommand(newFetchCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// resolveSession returns the validated session name for this invocation.
func resolveSession() (string, error) {
	name := session.Resolve(sessionFlag)
	if err := session.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// withClient dials the session's daemon and runs fn under the command deadline.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *api.Client) error) error {
	name, err := resolveSession()
	if err != nil {
		return err
	}
	c, err := api.Dial(session.SocketPath(name))
	if err != nil {
		return fmt.Errorf("cannot connect to daemon for session %q: %w", name, err)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
	defer cancel()
	return fn(ctx, c)
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
