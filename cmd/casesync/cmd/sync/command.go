// Package sync provides the sync command.
package sync

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/casesync/cmd/application"
	"github.com/agentstation/casesync/internal/cmd/output"
	pkgsync "github.com/agentstation/casesync/pkg/sync"
)

// NewCommand creates the sync command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		dryRun  bool
		push    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:     "sync [--user N]",
		GroupID: "core",
		Short:   "Fetch, reconcile and apply the user's cases",
		Long: `Sync fetches the user's cases from the remote store, reconciles them
with the local replica and applies the additions and updates locally.

When the remote store replies with a newer version of a case the local
copy is replaced. Cases that only exist locally, or are newer locally,
are left alone unless --push-local-newer is set, in which case the newer
local versions are uploaded. A failed fetch never touches the local store.`,
		Example: `  casesync sync
  casesync sync --user 2 --dry-run
  casesync sync --push-local-newer -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			var opts []pkgsync.Option
			if cmd.Flags().Changed("user") {
				user, err := cmd.Flags().GetInt64("user")
				if err != nil {
					return err
				}
				opts = append(opts, pkgsync.WithUser(user))
			}
			if dryRun {
				opts = append(opts, pkgsync.WithDryRun(true))
			}
			if cmd.Flags().Changed("push-local-newer") {
				opts = append(opts, pkgsync.WithPushLocalNewer(push))
			}
			if timeout > 0 {
				opts = append(opts, pkgsync.WithTimeout(timeout))
			}

			result, err := client.Sync(cmd.Context(), opts...)
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			out := cmd.OutOrStdout()
			if format.IsTable() {
				fmt.Fprintln(out, result.Summary())
			}
			return output.Write(out, format, result, func(wide bool) output.Data {
				return output.ResultTable(result, wide)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "reconcile without changing the local store")
	cmd.Flags().BoolVar(&push, "push-local-newer", false, "upload cases that are newer locally")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "bound on the whole run (0 for none)")

	return cmd
}
