// Package list provides the list command.
package list

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/casesync/cmd/application"
	"github.com/agentstation/casesync/internal/cmd/output"
	"github.com/agentstation/casesync/internal/matcher"
	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/store"
)

// NewCommand creates the list command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		author         int64
		status         string
		classification string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		GroupID: "core",
		Short:   "List the cases in the local replica",
		Long: `List prints the cases held in the local replica. It reads the local
store only and never contacts the remote store.`,
		Example: `  casesync list
  casesync list --status 'open,in*' -o wide
  casesync list --classification '^(theft|burglary)$'
  casesync list --store sqlite --author 2 -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := matcher.NewSet(status, &matcher.Options{CaseInsensitive: true})
			if err != nil {
				return errors.NewValidationError("status", status, err.Error())
			}
			classes, err := matcher.NewSet(classification, &matcher.Options{CaseInsensitive: true})
			if err != nil {
				return errors.NewValidationError("classification", classification, err.Error())
			}

			st, err := app.Store()
			if err != nil {
				return err
			}

			var list []cases.Case
			if cmd.Flags().Changed("author") {
				list, err = store.ListForUser(cmd.Context(), st, author)
			} else {
				list, err = store.Snapshot(cmd.Context(), st)
			}
			if err != nil {
				return err
			}
			list = filter(list, statuses, classes)

			app.Logger().Debug().Int("cases", len(list)).Msg("Listing local cases")

			format := output.DetectFormat(app.OutputFormat())
			return output.Write(cmd.OutOrStdout(), format, list, func(wide bool) output.Data {
				return output.CasesTable(list, wide)
			})
		},
	}

	cmd.Flags().Int64Var(&author, "author", 0, "only cases written by this author")
	cmd.Flags().StringVar(&status, "status", "", "only cases whose status matches one of these comma-separated glob or regex patterns")
	cmd.Flags().StringVar(&classification, "classification", "", "only cases whose classification matches one of these patterns")

	return cmd
}

func filter(list []cases.Case, statuses, classes matcher.Set) []cases.Case {
	out := make([]cases.Case, 0, len(list))
	for _, c := range list {
		if statuses.Match(c.Status) && classes.Match(c.Classification) {
			out = append(out, c)
		}
	}
	return out
}
