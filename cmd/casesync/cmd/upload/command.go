// Package upload provides the upload command.
package upload

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/agentstation/casesync/cmd/application"
	"github.com/agentstation/casesync/internal/cmd/output"
	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
)

// NewCommand creates the upload command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		file  string
		touch bool
	)

	cmd := &cobra.Command{
		Use:     "upload",
		GroupID: "core",
		Short:   "Upload one case to the remote store",
		Long: `Upload posts one case, read from a YAML or JSON file, to the remote
store. Once the remote store accepts it the case is also written to the
local replica. A rejected upload leaves the local replica unchanged.`,
		Example: `  casesync upload -f case.yaml
  casesync upload -f case.json --touch
  cat case.json | casesync upload -f -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := ReadCase(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if touch {
				c.ModificationTime = cases.NewTimestamp(time.Now())
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			if err := client.Upload(cmd.Context(), c); err != nil {
				return err
			}

			app.Logger().Info().Str("case", c.Key().String()).Msg("Case uploaded")

			format := output.DetectFormat(app.OutputFormat())
			return output.Write(cmd.OutOrStdout(), format, c, func(wide bool) output.Data {
				return output.CasesTable([]cases.Case{c}, wide)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "case file (.yaml, .yml or .json; - for stdin)")
	cmd.Flags().BoolVar(&touch, "touch", false, "set modificationtime to now before uploading")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// ReadCase decodes one case from path, or from stdin when path is "-".
// JSON is selected by a .json extension; everything else is read as YAML.
func ReadCase(path string, stdin io.Reader) (cases.Case, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return cases.Case{}, errors.WrapIO("read", path, err)
	}

	var c cases.Case
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
		err = json.Unmarshal(data, &c)
	} else {
		err = yaml.Unmarshal(data, &c)
	}
	if err != nil {
		return cases.Case{}, errors.NewParseError(format, path, "invalid case", err)
	}
	return c, nil
}
