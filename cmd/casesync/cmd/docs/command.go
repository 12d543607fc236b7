// Package docs provides the command that generates CLI reference pages.
package docs

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
)

// NewCommand creates the docs command.
func NewCommand() *cobra.Command {
	var (
		dir    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Generate man pages or markdown for the CLI",
		Example: `  casesync docs --dir ./docs/cli
  casesync docs --dir ./man --type man`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Generate(cmd.Root(), dir, format)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "./docs/cli", "output directory")
	cmd.Flags().StringVar(&format, "type", "markdown", "page type: markdown or man")

	return cmd
}

// Generate writes a page per command under root into dir.
func Generate(root *cobra.Command, dir, format string) error {
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}
	root.DisableAutoGenTag = true

	switch format {
	case "markdown", "md":
		return doc.GenMarkdownTree(root, dir)
	case "man":
		header := &doc.GenManHeader{
			Title:   "CASESYNC",
			Section: "1",
			Source:  "casesync",
			Manual:  "casesync Manual",
		}
		return doc.GenManTree(root, header, dir)
	default:
		return errors.NewValidationError("type", format, "must be markdown or man")
	}
}
