package app

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/agentstation/casesync/cmd/casesync/cmd/docs"
	"github.com/agentstation/casesync/cmd/casesync/cmd/list"
	"github.com/agentstation/casesync/cmd/casesync/cmd/serve"
	synccmd "github.com/agentstation/casesync/cmd/casesync/cmd/sync"
	"github.com/agentstation/casesync/cmd/casesync/cmd/upload"
)

func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(synccmd.NewCommand(a))
	rootCmd.AddCommand(upload.NewCommand(a))
	rootCmd.AddCommand(list.NewCommand(a))

	// Server commands
	rootCmd.AddCommand(serve.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(docs.NewCommand())
	rootCmd.AddCommand(a.newVersionCommand())
}

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("casesync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
				cmd.Printf("  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			}
		},
	}
}
