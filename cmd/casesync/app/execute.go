package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/agentstation/casesync/pkg/errors"
)

// Execute runs the CLI with args.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "casesync",
		Short:   "Keep a local replica of case records in step with the remote store",
		Version: a.version,
		Long: `casesync fetches a user's case records from the remote case store,
reconciles them with the local replica using last-writer-wins on the
modification time, and applies the result locally.

It also uploads single cases and can run the remote case store itself.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "server", Title: "Server Commands:"})

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is ./.casesync.yaml or $HOME/.casesync.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.Bool("no-color", false, "disable colored output")
	flags.StringP("format", "o", "", "output format: table, wide, json, yaml")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	flags.String("endpoint", "", "base URL of the remote case store")
	flags.Int64("user", 0, "user whose cases are synchronised")
	flags.String("store", "", "local store: memory, file, sqlite")
	flags.String("store-path", "", "local store location")

	rootCmd.SetVersionTemplate("casesync {{.Version}}\n")
	if a.out != nil {
		rootCmd.SetOut(a.out)
		rootCmd.SetErr(a.out)
	}

	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand applies the flags the user set on top of the loaded
// configuration and rebuilds the logger.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	if flags.Changed("config") {
		config, err := LoadConfig(mustGetString(flags, "config"))
		if err != nil {
			return err
		}
		a.config = config
	}

	a.config.UpdateFromFlags(changedFlags(flags))
	if err := a.config.Validate(); err != nil {
		return err
	}
	a.reload(a.config)
	return nil
}

func changedFlags(flags *pflag.FlagSet) Flags {
	var f Flags
	if flags.Changed("verbose") {
		v := mustGetBool(flags, "verbose")
		f.Verbose = &v
	}
	if flags.Changed("quiet") {
		v := mustGetBool(flags, "quiet")
		f.Quiet = &v
	}
	if flags.Changed("no-color") {
		v := mustGetBool(flags, "no-color")
		f.NoColor = &v
	}
	if flags.Changed("format") {
		v := mustGetString(flags, "format")
		f.Format = &v
	}
	if flags.Changed("log-level") {
		v := mustGetString(flags, "log-level")
		f.LogLevel = &v
	}
	if flags.Changed("endpoint") {
		v := mustGetString(flags, "endpoint")
		f.Endpoint = &v
	}
	if flags.Changed("user") {
		v, err := flags.GetInt64("user")
		if err != nil {
			panic("programming error: failed to get flag user: " + err.Error())
		}
		f.UserID = &v
	}
	if flags.Changed("store") {
		v := mustGetString(flags, "store")
		f.Store = &v
	}
	if flags.Changed("store-path") {
		v := mustGetString(flags, "store-path")
		f.StorePath = &v
	}
	return f
}

// ExitOnError prints err and exits with status 1. Remote failures are
// printed with their user-facing message first.
func ExitOnError(err error) {
	if err == nil {
		return
	}
	writeError(os.Stderr, err)
	os.Exit(1)
}

func writeError(w io.Writer, err error) {
	var re *errors.RemoteError
	if errors.As(err, &re) {
		fmt.Fprintf(w, "%s\n  %v\n", re.Message(), err)
		return
	}
	fmt.Fprintln(w, err.Error())
}

func mustGetBool(flags *pflag.FlagSet, name string) bool {
	val, err := flags.GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

func mustGetString(flags *pflag.FlagSet, name string) string {
	val, err := flags.GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
