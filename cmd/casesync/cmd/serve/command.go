// Package serve provides the command that runs the remote case store.
package serve

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/agentstation/casesync/cmd/application"
	"github.com/agentstation/casesync/internal/server"
	"github.com/agentstation/casesync/pkg/store"
	"github.com/agentstation/casesync/pkg/store/memory"
)

// NewCommand creates the serve command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		GroupID: "server",
		Short:   "Run the remote case store",
		Long: `Serve runs the authoritative case store that sync and upload talk to.

Endpoints:
  GET  /casesForUser/{userId}   cases written by the user (JSON array)
  POST /case                    create or replace one case
  GET  /updates/ws              websocket stream of case events
  GET  /updates/stream          server-sent events stream of case events
  GET  /health, /ready, /stats

An upload older than the stored version of the same case is rejected
with 409. Cases are kept in sqlite unless --memory is set.`,
		Example: `  casesync serve
  casesync serve --port 9000 --memory
  casesync serve --auth --api-key secret --rate-limit 120`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app)
		},
	}

	def := app.ServerConfig()
	flags := cmd.Flags()
	flags.String("host", def.Host, "bind address")
	flags.Int("port", def.Port, "server port")
	flags.String("prefix", def.PathPrefix, "path prefix for the case endpoints")
	flags.Bool("cors", def.CORSEnabled, "enable CORS")
	flags.StringSlice("cors-origins", def.CORSOrigins, "allowed CORS origins (comma-separated)")
	flags.Bool("auth", def.AuthEnabled, "require an API key")
	flags.String("api-key", "", "API key clients must present")
	flags.String("auth-header", def.AuthHeader, "header carrying the API key")
	flags.Int("rate-limit", def.RateLimit, "requests per minute per client (0 to disable)")
	flags.Bool("trust-proxy", def.TrustProxy, "use X-Forwarded-For for rate limiting")
	flags.Duration("cache-ttl", def.CacheTTL, "per-user listing cache TTL")
	flags.Duration("read-timeout", def.ReadTimeout, "HTTP read timeout")
	flags.Duration("write-timeout", def.WriteTimeout, "HTTP write timeout")
	flags.Duration("idle-timeout", def.IdleTimeout, "HTTP idle timeout")
	flags.Bool("memory", false, "keep cases in memory instead of the server database")

	return cmd
}

func run(cmd *cobra.Command, app application.Application) error {
	cfg := parseConfig(cmd.Flags(), app.ServerConfig())
	logger := app.Logger()

	var (
		st  store.Store
		err error
	)
	if mustGet(cmd.Flags().GetBool, "memory") {
		st, err = memory.New()
	} else {
		st, err = app.ServerStore()
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(st); err != nil {
			logger.Warn().Err(err).Msg("Closing server store failed")
		}
	}()

	srv, err := server.New(st, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().
		Str("addr", srv.Config().Addr()).
		Str("prefix", srv.Config().PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Bool("auth", cfg.AuthEnabled).
		Int("rate_limit", cfg.RateLimit).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("Starting case server")

	fmt.Fprintf(cmd.OutOrStdout(), "Case server listening on http://%s%s\n", srv.Config().Addr(), srv.Config().PathPrefix)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	// cmd.Context() is cancelled on SIGINT and SIGTERM
	return srv.Run(cmd.Context())
}

// parseConfig overrides cfg with the flags the user set.
func parseConfig(flags *pflag.FlagSet, cfg server.Config) server.Config {
	if flags.Changed("host") {
		cfg.Host = mustGet(flags.GetString, "host")
	}
	if flags.Changed("port") {
		cfg.Port = mustGet(flags.GetInt, "port")
	}
	if flags.Changed("prefix") {
		cfg.PathPrefix = mustGet(flags.GetString, "prefix")
	}
	if flags.Changed("cors") {
		cfg.CORSEnabled = mustGet(flags.GetBool, "cors")
	}
	if flags.Changed("cors-origins") {
		cfg.CORSOrigins = mustGet(flags.GetStringSlice, "cors-origins")
		cfg.CORSEnabled = true
	}
	if flags.Changed("auth") {
		cfg.AuthEnabled = mustGet(flags.GetBool, "auth")
	}
	if flags.Changed("api-key") {
		cfg.APIKey = mustGet(flags.GetString, "api-key")
	}
	if flags.Changed("auth-header") {
		cfg.AuthHeader = mustGet(flags.GetString, "auth-header")
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit = mustGet(flags.GetInt, "rate-limit")
	}
	if flags.Changed("trust-proxy") {
		cfg.TrustProxy = mustGet(flags.GetBool, "trust-proxy")
	}
	durations := map[string]*time.Duration{
		"cache-ttl":     &cfg.CacheTTL,
		"read-timeout":  &cfg.ReadTimeout,
		"write-timeout": &cfg.WriteTimeout,
		"idle-timeout":  &cfg.IdleTimeout,
	}
	for name, dst := range durations {
		if flags.Changed(name) {
			*dst = mustGet(flags.GetDuration, name)
		}
	}
	return cfg
}

// mustGet reads a flag defined in this package; a failure is a
// programming error.
func mustGet[T any](get func(string) (T, error), name string) T {
	val, err := get(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}
