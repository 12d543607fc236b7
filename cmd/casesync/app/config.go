package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/casesync/internal/cmd/output"
	"github.com/agentstation/casesync/internal/server"
	"github.com/agentstation/casesync/internal/transport"
	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/store"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "CASESYNC"

// Config holds the CLI configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Remote store
	Endpoint      string
	UserID        int64
	APIKey        string
	AuthScheme    string
	FetchTimeout  time.Duration
	UploadTimeout time.Duration

	// Local replica
	Store     store.Kind
	StorePath string

	PushLocalNewer   bool
	AutoSyncInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string

	// casesync serve
	Server       server.Config
	ServerStore  store.Kind
	ServerDBPath string
}

// LoadConfig loads configuration in order of precedence:
//  1. Command-line flags (applied later by UpdateFromFlags)
//  2. CASESYNC_* environment variables
//  3. .env.local, then .env
//  4. Config file (configFile, or .casesync.yaml in the working directory or $HOME)
//  5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := newViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapResource("read", "config", configFile, err)
		}
	} else {
		v.SetConfigName(".casesync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.WrapResource("read", "config", v.ConfigFileUsed(), err)
			}
		}
	}

	srv := server.DefaultConfig()
	srv.Host = v.GetString("server.host")
	srv.Port = v.GetInt("server.port")
	srv.PathPrefix = v.GetString("server.prefix")
	srv.CORSEnabled = v.GetBool("server.cors")
	srv.CORSOrigins = v.GetStringSlice("server.cors_origins")
	srv.AuthEnabled = v.GetBool("server.auth")
	srv.APIKey = v.GetString("server.api_key")
	srv.AuthHeader = v.GetString("server.auth_header")
	srv.RateLimit = v.GetInt("server.rate_limit")
	srv.TrustProxy = v.GetBool("server.trust_proxy")
	srv.CacheTTL = v.GetDuration("server.cache_ttl")
	srv.ReadTimeout = v.GetDuration("server.read_timeout")
	srv.WriteTimeout = v.GetDuration("server.write_timeout")
	srv.IdleTimeout = v.GetDuration("server.idle_timeout")

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color") || os.Getenv("NO_COLOR") != "",
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		Endpoint:      v.GetString("endpoint"),
		UserID:        v.GetInt64("user_id"),
		APIKey:        v.GetString("api_key"),
		AuthScheme:    v.GetString("auth_scheme"),
		FetchTimeout:  time.Duration(v.GetInt64("fetch_timeout_ms")) * time.Millisecond,
		UploadTimeout: time.Duration(v.GetInt64("upload_timeout_ms")) * time.Millisecond,

		Store:     store.Kind(strings.ToLower(v.GetString("store"))),
		StorePath: v.GetString("store_path"),

		PushLocalNewer:   v.GetBool("push_local_newer"),
		AutoSyncInterval: v.GetDuration("auto_sync_interval"),

		LogLevel:  firstNonEmpty(v.GetString("log_level"), os.Getenv("LOG_LEVEL")),
		LogFormat: firstNonEmpty(v.GetString("log_format"), os.Getenv("LOG_FORMAT"), "auto"),
		LogOutput: firstNonEmpty(v.GetString("log_output"), os.Getenv("LOG_OUTPUT"), "stderr"),

		Server:       srv,
		ServerStore:  store.Kind(strings.ToLower(v.GetString("server.store"))),
		ServerDBPath: v.GetString("server.db_path"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	def := server.DefaultConfig()
	v.SetDefault("auth_scheme", "bearer")
	v.SetDefault("fetch_timeout_ms", constants.DefaultFetchTimeout.Milliseconds())
	v.SetDefault("upload_timeout_ms", constants.DefaultUploadTimeout.Milliseconds())
	v.SetDefault("store", string(store.KindFile))
	v.SetDefault("auto_sync_interval", constants.DefaultAutoSyncInterval)

	v.SetDefault("server.host", def.Host)
	v.SetDefault("server.port", def.Port)
	v.SetDefault("server.prefix", "")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.auth_header", def.AuthHeader)
	v.SetDefault("server.rate_limit", def.RateLimit)
	v.SetDefault("server.cache_ttl", def.CacheTTL)
	v.SetDefault("server.read_timeout", def.ReadTimeout)
	v.SetDefault("server.write_timeout", def.WriteTimeout)
	v.SetDefault("server.idle_timeout", def.IdleTimeout)
	v.SetDefault("server.store", string(store.KindSQLite))
	v.SetDefault("server.db_path", constants.DefaultServerDBPath)
	return v
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	if c.UserID < 0 {
		return errors.NewValidationError("user_id", c.UserID, "must be non-negative")
	}
	if c.FetchTimeout <= 0 {
		return errors.NewValidationError("fetch_timeout_ms", c.FetchTimeout, "must be positive")
	}
	if c.UploadTimeout <= 0 {
		return errors.NewValidationError("upload_timeout_ms", c.UploadTimeout, "must be positive")
	}
	if err := validKind("store", c.Store); err != nil {
		return err
	}
	if err := validKind("server.store", c.ServerStore); err != nil {
		return err
	}
	if c.AuthScheme != "" {
		if _, err := transport.ParseAuthScheme(c.AuthScheme); err != nil {
			return err
		}
	}
	if _, err := output.ParseFormat(c.Format); err != nil {
		return err
	}
	return nil
}

func validKind(field string, kind store.Kind) error {
	for _, k := range store.Kinds() {
		if k == kind {
			return nil
		}
	}
	return errors.NewValidationError(field, string(kind), "must be one of memory, file, sqlite")
}

// UpdateFromFlags overrides config values with flags the user set.
func (c *Config) UpdateFromFlags(f Flags) {
	if f.Verbose != nil {
		c.Verbose = *f.Verbose
	}
	if f.Quiet != nil {
		c.Quiet = *f.Quiet
	}
	if f.NoColor != nil {
		c.NoColor = *f.NoColor
	}
	if f.Format != nil {
		c.Format = *f.Format
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.Endpoint != nil {
		c.Endpoint = *f.Endpoint
	}
	if f.UserID != nil {
		c.UserID = *f.UserID
	}
	if f.Store != nil {
		c.Store = store.Kind(strings.ToLower(*f.Store))
	}
	if f.StorePath != nil {
		c.StorePath = *f.StorePath
	}
}

// Flags holds the global flags a user set explicitly. Unset flags are nil
// so they never override lower-precedence sources.
type Flags struct {
	Verbose   *bool
	Quiet     *bool
	NoColor   *bool
	Format    *string
	LogLevel  *string
	Endpoint  *string
	UserID    *int64
	Store     *string
	StorePath *string
}

// loadEnvFiles loads .env.local and .env. Variables already set win, and
// .env.local wins over .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
