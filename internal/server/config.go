package server

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
)

// Config holds server configuration.
type Config struct {
	Host string
	Port int

	// PathPrefix is prepended to every case route, e.g. "/api".
	PathPrefix string

	CORSEnabled bool
	CORSOrigins []string

	AuthEnabled bool
	APIKey      string
	AuthHeader  string

	// RateLimit is requests per minute per client; 0 disables it.
	RateLimit  int
	TrustProxy bool

	CacheTTL     time.Duration
	MaxBodyBytes int64

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            8080,
		AuthHeader:      "X-API-Key",
		RateLimit:       constants.DefaultRateLimit,
		CacheTTL:        constants.CacheTTL,
		MaxBodyBytes:    constants.MaxRequestBytes,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: constants.ShutdownTimeout,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks c and fills zero durations and limits with defaults.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.NewValidationError("port", c.Port, "must be between 0 and 65535")
	}
	if c.RateLimit < 0 {
		return errors.NewValidationError("rate_limit", c.RateLimit, "must be non-negative")
	}
	if c.AuthEnabled && c.APIKey == "" {
		return errors.NewValidationError("api_key", "", "is required when auth is enabled")
	}
	if c.PathPrefix != "" {
		c.PathPrefix = "/" + strings.Trim(c.PathPrefix, "/")
		if c.PathPrefix == "/" {
			c.PathPrefix = ""
		}
	}

	d := DefaultConfig()
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.AuthHeader == "" {
		c.AuthHeader = d.AuthHeader
	}
	return nil
}
