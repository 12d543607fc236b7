// Package application defines what casesync commands need from the
// application layer.
//
// Commands accept the Application interface rather than the concrete App
// so they can be tested against a Mock:
//
//	mock := &application.Mock{
//	    StoreFunc: func() (store.Store, error) {
//	        return memory.New()
//	    },
//	}
//	cmd := list.NewCommand(mock)
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/casesync"
	"github.com/agentstation/casesync/internal/server"
	"github.com/agentstation/casesync/pkg/store"
)

// Application provides configuration and lazily created dependencies to
// commands. All methods must be safe for concurrent use.
type Application interface {
	// Client returns the sync client for the configured endpoint and user.
	// It is created once and closed by the application on shutdown.
	Client() (casesync.Client, error)

	// Store returns the configured local store. Client syncs into the
	// same store.
	Store() (store.Store, error)

	// ServerStore opens the store backing `casesync serve`.
	ServerStore() (store.Store, error)

	// ServerConfig returns the configured server settings.
	ServerConfig() server.Config

	// Logger returns the configured logger.
	Logger() *zerolog.Logger

	// OutputFormat returns the requested output format, or "" to detect.
	OutputFormat() string

	Version() string
	Commit() string
	Date() string
	BuiltBy() string
}
