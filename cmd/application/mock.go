package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/casesync"
	"github.com/agentstation/casesync/internal/server"
	"github.com/agentstation/casesync/pkg/store"
)

var _ Application = (*Mock)(nil)

// Mock implements Application for tests. A nil function field makes the
// method return a zero value.
type Mock struct {
	ClientFunc       func() (casesync.Client, error)
	StoreFunc        func() (store.Store, error)
	ServerStoreFunc  func() (store.Store, error)
	ServerConfigFunc func() server.Config
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
}

// Client calls ClientFunc.
func (m *Mock) Client() (casesync.Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc()
	}
	return nil, nil
}

// Store calls StoreFunc.
func (m *Mock) Store() (store.Store, error) {
	if m.StoreFunc != nil {
		return m.StoreFunc()
	}
	return nil, nil
}

// ServerStore calls ServerStoreFunc.
func (m *Mock) ServerStore() (store.Store, error) {
	if m.ServerStoreFunc != nil {
		return m.ServerStoreFunc()
	}
	return nil, nil
}

// ServerConfig calls ServerConfigFunc or returns server.DefaultConfig.
func (m *Mock) ServerConfig() server.Config {
	if m.ServerConfigFunc != nil {
		return m.ServerConfigFunc()
	}
	return server.DefaultConfig()
}

// Logger calls LoggerFunc or returns a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat calls OutputFormatFunc or returns "json".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "json"
}

// Version calls VersionFunc or returns "test".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "test"
}

// Commit returns "none".
func (m *Mock) Commit() string { return "none" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }
