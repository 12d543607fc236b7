package reconcile

import (
	"fmt"
	"strings"

	"github.com/agentstation/casesync/pkg/cases"
)

// Decision is the outcome of resolving one matched pair of records.
type Decision int

const (
	// KeepLocal leaves the local record in place with no mutation.
	KeepLocal Decision = iota
	// TakeRemote replaces the local record with the remote one.
	TakeRemote
)

// String returns the decision name
func (d Decision) String() string {
	if d == TakeRemote {
		return "take-remote"
	}
	return "keep-local"
}

// Strategy decides which version of a matched record wins
type Strategy interface {
	// Name returns the strategy name
	Name() string

	// Description returns a human-readable description
	Description() string

	// Resolve chooses between a local record and the remote record with the same key
	Resolve(local, remote cases.Case) Decision
}

// baseStrategy provides common strategy functionality
type baseStrategy struct {
	name        string
	description string
}

// Name returns the strategy name
func (s *baseStrategy) Name() string {
	return s.name
}

// Description returns a human-readable description
func (s *baseStrategy) Description() string {
	return s.description
}

// LastWriteWinsStrategy keeps whichever record has the later modification time.
// Equal timestamps keep the local record.
type LastWriteWinsStrategy struct {
	baseStrategy
}

// NewLastWriteWinsStrategy creates the default last-writer-wins strategy
func NewLastWriteWinsStrategy() Strategy {
	return &LastWriteWinsStrategy{
		baseStrategy: baseStrategy{
			name:        "last-write-wins",
			description: "Keeps the record with the strictly later modification time; ties keep local",
		},
	}
}

// Resolve takes the remote record only when it is strictly newer
func (s *LastWriteWinsStrategy) Resolve(local, remote cases.Case) Decision {
	if remote.NewerThan(local) {
		return TakeRemote
	}
	return KeepLocal
}

// RemoteAuthoritativeStrategy always takes the remote record unless both
// carry the same modification time.
type RemoteAuthoritativeStrategy struct {
	baseStrategy
}

// NewRemoteAuthoritativeStrategy creates a strategy where the remote store wins
func NewRemoteAuthoritativeStrategy() Strategy {
	return &RemoteAuthoritativeStrategy{
		baseStrategy: baseStrategy{
			name:        "remote-authoritative",
			description: "Replaces local records with remote ones unless timestamps are equal",
		},
	}
}

// Resolve takes the remote record whenever timestamps differ
func (s *RemoteAuthoritativeStrategy) Resolve(local, remote cases.Case) Decision {
	if remote.ModificationTime.Equal(local.ModificationTime) {
		return KeepLocal
	}
	return TakeRemote
}

// Resolver is a function that resolves a matched pair
type Resolver func(local, remote cases.Case) Decision

// CustomStrategy allows custom conflict resolution logic
type CustomStrategy struct {
	baseStrategy
	resolver Resolver
}

// NewCustomStrategy creates a new custom strategy.
// A nil resolver behaves like last-write-wins.
func NewCustomStrategy(name, description string, resolver Resolver) Strategy {
	return &CustomStrategy{
		baseStrategy: baseStrategy{name: name, description: description},
		resolver:     resolver,
	}
}

// Resolve uses the custom resolver
func (s *CustomStrategy) Resolve(local, remote cases.Case) Decision {
	if s.resolver == nil {
		return NewLastWriteWinsStrategy().Resolve(local, remote)
	}
	return s.resolver(local, remote)
}

// StrategyByName returns a built-in strategy.
func StrategyByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lww", "last-write-wins":
		return NewLastWriteWinsStrategy(), nil
	case "remote", "remote-authoritative":
		return NewRemoteAuthoritativeStrategy(), nil
	}
	return nil, fmt.Errorf("unknown reconcile strategy %q", name)
}
