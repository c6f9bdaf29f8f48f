package ingest

import (
	"context"

	"github.com/yndnr/guildsync/internal/core/domain"
)

// Handler reacts to one envelope.
type Handler interface {
	Handle(ctx context.Context, st *State, env domain.Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, st *State, env domain.Envelope) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, st *State, env domain.Envelope) error {
	return f(ctx, st, env)
}

// Readiness tells the dispatcher when a handler may run.
type Readiness int

const (
	// Always runs the handler as soon as the envelope arrives.
	Always Readiness = iota
	// RequireReady defers the handler until its shard is ready.
	RequireReady
)

// String returns the readiness name.
func (r Readiness) String() string {
	if r == RequireReady {
		return "require_ready"
	}
	return "always"
}

// Registration binds a handler to an event type.
type Registration struct {
	Type      domain.EventType
	Name      string // used in logs
	Handler   Handler
	Readiness Readiness
}
