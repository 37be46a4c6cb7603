// Package actor implements the minimal actor runtime the simulation layer is
// built on.  An actor owns its mutable state exclusively: messages delivered
// to its mailbox are handled one at a time in receipt order by a single
// goroutine, so handlers never need their own locking.
package actor

import (
	"context"
)

// Actor is a unit of exclusively-owned mutable state.  Receive handles one
// message at a time; the runtime invokes the lifecycle hooks around the
// actor's active lifetime.
type Actor interface {
	// Started is called before the first message is delivered.  Returning an
	// error aborts the spawn.
	Started(ctx context.Context) error

	// Receive handles a single message and returns its result.
	Receive(ctx context.Context, message interface{}) (interface{}, error)

	// Stopping is called after the mailbox has drained, before the actor
	// goroutine exits.
	Stopping(ctx context.Context)

	// OnError observes handler errors and panics; it must not block.
	OnError(err error)
}

// Base provides no-op lifecycle hooks so behaviors only implement Receive.
type Base struct{}

func (Base) Started(context.Context) error { return nil }

func (Base) Stopping(context.Context) {}

func (Base) OnError(error) {}
