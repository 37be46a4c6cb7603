package actor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hackwire/simcore/internal/idgen"
	"github.com/hackwire/simcore/logging"
)

var (
	// ErrStopped is returned when sending to an actor that is stopping or
	// stopped.
	ErrStopped = errors.New("actor: stopped")

	// ErrMailboxFull is returned when the mailbox cannot accept another
	// message without blocking.
	ErrMailboxFull = errors.New("actor: mailbox full")
)

const defaultMailboxSize = 64

type response struct {
	data interface{}
	err  error
}

type envelope struct {
	ctx     context.Context
	payload interface{}
	replyTo chan response
}

// Ref is the address of a running actor.  All interaction with the actor
// goes through its Ref.
type Ref struct {
	id       string
	actor    Actor
	mailbox  chan envelope
	done     chan struct{}
	stopping atomic.Bool
	sendMu   sync.RWMutex // excludes senders while Stop closes the mailbox
	logger   logging.Logger
}

// Option customises a spawned actor.
type Option func(*Ref)

// WithMailboxSize overrides the mailbox buffer size.
func WithMailboxSize(size int) Option {
	return func(r *Ref) {
		if size > 0 {
			r.mailbox = make(chan envelope, size)
		}
	}
}

// WithLogger overrides the runtime logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Ref) { r.logger = logger }
}

// WithID overrides the generated actor id.
func WithID(id string) Option {
	return func(r *Ref) { r.id = id }
}

// Spawn starts the actor's dispatch goroutine.  It calls Started first and
// fails the spawn when the hook errors.
func Spawn(ctx context.Context, anActor Actor, options ...Option) (*Ref, error) {
	if anActor == nil {
		return nil, fmt.Errorf("actor is nil")
	}
	ret := &Ref{
		id:      idgen.New(),
		actor:   anActor,
		mailbox: make(chan envelope, defaultMailboxSize),
		done:    make(chan struct{}),
		logger:  logging.Nop(),
	}
	for _, option := range options {
		option(ret)
	}
	if err := anActor.Started(ctx); err != nil {
		return nil, err
	}
	go ret.run(ctx)
	return ret, nil
}

// ID returns the actor id.
func (r *Ref) ID() string {
	return r.id
}

// run is the single-writer dispatch loop.  Messages are handled strictly in
// receipt order; a handler panic stops the actor.
func (r *Ref) run(ctx context.Context) {
	defer close(r.done)
	defer r.actor.Stopping(ctx)
	defer func() {
		if rec := recover(); rec != nil {
			r.stopping.Store(true)
			err := fmt.Errorf("actor %s: handler panic: %v", r.id, rec)
			r.logger.Errorf("%v", err)
			r.actor.OnError(err)
		}
	}()

	for env := range r.mailbox {
		if env.ctx != nil {
			select {
			case <-env.ctx.Done():
				r.reply(env, response{err: env.ctx.Err()})
				continue
			default:
			}
		}
		result, err := r.actor.Receive(env.ctx, env.payload)
		if err != nil {
			r.actor.OnError(err)
		}
		r.reply(env, response{data: result, err: err})
	}
}

func (r *Ref) reply(env envelope, res response) {
	if env.replyTo == nil {
		return
	}
	env.replyTo <- res
}

// Tell delivers a message without waiting for the result.  It never blocks:
// a full mailbox yields ErrMailboxFull.
func (r *Ref) Tell(ctx context.Context, payload interface{}) error {
	return r.send(ctx, envelope{ctx: ctx, payload: payload})
}

// Ask delivers a message and waits for the handler's result, honouring
// context cancellation while waiting.
func (r *Ref) Ask(ctx context.Context, payload interface{}) (interface{}, error) {
	replyTo := make(chan response, 1)
	if err := r.send(ctx, envelope{ctx: ctx, payload: payload, replyTo: replyTo}); err != nil {
		return nil, err
	}
	select {
	case res := <-replyTo:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return nil, ErrStopped
	}
}

func (r *Ref) send(ctx context.Context, env envelope) error {
	r.sendMu.RLock()
	defer r.sendMu.RUnlock()
	if r.stopping.Load() {
		return ErrStopped
	}
	if ctx != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	select {
	case r.mailbox <- env:
		return nil
	default:
		return ErrMailboxFull
	}
}

// Stop closes the mailbox and waits for queued messages to drain.  It is
// idempotent.
func (r *Ref) Stop() {
	if !r.stopping.CompareAndSwap(false, true) {
		<-r.done
		return
	}
	r.sendMu.Lock()
	close(r.mailbox)
	r.sendMu.Unlock()
	<-r.done
}

// IsStopped reports whether the actor is stopping or stopped.
func (r *Ref) IsStopped() bool {
	return r.stopping.Load()
}
