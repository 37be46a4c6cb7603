package event

import (
	"context"
	"errors"
	"sync"

	"github.com/hackwire/simcore/logging"
	"github.com/hackwire/simcore/service/listener"
	"github.com/hackwire/simcore/service/messaging"
)

// DispatchFunc delivers one resolved callback.  Implementations typically
// bridge to the host application's module router (HTTP hooks, cron jobs, the
// web UI push channel).
type DispatchFunc func(ctx context.Context, callback listener.CallbackInfo) error

// Dispatcher consumes lifecycle events and fans them out to the callbacks
// subscribed in the listener registry.
type Dispatcher struct {
	queue      messaging.Queue[Event]
	listeners  *listener.Service
	dispatch   DispatchFunc
	logger     logging.Logger
	shutdownCh chan struct{}
	stopOnce   sync.Once
}

// NewDispatcher creates a dispatcher.  The dispatch func may be nil, in
// which case resolved callbacks are dropped after resolution (useful in
// tests and for callers that only want registry bookkeeping).
func NewDispatcher(queue messaging.Queue[Event], listeners *listener.Service, dispatch DispatchFunc, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{
		queue:      queue,
		listeners:  listeners,
		dispatch:   dispatch,
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
}

// Start launches the consume loop; it returns when the context ends or Stop
// is called.
func (d *Dispatcher) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-d.shutdownCh:
			return
		default:
		}
		msg, err := d.queue.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			d.logger.Warnf("event consume failed: %v", err)
			continue
		}
		anEvent := msg.T()
		if ackErr := msg.Ack(); ackErr != nil {
			d.logger.Warnf("event ack failed: %v", ackErr)
		}
		d.deliver(ctx, anEvent)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, anEvent *Event) {
	callbacks := d.listeners.Trigger(anEvent.ObjectID, anEvent.Name, anEvent.Data)
	if d.dispatch == nil {
		return
	}
	for _, callback := range callbacks {
		if err := d.dispatch(ctx, callback); err != nil {
			d.logger.Warnf("dispatch %s.%s for %s failed: %v",
				callback.Module, callback.Method, anEvent.ObjectID, err)
		}
	}
}

// Stop terminates the consume loop.  Messages already queued stay queued.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.shutdownCh) })
}
