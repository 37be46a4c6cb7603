package event

import (
	"context"
	"time"

	"github.com/hackwire/simcore/logging"
	"github.com/hackwire/simcore/service/messaging"
)

// tryPublishTimeout bounds how long TryPublish may wait on a full queue so
// a stalled consumer can never wedge a state transition.
const tryPublishTimeout = 50 * time.Millisecond

// Publisher appends events to the shared queue.
type Publisher struct {
	queue  messaging.Queue[Event]
	logger logging.Logger
}

// NewPublisher creates a publisher over the supplied queue.
func NewPublisher(queue messaging.Queue[Event], logger logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Publisher{queue: queue, logger: logger}
}

// Publish appends one event.
func (p *Publisher) Publish(ctx context.Context, anEvent *Event) error {
	if anEvent == nil {
		return nil
	}
	return p.queue.Publish(ctx, anEvent)
}

// TryPublish publishes with a short deadline and logs failures instead of
// returning them; used on paths where notification loss must not fail or
// stall the state transition.
func (p *Publisher) TryPublish(ctx context.Context, anEvent *Event) {
	if anEvent == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, tryPublishTimeout)
	defer cancel()
	if err := p.Publish(ctx, anEvent); err != nil {
		p.logger.Warnf("dropped event %s for %s: %v", anEvent.Name, anEvent.ObjectID, err)
	}
}
