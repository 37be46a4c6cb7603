package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hackwire/simcore/logging"
	"github.com/hackwire/simcore/service/messaging/memory"
)

func TestTryPublishReturnsOnFullQueue(t *testing.T) {
	config := memory.DefaultConfig()
	config.Buffer = 1
	queue := memory.NewQueue[Event](config)
	publisher := NewPublisher(queue, logging.Nop())

	ctx := context.Background()
	publisher.TryPublish(ctx, New("process:1", Created, nil))
	assert.Equal(t, 1, queue.Size())

	// No consumer drains the queue, so the second publish cannot succeed.
	started := time.Now()
	publisher.TryPublish(ctx, New("process:2", Created, nil))
	elapsed := time.Since(started)

	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 1, queue.Size())

	publisher.TryPublish(ctx, nil)
	assert.Equal(t, 1, queue.Size())
}
