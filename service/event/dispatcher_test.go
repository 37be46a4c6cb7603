package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hackwire/simcore/logging"
	"github.com/hackwire/simcore/service/listener"
	"github.com/hackwire/simcore/service/messaging/memory"
)

func TestDispatchEndToEnd(t *testing.T) {
	queue := memory.NewQueue[Event](memory.DefaultConfig())
	listeners := listener.New()

	var mu sync.Mutex
	var delivered []listener.CallbackInfo
	dispatch := func(_ context.Context, callback listener.CallbackInfo) error {
		mu.Lock()
		delivered = append(delivered, callback)
		mu.Unlock()
		return nil
	}

	_, err := listeners.Register(listener.Listener{
		ObjectID: "server:1",
		Event:    Completed,
		Callback: listener.Callback{Module: "mail", Method: "notify", Meta: map[string]interface{}{"to": "owner"}},
	})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := NewDispatcher(queue, listeners, dispatch, logging.Nop())
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	publisher := NewPublisher(queue, logging.Nop())
	assert.NoError(t, publisher.Publish(ctx, New("server:1", Completed, map[string]interface{}{"processId": "p-1"})))
	// An event nobody subscribed to resolves zero callbacks.
	assert.NoError(t, publisher.Publish(ctx, New("server:2", Completed, nil)))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "mail", delivered[0].Module)
	assert.Equal(t, "notify", delivered[0].Method)
	assert.Equal(t, "owner", delivered[0].Meta["to"])
	assert.Equal(t, "p-1", delivered[0].Meta["processId"])
}
