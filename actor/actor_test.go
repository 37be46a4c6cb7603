package actor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type counterActor struct {
	Base
	mu       sync.Mutex
	received []int
	errs     []error
}

func (a *counterActor) Receive(_ context.Context, message interface{}) (interface{}, error) {
	value, ok := message.(int)
	if !ok {
		return nil, fmt.Errorf("unexpected message %T", message)
	}
	a.mu.Lock()
	a.received = append(a.received, value)
	a.mu.Unlock()
	return value * 2, nil
}

func (a *counterActor) OnError(err error) {
	a.mu.Lock()
	a.errs = append(a.errs, err)
	a.mu.Unlock()
}

func TestAskReturnsHandlerResult(t *testing.T) {
	ctx := context.Background()
	ref, err := Spawn(ctx, &counterActor{})
	assert.NoError(t, err)
	defer ref.Stop()

	result, err := ref.Ask(ctx, 21)
	assert.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestMessagesHandledInReceiptOrder(t *testing.T) {
	ctx := context.Background()
	anActor := &counterActor{}
	ref, err := Spawn(ctx, anActor, WithMailboxSize(128))
	assert.NoError(t, err)

	for i := 0; i < 100; i++ {
		assert.NoError(t, ref.Tell(ctx, i))
	}
	ref.Stop()

	anActor.mu.Lock()
	defer anActor.mu.Unlock()
	assert.Len(t, anActor.received, 100)
	for i, value := range anActor.received {
		assert.Equal(t, i, value)
	}
}

func TestSendAfterStop(t *testing.T) {
	ctx := context.Background()
	ref, err := Spawn(ctx, &counterActor{})
	assert.NoError(t, err)

	ref.Stop()
	assert.ErrorIs(t, ref.Tell(ctx, 1), ErrStopped)
	_, err = ref.Ask(ctx, 1)
	assert.ErrorIs(t, err, ErrStopped)
	assert.True(t, ref.IsStopped())

	// Stop is idempotent.
	ref.Stop()
}

func TestMailboxFull(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	blocking := &blockingActor{release: release}
	ref, err := Spawn(ctx, blocking, WithMailboxSize(1))
	assert.NoError(t, err)

	// First message occupies the handler, second fills the mailbox.
	assert.NoError(t, ref.Tell(ctx, "a"))
	var full bool
	for i := 0; i < 50; i++ {
		if err := ref.Tell(ctx, "b"); err == ErrMailboxFull {
			full = true
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.True(t, full)

	close(release)
	ref.Stop()
}

type blockingActor struct {
	Base
	release chan struct{}
}

func (a *blockingActor) Receive(context.Context, interface{}) (interface{}, error) {
	<-a.release
	return nil, nil
}

type failingActor struct {
	Base
	onError []error
	mu      sync.Mutex
}

func (a *failingActor) Receive(context.Context, interface{}) (interface{}, error) {
	return nil, fmt.Errorf("boom")
}

func (a *failingActor) OnError(err error) {
	a.mu.Lock()
	a.onError = append(a.onError, err)
	a.mu.Unlock()
}

func TestHandlerErrorReachesOnErrorAndAsker(t *testing.T) {
	ctx := context.Background()
	anActor := &failingActor{}
	ref, err := Spawn(ctx, anActor)
	assert.NoError(t, err)

	_, err = ref.Ask(ctx, "x")
	assert.EqualError(t, err, "boom")
	ref.Stop()

	anActor.mu.Lock()
	defer anActor.mu.Unlock()
	assert.Len(t, anActor.onError, 1)
}

type startFailActor struct {
	Base
}

func (a *startFailActor) Started(context.Context) error {
	return fmt.Errorf("cannot start")
}

func (a *startFailActor) Receive(context.Context, interface{}) (interface{}, error) {
	return nil, nil
}

func TestStartedFailureAbortsSpawn(t *testing.T) {
	_, err := Spawn(context.Background(), &startFailActor{})
	assert.EqualError(t, err, "cannot start")
}
