package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hackwire/simcore/model/process"
	"github.com/hackwire/simcore/model/resource"
	"github.com/hackwire/simcore/service/allocator"
)

func newProcess(t *testing.T, id, entityID, serverID string, options ...process.Option) *process.Process {
	t.Helper()
	ret, err := process.New(id, entityID, serverID, process.TypeGeneric, options...)
	assert.Nil(t, err)
	return ret
}

func TestService_RegisterAndLookup(t *testing.T) {
	ctx := context.Background()
	service := New()

	id1, err := service.Register(ctx, newProcess(t, "", "player-1", "srv-1"))
	assert.Nil(t, err)
	assert.NotEmpty(t, id1)

	id2, err := service.Register(ctx, newProcess(t, "p-2", "player-1", "srv-2"))
	assert.Nil(t, err)
	assert.Equal(t, "p-2", id2)

	_, err = service.Register(ctx, newProcess(t, "p-2", "player-2", "srv-2"))
	assert.NotNil(t, err)

	got, err := service.Get(id1)
	assert.Nil(t, err)
	assert.Equal(t, "player-1", got.EntityID)

	_, err = service.Get("missing")
	assert.NotNil(t, err)

	assert.Equal(t, 2, len(service.ByEntity("player-1")))
	assert.Equal(t, 1, len(service.ByServer("srv-2")))
	assert.Equal(t, 0, len(service.ByEntity("player-2")))
	assert.Equal(t, 2, service.Len())
}

func TestService_RemovePrunesIndices(t *testing.T) {
	ctx := context.Background()
	service := New()
	id, err := service.Register(ctx, newProcess(t, "p-1", "player-1", "srv-1"))
	assert.Nil(t, err)

	assert.Nil(t, service.Remove(id))
	assert.NotNil(t, service.Remove(id))

	service.mu.RLock()
	defer service.mu.RUnlock()
	assert.Equal(t, 0, len(service.byEntity))
	assert.Equal(t, 0, len(service.byServer))
}

func TestService_UpdateReindexes(t *testing.T) {
	ctx := context.Background()
	service := New()
	id, err := service.Register(ctx, newProcess(t, "p-1", "player-1", "srv-1"))
	assert.Nil(t, err)

	// Replace the record with one owned by another entity on another host.
	moved := newProcess(t, id, "player-2", "srv-2")
	assert.Nil(t, service.Update(ctx, moved))

	got, err := service.Get(id)
	assert.Nil(t, err)
	assert.Equal(t, moved, got)
	assert.Equal(t, 0, len(service.ByEntity("player-1")))
	assert.Equal(t, 1, len(service.ByEntity("player-2")))
	assert.Equal(t, 0, len(service.ByServer("srv-1")))
	assert.Equal(t, 1, len(service.ByServer("srv-2")))

	service.mu.RLock()
	_, stale := service.byEntity["player-1"]
	service.mu.RUnlock()
	assert.False(t, stale)

	// Updating in place is a no-op for the indices.
	assert.Nil(t, service.Update(ctx, moved))
	assert.Equal(t, 1, len(service.ByServer("srv-2")))

	assert.NotNil(t, service.Update(ctx, newProcess(t, "missing", "player-1", "srv-1")))
	assert.NotNil(t, service.Update(ctx, nil))
}

func TestService_Transitions(t *testing.T) {
	ctx := context.Background()
	service := New()
	id, _ := service.Register(ctx, newProcess(t, "p-1", "player-1", "srv-1"))

	assert.Nil(t, service.Start(ctx, id))
	assert.Nil(t, service.Pause(ctx, id))
	assert.Nil(t, service.Resume(ctx, id))
	assert.Nil(t, service.Complete(ctx, id))

	// Terminal states absorb further transitions.
	assert.NotNil(t, service.Start(ctx, id))
	assert.NotNil(t, service.Fail(ctx, id, nil))

	got, _ := service.Get(id)
	assert.Equal(t, process.StatusCompleted, got.StatusValue())
	assert.Equal(t, 100, got.ProgressValue())
}

func TestService_TerminalTransitionsFreeGrant(t *testing.T) {
	ctx := context.Background()
	alloc := allocator.New()
	assert.Nil(t, alloc.RegisterHost("srv-1", resource.New(1000, 2048)))
	service := New(WithAllocator(alloc))

	cost := resource.New(400, 512)
	id, _ := service.Register(ctx, newProcess(t, "p-1", "player-1", "srv-1", process.WithCost(cost)))
	_, err := alloc.Reserve(id, "srv-1", cost)
	assert.Nil(t, err)

	assert.Nil(t, service.Start(ctx, id))
	assert.Nil(t, service.Kill(ctx, id))

	_, used, _, err := alloc.Usage("srv-1")
	assert.Nil(t, err)
	assert.True(t, used.IsZero())
}

func TestService_CancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	alloc := allocator.New()
	assert.Nil(t, alloc.RegisterHost("srv-1", resource.New(1000, 2048)))
	service := New(WithAllocator(alloc))

	cost := resource.New(150, 32)
	id, _ := service.Register(ctx, newProcess(t, "scan-1", "player-1", "srv-1", process.WithCost(cost)))
	_, err := alloc.Reserve(id, "srv-1", cost)
	assert.Nil(t, err)
	assert.Nil(t, service.Start(ctx, id))

	// Three racing cancel requests all succeed.
	assert.Nil(t, service.Cancel(ctx, id))
	assert.Nil(t, service.Cancel(ctx, id))
	assert.Nil(t, service.Cancel(ctx, id))

	got, _ := service.Get(id)
	assert.Equal(t, process.StatusCancelling, got.StatusValue())

	service.Tick(ctx)

	_, err = service.Get(id)
	assert.NotNil(t, err)
	_, used, _, err := alloc.Usage("srv-1")
	assert.Nil(t, err)
	assert.True(t, used.IsZero())

	// Cancelling after removal is a silent no-op.
	assert.Nil(t, service.Cancel(ctx, id))
}

func TestService_TickCompletesDueProcesses(t *testing.T) {
	ctx := context.Background()
	service := New()

	due := time.Now().Add(-time.Second)
	id1, _ := service.Register(ctx, newProcess(t, "p-due", "player-1", "srv-1", process.WithScheduledCompletion(due)))
	id2, _ := service.Register(ctx, newProcess(t, "p-progress", "player-1", "srv-1"))
	id3, _ := service.Register(ctx, newProcess(t, "p-young", "player-1", "srv-1",
		process.WithScheduledCompletion(time.Now().Add(time.Hour))))
	for _, id := range []string{id1, id2, id3} {
		assert.Nil(t, service.Start(ctx, id))
	}
	assert.Nil(t, service.UpdateProgress(ctx, id2, 100))

	service.Tick(ctx)

	for _, expect := range []struct {
		id     string
		status process.Status
	}{
		{id1, process.StatusCompleted},
		{id2, process.StatusCompleted},
		{id3, process.StatusRunning},
	} {
		got, err := service.Get(expect.id)
		assert.Nil(t, err)
		assert.Equal(t, expect.status, got.StatusValue(), expect.id)
	}
}

func TestService_TickAdmitsQueuedByPriority(t *testing.T) {
	ctx := context.Background()
	alloc := allocator.New()
	assert.Nil(t, alloc.RegisterHost("srv-1", resource.New(1000, 2048)))
	service := New(WithAllocator(alloc))

	cost := resource.New(600, 512)
	low := newProcess(t, "p-low", "player-1", "srv-1",
		process.WithCost(cost), process.WithPriority(1), process.WithStatus(process.StatusQueued))
	high := newProcess(t, "p-high", "player-1", "srv-1",
		process.WithCost(cost), process.WithPriority(9), process.WithStatus(process.StatusQueued))
	_, err := service.Register(ctx, low)
	assert.Nil(t, err)
	_, err = service.Register(ctx, high)
	assert.Nil(t, err)

	service.Tick(ctx)

	// Only the high-priority process fits; the other stays queued.
	assert.Equal(t, process.StatusRunning, high.StatusValue())
	assert.Equal(t, process.StatusQueued, low.StatusValue())
	assert.Equal(t, cost, high.Granted)

	assert.Nil(t, service.Complete(ctx, "p-high"))
	service.Tick(ctx)
	assert.Equal(t, process.StatusRunning, low.StatusValue())
}

func TestService_UpdateProgress(t *testing.T) {
	ctx := context.Background()
	service := New()
	id, _ := service.Register(ctx, newProcess(t, "p-1", "player-1", "srv-1"))
	assert.Nil(t, service.Start(ctx, id))

	assert.Nil(t, service.UpdateProgress(ctx, id, 150))
	got, _ := service.Get(id)
	assert.Equal(t, 100, got.ProgressValue())

	assert.NotNil(t, service.UpdateProgress(ctx, "missing", 10))
}

func TestService_RunStops(t *testing.T) {
	service := New(WithConfig(Config{TickInterval: 5 * time.Millisecond}))
	done := make(chan error, 1)
	go func() { done <- service.Run(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	service.Stop()
	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(time.Second):
		t.Fatal("run loop did not stop")
	}
}
