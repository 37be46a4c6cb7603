package supervisor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hackwire/simcore/actor"
	"github.com/hackwire/simcore/errors"
)

type noopActor struct {
	actor.Base
}

func (a *noopActor) Receive(context.Context, interface{}) (interface{}, error) {
	return nil, nil
}

func spawnN(t *testing.T, s *Supervisor, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, ref, err := s.SpawnChild(context.Background(), &noopActor{}, Always())
		assert.NoError(t, err)
		assert.NotNil(t, ref)
		ids = append(ids, id)
	}
	return ids
}

func TestSpawnOrderAndRemove(t *testing.T) {
	s := New()
	ids := spawnN(t, s, 3)
	assert.Equal(t, ids, s.GetChildren())

	s.RemoveChild(ids[1])
	assert.Equal(t, []string{ids[0], ids[2]}, s.GetChildren())

	// Removing twice is harmless.
	s.RemoveChild(ids[1])
	assert.Equal(t, []string{ids[0], ids[2]}, s.GetChildren())

	s.StopAllChildren()
	assert.Empty(t, s.GetChildren())
}

func TestHandleChildFailureMaxRetries(t *testing.T) {
	s := New(WithFailureHistoryLimit(5))
	ctx := context.Background()
	id, _, err := s.SpawnChild(ctx, &noopActor{}, MaxRetries(2))
	assert.NoError(t, err)

	cause := fmt.Errorf("crash")
	first, err := s.HandleChildFailure(ctx, id, cause)
	assert.NoError(t, err)
	second, err := s.HandleChildFailure(ctx, id, cause)
	assert.NoError(t, err)
	third, err := s.HandleChildFailure(ctx, id, cause)
	assert.NoError(t, err)
	assert.Equal(t, []bool{true, true, false}, []bool{first, second, third})

	// Abandoned children never restart again.
	again, err := s.HandleChildFailure(ctx, id, cause)
	assert.NoError(t, err)
	assert.False(t, again)

	info, ok := s.Child(id)
	assert.True(t, ok)
	assert.True(t, info.Abandoned)
	assert.Equal(t, 2, info.RestartCount)
	assert.NotNil(t, info.LastRestart)
	assert.Len(t, info.FailureHistory, 4)
}

func TestFailureHistoryBounded(t *testing.T) {
	s := New(WithFailureHistoryLimit(3))
	ctx := context.Background()
	id, _, _ := s.SpawnChild(ctx, &noopActor{}, Always())

	for i := 0; i < 10; i++ {
		_, err := s.HandleChildFailure(ctx, id, fmt.Errorf("crash %d", i))
		assert.NoError(t, err)
	}
	info, _ := s.Child(id)
	assert.Len(t, info.FailureHistory, 3)
	assert.Equal(t, 10, info.RestartCount)
}

func TestHandleChildFailureUnknownChild(t *testing.T) {
	s := New()
	_, err := s.HandleChildFailure(context.Background(), "missing", fmt.Errorf("crash"))
	assert.True(t, errors.IsNotFoundError(err))
}

func TestNeverStrategyAbandonsImmediately(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _, _ := s.SpawnChild(ctx, &noopActor{}, Never())

	restart, err := s.HandleChildFailure(ctx, id, fmt.Errorf("crash"))
	assert.NoError(t, err)
	assert.False(t, restart)
}

func TestBackoffDelayIsEnforced(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _, _ := s.SpawnChild(ctx, &noopActor{}, ExponentialBackoff(5, 20*time.Millisecond, time.Second))

	// First restart waits baseDelay, second waits 2*baseDelay.
	started := time.Now()
	restart, err := s.HandleChildFailure(ctx, id, fmt.Errorf("crash"))
	assert.NoError(t, err)
	assert.True(t, restart)
	restart, err = s.HandleChildFailure(ctx, id, fmt.Errorf("crash"))
	assert.NoError(t, err)
	assert.True(t, restart)
	assert.GreaterOrEqual(t, time.Since(started), 60*time.Millisecond)
}

func TestBackoffDelayHonoursContext(t *testing.T) {
	s := New()
	id, _, _ := s.SpawnChild(context.Background(), &noopActor{}, ExponentialBackoff(5, time.Minute, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	restart, err := s.HandleChildFailure(ctx, id, fmt.Errorf("crash"))
	assert.False(t, restart)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCancelledBackoffKeepsRetryBudget(t *testing.T) {
	s := New()
	id, _, _ := s.SpawnChild(context.Background(), &noopActor{}, ExponentialBackoff(1, 50*time.Millisecond, time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	restart, err := s.HandleChildFailure(ctx, id, fmt.Errorf("crash"))
	assert.False(t, restart)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The interrupted attempt must not count against the retry budget.
	info, ok := s.Child(id)
	assert.True(t, ok)
	assert.Equal(t, 0, info.RestartCount)
	assert.Nil(t, info.LastRestart)

	restart, err = s.HandleChildFailure(context.Background(), id, fmt.Errorf("crash"))
	assert.NoError(t, err)
	assert.True(t, restart)
	info, _ = s.Child(id)
	assert.Equal(t, 1, info.RestartCount)
	assert.NotNil(t, info.LastRestart)
}

func TestRemovedChildDuringBackoff(t *testing.T) {
	s := New()
	id, _, _ := s.SpawnChild(context.Background(), &noopActor{}, ExponentialBackoff(3, 30*time.Millisecond, time.Second))

	done := make(chan error, 1)
	go func() {
		_, err := s.HandleChildFailure(context.Background(), id, fmt.Errorf("crash"))
		done <- err
	}()
	time.Sleep(5 * time.Millisecond)
	s.RemoveChild(id)

	err := <-done
	assert.True(t, errors.IsNotFoundError(err))
}

func TestRestartSet(t *testing.T) {
	oneForOne := New(WithGroupStrategy(OneForOne))
	ids := spawnN(t, oneForOne, 3)
	assert.Equal(t, []string{ids[1]}, oneForOne.RestartSet(ids[1]))

	oneForAll := New(WithGroupStrategy(OneForAll))
	ids = spawnN(t, oneForAll, 3)
	assert.Equal(t, ids, oneForAll.RestartSet(ids[2]))

	restForOne := New(WithGroupStrategy(RestForOne))
	ids = spawnN(t, restForOne, 4)
	assert.Equal(t, ids[1:], restForOne.RestartSet(ids[1]))

	assert.Nil(t, restForOne.RestartSet("missing"))
}

func TestAdoptChild(t *testing.T) {
	s := New()
	ref, err := actor.Spawn(context.Background(), &noopActor{})
	assert.NoError(t, err)

	assert.NoError(t, s.AdoptChild(ref, Always()))
	assert.Equal(t, []string{ref.ID()}, s.GetChildren())
	assert.True(t, errors.IsConflictError(s.AdoptChild(ref, Always())))
	s.StopAllChildren()
}
