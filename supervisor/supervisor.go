// Package supervisor owns spawned actors and applies restart policy when
// they fail.  The supervisor decides retry-versus-abandon itself; it never
// recreates an actor (callers hold the factories), it only answers whether a
// restart should happen and enforces the backoff delay.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/hackwire/simcore/actor"
	"github.com/hackwire/simcore/errors"
	"github.com/hackwire/simcore/internal/clock"
	"github.com/hackwire/simcore/internal/idgen"
	"github.com/hackwire/simcore/logging"
)

const defaultFailureHistoryLimit = 10

// ChildInfo is a read-only snapshot of one supervised child.
type ChildInfo struct {
	ID             string
	Ref            *actor.Ref
	Strategy       RestartStrategy
	RestartCount   int
	LastRestart    *time.Time
	FailureHistory []time.Time
	Abandoned      bool
}

type childEntry struct {
	id             string
	ref            *actor.Ref
	strategy       RestartStrategy
	restartCount   int
	lastRestart    *time.Time
	failureHistory []time.Time
	abandoned      bool
}

// Supervisor tracks supervised children in spawn order.
type Supervisor struct {
	mu                  sync.RWMutex
	children            map[string]*childEntry
	order               []string
	group               GroupStrategy
	failureHistoryLimit int
	logger              logging.Logger
}

// Option customises a supervisor.
type Option func(*Supervisor)

// WithGroupStrategy sets how sibling children react to one child's failure.
func WithGroupStrategy(strategy GroupStrategy) Option {
	return func(s *Supervisor) { s.group = strategy }
}

// WithLogger overrides the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Supervisor) { s.logger = logger }
}

// WithFailureHistoryLimit bounds the per-child failure history.
func WithFailureHistoryLimit(limit int) Option {
	return func(s *Supervisor) {
		if limit > 0 {
			s.failureHistoryLimit = limit
		}
	}
}

// New creates an empty supervisor.
func New(options ...Option) *Supervisor {
	ret := &Supervisor{
		children:            make(map[string]*childEntry),
		group:               OneForOne,
		failureHistoryLimit: defaultFailureHistoryLimit,
		logger:              logging.Nop(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// SpawnChild starts the actor and registers it under a fresh child id.
func (s *Supervisor) SpawnChild(ctx context.Context, anActor actor.Actor, strategy RestartStrategy, options ...actor.Option) (string, *actor.Ref, error) {
	id := idgen.New()
	ref, err := actor.Spawn(ctx, anActor, append(options, actor.WithID(id))...)
	if err != nil {
		return "", nil, err
	}
	s.mu.Lock()
	s.children[id] = &childEntry{id: id, ref: ref, strategy: strategy}
	s.order = append(s.order, id)
	s.mu.Unlock()
	s.logger.Debugf("spawned child %s", id)
	return id, ref, nil
}

// AdoptChild registers an externally created actor ref under its own id.
// Used when a caller recreates an abandoned or restarted child.
func (s *Supervisor) AdoptChild(ref *actor.Ref, strategy RestartStrategy) error {
	if ref == nil {
		return errors.NewValidationError("child ref is nil", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.children[ref.ID()]; ok {
		return errors.NewConflictError("child already supervised", nil).WithContext("id", ref.ID())
	}
	s.children[ref.ID()] = &childEntry{id: ref.ID(), ref: ref, strategy: strategy}
	s.order = append(s.order, ref.ID())
	return nil
}

// RemoveChild unregisters a child unconditionally.  The child's actor is not
// stopped; callers stop it when they own the shutdown.
func (s *Supervisor) RemoveChild(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *Supervisor) removeLocked(id string) {
	if _, ok := s.children[id]; !ok {
		return
	}
	delete(s.children, id)
	for i, candidate := range s.order {
		if candidate == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// HandleChildFailure records the failure and decides whether the caller
// should recreate the child.  When a restart is due it enforces the
// strategy's backoff delay before returning true; the delay blocks only the
// calling goroutine, never the supervisor's other children.
func (s *Supervisor) HandleChildFailure(ctx context.Context, id string, cause error) (bool, error) {
	s.mu.Lock()
	entry, ok := s.children[id]
	if !ok {
		s.mu.Unlock()
		return false, errors.NewNotFoundError("unknown child", nil).WithContext("id", id)
	}

	entry.failureHistory = append(entry.failureHistory, clock.Now())
	if len(entry.failureHistory) > s.failureHistoryLimit {
		entry.failureHistory = entry.failureHistory[len(entry.failureHistory)-s.failureHistoryLimit:]
	}

	if entry.abandoned || !entry.strategy.ShouldRestart(entry.restartCount) {
		entry.abandoned = true
		s.mu.Unlock()
		s.logger.Warnf("child %s abandoned after %d restarts: %v", id, entry.restartCount, cause)
		return false, nil
	}

	delay := entry.strategy.Delay(entry.restartCount)
	attempt := entry.restartCount + 1
	s.mu.Unlock()

	s.logger.Infof("restarting child %s, attempt %d, delay %v, cause: %v", id, attempt, delay, cause)
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			// The restart never happened; the attempt is not consumed.
			return false, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok = s.children[id]
	if !ok {
		return false, errors.NewNotFoundError("child removed during backoff", nil).WithContext("id", id)
	}
	entry.restartCount++
	now := clock.Now()
	entry.lastRestart = &now
	return true, nil
}

// RestartSet returns, in spawn order, the child ids the caller must restart
// when the given child fails, according to the group strategy.
func (s *Supervisor) RestartSet(failedID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.children[failedID]; !ok {
		return nil
	}
	switch s.group {
	case OneForAll:
		return append([]string(nil), s.order...)
	case RestForOne:
		for i, id := range s.order {
			if id == failedID {
				return append([]string(nil), s.order[i:]...)
			}
		}
		return nil
	default:
		return []string{failedID}
	}
}

// Child returns a snapshot of the child's bookkeeping.
func (s *Supervisor) Child(id string) (ChildInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.children[id]
	if !ok {
		return ChildInfo{}, false
	}
	return ChildInfo{
		ID:             entry.id,
		Ref:            entry.ref,
		Strategy:       entry.strategy,
		RestartCount:   entry.restartCount,
		LastRestart:    entry.lastRestart,
		FailureHistory: append([]time.Time(nil), entry.failureHistory...),
		Abandoned:      entry.abandoned,
	}, true
}

// GetChildren returns all child ids in spawn order.
func (s *Supervisor) GetChildren() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// StopAllChildren stops every child in reverse spawn order and clears the
// table.
func (s *Supervisor) StopAllChildren() {
	s.mu.Lock()
	refs := make([]*actor.Ref, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if entry, ok := s.children[s.order[i]]; ok {
			refs = append(refs, entry.ref)
		}
	}
	s.children = make(map[string]*childEntry)
	s.order = nil
	s.mu.Unlock()

	for _, ref := range refs {
		ref.Stop()
	}
}
