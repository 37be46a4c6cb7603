// Package registry tracks the lifecycle of long-running game operations.  It
// keeps a primary index by process id plus secondary indices by owning
// entity and host server, all guarded by one read/write lock held only for
// the index mutation itself; status transitions and event publishing happen
// outside the critical section.
//
// Cancellation is two-phase: Cancel only marks a process Cancelling; the
// next Tick frees the grant, marks the process Cancelled and removes it.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hackwire/simcore/errors"
	"github.com/hackwire/simcore/internal/clock"
	"github.com/hackwire/simcore/internal/idgen"
	"github.com/hackwire/simcore/logging"
	"github.com/hackwire/simcore/model/process"
	"github.com/hackwire/simcore/progress"
	"github.com/hackwire/simcore/service/allocator"
	"github.com/hackwire/simcore/service/event"
)

// Config holds registry settings.
type Config struct {
	// TickInterval is how often the background loop finalises cancellations
	// and completions.
	TickInterval time.Duration `json:"tickInterval" yaml:"tickInterval"`
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{TickInterval: 100 * time.Millisecond}
}

// ObjectID returns the listener-registry object key for a process.
func ObjectID(processID string) string {
	return "process:" + processID
}

// ServerObjectID returns the listener-registry object key for a server.
func ServerObjectID(serverID string) string {
	return "server:" + serverID
}

// Service is the in-memory process registry.
type Service struct {
	config Config

	mu        sync.RWMutex
	processes map[string]*process.Process
	byEntity  map[string][]string
	byServer  map[string][]string

	allocator  *allocator.Service
	publisher  *event.Publisher
	logger     logging.Logger
	shutdownCh chan struct{}
	stopOnce   sync.Once
}

// Option customises the registry.
type Option func(*Service)

// WithConfig overrides the configuration.
func WithConfig(config Config) Option {
	return func(s *Service) {
		if config.TickInterval > 0 {
			s.config = config
		}
	}
}

// WithAllocator attaches the admission-control allocator whose grants the
// tick releases on terminal transitions.
func WithAllocator(alloc *allocator.Service) Option {
	return func(s *Service) { s.allocator = alloc }
}

// WithPublisher attaches the lifecycle event publisher.
func WithPublisher(publisher *event.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithLogger overrides the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates an empty registry.
func New(options ...Option) *Service {
	ret := &Service{
		config:     DefaultConfig(),
		processes:  make(map[string]*process.Process),
		byEntity:   make(map[string][]string),
		byServer:   make(map[string][]string),
		logger:     logging.Nop(),
		shutdownCh: make(chan struct{}),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Register inserts the process into all indices and returns its id,
// assigning one when empty.
func (s *Service) Register(ctx context.Context, p *process.Process) (string, error) {
	if p == nil {
		return "", errors.NewValidationError("process is nil", nil)
	}
	if p.ID == "" {
		p.ID = idgen.New()
	}

	s.mu.Lock()
	if _, ok := s.processes[p.ID]; ok {
		s.mu.Unlock()
		return "", errors.NewConflictError("process already registered", nil).WithContext("id", p.ID)
	}
	s.processes[p.ID] = p
	s.byEntity[p.EntityID] = append(s.byEntity[p.EntityID], p.ID)
	s.byServer[p.ServerID] = append(s.byServer[p.ServerID], p.ID)
	s.mu.Unlock()

	delta := progress.Delta{Total: 1}
	if p.StatusValue() == process.StatusQueued {
		delta.Queued = 1
	}
	progress.UpdateCtx(ctx, delta)
	s.publish(ctx, p, event.Created, nil)
	return p.ID, nil
}

// statusDelta translates one status transition into counter changes.
func statusDelta(prior, next process.Status) progress.Delta {
	var d progress.Delta
	switch prior {
	case process.StatusRunning:
		d.Running--
	case process.StatusQueued:
		d.Queued--
	}
	switch next {
	case process.StatusRunning:
		d.Running++
	case process.StatusQueued:
		d.Queued++
	case process.StatusCompleted:
		d.Completed++
	case process.StatusFailed, process.StatusKilled:
		d.Failed++
	case process.StatusCancelled:
		d.Cancelled++
	}
	return d
}

// Get returns the tracked process.
func (s *Service) Get(id string) (*process.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.processes[id]
	if !ok {
		return nil, errors.NewNotFoundError("unknown process", nil).WithContext("id", id)
	}
	return p, nil
}

// Update replaces the record stored under the process id, re-indexing it
// when the owning entity or host server changed.  In-place mutation through
// a live pointer needs no Update call; this exists for callers replacing
// the record wholesale.
func (s *Service) Update(_ context.Context, p *process.Process) error {
	if p == nil || p.ID == "" {
		return errors.NewValidationError("process is nil or has no id", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processes[p.ID]; !ok {
		return errors.NewNotFoundError("unknown process", nil).WithContext("id", p.ID)
	}
	s.processes[p.ID] = p
	reindex(s.byEntity, p.ID, p.EntityID)
	reindex(s.byServer, p.ID, p.ServerID)
	return nil
}

// reindex moves the id into the bucket for key, pruning emptied buckets.
func reindex(index map[string][]string, id, key string) {
	for k, ids := range index {
		if k == key {
			continue
		}
		trimmed := removeID(ids, id)
		if len(trimmed) == 0 {
			delete(index, k)
			continue
		}
		index[k] = trimmed
	}
	for _, candidate := range index[key] {
		if candidate == id {
			return
		}
	}
	index[key] = append(index[key], id)
}

// Remove deletes the process from every index, pruning emptied buckets.
func (s *Service) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.processes[id]
	if !ok {
		return errors.NewNotFoundError("unknown process", nil).WithContext("id", id)
	}
	delete(s.processes, id)
	s.byEntity[p.EntityID] = removeID(s.byEntity[p.EntityID], id)
	if len(s.byEntity[p.EntityID]) == 0 {
		delete(s.byEntity, p.EntityID)
	}
	s.byServer[p.ServerID] = removeID(s.byServer[p.ServerID], id)
	if len(s.byServer[p.ServerID]) == 0 {
		delete(s.byServer, p.ServerID)
	}
	return nil
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// ByEntity returns all processes owned by the entity.
func (s *Service) ByEntity(entityID string) []*process.Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byEntity[entityID])
}

// ByServer returns all processes hosted on the server.
func (s *Service) ByServer(serverID string) []*process.Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byServer[serverID])
}

func (s *Service) collect(ids []string) []*process.Process {
	out := make([]*process.Process, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.processes[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Active returns all running or paused processes.
func (s *Service) Active() []*process.Process {
	return s.where(func(p *process.Process) bool { return p.IsActive() })
}

// ByStatus returns all processes currently in the given status.
func (s *Service) ByStatus(status process.Status) []*process.Process {
	return s.where(func(p *process.Process) bool { return p.StatusValue() == status })
}

// All returns every tracked process.
func (s *Service) All() []*process.Process {
	return s.where(func(*process.Process) bool { return true })
}

func (s *Service) where(match func(*process.Process) bool) []*process.Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*process.Process, 0, len(s.processes))
	for _, p := range s.processes {
		if match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of tracked processes.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.processes)
}

// Start transitions an admitted process to running.
func (s *Service) Start(ctx context.Context, id string) error {
	return s.transition(ctx, id, process.StatusRunning, event.Running, nil)
}

// Pause suspends a running process; its resources stay reserved.
func (s *Service) Pause(ctx context.Context, id string) error {
	return s.transition(ctx, id, process.StatusPaused, event.Paused, nil)
}

// Resume returns a paused process to running.
func (s *Service) Resume(ctx context.Context, id string) error {
	return s.transition(ctx, id, process.StatusRunning, event.Resumed, nil)
}

// Complete finishes a process successfully and frees its grant.
func (s *Service) Complete(ctx context.Context, id string) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}
	prior := p.StatusValue()
	if !p.Transition(process.StatusCompleted) {
		return errors.NewConflictError("process cannot complete", nil).
			WithContext("id", id).WithContext("status", p.StatusValue())
	}
	progress.UpdateCtx(ctx, statusDelta(prior, process.StatusCompleted))
	p.SetProgress(100)
	s.release(id)
	s.publish(ctx, p, event.Completed, nil)
	return nil
}

// Fail finishes a process unsuccessfully and frees its grant.
func (s *Service) Fail(ctx context.Context, id string, cause error) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}
	prior := p.StatusValue()
	if !p.Transition(process.StatusFailed) {
		return errors.NewConflictError("process cannot fail", nil).
			WithContext("id", id).WithContext("status", p.StatusValue())
	}
	progress.UpdateCtx(ctx, statusDelta(prior, process.StatusFailed))
	s.release(id)
	data := map[string]interface{}{}
	if cause != nil {
		data["reason"] = cause.Error()
	}
	s.publish(ctx, p, event.Failed, data)
	return nil
}

// Kill terminates a process immediately and frees its grant.
func (s *Service) Kill(ctx context.Context, id string) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}
	prior := p.StatusValue()
	if !p.Transition(process.StatusKilled) {
		return errors.NewConflictError("process cannot be killed", nil).
			WithContext("id", id).WithContext("status", p.StatusValue())
	}
	progress.UpdateCtx(ctx, statusDelta(prior, process.StatusKilled))
	s.release(id)
	s.publish(ctx, p, event.Killed, nil)
	return nil
}

// Cancel marks a process for cooperative cancellation.  Cancelling an
// unknown or already-terminal process succeeds silently, so repeated or
// racing cancel requests never error.  The actual resource release and
// removal happen on the next Tick.
func (s *Service) Cancel(ctx context.Context, id string) error {
	s.mu.RLock()
	p, ok := s.processes[id]
	s.mu.RUnlock()
	if !ok {
		// Likely already finalised and reaped by an earlier tick.
		return nil
	}
	status := p.StatusValue()
	if status.IsFinished() || status == process.StatusCancelling {
		return nil
	}
	if !p.Transition(process.StatusCancelling) {
		return nil
	}
	progress.UpdateCtx(ctx, statusDelta(status, process.StatusCancelling))
	s.logger.Debugf("process %s marked cancelling", id)
	return nil
}

// UpdateProgress stores clamped progress and emits a progress event.
// Progress on a finished process is ignored.
func (s *Service) UpdateProgress(ctx context.Context, id string, progress int) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}
	if p.IsFinished() {
		return nil
	}
	stored := p.SetProgress(progress)
	s.publish(ctx, p, event.Progress, map[string]interface{}{"progress": stored})
	return nil
}

func (s *Service) transition(ctx context.Context, id string, next process.Status, eventName string, data map[string]interface{}) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}
	prior := p.StatusValue()
	if !p.Transition(next) {
		return errors.NewConflictError("illegal status transition", nil).
			WithContext("id", id).
			WithContext("from", p.StatusValue()).
			WithContext("to", next)
	}
	progress.UpdateCtx(ctx, statusDelta(prior, next))
	s.publish(ctx, p, eventName, data)
	return nil
}

func (s *Service) release(id string) {
	if s.allocator != nil {
		s.allocator.Release(id)
	}
}

func (s *Service) publish(ctx context.Context, p *process.Process, name string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["processId"] = p.ID
	data["entityId"] = p.EntityID
	data["serverId"] = p.ServerID
	data["type"] = string(p.Type)
	s.publisher.TryPublish(ctx, event.New(ObjectID(p.ID), name, data))
	s.publisher.TryPublish(ctx, event.New(ServerObjectID(p.ServerID), name, data))
}

// Tick finalises pending lifecycle work: it completes due or fully
// progressed processes, finalises cancellations (freeing their grants
// exactly once) and admits queued processes in priority order.  Tick is the
// only mutator of allocator state on the cancellation path, which keeps the
// request path free of allocator locking.
func (s *Service) Tick(ctx context.Context) {
	now := clock.Now()

	var cancelling, running, queued []*process.Process
	s.mu.RLock()
	for _, p := range s.processes {
		switch p.StatusValue() {
		case process.StatusCancelling:
			cancelling = append(cancelling, p)
		case process.StatusRunning:
			running = append(running, p)
		case process.StatusQueued:
			queued = append(queued, p)
		}
	}
	s.mu.RUnlock()

	for _, p := range cancelling {
		s.release(p.ID)
		if p.Transition(process.StatusCancelled) {
			progress.UpdateCtx(ctx, statusDelta(process.StatusCancelling, process.StatusCancelled))
			s.publish(ctx, p, event.Cancelled, nil)
		}
		if err := s.Remove(p.ID); err != nil {
			s.logger.Warnf("failed to remove cancelled process %s: %v", p.ID, err)
		}
	}

	for _, p := range running {
		if due := p.ScheduledCompletion; due != nil {
			if total := due.Sub(p.StartedAt); total > 0 {
				elapsed := int(now.Sub(p.StartedAt) * 100 / total)
				// Only ever move progress forward; a behavior may be ahead.
				if elapsed > p.ProgressValue() {
					p.SetProgress(elapsed)
				}
			} else if !now.Before(*due) {
				p.SetProgress(100)
			}
		}
		if p.ProgressValue() >= 100 {
			if err := s.Complete(ctx, p.ID); err != nil {
				s.logger.Warnf("failed to complete process %s: %v", p.ID, err)
			}
		}
	}

	s.admit(ctx, queued)
}

// admit starts queued processes while capacity allows, most urgent first.
func (s *Service) admit(ctx context.Context, queued []*process.Process) {
	if s.allocator == nil || len(queued) == 0 {
		return
	}
	sort.SliceStable(queued, func(i, j int) bool {
		if queued[i].Priority != queued[j].Priority {
			return queued[i].Priority > queued[j].Priority
		}
		return queued[i].StartedAt.Before(queued[j].StartedAt)
	})
	for _, p := range queued {
		granted, err := s.allocator.Reserve(p.ID, p.ServerID, p.Cost)
		if err != nil {
			if errors.IsAllocationError(err) {
				continue // stays queued until capacity frees up
			}
			s.logger.Warnf("admission of process %s failed: %v", p.ID, err)
			continue
		}
		p.SetGranted(granted)
		if err := s.Start(ctx, p.ID); err != nil {
			s.logger.Warnf("failed to start admitted process %s: %v", p.ID, err)
			s.release(p.ID)
		}
	}
}

// Run drives Tick on the configured interval until the context ends or Stop
// is called.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Stop terminates the Run loop.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.shutdownCh) })
}
