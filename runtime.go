package simcore

import (
	"context"
	"sync"
	"time"

	"github.com/hackwire/simcore/errors"
	"github.com/hackwire/simcore/internal/clock"
	"github.com/hackwire/simcore/logging"
	"github.com/hackwire/simcore/model/process"
	"github.com/hackwire/simcore/model/resource"
	"github.com/hackwire/simcore/policy"
	"github.com/hackwire/simcore/service/allocator"
	"github.com/hackwire/simcore/service/catalog"
	"github.com/hackwire/simcore/service/event"
	"github.com/hackwire/simcore/service/executor"
	"github.com/hackwire/simcore/service/listener"
	"github.com/hackwire/simcore/service/messaging"
	"github.com/hackwire/simcore/service/registry"
	"github.com/hackwire/simcore/supervisor"
	"github.com/hackwire/simcore/tracing"
)

// Runtime is the operational surface of the engine: starting, querying and
// terminating processes, managing listeners and driving the simulation.
type Runtime struct {
	config     *Config
	allocator  *allocator.Service
	registry   *registry.Service
	listeners  *listener.Service
	executor   executor.Service
	publisher  *event.Publisher
	dispatcher *event.Dispatcher
	queue      messaging.Queue[event.Event]
	catalog    *catalog.Service
	supervisor *supervisor.Supervisor
	logger     logging.Logger

	shutdownCh chan struct{}
	stopOnce   sync.Once
}

// Registry returns the process registry.
func (r *Runtime) Registry() *registry.Service {
	return r.registry
}

// Allocator returns the resource allocator.
func (r *Runtime) Allocator() *allocator.Service {
	return r.allocator
}

// Listeners returns the listener registry.
func (r *Runtime) Listeners() *listener.Service {
	return r.listeners
}

// Supervisor returns the agent supervisor.
func (r *Runtime) Supervisor() *supervisor.Supervisor {
	return r.supervisor
}

// Catalog returns the content catalog.
func (r *Runtime) Catalog() *catalog.Service {
	return r.catalog
}

// LoadCatalog loads the catalog document at URL and registers every server
// it declares with the allocator.
func (r *Runtime) LoadCatalog(ctx context.Context, URL string) error {
	if err := r.catalog.Load(ctx, URL); err != nil {
		return err
	}
	for _, spec := range r.catalog.Servers() {
		if err := r.allocator.RegisterHost(spec.ID, spec.Capacity()); err != nil {
			return err
		}
	}
	return nil
}

// RegisterServer declares a host and its total capacity.
func (r *Runtime) RegisterServer(serverID string, caps resource.Units) error {
	return r.allocator.RegisterHost(serverID, caps)
}

// Usage returns a server's total, used and available capacity.
func (r *Runtime) Usage(serverID string) (total, used, available resource.Units, err error) {
	return r.allocator.Usage(serverID)
}

// StartProcess admits a new process.  The catalog supplies the cost,
// priority and duration defaults for the process type; explicit process
// options override them.  When the host lacks capacity the process is queued
// if the configuration allows it, otherwise an allocation error is
// returned.
func (r *Runtime) StartProcess(ctx context.Context, entityID, serverID string, processType process.Type, options ...process.Option) (*process.Process, error) {
	ctx, span := tracing.StartSpan(ctx, "runtime.startProcess")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	if !policy.FromContext(ctx).Admit(ctx, string(processType)) {
		err = errors.NewValidationError("admission blocked by policy", nil).
			WithContext("type", string(processType))
		return nil, err
	}

	defaults := r.processDefaults(processType)
	p, err := process.New("", entityID, serverID, processType, append(defaults, options...)...)
	if err != nil {
		return nil, err
	}
	span.WithAttributes(map[string]string{"server": serverID, "type": string(processType)})

	granted, reserveErr := r.allocator.Reserve(p.ID, serverID, p.Cost)
	if reserveErr != nil {
		if !errors.IsAllocationError(reserveErr) || !r.config.Simulation.QueueWhenBusy {
			err = reserveErr
			return nil, err
		}
		if !p.Transition(process.StatusQueued) {
			err = errors.NewInternalError("queued transition rejected", nil).WithContext("id", p.ID)
			return nil, err
		}
		if _, err = r.registry.Register(ctx, p); err != nil {
			return nil, err
		}
		r.logger.Infof("process %s queued on %s", p.ID, serverID)
		return p, nil
	}

	p.SetGranted(granted)
	if _, err = r.registry.Register(ctx, p); err != nil {
		r.allocator.Release(p.ID)
		return nil, err
	}
	if err = r.registry.Start(ctx, p.ID); err != nil {
		r.allocator.Release(p.ID)
		return nil, err
	}
	return p, nil
}

// processDefaults builds the catalog-derived options for a process type.
func (r *Runtime) processDefaults(processType process.Type) []process.Option {
	spec, err := r.catalog.ProcessSpec(processType)
	if err != nil {
		return nil
	}
	options := []process.Option{
		process.WithCost(spec.Cost()),
		process.WithPriority(spec.Priority),
	}
	if duration := spec.Duration.Value(); duration > 0 {
		options = append(options, process.WithScheduledCompletion(clock.Now().Add(duration)))
	}
	return options
}

// Process returns a tracked process.
func (r *Runtime) Process(id string) (*process.Process, error) {
	return r.registry.Get(id)
}

// UpdateProcess replaces a tracked process record, re-indexing it when the
// owning entity or host server changed.
func (r *Runtime) UpdateProcess(ctx context.Context, p *process.Process) error {
	return r.registry.Update(ctx, p)
}

// ProcessesByEntity returns all processes owned by the entity.
func (r *Runtime) ProcessesByEntity(entityID string) []*process.Process {
	return r.registry.ByEntity(entityID)
}

// ProcessesByServer returns all processes hosted on the server.
func (r *Runtime) ProcessesByServer(serverID string) []*process.Process {
	return r.registry.ByServer(serverID)
}

// CancelProcess requests cooperative cancellation; the next tick frees the
// process' resources and removes it.  Repeated calls are harmless.
func (r *Runtime) CancelProcess(ctx context.Context, id string) error {
	return r.registry.Cancel(ctx, id)
}

// KillProcess terminates a process immediately.
func (r *Runtime) KillProcess(ctx context.Context, id string) error {
	return r.registry.Kill(ctx, id)
}

// PauseProcess suspends a running process without freeing its resources.
func (r *Runtime) PauseProcess(ctx context.Context, id string) error {
	return r.registry.Pause(ctx, id)
}

// ResumeProcess returns a paused process to running.
func (r *Runtime) ResumeProcess(ctx context.Context, id string) error {
	return r.registry.Resume(ctx, id)
}

// AddListener registers a callback for an object and event name pair and
// returns the listener id.
func (r *Runtime) AddListener(objectID, eventName string, callback listener.Callback) (string, error) {
	return r.listeners.Register(listener.Listener{ObjectID: objectID, Event: eventName, Callback: callback})
}

// RemoveListener unregisters a listener.
func (r *Runtime) RemoveListener(listenerID string) error {
	return r.listeners.Unregister(listenerID)
}

/// Tick advances the simulation one step: every running process with a
// registered behavior executes one step, failures are folded into the
// lifecycle, then the registry finalises cancellations, completions and
// queued admissions.
func (r *Runtime) Tick(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "runtime.tick")
	defer tracing.EndSpan(span, nil)

	for _, p := range r.registry.ByStatus(process.StatusRunning) {
		if len(p.DataSnapshot()) == 0 {
			continue // no behavior input; the process advances on schedule
		}
		output, err := r.executor.Step(ctx, p)
		if err != nil {
			if errors.IsNotFoundError(err) {
				continue // no behavior; the process advances on schedule
			}
			if failErr := r.registry.Fail(ctx, p.ID, err); failErr != nil {
				r.logger.Warnf("failed to fail process %s: %v", p.ID, failErr)
			}
			continue
		}
		if output.Failed {
			reason := errors.NewInternalError(output.Reason, nil)
			if failErr := r.registry.Fail(ctx, p.ID, reason); failErr != nil {
				r.logger.Warnf("failed to fail process %s: %v", p.ID, failErr)
			}
			continue
		}
		if !output.Done {
			if err := r.registry.UpdateProgress(ctx, p.ID, p.ProgressValue()); err != nil {
				r.logger.Warnf("failed to record progress for %s: %v", p.ID, err)
			}
		}
	}

	r.registry.Tick(ctx)
}

// Start launches the event dispatcher and the simulation loop.
func (r *Runtime) Start(ctx context.Context) error {
	go r.dispatcher.Start(ctx)
	go r.run(ctx)
	return nil
}

func (r *Runtime) run(ctx context.Context) {
	ticker := time.NewTicker(r.config.Simulation.StepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.shutdownCh:
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Shutdown stops the simulation loop, the dispatcher and all supervised
// agents.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.shutdownCh) })
	r.dispatcher.Stop()
	if closer, ok := r.queue.(interface{ Close() }); ok {
		closer.Close()
	}
	r.supervisor.StopAllChildren()
	return nil
}
