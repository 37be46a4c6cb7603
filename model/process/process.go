// Package process defines the model for long-running game operations: hacks,
// transfers, installs and similar work tracked by the registry.  A Process is
// distinct from an OS process; it is an accounting record with a status state
// machine and a free-form data map consumed by its behavior.
package process

import (
	"sync"
	"time"

	"github.com/hackwire/simcore/errors"
	"github.com/hackwire/simcore/internal/clock"
	"github.com/hackwire/simcore/model/resource"
)

// Type tags the operation a process performs.
type Type string

const (
	TypeFileTransfer Type = "file_transfer"
	TypeCracker      Type = "cracker"
	TypeLogForge     Type = "log_forge"
	TypeVirusCollect Type = "virus_collect"
	TypeInstall      Type = "software_install"
	TypeBankTransfer Type = "bank_transfer"
	TypeGeneric      Type = "generic"
)

// Process represents a tracked long-running operation owned by an entity and
// hosted on a server.
type Process struct {
	ID       string `json:"id"`
	EntityID string `json:"entityId"`
	ServerID string `json:"serverId"`
	Type     Type   `json:"type"`

	Status   Status `json:"status"`
	Priority int    `json:"priority"`
	Progress int    `json:"progress"`

	// Cost is the host capacity the operation asks for at admission time.
	Cost resource.Units `json:"cost"`

	// Granted is the amount of host capacity actually reserved for this
	// process, which may differ from the requested cost.
	Granted resource.Units `json:"granted"`

	Data map[string]interface{} `json:"data,omitempty"`

	StartedAt           time.Time  `json:"startedAt"`
	ScheduledCompletion *time.Time `json:"scheduledCompletion,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`

	mu sync.RWMutex
}

// Option customises a new process.
type Option func(*Process)

// WithPriority sets the scheduling priority; higher is more urgent.
func WithPriority(priority int) Option {
	return func(p *Process) { p.Priority = priority }
}

// WithData sets the initial data map.
func WithData(data map[string]interface{}) Option {
	return func(p *Process) { p.Data = data }
}

// WithCost sets the capacity requested at admission time.
func WithCost(cost resource.Units) Option {
	return func(p *Process) { p.Cost = cost }
}

// WithGranted records the reserved host capacity.
func WithGranted(granted resource.Units) Option {
	return func(p *Process) { p.Granted = granted }
}

// SetGranted records the reserved host capacity after admission.
func (p *Process) SetGranted(granted resource.Units) {
	p.mu.Lock()
	p.Granted = granted
	p.mu.Unlock()
}

// WithScheduledCompletion sets the expected completion time for
// duration-based operations.
func WithScheduledCompletion(at time.Time) Option {
	return func(p *Process) { p.ScheduledCompletion = &at }
}

// WithStatus overrides the initial status.
func WithStatus(status Status) Option {
	return func(p *Process) { p.Status = status }
}

// New creates a pending process.  The id may be empty; the registry assigns
// one on registration.
func New(id, entityID, serverID string, processType Type, options ...Option) (*Process, error) {
	if entityID == "" {
		return nil, errors.NewValidationError("process entity id is required", nil)
	}
	if serverID == "" {
		return nil, errors.NewValidationError("process server id is required", nil)
	}
	if processType == "" {
		processType = TypeGeneric
	}
	ret := &Process{
		ID:        id,
		EntityID:  entityID,
		ServerID:  serverID,
		Type:      processType,
		Status:    StatusPending,
		StartedAt: clock.Now(),
	}
	for _, option := range options {
		option(ret)
	}
	if ret.Data == nil {
		ret.Data = make(map[string]interface{})
	}
	return ret, nil
}

// StatusValue returns the current status.
func (p *Process) StatusValue() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// Transition moves the process to the next status if the state machine
// allows it.  It returns false without mutating anything when the transition
// is not allowed; terminal statuses therefore stay terminal.
func (p *Process) Transition(next Status) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.Status.CanTransitionTo(next) {
		return false
	}
	p.Status = next
	if next.IsFinished() {
		now := clock.Now()
		p.CompletedAt = &now
	}
	return true
}

// IsFinished reports whether the process reached a terminal status.
func (p *Process) IsFinished() bool {
	return p.StatusValue().IsFinished()
}

// IsActive reports whether the process is running or paused.
func (p *Process) IsActive() bool {
	return p.StatusValue().IsActive()
}

// SetProgress stores progress clamped to [0,100] and returns the stored
// value.
func (p *Process) SetProgress(progress int) int {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	p.mu.Lock()
	p.Progress = progress
	p.mu.Unlock()
	return progress
}

// ProgressValue returns the current progress.
func (p *Process) ProgressValue() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Progress
}

// SetData stores a single data value.
func (p *Process) SetData(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Data == nil {
		p.Data = make(map[string]interface{})
	}
	p.Data[key] = value
}

// DataValue reads a single data value.
func (p *Process) DataValue(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	value, ok := p.Data[key]
	return value, ok
}

// DataSnapshot returns a shallow copy of the data map safe for concurrent
// readers.
func (p *Process) DataSnapshot() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]interface{}, len(p.Data))
	for k, v := range p.Data {
		out[k] = v
	}
	return out
}

// MergeData copies the supplied values into the data map, overriding
// existing keys.
func (p *Process) MergeData(values map[string]interface{}) {
	if len(values) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Data == nil {
		p.Data = make(map[string]interface{}, len(values))
	}
	for k, v := range values {
		p.Data[k] = v
	}
}

// Clone returns a copy safe for reads outside the registry.  The mutex is
// not copied.
func (p *Process) Clone() *Process {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := &Process{
		ID:                  p.ID,
		EntityID:            p.EntityID,
		ServerID:            p.ServerID,
		Type:                p.Type,
		Status:              p.Status,
		Priority:            p.Priority,
		Progress:            p.Progress,
		Cost:                p.Cost,
		Granted:             p.Granted,
		StartedAt:           p.StartedAt,
		ScheduledCompletion: p.ScheduledCompletion,
		CompletedAt:         p.CompletedAt,
	}
	if p.Data != nil {
		out.Data = make(map[string]interface{}, len(p.Data))
		for k, v := range p.Data {
			out.Data[k] = v
		}
	}
	return out
}
