// Package progress keeps aggregated process counters for one simulation
// session.  The tracker lives in the context, so every component receiving
// the context can atomically update the counters without a global registry.
package progress

import (
	"context"
	"sync"
	"time"
)

// Delta is an incremental counter change emitted by the registry.  Fields
// are signed; negative values decrement.
type Delta struct {
	Total     int
	Running   int
	Queued    int
	Completed int
	Failed    int
	Cancelled int
}

// Tracker keeps aggregated process counters for a session.  It is safe for
// concurrent use.
type Tracker struct {
	// SessionID identifies the simulation run; informative only.
	SessionID string
	StartedAt time.Time

	TotalProcesses     int
	RunningProcesses   int
	QueuedProcesses    int
	CompletedProcesses int
	FailedProcesses    int
	CancelledProcesses int

	sync.Mutex
	onChange func(Tracker)
}

// Update applies the delta.  A registered onChange callback is invoked with
// a copy of the updated tracker outside the critical section so slow
// consumers never block the engine.
func (t *Tracker) Update(d Delta) {
	if t == nil {
		return
	}
	t.Lock()
	t.TotalProcesses += d.Total
	t.RunningProcesses += d.Running
	t.QueuedProcesses += d.Queued
	t.CompletedProcesses += d.Completed
	t.FailedProcesses += d.Failed
	t.CancelledProcesses += d.Cancelled
	snapshot := *t
	cb := t.onChange
	t.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection.
func (t *Tracker) Snapshot() Tracker {
	if t == nil {
		return Tracker{}
	}
	t.Lock()
	defer t.Unlock()
	return *t
}

// OnChange registers a callback invoked after every Update.  Passing nil
// disables it; only one callback can be active.
func (t *Tracker) OnChange(cb func(Tracker)) {
	if t == nil {
		return
	}
	t.Lock()
	t.onChange = cb
	t.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker embeds a fresh tracker in a derived context and returns
// both.
func WithNewTracker(ctx context.Context, sessionID string, onChange func(Tracker)) (context.Context, *Tracker) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Tracker{
		SessionID: sessionID,
		StartedAt: time.Now(),
		onChange:  onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the tracker; ok is false when the context carries
// none.
func FromContext(ctx context.Context) (*Tracker, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Tracker)
	return tr, ok
}

// UpdateCtx applies the delta to the tracker carried by ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
