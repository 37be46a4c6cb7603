// Package event carries process lifecycle notifications from the registry to
// subscribers.  Events flow through a messaging queue; the dispatcher
// resolves subscriptions via the listener registry and hands the resulting
// callback descriptors to a pluggable dispatch function.
package event

import (
	"time"

	"github.com/hackwire/simcore/internal/clock"
	"github.com/hackwire/simcore/internal/idgen"
)

// Lifecycle event names published by the registry.
const (
	Created   = "created"
	Running   = "running"
	Paused    = "paused"
	Resumed   = "resumed"
	Progress  = "progress"
	Completed = "completed"
	Failed    = "failed"
	Killed    = "killed"
	Cancelled = "cancelled"
)

// Event is one notification about a tracked object.
type Event struct {
	ID        string                 `json:"id"`
	ObjectID  string                 `json:"objectId"`
	Name      string                 `json:"name"`
	CreatedAt time.Time              `json:"createdAt"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// New creates an event for the given object.
func New(objectID, name string, data map[string]interface{}) *Event {
	return &Event{
		ID:        idgen.New(),
		ObjectID:  objectID,
		Name:      name,
		CreatedAt: clock.Now(),
		Data:      data,
	}
}
