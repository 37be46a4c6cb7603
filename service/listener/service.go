// Package listener implements the event subscription registry.  Listeners
// subscribe to an (object, event) pair; triggering resolves the matching
// callback descriptors without invoking anything, so the registry stays
// independent of what calling a callback means to the host application.
package listener

import (
	"sync"

	"github.com/hackwire/simcore/errors"
	"github.com/hackwire/simcore/internal/idgen"
)

// Callback describes where a triggered event should be delivered.
type Callback struct {
	Module string                 `json:"module"`
	Method string                 `json:"method"`
	Meta   map[string]interface{} `json:"meta,omitempty"`
}

// Listener is an (object, event) subscription.
type Listener struct {
	ID       string   `json:"id"`
	ObjectID string   `json:"objectId"`
	Event    string   `json:"event"`
	Callback Callback `json:"callback"`
}

// CallbackInfo is a resolved callback: the listener's descriptor with
// event-time data merged over its stored metadata.  The stored listener is
// never mutated.
type CallbackInfo struct {
	ListenerID string
	ObjectID   string
	Event      string
	Module     string
	Method     string
	Meta       map[string]interface{}
}

type bucketKey struct {
	objectID string
	event    string
}

// Service is the in-memory listener registry.  Both indices are kept
// consistent on every mutation; empty composite buckets are pruned.
type Service struct {
	mu     sync.RWMutex
	byID   map[string]*Listener
	byPair map[bucketKey][]*Listener
}

// New creates an empty registry.
func New() *Service {
	return &Service{
		byID:   make(map[string]*Listener),
		byPair: make(map[bucketKey][]*Listener),
	}
}

// Register inserts the listener into both indices and returns its id.
func (s *Service) Register(aListener Listener) (string, error) {
	if aListener.ObjectID == "" {
		return "", errors.NewValidationError("listener object id is required", nil)
	}
	if aListener.Event == "" {
		return "", errors.NewValidationError("listener event is required", nil)
	}
	if aListener.Callback.Module == "" || aListener.Callback.Method == "" {
		return "", errors.NewValidationError("listener callback module and method are required", nil)
	}
	if aListener.ID == "" {
		aListener.ID = idgen.New()
	}

	stored := aListener
	key := bucketKey{objectID: stored.ObjectID, event: stored.Event}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[stored.ID]; ok {
		return "", errors.NewConflictError("listener id already registered", nil).WithContext("id", stored.ID)
	}
	s.byID[stored.ID] = &stored
	s.byPair[key] = append(s.byPair[key], &stored)
	return stored.ID, nil
}

// Unregister removes the listener from both indices, pruning its composite
// bucket when it becomes empty.
func (s *Service) Unregister(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[id]
	if !ok {
		return errors.NewNotFoundError("unknown listener", nil).WithContext("id", id)
	}
	delete(s.byID, id)

	key := bucketKey{objectID: stored.ObjectID, event: stored.Event}
	bucket := s.byPair[key]
	for i, candidate := range bucket {
		if candidate.ID == id {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(s.byPair, key)
	} else {
		s.byPair[key] = bucket
	}
	return nil
}

// Listeners returns copies of all listeners registered for the pair.
func (s *Service) Listeners(objectID, event string) []Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.byPair[bucketKey{objectID: objectID, event: event}]
	out := make([]Listener, 0, len(bucket))
	for _, stored := range bucket {
		out = append(out, *stored)
	}
	return out
}

// Get returns a copy of the listener with the given id.
func (s *Service) Get(id string) (Listener, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.byID[id]
	if !ok {
		return Listener{}, false
	}
	return *stored, true
}

// Trigger resolves the callbacks subscribed to (objectID, event), merging
// the event data over each listener's stored metadata.  It does not invoke
// anything; dispatch is the caller's responsibility.
func (s *Service) Trigger(objectID, event string, data map[string]interface{}) []CallbackInfo {
	s.mu.RLock()
	bucket := s.byPair[bucketKey{objectID: objectID, event: event}]
	matched := make([]*Listener, len(bucket))
	copy(matched, bucket)
	s.mu.RUnlock()

	out := make([]CallbackInfo, 0, len(matched))
	for _, stored := range matched {
		meta := make(map[string]interface{}, len(stored.Callback.Meta)+len(data))
		for k, v := range stored.Callback.Meta {
			meta[k] = v
		}
		for k, v := range data {
			meta[k] = v
		}
		out = append(out, CallbackInfo{
			ListenerID: stored.ID,
			ObjectID:   stored.ObjectID,
			Event:      stored.Event,
			Module:     stored.Callback.Module,
			Method:     stored.Callback.Method,
			Meta:       meta,
		})
	}
	return out
}
