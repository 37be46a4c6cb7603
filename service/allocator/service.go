package allocator

import (
	"sync"

	"github.com/hackwire/simcore/errors"
	"github.com/hackwire/simcore/logging"
	"github.com/hackwire/simcore/model/resource"
)

// Allocate grants capacity for a request against the supplied caps and
// current usage.  When the full request cannot be satisfied but capacity
// remains on every requested dimension, the grant is clamped to what is
// left; it fails only when a requested dimension has exactly zero remaining
// capacity.  The invariant used + granted <= caps holds per dimension.
func Allocate(requested, caps, used resource.Units) (resource.Units, error) {
	available := caps.Sub(used)
	if requested.CPU > 0 && available.CPU == 0 {
		return resource.Units{}, errors.NewAllocationError("no cpu capacity left", nil)
	}
	if requested.RAM > 0 && available.RAM == 0 {
		return resource.Units{}, errors.NewAllocationError("no ram capacity left", nil)
	}
	return requested.Min(available), nil
}

// Deallocate returns previously granted capacity, yielding the new
// availability.  The amount must be what was actually granted, not what was
// requested; passing stale or duplicate amounts is safe because the result
// saturates at the caps.
func Deallocate(granted, caps, available resource.Units) resource.Units {
	return available.Add(granted).Cap(caps)
}

type hostState struct {
	caps resource.Units
	used resource.Units
}

type grant struct {
	serverID string
	units    resource.Units
}

// Service keeps the per-server usage ledger and per-process grants, making
// reserve and release idempotent by process id.
type Service struct {
	mu     sync.Mutex
	hosts  map[string]*hostState
	grants map[string]grant
	logger logging.Logger
}

// Option customises the allocator service.
type Option func(*Service)

// WithLogger overrides the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates an empty allocator service.
func New(options ...Option) *Service {
	ret := &Service{
		hosts:  make(map[string]*hostState),
		grants: make(map[string]grant),
		logger: logging.Nop(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// RegisterHost declares a server's hardware caps.  Re-registering replaces
// the caps but keeps current usage.
func (s *Service) RegisterHost(serverID string, caps resource.Units) error {
	if serverID == "" {
		return errors.NewValidationError("server id is required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if host, ok := s.hosts[serverID]; ok {
		host.caps = caps
		return nil
	}
	s.hosts[serverID] = &hostState{caps: caps}
	return nil
}

// Usage returns (caps, used, available) for a server.
func (s *Service) Usage(serverID string) (resource.Units, resource.Units, resource.Units, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	host, ok := s.hosts[serverID]
	if !ok {
		return resource.Units{}, resource.Units{}, resource.Units{}, errors.NewNotFoundError("unknown server", nil).WithContext("serverID", serverID)
	}
	return host.caps, host.used, host.caps.Sub(host.used), nil
}

// Reserve admits a process on a server, requiring the full cost to fit.  A
// repeated reserve for the same process id returns the existing grant
// unchanged.
func (s *Service) Reserve(processID, serverID string, cost resource.Units) (resource.Units, error) {
	if processID == "" {
		return resource.Units{}, errors.NewValidationError("process id is required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.grants[processID]; ok {
		return existing.units, nil
	}
	host, ok := s.hosts[serverID]
	if !ok {
		return resource.Units{}, errors.NewNotFoundError("unknown server", nil).WithContext("serverID", serverID)
	}

	granted, err := Allocate(cost, host.caps, host.used)
	if err != nil {
		return resource.Units{}, err
	}
	if !cost.Fits(granted) {
		return resource.Units{}, errors.NewAllocationError("insufficient capacity", nil).
			WithContext("serverID", serverID).
			WithContext("requested", cost).
			WithContext("available", host.caps.Sub(host.used))
	}

	host.used = host.used.Add(granted).Cap(host.caps)
	s.grants[processID] = grant{serverID: serverID, units: granted}
	s.logger.Debugf("reserved %+v on %s for process %s", granted, serverID, processID)
	return granted, nil
}

// Release frees a process' grant.  Unknown process ids are a no-op so that
// repeated releases are safe.
func (s *Service) Release(processID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[processID]
	if !ok {
		return
	}
	delete(s.grants, processID)
	if host, ok := s.hosts[g.serverID]; ok {
		host.used = host.used.Sub(g.units)
	}
}

// Granted returns the grant recorded for a process, if any.
func (s *Service) Granted(processID string) (resource.Units, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[processID]
	return g.units, ok
}
