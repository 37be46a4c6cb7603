// Package catalog loads the static game content definitions: per-type
// process costs and durations plus host server capacities, declared in YAML.
package catalog

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"gopkg.in/yaml.v3"

	"github.com/hackwire/simcore/errors"
	"github.com/hackwire/simcore/model/process"
	"github.com/hackwire/simcore/model/resource"
	"github.com/hackwire/simcore/service/meta"
)

// Duration decodes YAML values like "45s" or plain integer seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if seconds, err := strconv.Atoi(node.Value); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return errors.NewValidationError("invalid duration", err).WithContext("value", node.Value)
	}
	*d = Duration(parsed)
	return nil
}

// Value returns the wrapped time.Duration.
func (d Duration) Value() time.Duration {
	return time.Duration(d)
}

// ProcessSpec declares the admission cost and default runtime of one
// process type.
type ProcessSpec struct {
	Type     string   `yaml:"type" json:"type"`
	CPU      uint64   `yaml:"cpu" json:"cpu"`
	RAM      uint64   `yaml:"ram" json:"ram"`
	Duration Duration `yaml:"duration" json:"duration"`
	Priority int      `yaml:"priority" json:"priority"`
}

// Cost returns the capacity the process type asks for.
func (s ProcessSpec) Cost() resource.Units {
	return resource.New(s.CPU, s.RAM)
}

// ServerSpec declares one host and its total capacity.
type ServerSpec struct {
	ID  string `yaml:"id" json:"id"`
	CPU uint64 `yaml:"cpu" json:"cpu"`
	RAM uint64 `yaml:"ram" json:"ram"`
}

// Capacity returns the server's total capacity.
func (s ServerSpec) Capacity() resource.Units {
	return resource.New(s.CPU, s.RAM)
}

// Document is the on-disk catalog layout.
type Document struct {
	Processes []ProcessSpec `yaml:"processes" json:"processes"`
	Servers   []ServerSpec  `yaml:"servers" json:"servers"`
}

// Service holds the loaded catalog.
type Service struct {
	meta *meta.Service

	mu        sync.RWMutex
	processes map[process.Type]ProcessSpec
	servers   map[string]ServerSpec
}

// New creates a catalog rooted at baseURL.  Storage options are passed
// through to the underlying loader.
func New(baseURL string, options ...storage.Option) *Service {
	return &Service{
		meta:      meta.New(afs.New(), baseURL, options...),
		processes: make(map[process.Type]ProcessSpec),
		servers:   make(map[string]ServerSpec),
	}
}

// Load reads the catalog document at URL and replaces the current content.
func (s *Service) Load(ctx context.Context, URL string) error {
	document := &Document{}
	if err := s.meta.Load(ctx, URL, document); err != nil {
		return errors.NewInternalError("failed to load catalog", err).WithContext("url", URL)
	}
	processes := make(map[process.Type]ProcessSpec, len(document.Processes))
	for _, spec := range document.Processes {
		if spec.Type == "" {
			return errors.NewValidationError("catalog process spec has no type", nil).WithContext("url", URL)
		}
		processes[process.Type(spec.Type)] = spec
	}
	servers := make(map[string]ServerSpec, len(document.Servers))
	for _, spec := range document.Servers {
		if spec.ID == "" {
			return errors.NewValidationError("catalog server spec has no id", nil).WithContext("url", URL)
		}
		servers[spec.ID] = spec
	}
	s.mu.Lock()
	s.processes = processes
	s.servers = servers
	s.mu.Unlock()
	return nil
}

// ProcessSpec returns the declaration for a process type.
func (s *Service) ProcessSpec(processType process.Type) (ProcessSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	spec, ok := s.processes[processType]
	if !ok {
		return ProcessSpec{}, errors.NewNotFoundError("unknown process type", nil).
			WithContext("type", string(processType))
	}
	return spec, nil
}

// ServerSpec returns the declaration for a server.
func (s *Service) ServerSpec(serverID string) (ServerSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	spec, ok := s.servers[serverID]
	if !ok {
		return ServerSpec{}, errors.NewNotFoundError("unknown server", nil).
			WithContext("id", serverID)
	}
	return spec, nil
}

// Servers returns all declared servers.
func (s *Service) Servers() []ServerSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ServerSpec, 0, len(s.servers))
	for _, spec := range s.servers {
		out = append(out, spec)
	}
	return out
}

// ProcessTypes returns all declared process types.
func (s *Service) ProcessTypes() []process.Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]process.Type, 0, len(s.processes))
	for name := range s.processes {
		out = append(out, name)
	}
	return out
}
