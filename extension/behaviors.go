package extension

import (
	"sync"

	"github.com/viant/x"

	"github.com/hackwire/simcore/model/types"
)

// Behaviors holds the process behaviors available to the executor, keyed by
// process type name.
type Behaviors struct {
	types    *Types
	services map[string]types.Service
	mux      sync.RWMutex
}

func (b *Behaviors) Types() *Types {
	return b.types
}

// Lookup returns a behavior by process type name, or nil.
func (b *Behaviors) Lookup(name string) types.Service {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return b.services[name]
}

// Register registers a behavior service.
func (b *Behaviors) Register(service types.Service) {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.services[service.Name()] = service
}

// Registered returns the names of all registered behaviors.
func (b *Behaviors) Registered() []string {
	b.mux.RLock()
	defer b.mux.RUnlock()
	out := make([]string, 0, len(b.services))
	for name := range b.services {
		out = append(out, name)
	}
	return out
}

// NewBehaviors creates a behavior registry, optionally pre-registering data
// types.
func NewBehaviors(goTypes ...*x.Type) *Behaviors {
	ret := &Behaviors{
		types:    NewTypes(),
		services: make(map[string]types.Service),
	}
	for _, t := range goTypes {
		if t != nil {
			ret.types.Register(t)
		}
	}
	return ret
}
