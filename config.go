package simcore

import (
	"fmt"
	"time"

	"github.com/hackwire/simcore/service/messaging/memory"
	"github.com/hackwire/simcore/service/registry"
)

// Config is a serialisable representation of the engine configuration.  The
// zero value is usable; nested fields inherit their package defaults.
type Config struct {
	Registry   registry.Config  `json:"registry" yaml:"registry"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Events     memory.Config    `json:"events" yaml:"events"`
}

// SimulationConfig controls how the runtime advances processes.
type SimulationConfig struct {
	// StepInterval is how often running behaviors are stepped.
	StepInterval time.Duration `json:"stepInterval" yaml:"stepInterval"`
	// QueueWhenBusy queues admissions that do not fit instead of
	// rejecting them.
	QueueWhenBusy bool `json:"queueWhenBusy" yaml:"queueWhenBusy"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Registry: registry.DefaultConfig(),
		Simulation: SimulationConfig{
			StepInterval:  time.Second,
			QueueWhenBusy: true,
		},
		Events: memory.DefaultConfig(),
	}
}

// Validate returns an error describing invalid settings, or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Registry.TickInterval <= 0 {
		return fmt.Errorf("registry.tickInterval must be > 0")
	}
	if c.Simulation.StepInterval <= 0 {
		return fmt.Errorf("simulation.stepInterval must be > 0")
	}
	if c.Events.Buffer <= 0 {
		return fmt.Errorf("events.buffer must be > 0")
	}
	return nil
}
