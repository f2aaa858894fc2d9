package probe

import (
	"fmt"
	"sort"
	"time"
)

// Config carries the line assignments and tuning for a sampler backend.
// Not every backend uses every field.
type Config struct {
	SDAPin string // GPIO pin name for SDA, e.g. "GPIO2"
	SCLPin string // GPIO pin name for SCL, e.g. "GPIO3"
	Port   string // serial port name, empty = autodetect by VID/PID

	// PollInterval is the sleep between level polls inside WaitLevel.
	// Zero selects the backend default.
	PollInterval time.Duration
}

// Factory creates a sampler backend from a configuration.
type Factory func(cfg Config) (Sampler, error)

var registered = map[string]Factory{}

// Register registers a sampler backend under a name.
// Backends call this from init().
func Register(name string, factory Factory) {
	registered[name] = factory
}

// Open creates the named sampler backend.
func Open(name string, cfg Config) (Sampler, error) {
	factory, ok := registered[name]
	if !ok {
		return nil, fmt.Errorf("unknown probe backend %q (available: %v)", name, Names())
	}
	return factory(cfg)
}

// Names returns the registered backend names, sorted.
func Names() []string {
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
