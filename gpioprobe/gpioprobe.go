// Package gpioprobe samples the bus lines through the kernel GPIO
// interface. This is the default backend on a Raspberry Pi wired
// directly to the target bus.
package gpioprobe

import (
	"fmt"
	"time"

	"github.com/sergev/i2ctap/probe"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Default sleep between level polls. Short enough to catch bus clocks
// in the low-kHz range, long enough not to peg a core.
const defaultPoll = 5 * time.Microsecond

func init() {
	probe.Register("gpio", New)
}

// Sampler polls two GPIO pins configured as inputs.
type Sampler struct {
	sda  gpio.PinIO
	scl  gpio.PinIO
	poll time.Duration
}

// New initializes the host GPIO drivers and claims the configured pins.
// The pins are switched to inputs without changing their pull state, so
// opening the probe never disturbs the bus.
func New(cfg probe.Config) (probe.Sampler, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}

	sda := gpioreg.ByName(cfg.SDAPin)
	if sda == nil {
		return nil, fmt.Errorf("SDA pin %q not found", cfg.SDAPin)
	}
	scl := gpioreg.ByName(cfg.SCLPin)
	if scl == nil {
		return nil, fmt.Errorf("SCL pin %q not found", cfg.SCLPin)
	}

	if err := sda.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure SDA pin %s as input: %w", sda, err)
	}
	if err := scl.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure SCL pin %s as input: %w", scl, err)
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPoll
	}
	return &Sampler{sda: sda, scl: scl, poll: poll}, nil
}

func (s *Sampler) pin(line probe.Line) gpio.PinIO {
	if line == probe.SDA {
		return s.sda
	}
	return s.scl
}

// Read returns the current level of the line.
func (s *Sampler) Read(line probe.Line) probe.Level {
	return probe.Level(s.pin(line).Read() == gpio.High)
}

// WaitLevel polls the line until it reaches level or timeout expires.
func (s *Sampler) WaitLevel(line probe.Line, level probe.Level, timeout time.Duration) bool {
	pin := s.pin(line)
	want := gpio.Low
	if level == probe.High {
		want = gpio.High
	}
	deadline := time.Now().Add(timeout)
	for {
		if pin.Read() == want {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(s.poll)
	}
}

// Describe returns a one-line description of the backend.
func (s *Sampler) Describe() string {
	return fmt.Sprintf("gpio probe (SDA=%s, SCL=%s)", s.sda, s.scl)
}

// Close releases the pins. Inputs need no teardown beyond forgetting them.
func (s *Sampler) Close() error {
	return nil
}
