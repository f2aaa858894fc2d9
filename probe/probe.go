package probe

import "time"

// Line identifies one of the two bus lines watched by a sampler.
type Line int

const (
	SDA Line = iota // data line
	SCL             // clock line
)

func (l Line) String() string {
	if l == SDA {
		return "SDA"
	}
	return "SCL"
}

// Level is the electrical level of a line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Sampler exposes the instantaneous level of the bus lines.
// Implementations poll real hardware; they never drive the bus.
type Sampler interface {
	// Read returns the current level of the line.
	Read(line Line) Level

	// WaitLevel blocks until the line reaches level, or until timeout
	// expires. It reports whether the level was observed in time.
	WaitLevel(line Line, level Level, timeout time.Duration) bool

	// Describe returns a one-line description of the backend and its
	// line assignments.
	Describe() string

	Close() error
}
