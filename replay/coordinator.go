package replay

import (
	"time"

	"github.com/sergev/i2ctap/sniffer"
)

// DefaultSettle is how long the coordinator waits after asserting or
// before clearing the pause signal. It must exceed the capture
// session's worst-case pause observation latency, or the writer could
// start transmitting while the sniffer is still mid-decode and corrupt
// both.
const DefaultSettle = 25 * time.Millisecond

// Coordinator serializes access to the shared physical bus between the
// capture session and any writer. There is no lock on an electrical
// bus; mutual exclusion rests entirely on the session honoring the
// pause signal.
type Coordinator struct {
	Pause  *sniffer.Signal
	Settle time.Duration

	// Sleep is replaceable in tests. Nil means time.Sleep.
	Sleep func(time.Duration)
}

// WithBus runs fn with exclusive use of the bus: pause the session,
// wait for it to settle, run fn, and resume the session whether or not
// fn failed.
func (c *Coordinator) WithBus(fn func() error) error {
	settle := c.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	sleep := c.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	c.Pause.Assert()
	sleep(settle)
	err := fn()
	sleep(settle)
	c.Pause.Clear()
	return err
}
