// Package replay re-transmits captured or pre-recorded write
// transactions onto the live bus, preserving their original timing.
package replay

import (
	"fmt"
	"time"

	"github.com/sergev/i2ctap/diffengine"
	"github.com/sergev/i2ctap/i2cbus"
	"github.com/sergev/i2ctap/macro"
	"github.com/sergev/i2ctap/sniffer"

	"github.com/hashicorp/go-hclog"
)

// Replayer transmits write transactions through the bus-transmission
// layer. Replay is best-effort and sequential: a failed write is logged
// and the remaining sequence continues; only a failure to open the bus
// aborts a replay.
type Replayer struct {
	Opener i2cbus.Opener
	Logger hclog.Logger

	// Sleep is the wait primitive, replaceable in tests.
	// Nil means time.Sleep.
	Sleep func(time.Duration)
}

func (r *Replayer) logger() hclog.Logger {
	if r.Logger == nil {
		return hclog.NewNullLogger()
	}
	return r.Logger
}

func (r *Replayer) sleep(d time.Duration) {
	if r.Sleep != nil {
		r.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Replay transmits the write transactions of a diff result in order.
// Every entry's DelayBefore is waited out, reads included, so the
// absolute time offsets of the original capture are preserved even
// across entries that are skipped.
func (r *Replayer) Replay(entries []diffengine.Entry) error {
	logger := r.logger()
	bus, err := r.Opener.Open()
	if err != nil {
		return fmt.Errorf("replay aborted: %w", err)
	}
	defer bus.Close()

	for i, e := range entries {
		if e.DelayBefore > 0 {
			r.sleep(e.DelayBefore)
		}
		if e.Tx.Key.Dir != sniffer.Write {
			logger.Debug("skipping read transaction", "index", i, "tx", e.Tx.Key.String())
			continue
		}
		if err := bus.Write(e.Tx.Key.Addr, e.Tx.Key.Payload()); err != nil {
			logger.Warn("replay write failed", "index", i, "tx", e.Tx.Key.String(), "err", err)
			continue
		}
		logger.Info("replayed", "index", i, "tx", e.Tx.Key.String(), "delay_before", e.DelayBefore)
	}
	return nil
}

// SendMacro transmits a pre-recorded macro. Each step's delay applies
// after its write, matching the macro timing convention.
func (r *Replayer) SendMacro(m macro.Macro) error {
	logger := r.logger()
	bus, err := r.Opener.Open()
	if err != nil {
		return fmt.Errorf("macro %q aborted: %w", m.Name, err)
	}
	defer bus.Close()

	logger.Info("sending macro", "name", m.Name, "steps", len(m.Steps))
	for i, step := range m.Steps {
		if err := bus.Write(step.Addr, step.Data); err != nil {
			logger.Warn("macro write failed", "name", m.Name, "step", i, "err", err)
		}
		if step.DelayAfter > 0 {
			r.sleep(step.DelayAfter)
		}
	}
	return nil
}
