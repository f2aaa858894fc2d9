// Package macro models ordered, timed write sequences that can be sent
// to the bus without a capture: either hand-written in the config file
// or learned from a differential capture.
package macro

import (
	"fmt"
	"strings"
	"time"

	"github.com/sergev/i2ctap/diffengine"
	"github.com/sergev/i2ctap/sniffer"
)

// Step is one write of a macro. The delay applies AFTER the write,
// the opposite convention from diff-based replay, where delays apply
// before each transaction. Both conventions are kept, named explicitly.
type Step struct {
	Addr       byte
	Data       []byte
	DelayAfter time.Duration
}

func (s Step) String() string {
	hex := make([]string, len(s.Data))
	for i, b := range s.Data {
		hex[i] = fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("0x%02X [%s] +%v", s.Addr, strings.Join(hex, " "), s.DelayAfter)
}

// Macro is an ordered list of writes replayed as one unit under a
// single pause/resume of the sniffer.
type Macro struct {
	Name  string
	Steps []Step
}

// FromDiff converts a learned diff result into a macro. Only write
// transactions become steps; the gaps contributed by skipped reads (and
// by the writes themselves) accumulate onto the preceding step's
// DelayAfter, so the absolute offsets between transmitted writes match
// the original capture. A gap before the first write is dropped, since
// a macro starts immediately.
func FromDiff(name string, entries []diffengine.Entry) Macro {
	m := Macro{Name: name}
	for _, e := range entries {
		if len(m.Steps) > 0 {
			m.Steps[len(m.Steps)-1].DelayAfter += e.DelayBefore
		}
		if e.Tx.Key.Dir != sniffer.Write {
			continue
		}
		m.Steps = append(m.Steps, Step{
			Addr: e.Tx.Key.Addr,
			Data: e.Tx.Key.Payload(),
		})
	}
	return m
}
