package sniffer

import (
	"errors"
	"time"

	"github.com/sergev/i2ctap/probe"
	"github.com/sergev/i2ctap/txlog"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-uuid"
)

// Session tuning defaults.
const (
	// DefaultEdgeTimeout bounds every clock-edge wait inside a
	// transaction. It must comfortably exceed one clock period of the
	// slowest bus of interest, and it caps how long a hung transaction
	// can stall the session.
	DefaultEdgeTimeout = 100 * time.Millisecond

	// DefaultIdlePoll is the sleep between start-condition checks on an
	// idle bus.
	DefaultIdlePoll = 500 * time.Microsecond

	// DefaultPausePoll is the sleep between pause-signal polls while
	// paused. Worst-case pause observation latency is one framed
	// transaction plus this interval; the coordinator's settle time
	// must exceed that comfortably.
	DefaultPausePoll = 5 * time.Millisecond
)

// Session runs the transaction framer over a capture window. The zero
// value is not usable; Sampler is required, everything else optional.
type Session struct {
	Sampler probe.Sampler
	Log     *txlog.Writer // framed-event log, nil = no log
	Logger  hclog.Logger  // diagnostics, nil = discard

	// Pause makes the session stop consuming the bus while a writer
	// owns it. It is polled only between transactions, so an in-flight
	// transaction is never truncated by a pause.
	Pause *Signal

	// Stop terminates the run early, returning the partial capture.
	Stop *Signal

	EdgeTimeout time.Duration
	IdlePoll    time.Duration
	PausePoll   time.Duration
}

// Run captures transactions until duration elapses. A zero duration
// runs until the stop signal is asserted. Run returns the accumulated
// capture in every case; the error is ErrCancelled when the stop signal
// ended the run.
//
// Decode timeouts inside a transaction are counted and logged but never
// end the run. A transaction still in flight when the duration elapses
// is discarded.
func (s *Session) Run(duration time.Duration) (*Capture, error) {
	logger := s.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, err
	}

	capture := &Capture{ID: id, Start: time.Now()}
	var deadline time.Time
	if duration > 0 {
		deadline = capture.Start.Add(duration)
	}

	edgeTimeout := s.EdgeTimeout
	if edgeTimeout <= 0 {
		edgeTimeout = DefaultEdgeTimeout
	}
	idlePoll := s.IdlePoll
	if idlePoll <= 0 {
		idlePoll = DefaultIdlePoll
	}
	pausePoll := s.PausePoll
	if pausePoll <= 0 {
		pausePoll = DefaultPausePoll
	}

	fr := &framer{
		dec:     &decoder{sampler: s.Sampler, edgeTimeout: edgeTimeout},
		sampler: s.Sampler,
		tlog:    s.Log,
	}

	logger.Debug("capture started", "id", id, "duration", duration)
	for {
		if s.Stop.Set() {
			logger.Debug("capture stopped", "id", id, "transactions", len(capture.Transactions))
			return capture, ErrCancelled
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			logger.Debug("capture window elapsed", "id", id, "transactions", len(capture.Transactions))
			return capture, nil
		}
		if s.Pause.Set() {
			// A writer owns the bus. Do not touch the sampler until
			// the signal clears.
			time.Sleep(pausePoll)
			continue
		}
		if !fr.startSeen() {
			time.Sleep(idlePoll)
			continue
		}

		tx, err := fr.frame(deadline)
		switch {
		case err == nil:
			capture.Transactions = append(capture.Transactions, *tx)
		case errors.Is(err, ErrDecodeTimeout):
			capture.DecodeTimeouts++
			s.Log.Notef("byte read timeout within transaction: %v", err)
			logger.Warn("transaction abandoned", "err", err)
		case errors.Is(err, errWindowClosed):
			logger.Debug("capture window elapsed mid-transaction, discarding",
				"id", id, "transactions", len(capture.Transactions))
			return capture, nil
		default:
			// Unexpected framing error: treat like a decode fault and
			// keep scanning.
			capture.DecodeTimeouts++
			logger.Error("framing error", "err", err)
		}
	}
}
