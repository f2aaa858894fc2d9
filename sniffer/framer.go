package sniffer

import (
	"errors"
	"time"

	"github.com/sergev/i2ctap/probe"
	"github.com/sergev/i2ctap/txlog"
)

// errWindowClosed aborts a transaction still in flight when the capture
// window deadline passes. The partial transaction is discarded.
var errWindowClosed = errors.New("capture window closed mid-transaction")

// framer layers the start/stop state machine on the bit decoder and
// emits one Transaction per framed exchange.
type framer struct {
	dec     *decoder
	sampler probe.Sampler
	tlog    *txlog.Writer
}

// startSeen reports whether the bus currently shows a start condition:
// SDA pulled low while SCL is high. A cheap level check so the session
// loop stays responsive to pause and stop signals.
func (f *framer) startSeen() bool {
	return f.sampler.Read(probe.SCL) == probe.High &&
		f.sampler.Read(probe.SDA) == probe.Low
}

// stopSeen reports whether the bus currently shows a stop condition:
// both lines released high.
func (f *framer) stopSeen() bool {
	return f.sampler.Read(probe.SCL) == probe.High &&
		f.sampler.Read(probe.SDA) == probe.High
}

// frame reads one transaction after startSeen returned true.
// A zero deadline means the capture window is unbounded.
//
// Timeouts abort the transaction without emitting a record: the header
// byte and any partial payload are discarded and the caller resumes
// scanning for the next start condition.
func (f *framer) frame(deadline time.Time) (*Transaction, error) {
	start := time.Now()
	f.tlog.Start(start)

	header, headerAck, err := f.dec.readByte()
	if err != nil {
		return nil, err
	}
	addr := header >> 1
	dir := Direction(header & 1)
	f.tlog.Header(time.Now(), addr, dir == Write, headerAck)

	var payload []byte
	var acks []bool
	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, errWindowClosed
		}
		if f.stopSeen() {
			f.tlog.Stop(time.Now())
			return &Transaction{
				Key:       NewKey(addr, dir, payload),
				Start:     start,
				HeaderAck: headerAck,
				Acks:      acks,
			}, nil
		}
		b, ack, err := f.dec.readByte()
		if err != nil {
			return nil, err
		}
		payload = append(payload, b)
		acks = append(acks, ack)
		f.tlog.Data(time.Now(), b, ack)
	}
}
