package sniffer

import (
	"errors"
	"fmt"
	"time"

	"github.com/sergev/i2ctap/probe"
)

// ErrDecodeTimeout reports that an expected clock edge did not arrive
// in time: the bus hung mid-transaction or the decoder lost sync. It
// aborts the current transaction only, never the capture session.
var ErrDecodeTimeout = errors.New("decode timeout")

// ErrCancelled reports that the stop signal ended a capture run. The
// partial capture accumulated so far is still returned.
var ErrCancelled = errors.New("capture stopped")

// decoder turns line levels into protocol bits and bytes. It is only
// entered once a start condition has been seen; on an idle bus it is
// never polled, so its timeouts fire only on a genuine hang or desync.
type decoder struct {
	sampler     probe.Sampler
	edgeTimeout time.Duration
}

// readBit reads one bit: wait for SCL high, sample SDA, wait for SCL
// low again so the next call starts from a clean clock state.
func (d *decoder) readBit() (byte, error) {
	if !d.sampler.WaitLevel(probe.SCL, probe.High, d.edgeTimeout) {
		return 0, fmt.Errorf("%w: SCL rising edge not seen within %v", ErrDecodeTimeout, d.edgeTimeout)
	}
	var bit byte
	if d.sampler.Read(probe.SDA) == probe.High {
		bit = 1
	}
	if !d.sampler.WaitLevel(probe.SCL, probe.Low, d.edgeTimeout) {
		return 0, fmt.Errorf("%w: SCL falling edge not seen within %v", ErrDecodeTimeout, d.edgeTimeout)
	}
	return bit, nil
}

// readByte reads 8 bits MSB first, then the acknowledge bit driven
// during the ninth clock. SDA held low there means acknowledged.
func (d *decoder) readByte() (value byte, acked bool, err error) {
	for i := 0; i < 8; i++ {
		bit, err := d.readBit()
		if err != nil {
			return 0, false, err
		}
		value = value<<1 | bit
	}
	ackBit, err := d.readBit()
	if err != nil {
		return 0, false, err
	}
	return value, ackBit == 0, nil
}
