// Package i2cbus is the write side of the tool: raw address+payload
// transmissions through the kernel I2C device. The sniffer never uses
// it; only the replayer does, under the coordinator's pause discipline.
package i2cbus

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Bus transmits raw writes to bus slaves.
type Bus interface {
	// Write sends payload to the 7-bit slave address in one
	// start/stop framed transaction.
	Write(addr byte, payload []byte) error
	Close() error
}

// Opener opens the transmission side of a bus. Replay aborts entirely
// when Open fails; individual Write errors are not fatal.
type Opener interface {
	Open() (Bus, error)
}

// Dev opens /dev/i2c-N through the host I2C driver.
type Dev struct {
	Number int
}

// Open initializes the host drivers and opens the numbered bus.
func (d Dev) Open() (Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}
	bus, err := i2creg.Open(fmt.Sprintf("/dev/i2c-%d", d.Number))
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %d: %w", d.Number, err)
	}
	return &dev{bus: bus, number: d.Number}, nil
}

type dev struct {
	bus    i2c.BusCloser
	number int
}

func (d *dev) Write(addr byte, payload []byte) error {
	if err := d.bus.Tx(uint16(addr), payload, nil); err != nil {
		return fmt.Errorf("write to 0x%02X on bus %d: %w", addr, d.number, err)
	}
	return nil
}

func (d *dev) Close() error {
	return d.bus.Close()
}
