// Package usbprobe samples the bus lines through a USB bulk level
// streamer. The device uses the same sample-byte framing as the serial
// probe but delivers it over a bulk IN endpoint, which keeps up with
// fast-mode buses that overrun a CDC serial link.
package usbprobe

import (
	"fmt"
	"sync"
	"time"

	"github.com/sergev/i2ctap/probe"

	"github.com/google/gousb"
)

const (
	VendorID  = 0x1209 // Open source hardware projects
	ProductID = 0xb055

	Interface      = 0
	EndpointBulkIn = 0x81

	// Vendor control requests understood by the firmware.
	ControlRequestType = 0x40 // REQTYPE_OUT_VENDOR_DEVICE
	RequestStreamOn    = 0x01
	RequestStreamOff   = 0x02

	// Sample byte layout, shared with the serial probe firmware.
	FlagSDA   = 0x01
	FlagSCL   = 0x02
	FlagFrame = 0x80

	ReadBufferSize = 4096
	defaultPoll    = 20 * time.Microsecond
)

func init() {
	probe.Register("usb", New)
}

// Sampler tracks the most recent line levels delivered by the streamer.
type Sampler struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	intf   *gousb.Interface
	done   func()
	bulkIn *gousb.InEndpoint
	poll   time.Duration

	mu       sync.Mutex
	sda      probe.Level
	scl      probe.Level
	err      error
	finished chan struct{}
}

// New opens the streamer by VID/PID, claims its interface and starts
// the level stream.
func New(cfg probe.Config) (probe.Sampler, error) {
	ctx := gousb.NewContext()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return uint16(desc.Vendor) == VendorID && uint16(desc.Product) == ProductID
	})
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}
	if len(devs) == 0 {
		ctx.Close()
		return nil, fmt.Errorf("USB level streamer not found (VID=0x%04X PID=0x%04X)", VendorID, ProductID)
	}

	dev := devs[0]
	for i := 1; i < len(devs); i++ {
		devs[i].Close()
	}

	cfg1, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("failed to get config 1: %w", err)
	}

	intf, err := cfg1.Interface(Interface, 0)
	if err != nil {
		cfg1.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("failed to claim interface %d: %w", Interface, err)
	}
	done := func() {
		intf.Close()
		cfg1.Close()
	}

	bulkIn, err := intf.InEndpoint(EndpointBulkIn)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("failed to open bulk IN endpoint 0x%02X: %w", EndpointBulkIn, err)
	}

	if _, err := dev.Control(ControlRequestType, RequestStreamOn, 0, 0, nil); err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("failed to start level stream: %w", err)
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPoll
	}
	s := &Sampler{
		ctx:    ctx,
		dev:    dev,
		intf:   intf,
		done:   done,
		bulkIn: bulkIn,
		poll:   poll,
		// The bus idles with both lines released high.
		sda:      probe.High,
		scl:      probe.High,
		finished: make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// readLoop drains the bulk endpoint and keeps the cached levels fresh.
func (s *Sampler) readLoop() {
	defer close(s.finished)
	buf := make([]byte, ReadBufferSize)
	for {
		n, err := s.bulkIn.Read(buf)
		if err != nil {
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.mu.Unlock()
			return
		}
		var sda, scl probe.Level
		seen := false
		for _, b := range buf[:n] {
			if b&FlagFrame == 0 {
				continue
			}
			sda = b&FlagSDA != 0
			scl = b&FlagSCL != 0
			seen = true
		}
		if seen {
			s.mu.Lock()
			s.sda, s.scl = sda, scl
			s.mu.Unlock()
		}
	}
}

// Read returns the most recently streamed level of the line.
func (s *Sampler) Read(line probe.Line) probe.Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	if line == probe.SDA {
		return s.sda
	}
	return s.scl
}

// WaitLevel polls the cached levels until the line reaches level or
// timeout expires.
func (s *Sampler) WaitLevel(line probe.Line, level probe.Level, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if s.Read(line) == level {
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
	return fmt.Sprintf("usb level streamer (VID=0x%04X PID=0x%04X)", VendorID, ProductID)
}

// Close stops the stream and releases the device.
func (s *Sampler) Close() error {
	// Stopping the stream makes the pending bulk read fail, which
	// terminates readLoop.
	_, ctlErr := s.dev.Control(ControlRequestType, RequestStreamOff, 0, 0, nil)
	s.done()
	<-s.finished
	devErr := s.dev.Close()
	ctxErr := s.ctx.Close()
	if ctlErr != nil {
		return fmt.Errorf("failed to stop level stream: %w", ctlErr)
	}
	if devErr != nil {
		return fmt.Errorf("failed to close USB device: %w", devErr)
	}
	if ctxErr != nil {
		return fmt.Errorf("failed to close USB context: %w", ctxErr)
	}
	return nil
}
