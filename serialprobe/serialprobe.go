// Package serialprobe samples the bus lines through an external
// microcontroller probe attached over USB serial. The probe firmware
// streams one status byte per line change, so the Pi does not need to
// be wired to the target bus directly.
package serialprobe

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sergev/i2ctap/probe"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	VendorID  = 0x2e8a // Raspberry Pi Ltd
	ProductID = 0x000a // Pico SDK CDC device

	BaudRate = 921600

	// Sample byte layout. The frame bit distinguishes samples from
	// firmware banner text emitted at startup.
	FlagSDA   = 0x01
	FlagSCL   = 0x02
	FlagFrame = 0x80

	// Command sent to the firmware to start the level stream.
	cmdStream = 'S'

	defaultPoll = 20 * time.Microsecond
)

func init() {
	probe.Register("serial", New)
}

// Sampler tracks the most recent line levels reported by the probe.
type Sampler struct {
	port     serial.Port
	portName string
	poll     time.Duration

	mu   sync.Mutex
	sda  probe.Level
	scl  probe.Level
	err  error // first read error, reported on Close
	done chan struct{}
}

// New opens the probe's serial port and starts the level stream.
// With an empty port name the probe is located by its USB VID/PID,
// the same way the stock Pico firmware enumerates.
func New(cfg probe.Config) (probe.Sampler, error) {
	portName := cfg.Port
	if portName == "" {
		var err error
		portName, err = findPort()
		if err != nil {
			return nil, err
		}
	}

	mode := &serial.Mode{BaudRate: BaudRate}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if _, err := port.Write([]byte{cmdStream}); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to start level stream on %s: %w", portName, err)
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPoll
	}
	s := &Sampler{
		port:     port,
		portName: portName,
		poll:     poll,
		// The bus idles with both lines released high.
		sda:  probe.High,
		scl:  probe.High,
		done: make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// findPort scans the serial ports for the probe's VID/PID.
func findPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("failed to list serial ports: %w", err)
	}
	for _, port := range ports {
		vid, err := strconv.ParseUint(port.VID, 16, 16)
		if err != nil {
			continue
		}
		pid, err := strconv.ParseUint(port.PID, 16, 16)
		if err != nil {
			continue
		}
		if uint16(vid) == VendorID && uint16(pid) == ProductID {
			return port.Name, nil
		}
	}
	return "", fmt.Errorf("serial probe not found (VID=0x%04X PID=0x%04X)", VendorID, ProductID)
}

// readLoop consumes the sample stream and keeps the cached levels fresh.
func (s *Sampler) readLoop() {
	defer close(s.done)
	buf := make([]byte, 512)
	for {
		n, err := s.port.Read(buf)
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
	return fmt.Sprintf("serial level probe on %s", s.portName)
}

// Close closes the port. The read loop exits on the resulting read
// error, which is normal shutdown, not a failure.
func (s *Sampler) Close() error {
	err := s.port.Close()
	<-s.done
	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", s.portName, err)
	}
	return nil
}
