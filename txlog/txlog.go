// Package txlog maintains the append-only, human-readable transaction
// log: one line per framed bus event, timestamped to the millisecond.
// The format is fixed because the offline comparison tools parse it.
package txlog

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const stampFormat = "15:04:05.000"

// Writer appends framed bus events to the transaction log. All methods
// are safe on a nil *Writer, which logs nothing, and safe for use from
// multiple goroutines.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	echo bool
}

// Create opens the log file for appending, creating it if needed.
// With echo set, every line is also printed to stdout.
func Create(path string, echo bool) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open transaction log %s: %w", path, err)
	}
	return &Writer{file: file, echo: echo}, nil
}

func (w *Writer) line(t time.Time, msg string) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s := fmt.Sprintf("[%s] %s\n", t.Format(stampFormat), msg)
	w.file.WriteString(s)
	if w.echo {
		fmt.Print(s)
	}
}

// Start logs a start condition.
func (w *Writer) Start(t time.Time) {
	w.line(t, "START detected")
}

// Header logs the address byte of a transaction.
func (w *Writer) Header(t time.Time, addr byte, write bool, ack bool) {
	dir := "READ"
	if write {
		dir = "WRITE"
	}
	w.line(t, fmt.Sprintf("Address: 0x%02X %s, ACK=%t", addr, dir, ack))
}

// Data logs one payload byte.
func (w *Writer) Data(t time.Time, b byte, ack bool) {
	w.line(t, fmt.Sprintf("  Data: 0x%02X, ACK=%t", b, ack))
}

// Stop logs a stop condition.
func (w *Writer) Stop(t time.Time) {
	w.line(t, "STOP detected")
}

// Notef logs a free-form diagnostic line, timestamped now.
func (w *Writer) Notef(format string, args ...any) {
	w.line(time.Now(), fmt.Sprintf(format, args...))
}

// Close flushes and closes the log file.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
