package sniffer

import "sync/atomic"

// Signal is a level-triggered flag shared between the capture session
// and the goroutine coordinating bus access. The session polls it at
// state-machine boundaries; there is no way to lock a shared electrical
// bus, so correctness depends on the session genuinely refraining from
// reads while the pause signal is asserted.
type Signal struct {
	v atomic.Bool
}

// NewSignal returns a cleared signal.
func NewSignal() *Signal {
	return &Signal{}
}

// Assert raises the signal.
func (s *Signal) Assert() {
	s.v.Store(true)
}

// Clear lowers the signal.
func (s *Signal) Clear() {
	s.v.Store(false)
}

// Set reports whether the signal is raised. Safe on a nil signal, which
// reads as never raised.
func (s *Signal) Set() bool {
	return s != nil && s.v.Load()
}
