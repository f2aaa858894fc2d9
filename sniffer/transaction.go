package sniffer

import (
	"fmt"
	"strings"
	"time"
)

// Direction is the transfer direction encoded in the header byte's
// low bit.
type Direction byte

const (
	Write Direction = 0
	Read  Direction = 1
)

func (d Direction) String() string {
	if d == Write {
		return "WRITE"
	}
	return "READ"
}

// Key identifies a transaction kind: two transactions are the same kind
// iff their keys are equal, regardless of when they occurred. The
// payload is stored as a string so the key is comparable and usable as
// a map key for multiset counting.
type Key struct {
	Addr byte // 7-bit slave address
	Dir  Direction
	Data string // raw payload bytes
}

// NewKey builds a key from a decoded header and payload.
func NewKey(addr byte, dir Direction, payload []byte) Key {
	return Key{Addr: addr, Dir: dir, Data: string(payload)}
}

// Payload returns a copy of the payload bytes.
func (k Key) Payload() []byte {
	return []byte(k.Data)
}

func (k Key) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s 0x%02X [", k.Dir, k.Addr)
	for i := 0; i < len(k.Data); i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", k.Data[i])
	}
	sb.WriteByte(']')
	return sb.String()
}

// Transaction is one framed bus exchange. It is immutable once emitted
// by the framer.
type Transaction struct {
	Key   Key
	Start time.Time // monotonic timestamp of the start condition

	// HeaderAck reports whether a slave acknowledged the address byte.
	HeaderAck bool

	// Acks holds one entry per payload byte, true = acknowledged.
	// Always the same length as the payload.
	Acks []bool
}

// Capture is the ordered result of one capture window.
type Capture struct {
	ID           string // unique run identifier
	Start        time.Time
	Transactions []Transaction

	// DecodeTimeouts counts transactions abandoned mid-decode. They are
	// diagnostics only; the capture keeps running past them.
	DecodeTimeouts int
}
