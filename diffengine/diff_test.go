package diffengine

import (
	"testing"
	"time"

	"github.com/sergev/i2ctap/sniffer"

	"github.com/stretchr/testify/assert"
)

var base = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func tx(addr byte, dir sniffer.Direction, payload []byte, at time.Duration) sniffer.Transaction {
	acks := make([]bool, len(payload))
	for i := range acks {
		acks[i] = true
	}
	return sniffer.Transaction{
		Key:       sniffer.NewKey(addr, dir, payload),
		Start:     base.Add(at),
		HeaderAck: true,
		Acks:      acks,
	}
}

func capture(txs ...sniffer.Transaction) *sniffer.Capture {
	return &sniffer.Capture{ID: "test", Start: base, Transactions: txs}
}

func TestDifferenceEmptyBaseline(t *testing.T) {
	action := capture(
		tx(0x03, sniffer.Write, []byte{0x02, 0x21}, 0),
		tx(0x05, sniffer.Write, []byte{0x2A, 0xC8, 0xA0}, 40*time.Millisecond),
	)
	entries := Difference(action, capture())

	if assert.Len(t, entries, 2) {
		assert.Equal(t, byte(0x03), entries[0].Tx.Key.Addr)
		assert.Equal(t, byte(0x05), entries[1].Tx.Key.Addr)
		assert.Equal(t, time.Duration(0), entries[0].DelayBefore)
		assert.Equal(t, 40*time.Millisecond, entries[1].DelayBefore)
	}
}

func TestDifferenceCancelsBaselineNoise(t *testing.T) {
	noise := func(at time.Duration) sniffer.Transaction {
		return tx(0x40, sniffer.Write, []byte{0x00}, at)
	}
	baseline := capture(noise(0), noise(10*time.Millisecond))
	action := capture(
		noise(0),
		tx(0x03, sniffer.Write, []byte{0x02, 0x21}, 5*time.Millisecond),
		noise(10*time.Millisecond),
	)
	entries := Difference(action, baseline)

	if assert.Len(t, entries, 1) {
		assert.Equal(t, byte(0x03), entries[0].Tx.Key.Addr)
		assert.Equal(t, time.Duration(0), entries[0].DelayBefore)
	}
}

// Per-kind counts in the result never exceed the positive part of
// count_action - count_baseline, and keeping prefers the earliest
// occurrences of a repeated kind.
func TestDifferenceOverageKeepsEarliest(t *testing.T) {
	k := func(at time.Duration) sniffer.Transaction {
		return tx(0x10, sniffer.Write, []byte{0xAA}, at)
	}
	baseline := capture(k(0))
	action := capture(
		k(0),
		k(20*time.Millisecond),
		k(50*time.Millisecond),
	)
	entries := Difference(action, baseline)

	if assert.Len(t, entries, 2) {
		assert.Equal(t, base, entries[0].Tx.Start)
		assert.Equal(t, base.Add(20*time.Millisecond), entries[1].Tx.Start)
		assert.Equal(t, 20*time.Millisecond, entries[1].DelayBefore)
	}
}

func TestDifferenceDropsFullyExplainedKinds(t *testing.T) {
	baseline := capture(
		tx(0x20, sniffer.Read, []byte{0x01}, 0),
		tx(0x20, sniffer.Read, []byte{0x01}, 5*time.Millisecond),
	)
	action := capture(tx(0x20, sniffer.Read, []byte{0x01}, 0))

	assert.Empty(t, Difference(action, baseline))
}

func TestDifferenceDelaysFromSortedStarts(t *testing.T) {
	// Arrival order differs from start-time order; delays must follow
	// start times and stay non-negative.
	a := tx(0x03, sniffer.Write, []byte{0x01}, 30*time.Millisecond)
	b := tx(0x05, sniffer.Write, []byte{0x02}, 10*time.Millisecond)
	action := capture(a, b)

	entries := Difference(action, capture())
	if assert.Len(t, entries, 2) {
		assert.Equal(t, byte(0x05), entries[0].Tx.Key.Addr)
		assert.Equal(t, time.Duration(0), entries[0].DelayBefore)
		assert.Equal(t, byte(0x03), entries[1].Tx.Key.Addr)
		assert.Equal(t, 20*time.Millisecond, entries[1].DelayBefore)
	}
}

func TestDifferenceDistinguishesDirectionAndPayload(t *testing.T) {
	baseline := capture(tx(0x30, sniffer.Write, []byte{0x01}, 0))
	action := capture(
		tx(0x30, sniffer.Read, []byte{0x01}, 0),                     // same addr, other direction
		tx(0x30, sniffer.Write, []byte{0x01, 0x02}, time.Millisecond), // same addr, other payload
	)
	entries := Difference(action, baseline)
	assert.Len(t, entries, 2)
}
