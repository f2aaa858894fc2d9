// Package diffengine isolates the transactions attributable to a user
// action by multiset-differencing an action capture window against a
// quiet baseline window.
package diffengine

import (
	"sort"
	"time"

	"github.com/sergev/i2ctap/sniffer"
)

// Entry pairs a kept transaction with the delay separating it from the
// previous kept transaction. The first entry's delay is always zero.
type Entry struct {
	Tx          sniffer.Transaction
	DelayBefore time.Duration
}

// Difference returns the ordered subsequence of the action window
// attributable to the user action.
//
// For each transaction kind the overage is how many more times it
// occurs in the action window than in the baseline; background traffic
// present in both windows cancels out. Walking the action window in
// start-time order, an instance is kept while fewer of its kind have
// been kept than its overage, so repeated kinds keep their earliest
// occurrences. Delays are the gaps between consecutive kept start
// times, clamped to zero.
func Difference(action, baseline *sniffer.Capture) []Entry {
	baseCounts := make(map[sniffer.Key]int)
	if baseline != nil {
		for _, tx := range baseline.Transactions {
			baseCounts[tx.Key]++
		}
	}
	actionCounts := make(map[sniffer.Key]int)
	for _, tx := range action.Transactions {
		actionCounts[tx.Key]++
	}

	overage := make(map[sniffer.Key]int, len(actionCounts))
	for key, n := range actionCounts {
		if extra := n - baseCounts[key]; extra > 0 {
			overage[key] = extra
		}
	}

	ordered := make([]sniffer.Transaction, len(action.Transactions))
	copy(ordered, action.Transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start.Before(ordered[j].Start)
	})

	kept := make(map[sniffer.Key]int)
	var entries []Entry
	for _, tx := range ordered {
		if kept[tx.Key] >= overage[tx.Key] {
			continue
		}
		kept[tx.Key]++

		var delay time.Duration
		if len(entries) > 0 {
			delay = tx.Start.Sub(entries[len(entries)-1].Tx.Start)
			if delay < 0 {
				delay = 0
			}
		}
		entries = append(entries, Entry{Tx: tx, DelayBefore: delay})
	}
	return entries
}
