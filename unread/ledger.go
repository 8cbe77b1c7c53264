package unread

import "sync"

// Ledger tracks per-conversation unread counters. Counters live in memory
// only and start from zero on every full reload; the server's conversation
// list is the source of truth for anything historical.
//
// The ledger itself is dumb bookkeeping. Whether a given frame should
// increment is decided by the coordinator, which knows which conversation is
// active and whether the consuming surface is minimized.
type Ledger struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{counts: make(map[string]int)}
}

// Increment adds one to the conversation's counter.
func (l *Ledger) Increment(conversationID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[conversationID]++
}

// Clear resets the conversation's counter to zero.
func (l *Ledger) Clear(conversationID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counts, conversationID)
}

// Count returns the conversation's current counter.
func (l *Ledger) Count(conversationID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[conversationID]
}

// Total returns the sum across all conversations, for badge display.
func (l *Ledger) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, n := range l.counts {
		total += n
	}
	return total
}

// Snapshot copies the non-zero counters.
func (l *Ledger) Snapshot() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.counts))
	for id, n := range l.counts {
		out[id] = n
	}
	return out
}
