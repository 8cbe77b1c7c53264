package unread

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncrementAndClear(t *testing.T) {
	l := NewLedger()

	assert.Equal(t, 0, l.Count("7"))

	l.Increment("7")
	l.Increment("7")
	assert.Equal(t, 2, l.Count("7"))

	l.Clear("7")
	assert.Equal(t, 0, l.Count("7"))
}

func TestCountersAreIndependent(t *testing.T) {
	l := NewLedger()

	l.Increment("3")
	l.Increment("5")
	l.Increment("5")

	assert.Equal(t, 1, l.Count("3"))
	assert.Equal(t, 2, l.Count("5"))
	assert.Equal(t, 3, l.Total())

	l.Clear("5")
	assert.Equal(t, 1, l.Count("3"), "clearing one conversation must not touch others")
	assert.Equal(t, 1, l.Total())
}

func TestClearUnknownIsNoop(t *testing.T) {
	l := NewLedger()
	l.Clear("nothing")
	assert.Equal(t, 0, l.Total())
}

func TestSnapshot(t *testing.T) {
	l := NewLedger()
	l.Increment("a")
	l.Increment("b")
	l.Increment("b")

	snap := l.Snapshot()
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, snap)

	// Mutating the snapshot must not leak back into the ledger.
	snap["a"] = 99
	assert.Equal(t, 1, l.Count("a"))
}
