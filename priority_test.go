package linmo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPriority(t *testing.T) {
	for _, p := range []Priority{PriorityCrit, PriorityRealtime, PriorityHigh, PriorityAbove,
		PriorityNormal, PriorityBelow, PriorityLow, PriorityIdle} {
		assert.True(t, validPriority(p), "priority %#x should be valid", p)
	}
	assert.False(t, validPriority(Priority(0x42)))
}

func TestPriorityWordTickReload(t *testing.T) {
	w := newPriorityWord(PriorityCrit) // base=1, counter=1
	assert.True(t, w.tick(), "counter should reach zero on the first tick")
	w.reload()
	assert.Equal(t, PriorityCrit, w.counter)

	w2 := newPriorityWord(Priority(3))
	assert.False(t, w2.tick()) // 3 -> 2
	assert.False(t, w2.tick()) // 2 -> 1
	assert.True(t, w2.tick())  // 1 -> 0
}

func TestPriorityWordSaturatesAtZero(t *testing.T) {
	w := priorityWord{base: 5, counter: 0}
	assert.True(t, w.tick(), "already-zero counter stays zero and reports eligible")
}
