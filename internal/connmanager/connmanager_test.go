package connmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundRobin_CyclesInRegistrationOrder(t *testing.T) {
	rr := NewRoundRobin()
	rr.Starting()
	rr.Register("w0")
	rr.Register("w1")
	rr.Register("w2")

	var seen []string
	for i := 0; i < 6; i++ {
		idx, ok := rr.Next()
		assert.True(t, ok)
		seen = append(seen, idx)
	}

	assert.Equal(t, []string{"w1", "w2", "w0", "w1", "w2", "w0"}, seen)
}

func TestRoundRobin_NoConnections(t *testing.T) {
	rr := NewRoundRobin()
	_, ok := rr.Next()
	assert.False(t, ok)
}

func TestRoundRobin_RegisterBeforeStartingIsNoop(t *testing.T) {
	rr := NewRoundRobin()
	rr.Register("w0")
	_, ok := rr.Next()
	assert.False(t, ok)
}

func TestRoundRobin_RemoveShrinksRotation(t *testing.T) {
	rr := NewRoundRobin()
	rr.Starting()
	rr.Register("w0")
	rr.Register("w1")
	rr.Remove("w0")

	idx, ok := rr.Next()
	assert.True(t, ok)
	assert.Equal(t, "w1", idx)
}

func TestRoundRobin_DuplicateRegisterIsNoop(t *testing.T) {
	rr := NewRoundRobin()
	rr.Starting()
	rr.Register("w0")
	rr.Register("w0")
	assert.Len(t, rr.order, 1)
}

func TestRoundRobin_FairnessWithinOnePerWindow(t *testing.T) {
	rr := NewRoundRobin()
	rr.Starting()
	rr.Register("w0")
	rr.Register("w1")
	rr.Register("w2")

	counts := map[string]int{}
	const pulls = 30
	for i := 0; i < pulls; i++ {
		idx, ok := rr.Next()
		assert.True(t, ok)
		counts[idx]++
	}

	expected := pulls / 3
	for _, idx := range []string{"w0", "w1", "w2"} {
		diff := counts[idx] - expected
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqual(t, diff, 1, "index %s got %d pulls, expected ~%d", idx, counts[idx], expected)
	}
}

func TestRoundRobin_AbortingClearsRoster(t *testing.T) {
	rr := NewRoundRobin()
	rr.Starting()
	rr.Register("w0")
	rr.Aborting()

	_, ok := rr.Next()
	assert.False(t, ok)
}
