package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottle_Allow(t *testing.T) {
	th := NewThrottle(ScopeReadOnly, 1, 2)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return now }

	ok, _ := th.Allow("a")
	assert.True(t, ok)
	ok, _ = th.Allow("a")
	assert.True(t, ok)

	ok, wait := th.Allow("a")
	assert.False(t, ok)
	assert.InDelta(t, time.Second, wait, float64(10*time.Millisecond))

	now = now.Add(time.Second)
	ok, _ = th.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, ScopeReadOnly, th.Scope())
}

func TestThrottle_Disabled(t *testing.T) {
	th := NewThrottle(ScopeLocationProposal, 0, 0)
	for i := 0; i < 100; i++ {
		ok, _ := th.Allow("a")
		assert.True(t, ok)
	}

	var nilThrottle *Throttle
	ok, _ := nilThrottle.Allow("a")
	assert.True(t, ok)
}
