package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabledBooleanValues(t *testing.T) {
	m := NewManager("goal_digest=on,join_v2=off,a=true,b=false,c=1,d=0")

	assert.True(t, m.Enabled("goal_digest", 1))
	assert.True(t, m.Enabled("a", 1))
	assert.True(t, m.Enabled("c", 1))
	assert.False(t, m.Enabled("join_v2", 1))
	assert.False(t, m.Enabled("b", 1))
	assert.False(t, m.Enabled("d", 1))

	// Unknown flags are off.
	assert.False(t, m.Enabled("nope", 1))
}

func TestEnabledPercentageRollout(t *testing.T) {
	m := NewManager("all=100%,none=0%,canary=25%")

	assert.True(t, m.Enabled("all", 1))
	assert.False(t, m.Enabled("none", 1))

	// Deterministic per user, and roughly a quarter of users land inside.
	inside := 0
	for id := uint(1); id <= 1000; id++ {
		first := m.Enabled("canary", id)
		assert.Equal(t, first, m.Enabled("canary", id))
		if first {
			inside++
		}
	}
	assert.InDelta(t, 250, inside, 100)

	// The zero identity never enters a partial rollout.
	assert.False(t, m.Enabled("canary", 0))
}

func TestEnabledForNetworkBucketsIndependently(t *testing.T) {
	m := NewManager("join_v2=50%")

	matches := 0
	for id := uint(1); id <= 200; id++ {
		if m.Enabled("join_v2", id) == m.EnabledForNetwork("join_v2", id) {
			matches++
		}
	}
	// Same id, different scope: the buckets must not mirror each other.
	assert.Less(t, matches, 200)
}

func TestNewManagerIgnoresMalformedPairs(t *testing.T) {
	m := NewManager("goal_digest=on,garbage,=off,broken=maybe, join_v2 = ON ")

	assert.True(t, m.Enabled("goal_digest", 1))
	assert.True(t, m.Enabled("join_v2", 1))
	assert.False(t, m.Enabled("broken", 1))
	assert.Len(t, m.Snapshot(1), 2)
}

func TestSnapshot(t *testing.T) {
	m := NewManager("goal_digest=on,join_v2=off")

	assert.Equal(t, map[string]bool{"goal_digest": true, "join_v2": false}, m.Snapshot(7))
}
