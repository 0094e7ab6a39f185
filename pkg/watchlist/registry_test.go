package watchlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SBanditaDas/facesentinel/pkg/landmark"
)

func TestClusteringStability(t *testing.T) {
	r := NewRegistry(nil, 0)

	a := landmark.FeatureVector{0.6, 0.8}
	first := r.LogEncounter(a)
	assert.Equal(t, 1, first.PersonID)
	assert.Equal(t, "Person 1", first.Label)

	// Near-duplicate: every component within 0.01 of the original.
	nearDup := landmark.FeatureVector{0.606, 0.795}
	second := r.LogEncounter(nearDup)
	assert.Equal(t, 1, second.PersonID)

	// Clearly distinct: negated vector.
	distinct := landmark.FeatureVector{-0.6, -0.8}
	third := r.LogEncounter(distinct)
	assert.Equal(t, 2, third.PersonID)
	assert.Equal(t, "Person 2", third.Label)

	assert.Equal(t, 2, r.People())
	assert.Len(t, r.Entries(), 3)
}

func TestFirstMatchInInsertionOrderWins(t *testing.T) {
	r := NewRegistry(nil, 0)

	r.LogEncounter(landmark.FeatureVector{0.6, 0.8})
	r.LogEncounter(landmark.FeatureVector{-0.6, -0.8})

	// Matches representative 1, even though 2 exists.
	e := r.LogEncounter(landmark.FeatureVector{0.6, 0.8})
	assert.Equal(t, 1, e.PersonID)
}

func TestLogCapacity(t *testing.T) {
	r := NewRegistry(nil, 100)

	a := landmark.FeatureVector{0.6, 0.8}
	b := landmark.FeatureVector{-0.6, -0.8}

	// 150 alternating encounters: person 1 on odd insertions, person 2
	// on even ones.
	for i := 1; i <= 150; i++ {
		if i%2 == 1 {
			r.LogEncounter(a)
		} else {
			r.LogEncounter(b)
		}
	}

	entries := r.Entries()
	require.Len(t, entries, 100)

	// The oldest 50 were dropped: the log now starts at insertion 51.
	assert.Equal(t, 1, entries[0].PersonID)
	assert.Equal(t, 2, entries[99].PersonID)
	assert.Equal(t, 2, r.People())

	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp))
	}
}

func TestClearDropsLogAndIdentities(t *testing.T) {
	r := NewRegistry(nil, 0)

	r.LogEncounter(landmark.FeatureVector{0.6, 0.8})
	r.LogEncounter(landmark.FeatureVector{-0.6, -0.8})
	require.Equal(t, 2, r.People())

	r.Clear()
	assert.Equal(t, 0, r.People())
	assert.Empty(t, r.Entries())

	// Ids restart from 1 after a clear.
	e := r.LogEncounter(landmark.FeatureVector{-0.6, -0.8})
	assert.Equal(t, 1, e.PersonID)
}

func TestRepresentativeIsCopied(t *testing.T) {
	r := NewRegistry(nil, 0)

	vec := landmark.FeatureVector{0.6, 0.8}
	r.LogEncounter(vec)

	// Mutating the caller's vector must not corrupt the cluster.
	vec[0], vec[1] = -0.6, -0.8
	e := r.LogEncounter(landmark.FeatureVector{0.6, 0.8})
	assert.Equal(t, 1, e.PersonID)
}

func TestEntriesReturnsCopy(t *testing.T) {
	r := NewRegistry(nil, 0)
	r.LogEncounter(landmark.FeatureVector{0.6, 0.8})

	entries := r.Entries()
	entries[0].PersonID = 99
	assert.Equal(t, 1, r.Entries()[0].PersonID)
}
