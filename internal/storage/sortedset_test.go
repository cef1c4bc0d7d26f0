package storage

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func membersOf(items []ScoredMember) []string {
	out := make([]string, len(items))
	for i, m := range items {
		out[i] = m.Member
	}
	return out
}

func TestSortedSetAdd(t *testing.T) {
	z := NewSortedSet()

	assert.True(t, z.Add("one", 1))
	assert.True(t, z.Add("two", 2))
	assert.True(t, z.Add("three", 3))
	assert.Equal(t, 3, z.Card())

	// identical re-add is a no-op
	assert.False(t, z.Add("one", 1))
	assert.Equal(t, 3, z.Card())

	// score change reports true and keeps cardinality
	assert.True(t, z.Add("one", 5))
	assert.Equal(t, 3, z.Card())
	assert.Equal(t, z.Card(), z.orderedLen())

	score, ok := z.Score("one")
	require.True(t, ok)
	assert.Equal(t, 5.0, score)
}

func TestSortedSetRemove(t *testing.T) {
	z := NewSortedSet()

	z.Add("one", 1)
	z.Add("two", 2)

	assert.True(t, z.Remove("one"))
	assert.False(t, z.Remove("one"))
	assert.Equal(t, 1, z.Card())
	assert.Equal(t, z.Card(), z.orderedLen())

	_, ok := z.Score("one")
	assert.False(t, ok)
}

func TestSortedSetRank(t *testing.T) {
	z := NewSortedSet()

	z.Add("one", 1)
	z.Add("two", 2)
	z.Add("three", 3)

	rank, ok := z.Rank("two")
	require.True(t, ok)
	assert.Equal(t, 1, rank)

	_, ok = z.Rank("missing")
	assert.False(t, ok)

	// score update moves the member to the tail
	z.Add("one", 5)
	rank, ok = z.Rank("one")
	require.True(t, ok)
	assert.Equal(t, 2, rank)
}

func TestSortedSetRangeByRank(t *testing.T) {
	z := NewSortedSet()

	z.Add("one", 1)
	z.Add("two", 2)
	z.Add("three", 3)

	assert.Equal(t, []string{"one", "two", "three"}, membersOf(z.RangeByRank(0, 2)))
	assert.Equal(t, []string{"two"}, membersOf(z.RangeByRank(1, 1)))

	// stop past the end is clamped
	assert.Equal(t, []string{"two", "three"}, membersOf(z.RangeByRank(1, 100)))

	// start past the end, or stop before start, is empty
	assert.Empty(t, z.RangeByRank(3, 5))
	assert.Empty(t, z.RangeByRank(2, 1))
}

func TestSortedSetRangeByScore(t *testing.T) {
	z := NewSortedSet()

	z.Add("one", 1)
	z.Add("two", 2)
	z.Add("three", 3)

	got := z.RangeByScore(2, 3)
	assert.Equal(t, []string{"two", "three"}, membersOf(got))
	assert.Equal(t, 2.0, got[0].Score)

	// inclusive bounds
	assert.Equal(t, []string{"one", "two", "three"}, membersOf(z.RangeByScore(1, 3)))
	assert.Empty(t, z.RangeByScore(10, 20))
}

func TestSortedSetEqualScoresOrderByMember(t *testing.T) {
	z := NewSortedSet()

	z.Add("banana", 1)
	z.Add("apple", 1)
	z.Add("cherry", 1)

	assert.Equal(t, []string{"apple", "banana", "cherry"}, membersOf(z.RangeByRank(0, 2)))
	assert.Equal(t, []string{"apple", "banana", "cherry"}, membersOf(z.RangeByScore(1, 1)))

	rank, ok := z.Rank("banana")
	require.True(t, ok)
	assert.Equal(t, 1, rank)
}

func TestSortedSetClear(t *testing.T) {
	z := NewSortedSet()

	z.Add("one", 1)
	z.Clear()

	assert.Equal(t, 0, z.Card())
	assert.Equal(t, 0, z.orderedLen())
	assert.Empty(t, z.RangeByRank(0, 10))
}

// TestSortedSetRandomizedInvariants drives random adds, updates and removes
// and checks both internal structures stay in step and ordered.
func TestSortedSetRandomizedInvariants(t *testing.T) {
	z := NewSortedSet()
	rng := rand.New(rand.NewSource(7))

	model := make(map[string]float64)
	for i := 0; i < 3000; i++ {
		member := fmt.Sprintf("m%d", rng.Intn(200))
		if rng.Intn(4) == 0 {
			z.Remove(member)
			delete(model, member)
			continue
		}
		score := float64(rng.Intn(50))
		z.Add(member, score)
		model[member] = score
	}

	require.Equal(t, len(model), z.Card())
	require.Equal(t, len(model), z.orderedLen())

	all := z.RangeByRank(0, z.Card()-1)
	require.Len(t, all, len(model))

	expected := make([]ScoredMember, 0, len(model))
	for member, score := range model {
		expected = append(expected, ScoredMember{Member: member, Score: score})
	}
	sort.Slice(expected, func(i, j int) bool {
		if expected[i].Score != expected[j].Score {
			return expected[i].Score < expected[j].Score
		}
		return expected[i].Member < expected[j].Member
	})
	assert.Equal(t, expected, all)

	// rank agrees with position in the full enumeration
	for i, m := range all {
		rank, ok := z.Rank(m.Member)
		require.True(t, ok)
		assert.Equal(t, i, rank)
	}
}
