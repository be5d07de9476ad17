package crdt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGCounterMonotone(t *testing.T) {
	g := ZeroGCounter()
	var last uint64
	for i := 0; i < 5; i++ {
		g = g.Inc("r1", uint64(i+1))
		assert.GreaterOrEqual(t, g.Value(), last)
		last = g.Value()
	}
}

func TestGCounterMergeIdempotentCommutativeAssociative(t *testing.T) {
	a := ZeroGCounter().Inc("r1", 3).Inc("r2", 1)
	b := ZeroGCounter().Inc("r2", 5).Inc("r3", 2)
	c := ZeroGCounter().Inc("r1", 1).Inc("r4", 9)

	require.Equal(t, a.Merge(a).Value(), a.Value(), "merge must be idempotent")

	ab := a.Merge(b)
	ba := b.Merge(a)
	assert.Equal(t, ab.Value(), ba.Value(), "merge must be commutative")

	abc1 := a.Merge(b).Merge(c)
	abc2 := a.Merge(b.Merge(c))
	assert.Equal(t, abc1.Value(), abc2.Value(), "merge must be associative")
}

func TestGCounterConcurrentMergeTakesMax(t *testing.T) {
	a := ZeroGCounter().Inc("r1", 10)
	b := ZeroGCounter().Inc("r2", 3)

	merged := a.Merge(b)
	assert.Equal(t, uint64(13), merged.Value())
}

func TestPNCounterFloorsAtZero(t *testing.T) {
	p := ZeroPNCounter().Inc("r1", 5).Dec("r1", 9)
	assert.Equal(t, uint64(0), p.Value())
}

func TestPNCounterMerge(t *testing.T) {
	a := ZeroPNCounter().Inc("r1", 5).Dec("r1", 2)
	b := ZeroPNCounter().Inc("r2", 3).Dec("r2", 1).Inc("r1", 1)

	merged := a.Merge(b)
	// inc: b's clock {r1:1,r2:1} dominates a's {r1:1}, so b's counts
	// {r1:1,r2:3}=4 win; dec: clocks are concurrent, max gives 2+1=3.
	assert.Equal(t, uint64(1), merged.Value())
}

func TestListDeleteThenConcurrentIncrementConverges(t *testing.T) {
	// spec.md S2: start with apple=5, replica A deletes, replica B
	// concurrently increments by 2. After merge, value is 2.
	base := ZeroList().Inc("apple", "seed", 5)

	a := base.Delete("apple", "replicaA")
	b := base.Inc("apple", "replicaB", 2)

	merged := a.Merge(b)
	assert.Equal(t, uint64(2), merged.Value("apple"))
}

func TestListAddMergeAcrossReplicas(t *testing.T) {
	// spec.md S1: replica A has milk=2, replica B (offline fork) has
	// milk=1, bread=3. After merge: milk=3, bread=3.
	a := ZeroList().Inc("milk", "replicaA", 2)
	b := ZeroList().Inc("milk", "replicaB", 1).Inc("bread", "replicaB", 3)

	merged := a.Merge(b)
	assert.Equal(t, uint64(3), merged.Value("milk"))
	assert.Equal(t, uint64(3), merged.Value("bread"))
}

func TestListMergeCommutativeAssociativeIdempotent(t *testing.T) {
	a := ZeroList().Inc("x", "r1", 2)
	b := ZeroList().Inc("x", "r2", 5).Dec("x", "r2", 1)
	c := ZeroList().Inc("y", "r3", 7)

	assert.Equal(t, a.Merge(a).Value("x"), a.Value("x"))

	ab, ba := a.Merge(b), b.Merge(a)
	assert.Equal(t, ab.Value("x"), ba.Value("x"))

	abc1 := a.Merge(b).Merge(c)
	abc2 := a.Merge(b.Merge(c))
	assert.Equal(t, abc1.Value("y"), abc2.Value("y"))
	assert.Equal(t, abc1.Value("x"), abc2.Value("x"))
}

func TestListJSONRoundTripIsStable(t *testing.T) {
	l := ZeroList().Inc("milk", "r1", 2).Inc("bread", "r2", 3).Dec("milk", "r1", 1)

	data1, err := json.Marshal(l)
	require.NoError(t, err)

	var decoded List
	require.NoError(t, json.Unmarshal(data1, &decoded))

	data2, err := json.Marshal(decoded)
	require.NoError(t, err)

	assert.JSONEq(t, string(data1), string(data2))
	assert.Equal(t, l.Value("milk"), decoded.Value("milk"))
	assert.Equal(t, l.Value("bread"), decoded.Value("bread"))
}
