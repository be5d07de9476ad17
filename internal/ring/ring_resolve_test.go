package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePairsFailedWithSubstitutes(t *testing.T) {
	r := New(16)
	for _, n := range []string{"n1", "n2", "n3", "n4", "n5"} {
		r.AddNode(n)
	}

	ideal := r.IdealReplicas("list-1", 4)
	require.Len(t, ideal, 4)

	unhealthy := map[string]bool{ideal[1]: true}
	live, failed, substitutes := r.Resolve("list-1", 4, unhealthy)

	assert.Len(t, live, 4)
	assert.Equal(t, []string{ideal[1]}, failed)
	assert.Len(t, substitutes, 1)
	assert.NotContains(t, live, ideal[1])
}

func TestResolveNoFailuresHasNoSubstitutes(t *testing.T) {
	r := New(16)
	r.AddNode("n1")
	r.AddNode("n2")
	r.AddNode("n3")

	live, failed, substitutes := r.Resolve("list-1", 2, nil)
	assert.Len(t, live, 2)
	assert.Empty(t, failed)
	assert.Empty(t, substitutes)
}
