package shoppinglist

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItemRejectsDuplicate(t *testing.T) {
	l := New("groceries")

	l, err := l.AddItem("milk", 2, "r1")
	require.NoError(t, err)

	_, err = l.AddItem("milk", 1, "r1")
	assert.Error(t, err)
}

func TestAddItemRejectsEmptyName(t *testing.T) {
	l := New("groceries")
	_, err := l.AddItem("", 1, "r1")
	assert.Error(t, err)
}

func TestChangeQuantityRequiresExistingItem(t *testing.T) {
	l := New("groceries")
	_, err := l.ChangeQuantity("milk", 1, "r1")
	assert.Error(t, err)
}

func TestChangeQuantitySignedDelta(t *testing.T) {
	l := New("groceries")
	l, err := l.AddItem("milk", 5, "r1")
	require.NoError(t, err)

	l, err = l.ChangeQuantity("milk", 3, "r1")
	require.NoError(t, err)
	assert.Equal(t, uint64(8), l.Items.Value("milk"))

	l, err = l.ChangeQuantity("milk", -6, "r1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), l.Items.Value("milk"))
}

func TestRemoveItemThenConcurrentIncrementConverges(t *testing.T) {
	base := New("groceries")
	base, err := base.AddItem("apple", 5, "seed")
	require.NoError(t, err)

	a := base.RemoveItem("apple", "replicaA")
	b, err := base.ChangeQuantity("apple", 2, "replicaB")
	require.NoError(t, err)

	merged := a.Merge(b)
	assert.Equal(t, uint64(2), merged.Items.Value("apple"))
}

func TestMergePreservesIDAndName(t *testing.T) {
	a := New("groceries")
	a, err := a.AddItem("milk", 1, "r1")
	require.NoError(t, err)

	b := a
	b, err = b.ChangeQuantity("milk", 1, "r2")
	require.NoError(t, err)

	merged := a.Merge(b)
	assert.Equal(t, a.ID, merged.ID)
	assert.Equal(t, a.Name, merged.Name)
	assert.Equal(t, uint64(2), merged.Items.Value("milk"))
}

func TestJSONRoundTrip(t *testing.T) {
	l := New("groceries")
	l, err := l.AddItem("milk", 2, "r1")
	require.NoError(t, err)
	l, err = l.AddItem("bread", 1, "r1")
	require.NoError(t, err)

	data, err := json.Marshal(l)
	require.NoError(t, err)

	var decoded List
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, l.ID, decoded.ID)
	assert.Equal(t, l.Name, decoded.Name)
	assert.Equal(t, l.Items.Value("milk"), decoded.Items.Value("milk"))
	assert.Equal(t, l.Items.Value("bread"), decoded.Items.Value("bread"))
}

func TestToSnapshotFlattensQuantities(t *testing.T) {
	l := New("groceries")
	l, err := l.AddItem("milk", 2, "r1")
	require.NoError(t, err)

	snap := l.ToSnapshot()
	assert.Equal(t, "groceries", snap.Name)
	assert.Equal(t, uint64(2), snap.Items["milk"])
}
