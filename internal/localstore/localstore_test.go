package localstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "node1")
	s, err := Open(dir)
	require.NoError(t, err)
	assert.Empty(t, s.Keys())

	_, err = os.Stat(dir)
	require.NoError(t, err)
}

func TestPutGetDelete(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	s.Put("list-1", json.RawMessage(`{"name":"groceries"}`))
	raw, ok := s.Get("list-1")
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"groceries"}`, string(raw))

	s.Delete("list-1")
	_, ok = s.Get("list-1")
	assert.False(t, ok)
}

func TestFlushAllThenReopenReplaysState(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	s.Put("list-1", json.RawMessage(`{"name":"groceries"}`))
	s.Put("list-2", json.RawMessage(`{"name":"hardware"}`))
	require.NoError(t, s.FlushAll())

	reopened, err := Open(dir)
	require.NoError(t, err)

	raw, ok := reopened.Get("list-1")
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"groceries"}`, string(raw))

	raw, ok = reopened.Get("list-2")
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"hardware"}`, string(raw))
}

func TestFlushDirtyNoopsWhenClean(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.FlushAll())

	_, statErr := os.Stat(filepath.Join(dir, "lists.json"))
	require.NoError(t, statErr)
	before, err := os.Stat(filepath.Join(dir, "lists.json"))
	require.NoError(t, err)

	require.NoError(t, s.FlushDirty())

	after, err := os.Stat(filepath.Join(dir, "lists.json"))
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}
