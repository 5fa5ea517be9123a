package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	Count   int      `json:"count"`
	Symbols []string `json:"symbols"`
}

// TestSaveAndLoad verifies a round trip through the store
func TestSaveAndLoad(t *testing.T) {
	store := NewStore(zerolog.New(nil).Level(zerolog.Disabled))
	path := filepath.Join(t.TempDir(), "state.json")

	in := testState{Count: 3, Symbols: []string{"AAPL", "XOM"}}
	require.NoError(t, store.Save(path, in))

	var out testState
	require.NoError(t, store.Load(path, &out))
	assert.Equal(t, in, out)
}

// TestLoadMissingFile verifies a missing file leaves the target untouched
func TestLoadMissingFile(t *testing.T) {
	store := NewStore(zerolog.New(nil).Level(zerolog.Disabled))

	out := testState{Count: 7}
	err := store.Load(filepath.Join(t.TempDir(), "missing.json"), &out)
	require.NoError(t, err)
	assert.Equal(t, 7, out.Count)
}

// TestLoadCorruptFile verifies a corrupt file resets to empty state
// instead of failing
func TestLoadCorruptFile(t *testing.T) {
	store := NewStore(zerolog.New(nil).Level(zerolog.Disabled))
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	var out testState
	err := store.Load(path, &out)
	require.NoError(t, err)
	assert.Equal(t, testState{}, out)
}

// TestSaveCreatesParentDirs verifies nested state paths are created
func TestSaveCreatesParentDirs(t *testing.T) {
	store := NewStore(zerolog.New(nil).Level(zerolog.Disabled))
	path := filepath.Join(t.TempDir(), "data", "nested", "state.json")

	require.NoError(t, store.Save(path, testState{Count: 1}))

	var out testState
	require.NoError(t, store.Load(path, &out))
	assert.Equal(t, 1, out.Count)
}

// TestSaveLeavesNoTempFile verifies the atomic write cleans up after itself
func TestSaveLeavesNoTempFile(t *testing.T) {
	store := NewStore(zerolog.New(nil).Level(zerolog.Disabled))
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	require.NoError(t, store.Save(path, testState{Count: 1}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
