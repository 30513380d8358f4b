package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WriteRead(t *testing.T) {
	store := NewStore()
	path := filepath.Join(t.TempDir(), "model.calib.json")

	payload := json.RawMessage(`{"input":{"min":0,"max":1,"bits":8}}`)
	entry := NewEntry("01JRUN", "fp-abc", payload)

	require.NoError(t, store.Write(path, entry))

	got, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "01JRUN", got.RunID)
	assert.Equal(t, "fp-abc", got.Fingerprint)
	assert.JSONEq(t, string(payload), string(got.Data))
	assert.False(t, got.CreatedAt.IsZero())
	assert.True(t, got.Matches("fp-abc"))
	assert.False(t, got.Matches("fp-other"))
}

func TestStore_Read(t *testing.T) {
	store := NewStore()

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.Read(filepath.Join(t.TempDir(), "missing.json"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Corrupt", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o600))

		_, err := store.Read(path)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.Read("")
		assert.ErrorIs(t, err, ErrInvalidPath)
	})
}

func TestStore_Write(t *testing.T) {
	store := NewStore()

	t.Run("CreatesParentDirectories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "deep", "m.calib.json")
		require.NoError(t, store.Write(path, NewEntry("r", "f", json.RawMessage(`{}`))))
		assert.FileExists(t, path)
	})

	t.Run("OverwritesExisting", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "m.calib.json")
		require.NoError(t, store.Write(path, NewEntry("first", "f1", json.RawMessage(`{}`))))
		require.NoError(t, store.Write(path, NewEntry("second", "f2", json.RawMessage(`{}`))))

		got, err := store.Read(path)
		require.NoError(t, err)
		assert.Equal(t, "second", got.RunID)
	})

	t.Run("NoTempFileLeftBehind", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "m.calib.json")
		require.NoError(t, store.Write(path, NewEntry("r", "f", json.RawMessage(`{}`))))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "m.calib.json", entries[0].Name())
	})

	t.Run("EmptyPath", func(t *testing.T) {
		assert.ErrorIs(t, store.Write("", NewEntry("r", "f", nil)), ErrInvalidPath)
	})
}

func TestStore_Remove(t *testing.T) {
	store := NewStore()
	path := filepath.Join(t.TempDir(), "m.calib.json")

	// Removing a missing artifact is idempotent.
	require.NoError(t, store.Remove(path))

	require.NoError(t, store.Write(path, NewEntry("r", "f", json.RawMessage(`{}`))))
	require.NoError(t, store.Remove(path))
	assert.NoFileExists(t, path)
}

func TestStore_Stat(t *testing.T) {
	store := NewStore()
	path := filepath.Join(t.TempDir(), "m.calib.json")

	_, err := store.Stat(path)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Write(path, NewEntry("r", "f", json.RawMessage(`{"a":1}`))))
	size, err := store.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, size)
}
