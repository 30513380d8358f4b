package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeManifest marshals a model to a temp manifest file.
func writeManifest(t *testing.T, m *Model) string {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		path := writeManifest(t, validModel())

		m, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "tiny", m.Name)
		assert.Equal(t, []int{1, 2, 2}, m.InputShape)
		assert.Len(t, m.Layers, 4)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("BadFormatVersion", func(t *testing.T) {
		m := validModel()
		m.FormatVersion = "not-a-version"

		_, err := Load(writeManifest(t, m))
		assert.ErrorIs(t, err, ErrBadFormatVersion)
	})

	t.Run("FutureMajorRejected", func(t *testing.T) {
		m := validModel()
		m.FormatVersion = "2.0.0"

		_, err := Load(writeManifest(t, m))
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("MinorRevisionAccepted", func(t *testing.T) {
		m := validModel()
		m.FormatVersion = "1.4.2"

		_, err := Load(writeManifest(t, m))
		assert.NoError(t, err)
	})

	t.Run("InvalidModelRejected", func(t *testing.T) {
		m := validModel()
		m.Layers[1].Weights = m.Layers[1].Weights[:3]

		_, err := Load(writeManifest(t, m))
		assert.ErrorIs(t, err, ErrWeightShape)
	})
}
