package calib

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmarkell/quantcal/internal/dataset"
	"github.com/rmarkell/quantcal/internal/model"
)

// testModel builds a tiny flatten/linear/relu/linear network.
func testModel(t *testing.T) *model.Model {
	t.Helper()
	m := &model.Model{
		Name:          "tiny",
		FormatVersion: "1.0.0",
		InputShape:    []int{1, 2, 2},
		Layers: []model.Layer{
			{Name: "flatten", Kind: model.KindFlatten},
			{
				Name: "fc1", Kind: model.KindLinear, InFeatures: 4, OutFeatures: 3,
				Weights: []float32{
					0.5, -0.25, 0.1, 0.3,
					-0.4, 0.2, 0.6, -0.1,
					0.05, 0.35, -0.3, 0.45,
				},
				Bias: []float32{0.1, -0.2, 0.05},
			},
			{Name: "relu1", Kind: model.KindReLU},
			{
				Name: "fc2", Kind: model.KindLinear, InFeatures: 3, OutFeatures: 2,
				Weights: []float32{
					0.7, -0.5, 0.2,
					-0.6, 0.4, 0.9,
				},
			},
		},
	}
	require.NoError(t, m.Validate())
	return m
}

// testSamples builds n samples of shape [1 2 2] with varied values.
func testSamples(t *testing.T, n int) []*dataset.Tensor {
	t.Helper()
	samples := make([]*dataset.Tensor, n)
	for i := range samples {
		base := float32(i) / float32(n)
		tensor, err := dataset.NewTensor([]int{1, 2, 2}, []float32{
			base, 1 - base, base / 2, base * base,
		})
		require.NoError(t, err)
		samples[i] = tensor
	}
	return samples
}

func TestNewCalibrator(t *testing.T) {
	m := testModel(t)
	b, err := NewBatcher(testSamples(t, 8), "", 4)
	require.NoError(t, err)

	t.Run("NilModel", func(t *testing.T) {
		_, err := NewCalibrator(nil, b, 1)
		assert.ErrorIs(t, err, ErrNilModel)
	})

	t.Run("NilBatcher", func(t *testing.T) {
		_, err := NewCalibrator(m, nil, 1)
		assert.ErrorIs(t, err, ErrNilBatcher)
	})

	t.Run("InvalidPasses", func(t *testing.T) {
		_, err := NewCalibrator(m, b, 0)
		assert.ErrorIs(t, err, ErrInvalidPasses)
	})

	t.Run("RunIDAssigned", func(t *testing.T) {
		cal, err := NewCalibrator(m, b, 1)
		require.NoError(t, err)
		assert.NotEmpty(t, cal.RunID())
	})
}

func TestCalibrator_Run(t *testing.T) {
	m := testModel(t)

	t.Run("ObservesInputAndEveryLayer", func(t *testing.T) {
		b, err := NewBatcher(testSamples(t, 10), "", 4)
		require.NoError(t, err)
		cal, err := NewCalibrator(m, b, 1)
		require.NoError(t, err)

		ranges, cached, err := cal.Run(context.Background())
		require.NoError(t, err)
		assert.False(t, cached)

		for _, name := range []string{model.InputTensorName, "flatten", "fc1", "relu1", "fc2"} {
			assert.Contains(t, ranges, name)
		}

		// Input values live in [0, 1].
		in := ranges[model.InputTensorName]
		assert.GreaterOrEqual(t, in.Min, float32(0))
		assert.LessOrEqual(t, in.Max, float32(1))
		assert.Equal(t, Int8Bits, in.Bits)

		// ReLU output floors at zero.
		assert.GreaterOrEqual(t, ranges["relu1"].Min, float32(0))
	})

	t.Run("ProgressReported", func(t *testing.T) {
		b, err := NewBatcher(testSamples(t, 10), "", 4)
		require.NoError(t, err)
		cal, err := NewCalibrator(m, b, 2)
		require.NoError(t, err)

		var updates []Progress
		cal.WithProgressCallback(func(p Progress) { updates = append(updates, p) })

		_, _, err = cal.Run(context.Background())
		require.NoError(t, err)

		// ceil(10/4) batches per pass, two passes.
		require.Len(t, updates, 6)
		last := updates[len(updates)-1]
		assert.Equal(t, 1, last.Pass)
		assert.Equal(t, 2, last.TotalPasses)
		assert.Equal(t, 3, last.Batches)
		assert.Equal(t, 10, last.Samples)
		assert.InDelta(t, 100.0, last.PercentComplete(), 1e-9)
	})

	t.Run("Cancellation", func(t *testing.T) {
		b, err := NewBatcher(testSamples(t, 10), "", 2)
		require.NoError(t, err)
		cal, err := NewCalibrator(m, b, 1)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err = cal.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCalibrator_Cache(t *testing.T) {
	m := testModel(t)

	t.Run("WriteThenReuse", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tiny.calib.json")

		b, err := NewBatcher(testSamples(t, 10), path, 4)
		require.NoError(t, err)
		cal, err := NewCalibrator(m, b, 1)
		require.NoError(t, err)

		first, cached, err := cal.Run(context.Background())
		require.NoError(t, err)
		require.False(t, cached)
		require.FileExists(t, path)

		// A fresh calibrator with the same inputs reuses the artifact.
		b2, err := NewBatcher(testSamples(t, 10), path, 4)
		require.NoError(t, err)
		cal2, err := NewCalibrator(m, b2, 1)
		require.NoError(t, err)

		second, cached, err := cal2.Run(context.Background())
		require.NoError(t, err)
		assert.True(t, cached)
		assert.Equal(t, first, second)
	})

	t.Run("FingerprintMismatchRecalibrates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tiny.calib.json")

		b, err := NewBatcher(testSamples(t, 10), path, 4)
		require.NoError(t, err)
		cal, err := NewCalibrator(m, b, 1)
		require.NoError(t, err)
		_, _, err = cal.Run(context.Background())
		require.NoError(t, err)

		// Different batch size changes the fingerprint.
		b2, err := NewBatcher(testSamples(t, 10), path, 5)
		require.NoError(t, err)
		cal2, err := NewCalibrator(m, b2, 1)
		require.NoError(t, err)

		_, cached, err := cal2.Run(context.Background())
		require.NoError(t, err)
		assert.False(t, cached)
	})

	t.Run("CorruptArtifactRecalibrates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tiny.calib.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		b, err := NewBatcher(testSamples(t, 10), path, 4)
		require.NoError(t, err)
		cal, err := NewCalibrator(m, b, 1)
		require.NoError(t, err)

		ranges, cached, err := cal.Run(context.Background())
		require.NoError(t, err)
		assert.False(t, cached)
		assert.NotEmpty(t, ranges)

		// The corrupt artifact was overwritten with a valid one.
		b2, err := NewBatcher(testSamples(t, 10), path, 4)
		require.NoError(t, err)
		cal2, err := NewCalibrator(m, b2, 1)
		require.NoError(t, err)
		_, cached, err = cal2.Run(context.Background())
		require.NoError(t, err)
		assert.True(t, cached)
	})

	t.Run("NoPathSkipsPersistence", func(t *testing.T) {
		b, err := NewBatcher(testSamples(t, 10), "", 4)
		require.NoError(t, err)
		cal, err := NewCalibrator(m, b, 1)
		require.NoError(t, err)

		_, cached, err := cal.Run(context.Background())
		require.NoError(t, err)
		assert.False(t, cached)
	})
}

func TestCalibrator_Fingerprint(t *testing.T) {
	m := testModel(t)

	b1, err := NewBatcher(testSamples(t, 10), "", 4)
	require.NoError(t, err)
	b2, err := NewBatcher(testSamples(t, 10), "", 4)
	require.NoError(t, err)

	cal1, err := NewCalibrator(m, b1, 1)
	require.NoError(t, err)
	cal2, err := NewCalibrator(m, b2, 1)
	require.NoError(t, err)

	assert.Equal(t, cal1.Fingerprint(), cal2.Fingerprint())

	cal3, err := NewCalibrator(m, b2, 2)
	require.NoError(t, err)
	assert.NotEqual(t, cal1.Fingerprint(), cal3.Fingerprint())
}
