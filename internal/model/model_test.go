package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmarkell/quantcal/internal/dataset"
)

// validModel builds a minimal valid two-linear-layer model.
func validModel() *Model {
	return &Model{
		Name:          "tiny",
		FormatVersion: "1.0.0",
		InputShape:    []int{1, 2, 2},
		Layers: []Layer{
			{Name: "flatten", Kind: KindFlatten},
			{
				Name: "fc1", Kind: KindLinear, InFeatures: 4, OutFeatures: 2,
				Weights: []float32{
					1, 0, 0, 0,
					0, 1, 0, 0,
				},
				Bias: []float32{0.5, -0.5},
			},
			{Name: "relu1", Kind: KindReLU},
			{
				Name: "fc2", Kind: KindLinear, InFeatures: 2, OutFeatures: 2,
				Weights: []float32{
					2, 0,
					0, 3,
				},
			},
		},
	}
}

func TestModel_Validate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		require.NoError(t, validModel().Validate())
	})

	t.Run("NoLayers", func(t *testing.T) {
		m := validModel()
		m.Layers = nil
		assert.ErrorIs(t, m.Validate(), ErrNoLayers)
	})

	t.Run("NoInputShape", func(t *testing.T) {
		m := validModel()
		m.InputShape = nil
		assert.ErrorIs(t, m.Validate(), ErrNoInputShape)
	})

	t.Run("UnknownKind", func(t *testing.T) {
		m := validModel()
		m.Layers[0].Kind = "conv2d"
		assert.ErrorIs(t, m.Validate(), ErrUnknownKind)
	})

	t.Run("FeatureChainBreak", func(t *testing.T) {
		m := validModel()
		m.Layers[3].InFeatures = 7
		assert.ErrorIs(t, m.Validate(), ErrFeatureChain)
	})

	t.Run("WeightShape", func(t *testing.T) {
		m := validModel()
		m.Layers[1].Weights = m.Layers[1].Weights[:5]
		assert.ErrorIs(t, m.Validate(), ErrWeightShape)
	})

	t.Run("BiasShape", func(t *testing.T) {
		m := validModel()
		m.Layers[1].Bias = []float32{1}
		assert.ErrorIs(t, m.Validate(), ErrBiasShape)
	})

	t.Run("DuplicateName", func(t *testing.T) {
		m := validModel()
		m.Layers[2].Name = "fc1"
		assert.ErrorIs(t, m.Validate(), ErrDuplicateLayer)
	})
}

func TestModel_Forward(t *testing.T) {
	m := validModel()
	require.NoError(t, m.Validate())

	t.Run("ComputesExpectedOutput", func(t *testing.T) {
		in, err := dataset.NewTensor([]int{1, 2, 2}, []float32{1, 2, 3, 4})
		require.NoError(t, err)

		out, err := m.Forward(in, nil)
		require.NoError(t, err)
		require.Equal(t, 2, out.Elems())

		// fc1: [1+0.5, 2-0.5] = [1.5, 1.5]; relu no-op; fc2: [3, 4.5].
		assert.InDelta(t, 3.0, out.Data[0], 1e-5)
		assert.InDelta(t, 4.5, out.Data[1], 1e-5)
	})

	t.Run("ReLUClampsNegatives", func(t *testing.T) {
		in, err := dataset.NewTensor([]int{1, 2, 2}, []float32{0, 0, 0, 0})
		require.NoError(t, err)

		out, err := m.Forward(in, nil)
		require.NoError(t, err)

		// fc1 yields [0.5, -0.5]; relu floors to [0.5, 0]; fc2 gives [1, 0].
		assert.InDelta(t, 1.0, out.Data[0], 1e-5)
		assert.InDelta(t, 0.0, out.Data[1], 1e-5)
	})

	t.Run("ObservationOrderAndNames", func(t *testing.T) {
		in, err := dataset.NewTensor([]int{1, 2, 2}, []float32{1, 2, 3, 4})
		require.NoError(t, err)

		var names []string
		_, err = m.Forward(in, func(name string, _ []float32) {
			names = append(names, name)
		})
		require.NoError(t, err)
		assert.Equal(t, []string{InputTensorName, "flatten", "fc1", "relu1", "fc2"}, names)
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		in, err := dataset.NewTensor([]int{3}, []float32{1, 2, 3})
		require.NoError(t, err)

		_, err = m.Forward(in, nil)
		assert.ErrorIs(t, err, ErrInputShape)
	})
}

func TestModel_OutputFeatures(t *testing.T) {
	assert.Equal(t, 2, validModel().OutputFeatures())
}
