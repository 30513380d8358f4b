// Package model loads pretrained image-classification models from quantcal
// manifest files and provides the float32 reference forward pass used for
// calibration and baseline evaluation.
package model

import (
	"errors"
	"fmt"

	"github.com/rmarkell/quantcal/internal/dataset"
)

// LayerKind identifies a layer operator.
type LayerKind string

// Supported layer operators.
const (
	KindFlatten LayerKind = "flatten"
	KindLinear  LayerKind = "linear"
	KindReLU    LayerKind = "relu"
)

// Model validation errors.
var (
	ErrNoLayers       = errors.New("model has no layers")
	ErrNoInputShape   = errors.New("model has no input shape")
	ErrUnknownKind    = errors.New("unknown layer kind")
	ErrWeightShape    = errors.New("linear layer weight length does not match features")
	ErrBiasShape      = errors.New("linear layer bias length does not match out features")
	ErrFeatureChain   = errors.New("layer input features do not match previous layer output")
	ErrDuplicateLayer = errors.New("duplicate layer name")
	ErrInputShape     = errors.New("input tensor shape does not match model input shape")
)

// Layer is one operator in a sequential model. Linear layers carry row-major
// weights of shape [OutFeatures][InFeatures] and an optional bias.
type Layer struct {
	Name        string    `json:"name"`
	Kind        LayerKind `json:"kind"`
	InFeatures  int       `json:"in_features,omitempty"`
	OutFeatures int       `json:"out_features,omitempty"`
	Weights     []float32 `json:"weights,omitempty"`
	Bias        []float32 `json:"bias,omitempty"`
}

// Model is a sequential image-classification network loaded from a manifest.
type Model struct {
	Name          string  `json:"name"`
	FormatVersion string  `json:"format_version"`
	InputShape    []int   `json:"input_shape"`
	Layers        []Layer `json:"layers"`
}

// Validate checks layer kinds, weight shapes, and the feature chain from
// the input shape through every linear layer.
func (m *Model) Validate() error {
	if len(m.Layers) == 0 {
		return ErrNoLayers
	}
	if len(m.InputShape) == 0 {
		return ErrNoInputShape
	}

	features := 1
	for _, d := range m.InputShape {
		features *= d
	}

	seen := make(map[string]bool, len(m.Layers))
	for _, layer := range m.Layers {
		if seen[layer.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateLayer, layer.Name)
		}
		seen[layer.Name] = true

		switch layer.Kind {
		case KindFlatten, KindReLU:
			// Shape-preserving in feature count.
		case KindLinear:
			if layer.InFeatures != features {
				return fmt.Errorf("%w: layer %s expects %d inputs, chain provides %d",
					ErrFeatureChain, layer.Name, layer.InFeatures, features)
			}
			if len(layer.Weights) != layer.InFeatures*layer.OutFeatures {
				return fmt.Errorf("%w: layer %s has %d weights for %dx%d",
					ErrWeightShape, layer.Name, len(layer.Weights), layer.OutFeatures, layer.InFeatures)
			}
			if layer.Bias != nil && len(layer.Bias) != layer.OutFeatures {
				return fmt.Errorf("%w: layer %s has %d bias values for %d outputs",
					ErrBiasShape, layer.Name, len(layer.Bias), layer.OutFeatures)
			}
			features = layer.OutFeatures
		default:
			return fmt.Errorf("%w: %q in layer %s", ErrUnknownKind, layer.Kind, layer.Name)
		}
	}

	return nil
}

// OutputFeatures returns the width of the model's final output vector.
func (m *Model) OutputFeatures() int {
	features := 1
	for _, d := range m.InputShape {
		features *= d
	}
	for _, layer := range m.Layers {
		if layer.Kind == KindLinear {
			features = layer.OutFeatures
		}
	}
	return features
}

// ObserveFunc receives the named activations produced while a sample flows
// through the model. Calibration hooks observers in; inference passes nil.
type ObserveFunc func(name string, values []float32)

// InputTensorName is the observation name for the raw model input.
const InputTensorName = "input"

// Forward runs the float32 reference forward pass for one sample.
// When observe is non-nil it is called with the model input and with every
// layer output, keyed by layer name.
func (m *Model) Forward(in *dataset.Tensor, observe ObserveFunc) (*dataset.Tensor, error) {
	if in.Elems() != m.inputElems() {
		return nil, fmt.Errorf("%w: model wants %v, got %v", ErrInputShape, m.InputShape, in.Shape)
	}

	values := in.Data
	if observe != nil {
		observe(InputTensorName, values)
	}

	for i := range m.Layers {
		layer := &m.Layers[i]
		switch layer.Kind {
		case KindFlatten:
			// Dense row-major data is already flat.
		case KindReLU:
			out := make([]float32, len(values))
			for j, v := range values {
				if v > 0 {
					out[j] = v
				}
			}
			values = out
		case KindLinear:
			out := make([]float32, layer.OutFeatures)
			for row := 0; row < layer.OutFeatures; row++ {
				sum := float32(0)
				w := layer.Weights[row*layer.InFeatures : (row+1)*layer.InFeatures]
				for col, x := range values {
					sum += w[col] * x
				}
				if layer.Bias != nil {
					sum += layer.Bias[row]
				}
				out[row] = sum
			}
			values = out
		default:
			return nil, fmt.Errorf("%w: %q in layer %s", ErrUnknownKind, layer.Kind, layer.Name)
		}

		if observe != nil {
			observe(layer.Name, values)
		}
	}

	return dataset.NewTensor([]int{len(values)}, values)
}

// inputElems returns the element count the input shape implies.
func (m *Model) inputElems() int {
	elems := 1
	for _, d := range m.InputShape {
		elems *= d
	}
	return elems
}
