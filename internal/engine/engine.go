package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/rmarkell/quantcal/internal/dataset"
	"github.com/rmarkell/quantcal/internal/model"
)

// ErrInputShape is returned when an inference input does not match the
// engine's input shape descriptor.
var ErrInputShape = errors.New("input tensor does not match engine input shape")

// compiledLayer is one executable operator in a built engine.
type compiledLayer interface {
	forward(in []float32) []float32
}

// Engine is a compiled, precision-specialized representation of a model.
// Engines are immutable after Build and safe for concurrent use.
type Engine struct {
	name       string
	precision  model.Precision
	inputShape []int
	inputElems int
	layers     []compiledLayer
}

// Name returns the source model's name.
func (e *Engine) Name() string {
	return e.name
}

// Precision returns the precision the engine runs at.
func (e *Engine) Precision() model.Precision {
	return e.precision
}

// InputShape returns the engine's input shape descriptor.
func (e *Engine) InputShape() []int {
	return e.inputShape
}

// Inference executes the engine on one input and returns the output tensor
// together with the elapsed wall time of the forward pass.
func (e *Engine) Inference(in *dataset.Tensor) (*dataset.Tensor, time.Duration, error) {
	if in.Elems() != e.inputElems {
		return nil, 0, fmt.Errorf("%w: engine wants %v, got %v", ErrInputShape, e.inputShape, in.Shape)
	}

	start := time.Now()
	values := in.Data
	for _, layer := range e.layers {
		values = layer.forward(values)
	}
	elapsed := time.Since(start)

	out, err := dataset.NewTensor([]int{len(values)}, values)
	if err != nil {
		return nil, 0, err
	}
	return out, elapsed, nil
}
