package dataset

import (
	"errors"
	"fmt"
)

// Common tensor construction errors.
var (
	ErrEmptyShape    = errors.New("tensor shape cannot be empty")
	ErrShapeMismatch = errors.New("tensor data length does not match shape")
	ErrBadDimension  = errors.New("tensor dimensions must be positive")
)

// Tensor is a fixed-shape, dense float32 tensor. Samples in a Pool are
// tensors of identical shape; the shape is immutable after construction.
type Tensor struct {
	// Shape holds the tensor dimensions, outermost first (e.g. [1 28 28]).
	Shape []int

	// Data holds the elements in row-major order.
	Data []float32
}

// NewTensor creates a tensor from a shape and row-major data.
// The data length must equal the product of the dimensions.
func NewTensor(shape []int, data []float32) (*Tensor, error) {
	if len(shape) == 0 {
		return nil, ErrEmptyShape
	}

	elems := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("%w: got %v", ErrBadDimension, shape)
		}
		elems *= d
	}

	if len(data) != elems {
		return nil, fmt.Errorf("%w: shape %v needs %d elements, got %d",
			ErrShapeMismatch, shape, elems, len(data))
	}

	return &Tensor{
		Shape: append([]int(nil), shape...),
		Data:  data,
	}, nil
}

// Elems returns the total element count.
func (t *Tensor) Elems() int {
	return len(t.Data)
}

// SameShape reports whether t and other have identical shapes.
func (t *Tensor) SameShape(other *Tensor) bool {
	if len(t.Shape) != len(other.Shape) {
		return false
	}
	for i, d := range t.Shape {
		if other.Shape[i] != d {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	data := make([]float32, len(t.Data))
	copy(data, t.Data)
	return &Tensor{
		Shape: append([]int(nil), t.Shape...),
		Data:  data,
	}
}

// ArgMax returns the index of the largest element.
// Ties resolve to the lowest index.
func (t *Tensor) ArgMax() int {
	best := 0
	for i, v := range t.Data {
		if v > t.Data[best] {
			best = i
		}
	}
	return best
}
