package calib

import (
	"math"
)

// Int8Bits is the bit width recorded for int8 quantization ranges.
const Int8Bits = 8

// TensorRange is the calibrated numeric range for one named tensor,
// together with the target bit width.
type TensorRange struct {
	Min  float32 `json:"min"`
	Max  float32 `json:"max"`
	Bits int     `json:"bits"`
}

// AbsMax returns the larger magnitude of the two bounds. Symmetric int8
// quantization derives its scale from this value.
func (r TensorRange) AbsMax() float32 {
	lo := float32(math.Abs(float64(r.Min)))
	hi := float32(math.Abs(float64(r.Max)))
	if lo > hi {
		return lo
	}
	return hi
}

// Ranges maps tensor names to their calibrated quantization ranges. This is
// the calibration configuration consumed by the engine builder and the
// payload persisted in the calibration cache.
type Ranges map[string]TensorRange

// RangeObserver accumulates running min/max statistics for one tensor
// across calibration batches.
type RangeObserver struct {
	// Name is the observed tensor's name.
	Name string

	min  float32
	max  float32
	seen bool
}

// NewRangeObserver creates an observer for the named tensor.
func NewRangeObserver(name string) *RangeObserver {
	return &RangeObserver{Name: name}
}

// Observe folds a slice of activation values into the running range.
// Empty slices are ignored.
func (o *RangeObserver) Observe(values []float32) {
	for _, v := range values {
		if !o.seen {
			o.min, o.max = v, v
			o.seen = true
			continue
		}
		if v < o.min {
			o.min = v
		}
		if v > o.max {
			o.max = v
		}
	}
}

// Seen reports whether any value has been observed.
func (o *RangeObserver) Seen() bool {
	return o.seen
}

// Range returns the observed range at int8 bit width. The zero range is
// returned when nothing was observed.
func (o *RangeObserver) Range() TensorRange {
	return TensorRange{Min: o.min, Max: o.max, Bits: Int8Bits}
}
