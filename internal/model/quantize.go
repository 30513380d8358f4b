package model

import (
	"errors"
	"strings"
)

// Precision is the numeric precision an engine runs at.
type Precision string

// Supported engine precisions.
const (
	PrecisionINT8 Precision = "INT8"
	PrecisionFP16 Precision = "FP16"
	PrecisionFP32 Precision = "FP32"
)

// ErrUnknownPrecision is returned for precision strings outside the
// supported set.
var ErrUnknownPrecision = errors.New("unknown precision (want INT8, FP16, or FP32)")

// ParsePrecision parses a case-insensitive precision string.
func ParsePrecision(s string) (Precision, error) {
	switch Precision(strings.ToUpper(s)) {
	case PrecisionINT8:
		return PrecisionINT8, nil
	case PrecisionFP16:
		return PrecisionFP16, nil
	case PrecisionFP32:
		return PrecisionFP32, nil
	default:
		return "", ErrUnknownPrecision
	}
}

// ShouldQuantize reports whether a layer's weights should be quantized.
// Only linear weights quantize; normalization and embedding layers keep
// full precision, as do biases (handled separately by the engine builder).
func ShouldQuantize(name string, kind LayerKind) bool {
	if kind != KindLinear {
		return false
	}

	lower := strings.ToLower(name)
	if strings.Contains(lower, "norm") || strings.Contains(lower, "ln_") {
		return false
	}
	if strings.Contains(lower, "embed") {
		return false
	}

	return true
}

// QuantizableLayers returns the names of the model's layers eligible for
// quantization, in network order.
func (m *Model) QuantizableLayers() []string {
	var names []string
	for _, layer := range m.Layers {
		if ShouldQuantize(layer.Name, layer.Kind) {
			names = append(names, layer.Name)
		}
	}
	return names
}
