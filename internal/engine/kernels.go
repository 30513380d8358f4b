package engine

import (
	"github.com/klauspost/cpuid/v2"
)

// dotInt8 is the int8 dot-product kernel, selected once at startup.
// On AVX2-capable CPUs the unrolled variant is used; its independent
// accumulators keep the loop free of cross-iteration dependencies.
//
//nolint:gochecknoglobals // Kernel selection happens once, before any inference.
var dotInt8 = dotInt8Generic

//nolint:gochecknoinits // CPU feature detection must run before first inference.
func init() {
	if cpuid.CPU.Has(cpuid.AVX2) {
		dotInt8 = dotInt8Unrolled
	}
}

// dotInt8Generic is the portable scalar kernel.
func dotInt8Generic(x, w []int8) int32 {
	var acc int32
	for i := range x {
		acc += int32(x[i]) * int32(w[i])
	}
	return acc
}

// dotInt8Unrolled accumulates four independent partial sums.
func dotInt8Unrolled(x, w []int8) int32 {
	var a0, a1, a2, a3 int32
	i := 0
	for ; i+4 <= len(x); i += 4 {
		a0 += int32(x[i]) * int32(w[i])
		a1 += int32(x[i+1]) * int32(w[i+1])
		a2 += int32(x[i+2]) * int32(w[i+2])
		a3 += int32(x[i+3]) * int32(w[i+3])
	}
	for ; i < len(x); i++ {
		a0 += int32(x[i]) * int32(w[i])
	}
	return a0 + a1 + a2 + a3
}

// reluLayer clamps negatives to zero.
type reluLayer struct{}

func (reluLayer) forward(in []float32) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		if v > 0 {
			out[i] = v
		}
	}
	return out
}

// fp32Linear is a full-precision (or FP16-rounded) linear layer.
type fp32Linear struct {
	weights []float32
	bias    []float32
	inF     int
	outF    int
}

func (l *fp32Linear) forward(in []float32) []float32 {
	out := make([]float32, l.outF)
	for row := 0; row < l.outF; row++ {
		w := l.weights[row*l.inF : (row+1)*l.inF]
		var sum float32
		for col, x := range in {
			sum += w[col] * x
		}
		if l.bias != nil {
			sum += l.bias[row]
		}
		out[row] = sum
	}
	return out
}

// int8Linear is a symmetrically quantized linear layer: per-tensor input
// scale, per-row weight scales, int32 accumulation, float32 bias add.
type int8Linear struct {
	weights  []int8
	rowScale []float32
	bias     []float32
	inScale  float32
	inF      int
	outF     int
}

func (l *int8Linear) forward(in []float32) []float32 {
	// Quantize the activation once per call.
	qin := make([]int8, len(in))
	for i, v := range in {
		qin[i] = quantizeValue(v, l.inScale)
	}

	out := make([]float32, l.outF)
	for row := 0; row < l.outF; row++ {
		w := l.weights[row*l.inF : (row+1)*l.inF]
		acc := dotInt8(qin, w)
		sum := float32(acc) * l.inScale * l.rowScale[row]
		if l.bias != nil {
			sum += l.bias[row]
		}
		out[row] = sum
	}
	return out
}
