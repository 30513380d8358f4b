package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/rmarkell/quantcal/internal/calib"
	"github.com/rmarkell/quantcal/internal/model"
)

// int8Levels is the magnitude of the symmetric int8 range [-127, 127].
// -128 is unused so the range stays symmetric around zero.
const int8Levels = 127

// Build errors.
var (
	ErrNilModel       = errors.New("engine model cannot be nil")
	ErrRangesRequired = errors.New("INT8 engines require a calibration configuration")
	ErrMissingRange   = errors.New("calibration range missing for tensor")
	ErrEmptyRange     = errors.New("calibration range is degenerate (all-zero)")
)

// Build compiles a model into an engine at the requested precision using
// the input shape descriptor and, for INT8, the calibrated ranges.
// FP32 and FP16 builds ignore ranges and may pass nil.
func Build(m *model.Model, ranges calib.Ranges, inputShape []int, precision model.Precision) (*Engine, error) {
	if m == nil {
		return nil, ErrNilModel
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("building engine: %w", err)
	}
	if precision == model.PrecisionINT8 && len(ranges) == 0 {
		return nil, ErrRangesRequired
	}

	if len(inputShape) == 0 {
		inputShape = m.InputShape
	}
	inputElems := 1
	for _, d := range inputShape {
		inputElems *= d
	}

	eng := &Engine{
		name:       m.Name,
		precision:  precision,
		inputShape: append([]int(nil), inputShape...),
		inputElems: inputElems,
		layers:     make([]compiledLayer, 0, len(m.Layers)),
	}

	// inputName tracks the observation name of each layer's input tensor,
	// which keys the activation range used to quantize it.
	inputName := model.InputTensorName
	for i := range m.Layers {
		layer := &m.Layers[i]

		switch layer.Kind {
		case model.KindFlatten:
			// Dense data is already flat; nothing to execute.
		case model.KindReLU:
			eng.layers = append(eng.layers, reluLayer{})
		case model.KindLinear:
			compiled, err := buildLinear(layer, ranges, inputName, precision)
			if err != nil {
				return nil, err
			}
			eng.layers = append(eng.layers, compiled)
		default:
			return nil, fmt.Errorf("building engine: %w: %q", model.ErrUnknownKind, layer.Kind)
		}

		inputName = layer.Name
	}

	return eng, nil
}

// buildLinear compiles one linear layer at the requested precision.
func buildLinear(
	layer *model.Layer,
	ranges calib.Ranges,
	inputName string,
	precision model.Precision,
) (compiledLayer, error) {
	quantize := precision == model.PrecisionINT8 && model.ShouldQuantize(layer.Name, layer.Kind)
	if !quantize {
		weights := layer.Weights
		if precision == model.PrecisionFP16 {
			weights = roundToFP16(weights)
		}
		return &fp32Linear{
			weights: weights,
			bias:    layer.Bias,
			inF:     layer.InFeatures,
			outF:    layer.OutFeatures,
		}, nil
	}

	inRange, ok := ranges[inputName]
	if !ok {
		return nil, fmt.Errorf("%w: %s (input of %s)", ErrMissingRange, inputName, layer.Name)
	}
	inScale := inRange.AbsMax() / int8Levels
	if inScale == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRange, inputName)
	}

	q := &int8Linear{
		inF:      layer.InFeatures,
		outF:     layer.OutFeatures,
		inScale:  inScale,
		bias:     layer.Bias,
		weights:  make([]int8, len(layer.Weights)),
		rowScale: make([]float32, layer.OutFeatures),
	}

	for row := 0; row < layer.OutFeatures; row++ {
		w := layer.Weights[row*layer.InFeatures : (row+1)*layer.InFeatures]
		absMax := float32(0)
		for _, v := range w {
			if a := float32(math.Abs(float64(v))); a > absMax {
				absMax = a
			}
		}

		scale := absMax / int8Levels
		q.rowScale[row] = scale
		if scale == 0 {
			continue // All-zero row quantizes to zeros.
		}
		for col, v := range w {
			q.weights[row*layer.InFeatures+col] = quantizeValue(v, scale)
		}
	}

	return q, nil
}

// quantizeValue rounds v to the nearest int8 step at the given scale,
// clamping to the symmetric range.
func quantizeValue(v, scale float32) int8 {
	q := math.RoundToEven(float64(v / scale))
	if q > int8Levels {
		q = int8Levels
	}
	if q < -int8Levels {
		q = -int8Levels
	}
	return int8(q)
}

// roundToFP16 returns weights rounded through IEEE 754 half precision,
// simulating an FP16 engine on float32 hardware.
func roundToFP16(weights []float32) []float32 {
	out := make([]float32, len(weights))
	for i, v := range weights {
		out[i] = fp16Round(v)
	}
	return out
}

// fp16Round rounds a float32 to the nearest representable half-precision
// value (round-to-nearest-even), preserving infinities and rounding the
// subnormal range to multiples of 2^-24.
func fp16Round(v float32) float32 {
	const (
		// overflowFP16 is the rounding threshold for infinity: values in
		// (65504, 65520) round back to the max finite half, 65520 and up
		// round to the next binade and overflow.
		overflowFP16 = 65520

		minNormFP16  = 0x1p-14
		subnormUnit  = 0x1p-24
		mantissaMask = 0x1fff // Low 13 float32 mantissa bits dropped by fp16.
	)

	switch {
	case v != v: // NaN
		return v
	case v >= overflowFP16:
		return float32(math.Inf(1))
	case v <= -overflowFP16:
		return float32(math.Inf(-1))
	}

	abs := math.Abs(float64(v))
	if abs < minNormFP16 {
		steps := math.RoundToEven(abs / subnormUnit)
		rounded := float32(steps * subnormUnit)
		if v < 0 {
			return -rounded
		}
		return rounded
	}

	bits := math.Float32bits(v)
	mant := bits & mantissaMask
	bits &^= mantissaMask
	// Round half to even on the dropped mantissa bits.
	if mant > 0x1000 || (mant == 0x1000 && bits&0x2000 != 0) {
		bits += 0x2000
	}
	return math.Float32frombits(bits)
}
