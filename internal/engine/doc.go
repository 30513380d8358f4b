// Package engine builds accelerated inference engines from a loaded model
// and a calibration configuration.
//
// Building compiles the model's layer list into a flat slice of executable
// layers. At INT8 precision, eligible linear layers are quantized
// symmetrically: weights get a per-row scale, activations get a per-tensor
// scale derived from the calibrated range, and accumulation runs in int32.
// FP16 simulates half precision by rounding weights; FP32 is the unmodified
// baseline.
//
// A built engine is immutable and safe for concurrent Inference calls.
package engine
