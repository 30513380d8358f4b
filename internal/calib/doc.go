// Package calib implements post-training quantization calibration.
//
// Calibration determines the numeric range each quantizable tensor occupies
// when representative data flows through the model. The package provides:
//   - Batcher: partitions a fixed sample pool into deterministic fixed-size
//     batches and carries the calibration cache path for the backend
//   - RangeObserver: running min/max statistics per tensor
//   - Calibrator: drives full passes over the batcher, forward-propagating
//     batches and persisting the resulting ranges at the cache path
//
// Batches preserve input order and batching is restartable via Reset, so a
// calibration backend can sweep the pool any number of times and always see
// the identical sequence.
package calib
