// Package cache persists calibration artifacts between runs.
//
// A calibration sweep over a large sample pool is expensive; its result (the
// per-tensor quantization ranges) is tiny. This package stores that result
// as a JSON artifact at a caller-chosen path so later runs against the same
// model and pool skip the sweep entirely. Entries carry a fingerprint of the
// inputs that produced them; a mismatching fingerprint is treated as a miss
// and the artifact is overwritten by the next run.
//
// Writes go through a temporary file and rename so a crashed run never
// leaves a half-written artifact behind.
package cache
