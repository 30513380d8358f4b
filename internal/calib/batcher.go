package calib

import (
	"errors"
	"fmt"
)

// DefaultBatchSize is the batch size used when the configuration does not
// override it.
const DefaultBatchSize = 32

// Common batcher errors.
var (
	ErrInvalidBatchSize = errors.New("batch size must be a positive integer")
	ErrEmptyPool        = errors.New("sample pool cannot be empty")
	ErrExhausted        = errors.New("sample pool exhausted, call Reset before iterating again")
)

// Batcher partitions a fixed pool of calibration samples into contiguous
// fixed-size batches. The last batch may be shorter when the pool length is
// not a multiple of the batch size. Iteration is sequential, deterministic,
// and restartable via Reset; the pool is never copied or reordered.
//
// The batcher also carries the calibration cache path so the consuming
// backend can persist and reuse computed ranges. The batcher itself never
// opens that file.
//
// Not safe for concurrent use; the cursor is owned by a single caller.
type Batcher[T any] struct {
	// pool is the ordered, immutable sample pool.
	pool []T

	// cachePath is where the calibration backend persists its artifact.
	cachePath string

	// batchSize is the number of samples per batch.
	batchSize int

	// cursor is the index of the next sample to hand out.
	cursor int
}

// NewBatcher creates a batcher over pool with the given batch size.
// Returns ErrInvalidBatchSize when batchSize <= 0 and ErrEmptyPool when the
// pool has no samples.
func NewBatcher[T any](pool []T, cachePath string, batchSize int) (*Batcher[T], error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	return &Batcher[T]{
		pool:      pool,
		cachePath: cachePath,
		batchSize: batchSize,
	}, nil
}

// NextBatch returns the next batch in order. Batches are views into the
// pool, not copies. Returns ErrExhausted once every sample has been handed
// out; callers reset before running another pass.
func (b *Batcher[T]) NextBatch() ([]T, error) {
	if b.cursor >= len(b.pool) {
		return nil, ErrExhausted
	}

	end := b.cursor + b.batchSize
	if end > len(b.pool) {
		end = len(b.pool)
	}

	batch := b.pool[b.cursor:end]
	b.cursor = end
	return batch, nil
}

// Reset rewinds iteration to the first batch. A subsequent full pass yields
// the identical batch sequence as the first.
func (b *Batcher[T]) Reset() {
	b.cursor = 0
}

// CachePath returns the configured calibration cache path. Informational
// only; no I/O is performed.
func (b *Batcher[T]) CachePath() string {
	return b.cachePath
}

// BatchSize returns the configured batch size.
func (b *Batcher[T]) BatchSize() int {
	return b.batchSize
}

// PoolLen returns the total number of samples in the pool.
func (b *Batcher[T]) PoolLen() int {
	return len(b.pool)
}

// NumBatches returns the number of batches in one full pass,
// ceil(PoolLen / BatchSize).
func (b *Batcher[T]) NumBatches() int {
	n := len(b.pool) / b.batchSize
	if len(b.pool)%b.batchSize > 0 {
		n++
	}
	return n
}
