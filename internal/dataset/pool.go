package dataset

import (
	"errors"
	"fmt"
)

// Pool construction and split errors.
var (
	ErrEmptyPool        = errors.New("sample pool cannot be empty")
	ErrLabelCount       = errors.New("label count does not match sample count")
	ErrRaggedPool       = errors.New("all samples in a pool must share one shape")
	ErrInvalidSplitSize = errors.New("split size must be between 1 and pool length")
)

// Pool is an ordered, immutable collection of fixed-shape samples,
// optionally paired with integer class labels. Once built, callers must
// not mutate Samples or Labels; iteration order is the load order.
type Pool struct {
	// Samples are the pool tensors, all of identical shape.
	Samples []*Tensor

	// Labels holds one class label per sample. Nil for unlabeled pools.
	Labels []int
}

// NewPool builds a pool from samples and optional labels.
// Labels may be nil; when present their count must match the samples.
func NewPool(samples []*Tensor, labels []int) (*Pool, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyPool
	}
	if labels != nil && len(labels) != len(samples) {
		return nil, fmt.Errorf("%w: %d samples, %d labels",
			ErrLabelCount, len(samples), len(labels))
	}

	for i, s := range samples[1:] {
		if !samples[0].SameShape(s) {
			return nil, fmt.Errorf("%w: sample 0 has shape %v, sample %d has shape %v",
				ErrRaggedPool, samples[0].Shape, i+1, s.Shape)
		}
	}

	return &Pool{Samples: samples, Labels: labels}, nil
}

// Len returns the number of samples in the pool.
func (p *Pool) Len() int {
	return len(p.Samples)
}

// SampleShape returns the shape shared by all samples.
func (p *Pool) SampleShape() []int {
	return p.Samples[0].Shape
}

// Labeled reports whether the pool carries class labels.
func (p *Pool) Labeled() bool {
	return p.Labels != nil
}

// Split carves the first n samples into a calibration pool and returns
// the remainder as an evaluation pool. Order is preserved in both halves.
// n must leave at least one sample in each half.
func (p *Pool) Split(n int) (head, tail *Pool, err error) {
	if n < 1 || n >= p.Len() {
		return nil, nil, fmt.Errorf("%w: got %d for pool of %d", ErrInvalidSplitSize, n, p.Len())
	}

	var headLabels, tailLabels []int
	if p.Labels != nil {
		headLabels = p.Labels[:n]
		tailLabels = p.Labels[n:]
	}

	head = &Pool{Samples: p.Samples[:n], Labels: headLabels}
	tail = &Pool{Samples: p.Samples[n:], Labels: tailLabels}
	return head, tail, nil
}

// Take returns a pool holding at most n leading samples. Used to bound
// evaluation runs; returns the pool unchanged when it is already small enough.
func (p *Pool) Take(n int) *Pool {
	if n <= 0 || n >= p.Len() {
		return p
	}
	var labels []int
	if p.Labels != nil {
		labels = p.Labels[:n]
	}
	return &Pool{Samples: p.Samples[:n], Labels: labels}
}
