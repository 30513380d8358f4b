package dataset

import (
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// IDX file magic numbers (big-endian, per the MNIST distribution format).
const (
	idxMagicLabels = 0x00000801
	idxMagicImages = 0x00000803
)

// Bounds on what a header may declare, guarding against corrupt headers
// allocating unbounded memory.
const (
	// maxIDXCount caps the declared item count.
	maxIDXCount = 10_000_000

	// maxIDXDim caps each image dimension. MNIST-style files are 28x28.
	maxIDXDim = 1 << 14

	// maxIDXBytes caps the total pixel payload one file may declare.
	maxIDXBytes = 1 << 30
)

// IDX decoding errors.
var (
	ErrBadMagic             = errors.New("unrecognized IDX magic number")
	ErrTruncated            = errors.New("IDX payload shorter than header declares")
	ErrCountTooBig          = errors.New("IDX item count exceeds sane bounds")
	ErrDimensionsOutOfRange = errors.New("IDX image dimensions exceed sane bounds")
	ErrCountMismatch        = errors.New("image and label counts differ")
)

// LoadImagePool reads an IDX image file and its matching label file into a
// labeled pool. Pixels are normalized from [0,255] to [0,1]. Files ending in
// .gz are transparently decompressed.
func LoadImagePool(imagePath, labelPath string) (*Pool, error) {
	samples, err := loadImages(imagePath)
	if err != nil {
		return nil, fmt.Errorf("loading images from %s: %w", imagePath, err)
	}

	labels, err := loadLabels(labelPath)
	if err != nil {
		return nil, fmt.Errorf("loading labels from %s: %w", labelPath, err)
	}

	if len(samples) != len(labels) {
		return nil, fmt.Errorf("%w: %d images, %d labels",
			ErrCountMismatch, len(samples), len(labels))
	}

	return NewPool(samples, labels)
}

// LoadImages reads an IDX image file into an unlabeled pool. Calibration
// does not need labels; evaluation does.
func LoadImages(imagePath string) (*Pool, error) {
	samples, err := loadImages(imagePath)
	if err != nil {
		return nil, fmt.Errorf("loading images from %s: %w", imagePath, err)
	}
	return NewPool(samples, nil)
}

// loadImages decodes an idx3-ubyte image file into normalized tensors.
func loadImages(path string) ([]*Tensor, error) {
	r, closeFn, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var header struct {
		Magic uint32
		Count uint32
		Rows  uint32
		Cols  uint32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("reading image header: %w", err)
	}
	if header.Magic != idxMagicImages {
		return nil, fmt.Errorf("%w: 0x%08x", ErrBadMagic, header.Magic)
	}
	if header.Count > maxIDXCount {
		return nil, fmt.Errorf("%w: %d", ErrCountTooBig, header.Count)
	}
	if header.Rows == 0 || header.Cols == 0 || header.Rows > maxIDXDim || header.Cols > maxIDXDim {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensionsOutOfRange, header.Rows, header.Cols)
	}

	// Both factors are bounded above, so the products cannot overflow.
	pixelsPerImage := int(header.Rows) * int(header.Cols)
	totalBytes := int64(header.Count) * int64(pixelsPerImage)
	if totalBytes > maxIDXBytes {
		return nil, fmt.Errorf("%w: %d images of %dx%d pixels",
			ErrCountTooBig, header.Count, header.Rows, header.Cols)
	}

	raw := make([]byte, totalBytes)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}

	shape := []int{1, int(header.Rows), int(header.Cols)}
	samples := make([]*Tensor, header.Count)
	for i := range samples {
		data := make([]float32, pixelsPerImage)
		for j, px := range raw[i*pixelsPerImage : (i+1)*pixelsPerImage] {
			data[j] = float32(px) / 255.0
		}
		t, err := NewTensor(shape, data)
		if err != nil {
			return nil, err
		}
		samples[i] = t
	}

	return samples, nil
}

// loadLabels decodes an idx1-ubyte label file.
func loadLabels(path string) ([]int, error) {
	r, closeFn, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var header struct {
		Magic uint32
		Count uint32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("reading label header: %w", err)
	}
	if header.Magic != idxMagicLabels {
		return nil, fmt.Errorf("%w: 0x%08x", ErrBadMagic, header.Magic)
	}
	if header.Count > maxIDXCount {
		return nil, fmt.Errorf("%w: %d", ErrCountTooBig, header.Count)
	}

	raw := make([]byte, header.Count)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}

	labels := make([]int, header.Count)
	for i, b := range raw {
		labels[i] = int(b)
	}
	return labels, nil
}

// openIDX opens an IDX file, wrapping it in a gzip reader when the path has
// a .gz suffix. The returned closeFn closes both readers.
func openIDX(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	if !strings.HasSuffix(path, ".gz") {
		return f, func() { _ = f.Close() }, nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("opening gzip stream: %w", err)
	}

	return gz, func() {
		_ = gz.Close()
		_ = f.Close()
	}, nil
}
