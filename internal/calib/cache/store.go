package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Common cache errors.
var (
	ErrNotFound    = errors.New("calibration cache artifact not found")
	ErrCorrupt     = errors.New("calibration cache artifact is not valid JSON")
	ErrInvalidPath = errors.New("cache path cannot be empty")
)

// Store reads and writes calibration artifacts keyed by file path.
// The zero value is usable.
type Store struct{}

// NewStore creates a calibration cache store.
func NewStore() *Store {
	return &Store{}
}

// Read loads the artifact at path. Returns ErrNotFound when no artifact
// exists and ErrCorrupt when the file cannot be decoded; callers treat both
// as a cache miss and recalibrate.
func (s *Store) Read(path string) (*Entry, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading cache artifact: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return &entry, nil
}

// Write persists the entry at path, creating parent directories as needed.
// An existing artifact is overwritten. The write is atomic: data lands in a
// temporary file that is renamed into place.
func (s *Store) Write(path string, entry *Entry) error {
	if path == "" {
		return ErrInvalidPath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating cache directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache artifact: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return fmt.Errorf("writing cache artifact: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming cache artifact: %w", err)
	}

	return nil
}

// Remove deletes the artifact at path. Removing a missing artifact is not
// an error.
func (s *Store) Remove(path string) error {
	if path == "" {
		return ErrInvalidPath
	}

	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cache artifact: %w", err)
	}
	return nil
}

// Stat returns the artifact's size in bytes, or ErrNotFound.
func (s *Store) Stat(path string) (int64, error) {
	if path == "" {
		return 0, ErrInvalidPath
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("statting cache artifact: %w", err)
	}
	return info.Size(), nil
}
