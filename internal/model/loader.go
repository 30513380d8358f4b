package model

import (
	"errors"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-json"
)

// FormatConstraint is the manifest format range this build understands.
// Manifests written by a future major revision are rejected rather than
// misread.
const FormatConstraint = "^1"

// Manifest loading errors.
var (
	ErrBadFormatVersion   = errors.New("manifest format_version is not valid semver")
	ErrUnsupportedVersion = errors.New("manifest format_version is not supported by this build")
)

// Load reads, decodes, and validates a model manifest from path.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model manifest %s: %w", path, err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding model manifest %s: %w", path, err)
	}

	if err := checkFormatVersion(m.FormatVersion); err != nil {
		return nil, err
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validating model %s: %w", m.Name, err)
	}

	return &m, nil
}

// checkFormatVersion verifies the manifest version satisfies FormatConstraint.
func checkFormatVersion(ver string) error {
	v, err := semver.NewVersion(ver)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadFormatVersion, ver)
	}

	constraint, err := semver.NewConstraint(FormatConstraint)
	if err != nil {
		return fmt.Errorf("parsing format constraint: %w", err)
	}

	if !constraint.Check(v) {
		return fmt.Errorf("%w: %s (want %s)", ErrUnsupportedVersion, ver, FormatConstraint)
	}

	return nil
}
