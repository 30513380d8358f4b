package cache

import (
	"time"

	"github.com/goccy/go-json"
)

// Entry is one persisted calibration artifact. Data is opaque to the store;
// the calibration backend defines its schema.
type Entry struct {
	// RunID identifies the calibration run that produced the artifact.
	RunID string `json:"run_id"`

	// Fingerprint ties the artifact to the model, pool, and batching that
	// produced it. A store hit with a different fingerprint is a miss.
	Fingerprint string `json:"fingerprint"`

	// CreatedAt is when the artifact was written.
	CreatedAt time.Time `json:"created_at"`

	// Data is the backend-defined calibration payload.
	Data json.RawMessage `json:"data"`
}

// NewEntry creates an entry stamped with the current time.
func NewEntry(runID, fingerprint string, data json.RawMessage) *Entry {
	return &Entry{
		RunID:       runID,
		Fingerprint: fingerprint,
		CreatedAt:   time.Now().UTC(),
		Data:        data,
	}
}

// Matches reports whether the entry was produced from inputs with the given
// fingerprint.
func (e *Entry) Matches(fingerprint string) bool {
	return e.Fingerprint == fingerprint
}

// Age returns the duration since the artifact was written.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CreatedAt)
}
