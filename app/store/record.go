package store

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// JobRecord is a single job lead. All fields except Applied are immutable after creation.
// Empty Link/Notes and zero Date mean "absent"; persisted JSON omits them, so blobs
// written before a field existed still load cleanly.
type JobRecord struct {
	ID      string    `json:"id"`
	Company string    `json:"company"`
	Role    string    `json:"role"`
	Link    string    `json:"link,omitempty"`
	Notes   string    `json:"notes,omitempty"`
	Applied bool      `json:"applied"`
	Date    time.Time `json:"date,omitzero"`
}

// NewID makes a random opaque record id, unique for any practical collection size
func NewID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b) // crypto/rand never fails
	return hex.EncodeToString(b)
}
