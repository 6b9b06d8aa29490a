package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Search modes.
const (
	ModeDialogue = "dialogue"
	ModeDirect   = "direct"
)

// Search is one executed catalog search.
type Search struct {
	ID              string
	CreatedAt       time.Time
	SessionID       string // empty for direct searches
	Mode            string
	Query           string
	ConstraintsJSON string // JSON object stored as text
	ResultCount     int
}
