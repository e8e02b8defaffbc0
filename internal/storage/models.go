package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Document is a stored text - submitted directly, fetched from a URL,
// or extracted from an uploaded file - waiting for or carrying its
// accessibility analysis.
type Document struct {
	ID          string
	Title       string
	Source      string
	ContentType string // "text", "url", "file"
	Content     string // extracted plain text
	Tags        string // JSON array stored as text
	Status      string // "queued", "processing", "analyzed", "failed"
	Analysis    string // JSON analysis stored as text, set once analyzed
	LastError   string
	CreatedAt   time.Time
	AnalyzedAt  time.Time // zero until analyzed
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
