package models

import "time"

// Artifact is a captured screenshot awaiting delivery. Delivery order is
// by capture time, oldest first.
type Artifact struct {
	Path       string
	Label      string // text found at the point of capture
	CapturedAt time.Time
}

// Session is the scoped ownership unit for one requester's browser handle
// and artifact namespace. The session service is the sole owner of the
// driver handle and releases it on every exit path.
type Session struct {
	ID          string
	RequesterID string
	ArtifactDir string
	Artifacts   []Artifact
	CreatedAt   time.Time
	LastAccess  time.Time
}
