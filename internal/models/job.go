package models

import "time"

// JobStatus tracks an automation job through its lifecycle.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// AutomationJob is one status-check request: who asked, where results go,
// and the decrypted portal credentials to check.
type AutomationJob struct {
	ID          string
	RequesterID string // alias the requester is known by in the credential store
	Destination string // messaging-channel address for delivery
	Credentials []PortalCredential
	Status      JobStatus
	CreatedAt   time.Time
}

// JobRecord is the persisted lifecycle row for a job, kept for the history
// endpoint. Badgerhold indexes on RequesterID for per-user listings.
type JobRecord struct {
	ID            string `badgerhold:"key"`
	RequesterID   string `badgerholdIndex:"RequesterID"`
	Destination   string
	Status        string
	Error         string
	ArtifactCount int
	CreatedAt     time.Time
	StartedAt     time.Time
	CompletedAt   time.Time
}
