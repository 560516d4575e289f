package interfaces

import (
	"github.com/mstrack/mstrack/internal/models"
)

// QueueStats is a point-in-time snapshot of queue accounting.
type QueueStats struct {
	Enqueued  int64 `json:"enqueued"`
	Completed int64 `json:"completed"`
	InFlight  int32 `json:"in_flight"`
}

// JobSubmission is the handle returned when a job is enqueued. Position is
// computed at submission time (jobs ever enqueued minus jobs completed) and
// is purely informational. Done resolves when the job finishes.
type JobSubmission struct {
	Job      *models.AutomationJob
	Position int
	Done     <-chan error
}

// JobQueue serializes automation jobs: one worker, strict FIFO, no two
// jobs' browser interactions ever overlap in time.
type JobQueue interface {
	Submit(job *models.AutomationJob) (*JobSubmission, error)
	Stats() QueueStats
}
