package interfaces

import (
	"context"
	"time"

	"github.com/mstrack/mstrack/internal/models"
)

// SessionManager owns per-requester browser sessions, their artifact
// namespaces, and time-boxed cleanup of both.
type SessionManager interface {
	// Acquire returns the requester's existing session or creates one with
	// a fresh artifact namespace, refreshing last-access either way.
	Acquire(ctx context.Context, requesterID string) (*models.Session, UIDriver, error)

	// Capture screenshots the requester's session through its driver,
	// registers the artifact, and returns its path.
	Capture(ctx context.Context, requesterID, label string) (string, error)

	// DeliverAndClear sends the session's artifacts oldest-first to the
	// destination, waits the delivery grace period, then tears the
	// session down. Zero artifacts produce a "nothing new" notice.
	DeliverAndClear(ctx context.Context, requesterID, destination string) error

	// Release force-tears-down the requester's session regardless of age.
	Release(requesterID string)

	// SweepExpired removes sessions idle longer than maxAge and returns
	// how many were swept.
	SweepExpired(maxAge time.Duration) int

	// Count reports the number of live sessions.
	Count() int

	// CloseAll releases every session; called on process shutdown.
	CloseAll()
}
