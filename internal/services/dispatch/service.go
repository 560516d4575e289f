package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mstrack/mstrack/internal/common"
	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/models"
	"github.com/ternarybob/arbor"
)

// ErrNoCredentials marks a trigger for an alias with no usable stored
// credentials. The requester has already been notified when it is
// returned.
var ErrNoCredentials = errors.New("no credentials stored for alias")

const noticeNoAccount = "No account information found for your ID. Please register your portal credentials first."

// Service is the single submission path behind both inbound surfaces
// (webhook message and direct trigger): look up credentials, notify
// immediately when there are none, otherwise build and enqueue the job.
type Service struct {
	credentials interfaces.CredentialSource
	queue       interfaces.JobQueue
	messenger   interfaces.Messenger
	logger      arbor.ILogger
}

// NewService creates the dispatch service.
func NewService(credentials interfaces.CredentialSource, queue interfaces.JobQueue, messenger interfaces.Messenger, logger arbor.ILogger) *Service {
	return &Service{
		credentials: credentials,
		queue:       queue,
		messenger:   messenger,
		logger:      logger,
	}
}

// Trigger resolves the alias and enqueues a status-check job. Credential
// lookup happens before enqueue: zero matches sends the "not found" notice
// and no job is created.
func (s *Service) Trigger(ctx context.Context, alias, destination string) (*interfaces.JobSubmission, error) {
	matches, err := s.credentials.MatchesForAlias(ctx, alias)
	if err != nil {
		return nil, fmt.Errorf("credential lookup failed: %w", err)
	}

	if len(matches) == 0 {
		s.logger.Info().
			Str("alias", alias).
			Msg("No credentials for alias, notifying requester")
		if err := s.messenger.SendText(ctx, destination, noticeNoAccount); err != nil {
			s.logger.Warn().
				Str("alias", alias).
				Err(err).
				Msg("Not-found notice delivery failed")
		}
		return nil, ErrNoCredentials
	}

	job := &models.AutomationJob{
		ID:          common.NewJobID(),
		RequesterID: alias,
		Destination: destination,
		Credentials: matches,
		Status:      models.JobQueued,
		CreatedAt:   time.Now(),
	}

	submission, err := s.queue.Submit(job)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("alias", alias).
		Int("credentials", len(matches)).
		Int("position", submission.Position).
		Msg("Status check enqueued")
	return submission, nil
}
