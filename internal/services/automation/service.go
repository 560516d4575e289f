package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/models"
	"github.com/mstrack/mstrack/internal/services/interpreter"
	"github.com/mstrack/mstrack/internal/services/scripts"
	"github.com/ternarybob/arbor"
)

// ErrNavigationTimeout marks a portal that did not load within the
// navigation deadline.
var ErrNavigationTimeout = errors.New("portal navigation timed out")

const noticeFailure = "The status check could not be completed. Please try again later."

// Service executes one automation job end to end: portal resolution,
// script replay (or helper invocation) per credential, then delivery and
// session teardown. The queue worker calls RunJob; it is the only caller.
type Service struct {
	sessions   interfaces.SessionManager
	catalogue  *scripts.Catalogue
	interp     *interpreter.Interpreter
	helper     interfaces.StrategyRunner
	messenger  interfaces.Messenger
	jobStorage interfaces.JobStorage
	navTimeout time.Duration
	logger     arbor.ILogger
}

// NewService wires the job pipeline.
func NewService(
	sessions interfaces.SessionManager,
	catalogue *scripts.Catalogue,
	interp *interpreter.Interpreter,
	helper interfaces.StrategyRunner,
	messenger interfaces.Messenger,
	jobStorage interfaces.JobStorage,
	navTimeout time.Duration,
	logger arbor.ILogger,
) *Service {
	return &Service{
		sessions:   sessions,
		catalogue:  catalogue,
		interp:     interp,
		helper:     helper,
		messenger:  messenger,
		jobStorage: jobStorage,
		navTimeout: navTimeout,
		logger:     logger,
	}
}

// RunJob executes the job. Whatever happens mid-run, the requester's
// session is delivered and released before RunJob returns, so partial
// artifacts still reach the requester and the browser never leaks.
func (s *Service) RunJob(ctx context.Context, job *models.AutomationJob) error {
	job.Status = models.JobRunning
	record := &models.JobRecord{
		ID:          job.ID,
		RequesterID: job.RequesterID,
		Destination: job.Destination,
		Status:      string(models.JobRunning),
		CreatedAt:   job.CreatedAt,
		StartedAt:   time.Now(),
	}
	s.saveRecord(ctx, record)

	s.logger.Info().
		Str("job_id", job.ID).
		Str("requester_id", job.RequesterID).
		Int("credentials", len(job.Credentials)).
		Msg("Job started")

	runErr := s.checkAll(ctx, job, record)

	// delivery and teardown happen no matter how the checks went
	if err := s.sessions.DeliverAndClear(ctx, job.RequesterID, job.Destination); err != nil {
		s.logger.Warn().
			Str("job_id", job.ID).
			Err(err).
			Msg("Artifact delivery failed")
		if runErr == nil {
			runErr = err
		}
	}
	s.sessions.Release(job.RequesterID)

	if runErr != nil {
		if err := s.messenger.SendText(ctx, job.Destination, noticeFailure); err != nil {
			s.logger.Warn().
				Str("job_id", job.ID).
				Err(err).
				Msg("Failure notice delivery failed")
		}
		job.Status = models.JobFailed
		record.Status = string(models.JobFailed)
		record.Error = runErr.Error()
	} else {
		job.Status = models.JobCompleted
		record.Status = string(models.JobCompleted)
	}
	record.CompletedAt = time.Now()
	s.saveRecord(ctx, record)

	return runErr
}

// checkAll runs the status check for every credential in the job. The
// first error is kept but later credentials still run, so one broken
// portal does not starve the rest of their artifacts.
func (s *Service) checkAll(ctx context.Context, job *models.AutomationJob, record *models.JobRecord) error {
	var firstErr error
	for _, cred := range job.Credentials {
		if err := s.checkOne(ctx, job, cred, record); err != nil {
			s.logger.Warn().
				Str("job_id", job.ID).
				Str("url", cred.URL).
				Err(err).
				Msg("Credential check failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Service) checkOne(ctx context.Context, job *models.AutomationJob, cred models.PortalCredential, record *models.JobRecord) error {
	portal, err := s.catalogue.Resolve(cred.URL)
	if err != nil {
		return err
	}

	if s.helper != nil && s.helper.Supports(portal) {
		return s.runHelper(ctx, job, portal, cred, record)
	}
	return s.runScript(ctx, job, portal, cred, record)
}

// runHelper delegates the check to the portal's out-of-process strategy.
// Helper-produced images bypass the session and are sent directly.
func (s *Service) runHelper(ctx context.Context, job *models.AutomationJob, portal models.PortalID, cred models.PortalCredential, record *models.JobRecord) error {
	result, err := s.helper.Run(ctx, portal, cred.URL, cred.Username, cred.Password)
	if err != nil {
		return err
	}

	for _, path := range result.ArtifactPaths {
		if err := s.messenger.SendImage(ctx, job.Destination, path, result.Status); err != nil {
			s.logger.Warn().
				Str("job_id", job.ID).
				Str("artifact", path).
				Err(err).
				Msg("Helper artifact delivery failed, continuing")
			continue
		}
		record.ArtifactCount++
	}
	return nil
}

// runScript acquires the requester's session, navigates to the portal
// under the hard deadline and replays its script.
func (s *Service) runScript(ctx context.Context, job *models.AutomationJob, portal models.PortalID, cred models.PortalCredential, record *models.JobRecord) error {
	script, err := s.catalogue.Load(portal)
	if err != nil {
		return err
	}

	session, driver, err := s.sessions.Acquire(ctx, job.RequesterID)
	if err != nil {
		return err
	}

	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	err = driver.Navigate(navCtx, cred.URL)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrNavigationTimeout, cred.URL)
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	env := &interpreter.Env{
		Driver:   driver,
		Portal:   portal,
		Username: cred.Username,
		Password: cred.Password,
		Capture: func(ctx context.Context, label string) (string, error) {
			return s.sessions.Capture(ctx, job.RequesterID, label)
		},
	}

	before := len(session.Artifacts)
	runErr := s.interp.Run(ctx, script, env)
	record.ArtifactCount += len(session.Artifacts) - before
	return runErr
}

func (s *Service) saveRecord(ctx context.Context, record *models.JobRecord) {
	if err := s.jobStorage.SaveJobRecord(ctx, record); err != nil {
		s.logger.Warn().
			Str("job_id", record.ID).
			Err(err).
			Msg("Failed to persist job record")
	}
}
