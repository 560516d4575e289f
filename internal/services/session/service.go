package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mstrack/mstrack/internal/common"
	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/models"
	"github.com/ternarybob/arbor"
)

// Notices sent over the messaging channel at delivery time.
const (
	noticeNothingNew = "No new status updates were found."
	noticeComplete   = "All new status updates have been sent."
)

// managed pairs a session model with the driver handle the service owns
// on its behalf. The handle never leaves this package except through
// Acquire, and the service closes it on every exit path.
type managed struct {
	session *models.Session
	driver  interfaces.UIDriver
}

// Service implements interfaces.SessionManager: per-requester browser
// sessions, artifact capture, ordered delivery and time-boxed cleanup.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*managed

	factory       interfaces.DriverFactory
	messenger     interfaces.Messenger
	artifactRoot  string
	deliveryGrace time.Duration
	logger        arbor.ILogger
}

// NewService creates the session manager.
func NewService(factory interfaces.DriverFactory, messenger interfaces.Messenger, artifactRoot string, deliveryGrace time.Duration, logger arbor.ILogger) *Service {
	return &Service{
		sessions:      make(map[string]*managed),
		factory:       factory,
		messenger:     messenger,
		artifactRoot:  artifactRoot,
		deliveryGrace: deliveryGrace,
		logger:        logger,
	}
}

// Acquire returns the requester's live session, creating one with a fresh
// browser and artifact namespace if none exists. Last-access is refreshed
// either way.
func (s *Service) Acquire(ctx context.Context, requesterID string) (*models.Session, interfaces.UIDriver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.sessions[requesterID]; ok {
		m.session.LastAccess = time.Now()
		return m.session, m.driver, nil
	}

	id := common.NewSessionID()
	dir := filepath.Join(s.artifactRoot, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	driver, err := s.factory(ctx)
	if err != nil {
		os.RemoveAll(dir)
		return nil, nil, fmt.Errorf("failed to start browser for session: %w", err)
	}

	now := time.Now()
	m := &managed{
		session: &models.Session{
			ID:          id,
			RequesterID: requesterID,
			ArtifactDir: dir,
			CreatedAt:   now,
			LastAccess:  now,
		},
		driver: driver,
	}
	s.sessions[requesterID] = m

	s.logger.Info().
		Str("session_id", id).
		Str("requester_id", requesterID).
		Msg("Created session")
	return m.session, m.driver, nil
}

// Capture screenshots the requester's active window, writes the image into
// the session's artifact namespace and registers it for delivery.
func (s *Service) Capture(ctx context.Context, requesterID, label string) (string, error) {
	s.mu.Lock()
	m, ok := s.sessions[requesterID]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no session for requester %s", requesterID)
	}

	image, err := m.driver.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("screenshot failed: %w", err)
	}

	now := time.Now()
	name := fmt.Sprintf("%s_%s.png", sanitizeLabel(label), now.Format("20060102T150405.000"))
	path := filepath.Join(m.session.ArtifactDir, name)
	if err := os.WriteFile(path, image, 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	s.mu.Lock()
	m.session.Artifacts = append(m.session.Artifacts, models.Artifact{
		Path:       path,
		Label:      label,
		CapturedAt: now,
	})
	m.session.LastAccess = now
	s.mu.Unlock()

	s.logger.Debug().
		Str("requester_id", requesterID).
		Str("artifact", name).
		Msg("Captured artifact")
	return path, nil
}

// DeliverAndClear sends the session's artifacts oldest-first, waits the
// delivery grace period, then tears the session down. Per-artifact send
// failures are logged and skipped; zero artifacts produce a "nothing new"
// notice instead. Calling it for a requester with no session only sends
// the "nothing new" notice, so it is safe to call more than once.
func (s *Service) DeliverAndClear(ctx context.Context, requesterID, destination string) error {
	s.mu.Lock()
	m, ok := s.sessions[requesterID]
	if ok {
		delete(s.sessions, requesterID)
	}
	s.mu.Unlock()

	if !ok || len(m.session.Artifacts) == 0 {
		if ok {
			s.teardown(m)
		}
		if err := s.messenger.SendText(ctx, destination, noticeNothingNew); err != nil {
			return fmt.Errorf("failed to send notice: %w", err)
		}
		return nil
	}
	defer s.teardown(m)

	artifacts := orderForDelivery(m.session.Artifacts)
	sent := 0
	for _, a := range artifacts {
		if _, err := os.Stat(a.Path); err != nil {
			s.logger.Warn().
				Str("artifact", a.Path).
				Err(err).
				Msg("Artifact missing at delivery time, skipping")
			continue
		}
		if err := s.messenger.SendImage(ctx, destination, a.Path, a.Label); err != nil {
			s.logger.Warn().
				Str("artifact", a.Path).
				Err(err).
				Msg("Artifact delivery failed, continuing")
			continue
		}
		sent++
	}

	notice := noticeComplete
	if sent == 0 {
		notice = noticeNothingNew
	}
	if err := s.messenger.SendText(ctx, destination, notice); err != nil {
		return fmt.Errorf("failed to send completion notice: %w", err)
	}

	// grace period so the channel renders the images before teardown
	if s.deliveryGrace > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(s.deliveryGrace):
		}
	}

	s.logger.Info().
		Str("requester_id", requesterID).
		Int("delivered", sent).
		Int("total", len(artifacts)).
		Msg("Delivered session artifacts")
	return nil
}

// Release force-tears-down the requester's session regardless of age.
func (s *Service) Release(requesterID string) {
	s.mu.Lock()
	m, ok := s.sessions[requesterID]
	if ok {
		delete(s.sessions, requesterID)
	}
	s.mu.Unlock()

	if ok {
		s.teardown(m)
		s.logger.Info().
			Str("requester_id", requesterID).
			Msg("Released session")
	}
}

// SweepExpired tears down sessions idle longer than maxAge.
func (s *Service) SweepExpired(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	var expired []*managed
	for requesterID, m := range s.sessions {
		if m.session.LastAccess.Before(cutoff) {
			expired = append(expired, m)
			delete(s.sessions, requesterID)
		}
	}
	s.mu.Unlock()

	for _, m := range expired {
		s.teardown(m)
		s.logger.Info().
			Str("session_id", m.session.ID).
			Str("requester_id", m.session.RequesterID).
			Msg("Swept expired session")
	}
	return len(expired)
}

// Count reports the number of live sessions.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CloseAll releases every session. Called on process shutdown.
func (s *Service) CloseAll() {
	s.mu.Lock()
	remaining := make([]*managed, 0, len(s.sessions))
	for _, m := range s.sessions {
		remaining = append(remaining, m)
	}
	s.sessions = make(map[string]*managed)
	s.mu.Unlock()

	for _, m := range remaining {
		s.teardown(m)
	}
}

// teardown closes the driver and removes the artifact namespace. Must be
// called exactly once per managed session, after it left the map.
func (s *Service) teardown(m *managed) {
	if err := m.driver.Close(); err != nil {
		s.logger.Warn().
			Str("session_id", m.session.ID).
			Err(err).
			Msg("Driver close failed")
	}
	if err := os.RemoveAll(m.session.ArtifactDir); err != nil {
		s.logger.Warn().
			Str("session_id", m.session.ID).
			Err(err).
			Msg("Artifact cleanup failed")
	}
}

// orderForDelivery sorts artifacts oldest-first by capture time. The sort
// is stable so equal timestamps keep registration order.
func orderForDelivery(artifacts []models.Artifact) []models.Artifact {
	ordered := append([]models.Artifact(nil), artifacts...)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].CapturedAt.Before(ordered[b].CapturedAt)
	})
	return ordered
}

// sanitizeLabel makes a capture label safe for a filename.
func sanitizeLabel(label string) string {
	if label == "" {
		return "capture"
	}
	replacer := strings.NewReplacer(
		" ", "_", "/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
	)
	return replacer.Replace(label)
}
