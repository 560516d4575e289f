package credentials

import (
	"context"
	"fmt"

	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/models"
	"github.com/mstrack/mstrack/internal/services/secrets"
	"github.com/ternarybob/arbor"
)

// Service resolves requester aliases to decrypted portal credentials.
// It implements interfaces.CredentialSource.
type Service struct {
	storage interfaces.CredentialStorage
	secrets *secrets.Service
	logger  arbor.ILogger
}

// NewService creates a credential lookup service
func NewService(storage interfaces.CredentialStorage, secrets *secrets.Service, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		secrets: secrets,
		logger:  logger,
	}
}

// MatchesForAlias returns every usable credential record for the alias.
// Each of url/username/password is decrypted independently; a record where
// any field fails to decrypt to a non-empty value is excluded entirely.
func (s *Service) MatchesForAlias(ctx context.Context, alias string) ([]models.PortalCredential, error) {
	if alias == "" {
		return nil, fmt.Errorf("alias is required")
	}

	stored, err := s.storage.FindByAlias(ctx, alias)
	if err != nil {
		return nil, fmt.Errorf("credential lookup failed: %w", err)
	}

	matches := make([]models.PortalCredential, 0, len(stored))
	for _, rec := range stored {
		cred, ok := s.decryptRecord(rec)
		if !ok {
			continue
		}
		matches = append(matches, cred)
	}

	s.logger.Debug().
		Str("alias", alias).
		Int("stored", len(stored)).
		Int("usable", len(matches)).
		Msg("Resolved credentials for alias")

	return matches, nil
}

// decryptRecord decrypts all three fields of a record. Partial credential
// sets are never used: one bad field drops the whole record.
func (s *Service) decryptRecord(rec *models.StoredCredential) (models.PortalCredential, bool) {
	var cred models.PortalCredential

	fields := []struct {
		name string
		enc  string
		dst  *string
	}{
		{"url", rec.URL, &cred.URL},
		{"username", rec.Username, &cred.Username},
		{"password", rec.Password, &cred.Password},
	}

	for _, f := range fields {
		plain, err := s.secrets.Decrypt(f.enc)
		if err != nil || plain == "" {
			s.logger.Warn().
				Str("credential_id", rec.ID).
				Str("field", f.name).
				Msg("Credential field failed decryption, excluding record")
			return models.PortalCredential{}, false
		}
		*f.dst = plain
	}

	return cred, true
}
