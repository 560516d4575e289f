package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// CredentialStorage implements the CredentialStorage interface for Badger
type CredentialStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCredentialStorage creates a new CredentialStorage instance
func NewCredentialStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CredentialStorage {
	return &CredentialStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CredentialStorage) StoreCredential(ctx context.Context, cred *models.StoredCredential) error {
	if cred.ID == "" {
		return fmt.Errorf("credential ID is required")
	}
	if cred.Alias == "" {
		return fmt.Errorf("credential alias is required")
	}

	now := time.Now().Unix()
	if cred.CreatedAt == 0 {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	if err := s.db.Store().Upsert(cred.ID, cred); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

func (s *CredentialStorage) FindByAlias(ctx context.Context, alias string) ([]*models.StoredCredential, error) {
	var creds []models.StoredCredential
	if err := s.db.Store().Find(&creds, badgerhold.Where("Alias").Eq(alias).Index("Alias")); err != nil {
		return nil, fmt.Errorf("failed to find credentials: %w", err)
	}

	result := make([]*models.StoredCredential, len(creds))
	for i := range creds {
		result[i] = &creds[i]
	}
	return result, nil
}

func (s *CredentialStorage) ListCredentials(ctx context.Context) ([]*models.StoredCredential, error) {
	var creds []models.StoredCredential
	if err := s.db.Store().Find(&creds, nil); err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	result := make([]*models.StoredCredential, len(creds))
	for i := range creds {
		result[i] = &creds[i]
	}
	return result, nil
}

func (s *CredentialStorage) DeleteCredential(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.StoredCredential{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
