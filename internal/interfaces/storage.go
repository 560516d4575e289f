package interfaces

import (
	"context"

	"github.com/mstrack/mstrack/internal/models"
)

// CredentialStorage persists encrypted credential records.
type CredentialStorage interface {
	StoreCredential(ctx context.Context, cred *models.StoredCredential) error
	FindByAlias(ctx context.Context, alias string) ([]*models.StoredCredential, error)
	ListCredentials(ctx context.Context) ([]*models.StoredCredential, error)
	DeleteCredential(ctx context.Context, id string) error
}

// JobStorage persists job lifecycle records for the history endpoint.
type JobStorage interface {
	SaveJobRecord(ctx context.Context, record *models.JobRecord) error
	GetJobRecord(ctx context.Context, id string) (*models.JobRecord, error)
	ListJobRecords(ctx context.Context, limit int) ([]*models.JobRecord, error)
}

// StorageManager provides access to all storage interfaces.
type StorageManager interface {
	CredentialStorage() CredentialStorage
	JobStorage() JobStorage

	// LoadCredentialsFromFiles seeds the credential store from TOML files
	// in the given directory.
	LoadCredentialsFromFiles(ctx context.Context, dir string) error

	// RunGC reclaims storage space; safe to call periodically.
	RunGC() error

	Close() error
}
