package badger

import (
	"context"
	"fmt"

	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJobRecord(ctx context.Context, record *models.JobRecord) error {
	if record.ID == "" {
		return fmt.Errorf("job record ID is required")
	}

	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save job record: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJobRecord(ctx context.Context, id string) (*models.JobRecord, error) {
	var record models.JobRecord
	if err := s.db.Store().Get(id, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("job record not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get job record: %w", err)
	}
	return &record, nil
}

func (s *JobStorage) ListJobRecords(ctx context.Context, limit int) ([]*models.JobRecord, error) {
	var records []models.JobRecord
	query := &badgerhold.Query{}
	query.SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query.Limit(limit)
	}
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list job records: %w", err)
	}

	result := make([]*models.JobRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}
