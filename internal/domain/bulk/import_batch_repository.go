package bulk

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ImportBatchFilter defines the filters for querying reconciliation batches
type ImportBatchFilter struct {
	Source       *ImportSource
	Status       *ImportStatus
	AcademicYear string
	ImportedBy   *uuid.UUID
	StartedFrom  *time.Time
	StartedTo    *time.Time
}

// ImportBatchListResult represents a paginated list of batches
type ImportBatchListResult struct {
	Items      []*ImportBatch
	TotalCount int64
	Page       int
	PageSize   int
}

// ImportBatchRepository defines the interface for batch persistence
type ImportBatchRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ImportBatch, error)
	FindAll(ctx context.Context, filter ImportBatchFilter, page, pageSize int) (*ImportBatchListResult, error)
	// FindStale returns batches stuck in pending or processing longer than
	// the cutoff, used for recovery after a crashed run.
	FindStale(ctx context.Context, cutoff time.Time) ([]*ImportBatch, error)
	Save(ctx context.Context, batch *ImportBatch) error
}
