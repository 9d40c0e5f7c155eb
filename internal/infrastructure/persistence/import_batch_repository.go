package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/feeledger/backend/internal/domain/bulk"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormImportBatchRepository implements ImportBatchRepository using GORM
type GormImportBatchRepository struct {
	db *gorm.DB
}

// NewGormImportBatchRepository creates a new GormImportBatchRepository
func NewGormImportBatchRepository(db *gorm.DB) *GormImportBatchRepository {
	return &GormImportBatchRepository{db: db}
}

// FindByID finds a batch by ID
func (r *GormImportBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.ImportBatch, error) {
	var model models.ImportBatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds batches matching the filter with pagination, newest first
func (r *GormImportBatchRepository) FindAll(ctx context.Context, filter bulk.ImportBatchFilter, page, pageSize int) (*bulk.ImportBatchListResult, error) {
	query := r.applyBatchFilter(r.db.WithContext(ctx).Model(&models.ImportBatchModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	if page > 0 && pageSize > 0 {
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	var batchModels []models.ImportBatchModel
	if err := query.Order("created_at DESC").Find(&batchModels).Error; err != nil {
		return nil, err
	}

	items := make([]*bulk.ImportBatch, 0, len(batchModels))
	for i := range batchModels {
		items = append(items, batchModels[i].ToDomain())
	}

	return &bulk.ImportBatchListResult{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// FindStale returns batches stuck in pending or processing past the cutoff,
// so a restart can fail them instead of leaving them dangling forever
func (r *GormImportBatchRepository) FindStale(ctx context.Context, cutoff time.Time) ([]*bulk.ImportBatch, error) {
	var batchModels []models.ImportBatchModel
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", []bulk.ImportStatus{bulk.ImportStatusPending, bulk.ImportStatusProcessing}, cutoff).
		Order("created_at").
		Find(&batchModels).Error; err != nil {
		return nil, err
	}

	batches := make([]*bulk.ImportBatch, 0, len(batchModels))
	for i := range batchModels {
		batches = append(batches, batchModels[i].ToDomain())
	}
	return batches, nil
}

// Save creates or updates a batch
func (r *GormImportBatchRepository) Save(ctx context.Context, batch *bulk.ImportBatch) error {
	model := models.ImportBatchModelFromDomain(batch)
	return r.db.WithContext(ctx).Save(model).Error
}

func (r *GormImportBatchRepository) applyBatchFilter(query *gorm.DB, filter bulk.ImportBatchFilter) *gorm.DB {
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AcademicYear != "" {
		query = query.Where("academic_year = ?", filter.AcademicYear)
	}
	if filter.ImportedBy != nil {
		query = query.Where("created_by = ?", *filter.ImportedBy)
	}
	if filter.StartedFrom != nil {
		query = query.Where("started_at >= ?", *filter.StartedFrom)
	}
	if filter.StartedTo != nil {
		query = query.Where("started_at <= ?", *filter.StartedTo)
	}
	return query
}

// Ensure GormImportBatchRepository implements ImportBatchRepository
var _ bulk.ImportBatchRepository = (*GormImportBatchRepository)(nil)
