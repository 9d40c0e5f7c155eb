package persistence

import (
	"context"
	"errors"

	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFeeStructureRepository implements FeeStructureRepository using GORM
type GormFeeStructureRepository struct {
	db *gorm.DB
}

// NewGormFeeStructureRepository creates a new GormFeeStructureRepository
func NewGormFeeStructureRepository(db *gorm.DB) *GormFeeStructureRepository {
	return &GormFeeStructureRepository{db: db}
}

// FindByID finds a fee structure by ID
func (r *GormFeeStructureRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.FeeStructure, error) {
	var model models.FeeStructureModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByClassAndYear finds the fee structure billed for one class in one
// academic year
func (r *GormFeeStructureRepository) FindByClassAndYear(ctx context.Context, classID uuid.UUID, academicYear string) (*fees.FeeStructure, error) {
	var model models.FeeStructureModel
	if err := r.db.WithContext(ctx).
		Where("class_id = ? AND academic_year = ?", classID, academicYear).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByYear lists every class's fee structure for an academic year
func (r *GormFeeStructureRepository) FindByYear(ctx context.Context, academicYear string) ([]fees.FeeStructure, error) {
	var structureModels []models.FeeStructureModel
	if err := r.db.WithContext(ctx).
		Where("academic_year = ?", academicYear).
		Order("created_at").
		Find(&structureModels).Error; err != nil {
		return nil, err
	}

	structures := make([]fees.FeeStructure, 0, len(structureModels))
	for i := range structureModels {
		structures = append(structures, *structureModels[i].ToDomain())
	}
	return structures, nil
}

// Save creates or updates a fee structure
func (r *GormFeeStructureRepository) Save(ctx context.Context, fs *fees.FeeStructure) error {
	model := models.FeeStructureModelFromDomain(fs)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormFeeStructureRepository implements FeeStructureRepository
var _ fees.FeeStructureRepository = (*GormFeeStructureRepository)(nil)
