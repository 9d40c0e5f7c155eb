package persistence

import (
	"context"
	"errors"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/domain/student"
	"github.com/feeledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSchoolClassRepository implements SchoolClassRepository using GORM
type GormSchoolClassRepository struct {
	db *gorm.DB
}

// NewGormSchoolClassRepository creates a new GormSchoolClassRepository
func NewGormSchoolClassRepository(db *gorm.DB) *GormSchoolClassRepository {
	return &GormSchoolClassRepository{db: db}
}

// FindByID finds a class by ID
func (r *GormSchoolClassRepository) FindByID(ctx context.Context, id uuid.UUID) (*student.SchoolClass, error) {
	var model models.SchoolClassModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByName finds a class by its exact name. Returns nil without error when
// no class matches, since the bulk importer treats a miss as a row error
// rather than a lookup failure.
func (r *GormSchoolClassRepository) FindByName(ctx context.Context, name string) (*student.SchoolClass, error) {
	var model models.SchoolClassModel
	if err := r.db.WithContext(ctx).First(&model, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists classes in display order
func (r *GormSchoolClassRepository) FindAll(ctx context.Context, includeInactive bool) ([]student.SchoolClass, error) {
	query := r.db.WithContext(ctx).Model(&models.SchoolClassModel{})
	if !includeInactive {
		query = query.Where("active = TRUE")
	}

	var classModels []models.SchoolClassModel
	if err := query.Order("display_order, name").Find(&classModels).Error; err != nil {
		return nil, err
	}

	classes := make([]student.SchoolClass, 0, len(classModels))
	for i := range classModels {
		classes = append(classes, *classModels[i].ToDomain())
	}
	return classes, nil
}

// Save creates or updates a class
func (r *GormSchoolClassRepository) Save(ctx context.Context, class *student.SchoolClass) error {
	model := models.SchoolClassModelFromDomain(class)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormSchoolClassRepository implements SchoolClassRepository
var _ student.SchoolClassRepository = (*GormSchoolClassRepository)(nil)
