package persistence

import (
	"context"
	"errors"

	"github.com/feeledger/backend/internal/domain/calendar"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAcademicYearRepository implements AcademicYearRepository using GORM
type GormAcademicYearRepository struct {
	db *gorm.DB
}

// NewGormAcademicYearRepository creates a new GormAcademicYearRepository
func NewGormAcademicYearRepository(db *gorm.DB) *GormAcademicYearRepository {
	return &GormAcademicYearRepository{db: db}
}

// FindByCode finds an academic year by its code
func (r *GormAcademicYearRepository) FindByCode(ctx context.Context, code string) (*calendar.AcademicYear, error) {
	var model models.AcademicYearModel
	if err := r.db.WithContext(ctx).First(&model, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindCurrent finds the academic year flagged as current
func (r *GormAcademicYearRepository) FindCurrent(ctx context.Context) (*calendar.AcademicYear, error) {
	var model models.AcademicYearModel
	if err := r.db.WithContext(ctx).First(&model, "is_current = TRUE").Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists academic years, newest first
func (r *GormAcademicYearRepository) FindAll(ctx context.Context) ([]calendar.AcademicYear, error) {
	var yearModels []models.AcademicYearModel
	if err := r.db.WithContext(ctx).Order("code DESC").Find(&yearModels).Error; err != nil {
		return nil, err
	}

	years := make([]calendar.AcademicYear, 0, len(yearModels))
	for i := range yearModels {
		years = append(years, *yearModels[i].ToDomain())
	}
	return years, nil
}

// Save creates or updates an academic year
func (r *GormAcademicYearRepository) Save(ctx context.Context, year *calendar.AcademicYear) error {
	model := models.AcademicYearModelFromDomain(year)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormAcademicYearRepository implements AcademicYearRepository
var _ calendar.AcademicYearRepository = (*GormAcademicYearRepository)(nil)
