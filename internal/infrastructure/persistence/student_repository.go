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

// GormStudentRepository implements StudentRepository using GORM
type GormStudentRepository struct {
	db *gorm.DB
}

// NewGormStudentRepository creates a new GormStudentRepository
func NewGormStudentRepository(db *gorm.DB) *GormStudentRepository {
	return &GormStudentRepository{db: db}
}

// FindByID finds a student by ID
func (r *GormStudentRepository) FindByID(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	var model models.StudentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLedgerNumber finds a student by the ledger number printed on receipts
// and legacy registers. Returns nil without error when no student matches,
// since the bulk importer treats a miss as a normal outcome.
func (r *GormStudentRepository) FindByLedgerNumber(ctx context.Context, ledgerNumber string) (*student.Student, error) {
	var model models.StudentModel
	if err := r.db.WithContext(ctx).First(&model, "ledger_number = ?", ledgerNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByClassAndName finds a student by exact name within a class. Returns
// nil without error when no student matches.
func (r *GormStudentRepository) FindByClassAndName(ctx context.Context, classID uuid.UUID, name string) (*student.Student, error) {
	var model models.StudentModel
	if err := r.db.WithContext(ctx).
		Where("class_id = ? AND name = ? AND archived_at IS NULL", classID, name).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByFilter finds students matching the filter with pagination
func (r *GormStudentRepository) FindByFilter(ctx context.Context, filter student.StudentFilter, page shared.Filter) (*shared.Paginated[student.Student], error) {
	query := r.applyStudentFilter(r.db.WithContext(ctx).Model(&models.StudentModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	query = applyPagination(query, page, "name")

	var studentModels []models.StudentModel
	if err := query.Find(&studentModels).Error; err != nil {
		return nil, err
	}

	items := make([]student.Student, 0, len(studentModels))
	for i := range studentModels {
		items = append(items, *studentModels[i].ToDomain())
	}

	paginated := shared.NewPaginated(items, total, page.Page, page.PageSize)
	return &paginated, nil
}

// Save creates or updates a student
func (r *GormStudentRepository) Save(ctx context.Context, s *student.Student) error {
	model := models.StudentModelFromDomain(s)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking on the aggregate version
func (r *GormStudentRepository) SaveWithLock(ctx context.Context, s *student.Student) error {
	model := models.StudentModelFromDomain(s)
	result := r.db.WithContext(ctx).
		Model(&models.StudentModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]interface{}{
			"name":          model.Name,
			"class_id":      model.ClassID,
			"academic_year": model.AcademicYear,
			"occupancy":     model.Occupancy,
			"guardian_name": model.GuardianName,
			"phone":         model.Phone,
			"synthesized":   model.Synthesized,
			"archived_at":   model.ArchivedAt,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func (r *GormStudentRepository) applyStudentFilter(query *gorm.DB, filter student.StudentFilter) *gorm.DB {
	if filter.ClassID != nil {
		query = query.Where("class_id = ?", *filter.ClassID)
	}
	if filter.AcademicYear != "" {
		query = query.Where("academic_year = ?", filter.AcademicYear)
	}
	if filter.OnlySynthesized {
		query = query.Where("synthesized = TRUE")
	}
	if !filter.IncludeArchived {
		query = query.Where("archived_at IS NULL")
	}
	if filter.Name != "" {
		query = query.Where("name ILIKE ? OR ledger_number ILIKE ?", "%"+filter.Name+"%", "%"+filter.Name+"%")
	}
	return query
}

// Ensure GormStudentRepository implements StudentRepository
var _ student.StudentRepository = (*GormStudentRepository)(nil)
