package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByFilter finds payments matching the filter with pagination
func (r *GormPaymentRepository) FindByFilter(ctx context.Context, filter fees.PaymentFilter, page shared.Filter) (*shared.Paginated[fees.Payment], error) {
	query := r.applyPaymentFilter(r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	query = applyPagination(query, page, "payment_date")

	var paymentModels []models.PaymentModel
	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, err
	}

	items := make([]fees.Payment, 0, len(paymentModels))
	for i := range paymentModels {
		items = append(items, *paymentModels[i].ToDomain())
	}

	paginated := shared.NewPaginated(items, total, page.Page, page.PageSize)
	return &paginated, nil
}

// FindByStudent finds every payment of a student in an academic year, most
// recent first
func (r *GormPaymentRepository) FindByStudent(ctx context.Context, studentID uuid.UUID, academicYear string) ([]fees.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND academic_year = ?", studentID, academicYear).
		Order("payment_date DESC, created_at DESC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}

	payments := make([]fees.Payment, 0, len(paymentModels))
	for i := range paymentModels {
		payments = append(payments, *paymentModels[i].ToDomain())
	}
	return payments, nil
}

// ExistsByImportKey checks whether a bulk-reconciled row with this dedup key
// was already imported
func (r *GormPaymentRepository) ExistsByImportKey(ctx context.Context, key string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("import_key = ?", key).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountByStatus counts payments per verification status in an academic year
func (r *GormPaymentRepository) CountByStatus(ctx context.Context, academicYear string) (map[fees.PaymentStatus]int64, error) {
	var rows []struct {
		Status fees.PaymentStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("status, COUNT(*) AS count").
		Where("academic_year = ?", academicYear).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[fees.PaymentStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *fees.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking on the aggregate version.
// Only the verification fields are mutable after creation.
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *fees.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]interface{}{
			"status":        model.Status,
			"verified_by":   model.VerifiedBy,
			"verified_at":   model.VerifiedAt,
			"rejected_by":   model.RejectedBy,
			"rejected_at":   model.RejectedAt,
			"reject_reason": model.RejectReason,
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

func (r *GormPaymentRepository) applyPaymentFilter(query *gorm.DB, filter fees.PaymentFilter) *gorm.DB {
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.AcademicYear != "" {
		query = query.Where("academic_year = ?", filter.AcademicYear)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	if filter.DueID != nil {
		// Allocations live in a JSONB array; containment finds payments that
		// touched the due.
		query = query.Where("allocations @> ?", fmt.Sprintf(`[{"due_id": %q}]`, filter.DueID.String()))
	}
	return query
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ fees.PaymentRepository = (*GormPaymentRepository)(nil)
