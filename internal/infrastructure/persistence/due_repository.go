package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDueRepository implements DueRepository using GORM
type GormDueRepository struct {
	db *gorm.DB
}

// NewGormDueRepository creates a new GormDueRepository
func NewGormDueRepository(db *gorm.DB) *GormDueRepository {
	return &GormDueRepository{db: db}
}

// FindByID finds a due by its ID
func (r *GormDueRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.Due, error) {
	var model models.DueModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDsForUpdate loads dues under FOR UPDATE row locks so a concurrent
// allocation cannot move the snapshot before the transaction commits.
// It must be called inside a transaction.
func (r *GormDueRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*fees.Due, error) {
	result := make(map[uuid.UUID]*fees.Due, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var dueModels []models.DueModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Find(&dueModels).Error; err != nil {
		return nil, err
	}

	for i := range dueModels {
		due := dueModels[i].ToDomain()
		result[due.ID] = due
	}
	return result, nil
}

// FindByFilter finds dues matching the filter with pagination. A status
// filter is translated into amount comparisons because the settlement state
// is derived, never stored.
func (r *GormDueRepository) FindByFilter(ctx context.Context, filter fees.DueFilter, page shared.Filter) (*shared.Paginated[fees.Due], error) {
	query := r.applyDueFilter(r.db.WithContext(ctx).Model(&models.DueModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	query = applyPagination(query, page, "created_at")

	var dueModels []models.DueModel
	if err := query.Find(&dueModels).Error; err != nil {
		return nil, err
	}

	items := make([]fees.Due, 0, len(dueModels))
	for i := range dueModels {
		items = append(items, *dueModels[i].ToDomain())
	}

	paginated := shared.NewPaginated(items, total, page.Page, page.PageSize)
	return &paginated, nil
}

// FindByStudent finds every active due of a student in an academic year,
// ordered with monthly dues in month order.
func (r *GormDueRepository) FindByStudent(ctx context.Context, studentID uuid.UUID, academicYear string) ([]fees.Due, error) {
	var dueModels []models.DueModel
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND academic_year = ? AND retired_at IS NULL", studentID, academicYear).
		Order("due_type, due_month NULLS LAST, created_at").
		Find(&dueModels).Error; err != nil {
		return nil, err
	}

	dues := make([]fees.Due, 0, len(dueModels))
	for i := range dueModels {
		dues = append(dues, *dueModels[i].ToDomain())
	}
	return dues, nil
}

// SummarizeByYear folds billed, paid and pending totals over every active due
// of one academic year. Pending is clamped per row so a corrupt row with paid
// above billed cannot drag the total negative.
func (r *GormDueRepository) SummarizeByYear(ctx context.Context, academicYear string) (fees.DueSummary, error) {
	var row struct {
		TotalBilled  decimal.Decimal
		TotalPaid    decimal.Decimal
		TotalPending decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.DueModel{}).
		Select(
			"COALESCE(SUM(amount), 0) AS total_billed, "+
				"COALESCE(SUM(paid_amount), 0) AS total_paid, "+
				"COALESCE(SUM(GREATEST(amount - paid_amount, 0)), 0) AS total_pending").
		Where("academic_year = ? AND retired_at IS NULL", academicYear).
		Scan(&row).Error
	if err != nil {
		return fees.DueSummary{}, err
	}

	return fees.DueSummary{
		TotalBilled:  row.TotalBilled,
		TotalPaid:    row.TotalPaid,
		TotalPending: row.TotalPending,
	}, nil
}

// Save creates or updates a due
func (r *GormDueRepository) Save(ctx context.Context, due *fees.Due) error {
	model := models.DueModelFromDomain(due)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking on the aggregate version.
// The aggregate has already incremented its version, so the row must still
// hold the previous one.
func (r *GormDueRepository) SaveWithLock(ctx context.Context, due *fees.Due) error {
	model := models.DueModelFromDomain(due)
	result := r.db.WithContext(ctx).
		Model(&models.DueModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]interface{}{
			"paid_amount":   model.PaidAmount,
			"amount":        model.Amount,
			"detail":        model.Detail,
			"retired_at":    model.RetiredAt,
			"retire_reason": model.RetireReason,
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

func (r *GormDueRepository) applyDueFilter(query *gorm.DB, filter fees.DueFilter) *gorm.DB {
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.ClassID != nil {
		query = query.Where("class_id = ?", *filter.ClassID)
	}
	if filter.AcademicYear != "" {
		query = query.Where("academic_year = ?", filter.AcademicYear)
	}
	if filter.DueType != nil {
		query = query.Where("due_type = ?", *filter.DueType)
	}
	if filter.DueMonth != nil {
		query = query.Where("due_month = ?", filter.DueMonth.String())
	}
	if filter.ItemType != "" {
		query = query.Where("item_type = ?", filter.ItemType)
	}
	if !filter.IncludeRetired {
		query = query.Where("retired_at IS NULL")
	}
	if filter.Status != nil {
		switch *filter.Status {
		case fees.DueStatusDue:
			query = query.Where("paid_amount <= 0")
		case fees.DueStatusPartial:
			query = query.Where("paid_amount > 0 AND paid_amount < amount")
		case fees.DueStatusPaid:
			query = query.Where("paid_amount >= amount")
		}
	}
	return query
}

// applyPagination applies page, size and ordering to a query.
func applyPagination(query *gorm.DB, page shared.Filter, defaultOrder string) *gorm.DB {
	if page.Page > 0 && page.PageSize > 0 {
		offset := (page.Page - 1) * page.PageSize
		query = query.Offset(offset).Limit(page.PageSize)
	}

	if page.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(page.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(page.OrderBy + " " + orderDir)
	} else {
		query = query.Order(defaultOrder + " DESC")
	}
	return query
}

// Ensure GormDueRepository implements DueRepository
var _ fees.DueRepository = (*GormDueRepository)(nil)
