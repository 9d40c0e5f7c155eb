package fees

import (
	"context"

	"github.com/feeledger/backend/internal/domain/calendar"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DueFilter narrows due queries. Status filters on the derived settlement
// state, which repositories translate into amount comparisons.
type DueFilter struct {
	StudentID      *uuid.UUID
	ClassID        *uuid.UUID
	AcademicYear   string
	DueType        *DueType
	DueMonth       *calendar.MonthKey
	ItemType       string
	Status         *DueStatus
	IncludeRetired bool
}

// DueRepository provides access to dues.
type DueRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Due, error)
	// FindByIDsForUpdate loads a set of dues under a row lock so the snapshot
	// an allocation set is validated against cannot move before commit.
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Due, error)
	FindByFilter(ctx context.Context, filter DueFilter, page shared.Filter) (*shared.Paginated[Due], error)
	FindByStudent(ctx context.Context, studentID uuid.UUID, academicYear string) ([]Due, error)
	// SummarizeByYear folds billed, paid and pending totals over every
	// active due of one academic year.
	SummarizeByYear(ctx context.Context, academicYear string) (DueSummary, error)
	Save(ctx context.Context, due *Due) error
	// SaveWithLock persists using the aggregate version for optimistic
	// concurrency; a stale version yields ErrConcurrencyConflict.
	SaveWithLock(ctx context.Context, due *Due) error
}

// PaymentFilter narrows payment queries.
type PaymentFilter struct {
	StudentID    *uuid.UUID
	AcademicYear string
	Status       *PaymentStatus
	Method       *PaymentMethod
	DueID        *uuid.UUID
}

// PaymentRepository provides access to payments.
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByFilter(ctx context.Context, filter PaymentFilter, page shared.Filter) (*shared.Paginated[Payment], error)
	FindByStudent(ctx context.Context, studentID uuid.UUID, academicYear string) ([]Payment, error)
	ExistsByImportKey(ctx context.Context, key string) (bool, error)
	CountByStatus(ctx context.Context, academicYear string) (map[PaymentStatus]int64, error)
	Save(ctx context.Context, payment *Payment) error
	SaveWithLock(ctx context.Context, payment *Payment) error
}
