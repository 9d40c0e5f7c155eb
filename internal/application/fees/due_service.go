package fees

import (
	"context"
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/domain/calendar"
	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/domain/shared/valueobject"
	"github.com/feeledger/backend/internal/domain/student"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// timeNow is swapped out in tests that pin the clock.
var timeNow = time.Now

// ItemTypeSchoolFees is the item type of the recurring monthly due.
const ItemTypeSchoolFees = "school_fees"

// One-time due item types billed from the fee structure heads.
const (
	ItemTypeAdmission = "admission"
	ItemTypeUniform   = "uniform"
	ItemTypeHstDress  = "hst_dress"
	ItemTypeCopy      = "copy"
	ItemTypeBook      = "book"
)

// DueService serves the due ledger: listing, per-student statements and
// generating a student's dues from the class fee structure.
type DueService struct {
	scope            TransactionScope
	dueRepo          fees.DueRepository
	studentRepo      student.StudentRepository
	feeStructureRepo fees.FeeStructureRepository
	logger           *zap.Logger
}

// NewDueService creates a new DueService
func NewDueService(
	scope TransactionScope,
	dueRepo fees.DueRepository,
	studentRepo student.StudentRepository,
	feeStructureRepo fees.FeeStructureRepository,
	logger *zap.Logger,
) *DueService {
	return &DueService{
		scope:            scope,
		dueRepo:          dueRepo,
		studentRepo:      studentRepo,
		feeStructureRepo: feeStructureRepo,
		logger:           logger,
	}
}

// ListDues returns dues matching the filter.
func (s *DueService) ListDues(ctx context.Context, filter fees.DueFilter, page shared.Filter) (*shared.Paginated[fees.Due], error) {
	return s.dueRepo.FindByFilter(ctx, filter, page)
}

// StudentStatement is a student's dues plus the folded totals.
type StudentStatement struct {
	StudentID uuid.UUID       `json:"student_id"`
	Dues      []fees.Due      `json:"dues"`
	Summary   fees.DueSummary `json:"summary"`
}

// GetStudentDues returns every active due of one student for one academic
// year together with the billed/paid/pending summary.
func (s *DueService) GetStudentDues(ctx context.Context, studentID uuid.UUID, academicYear string) (*StudentStatement, error) {
	st, err := s.studentRepo.FindByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if st == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Student not found")
	}

	dues, err := s.dueRepo.FindByStudent(ctx, studentID, academicYear)
	if err != nil {
		return nil, fmt.Errorf("failed to load dues: %w", err)
	}

	return &StudentStatement{
		StudentID: studentID,
		Dues:      dues,
		Summary:   fees.SummarizeDues(dues),
	}, nil
}

// GenerateStudentDuesResult reports what billing created.
type GenerateStudentDuesResult struct {
	StudentID   uuid.UUID `json:"student_id"`
	CreatedDues int       `json:"created_dues"`
	SkippedDues int       `json:"skipped_dues"`
}

// GenerateStudentDues bills a student for one academic year from the class
// fee structure: one monthly due per academic month plus the one-time heads.
// Generation is idempotent; dues that already exist for an item and month
// are skipped, so re-running after a partial failure only fills the gaps.
func (s *DueService) GenerateStudentDues(ctx context.Context, studentID uuid.UUID, academicYear string) (*GenerateStudentDuesResult, error) {
	st, err := s.studentRepo.FindByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if st == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Student not found")
	}

	fs, err := s.feeStructureRepo.FindByClassAndYear(ctx, st.ClassID, academicYear)
	if err != nil {
		return nil, fmt.Errorf("failed to get fee structure: %w", err)
	}
	if fs == nil {
		return nil, shared.NewDomainError("NOT_FOUND",
			fmt.Sprintf("No fee structure for class %s in %s", st.ClassID, academicYear))
	}

	components, ok := fs.Detail.ComponentsFor(st.Occupancy)
	if !ok {
		return nil, shared.NewDomainError("INVALID_FEE_DETAIL",
			fmt.Sprintf("No fee schedule for occupancy %q", st.Occupancy))
	}
	if variance, err := fs.TotalVariance(st.Occupancy); err == nil && !variance.IsZero() {
		s.logger.Warn("fee structure stored total drifted from components",
			zap.String("class_id", st.ClassID.String()),
			zap.String("academic_year", academicYear),
			zap.String("variance", variance.String()))
	}

	months, fallback := calendar.MonthsOf(academicYear, timeNow())
	if fallback {
		s.logger.Warn("academic year code unparseable, using fallback months",
			zap.String("academic_year", academicYear))
	}

	result := &GenerateStudentDuesResult{StudentID: studentID}
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		dueRepo := repos.DueRepo()
		existing, err := dueRepo.FindByStudent(ctx, studentID, academicYear)
		if err != nil {
			return fmt.Errorf("failed to load existing dues: %w", err)
		}
		monthlyBilled := make(map[calendar.MonthKey]bool)
		oneTimeBilled := make(map[string]bool)
		for i := range existing {
			d := &existing[i]
			if d.DueType == fees.DueTypeMonthly && d.DueMonth != nil && d.ItemType == ItemTypeSchoolFees {
				monthlyBilled[*d.DueMonth] = true
			}
			if d.DueType == fees.DueTypeOneTime {
				oneTimeBilled[d.ItemType] = true
			}
		}

		if components.Monthly.IsPositive() {
			for _, month := range months {
				if monthlyBilled[month] {
					result.SkippedDues++
					continue
				}
				due, err := fees.NewMonthlyDue(studentID, st.ClassID, academicYear, month,
					ItemTypeSchoolFees, valueobject.NewMoneyINR(components.Monthly))
				if err != nil {
					return err
				}
				due.Detail = &fs.Detail
				if err := dueRepo.Save(ctx, due); err != nil {
					return fmt.Errorf("failed to save due for %s: %w", month, err)
				}
				result.CreatedDues++
			}
		}

		oneTime := map[string]valueobject.Money{
			ItemTypeAdmission: valueobject.NewMoneyINR(components.Admission),
			ItemTypeUniform:   valueobject.NewMoneyINR(components.Uniform),
			ItemTypeHstDress:  valueobject.NewMoneyINR(components.HstDress),
			ItemTypeCopy:      valueobject.NewMoneyINR(components.Copy),
			ItemTypeBook:      valueobject.NewMoneyINR(components.Book),
		}
		for itemType, amount := range oneTime {
			if !amount.IsPositive() {
				continue
			}
			if oneTimeBilled[itemType] {
				result.SkippedDues++
				continue
			}
			due, err := fees.NewOneTimeDue(studentID, st.ClassID, academicYear, itemType, amount)
			if err != nil {
				return err
			}
			due.Detail = &fs.Detail
			if err := dueRepo.Save(ctx, due); err != nil {
				return fmt.Errorf("failed to save %s due: %w", itemType, err)
			}
			result.CreatedDues++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RetireDue soft-retires a due so it stops appearing in active ledgers.
func (s *DueService) RetireDue(ctx context.Context, dueID uuid.UUID, reason string) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		due, err := repos.DueRepo().FindByID(ctx, dueID)
		if err != nil {
			return fmt.Errorf("failed to get due: %w", err)
		}
		if due == nil {
			return shared.NewDomainError("NOT_FOUND", "Due not found")
		}
		if err := due.Retire(reason); err != nil {
			return err
		}
		return repos.DueRepo().SaveWithLock(ctx, due)
	})
}
