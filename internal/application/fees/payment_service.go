package fees

import (
	"context"
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// StatsInvalidator drops cached dashboard stats for an academic year after a
// mutation moves the collection totals.
type StatsInvalidator interface {
	InvalidateStats(ctx context.Context, academicYear string)
}

// PaymentService records payments against student dues and drives the
// verification workflow. Every mutation runs inside one transaction scope:
// either the payment, all its allocations and every touched due commit
// together, or nothing does.
type PaymentService struct {
	scope       TransactionScope
	paymentRepo fees.PaymentRepository
	validator   *fees.AllocationValidator
	stats       StatsInvalidator
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(scope TransactionScope, paymentRepo fees.PaymentRepository, stats StatsInvalidator) *PaymentService {
	return &PaymentService{
		scope:       scope,
		paymentRepo: paymentRepo,
		validator:   fees.NewAllocationValidator(),
		stats:       stats,
	}
}

func (s *PaymentService) invalidateStats(ctx context.Context, academicYear string) {
	if s.stats != nil {
		s.stats.InvalidateStats(ctx, academicYear)
	}
}

// RecordPaymentRequest represents a request to record a payment
type RecordPaymentRequest struct {
	StudentID       uuid.UUID
	PaymentDate     time.Time
	Method          fees.PaymentMethod
	ReferenceNumber string
	Remarks         string
	AcademicYear    string
	Allocations     []fees.AllocationRequest
	// AutoVerify records the payment as verified by its creator in the same
	// request, used by counter staff entering cash they have in hand.
	AutoVerify bool
	// ImportKey is set by the bulk reconciler to make re-imports idempotent.
	ImportKey string
	CreatedBy uuid.UUID
}

// RecordPaymentResult represents the outcome of recording a payment
type RecordPaymentResult struct {
	PaymentID    uuid.UUID          `json:"payment_id"`
	Status       fees.PaymentStatus `json:"status"`
	TotalAmount  string             `json:"total_amount"`
	AffectedDues []uuid.UUID        `json:"affected_dues"`
}

// RecordPayment validates the allocation set against a locked snapshot of
// the targeted dues, then persists the payment and credits the dues in one
// transaction. If any allocation is invalid no due is mutated and no payment
// row persists.
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	payment, err := fees.NewPayment(
		req.StudentID, req.PaymentDate, req.Method,
		req.ReferenceNumber, req.Remarks, req.AcademicYear, req.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	if req.ImportKey != "" {
		if err := payment.SetImportKey(req.ImportKey); err != nil {
			return nil, err
		}
	}

	var result *RecordPaymentResult
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		dueRepo := repos.DueRepo()

		payer, err := repos.StudentRepo().FindByID(ctx, req.StudentID)
		if err != nil {
			return fmt.Errorf("failed to get student: %w", err)
		}
		if payer == nil {
			return shared.NewDomainError("UNKNOWN_STUDENT", "Student not found")
		}

		dueIDs := make([]uuid.UUID, 0, len(req.Allocations))
		for id := range fees.SumPerDue(req.Allocations) {
			dueIDs = append(dueIDs, id)
		}

		snapshot, err := dueRepo.FindByIDsForUpdate(ctx, dueIDs)
		if err != nil {
			return fmt.Errorf("failed to load dues: %w", err)
		}
		for id, due := range snapshot {
			if due != nil && due.StudentID != req.StudentID {
				return shared.NewDomainError("INVALID_ALLOCATION",
					fmt.Sprintf("Due %s does not belong to student %s", id, req.StudentID))
			}
		}

		if err := s.validator.Validate(req.Allocations, snapshot); err != nil {
			return err
		}

		for i := range req.Allocations {
			a := &req.Allocations[i]
			if _, err := payment.AddAllocation(a.DueID, valueobject.NewMoneyINR(a.Amount), a.Label, a.Category, a.Notes); err != nil {
				return err
			}
		}

		if req.AutoVerify {
			if err := payment.VerifyAtCreation(); err != nil {
				return err
			}
		}

		affected := make([]uuid.UUID, 0, len(snapshot))
		for dueID, amount := range fees.SumPerDue(req.Allocations) {
			due := snapshot[dueID]
			if err := due.ApplyAllocation(valueobject.NewMoneyINR(amount)); err != nil {
				return err
			}
			if err := dueRepo.SaveWithLock(ctx, due); err != nil {
				return fmt.Errorf("failed to save due %s: %w", dueID, err)
			}
			affected = append(affected, dueID)
		}

		payment.AddDomainEvent(fees.NewPaymentRecordedEvent(payment))
		if err := repos.PaymentRepo().Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}

		result = &RecordPaymentResult{
			PaymentID:    payment.ID,
			Status:       payment.Status,
			TotalAmount:  payment.TotalAmount().String(),
			AffectedDues: affected,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx, req.AcademicYear)
	return result, nil
}

// VerifyPayment marks a pending payment as verified.
func (s *PaymentService) VerifyPayment(ctx context.Context, paymentID, verifierID uuid.UUID) (*fees.Payment, error) {
	var verified *fees.Payment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		payment, err := repos.PaymentRepo().FindByID(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("failed to get payment: %w", err)
		}
		if payment == nil {
			return shared.NewDomainError("NOT_FOUND", "Payment not found")
		}
		if err := payment.Verify(verifierID); err != nil {
			return err
		}
		if err := repos.PaymentRepo().SaveWithLock(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		verified = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx, verified.AcademicYear)
	return verified, nil
}

// RejectPayment marks a pending payment as rejected and reverses every due
// allocation it carried, restoring each due's outstanding balance in the
// same transaction.
func (s *PaymentService) RejectPayment(ctx context.Context, paymentID, rejectorID uuid.UUID, reason string) (*fees.Payment, error) {
	var rejected *fees.Payment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		payment, err := repos.PaymentRepo().FindByID(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("failed to get payment: %w", err)
		}
		if payment == nil {
			return shared.NewDomainError("NOT_FOUND", "Payment not found")
		}
		if err := payment.Reject(rejectorID, reason); err != nil {
			return err
		}

		dueRepo := repos.DueRepo()
		perDue := make(map[uuid.UUID]bool)
		for _, a := range payment.DueAllocations() {
			perDue[*a.DueID] = true
		}
		dueIDs := make([]uuid.UUID, 0, len(perDue))
		for id := range perDue {
			dueIDs = append(dueIDs, id)
		}

		snapshot, err := dueRepo.FindByIDsForUpdate(ctx, dueIDs)
		if err != nil {
			return fmt.Errorf("failed to load dues: %w", err)
		}

		for _, a := range payment.DueAllocations() {
			due, ok := snapshot[*a.DueID]
			if !ok || due == nil {
				return shared.NewDomainError("UNKNOWN_DUE", fmt.Sprintf("Due %s not found", a.DueID))
			}
			if err := due.ReverseAllocation(valueobject.NewMoneyINR(a.Amount)); err != nil {
				return err
			}
		}
		for _, due := range snapshot {
			if err := dueRepo.SaveWithLock(ctx, due); err != nil {
				return fmt.Errorf("failed to save due %s: %w", due.ID, err)
			}
		}

		if err := repos.PaymentRepo().SaveWithLock(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		rejected = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx, rejected.AcademicYear)
	return rejected, nil
}

// GetPayment returns one payment by ID.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*fees.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}
	return payment, nil
}

// ListPayments returns payments matching the filter.
func (s *PaymentService) ListPayments(ctx context.Context, filter fees.PaymentFilter, page shared.Filter) (*shared.Paginated[fees.Payment], error) {
	return s.paymentRepo.FindByFilter(ctx, filter, page)
}
