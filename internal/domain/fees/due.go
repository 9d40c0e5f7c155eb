package fees

import (
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/domain/calendar"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DueStatus is the settlement state of a due. It is always derived from the
// billed and paid amounts on read; it is never persisted as a trusted column.
type DueStatus string

const (
	DueStatusDue     DueStatus = "DUE"     // Nothing paid yet
	DueStatusPartial DueStatus = "PARTIAL" // Partially paid, 0 < paid < amount
	DueStatusPaid    DueStatus = "PAID"    // Fully paid, paid == amount
)

// IsValid checks if the status is a valid DueStatus
func (s DueStatus) IsValid() bool {
	switch s {
	case DueStatusDue, DueStatusPartial, DueStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of DueStatus
func (s DueStatus) String() string {
	return string(s)
}

// DueType distinguishes recurring monthly dues from one-time charges
type DueType string

const (
	DueTypeMonthly DueType = "MONTHLY"
	DueTypeOneTime DueType = "ONE_TIME"
)

// IsValid checks if the due type is valid
func (t DueType) IsValid() bool {
	return t == DueTypeMonthly || t == DueTypeOneTime
}

// String returns the string representation of DueType
func (t DueType) String() string {
	return string(t)
}

// Due represents a billable obligation owed by a student, either one month of
// a recurring fee or a one-time charge. Dues are mutated only through the
// payment allocation path and are soft-retired, never deleted, once any
// payment references them.
type Due struct {
	shared.BaseAggregateRoot
	StudentID    uuid.UUID             `json:"student_id"`
	ClassID      uuid.UUID             `json:"class_id"`
	AcademicYear string                `json:"academic_year"`
	DueType      DueType               `json:"due_type"`
	DueMonth     *calendar.MonthKey    `json:"due_month"` // Set only for monthly dues
	ItemType     string                `json:"item_type"` // e.g. "school_fees", "uniform", "book"
	Amount       decimal.Decimal       `json:"amount"`
	PaidAmount   decimal.Decimal       `json:"paid_amount"`
	Detail       *FeeStructureDetail   `json:"detail,omitempty"` // Fee-structure breakdown this due was billed from
	RetiredAt    *time.Time            `json:"retired_at"`
	RetireReason string                `json:"retire_reason,omitempty"`
}

// NewMonthlyDue creates a due for one month of a recurring fee.
func NewMonthlyDue(
	studentID, classID uuid.UUID,
	academicYear string,
	dueMonth calendar.MonthKey,
	itemType string,
	amount valueobject.Money,
) (*Due, error) {
	if !dueMonth.IsValid() {
		return nil, shared.NewDomainError("INVALID_MONTH_KEY", fmt.Sprintf("Due month %q is not a valid month key", dueMonth))
	}
	due, err := newDue(studentID, classID, academicYear, DueTypeMonthly, itemType, amount)
	if err != nil {
		return nil, err
	}
	due.DueMonth = &dueMonth
	return due, nil
}

// NewOneTimeDue creates a due for a one-time charge such as admission or
// uniform.
func NewOneTimeDue(
	studentID, classID uuid.UUID,
	academicYear string,
	itemType string,
	amount valueobject.Money,
) (*Due, error) {
	return newDue(studentID, classID, academicYear, DueTypeOneTime, itemType, amount)
}

func newDue(
	studentID, classID uuid.UUID,
	academicYear string,
	dueType DueType,
	itemType string,
	amount valueobject.Money,
) (*Due, error) {
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Student ID cannot be empty")
	}
	if academicYear == "" {
		return nil, shared.NewDomainError("INVALID_YEAR_CODE", "Academic year is required")
	}
	if itemType == "" {
		return nil, shared.NewDomainError("INVALID_ITEM_TYPE", "Item type cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Due amount must be positive")
	}

	d := &Due{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		StudentID:         studentID,
		ClassID:           classID,
		AcademicYear:      academicYear,
		DueType:           dueType,
		ItemType:          itemType,
		Amount:            amount.Amount(),
		PaidAmount:        decimal.Zero,
	}

	d.AddDomainEvent(NewDueCreatedEvent(d))

	return d, nil
}

// Status derives the settlement state from billed vs. paid amounts. Upstream
// data corruption (paid above billed, negative paid) is clamped into the
// nearest legal state rather than propagated.
func (d *Due) Status() DueStatus {
	switch {
	case d.PaidAmount.GreaterThanOrEqual(d.Amount):
		return DueStatusPaid
	case d.PaidAmount.GreaterThan(decimal.Zero):
		return DueStatusPartial
	default:
		return DueStatusDue
	}
}

// Outstanding returns the remaining balance, never negative.
func (d *Due) Outstanding() decimal.Decimal {
	out := d.Amount.Sub(d.PaidAmount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// IsRetired returns true if the due has been soft-retired
func (d *Due) IsRetired() bool {
	return d.RetiredAt != nil
}

// ApplyAllocation credits part of a payment against this due. The amount must
// be positive and must not exceed the remaining balance; excess is rejected,
// never absorbed.
func (d *Due) ApplyAllocation(amount valueobject.Money) error {
	if d.IsRetired() {
		return shared.NewDomainError("INVALID_STATE", "Cannot allocate against a retired due")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_ALLOCATION", "Allocation amount must be positive")
	}
	if amount.Amount().GreaterThan(d.Outstanding()) {
		return shared.NewDomainError("INVALID_ALLOCATION",
			fmt.Sprintf("Allocation amount %s exceeds remaining balance %s", amount.Amount(), d.Outstanding()))
	}

	d.PaidAmount = d.PaidAmount.Add(amount.Amount())
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	if d.Status() == DueStatusPaid {
		d.AddDomainEvent(NewDuePaidEvent(d))
	} else {
		d.AddDomainEvent(NewDuePartiallyPaidEvent(d, amount.Amount()))
	}

	return nil
}

// ReverseAllocation debits a previously applied allocation, used when a
// payment is rejected after creation. The amount must not exceed what has
// been paid so far.
func (d *Due) ReverseAllocation(amount valueobject.Money) error {
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_ALLOCATION", "Reversal amount must be positive")
	}
	if amount.Amount().GreaterThan(d.PaidAmount) {
		return shared.NewDomainError("INVALID_ALLOCATION",
			fmt.Sprintf("Reversal amount %s exceeds paid amount %s", amount.Amount(), d.PaidAmount))
	}

	d.PaidAmount = d.PaidAmount.Sub(amount.Amount())
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	d.AddDomainEvent(NewDueAllocationReversedEvent(d, amount.Amount()))

	return nil
}

// Retire soft-retires the due so it stops appearing in active ledgers.
func (d *Due) Retire(reason string) error {
	if d.IsRetired() {
		return shared.NewDomainError("INVALID_STATE", "Due is already retired")
	}
	now := time.Now()
	d.RetiredAt = &now
	d.RetireReason = reason
	d.UpdatedAt = now
	d.IncrementVersion()
	return nil
}

// GetAmountMoney returns the billed amount as Money
func (d *Due) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyINR(d.Amount)
}

// GetPaidAmountMoney returns the paid amount as Money
func (d *Due) GetPaidAmountMoney() valueobject.Money {
	return valueobject.NewMoneyINR(d.PaidAmount)
}

// DueSummary aggregates billed, paid and pending totals over a set of dues.
type DueSummary struct {
	TotalBilled  decimal.Decimal `json:"total_billed"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	TotalPending decimal.Decimal `json:"total_pending"`
}

// SummarizeDues folds a due list into billed/paid/pending totals. Pending is
// clamped per due so corrupt upstream rows (paid above billed) can never turn
// the total negative.
func SummarizeDues(dues []Due) DueSummary {
	s := DueSummary{
		TotalBilled:  decimal.Zero,
		TotalPaid:    decimal.Zero,
		TotalPending: decimal.Zero,
	}
	for i := range dues {
		d := &dues[i]
		s.TotalBilled = s.TotalBilled.Add(d.Amount)
		s.TotalPaid = s.TotalPaid.Add(d.PaidAmount)

		paid := d.PaidAmount
		if paid.GreaterThan(d.Amount) {
			paid = d.Amount
		}
		pending := d.Amount.Sub(paid)
		if pending.IsNegative() {
			pending = decimal.Zero
		}
		s.TotalPending = s.TotalPending.Add(pending)
	}
	return s
}
