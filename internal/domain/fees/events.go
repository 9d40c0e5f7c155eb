package fees

import (
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the fees domain
const (
	EventTypeDueCreated            = "fees.due.created"
	EventTypeDuePaid               = "fees.due.paid"
	EventTypeDuePartiallyPaid      = "fees.due.partially_paid"
	EventTypeDueAllocationReversed = "fees.due.allocation_reversed"
	EventTypePaymentRecorded       = "fees.payment.recorded"
	EventTypePaymentVerified       = "fees.payment.verified"
	EventTypePaymentRejected       = "fees.payment.rejected"
)

// DueCreatedEvent is emitted when a new due is billed
type DueCreatedEvent struct {
	shared.BaseDomainEvent
	StudentID    string          `json:"student_id"`
	AcademicYear string          `json:"academic_year"`
	ItemType     string          `json:"item_type"`
	Amount       decimal.Decimal `json:"amount"`
}

// NewDueCreatedEvent creates a new DueCreatedEvent
func NewDueCreatedEvent(due *Due) *DueCreatedEvent {
	return &DueCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDueCreated, "Due", due.ID),
		StudentID:       due.StudentID.String(),
		AcademicYear:    due.AcademicYear,
		ItemType:        due.ItemType,
		Amount:          due.Amount,
	}
}

// DuePaidEvent is emitted when a due reaches full settlement
type DuePaidEvent struct {
	shared.BaseDomainEvent
	StudentID string          `json:"student_id"`
	ItemType  string          `json:"item_type"`
	Amount    decimal.Decimal `json:"amount"`
}

// NewDuePaidEvent creates a new DuePaidEvent
func NewDuePaidEvent(due *Due) *DuePaidEvent {
	return &DuePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDuePaid, "Due", due.ID),
		StudentID:       due.StudentID.String(),
		ItemType:        due.ItemType,
		Amount:          due.Amount,
	}
}

// DuePartiallyPaidEvent is emitted when an allocation settles only part of a due
type DuePartiallyPaidEvent struct {
	shared.BaseDomainEvent
	StudentID       string          `json:"student_id"`
	ItemType        string          `json:"item_type"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	Outstanding     decimal.Decimal `json:"outstanding"`
}

// NewDuePartiallyPaidEvent creates a new DuePartiallyPaidEvent
func NewDuePartiallyPaidEvent(due *Due, allocated decimal.Decimal) *DuePartiallyPaidEvent {
	return &DuePartiallyPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDuePartiallyPaid, "Due", due.ID),
		StudentID:       due.StudentID.String(),
		ItemType:        due.ItemType,
		AllocatedAmount: allocated,
		Outstanding:     due.Outstanding(),
	}
}

// DueAllocationReversedEvent is emitted when a rejected payment's credit is
// backed out of a due
type DueAllocationReversedEvent struct {
	shared.BaseDomainEvent
	StudentID      string          `json:"student_id"`
	ItemType       string          `json:"item_type"`
	ReversedAmount decimal.Decimal `json:"reversed_amount"`
}

// NewDueAllocationReversedEvent creates a new DueAllocationReversedEvent
func NewDueAllocationReversedEvent(due *Due, reversed decimal.Decimal) *DueAllocationReversedEvent {
	return &DueAllocationReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDueAllocationReversed, "Due", due.ID),
		StudentID:       due.StudentID.String(),
		ItemType:        due.ItemType,
		ReversedAmount:  reversed,
	}
}

// PaymentRecordedEvent is emitted when a payment and its allocations commit
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	StudentID       string          `json:"student_id"`
	AcademicYear    string          `json:"academic_year"`
	Method          string          `json:"payment_method"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	AllocationCount int             `json:"allocation_count"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(payment *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, "Payment", payment.ID),
		StudentID:       payment.StudentID.String(),
		AcademicYear:    payment.AcademicYear,
		Method:          payment.Method.String(),
		TotalAmount:     payment.TotalAmount(),
		AllocationCount: len(payment.Allocations),
	}
}

// PaymentVerifiedEvent is emitted when a payment passes verification
type PaymentVerifiedEvent struct {
	shared.BaseDomainEvent
	StudentID   string          `json:"student_id"`
	VerifiedBy  string          `json:"verified_by"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewPaymentVerifiedEvent creates a new PaymentVerifiedEvent
func NewPaymentVerifiedEvent(payment *Payment) *PaymentVerifiedEvent {
	e := &PaymentVerifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentVerified, "Payment", payment.ID),
		StudentID:       payment.StudentID.String(),
		TotalAmount:     payment.TotalAmount(),
	}
	if payment.VerifiedBy != nil {
		e.VerifiedBy = payment.VerifiedBy.String()
	}
	return e
}

// PaymentRejectedEvent is emitted when a payment is rejected
type PaymentRejectedEvent struct {
	shared.BaseDomainEvent
	StudentID   string          `json:"student_id"`
	RejectedBy  string          `json:"rejected_by"`
	Reason      string          `json:"reason"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewPaymentRejectedEvent creates a new PaymentRejectedEvent
func NewPaymentRejectedEvent(payment *Payment) *PaymentRejectedEvent {
	e := &PaymentRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRejected, "Payment", payment.ID),
		StudentID:       payment.StudentID.String(),
		Reason:          payment.RejectReason,
		TotalAmount:     payment.TotalAmount(),
	}
	if payment.RejectedBy != nil {
		e.RejectedBy = payment.RejectedBy.String()
	}
	return e
}
