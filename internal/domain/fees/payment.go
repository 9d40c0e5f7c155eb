package fees

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the verification state of a recorded payment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"  // Recorded, awaiting verification
	PaymentStatusVerified PaymentStatus = "VERIFIED" // Verified by a staff member (terminal)
	PaymentStatusRejected PaymentStatus = "REJECTED" // Rejected, allocations reversed (terminal)
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusVerified, PaymentStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is allowed
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusVerified || s == PaymentStatusRejected
}

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodUPI          PaymentMethod = "UPI"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
	PaymentMethodOnline       PaymentMethod = "ONLINE"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodUPI,
		PaymentMethodCheque, PaymentMethodOnline, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Allocation is one slice of a payment applied either to an existing due
// (DueID set) or to a free-form custom charge (DueID nil). A custom charge
// must be self-describing through label, category or notes.
type Allocation struct {
	ID        uuid.UUID       `json:"id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	DueID     *uuid.UUID      `json:"due_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Label     string          `json:"label,omitempty"`
	Category  string          `json:"category,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	AppliedAt time.Time       `json:"applied_at"`
}

// IsCustomCharge returns true if the allocation does not target a due
func (a *Allocation) IsCustomCharge() bool {
	return a.DueID == nil
}

// Describe returns the first non-empty descriptive field of a custom charge.
func (a *Allocation) Describe() string {
	for _, s := range []string{a.Label, a.Category, a.Notes} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// GetAmountMoney returns the amount as Money value object
func (a *Allocation) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyINR(a.Amount)
}

// Allocations is stored as a JSONB column within the payment row so the
// payment and its allocations commit as one unit.
type Allocations []Allocation

// Value implements driver.Valuer for JSONB storage
func (a Allocations) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB storage
func (a *Allocations) Scan(value interface{}) error {
	if value == nil {
		*a = Allocations{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Allocations: unsupported type")
	}

	if len(bytes) == 0 {
		*a = Allocations{}
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// Payment represents a single payment received from (or on behalf of) a
// student, recorded atomically with its allocations. Everything except the
// verification status is immutable after creation.
type Payment struct {
	shared.AuditedAggregateRoot
	StudentID       uuid.UUID     `json:"student_id"`
	PaymentDate     time.Time     `json:"payment_date"`
	Method          PaymentMethod `json:"payment_method"`
	ReferenceNumber string        `json:"reference_number,omitempty"`
	Remarks         string        `json:"remarks,omitempty"`
	AcademicYear    string        `json:"academic_year"`
	Status          PaymentStatus `json:"status"`
	Allocations     Allocations   `json:"allocations"`
	// ImportKey is set only for bulk-reconciled legacy rows and is unique,
	// which is what makes re-imports idempotent.
	ImportKey    *string    `json:"import_key,omitempty"`
	VerifiedBy   *uuid.UUID `json:"verified_by,omitempty"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
	RejectedBy   *uuid.UUID `json:"rejected_by,omitempty"`
	RejectedAt   *time.Time `json:"rejected_at,omitempty"`
	RejectReason string     `json:"reject_reason,omitempty"`
}

// NewPayment creates a pending payment shell; allocations are appended
// through AddAllocation before the payment is persisted.
func NewPayment(
	studentID uuid.UUID,
	paymentDate time.Time,
	method PaymentMethod,
	referenceNumber string,
	remarks string,
	academicYear string,
	createdBy uuid.UUID,
) (*Payment, error) {
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Student ID cannot be empty")
	}
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date is required")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Payment method %q is not valid", method))
	}
	if academicYear == "" {
		return nil, shared.NewDomainError("INVALID_YEAR_CODE", "Academic year is required")
	}

	p := &Payment{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		StudentID:            studentID,
		PaymentDate:          paymentDate,
		Method:               method,
		ReferenceNumber:      referenceNumber,
		Remarks:              remarks,
		AcademicYear:         academicYear,
		Status:               PaymentStatusPending,
		Allocations:          make(Allocations, 0),
	}

	return p, nil
}

// AddAllocation appends one allocation slice to the payment. Custom charges
// (nil dueID) must carry at least one descriptive field.
func (p *Payment) AddAllocation(dueID *uuid.UUID, amount valueobject.Money, label, category, notes string) (*Allocation, error) {
	if p.Status.IsTerminal() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot modify allocations of a %s payment", p.Status))
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_ALLOCATION", "Allocation amount must be positive")
	}

	alloc := Allocation{
		ID:        uuid.New(),
		PaymentID: p.ID,
		DueID:     dueID,
		Amount:    amount.Amount(),
		Label:     strings.TrimSpace(label),
		Category:  strings.TrimSpace(category),
		Notes:     strings.TrimSpace(notes),
		AppliedAt: time.Now(),
	}
	if alloc.IsCustomCharge() && alloc.Describe() == "" {
		return nil, shared.NewDomainError("INVALID_ALLOCATION", "A custom charge requires a label, category or notes")
	}

	p.Allocations = append(p.Allocations, alloc)
	p.UpdatedAt = time.Now()

	return &alloc, nil
}

// TotalAmount returns the sum of all allocation amounts.
func (p *Payment) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for i := range p.Allocations {
		total = total.Add(p.Allocations[i].Amount)
	}
	return total
}

// AmountForDue returns the summed allocation amount targeting one due.
func (p *Payment) AmountForDue(dueID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for i := range p.Allocations {
		if p.Allocations[i].DueID != nil && *p.Allocations[i].DueID == dueID {
			total = total.Add(p.Allocations[i].Amount)
		}
	}
	return total
}

// DueAllocations returns only the allocations that target a due.
func (p *Payment) DueAllocations() []Allocation {
	out := make([]Allocation, 0, len(p.Allocations))
	for i := range p.Allocations {
		if !p.Allocations[i].IsCustomCharge() {
			out = append(out, p.Allocations[i])
		}
	}
	return out
}

// Verify moves the payment from pending to verified. Verified is terminal.
func (p *Payment) Verify(verifierID uuid.UUID) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot verify payment in %s status", p.Status))
	}
	if verifierID == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Verifier ID is required")
	}

	now := time.Now()
	p.Status = PaymentStatusVerified
	p.VerifiedBy = &verifierID
	p.VerifiedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentVerifiedEvent(p))

	return nil
}

// VerifyAtCreation marks a payment verified by its creator in the same
// request that records it.
func (p *Payment) VerifyAtCreation() error {
	if p.CreatedBy == nil {
		return shared.NewDomainError("INVALID_USER", "Cannot self-verify a payment without a creator")
	}
	return p.Verify(*p.CreatedBy)
}

// Reject moves the payment from pending to rejected. Rejected is terminal;
// the caller is responsible for reversing the due allocations in the same
// transaction.
func (p *Payment) Reject(rejectorID uuid.UUID, reason string) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reject payment in %s status", p.Status))
	}
	if rejectorID == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Rejector ID is required")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason is required")
	}

	now := time.Now()
	p.Status = PaymentStatusRejected
	p.RejectedBy = &rejectorID
	p.RejectedAt = &now
	p.RejectReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentRejectedEvent(p))

	return nil
}

// SetImportKey tags the payment with its bulk-import dedup key.
func (p *Payment) SetImportKey(key string) error {
	if key == "" {
		return shared.NewDomainError("INVALID_IMPORT_KEY", "Import key cannot be empty")
	}
	p.ImportKey = &key
	return nil
}

// GetTotalAmountMoney returns the payment total as Money
func (p *Payment) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyINR(p.TotalAmount())
}

// BuildImportKey derives the deduplication key for one bulk-imported row.
// The same logical row always produces the same key, which is what keeps
// re-imports from double-crediting.
func BuildImportKey(academicYear, className, studentIdentifier, monthLabel string) string {
	return strings.Join([]string{academicYear, className, studentIdentifier, monthLabel}, "|")
}
