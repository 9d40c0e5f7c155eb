package fees

import (
	"fmt"
	"strings"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationRequest is one requested slice of an incoming payment, before
// any due has been touched.
type AllocationRequest struct {
	DueID    *uuid.UUID
	Amount   decimal.Decimal
	Label    string
	Category string
	Notes    string
}

// IsCustomCharge returns true if the request does not target a due
func (r *AllocationRequest) IsCustomCharge() bool {
	return r.DueID == nil
}

func (r *AllocationRequest) hasDescription() bool {
	return strings.TrimSpace(r.Label) != "" ||
		strings.TrimSpace(r.Category) != "" ||
		strings.TrimSpace(r.Notes) != ""
}

// AllocationValidator checks a whole allocation set against a consistent
// snapshot of the targeted dues before anything is mutated. Validation is
// all-or-nothing: the first violation fails the entire set.
type AllocationValidator struct{}

// NewAllocationValidator creates a new AllocationValidator
func NewAllocationValidator() *AllocationValidator {
	return &AllocationValidator{}
}

// Validate checks every request in the set. Amounts targeting the same due
// are summed across the set and the sum is compared against that due's
// remaining balance, so a set cannot overpay a due by splitting across
// multiple slices.
func (v *AllocationValidator) Validate(requests []AllocationRequest, snapshot map[uuid.UUID]*Due) error {
	if len(requests) == 0 {
		return shared.NewDomainError("EMPTY_ALLOCATION_SET", "A payment requires at least one allocation")
	}

	perDue := make(map[uuid.UUID]decimal.Decimal)
	for i := range requests {
		r := &requests[i]
		if r.Amount.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_ALLOCATION", "Allocation amount must be positive")
		}
		if r.IsCustomCharge() {
			if !r.hasDescription() {
				return shared.NewDomainError("INVALID_ALLOCATION", "A custom charge requires a label, category or notes")
			}
			continue
		}
		perDue[*r.DueID] = perDue[*r.DueID].Add(r.Amount)
	}

	for dueID, total := range perDue {
		due, ok := snapshot[dueID]
		if ok && due == nil {
			ok = false
		}
		if !ok {
			return shared.NewDomainError("UNKNOWN_DUE", fmt.Sprintf("Due %s not found", dueID))
		}
		if due.IsRetired() {
			return shared.NewDomainError("INVALID_ALLOCATION", fmt.Sprintf("Due %s is retired", dueID))
		}
		if total.GreaterThan(due.Outstanding()) {
			return shared.NewDomainError("INVALID_ALLOCATION",
				fmt.Sprintf("Allocations totalling %s against due %s exceed its remaining balance %s",
					total, dueID, due.Outstanding()))
		}
	}

	return nil
}

// SumPerDue folds a request set into per-due totals, skipping custom charges.
func SumPerDue(requests []AllocationRequest) map[uuid.UUID]decimal.Decimal {
	perDue := make(map[uuid.UUID]decimal.Decimal)
	for i := range requests {
		if requests[i].DueID != nil {
			perDue[*requests[i].DueID] = perDue[*requests[i].DueID].Add(requests[i].Amount)
		}
	}
	return perDue
}
