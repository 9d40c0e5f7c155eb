package student

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Student is an enrolled student whose dues and payments the ledger tracks.
// The ledger number is the stable human-facing identifier used on receipts
// and in legacy registers; bulk imports match on it before falling back to
// name matching.
type Student struct {
	shared.AuditedAggregateRoot
	Name         string         `json:"name"`
	LedgerNumber string         `json:"ledger_number"`
	ClassID      uuid.UUID      `json:"class_id"`
	AcademicYear string         `json:"academic_year"`
	Occupancy    fees.Occupancy `json:"occupancy"`
	GuardianName string         `json:"guardian_name,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	// Synthesized marks identities created by the bulk importer when no
	// existing student matched. They stay flagged until a clerk reconciles
	// them against the admission register.
	Synthesized bool       `json:"synthesized"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

// NewStudent creates an enrolled student.
func NewStudent(
	name, ledgerNumber string,
	classID uuid.UUID,
	academicYear string,
	occupancy fees.Occupancy,
	createdBy uuid.UUID,
) (*Student, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Student name cannot be empty")
	}
	if strings.TrimSpace(ledgerNumber) == "" {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Ledger number cannot be empty")
	}
	if classID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLASS", "Class ID cannot be empty")
	}
	if academicYear == "" {
		return nil, shared.NewDomainError("INVALID_YEAR_CODE", "Academic year is required")
	}
	if !occupancy.IsValid() {
		return nil, shared.NewDomainError("INVALID_STUDENT", fmt.Sprintf("Unknown occupancy %q", occupancy))
	}

	return &Student{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		Name:                 name,
		LedgerNumber:         strings.TrimSpace(ledgerNumber),
		ClassID:              classID,
		AcademicYear:         academicYear,
		Occupancy:            occupancy,
	}, nil
}

// NewSynthesizedStudent creates a flagged placeholder identity for a bulk
// import row that matched no existing student.
func NewSynthesizedStudent(
	name, ledgerNumber string,
	classID uuid.UUID,
	academicYear string,
	createdBy uuid.UUID,
) (*Student, error) {
	s, err := NewStudent(name, ledgerNumber, classID, academicYear, fees.OccupancyDefault, createdBy)
	if err != nil {
		return nil, err
	}
	s.Synthesized = true
	return s, nil
}

// Reconcile clears the synthesized flag once a clerk has confirmed the
// identity against the admission register.
func (s *Student) Reconcile() error {
	if !s.Synthesized {
		return shared.NewDomainError("INVALID_STATE", "Student is not a synthesized identity")
	}
	s.Synthesized = false
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// IsArchived returns true if the student has left the rolls
func (s *Student) IsArchived() bool {
	return s.ArchivedAt != nil
}

// Archive removes the student from active rolls without deleting history.
func (s *Student) Archive() error {
	if s.IsArchived() {
		return shared.NewDomainError("INVALID_STATE", "Student is already archived")
	}
	now := time.Now()
	s.ArchivedAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()
	return nil
}

// Promote moves the student into a new class for a new academic year.
func (s *Student) Promote(classID uuid.UUID, academicYear string) error {
	if s.IsArchived() {
		return shared.NewDomainError("INVALID_STATE", "Cannot promote an archived student")
	}
	if classID == uuid.Nil {
		return shared.NewDomainError("INVALID_CLASS", "Class ID cannot be empty")
	}
	if academicYear == "" {
		return shared.NewDomainError("INVALID_YEAR_CODE", "Academic year is required")
	}
	s.ClassID = classID
	s.AcademicYear = academicYear
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// SetContact updates guardian details.
func (s *Student) SetContact(guardianName, phone string) {
	s.GuardianName = strings.TrimSpace(guardianName)
	s.Phone = strings.TrimSpace(phone)
	s.UpdatedAt = time.Now()
}

// StudentFilter narrows student queries.
type StudentFilter struct {
	ClassID         *uuid.UUID
	AcademicYear    string
	Name            string
	OnlySynthesized bool
	IncludeArchived bool
}

// StudentRepository provides access to students.
type StudentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Student, error)
	FindByLedgerNumber(ctx context.Context, ledgerNumber string) (*Student, error)
	// FindByClassAndName resolves a bulk-import row that carries no ledger
	// number. Matching is exact on the trimmed name within the class.
	FindByClassAndName(ctx context.Context, classID uuid.UUID, name string) (*Student, error)
	FindByFilter(ctx context.Context, filter StudentFilter, page shared.Filter) (*shared.Paginated[Student], error)
	Save(ctx context.Context, student *Student) error
	SaveWithLock(ctx context.Context, student *Student) error
}
