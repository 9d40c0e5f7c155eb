package student

import (
	"context"
	"strings"
	"time"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SchoolClass is one class (grade) students enroll into. Classes carry a
// display order so ledgers and dashboards list Nursery before Class 1.
type SchoolClass struct {
	shared.BaseEntity
	Name         string `json:"name"`
	DisplayOrder int    `json:"display_order"`
	Active       bool   `json:"active"`
}

// NewSchoolClass creates a class.
func NewSchoolClass(name string, displayOrder int) (*SchoolClass, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_CLASS", "Class name cannot be empty")
	}
	return &SchoolClass{
		BaseEntity:   shared.NewBaseEntity(),
		Name:         name,
		DisplayOrder: displayOrder,
		Active:       true,
	}, nil
}

// Deactivate hides the class from enrollment without deleting it.
func (c *SchoolClass) Deactivate() {
	c.Active = false
	c.UpdatedAt = time.Now()
}

// SchoolClassRepository provides access to classes.
type SchoolClassRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*SchoolClass, error)
	FindByName(ctx context.Context, name string) (*SchoolClass, error)
	FindAll(ctx context.Context, includeInactive bool) ([]SchoolClass, error)
	Save(ctx context.Context, class *SchoolClass) error
}
