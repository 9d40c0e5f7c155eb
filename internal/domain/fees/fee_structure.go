package fees

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Occupancy distinguishes fee schedules for boarders and day scholars
type Occupancy string

const (
	OccupancyHosteller  Occupancy = "hosteller"
	OccupancyDayScholar Occupancy = "day_scholar"
	// OccupancyDefault holds the single schedule of legacy flat records that
	// predate the occupancy split.
	OccupancyDefault Occupancy = "default"
)

// IsValid checks if the occupancy is valid
func (o Occupancy) IsValid() bool {
	return o == OccupancyHosteller || o == OccupancyDayScholar || o == OccupancyDefault
}

// FeeComponents is the per-schedule breakdown of a class's fees for one
// academic year. SchoolFeesTotal, when present, overrides Admission+Monthly
// as the school-fees head; the remaining heads always add on top.
type FeeComponents struct {
	Admission       decimal.Decimal  `json:"admission"`
	Monthly         decimal.Decimal  `json:"monthly"`
	SchoolFeesTotal *decimal.Decimal `json:"school_fees_total,omitempty"`
	Uniform         decimal.Decimal  `json:"uniform"`
	HstDress        decimal.Decimal  `json:"hst_dress"`
	Copy            decimal.Decimal  `json:"copy"`
	Book            decimal.Decimal  `json:"book"`
}

// componentAliases maps each head to the field names seen across record
// generations. Older exports used camelCase and a few renamed heads.
var componentAliases = map[string][]string{
	"admission":         {"admission", "admission_fees", "admissionFees"},
	"monthly":           {"monthly", "monthly_fees", "monthlyFees", "school_fees", "schoolFees"},
	"school_fees_total": {"school_fees_total", "schoolFeesTotal"},
	"uniform":           {"uniform"},
	"hst_dress":         {"hst_dress", "hstDress", "hst"},
	"copy":              {"copy", "copy_fees", "copyFees"},
	"book":              {"book", "book_fees", "bookFees"},
}

func pickComponent(raw map[string]json.RawMessage, head string) (decimal.Decimal, bool, error) {
	for _, name := range componentAliases[head] {
		v, ok := raw[name]
		if !ok || string(v) == "null" {
			continue
		}
		var d decimal.Decimal
		if err := json.Unmarshal(v, &d); err != nil {
			return decimal.Zero, false, fmt.Errorf("component %s: %w", name, err)
		}
		return d, true, nil
	}
	return decimal.Zero, false, nil
}

// UnmarshalJSON normalizes any known field spelling into the canonical heads.
func (c *FeeComponents) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	heads := map[string]*decimal.Decimal{
		"admission": &c.Admission,
		"monthly":   &c.Monthly,
		"uniform":   &c.Uniform,
		"hst_dress": &c.HstDress,
		"copy":      &c.Copy,
		"book":      &c.Book,
	}
	for head, dst := range heads {
		d, ok, err := pickComponent(raw, head)
		if err != nil {
			return err
		}
		if ok {
			*dst = d
		} else {
			*dst = decimal.Zero
		}
	}

	d, ok, err := pickComponent(raw, "school_fees_total")
	if err != nil {
		return err
	}
	if ok {
		c.SchoolFeesTotal = &d
	} else {
		c.SchoolFeesTotal = nil
	}
	return nil
}

// SchoolFees returns the school-fees head: the explicit stored total when
// present, otherwise admission plus monthly.
func (c FeeComponents) SchoolFees() decimal.Decimal {
	if c.SchoolFeesTotal != nil {
		return *c.SchoolFeesTotal
	}
	return c.Admission.Add(c.Monthly)
}

// ComputeTotal recomputes the annual total from the component heads.
func (c FeeComponents) ComputeTotal() decimal.Decimal {
	return c.SchoolFees().
		Add(c.Uniform).
		Add(c.HstDress).
		Add(c.Copy).
		Add(c.Book)
}

// Detail blob versions. Version 1 is the legacy flat component object,
// version 2 keys components by occupancy.
const (
	DetailVersionFlat      = 1
	DetailVersionOccupancy = 2
)

// FeeStructureDetail is the persisted component blob of a fee structure,
// normalized on read so callers only ever see the occupancy-keyed form.
type FeeStructureDetail struct {
	Version    int                         `json:"version"`
	Components map[Occupancy]FeeComponents `json:"components"`
}

// NewFeeStructureDetail builds an occupancy-keyed detail blob.
func NewFeeStructureDetail(components map[Occupancy]FeeComponents) (*FeeStructureDetail, error) {
	if len(components) == 0 {
		return nil, shared.NewDomainError("INVALID_FEE_DETAIL", "Fee structure detail requires at least one component schedule")
	}
	for occ := range components {
		if !occ.IsValid() {
			return nil, shared.NewDomainError("INVALID_FEE_DETAIL", fmt.Sprintf("Unknown occupancy %q", occ))
		}
	}
	return &FeeStructureDetail{
		Version:    DetailVersionOccupancy,
		Components: components,
	}, nil
}

// ComponentsFor resolves the schedule for an occupancy, falling back to the
// legacy default schedule when no occupancy-specific one exists.
func (d *FeeStructureDetail) ComponentsFor(occ Occupancy) (FeeComponents, bool) {
	if c, ok := d.Components[occ]; ok {
		return c, true
	}
	if c, ok := d.Components[OccupancyDefault]; ok {
		return c, true
	}
	return FeeComponents{}, false
}

// UnmarshalJSON accepts both blob generations: the occupancy-keyed object
// (with or without a version marker) and the legacy flat component object,
// which is normalized under OccupancyDefault.
func (d *FeeStructureDetail) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if looksOccupancyKeyed(probe) {
		d.Version = DetailVersionOccupancy
		d.Components = make(map[Occupancy]FeeComponents)
		for _, occ := range []Occupancy{OccupancyHosteller, OccupancyDayScholar, OccupancyDefault} {
			raw := probe[string(occ)]
			if raw == nil && probe["components"] != nil {
				var inner map[string]json.RawMessage
				if err := json.Unmarshal(probe["components"], &inner); err != nil {
					return err
				}
				raw = inner[string(occ)]
			}
			if raw == nil {
				continue
			}
			var c FeeComponents
			if err := json.Unmarshal(raw, &c); err != nil {
				return err
			}
			d.Components[occ] = c
		}
		if len(d.Components) == 0 {
			return errors.New("occupancy-keyed fee detail has no recognizable schedule")
		}
		return nil
	}

	var flat FeeComponents
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	d.Version = DetailVersionFlat
	d.Components = map[Occupancy]FeeComponents{OccupancyDefault: flat}
	return nil
}

func looksOccupancyKeyed(raw map[string]json.RawMessage) bool {
	if _, ok := raw[string(OccupancyHosteller)]; ok {
		return true
	}
	if _, ok := raw[string(OccupancyDayScholar)]; ok {
		return true
	}
	if inner, ok := raw["components"]; ok {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(inner, &m); err == nil {
			_, h := m[string(OccupancyHosteller)]
			_, s := m[string(OccupancyDayScholar)]
			_, def := m[string(OccupancyDefault)]
			return h || s || def
		}
	}
	return false
}

// Value implements driver.Valuer for JSONB storage
func (d FeeStructureDetail) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner for JSONB storage
func (d *FeeStructureDetail) Scan(value interface{}) error {
	if value == nil {
		*d = FeeStructureDetail{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan FeeStructureDetail: unsupported type")
	}
	if len(bytes) == 0 {
		*d = FeeStructureDetail{}
		return nil
	}
	return json.Unmarshal(bytes, d)
}

// FeeStructure is the billed schedule for one class in one academic year.
// The stored total is denormalized for listing screens and is re-verified
// against the component heads whenever it is consumed.
type FeeStructure struct {
	shared.BaseAggregateRoot
	ClassID      uuid.UUID          `json:"class_id"`
	AcademicYear string             `json:"academic_year"`
	Detail       FeeStructureDetail `json:"detail"`
	StoredTotal  decimal.Decimal    `json:"stored_total"`
}

// NewFeeStructure creates a fee structure; the stored total is computed from
// the default or sole schedule at creation time.
func NewFeeStructure(classID uuid.UUID, academicYear string, detail FeeStructureDetail) (*FeeStructure, error) {
	if classID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLASS", "Class ID cannot be empty")
	}
	if academicYear == "" {
		return nil, shared.NewDomainError("INVALID_YEAR_CODE", "Academic year is required")
	}
	if len(detail.Components) == 0 {
		return nil, shared.NewDomainError("INVALID_FEE_DETAIL", "Fee structure detail requires at least one component schedule")
	}

	fs := &FeeStructure{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ClassID:           classID,
		AcademicYear:      academicYear,
		Detail:            detail,
	}
	if c, ok := detail.ComponentsFor(OccupancyDefault); ok {
		fs.StoredTotal = c.ComputeTotal()
	} else {
		for _, c := range detail.Components {
			fs.StoredTotal = c.ComputeTotal()
			break
		}
	}
	return fs, nil
}

// TotalVariance compares the stored total against the recomputed total for
// an occupancy. A non-zero variance means the stored value has drifted and
// must not be trusted.
func (f *FeeStructure) TotalVariance(occ Occupancy) (decimal.Decimal, error) {
	c, ok := f.Detail.ComponentsFor(occ)
	if !ok {
		return decimal.Zero, shared.NewDomainError("INVALID_FEE_DETAIL", fmt.Sprintf("No fee schedule for occupancy %q", occ))
	}
	return f.StoredTotal.Sub(c.ComputeTotal()), nil
}

// VerifiedTotal returns the recomputed total for an occupancy, ignoring the
// stored value entirely.
func (f *FeeStructure) VerifiedTotal(occ Occupancy) (decimal.Decimal, error) {
	c, ok := f.Detail.ComponentsFor(occ)
	if !ok {
		return decimal.Zero, shared.NewDomainError("INVALID_FEE_DETAIL", fmt.Sprintf("No fee schedule for occupancy %q", occ))
	}
	return c.ComputeTotal(), nil
}

// FeeStructureRepository provides access to fee structures.
type FeeStructureRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*FeeStructure, error)
	FindByClassAndYear(ctx context.Context, classID uuid.UUID, academicYear string) (*FeeStructure, error)
	FindByYear(ctx context.Context, academicYear string) ([]FeeStructure, error)
	Save(ctx context.Context, fs *FeeStructure) error
}
