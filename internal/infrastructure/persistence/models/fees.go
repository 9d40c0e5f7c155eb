package models

import (
	"time"

	"github.com/feeledger/backend/internal/domain/calendar"
	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DueModel is the persistence model for the Due aggregate.
type DueModel struct {
	AggregateModel
	StudentID    uuid.UUID                `gorm:"type:uuid;not null;index:idx_dues_student_year"`
	ClassID      uuid.UUID                `gorm:"type:uuid;not null;index"`
	AcademicYear string                   `gorm:"type:varchar(10);not null;index:idx_dues_student_year"`
	DueType      fees.DueType             `gorm:"type:varchar(10);not null"`
	DueMonth     *string                  `gorm:"type:varchar(7)"`
	ItemType     string                   `gorm:"type:varchar(30);not null"`
	Amount       decimal.Decimal          `gorm:"type:numeric(12,2);not null"`
	PaidAmount   decimal.Decimal          `gorm:"type:numeric(12,2);not null;default:0"`
	Detail       *fees.FeeStructureDetail `gorm:"type:jsonb"`
	RetiredAt    *time.Time               `gorm:"type:timestamptz"`
	RetireReason string                   `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (DueModel) TableName() string {
	return "dues"
}

// ToDomain converts the persistence model to a domain Due aggregate.
func (m *DueModel) ToDomain() *fees.Due {
	due := &fees.Due{
		StudentID:    m.StudentID,
		ClassID:      m.ClassID,
		AcademicYear: m.AcademicYear,
		DueType:      m.DueType,
		ItemType:     m.ItemType,
		Amount:       m.Amount,
		PaidAmount:   m.PaidAmount,
		Detail:       m.Detail,
		RetiredAt:    m.RetiredAt,
		RetireReason: m.RetireReason,
	}
	m.PopulateAggregateRoot(&due.BaseAggregateRoot)
	if m.DueMonth != nil {
		key := calendar.MonthKey(*m.DueMonth)
		due.DueMonth = &key
	}
	return due
}

// FromDomain populates the persistence model from a domain Due aggregate.
func (m *DueModel) FromDomain(d *fees.Due) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.StudentID = d.StudentID
	m.ClassID = d.ClassID
	m.AcademicYear = d.AcademicYear
	m.DueType = d.DueType
	m.ItemType = d.ItemType
	m.Amount = d.Amount
	m.PaidAmount = d.PaidAmount
	m.Detail = d.Detail
	m.RetiredAt = d.RetiredAt
	m.RetireReason = d.RetireReason
	if d.DueMonth != nil {
		s := d.DueMonth.String()
		m.DueMonth = &s
	} else {
		m.DueMonth = nil
	}
}

// DueModelFromDomain creates a new persistence model from a domain Due.
func DueModelFromDomain(d *fees.Due) *DueModel {
	m := &DueModel{}
	m.FromDomain(d)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate. Allocations
// travel as a JSONB column; they are only ever written together with their
// payment.
type PaymentModel struct {
	AuditedAggregateModel
	StudentID       uuid.UUID          `gorm:"type:uuid;not null;index:idx_payments_student_year"`
	PaymentDate     time.Time          `gorm:"type:timestamptz;not null"`
	Method          fees.PaymentMethod `gorm:"type:varchar(20);not null"`
	ReferenceNumber string             `gorm:"type:varchar(100)"`
	Remarks         string             `gorm:"type:varchar(500)"`
	AcademicYear    string             `gorm:"type:varchar(10);not null;index:idx_payments_student_year"`
	Status          fees.PaymentStatus `gorm:"type:varchar(10);not null;default:'PENDING'"`
	Allocations     fees.Allocations   `gorm:"type:jsonb;not null;default:'[]'"`
	ImportKey       *string            `gorm:"type:varchar(255);uniqueIndex"`
	VerifiedBy      *uuid.UUID         `gorm:"type:uuid"`
	VerifiedAt      *time.Time         `gorm:"type:timestamptz"`
	RejectedBy      *uuid.UUID         `gorm:"type:uuid"`
	RejectedAt      *time.Time         `gorm:"type:timestamptz"`
	RejectReason    string             `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment aggregate.
func (m *PaymentModel) ToDomain() *fees.Payment {
	p := &fees.Payment{
		StudentID:       m.StudentID,
		PaymentDate:     m.PaymentDate,
		Method:          m.Method,
		ReferenceNumber: m.ReferenceNumber,
		Remarks:         m.Remarks,
		AcademicYear:    m.AcademicYear,
		Status:          m.Status,
		Allocations:     m.Allocations,
		ImportKey:       m.ImportKey,
		VerifiedBy:      m.VerifiedBy,
		VerifiedAt:      m.VerifiedAt,
		RejectedBy:      m.RejectedBy,
		RejectedAt:      m.RejectedAt,
		RejectReason:    m.RejectReason,
	}
	m.PopulateAuditedAggregateRoot(&p.AuditedAggregateRoot)
	if p.Allocations == nil {
		p.Allocations = make(fees.Allocations, 0)
	}
	return p
}

// FromDomain populates the persistence model from a domain Payment aggregate.
func (m *PaymentModel) FromDomain(p *fees.Payment) {
	m.FromDomainAuditedAggregateRoot(p.AuditedAggregateRoot)
	m.StudentID = p.StudentID
	m.PaymentDate = p.PaymentDate
	m.Method = p.Method
	m.ReferenceNumber = p.ReferenceNumber
	m.Remarks = p.Remarks
	m.AcademicYear = p.AcademicYear
	m.Status = p.Status
	m.Allocations = p.Allocations
	m.ImportKey = p.ImportKey
	m.VerifiedBy = p.VerifiedBy
	m.VerifiedAt = p.VerifiedAt
	m.RejectedBy = p.RejectedBy
	m.RejectedAt = p.RejectedAt
	m.RejectReason = p.RejectReason
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *fees.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// FeeStructureModel is the persistence model for the FeeStructure aggregate.
// The detail column carries whichever blob shape the row was written with;
// normalization happens in the domain type's Scan.
type FeeStructureModel struct {
	AggregateModel
	ClassID      uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_fee_structures_class_year"`
	AcademicYear string                  `gorm:"type:varchar(10);not null;uniqueIndex:idx_fee_structures_class_year"`
	Detail       fees.FeeStructureDetail `gorm:"type:jsonb;not null"`
	StoredTotal  decimal.Decimal         `gorm:"type:numeric(12,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (FeeStructureModel) TableName() string {
	return "fee_structures"
}

// ToDomain converts the persistence model to a domain FeeStructure aggregate.
func (m *FeeStructureModel) ToDomain() *fees.FeeStructure {
	fs := &fees.FeeStructure{
		ClassID:      m.ClassID,
		AcademicYear: m.AcademicYear,
		Detail:       m.Detail,
		StoredTotal:  m.StoredTotal,
	}
	m.PopulateAggregateRoot(&fs.BaseAggregateRoot)
	return fs
}

// FromDomain populates the persistence model from a domain FeeStructure.
func (m *FeeStructureModel) FromDomain(fs *fees.FeeStructure) {
	m.FromDomainAggregateRoot(fs.BaseAggregateRoot)
	m.ClassID = fs.ClassID
	m.AcademicYear = fs.AcademicYear
	m.Detail = fs.Detail
	m.StoredTotal = fs.StoredTotal
}

// FeeStructureModelFromDomain creates a new persistence model from a domain FeeStructure.
func FeeStructureModelFromDomain(fs *fees.FeeStructure) *FeeStructureModel {
	m := &FeeStructureModel{}
	m.FromDomain(fs)
	return m
}
