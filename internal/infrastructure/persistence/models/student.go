package models

import (
	"time"

	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/student"
	"github.com/google/uuid"
)

// StudentModel is the persistence model for the Student aggregate.
type StudentModel struct {
	AuditedAggregateModel
	Name         string         `gorm:"type:varchar(150);not null;index:idx_students_class_name"`
	LedgerNumber string         `gorm:"type:varchar(50);not null;uniqueIndex"`
	ClassID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_students_class_name"`
	AcademicYear string         `gorm:"type:varchar(10);not null;index"`
	Occupancy    fees.Occupancy `gorm:"type:varchar(15);not null;default:'default'"`
	GuardianName string         `gorm:"type:varchar(150)"`
	Phone        string         `gorm:"type:varchar(20)"`
	Synthesized  bool           `gorm:"not null;default:false;index"`
	ArchivedAt   *time.Time     `gorm:"type:timestamptz"`
}

// TableName returns the table name for GORM
func (StudentModel) TableName() string {
	return "students"
}

// ToDomain converts the persistence model to a domain Student aggregate.
func (m *StudentModel) ToDomain() *student.Student {
	s := &student.Student{
		Name:         m.Name,
		LedgerNumber: m.LedgerNumber,
		ClassID:      m.ClassID,
		AcademicYear: m.AcademicYear,
		Occupancy:    m.Occupancy,
		GuardianName: m.GuardianName,
		Phone:        m.Phone,
		Synthesized:  m.Synthesized,
		ArchivedAt:   m.ArchivedAt,
	}
	m.PopulateAuditedAggregateRoot(&s.AuditedAggregateRoot)
	return s
}

// FromDomain populates the persistence model from a domain Student aggregate.
func (m *StudentModel) FromDomain(s *student.Student) {
	m.FromDomainAuditedAggregateRoot(s.AuditedAggregateRoot)
	m.Name = s.Name
	m.LedgerNumber = s.LedgerNumber
	m.ClassID = s.ClassID
	m.AcademicYear = s.AcademicYear
	m.Occupancy = s.Occupancy
	m.GuardianName = s.GuardianName
	m.Phone = s.Phone
	m.Synthesized = s.Synthesized
	m.ArchivedAt = s.ArchivedAt
}

// StudentModelFromDomain creates a new persistence model from a domain Student.
func StudentModelFromDomain(s *student.Student) *StudentModel {
	m := &StudentModel{}
	m.FromDomain(s)
	return m
}

// SchoolClassModel is the persistence model for SchoolClass.
type SchoolClassModel struct {
	BaseModel
	Name         string `gorm:"type:varchar(50);not null;uniqueIndex"`
	DisplayOrder int    `gorm:"not null;default:0"`
	Active       bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (SchoolClassModel) TableName() string {
	return "school_classes"
}

// ToDomain converts the persistence model to a domain SchoolClass.
func (m *SchoolClassModel) ToDomain() *student.SchoolClass {
	return &student.SchoolClass{
		BaseEntity:   m.BaseModel.ToDomain(),
		Name:         m.Name,
		DisplayOrder: m.DisplayOrder,
		Active:       m.Active,
	}
}

// FromDomain populates the persistence model from a domain SchoolClass.
func (m *SchoolClassModel) FromDomain(c *student.SchoolClass) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Name = c.Name
	m.DisplayOrder = c.DisplayOrder
	m.Active = c.Active
}

// SchoolClassModelFromDomain creates a new persistence model from a domain SchoolClass.
func SchoolClassModelFromDomain(c *student.SchoolClass) *SchoolClassModel {
	m := &SchoolClassModel{}
	m.FromDomain(c)
	return m
}
