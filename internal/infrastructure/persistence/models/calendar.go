package models

import (
	"github.com/feeledger/backend/internal/domain/calendar"
)

// AcademicYearModel is the persistence model for AcademicYear.
type AcademicYearModel struct {
	BaseModel
	Code       string `gorm:"type:varchar(10);not null;uniqueIndex"`
	StartMonth int    `gorm:"not null;default:4"`
	IsCurrent  bool   `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (AcademicYearModel) TableName() string {
	return "academic_years"
}

// ToDomain converts the persistence model to a domain AcademicYear.
func (m *AcademicYearModel) ToDomain() *calendar.AcademicYear {
	return &calendar.AcademicYear{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		StartMonth: m.StartMonth,
		IsCurrent:  m.IsCurrent,
	}
}

// FromDomain populates the persistence model from a domain AcademicYear.
func (m *AcademicYearModel) FromDomain(y *calendar.AcademicYear) {
	m.FromDomainBaseEntity(y.BaseEntity)
	m.Code = y.Code
	m.StartMonth = y.StartMonth
	m.IsCurrent = y.IsCurrent
}

// AcademicYearModelFromDomain creates a new persistence model from a domain AcademicYear.
func AcademicYearModelFromDomain(y *calendar.AcademicYear) *AcademicYearModel {
	m := &AcademicYearModel{}
	m.FromDomain(y)
	return m
}
