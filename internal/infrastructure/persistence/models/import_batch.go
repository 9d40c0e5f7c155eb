package models

import (
	"time"

	"github.com/feeledger/backend/internal/domain/bulk"
)

// ImportBatchModel is the persistence model for the ImportBatch aggregate.
type ImportBatchModel struct {
	AuditedAggregateModel
	Source              bulk.ImportSource `gorm:"type:varchar(20);not null"`
	FileName            string            `gorm:"type:varchar(255);not null"`
	FileSize            int64             `gorm:"not null;default:0"`
	AcademicYear        string            `gorm:"type:varchar(10);not null;index"`
	TotalRows           int               `gorm:"not null;default:0"`
	ImportedRows        int               `gorm:"not null;default:0"`
	SkippedRows         int               `gorm:"not null;default:0"`
	ErrorRows           int               `gorm:"not null;default:0"`
	SynthesizedStudents int               `gorm:"not null;default:0"`
	Status              bulk.ImportStatus `gorm:"type:varchar(15);not null;default:'pending';index"`
	ErrorDetails        string            `gorm:"type:jsonb;default:'[]'"`
	StartedAt           *time.Time        `gorm:"type:timestamptz"`
	CompletedAt         *time.Time        `gorm:"type:timestamptz"`
}

// TableName returns the table name for GORM
func (ImportBatchModel) TableName() string {
	return "import_batches"
}

// ToDomain converts the persistence model to a domain ImportBatch aggregate.
func (m *ImportBatchModel) ToDomain() *bulk.ImportBatch {
	b := &bulk.ImportBatch{
		Source:              m.Source,
		FileName:            m.FileName,
		FileSize:            m.FileSize,
		AcademicYear:        m.AcademicYear,
		TotalRows:           m.TotalRows,
		ImportedRows:        m.ImportedRows,
		SkippedRows:         m.SkippedRows,
		ErrorRows:           m.ErrorRows,
		SynthesizedStudents: m.SynthesizedStudents,
		Status:              m.Status,
		StartedAt:           m.StartedAt,
		CompletedAt:         m.CompletedAt,
	}
	m.PopulateAuditedAggregateRoot(&b.AuditedAggregateRoot)
	if m.ErrorDetails != "" {
		_ = b.SetErrorDetailsFromJSON(m.ErrorDetails)
	}
	return b
}

// FromDomain populates the persistence model from a domain ImportBatch.
func (m *ImportBatchModel) FromDomain(b *bulk.ImportBatch) {
	m.FromDomainAuditedAggregateRoot(b.AuditedAggregateRoot)
	m.Source = b.Source
	m.FileName = b.FileName
	m.FileSize = b.FileSize
	m.AcademicYear = b.AcademicYear
	m.TotalRows = b.TotalRows
	m.ImportedRows = b.ImportedRows
	m.SkippedRows = b.SkippedRows
	m.ErrorRows = b.ErrorRows
	m.SynthesizedStudents = b.SynthesizedStudents
	m.Status = b.Status
	m.StartedAt = b.StartedAt
	m.CompletedAt = b.CompletedAt

	if errorJSON, err := b.ErrorDetailsJSON(); err == nil {
		m.ErrorDetails = errorJSON
	} else {
		m.ErrorDetails = "[]"
	}
}

// ImportBatchModelFromDomain creates a new persistence model from a domain ImportBatch.
func ImportBatchModelFromDomain(b *bulk.ImportBatch) *ImportBatchModel {
	m := &ImportBatchModel{}
	m.FromDomain(b)
	return m
}
