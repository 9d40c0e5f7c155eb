package bulk

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ImportSource identifies the kind of legacy register a batch came from
type ImportSource string

const (
	ImportSourceRegisterSheet ImportSource = "register_sheet"
	ImportSourceBankStatement ImportSource = "bank_statement"
)

// IsValid checks if the source is valid
func (s ImportSource) IsValid() bool {
	return s == ImportSourceRegisterSheet || s == ImportSourceBankStatement
}

// ImportStatus represents the status of a reconciliation batch
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// IsValid checks if the status is valid
func (s ImportStatus) IsValid() bool {
	switch s {
	case ImportStatusPending, ImportStatusProcessing, ImportStatusCompleted, ImportStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed
}

// RowErrorDetail records why one sheet row could not be reconciled
type RowErrorDetail struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ImportBatch tracks one run of the bulk payment reconciler. A row is
// imported at most once across batches; rows whose dedup key already exists
// count as skipped, so re-running a batch over the same sheet imports zero
// new payments.
type ImportBatch struct {
	shared.AuditedAggregateRoot
	Source       ImportSource     `json:"source"`
	FileName     string           `json:"file_name"`
	FileSize     int64            `json:"file_size"`
	AcademicYear string           `json:"academic_year"`
	TotalRows    int              `json:"total_rows"`
	ImportedRows int              `json:"imported_rows"`
	SkippedRows  int              `json:"skipped_rows"`
	ErrorRows    int              `json:"error_rows"`
	// SynthesizedStudents counts placeholder identities created for rows
	// that matched no enrolled student.
	SynthesizedStudents int              `json:"synthesized_students"`
	Status              ImportStatus     `json:"status"`
	ErrorDetails        []RowErrorDetail `json:"error_details,omitempty"`
	StartedAt           *time.Time       `json:"started_at,omitempty"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
}

// NewImportBatch creates a pending reconciliation batch.
func NewImportBatch(
	source ImportSource,
	fileName string,
	fileSize int64,
	academicYear string,
	importedBy uuid.UUID,
) (*ImportBatch, error) {
	if !source.IsValid() {
		return nil, shared.NewDomainError("INVALID_IMPORT_SOURCE", fmt.Sprintf("Invalid import source: %s", source))
	}
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if fileSize < 0 {
		return nil, shared.NewDomainError("INVALID_FILE_SIZE", "File size cannot be negative")
	}
	if academicYear == "" {
		return nil, shared.NewDomainError("INVALID_YEAR_CODE", "Academic year is required")
	}

	batch := &ImportBatch{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(importedBy),
		Source:               source,
		FileName:             fileName,
		FileSize:             fileSize,
		AcademicYear:         academicYear,
		Status:               ImportStatusPending,
		ErrorDetails:         make([]RowErrorDetail, 0),
	}

	return batch, nil
}

// StartProcessing marks the batch as started
func (b *ImportBatch) StartProcessing(totalRows int) error {
	if b.Status != ImportStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start processing from state: %s", b.Status))
	}
	if totalRows < 0 {
		return shared.NewDomainError("INVALID_TOTAL_ROWS", "Total rows cannot be negative")
	}

	b.Status = ImportStatusProcessing
	b.TotalRows = totalRows
	now := time.Now()
	b.StartedAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()

	return nil
}

// Complete records the batch outcome. A batch where every row errored and
// nothing was imported or skipped counts as failed.
func (b *ImportBatch) Complete(importedRows, skippedRows, errorRows, synthesized int, errors []RowErrorDetail) error {
	if b.Status != ImportStatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete from state: %s", b.Status))
	}

	status := ImportStatusCompleted
	if errorRows > 0 && importedRows == 0 && skippedRows == 0 {
		status = ImportStatusFailed
	}

	b.Status = status
	b.ImportedRows = importedRows
	b.SkippedRows = skippedRows
	b.ErrorRows = errorRows
	b.SynthesizedStudents = synthesized
	b.ErrorDetails = errors
	now := time.Now()
	b.CompletedAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()

	return nil
}

// Fail marks the batch as failed before any row outcome was recorded,
// used when the sheet itself is unreadable.
func (b *ImportBatch) Fail(errors []RowErrorDetail) error {
	if b.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail from terminal state: %s", b.Status))
	}

	b.Status = ImportStatusFailed
	b.ErrorDetails = errors
	now := time.Now()
	b.CompletedAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()

	return nil
}

// IsCompleted returns true if the batch completed, possibly with row errors
func (b *ImportBatch) IsCompleted() bool {
	return b.Status == ImportStatusCompleted
}

// HasErrors returns true if any row failed
func (b *ImportBatch) HasErrors() bool {
	return len(b.ErrorDetails) > 0
}

// ErrorDetailsJSON returns the error details as a JSON string
func (b *ImportBatch) ErrorDetailsJSON() (string, error) {
	if len(b.ErrorDetails) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(b.ErrorDetails)
	if err != nil {
		return "", fmt.Errorf("failed to marshal error details: %w", err)
	}
	return string(data), nil
}

// SetErrorDetailsFromJSON parses error details from a JSON string
func (b *ImportBatch) SetErrorDetailsFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "[]" {
		b.ErrorDetails = make([]RowErrorDetail, 0)
		return nil
	}
	var details []RowErrorDetail
	if err := json.Unmarshal([]byte(jsonStr), &details); err != nil {
		return fmt.Errorf("failed to unmarshal error details: %w", err)
	}
	b.ErrorDetails = details
	return nil
}

// Duration returns how long the batch ran
func (b *ImportBatch) Duration() time.Duration {
	if b.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if b.CompletedAt != nil {
		end = *b.CompletedAt
	}
	return end.Sub(*b.StartedAt)
}
