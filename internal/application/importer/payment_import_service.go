package importer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	appfees "github.com/feeledger/backend/internal/application/fees"
	"github.com/feeledger/backend/internal/domain/bulk"
	"github.com/feeledger/backend/internal/domain/calendar"
	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/student"
	csvimport "github.com/feeledger/backend/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentImportService reconciles legacy register sheets into the ledger.
// Each sheet row becomes one payment recorded through the same allocation
// path as interactive entry; rows whose dedup key already exists are
// skipped, so re-importing a sheet never double-credits a due.
type PaymentImportService struct {
	paymentSvc      *appfees.PaymentService
	batchRepo       bulk.ImportBatchRepository
	classRepo       student.SchoolClassRepository
	studentRepo     student.StudentRepository
	dueRepo         fees.DueRepository
	paymentRepo     fees.PaymentRepository
	maxRetainedRows int
	logger          *zap.Logger
}

// NewPaymentImportService creates a new PaymentImportService.
// maxRetainedRows caps the per-row error payload stored on a batch; the
// batch error counter still counts every failed row.
func NewPaymentImportService(
	paymentSvc *appfees.PaymentService,
	batchRepo bulk.ImportBatchRepository,
	classRepo student.SchoolClassRepository,
	studentRepo student.StudentRepository,
	dueRepo fees.DueRepository,
	paymentRepo fees.PaymentRepository,
	maxRetainedRows int,
	logger *zap.Logger,
) *PaymentImportService {
	return &PaymentImportService{
		paymentSvc:      paymentSvc,
		batchRepo:       batchRepo,
		classRepo:       classRepo,
		studentRepo:     studentRepo,
		dueRepo:         dueRepo,
		paymentRepo:     paymentRepo,
		maxRetainedRows: maxRetainedRows,
		logger:          logger,
	}
}

// ImportRequest describes one sheet to reconcile.
type ImportRequest struct {
	Reader       io.Reader
	FileName     string
	FileSize     int64
	AcademicYear string
	ImportedBy   uuid.UUID
}

// ImportPayments runs a full reconciliation batch. An unreadable sheet fails
// the batch before any row is processed; a bad row never aborts the batch.
// The returned batch carries the imported/skipped/error counters.
func (s *PaymentImportService) ImportPayments(ctx context.Context, req ImportRequest) (*bulk.ImportBatch, error) {
	batch, err := bulk.NewImportBatch(bulk.ImportSourceRegisterSheet, req.FileName, req.FileSize, req.AcademicYear, req.ImportedBy)
	if err != nil {
		return nil, err
	}
	if err := s.batchRepo.Save(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to save import batch: %w", err)
	}

	parser, err := csvimport.NewSheetParser(req.Reader)
	if err != nil {
		return s.failBatch(ctx, batch, err)
	}
	if err := parser.ParseHeader(); err != nil {
		return s.failBatch(ctx, batch, err)
	}
	for _, col := range []string{csvimport.ColumnClass, csvimport.ColumnStudent, csvimport.ColumnMonth, csvimport.ColumnAmount} {
		if !parser.HasColumn(col) {
			return s.failBatch(ctx, batch, fmt.Errorf("sheet is missing required column %q", col))
		}
	}

	rows, malformed, err := parser.ReadAllRows()
	if err != nil {
		return s.failBatch(ctx, batch, err)
	}

	if err := batch.StartProcessing(len(rows) + len(malformed)); err != nil {
		return nil, err
	}
	if err := s.batchRepo.Save(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to save import batch: %w", err)
	}

	errs := csvimport.NewErrorCollection(s.maxRetainedRows)
	for _, re := range malformed {
		errs.Add(re)
	}

	imported, skipped, synthesized := 0, 0, 0
	seenKeys := make(map[string]bool)
	classCache := make(map[string]*student.SchoolClass)

	for _, row := range rows {
		outcome, err := s.importRow(ctx, req, row, seenKeys, classCache)
		if err != nil {
			if re, ok := err.(csvimport.RowError); ok {
				errs.Add(re)
			} else {
				errs.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeRowFailed, err.Error()))
			}
			continue
		}
		switch {
		case outcome.skipped:
			skipped++
		default:
			imported++
			if outcome.synthesized {
				synthesized++
			}
		}
	}

	if err := batch.Complete(imported, skipped, errs.TotalCount(), synthesized, toBatchErrors(errs.Errors())); err != nil {
		return nil, err
	}
	if err := s.batchRepo.Save(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to save import batch: %w", err)
	}

	s.logger.Info("reconciliation batch finished",
		zap.String("batch_id", batch.ID.String()),
		zap.String("file", batch.FileName),
		zap.Int("imported", imported),
		zap.Int("skipped", skipped),
		zap.Int("errors", errs.TotalCount()),
		zap.Int("synthesized_students", synthesized))

	return batch, nil
}

type rowOutcome struct {
	skipped     bool
	synthesized bool
}

func (s *PaymentImportService) importRow(
	ctx context.Context,
	req ImportRequest,
	row *csvimport.RegisterRow,
	seenKeys map[string]bool,
	classCache map[string]*student.SchoolClass,
) (rowOutcome, error) {
	className := row.Get(csvimport.ColumnClass)
	if className == "" {
		return rowOutcome{}, csvimport.NewRowError(row.LineNumber, csvimport.ColumnClass, csvimport.ErrCodeRequiredField, "class is required")
	}
	studentName := row.Get(csvimport.ColumnStudent)
	if studentName == "" {
		return rowOutcome{}, csvimport.NewRowError(row.LineNumber, csvimport.ColumnStudent, csvimport.ErrCodeRequiredField, "student is required")
	}

	amount, err := row.Amount()
	if err != nil {
		return rowOutcome{}, err
	}
	monthKey, err := row.MonthKey(req.AcademicYear, time.Now())
	if err != nil {
		return rowOutcome{}, err
	}
	paymentDate, err := row.Date(time.Now())
	if err != nil {
		return rowOutcome{}, err
	}

	identifier := row.Get(csvimport.ColumnLedgerNo)
	if identifier == "" {
		identifier = studentName
	}
	importKey := fees.BuildImportKey(req.AcademicYear, className, identifier, monthKey.String())

	// In-file duplicates and rows from earlier runs both count as skipped.
	if seenKeys[importKey] {
		return rowOutcome{skipped: true}, nil
	}
	seenKeys[importKey] = true

	exists, err := s.paymentRepo.ExistsByImportKey(ctx, importKey)
	if err != nil {
		return rowOutcome{}, fmt.Errorf("dedup lookup failed: %w", err)
	}
	if exists {
		return rowOutcome{skipped: true}, nil
	}

	class, err := s.resolveClass(ctx, className, classCache)
	if err != nil {
		return rowOutcome{}, csvimport.NewRowErrorWithValue(row.LineNumber, csvimport.ColumnClass, csvimport.ErrCodeUnknownClass, "class not found", className)
	}

	st, wasSynthesized, err := s.resolveStudent(ctx, req, row, class)
	if err != nil {
		return rowOutcome{}, err
	}

	allocations, err := s.buildAllocations(ctx, st.ID, req.AcademicYear, monthKey, amount)
	if err != nil {
		return rowOutcome{}, err
	}

	_, err = s.paymentSvc.RecordPayment(ctx, appfees.RecordPaymentRequest{
		StudentID:    st.ID,
		PaymentDate:  paymentDate,
		Method:       parseMethod(row.Get(csvimport.ColumnMethod)),
		Remarks:      row.Get(csvimport.ColumnRemarks),
		AcademicYear: req.AcademicYear,
		Allocations:  allocations,
		AutoVerify:   true,
		ImportKey:    importKey,
		CreatedBy:    req.ImportedBy,
	})
	if err != nil {
		return rowOutcome{}, csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeRowFailed, err.Error())
	}

	return rowOutcome{synthesized: wasSynthesized}, nil
}

func (s *PaymentImportService) resolveClass(ctx context.Context, name string, cache map[string]*student.SchoolClass) (*student.SchoolClass, error) {
	if class, ok := cache[name]; ok {
		if class == nil {
			return nil, fmt.Errorf("class %q not found", name)
		}
		return class, nil
	}
	class, err := s.classRepo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	cache[name] = class
	if class == nil {
		return nil, fmt.Errorf("class %q not found", name)
	}
	return class, nil
}

// resolveStudent matches the row by ledger number first, then by exact name
// within the class, and synthesizes a flagged identity when neither matches.
func (s *PaymentImportService) resolveStudent(
	ctx context.Context,
	req ImportRequest,
	row *csvimport.RegisterRow,
	class *student.SchoolClass,
) (*student.Student, bool, error) {
	if ledger := row.Get(csvimport.ColumnLedgerNo); ledger != "" {
		st, err := s.studentRepo.FindByLedgerNumber(ctx, ledger)
		if err != nil {
			return nil, false, fmt.Errorf("student lookup failed: %w", err)
		}
		if st != nil {
			return st, false, nil
		}
	}

	name := row.Get(csvimport.ColumnStudent)
	st, err := s.studentRepo.FindByClassAndName(ctx, class.ID, name)
	if err != nil {
		return nil, false, fmt.Errorf("student lookup failed: %w", err)
	}
	if st != nil {
		return st, false, nil
	}

	ledger := row.Get(csvimport.ColumnLedgerNo)
	if ledger == "" {
		ledger = syntheticLedgerNumber(req.AcademicYear, class.Name, name)
	}
	created, err := student.NewSynthesizedStudent(name, ledger, class.ID, req.AcademicYear, req.ImportedBy)
	if err != nil {
		return nil, false, err
	}
	if err := s.studentRepo.Save(ctx, created); err != nil {
		return nil, false, fmt.Errorf("failed to save synthesized student: %w", err)
	}
	return created, true, nil
}

// buildAllocations targets the student's monthly due when one is open for
// the month; any remainder above the due's balance, or the whole amount when
// no due exists, becomes a labeled custom charge so nothing is dropped.
func (s *PaymentImportService) buildAllocations(
	ctx context.Context,
	studentID uuid.UUID,
	academicYear string,
	monthKey calendar.MonthKey,
	amount decimal.Decimal,
) ([]fees.AllocationRequest, error) {
	dues, err := s.dueRepo.FindByStudent(ctx, studentID, academicYear)
	if err != nil {
		return nil, fmt.Errorf("failed to load dues: %w", err)
	}

	label := fmt.Sprintf("school fees %s", monthKey.String())
	for i := range dues {
		d := &dues[i]
		if d.IsRetired() || d.DueType != fees.DueTypeMonthly || d.DueMonth == nil {
			continue
		}
		if d.DueMonth.String() != monthKey.String() || d.ItemType != appfees.ItemTypeSchoolFees {
			continue
		}
		outstanding := d.Outstanding()
		if !outstanding.IsPositive() {
			continue
		}

		toDue := decimal.Min(amount, outstanding)
		allocations := []fees.AllocationRequest{{DueID: &d.ID, Amount: toDue}}
		if remainder := amount.Sub(toDue); remainder.IsPositive() {
			allocations = append(allocations, fees.AllocationRequest{
				Amount: remainder,
				Label:  label + " (excess)",
			})
		}
		return allocations, nil
	}

	return []fees.AllocationRequest{{Amount: amount, Label: label}}, nil
}

// syntheticLedgerNumber builds a deterministic placeholder ledger number for
// a synthesized student, so re-importing the same sheet resolves to the same
// identity instead of minting a second one.
func syntheticLedgerNumber(academicYear, className, studentName string) string {
	slug := func(s string) string {
		return strings.ToUpper(strings.Join(strings.Fields(strings.TrimSpace(s)), "-"))
	}
	return fmt.Sprintf("IMP-%s-%s-%s", slug(academicYear), slug(className), slug(studentName))
}

func parseMethod(raw string) fees.PaymentMethod {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cash", "":
		return fees.PaymentMethodCash
	case "upi":
		return fees.PaymentMethodUPI
	case "bank", "bank transfer", "neft", "rtgs", "imps":
		return fees.PaymentMethodBankTransfer
	case "cheque", "check", "dd":
		return fees.PaymentMethodCheque
	case "online", "card":
		return fees.PaymentMethodOnline
	default:
		return fees.PaymentMethodOther
	}
}

func (s *PaymentImportService) failBatch(ctx context.Context, batch *bulk.ImportBatch, cause error) (*bulk.ImportBatch, error) {
	detail := []bulk.RowErrorDetail{{Row: 0, Code: csvimport.ErrCodeInvalidFile, Message: cause.Error()}}
	if err := batch.Fail(detail); err != nil {
		return nil, err
	}
	if err := s.batchRepo.Save(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to save import batch: %w", err)
	}
	return batch, cause
}

func toBatchErrors(rowErrs []csvimport.RowError) []bulk.RowErrorDetail {
	out := make([]bulk.RowErrorDetail, 0, len(rowErrs))
	for _, re := range rowErrs {
		out = append(out, bulk.RowErrorDetail{
			Row:     re.Row,
			Column:  re.Column,
			Code:    re.Code,
			Message: re.Message,
			Value:   re.Value,
		})
	}
	return out
}
