package csvimport

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/feeledger/backend/internal/domain/calendar"
	"github.com/shopspring/decimal"
)

// Canonical column names of a payment register sheet. Legacy sheets use a
// few spellings per column; normalizeHeader folds them together.
const (
	ColumnClass    = "class"
	ColumnStudent  = "student"
	ColumnLedgerNo = "ledger_no"
	ColumnMonth    = "month"
	ColumnAmount   = "amount"
	ColumnDate     = "date"
	ColumnMethod   = "method"
	ColumnRemarks  = "remarks"
)

var headerAliases = map[string]string{
	"class":         ColumnClass,
	"class name":    ColumnClass,
	"student":       ColumnStudent,
	"student name":  ColumnStudent,
	"name":          ColumnStudent,
	"ledger_no":     ColumnLedgerNo,
	"ledger no":     ColumnLedgerNo,
	"ledger number": ColumnLedgerNo,
	"ledger":        ColumnLedgerNo,
	"month":         ColumnMonth,
	"fee month":     ColumnMonth,
	"amount":        ColumnAmount,
	"amount paid":   ColumnAmount,
	"paid":          ColumnAmount,
	"date":          ColumnDate,
	"payment date":  ColumnDate,
	"method":        ColumnMethod,
	"payment mode":  ColumnMethod,
	"mode":          ColumnMethod,
	"remarks":       ColumnRemarks,
	"notes":         ColumnRemarks,
}

func normalizeHeader(h string) string {
	key := strings.ToLower(strings.TrimSpace(h))
	if canonical, ok := headerAliases[key]; ok {
		return canonical
	}
	return key
}

// SheetParser reads a payment register sheet exported as CSV. It strips a
// UTF-8 BOM, rejects non-UTF-8 input, and maps legacy header spellings onto
// canonical column names.
type SheetParser struct {
	reader     *csv.Reader
	headerMap  map[string]int
	headers    []string
	currentRow int
}

// NewSheetParser creates a parser over a CSV stream and validates encoding.
func NewSheetParser(r io.Reader) (*SheetParser, error) {
	buf := bufio.NewReader(r)

	head, err := buf.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	const checkSize = 4096
	content, err := buf.Peek(checkSize)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(content) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(content) {
		return nil, ErrInvalidEncoding
	}

	reader := csv.NewReader(buf)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	return &SheetParser{
		reader:    reader,
		headerMap: make(map[string]int),
	}, nil
}

// ParseHeader reads the header row and builds the column map.
func (p *SheetParser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, len(record))
	for i, h := range record {
		header := normalizeHeader(h)
		p.headers[i] = header
		p.headerMap[header] = i
	}
	if len(p.headers) == 0 {
		return ErrMissingHeader
	}

	p.currentRow = 1
	return nil
}

// HasColumn reports whether a canonical column is present.
func (p *SheetParser) HasColumn(name string) bool {
	_, ok := p.headerMap[name]
	return ok
}

// RegisterRow is one parsed data row of a register sheet.
type RegisterRow struct {
	LineNumber int
	Fields     map[string]string
}

// Get returns the trimmed value of a canonical column.
func (r *RegisterRow) Get(column string) string {
	return r.Fields[column]
}

// IsEmpty returns true if every field is blank.
func (r *RegisterRow) IsEmpty() bool {
	for _, v := range r.Fields {
		if v != "" {
			return false
		}
	}
	return true
}

// Amount parses the amount column as a positive decimal. Register sheets
// carry thousands separators and currency markers; both are stripped.
func (r *RegisterRow) Amount() (decimal.Decimal, error) {
	raw := r.Get(ColumnAmount)
	if raw == "" {
		return decimal.Zero, NewRowError(r.LineNumber, ColumnAmount, ErrCodeRequiredField, "amount is required")
	}
	cleaned := strings.NewReplacer(",", "", "₹", "", "Rs.", "", "Rs", "", " ", "").Replace(raw)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, NewRowErrorWithValue(r.LineNumber, ColumnAmount, ErrCodeInvalidAmount, "amount is not a number", raw)
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, NewRowErrorWithValue(r.LineNumber, ColumnAmount, ErrCodeInvalidAmount, "amount must be positive", raw)
	}
	return d, nil
}

// monthNameToNumber accepts the month spellings seen in register sheets.
var monthNameToNumber = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// MonthKey resolves the month column against an academic year. Sheets write
// either a month name ("April") or an explicit key ("2024-04"); names are
// placed into the correct calendar year of the academic span.
func (r *RegisterRow) MonthKey(academicYear string, now time.Time) (calendar.MonthKey, error) {
	raw := r.Get(ColumnMonth)
	if raw == "" {
		return "", NewRowError(r.LineNumber, ColumnMonth, ErrCodeRequiredField, "month is required")
	}

	if key := calendar.MonthKey(raw); key.IsValid() {
		return key, nil
	}

	month, ok := monthNameToNumber[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", NewRowErrorWithValue(r.LineNumber, ColumnMonth, ErrCodeInvalidMonth, "unrecognized month", raw)
	}

	span, _ := calendar.ParseYearCode(academicYear, now)
	year := span.StartYear
	if int(month) < calendar.StartMonth {
		year = span.EndYear
	}
	return calendar.NewMonthKey(year, month), nil
}

// dateLayouts are the date formats register sheets have been seen to use.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006", "2/1/2006"}

// Date parses the payment date column; a blank date falls back to the given
// default.
func (r *RegisterRow) Date(fallback time.Time) (time.Time, error) {
	raw := r.Get(ColumnDate)
	if raw == "" {
		return fallback, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, NewRowErrorWithValue(r.LineNumber, ColumnDate, ErrCodeInvalidDate, "unrecognized date", raw)
}

// ReadRow reads the next data row, mapping fields onto canonical columns.
func (p *SheetParser) ReadRow() (*RegisterRow, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, NewRowError(p.currentRow, "", ErrCodeMalformedRow, err.Error())
	}

	row := &RegisterRow{
		LineNumber: p.currentRow,
		Fields:     make(map[string]string, len(p.headers)),
	}
	for i, header := range p.headers {
		if i < len(record) {
			row.Fields[header] = strings.TrimSpace(record[i])
		} else {
			row.Fields[header] = ""
		}
	}
	return row, nil
}

// ReadAllRows reads every remaining data row, skipping fully blank ones.
// A malformed row is returned as a RowError inside the slice position it
// occupies, so callers can count it without losing the rest of the sheet.
func (p *SheetParser) ReadAllRows() ([]*RegisterRow, []RowError, error) {
	var rows []*RegisterRow
	var rowErrs []RowError
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			if re, ok := err.(RowError); ok {
				rowErrs = append(rowErrs, re)
				continue
			}
			return rows, rowErrs, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 && len(rowErrs) == 0 {
		return nil, nil, ErrNoDataRows
	}
	return rows, rowErrs, nil
}
