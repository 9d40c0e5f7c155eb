package calendar

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/feeledger/backend/internal/domain/shared"
)

// StartMonth is the calendar month in which every academic year begins.
// An academic year "2024-25" runs April 2024 through March 2025.
const StartMonth = 4

// MonthsPerYear is the number of months in one academic year cycle.
const MonthsPerYear = 12

// MonthKey identifies one calendar month as "<year>-<MM>" (e.g. "2024-04").
// Keys order lexicographically only within a single academic year's derived
// sequence; never compare keys across academic years without going through
// MonthsOf.
type MonthKey string

// NewMonthKey builds a MonthKey from a calendar year and month.
func NewMonthKey(year int, month time.Month) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", year, int(month)))
}

// Year returns the calendar year component of the key.
func (k MonthKey) Year() (int, error) {
	if !k.IsValid() {
		return 0, shared.NewDomainError("INVALID_MONTH_KEY", fmt.Sprintf("Invalid month key %q", string(k)))
	}
	y, _ := strconv.Atoi(string(k)[:4])
	return y, nil
}

// Month returns the calendar month component of the key.
func (k MonthKey) Month() (time.Month, error) {
	if !k.IsValid() {
		return 0, shared.NewDomainError("INVALID_MONTH_KEY", fmt.Sprintf("Invalid month key %q", string(k)))
	}
	m, _ := strconv.Atoi(string(k)[5:])
	return time.Month(m), nil
}

var monthKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// IsValid reports whether the key has the "<year>-<MM>" shape.
func (k MonthKey) IsValid() bool {
	return monthKeyPattern.MatchString(string(k))
}

// String returns the string form of the key.
func (k MonthKey) String() string {
	return string(k)
}

// YearSpan is the pair of calendar years an academic year code covers.
type YearSpan struct {
	StartYear int
	EndYear   int
}

// Code renders the span in the canonical "<start>-<yy>" form.
func (s YearSpan) Code() string {
	return fmt.Sprintf("%d-%02d", s.StartYear, s.EndYear%100)
}

var yearCodePattern = regexp.MustCompile(`^(\d{4})\s*-\s*(\d{2}|\d{4})$`)

// ParseYearCode parses a free-form academic year code such as "2024-25" or
// "2024-2025". The end year may carry a 2- or 4-digit suffix. When the code
// cannot be parsed the span falls back to the calendar year of now plus the
// following year and the second return is true; callers must log that
// fallback as a data-quality warning rather than treat it as a clean parse.
func ParseYearCode(code string, now time.Time) (YearSpan, bool) {
	m := yearCodePattern.FindStringSubmatch(code)
	if m == nil {
		return YearSpan{StartYear: now.Year(), EndYear: now.Year() + 1}, true
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if end < 100 {
		end = (start/100)*100 + end
		// A 2-digit suffix below the start year's tail wraps into the
		// next century, e.g. "2099-00".
		if end < start {
			end += 100
		}
	}
	return YearSpan{StartYear: start, EndYear: end}, false
}

// MonthsOf derives the ordered 12-month sequence for an academic year code,
// beginning at StartMonth of the span's first calendar year and wrapping into
// the second. The second return mirrors ParseYearCode's fallback flag.
func MonthsOf(code string, now time.Time) ([]MonthKey, bool) {
	span, fallback := ParseYearCode(code, now)
	keys := make([]MonthKey, 0, MonthsPerYear)
	year, month := span.StartYear, StartMonth
	for i := 0; i < MonthsPerYear; i++ {
		keys = append(keys, NewMonthKey(year, time.Month(month)))
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return keys, fallback
}

// CurrentYearCode returns the code of the academic year whose start-month
// aligned window contains now.
func CurrentYearCode(now time.Time) string {
	start := now.Year()
	if int(now.Month()) < StartMonth {
		start--
	}
	return YearSpan{StartYear: start, EndYear: start + 1}.Code()
}

// CurrentMonthKey returns the month key for now.
func CurrentMonthKey(now time.Time) MonthKey {
	return NewMonthKey(now.Year(), now.Month())
}

// AcademicYear is a 12-month accounting cycle used to scope dues and
// reporting. Exactly one year is current at a time; the administrative layer
// enforces that exclusivity and the engine assumes it holds.
type AcademicYear struct {
	shared.BaseEntity
	Code       string
	StartMonth int
	IsCurrent  bool
}

// NewAcademicYear creates an academic year for the given code.
func NewAcademicYear(code string) (*AcademicYear, error) {
	if _, fallback := ParseYearCode(code, time.Time{}); fallback {
		return nil, shared.NewDomainError("INVALID_YEAR_CODE", fmt.Sprintf("Academic year code %q is not parseable", code))
	}
	return &AcademicYear{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		StartMonth: StartMonth,
	}, nil
}

// Months returns the year's ordered month keys.
func (y *AcademicYear) Months() []MonthKey {
	keys, _ := MonthsOf(y.Code, time.Time{})
	return keys
}

// ContainsMonth reports whether the key falls inside this academic year.
func (y *AcademicYear) ContainsMonth(key MonthKey) bool {
	for _, k := range y.Months() {
		if k == key {
			return true
		}
	}
	return false
}

// MarkCurrent flags this year as the current one. The caller is responsible
// for clearing the flag on the previously current year in the same commit.
func (y *AcademicYear) MarkCurrent() {
	y.IsCurrent = true
	y.UpdatedAt = time.Now()
}

// ClearCurrent removes the current flag.
func (y *AcademicYear) ClearCurrent() {
	y.IsCurrent = false
	y.UpdatedAt = time.Now()
}

// AcademicYearRepository provides access to academic years.
type AcademicYearRepository interface {
	FindByCode(ctx context.Context, code string) (*AcademicYear, error)
	FindCurrent(ctx context.Context) (*AcademicYear, error)
	FindAll(ctx context.Context) ([]AcademicYear, error)
	Save(ctx context.Context, year *AcademicYear) error
}
