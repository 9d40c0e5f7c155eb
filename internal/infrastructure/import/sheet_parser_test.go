package csvimport

import (
	"strings"
	"testing"
	"time"

	"github.com/feeledger/backend/internal/domain/calendar"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSheet(t *testing.T, content string) (*SheetParser, []*RegisterRow, []RowError) {
	t.Helper()
	p, err := NewSheetParser(strings.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, p.ParseHeader())
	rows, rowErrs, err := p.ReadAllRows()
	require.NoError(t, err)
	return p, rows, rowErrs
}

func TestSheetParser(t *testing.T) {
	t.Run("legacy headers normalize to canonical columns", func(t *testing.T) {
		p, rows, rowErrs := parseSheet(t,
			"Class Name,Student Name,Ledger No,Fee Month,Amount Paid,Payment Mode\n"+
				"Class 5,Asha Verma,LDG-0042,April,\"3,900\",cash\n")
		assert.Empty(t, rowErrs)
		require.Len(t, rows, 1)
		assert.True(t, p.HasColumn(ColumnClass))
		assert.True(t, p.HasColumn(ColumnLedgerNo))
		assert.Equal(t, "Class 5", rows[0].Get(ColumnClass))
		assert.Equal(t, "cash", rows[0].Get(ColumnMethod))
	})

	t.Run("bom stripped", func(t *testing.T) {
		p, err := NewSheetParser(strings.NewReader("\xEF\xBB\xBFclass,student,month,amount\nA,B,April,10\n"))
		require.NoError(t, err)
		require.NoError(t, p.ParseHeader())
		assert.True(t, p.HasColumn(ColumnClass))
	})

	t.Run("empty sheet rejected", func(t *testing.T) {
		_, err := NewSheetParser(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("non utf8 rejected", func(t *testing.T) {
		_, err := NewSheetParser(strings.NewReader("class,am\xffount\n"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("blank rows skipped", func(t *testing.T) {
		_, rows, _ := parseSheet(t, "class,student,month,amount\nA,B,April,10\n,,,\nA,C,May,20\n")
		assert.Len(t, rows, 2)
	})

	t.Run("header only sheet has no data rows", func(t *testing.T) {
		p, err := NewSheetParser(strings.NewReader("class,student,month,amount\n"))
		require.NoError(t, err)
		require.NoError(t, p.ParseHeader())
		_, _, err = p.ReadAllRows()
		assert.ErrorIs(t, err, ErrNoDataRows)
	})
}

func TestRegisterRowAmount(t *testing.T) {
	row := func(amount string) *RegisterRow {
		return &RegisterRow{LineNumber: 2, Fields: map[string]string{ColumnAmount: amount}}
	}

	t.Run("thousands separators and currency markers stripped", func(t *testing.T) {
		d, err := row("Rs. 3,900").Amount()
		require.NoError(t, err)
		assert.True(t, d.Equal(decimal.NewFromInt(3900)))
	})

	t.Run("plain decimal", func(t *testing.T) {
		d, err := row("1245.50").Amount()
		require.NoError(t, err)
		assert.True(t, d.Equal(decimal.NewFromFloat(1245.50)))
	})

	t.Run("missing amount", func(t *testing.T) {
		_, err := row("").Amount()
		require.Error(t, err)
		assert.Equal(t, ErrCodeRequiredField, err.(RowError).Code)
	})

	t.Run("garbage amount", func(t *testing.T) {
		_, err := row("paid in kind").Amount()
		require.Error(t, err)
		assert.Equal(t, ErrCodeInvalidAmount, err.(RowError).Code)
	})

	t.Run("negative amount", func(t *testing.T) {
		_, err := row("-100").Amount()
		require.Error(t, err)
		assert.Equal(t, ErrCodeInvalidAmount, err.(RowError).Code)
	})
}

func TestRegisterRowMonthKey(t *testing.T) {
	now := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	row := func(month string) *RegisterRow {
		return &RegisterRow{LineNumber: 3, Fields: map[string]string{ColumnMonth: month}}
	}

	t.Run("month name before january lands in start year", func(t *testing.T) {
		key, err := row("April").MonthKey("2024-25", now)
		require.NoError(t, err)
		assert.Equal(t, calendar.MonthKey("2024-04"), key)
	})

	t.Run("month name after december lands in end year", func(t *testing.T) {
		key, err := row("Feb").MonthKey("2024-25", now)
		require.NoError(t, err)
		assert.Equal(t, calendar.MonthKey("2025-02"), key)
	})

	t.Run("explicit key passes through", func(t *testing.T) {
		key, err := row("2024-12").MonthKey("2024-25", now)
		require.NoError(t, err)
		assert.Equal(t, calendar.MonthKey("2024-12"), key)
	})

	t.Run("unrecognized month", func(t *testing.T) {
		_, err := row("Baisakh").MonthKey("2024-25", now)
		require.Error(t, err)
		assert.Equal(t, ErrCodeInvalidMonth, err.(RowError).Code)
	})
}

func TestRegisterRowDate(t *testing.T) {
	fallback := time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC)
	row := func(date string) *RegisterRow {
		return &RegisterRow{LineNumber: 4, Fields: map[string]string{ColumnDate: date}}
	}

	t.Run("iso layout", func(t *testing.T) {
		d, err := row("2024-04-05").Date(fallback)
		require.NoError(t, err)
		assert.Equal(t, 5, d.Day())
	})

	t.Run("indian layout", func(t *testing.T) {
		d, err := row("05/04/2024").Date(fallback)
		require.NoError(t, err)
		assert.Equal(t, time.April, d.Month())
	})

	t.Run("blank falls back", func(t *testing.T) {
		d, err := row("").Date(fallback)
		require.NoError(t, err)
		assert.Equal(t, fallback, d)
	})

	t.Run("garbage date", func(t *testing.T) {
		_, err := row("sometime in April").Date(fallback)
		require.Error(t, err)
	})
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection(2)
	for i := 1; i <= 5; i++ {
		ec.Add(NewRowError(i, "", ErrCodeRowFailed, "failed"))
	}
	assert.Equal(t, 5, ec.TotalCount())
	assert.Len(t, ec.Errors(), 2)
	assert.True(t, ec.Truncated())
	assert.True(t, ec.HasErrors())
}
