package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthsOf(t *testing.T) {
	t.Run("april start wrapping into next calendar year", func(t *testing.T) {
		keys, fallback := MonthsOf("2024-25", time.Time{})
		assert.False(t, fallback)
		want := []MonthKey{
			"2024-04", "2024-05", "2024-06", "2024-07", "2024-08", "2024-09",
			"2024-10", "2024-11", "2024-12", "2025-01", "2025-02", "2025-03",
		}
		assert.Equal(t, want, keys)
	})

	t.Run("four digit end year", func(t *testing.T) {
		keys, fallback := MonthsOf("2024-2025", time.Time{})
		assert.False(t, fallback)
		require.Len(t, keys, 12)
		assert.Equal(t, MonthKey("2024-04"), keys[0])
		assert.Equal(t, MonthKey("2025-03"), keys[11])
	})

	t.Run("unparseable code falls back and reports it", func(t *testing.T) {
		now := time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC)
		keys, fallback := MonthsOf("garbage", now)
		assert.True(t, fallback, "fallback must be surfaced, not hidden")
		require.Len(t, keys, 12)
		assert.Equal(t, MonthKey("2024-04"), keys[0])
	})
}

func TestParseYearCode(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		code     string
		want     YearSpan
		fallback bool
	}{
		{"2024-25", YearSpan{2024, 2025}, false},
		{"2024-2025", YearSpan{2024, 2025}, false},
		{"2024 - 25", YearSpan{2024, 2025}, false},
		{"2099-00", YearSpan{2099, 2100}, false},
		{"", YearSpan{2026, 2027}, true},
		{"24-25", YearSpan{2026, 2027}, true},
		{"next year", YearSpan{2026, 2027}, true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, fallback := ParseYearCode(tt.code, now)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.fallback, fallback)
		})
	}
}

func TestCurrentYearCode(t *testing.T) {
	t.Run("on or after start month", func(t *testing.T) {
		now := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "2024-25", CurrentYearCode(now))

		now = time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "2024-25", CurrentYearCode(now))
	})

	t.Run("before start month belongs to previous year", func(t *testing.T) {
		now := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "2024-25", CurrentYearCode(now))

		now = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "2024-25", CurrentYearCode(now))
	})
}

func TestCurrentMonthKey(t *testing.T) {
	now := time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, MonthKey("2025-02"), CurrentMonthKey(now))
}

func TestMonthKey(t *testing.T) {
	t.Run("components", func(t *testing.T) {
		k := NewMonthKey(2024, time.April)
		assert.Equal(t, MonthKey("2024-04"), k)

		y, err := k.Year()
		require.NoError(t, err)
		assert.Equal(t, 2024, y)

		m, err := k.Month()
		require.NoError(t, err)
		assert.Equal(t, time.April, m)
	})

	t.Run("validation", func(t *testing.T) {
		assert.True(t, MonthKey("2024-12").IsValid())
		assert.False(t, MonthKey("2024-13").IsValid())
		assert.False(t, MonthKey("2024-0").IsValid())
		assert.False(t, MonthKey("april").IsValid())

		_, err := MonthKey("april").Year()
		assert.Error(t, err)
	})
}

func TestAcademicYear(t *testing.T) {
	t.Run("create and inspect", func(t *testing.T) {
		y, err := NewAcademicYear("2024-25")
		require.NoError(t, err)
		assert.Equal(t, StartMonth, y.StartMonth)
		assert.False(t, y.IsCurrent)
		assert.Len(t, y.Months(), 12)
		assert.True(t, y.ContainsMonth("2025-01"))
		assert.False(t, y.ContainsMonth("2023-12"))
	})

	t.Run("unparseable code rejected", func(t *testing.T) {
		_, err := NewAcademicYear("not a year")
		assert.Error(t, err)
	})

	t.Run("current flag", func(t *testing.T) {
		y, err := NewAcademicYear("2025-26")
		require.NoError(t, err)
		y.MarkCurrent()
		assert.True(t, y.IsCurrent)
		y.ClearCurrent()
		assert.False(t, y.IsCurrent)
	})
}
