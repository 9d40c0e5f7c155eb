package bulk

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status ImportStatus
		want   bool
	}{
		{"pending", ImportStatusPending, false},
		{"processing", ImportStatusProcessing, false},
		{"completed", ImportStatusCompleted, true},
		{"failed", ImportStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func newTestBatch(t *testing.T) *ImportBatch {
	t.Helper()
	batch, err := NewImportBatch(ImportSourceRegisterSheet, "register-2024.csv", 2048, "2024-25", uuid.New())
	require.NoError(t, err)
	return batch
}

func TestNewImportBatch(t *testing.T) {
	t.Run("valid batch starts pending", func(t *testing.T) {
		batch := newTestBatch(t)
		assert.Equal(t, ImportStatusPending, batch.Status)
		assert.Equal(t, "2024-25", batch.AcademicYear)
		assert.NotNil(t, batch.CreatedBy)
	})

	t.Run("invalid source rejected", func(t *testing.T) {
		_, err := NewImportBatch(ImportSource("email"), "f.csv", 1, "2024-25", uuid.New())
		assert.Error(t, err)
	})

	t.Run("empty file name rejected", func(t *testing.T) {
		_, err := NewImportBatch(ImportSourceRegisterSheet, "", 1, "2024-25", uuid.New())
		assert.Error(t, err)
	})

	t.Run("missing academic year rejected", func(t *testing.T) {
		_, err := NewImportBatch(ImportSourceRegisterSheet, "f.csv", 1, "", uuid.New())
		assert.Error(t, err)
	})
}

func TestImportBatchLifecycle(t *testing.T) {
	t.Run("pending to processing to completed", func(t *testing.T) {
		batch := newTestBatch(t)

		require.NoError(t, batch.StartProcessing(120))
		assert.Equal(t, ImportStatusProcessing, batch.Status)
		assert.Equal(t, 120, batch.TotalRows)
		assert.NotNil(t, batch.StartedAt)

		errs := []RowErrorDetail{{Row: 17, Code: "INVALID_AMOUNT", Message: "amount not a number", Value: "abc"}}
		require.NoError(t, batch.Complete(100, 19, 1, 3, errs))
		assert.Equal(t, ImportStatusCompleted, batch.Status)
		assert.Equal(t, 100, batch.ImportedRows)
		assert.Equal(t, 19, batch.SkippedRows)
		assert.Equal(t, 1, batch.ErrorRows)
		assert.Equal(t, 3, batch.SynthesizedStudents)
		assert.True(t, batch.HasErrors())
		assert.NotNil(t, batch.CompletedAt)
	})

	t.Run("all rows erroring marks the batch failed", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.StartProcessing(2))
		require.NoError(t, batch.Complete(0, 0, 2, 0, []RowErrorDetail{{Row: 1, Code: "X"}, {Row: 2, Code: "X"}}))
		assert.Equal(t, ImportStatusFailed, batch.Status)
	})

	t.Run("fully deduped rerun still completes", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.StartProcessing(100))
		require.NoError(t, batch.Complete(0, 100, 0, 0, nil))
		assert.True(t, batch.IsCompleted())
		assert.Equal(t, 0, batch.ImportedRows)
	})

	t.Run("cannot complete without starting", func(t *testing.T) {
		batch := newTestBatch(t)
		assert.Error(t, batch.Complete(1, 0, 0, 0, nil))
	})

	t.Run("unreadable sheet fails before processing", func(t *testing.T) {
		batch := newTestBatch(t)
		require.NoError(t, batch.Fail([]RowErrorDetail{{Row: 0, Code: "UNREADABLE", Message: "missing header row"}}))
		assert.Equal(t, ImportStatusFailed, batch.Status)
		assert.Error(t, batch.Fail(nil))
	})
}

func TestImportBatchErrorDetailsJSON(t *testing.T) {
	batch := newTestBatch(t)

	t.Run("empty details serialize to empty array", func(t *testing.T) {
		s, err := batch.ErrorDetailsJSON()
		require.NoError(t, err)
		assert.Equal(t, "[]", s)
	})

	t.Run("round trip", func(t *testing.T) {
		batch.ErrorDetails = []RowErrorDetail{{Row: 5, Column: "amount", Code: "INVALID_AMOUNT", Message: "negative"}}
		s, err := batch.ErrorDetailsJSON()
		require.NoError(t, err)

		other := newTestBatch(t)
		require.NoError(t, other.SetErrorDetailsFromJSON(s))
		require.Len(t, other.ErrorDetails, 1)
		assert.Equal(t, "amount", other.ErrorDetails[0].Column)
	})
}
