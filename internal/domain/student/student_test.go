package student

import (
	"testing"

	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStudent(t *testing.T) {
	t.Run("valid student", func(t *testing.T) {
		s, err := NewStudent("  Asha Verma ", "LDG-0042", uuid.New(), "2024-25", fees.OccupancyDayScholar, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, "Asha Verma", s.Name)
		assert.Equal(t, "LDG-0042", s.LedgerNumber)
		assert.False(t, s.Synthesized)
		assert.False(t, s.IsArchived())
	})

	t.Run("blank name rejected", func(t *testing.T) {
		_, err := NewStudent("   ", "LDG-1", uuid.New(), "2024-25", fees.OccupancyHosteller, uuid.New())
		assert.Error(t, err)
	})

	t.Run("blank ledger number rejected", func(t *testing.T) {
		_, err := NewStudent("Asha", "", uuid.New(), "2024-25", fees.OccupancyHosteller, uuid.New())
		assert.Error(t, err)
	})

	t.Run("unknown occupancy rejected", func(t *testing.T) {
		_, err := NewStudent("Asha", "LDG-1", uuid.New(), "2024-25", fees.Occupancy("weekly"), uuid.New())
		assert.Error(t, err)
	})
}

func TestSynthesizedStudent(t *testing.T) {
	s, err := NewSynthesizedStudent("Rohit", "IMP-2024-25-17", uuid.New(), "2024-25", uuid.New())
	require.NoError(t, err)
	assert.True(t, s.Synthesized)

	t.Run("reconcile clears the flag once", func(t *testing.T) {
		require.NoError(t, s.Reconcile())
		assert.False(t, s.Synthesized)
		assert.Error(t, s.Reconcile())
	})
}

func TestStudentLifecycle(t *testing.T) {
	newStudent := func(t *testing.T) *Student {
		t.Helper()
		s, err := NewStudent("Asha", "LDG-1", uuid.New(), "2024-25", fees.OccupancyHosteller, uuid.New())
		require.NoError(t, err)
		return s
	}

	t.Run("promote", func(t *testing.T) {
		s := newStudent(t)
		next := uuid.New()
		require.NoError(t, s.Promote(next, "2025-26"))
		assert.Equal(t, next, s.ClassID)
		assert.Equal(t, "2025-26", s.AcademicYear)
	})

	t.Run("archive blocks promotion", func(t *testing.T) {
		s := newStudent(t)
		require.NoError(t, s.Archive())
		assert.True(t, s.IsArchived())
		assert.Error(t, s.Archive())
		assert.Error(t, s.Promote(uuid.New(), "2025-26"))
	})
}

func TestNewSchoolClass(t *testing.T) {
	c, err := NewSchoolClass("Class 5", 7)
	require.NoError(t, err)
	assert.Equal(t, "Class 5", c.Name)
	assert.True(t, c.Active)

	c.Deactivate()
	assert.False(t, c.Active)

	_, err = NewSchoolClass("  ", 0)
	assert.Error(t, err)
}
