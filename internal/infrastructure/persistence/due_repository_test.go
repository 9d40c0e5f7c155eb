package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDueRepository creates a GormDueRepository with a mocked SQL connection
func newMockDueRepository(t *testing.T) (*GormDueRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormDueRepository(gormDB), mock, mockDB
}

func dueRow(id, studentID uuid.UUID, amount, paid int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "created_at", "updated_at", "version",
		"student_id", "class_id", "academic_year", "due_type", "due_month",
		"item_type", "amount", "paid_amount",
	}).AddRow(
		id, now, now, 1,
		studentID, uuid.New(), "2024-25", "MONTHLY", "2024-04",
		"school_fees", decimal.NewFromInt(amount), decimal.NewFromInt(paid),
	)
}

func TestGormDueRepository_FindByID(t *testing.T) {
	t.Run("finds existing due", func(t *testing.T) {
		repo, mock, mockDB := newMockDueRepository(t)
		defer mockDB.Close()

		dueID := uuid.New()
		studentID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "dues" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(dueID, 1).
			WillReturnRows(dueRow(dueID, studentID, 10000, 6000))

		due, err := repo.FindByID(context.Background(), dueID)

		assert.NoError(t, err)
		require.NotNil(t, due)
		assert.Equal(t, dueID, due.ID)
		assert.Equal(t, studentID, due.StudentID)
		assert.Equal(t, fees.DueStatusPartial, due.Status())
		assert.True(t, due.Outstanding().Equal(decimal.NewFromInt(4000)))
		require.NotNil(t, due.DueMonth)
		assert.Equal(t, "2024-04", due.DueMonth.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing due", func(t *testing.T) {
		repo, mock, mockDB := newMockDueRepository(t)
		defer mockDB.Close()

		dueID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "dues" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(dueID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		due, err := repo.FindByID(context.Background(), dueID)

		assert.Error(t, err)
		assert.Nil(t, due)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDueRepository_FindByIDsForUpdate(t *testing.T) {
	t.Run("empty id list short-circuits", func(t *testing.T) {
		repo, mock, mockDB := newMockDueRepository(t)
		defer mockDB.Close()

		result, err := repo.FindByIDsForUpdate(context.Background(), nil)

		assert.NoError(t, err)
		assert.Empty(t, result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("locks and maps matching rows", func(t *testing.T) {
		repo, mock, mockDB := newMockDueRepository(t)
		defer mockDB.Close()

		dueID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "dues" WHERE id IN \(\$1\) FOR UPDATE`).
			WithArgs(dueID).
			WillReturnRows(dueRow(dueID, uuid.New(), 10000, 0))

		result, err := repo.FindByIDsForUpdate(context.Background(), []uuid.UUID{dueID})

		assert.NoError(t, err)
		require.Contains(t, result, dueID)
		assert.Equal(t, fees.DueStatusDue, result[dueID].Status())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDueRepository_SaveWithLock(t *testing.T) {
	newVersionedDue := func(t *testing.T) *fees.Due {
		t.Helper()
		due := &fees.Due{
			StudentID:    uuid.New(),
			ClassID:      uuid.New(),
			AcademicYear: "2024-25",
			DueType:      fees.DueTypeOneTime,
			ItemType:     "admission",
			Amount:       decimal.NewFromInt(5500),
			PaidAmount:   decimal.NewFromInt(5500),
		}
		due.ID = uuid.New()
		due.Version = 2
		due.CreatedAt = time.Now()
		due.UpdatedAt = time.Now()
		return due
	}

	t.Run("updates row holding the previous version", func(t *testing.T) {
		repo, mock, mockDB := newMockDueRepository(t)
		defer mockDB.Close()

		due := newVersionedDue(t)

		mock.ExpectExec(`UPDATE "dues" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveWithLock(context.Background(), due)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version yields concurrency conflict", func(t *testing.T) {
		repo, mock, mockDB := newMockDueRepository(t)
		defer mockDB.Close()

		due := newVersionedDue(t)

		mock.ExpectExec(`UPDATE "dues" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), due)

		assert.Equal(t, shared.ErrConcurrencyConflict, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDueRepository_SummarizeByYear(t *testing.T) {
	repo, mock, mockDB := newMockDueRepository(t)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"total_billed", "total_paid", "total_pending"}).
		AddRow(decimal.NewFromInt(59245), decimal.NewFromInt(16345), decimal.NewFromInt(42900))

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) AS total_billed.*FROM "dues" WHERE academic_year = \$1 AND retired_at IS NULL`).
		WithArgs("2024-25").
		WillReturnRows(rows)

	summary, err := repo.SummarizeByYear(context.Background(), "2024-25")

	assert.NoError(t, err)
	assert.True(t, summary.TotalBilled.Equal(decimal.NewFromInt(59245)))
	assert.True(t, summary.TotalPaid.Equal(decimal.NewFromInt(16345)))
	assert.True(t, summary.TotalPending.Equal(decimal.NewFromInt(42900)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
