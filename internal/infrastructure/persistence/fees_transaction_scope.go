package persistence

import (
	"context"

	appfees "github.com/feeledger/backend/internal/application/fees"
	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/student"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appfees.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// DueRepo returns the due repository scoped to the current transaction.
func (r *gormTransactionalRepositories) DueRepo() fees.DueRepository {
	return NewGormDueRepository(r.tx)
}

// PaymentRepo returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PaymentRepo() fees.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// StudentRepo returns the student repository scoped to the current transaction.
func (r *gormTransactionalRepositories) StudentRepo() student.StudentRepository {
	return NewGormStudentRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appfees.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appfees.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
