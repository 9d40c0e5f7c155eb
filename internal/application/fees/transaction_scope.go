package fees

import (
	"context"

	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/student"
)

// TransactionalRepositories provides access to repositories that share one
// database transaction. Everything a payment mutation touches (the payment,
// its dues, any synthesized student) goes through the same scope so a
// failure anywhere rolls back everything.
type TransactionalRepositories interface {
	DueRepo() fees.DueRepository
	PaymentRepo() fees.PaymentRepository
	StudentRepo() student.StudentRepository
}

// TransactionScope executes a function within a database transaction.
// If the function returns an error, all changes are rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}
