package fees

import (
	"context"

	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/domain/shared/valueobject"
	"github.com/feeledger/backend/internal/domain/student"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func mustMoney(amount int64) valueobject.Money {
	return valueobject.NewMoneyINR(decimal.NewFromInt(amount))
}

// =============================================================================
// Mock repositories shared by the service tests in this package
// =============================================================================

type MockDueRepository struct {
	mock.Mock
}

func (m *MockDueRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.Due, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.Due), args.Error(1)
}

func (m *MockDueRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*fees.Due, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*fees.Due), args.Error(1)
}

func (m *MockDueRepository) FindByFilter(ctx context.Context, filter fees.DueFilter, page shared.Filter) (*shared.Paginated[fees.Due], error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[fees.Due]), args.Error(1)
}

func (m *MockDueRepository) FindByStudent(ctx context.Context, studentID uuid.UUID, academicYear string) ([]fees.Due, error) {
	args := m.Called(ctx, studentID, academicYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fees.Due), args.Error(1)
}

func (m *MockDueRepository) SummarizeByYear(ctx context.Context, academicYear string) (fees.DueSummary, error) {
	args := m.Called(ctx, academicYear)
	return args.Get(0).(fees.DueSummary), args.Error(1)
}

func (m *MockDueRepository) Save(ctx context.Context, due *fees.Due) error {
	args := m.Called(ctx, due)
	return args.Error(0)
}

func (m *MockDueRepository) SaveWithLock(ctx context.Context, due *fees.Due) error {
	args := m.Called(ctx, due)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByFilter(ctx context.Context, filter fees.PaymentFilter, page shared.Filter) (*shared.Paginated[fees.Payment], error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[fees.Payment]), args.Error(1)
}

func (m *MockPaymentRepository) FindByStudent(ctx context.Context, studentID uuid.UUID, academicYear string) ([]fees.Payment, error) {
	args := m.Called(ctx, studentID, academicYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fees.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ExistsByImportKey(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) CountByStatus(ctx context.Context, academicYear string) (map[fees.PaymentStatus]int64, error) {
	args := m.Called(ctx, academicYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[fees.PaymentStatus]int64), args.Error(1)
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *fees.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) SaveWithLock(ctx context.Context, payment *fees.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

type MockStudentRepository struct {
	mock.Mock
}

func (m *MockStudentRepository) FindByID(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*student.Student), args.Error(1)
}

func (m *MockStudentRepository) FindByLedgerNumber(ctx context.Context, ledgerNumber string) (*student.Student, error) {
	args := m.Called(ctx, ledgerNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*student.Student), args.Error(1)
}

func (m *MockStudentRepository) FindByClassAndName(ctx context.Context, classID uuid.UUID, name string) (*student.Student, error) {
	args := m.Called(ctx, classID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*student.Student), args.Error(1)
}

func (m *MockStudentRepository) FindByFilter(ctx context.Context, filter student.StudentFilter, page shared.Filter) (*shared.Paginated[student.Student], error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[student.Student]), args.Error(1)
}

func (m *MockStudentRepository) Save(ctx context.Context, s *student.Student) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockStudentRepository) SaveWithLock(ctx context.Context, s *student.Student) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

type MockFeeStructureRepository struct {
	mock.Mock
}

func (m *MockFeeStructureRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.FeeStructure, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.FeeStructure), args.Error(1)
}

func (m *MockFeeStructureRepository) FindByClassAndYear(ctx context.Context, classID uuid.UUID, academicYear string) (*fees.FeeStructure, error) {
	args := m.Called(ctx, classID, academicYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.FeeStructure), args.Error(1)
}

func (m *MockFeeStructureRepository) FindByYear(ctx context.Context, academicYear string) ([]fees.FeeStructure, error) {
	args := m.Called(ctx, academicYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fees.FeeStructure), args.Error(1)
}

func (m *MockFeeStructureRepository) Save(ctx context.Context, fs *fees.FeeStructure) error {
	args := m.Called(ctx, fs)
	return args.Error(0)
}

// stubTransactionScope runs the function directly against the mock
// repositories without a real transaction.
type stubTransactionScope struct {
	repos stubTransactionalRepositories
}

type stubTransactionalRepositories struct {
	dueRepo     *MockDueRepository
	paymentRepo *MockPaymentRepository
	studentRepo *MockStudentRepository
}

func (r stubTransactionalRepositories) DueRepo() fees.DueRepository            { return r.dueRepo }
func (r stubTransactionalRepositories) PaymentRepo() fees.PaymentRepository    { return r.paymentRepo }
func (r stubTransactionalRepositories) StudentRepo() student.StudentRepository { return r.studentRepo }

func (s *stubTransactionScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.repos)
}

type MockStatsInvalidator struct {
	mock.Mock
}

func (m *MockStatsInvalidator) InvalidateStats(ctx context.Context, academicYear string) {
	m.Called(ctx, academicYear)
}

type MockStatsCache struct {
	mock.Mock
}

func (m *MockStatsCache) Get(ctx context.Context, academicYear string) (*DashboardStats, error) {
	args := m.Called(ctx, academicYear)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DashboardStats), args.Error(1)
}

func (m *MockStatsCache) Set(ctx context.Context, stats *DashboardStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockStatsCache) Invalidate(ctx context.Context, academicYear string) error {
	args := m.Called(ctx, academicYear)
	return args.Error(0)
}
