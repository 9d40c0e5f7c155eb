package fees

import (
	"context"
	"fmt"
	"time"

	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DashboardStats is the collection overview for one academic year.
type DashboardStats struct {
	AcademicYear        string          `json:"academic_year"`
	TotalBilled         decimal.Decimal `json:"total_billed"`
	TotalCollected      decimal.Decimal `json:"total_collected"`
	TotalPending        decimal.Decimal `json:"total_pending"`
	PendingVerification int64           `json:"pending_verification"`
	VerifiedPayments    int64           `json:"verified_payments"`
	RejectedPayments    int64           `json:"rejected_payments"`
	ComputedAt          time.Time       `json:"computed_at"`
}

// StatsCache caches dashboard stats per academic year. A miss returns
// (nil, nil); cache failures must never fail the dashboard.
type StatsCache interface {
	Get(ctx context.Context, academicYear string) (*DashboardStats, error)
	Set(ctx context.Context, stats *DashboardStats) error
	Invalidate(ctx context.Context, academicYear string) error
}

// DashboardService computes collection stats over the due ledger. Stats are
// cached briefly; the underlying totals only move when payments commit, and
// the dashboard tolerates that staleness.
type DashboardService struct {
	dueRepo     fees.DueRepository
	paymentRepo fees.PaymentRepository
	cache       StatsCache
	logger      *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	dueRepo fees.DueRepository,
	paymentRepo fees.PaymentRepository,
	cache StatsCache,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		dueRepo:     dueRepo,
		paymentRepo: paymentRepo,
		cache:       cache,
		logger:      logger,
	}
}

// GetStats returns the collection overview for one academic year, serving
// from cache when possible.
func (s *DashboardService) GetStats(ctx context.Context, academicYear string) (*DashboardStats, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, academicYear)
		if err != nil {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	summary, err := s.dueRepo.SummarizeByYear(ctx, academicYear)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize dues: %w", err)
	}

	counts, err := s.paymentRepo.CountByStatus(ctx, academicYear)
	if err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	stats := &DashboardStats{
		AcademicYear:        academicYear,
		TotalBilled:         summary.TotalBilled,
		TotalCollected:      summary.TotalPaid,
		TotalPending:        summary.TotalPending,
		PendingVerification: counts[fees.PaymentStatusPending],
		VerifiedPayments:    counts[fees.PaymentStatusVerified],
		RejectedPayments:    counts[fees.PaymentStatusRejected],
		ComputedAt:          time.Now(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, stats); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}

	return stats, nil
}

// InvalidateStats drops the cached stats for one academic year, called after
// mutations that move the totals.
func (s *DashboardService) InvalidateStats(ctx context.Context, academicYear string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, academicYear); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}
