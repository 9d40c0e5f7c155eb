package fees

import (
	"context"
	"errors"
	"testing"

	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDashboardGetStats(t *testing.T) {
	ctx := context.Background()
	summary := fees.DueSummary{
		TotalBilled:  decimal.NewFromInt(500000),
		TotalPaid:    decimal.NewFromInt(320000),
		TotalPending: decimal.NewFromInt(180000),
	}
	counts := map[fees.PaymentStatus]int64{
		fees.PaymentStatusPending:  7,
		fees.PaymentStatusVerified: 140,
		fees.PaymentStatusRejected: 3,
	}

	t.Run("computes from repositories on cache miss", func(t *testing.T) {
		dueRepo := &MockDueRepository{}
		paymentRepo := &MockPaymentRepository{}
		cache := &MockStatsCache{}
		svc := NewDashboardService(dueRepo, paymentRepo, cache, zap.NewNop())

		cache.On("Get", ctx, "2024-25").Return(nil, nil)
		dueRepo.On("SummarizeByYear", ctx, "2024-25").Return(summary, nil)
		paymentRepo.On("CountByStatus", ctx, "2024-25").Return(counts, nil)
		cache.On("Set", ctx, mock.AnythingOfType("*fees.DashboardStats")).Return(nil)

		stats, err := svc.GetStats(ctx, "2024-25")
		require.NoError(t, err)
		assert.True(t, stats.TotalBilled.Equal(decimal.NewFromInt(500000)))
		assert.True(t, stats.TotalPending.Equal(decimal.NewFromInt(180000)))
		assert.Equal(t, int64(7), stats.PendingVerification)
		cache.AssertCalled(t, "Set", ctx, mock.Anything)
	})

	t.Run("serves from cache on hit", func(t *testing.T) {
		dueRepo := &MockDueRepository{}
		paymentRepo := &MockPaymentRepository{}
		cache := &MockStatsCache{}
		svc := NewDashboardService(dueRepo, paymentRepo, cache, zap.NewNop())

		cached := &DashboardStats{AcademicYear: "2024-25", TotalBilled: decimal.NewFromInt(1)}
		cache.On("Get", ctx, "2024-25").Return(cached, nil)

		stats, err := svc.GetStats(ctx, "2024-25")
		require.NoError(t, err)
		assert.Same(t, cached, stats)
		dueRepo.AssertNotCalled(t, "SummarizeByYear", mock.Anything, mock.Anything)
	})

	t.Run("cache failure degrades to recompute", func(t *testing.T) {
		dueRepo := &MockDueRepository{}
		paymentRepo := &MockPaymentRepository{}
		cache := &MockStatsCache{}
		svc := NewDashboardService(dueRepo, paymentRepo, cache, zap.NewNop())

		cache.On("Get", ctx, "2024-25").Return(nil, errors.New("redis down"))
		dueRepo.On("SummarizeByYear", ctx, "2024-25").Return(summary, nil)
		paymentRepo.On("CountByStatus", ctx, "2024-25").Return(counts, nil)
		cache.On("Set", ctx, mock.Anything).Return(errors.New("redis down"))

		stats, err := svc.GetStats(ctx, "2024-25")
		require.NoError(t, err)
		assert.Equal(t, int64(140), stats.VerifiedPayments)
	})

	t.Run("nil cache is allowed", func(t *testing.T) {
		dueRepo := &MockDueRepository{}
		paymentRepo := &MockPaymentRepository{}
		svc := NewDashboardService(dueRepo, paymentRepo, nil, zap.NewNop())

		dueRepo.On("SummarizeByYear", ctx, "2024-25").Return(summary, nil)
		paymentRepo.On("CountByStatus", ctx, "2024-25").Return(counts, nil)

		stats, err := svc.GetStats(ctx, "2024-25")
		require.NoError(t, err)
		assert.True(t, stats.TotalCollected.Equal(decimal.NewFromInt(320000)))
	})
}
