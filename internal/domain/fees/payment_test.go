package fees

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/feeledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(t *testing.T) *Payment {
	t.Helper()
	p, err := NewPayment(uuid.New(), time.Now(), PaymentMethodCash, "", "", "2024-25", uuid.New())
	require.NoError(t, err)
	return p
}

func TestNewPayment(t *testing.T) {
	t.Run("starts pending with no allocations", func(t *testing.T) {
		p := newTestPayment(t)
		assert.Equal(t, PaymentStatusPending, p.Status)
		assert.Empty(t, p.Allocations)
		assert.NotNil(t, p.CreatedBy)
	})

	t.Run("invalid method rejected", func(t *testing.T) {
		_, err := NewPayment(uuid.New(), time.Now(), PaymentMethod("BARTER"), "", "", "2024-25", uuid.New())
		assert.Error(t, err)
	})

	t.Run("missing student rejected", func(t *testing.T) {
		_, err := NewPayment(uuid.Nil, time.Now(), PaymentMethodCash, "", "", "2024-25", uuid.New())
		assert.Error(t, err)
	})

	t.Run("missing date rejected", func(t *testing.T) {
		_, err := NewPayment(uuid.New(), time.Time{}, PaymentMethodCash, "", "", "2024-25", uuid.New())
		assert.Error(t, err)
	})
}

func TestPaymentAllocations(t *testing.T) {
	t.Run("due allocation and custom charge sum together", func(t *testing.T) {
		p := newTestPayment(t)
		dueID := uuid.New()

		_, err := p.AddAllocation(&dueID, valueobject.NewMoneyINR(decimal.NewFromInt(6000)), "", "", "")
		require.NoError(t, err)
		_, err = p.AddAllocation(nil, valueobject.NewMoneyINR(decimal.NewFromInt(250)), "exam fee", "", "")
		require.NoError(t, err)

		assert.True(t, p.TotalAmount().Equal(decimal.NewFromInt(6250)))
		assert.True(t, p.AmountForDue(dueID).Equal(decimal.NewFromInt(6000)))
		assert.Len(t, p.DueAllocations(), 1)
	})

	t.Run("custom charge without description rejected", func(t *testing.T) {
		p := newTestPayment(t)
		_, err := p.AddAllocation(nil, valueobject.NewMoneyINR(decimal.NewFromInt(100)), "", "  ", "")
		assert.Error(t, err)
		assert.Empty(t, p.Allocations)
	})

	t.Run("non positive amount rejected", func(t *testing.T) {
		p := newTestPayment(t)
		dueID := uuid.New()
		_, err := p.AddAllocation(&dueID, valueobject.ZeroINR(), "", "", "")
		assert.Error(t, err)
	})

	t.Run("terminal payment rejects new allocations", func(t *testing.T) {
		p := newTestPayment(t)
		dueID := uuid.New()
		_, err := p.AddAllocation(&dueID, valueobject.NewMoneyINR(decimal.NewFromInt(100)), "", "", "")
		require.NoError(t, err)
		require.NoError(t, p.Verify(uuid.New()))

		_, err = p.AddAllocation(&dueID, valueobject.NewMoneyINR(decimal.NewFromInt(100)), "", "", "")
		assert.Error(t, err)
	})
}

func TestPaymentVerification(t *testing.T) {
	t.Run("verify from pending", func(t *testing.T) {
		p := newTestPayment(t)
		verifier := uuid.New()
		require.NoError(t, p.Verify(verifier))
		assert.Equal(t, PaymentStatusVerified, p.Status)
		require.NotNil(t, p.VerifiedBy)
		assert.Equal(t, verifier, *p.VerifiedBy)
		assert.NotNil(t, p.VerifiedAt)
	})

	t.Run("verified is terminal", func(t *testing.T) {
		p := newTestPayment(t)
		require.NoError(t, p.Verify(uuid.New()))
		assert.Error(t, p.Verify(uuid.New()))
		assert.Error(t, p.Reject(uuid.New(), "late"))
	})

	t.Run("verify at creation uses creator", func(t *testing.T) {
		p := newTestPayment(t)
		require.NoError(t, p.VerifyAtCreation())
		assert.Equal(t, PaymentStatusVerified, p.Status)
		assert.Equal(t, *p.CreatedBy, *p.VerifiedBy)
	})

	t.Run("reject requires reason", func(t *testing.T) {
		p := newTestPayment(t)
		assert.Error(t, p.Reject(uuid.New(), "   "))
		assert.Equal(t, PaymentStatusPending, p.Status)
	})

	t.Run("reject from pending", func(t *testing.T) {
		p := newTestPayment(t)
		rejector := uuid.New()
		require.NoError(t, p.Reject(rejector, "wrong student"))
		assert.Equal(t, PaymentStatusRejected, p.Status)
		assert.Equal(t, "wrong student", p.RejectReason)
		assert.Error(t, p.Verify(uuid.New()))
	})
}

func TestAllocationsJSONB(t *testing.T) {
	p := newTestPayment(t)
	dueID := uuid.New()
	_, err := p.AddAllocation(&dueID, valueobject.NewMoneyINR(decimal.NewFromInt(3900)), "april fees", "", "")
	require.NoError(t, err)

	value, err := p.Allocations.Value()
	require.NoError(t, err)

	var decoded Allocations
	require.NoError(t, decoded.Scan(value))
	require.Len(t, decoded, 1)
	assert.Equal(t, dueID, *decoded[0].DueID)
	assert.True(t, decoded[0].Amount.Equal(decimal.NewFromInt(3900)))
	assert.Equal(t, "april fees", decoded[0].Label)

	t.Run("nil scans to empty slice", func(t *testing.T) {
		var a Allocations
		require.NoError(t, a.Scan(nil))
		assert.Empty(t, a)
	})
}

func TestBuildImportKey(t *testing.T) {
	k := BuildImportKey("2024-25", "Class 5", "LDG-0042", "2024-04")
	assert.Equal(t, "2024-25|Class 5|LDG-0042|2024-04", k)

	t.Run("same row always yields same key", func(t *testing.T) {
		assert.Equal(t, k, BuildImportKey("2024-25", "Class 5", "LDG-0042", "2024-04"))
	})
}

func TestPaymentJSONShape(t *testing.T) {
	p := newTestPayment(t)
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "PENDING", m["status"])
	assert.NotContains(t, m, "verified_by")
}
