package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("valid money", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromInt(100), INR)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromInt(100)))
		assert.Equal(t, INR, m.Currency())
	})

	t.Run("empty currency rejected", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		assert.Error(t, err)
	})

	t.Run("from string", func(t *testing.T) {
		m, err := NewMoneyINRFromString("3900.50")
		require.NoError(t, err)
		assert.Equal(t, "3900.50 INR", m.String())
	})

	t.Run("invalid string rejected", func(t *testing.T) {
		_, err := NewMoneyINRFromString("not-a-number")
		assert.Error(t, err)
	})
}

func TestMoneyArithmetic(t *testing.T) {
	a := NewMoneyINR(decimal.NewFromInt(6000))
	b := NewMoneyINR(decimal.NewFromInt(4000))

	t.Run("add", func(t *testing.T) {
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Amount().Equal(decimal.NewFromInt(10000)))
	})

	t.Run("subtract", func(t *testing.T) {
		diff, err := a.Subtract(b)
		require.NoError(t, err)
		assert.True(t, diff.Amount().Equal(decimal.NewFromInt(2000)))
	})

	t.Run("currency mismatch", func(t *testing.T) {
		usd, err := NewMoney(decimal.NewFromInt(10), USD)
		require.NoError(t, err)
		_, err = a.Add(usd)
		assert.Error(t, err)
		_, err = a.Subtract(usd)
		assert.Error(t, err)
	})

	t.Run("comparisons", func(t *testing.T) {
		assert.True(t, a.GreaterThan(b))
		assert.True(t, b.LessThan(a))
		assert.True(t, a.Equals(NewMoneyINR(decimal.NewFromInt(6000))))
		assert.False(t, a.Equals(b))
	})
}

func TestMoneyZero(t *testing.T) {
	z := ZeroINR()
	assert.True(t, z.IsZero())
	assert.False(t, z.IsPositive())
	assert.False(t, z.IsNegative())
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m := NewMoneyINR(decimal.NewFromFloat(16345))
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoneyJSONDefaultsCurrency(t *testing.T) {
	var decoded Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"100"}`), &decoded))
	assert.Equal(t, INR, decoded.Currency())
}

func TestMoneyScan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan([]byte("1245.00")))
	assert.True(t, m.Amount().Equal(decimal.NewFromInt(1245)))
	assert.Equal(t, INR, m.Currency())

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())
}
