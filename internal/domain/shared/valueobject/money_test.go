package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoneyKESFromCents(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		want  string
	}{
		{"whole shillings", 1000000, "10000"},
		{"with cents", 123456, "1234.56"},
		{"zero", 0, "0"},
		{"negative reversal", -50000, "-500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMoneyKESFromCents(tt.cents)
			assert.Equal(t, KES, m.Currency())
			assert.True(t, m.Amount().Equal(decimal.RequireFromString(tt.want)))
			assert.Equal(t, tt.cents, m.Cents())
		})
	}
}

func TestMoney_AddSubtract(t *testing.T) {
	a := NewMoneyKESFromCents(400000)
	b := NewMoneyKESFromCents(600000)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1000000), sum.Cents())

	diff, err := b.Subtract(a)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), diff.Cents())
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	a := NewMoneyKESFromCents(100)
	b, err := NewMoney(decimal.NewFromInt(1), USD)
	require.NoError(t, err)

	_, err = a.Add(b)
	assert.Error(t, err)

	_, err = a.Subtract(b)
	assert.Error(t, err)

	_, err = a.LessThan(b)
	assert.Error(t, err)
}

func TestMoney_Min(t *testing.T) {
	a := NewMoneyKESFromCents(400000)
	b := NewMoneyKESFromCents(600000)

	m, err := a.Min(b)
	require.NoError(t, err)
	assert.True(t, m.Equals(a))

	m, err = b.Min(a)
	require.NoError(t, err)
	assert.True(t, m.Equals(a))
}

func TestMoney_Predicates(t *testing.T) {
	assert.True(t, ZeroKES().IsZero())
	assert.True(t, NewMoneyKESFromCents(1).IsPositive())
	assert.True(t, NewMoneyKESFromCents(-1).IsNegative())
	assert.True(t, NewMoneyKESFromCents(-1).Negate().IsPositive())
	assert.True(t, NewMoneyKESFromCents(-500).Abs().IsPositive())
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "KES 1234.56", NewMoneyKESFromCents(123456).String())
}
