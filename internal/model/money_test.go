package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoneyRoundsHalfAwayFromZero(t *testing.T) {
	cases := map[string]Money{
		"12.345": 1235,
		"12.344": 1234,
		"-0.005": -1,
		"7":      700,
		"0.1":    10,
	}
	for raw, want := range cases {
		got, err := ParseMoney(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseMoney("ten")
	assert.Error(t, err)
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "1500000.00", Money(150000000).String())
	assert.Equal(t, "0.05", Money(5).String())
	assert.Equal(t, "-3.10", Money(-310).String())
}

func TestMoneyDiscounted(t *testing.T) {
	cases := []struct {
		amount  Money
		percent decimal.Decimal
		want    Money
	}{
		{100000, decimal.RequireFromString("12.5"), 87500},
		{100000, decimal.Zero, 100000},
		{100000, decimal.NewFromInt(100), 0},
		// 999.99 * 0.9 = 899.991
		{99999, decimal.NewFromInt(10), 89999},
	}
	for _, tc := range cases {
		got, err := tc.amount.Discounted(tc.percent)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestMoneyRange(t *testing.T) {
	largest, err := ParseMoney("9999999999999999.99")
	require.NoError(t, err)
	assert.Equal(t, MaxMoney, largest)

	_, err = ParseMoney("10000000000000000")
	assert.ErrorIs(t, err, ErrMoneyOutOfRange)
	_, err = ParseMoney("-99999999999999999999999")
	assert.ErrorIs(t, err, ErrMoneyOutOfRange)

	var decoded Money
	assert.ErrorIs(t, json.Unmarshal([]byte(`"97088126703734482200"`), &decoded), ErrMoneyOutOfRange)

	_, err = MaxMoney.Add(1)
	assert.ErrorIs(t, err, ErrMoneyOutOfRange)
	_, err = Money(-MaxMoney).Add(-1)
	assert.ErrorIs(t, err, ErrMoneyOutOfRange)

	product, err := Money(250).Times(4)
	require.NoError(t, err)
	assert.Equal(t, Money(1000), product)
	_, err = Money(970881267037344822).Times(19)
	assert.ErrorIs(t, err, ErrMoneyOutOfRange)
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Amount: 123456})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"1234.56"}`, string(data))

	var decoded struct {
		Amount Money `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":99.995}`), &decoded))
	assert.Equal(t, Money(10000), decoded.Amount)

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"abc"}`), &decoded))
}

func TestMoneyScan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("250000.50"))
	assert.Equal(t, Money(25000050), m)

	require.NoError(t, m.Scan([]byte("0")))
	assert.Equal(t, Money(0), m)

	v, err := Money(4200).Value()
	require.NoError(t, err)
	assert.Equal(t, "42.00", v)
}
