package model

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a fixed-point amount in minor units (two decimal places).
// Conversions to and from decimal text happen only at the storage and
// transport boundaries. Arithmetic stays within the NUMERIC(18,2) range
// and reports ErrMoneyOutOfRange instead of wrapping.
type Money int64

const moneyScale = 2

// MaxMoney is the largest amount a NUMERIC(18,2) column holds.
const MaxMoney Money = 999_999_999_999_999_999

var ErrMoneyOutOfRange = errors.New("amount out of range")

var maxMoneyDecimal = decimal.New(int64(MaxMoney), -moneyScale)

// MoneyFromDecimal rounds d half away from zero to the nearest minor unit.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	rounded := d.Round(moneyScale)
	if rounded.Abs().GreaterThan(maxMoneyDecimal) {
		return 0, fmt.Errorf("%w: %s", ErrMoneyOutOfRange, d.String())
	}
	return Money(rounded.Shift(moneyScale).IntPart()), nil
}

func ParseMoney(raw string) (Money, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return MoneyFromDecimal(d)
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -moneyScale)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(moneyScale)
}

func (m Money) inRange() bool {
	return m >= -MaxMoney && m <= MaxMoney
}

func (m Money) Add(other Money) (Money, error) {
	sum := m + other
	if !m.inRange() || !other.inRange() || !sum.inRange() {
		return 0, fmt.Errorf("%w: %s + %s", ErrMoneyOutOfRange, m, other)
	}
	return sum, nil
}

func (m Money) Times(n int) (Money, error) {
	product := m.Decimal().Mul(decimal.NewFromInt(int64(n)))
	if product.Abs().GreaterThan(maxMoneyDecimal) {
		return 0, fmt.Errorf("%w: %s x %d", ErrMoneyOutOfRange, m, n)
	}
	return Money(product.Shift(moneyScale).IntPart()), nil
}

// Discounted applies a percentage discount, rounding half away from zero
// to the nearest minor unit.
func (m Money) Discounted(percent decimal.Decimal) (Money, error) {
	if percent.IsZero() {
		return m, nil
	}
	factor := decimal.NewFromInt(100).Sub(percent).Div(decimal.NewFromInt(100))
	return MoneyFromDecimal(m.Decimal().Mul(factor))
}

func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

func (m *Money) Scan(src interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	v, err := MoneyFromDecimal(d)
	if err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	*m = v
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	v, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
