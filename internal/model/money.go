// Package model holds the value types shared by every venue and strategy:
// Money, PairName, Offer and Order. None of them know about exchanges,
// transports or storage — they are pure data plus the arithmetic the spec
// pins down.
package model

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MoneyPrecision is the number of digits after the decimal point two Money
// values must agree on to compare equal. Ported from cryptotrader's
// Money.PRECISION.
const MoneyPrecision = 2

// Money is an (amount, currency) pair. It is immutable: every mutation
// method on Offer/Order returns a new Money instead of touching one in
// place.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney builds a Money from a float64 amount, matching the precision the
// rest of the codebase works in (venue tickers arrive as float64).
func NewMoney(amount float64, currency string) Money {
	return Money{Amount: decimal.NewFromFloat(amount), Currency: currency}
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(4), m.Currency)
}

// Equal compares two Money values up to MoneyPrecision, the way
// cryptotrader.models.money.Money.__eq__ does.
func (m Money) Equal(other Money) bool {
	if m.Currency != other.Currency {
		return false
	}
	return m.Amount.Round(MoneyPrecision).Equal(other.Amount.Round(MoneyPrecision))
}

// RoundQuote computes base = round(quote * price, 5), the derivation the
// spec pins down for Offer.base.
func RoundQuote(quote, price float64) float64 {
	scaled := quote * price
	const factor = 1e5
	return math.Round(scaled*factor) / factor
}

// FloorWithPrecision mirrors cryptotrader.common.floor_with_precision: a
// math.Floor truncation to a fixed number of decimal digits, used for
// balance-difference comparisons where naive float equality would flap.
func FloorWithPrecision(value float64, precision int) float64 {
	base := math.Pow(10, float64(precision))
	return math.Floor(value*base) / base
}
