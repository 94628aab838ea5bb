package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/web3guy0/cryptoarb/internal/model"
)

func TestMoney_Equal_IgnoresBeyondPrecision(t *testing.T) {
	a := model.NewMoney(1.001, "USD")
	b := model.NewMoney(1.004, "USD")
	assert.True(t, a.Equal(b), "both round to 1.00 at MoneyPrecision=2")

	c := model.NewMoney(1.01, "USD")
	assert.False(t, a.Equal(c))
}

func TestMoney_Equal_DifferentCurrency(t *testing.T) {
	a := model.NewMoney(1, "USD")
	b := model.NewMoney(1, "EUR")
	assert.False(t, a.Equal(b))
}

func TestRoundQuote(t *testing.T) {
	assert.InDelta(t, 200.00001, model.RoundQuote(2.0000001, 100), 1e-5)
	assert.Equal(t, 0.0, model.RoundQuote(0, 100))
}

func TestFloorWithPrecision(t *testing.T) {
	assert.InDelta(t, 1.23, model.FloorWithPrecision(1.239, 2), 1e-9)
	assert.InDelta(t, -2.0, model.FloorWithPrecision(-1.001, 0), 1e-9)
}

func TestParsePairName(t *testing.T) {
	p := model.ParsePairName("ltcusd")
	assert.Equal(t, "LTC", p.Quote)
	assert.Equal(t, "USD", p.Base)
	assert.Equal(t, "LTCUSD", p.String())
}

func TestPairName_ToVenueFormat(t *testing.T) {
	p := model.ParsePairName("ETHUSD")
	assert.Equal(t, "ETH-USD", p.ToVenueFormat("{quote}-{base}"))
	assert.Equal(t, "USDETH", p.ToVenueFormat("{base}{quote}"))
}
