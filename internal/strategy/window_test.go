package strategy_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/cryptoarb/internal/model"
	"github.com/web3guy0/cryptoarb/internal/strategy"
)

type fakeVenue struct {
	name         string
	fee          float64
	balances     map[string]decimal.Decimal
	pairLimits   map[string]decimal.Decimal
	limit        decimal.Decimal
	defaultPairs []string
}

func (f *fakeVenue) Name() string                           { return f.name }
func (f *fakeVenue) Fee() float64                            { return f.fee }
func (f *fakeVenue) Balance(currency string) decimal.Decimal { return f.balances[currency] }
func (f *fakeVenue) PairLimit(pair string) decimal.Decimal   { return f.pairLimits[pair] }
func (f *fakeVenue) Limit() decimal.Decimal                  { return f.limit }
func (f *fakeVenue) DefaultPairs() []string                  { return f.defaultPairs }

func newVenue(name string, fee float64, balances map[string]decimal.Decimal) *fakeVenue {
	return &fakeVenue{
		name:         name,
		fee:          fee,
		balances:     balances,
		pairLimits:   map[string]decimal.Decimal{},
		defaultPairs: []string{"LTCUSD"},
	}
}

func TestNewWindow_RejectsWrongSides(t *testing.T) {
	askVenue := newVenue("a", 0, map[string]decimal.Decimal{})
	bidVenue := newVenue("b", 0, map[string]decimal.Decimal{})
	ask, err := model.NewOffer(model.Ask, "LTCUSD", 100, 1, askVenue, 0)
	require.NoError(t, err)
	bid, err := model.NewOffer(model.Bid, "LTCUSD", 100, 1, bidVenue, 0)
	require.NoError(t, err)

	_, err = strategy.NewWindow(bid, ask, 1, 1)
	assert.Error(t, err)

	w, err := strategy.NewWindow(ask, bid, 1, 1)
	require.NoError(t, err)
	assert.True(t, w.Exists())
}

func TestWindow_Exists_FalseForSameVenue(t *testing.T) {
	v := newVenue("solo", 0, map[string]decimal.Decimal{})
	ask, err := model.NewOffer(model.Ask, "LTCUSD", 100, 1, v, 0)
	require.NoError(t, err)
	bid, err := model.NewOffer(model.Bid, "LTCUSD", 100, 1, v, 0)
	require.NoError(t, err)
	w, err := strategy.NewWindow(ask, bid, 1, 1)
	require.NoError(t, err)
	assert.False(t, w.Exists())
}

func TestWindow_IsOpened(t *testing.T) {
	askVenue := newVenue("a", 0, map[string]decimal.Decimal{})
	bidVenue := newVenue("b", 0, map[string]decimal.Decimal{})

	ask, err := model.NewOffer(model.Ask, "LTCUSD", 100, 1, askVenue, 0)
	require.NoError(t, err)
	bid, err := model.NewOffer(model.Bid, "LTCUSD", 101, 1, bidVenue, 0)
	require.NoError(t, err)

	w, err := strategy.NewWindow(ask, bid, 1.0, 1.0)
	require.NoError(t, err)
	assert.True(t, w.IsOpened(), "bid total price exceeds ask total price")

	tightBid, err := model.NewOffer(model.Bid, "LTCUSD", 100, 1, bidVenue, 0)
	require.NoError(t, err)
	flat, err := strategy.NewWindow(ask, tightBid, 1.0, 1.0)
	require.NoError(t, err)
	assert.False(t, flat.IsOpened())
}

func TestWindow_IsClosed(t *testing.T) {
	askVenue := newVenue("a", 0, map[string]decimal.Decimal{})
	bidVenue := newVenue("b", 0, map[string]decimal.Decimal{})
	ask, err := model.NewOffer(model.Ask, "LTCUSD", 100, 1, askVenue, 0)
	require.NoError(t, err)
	bid, err := model.NewOffer(model.Bid, "LTCUSD", 100, 1, bidVenue, 0)
	require.NoError(t, err)

	w, err := strategy.NewWindow(ask, bid, 1.0, 1.0)
	require.NoError(t, err)
	assert.True(t, w.IsClosed(), "prices equal, reversed width 1.0")
}

func TestGetMaxSpend_RejectsMismatchedSides(t *testing.T) {
	v := newVenue("a", 0, map[string]decimal.Decimal{})
	ask, _ := model.NewOffer(model.Ask, "LTCUSD", 100, 1, v, 0)
	_, _, err := strategy.GetMaxSpend(ask, ask, 1.0)
	assert.Error(t, err)
}

func TestGetMaxSpend_ConstrainsToSmallerBalanceAndSyncsNotional(t *testing.T) {
	askVenue := newVenue("kraken", 0, map[string]decimal.Decimal{"USD": decimal.NewFromInt(1000)})
	bidVenue := newVenue("binance", 0, map[string]decimal.Decimal{"LTC": decimal.NewFromInt(3)})

	ask, err := model.NewOffer(model.Ask, "LTCUSD", 100, 100, askVenue, 0)
	require.NoError(t, err)
	bid, err := model.NewOffer(model.Bid, "LTCUSD", 100, 100, bidVenue, 0)
	require.NoError(t, err)

	maxBase, maxQuote, err := strategy.GetMaxSpend(ask, bid, 1.0)
	require.NoError(t, err)

	// ask leg is capped by USD balance (1000), bid leg by LTC balance (3).
	// synced notional: min(1000, 3*100)=300 base, min(3, 1000/100)=3 quote.
	assert.InDelta(t, 300, maxBase.Amount.InexactFloat64(), 1e-6)
	assert.InDelta(t, 3, maxQuote.Amount.InexactFloat64(), 1e-6)
}

func TestGetMaxSpend_AppliesFeeSafetyFactor(t *testing.T) {
	askVenue := newVenue("kraken", 0.01, map[string]decimal.Decimal{"USD": decimal.NewFromInt(1000)})
	bidVenue := newVenue("binance", 0.02, map[string]decimal.Decimal{"LTC": decimal.NewFromInt(3)})

	ask, err := model.NewOffer(model.Ask, "LTCUSD", 100, 100, askVenue, 0)
	require.NoError(t, err)
	bid, err := model.NewOffer(model.Bid, "LTCUSD", 100, 100, bidVenue, 0)
	require.NoError(t, err)

	maxBase, maxQuote, err := strategy.GetMaxSpend(ask, bid, 1.0)
	require.NoError(t, err)

	assert.InDelta(t, 300*(1-2*0.01), maxBase.Amount.InexactFloat64(), 1e-6)
	assert.InDelta(t, 3*(1-2*0.02), maxQuote.Amount.InexactFloat64(), 1e-6)
}

func TestGetMaxSpend_CapsByGlobalLimit(t *testing.T) {
	askVenue := newVenue("kraken", 0, map[string]decimal.Decimal{"USD": decimal.NewFromInt(1000)})
	askVenue.limit = decimal.NewFromInt(1)
	bidVenue := newVenue("binance", 0, map[string]decimal.Decimal{"LTC": decimal.NewFromInt(3)})

	ask, err := model.NewOffer(model.Ask, "LTCUSD", 100, 100, askVenue, 0)
	require.NoError(t, err)
	bid, err := model.NewOffer(model.Bid, "LTCUSD", 100, 100, bidVenue, 0)
	require.NoError(t, err)

	_, maxQuote, err := strategy.GetMaxSpend(ask, bid, 1.0)
	require.NoError(t, err)
	assert.True(t, maxQuote.Amount.LessThanOrEqual(decimal.NewFromInt(1)))
}

func TestGetMaxSpend_NeverNegative(t *testing.T) {
	askVenue := newVenue("kraken", 0, map[string]decimal.Decimal{"USD": decimal.Zero})
	bidVenue := newVenue("binance", 0, map[string]decimal.Decimal{"LTC": decimal.Zero})

	ask, err := model.NewOffer(model.Ask, "LTCUSD", 100, 100, askVenue, 0)
	require.NoError(t, err)
	bid, err := model.NewOffer(model.Bid, "LTCUSD", 100, 100, bidVenue, 0)
	require.NoError(t, err)

	maxBase, maxQuote, err := strategy.GetMaxSpend(ask, bid, 1.0)
	require.NoError(t, err)
	assert.True(t, maxBase.Amount.GreaterThanOrEqual(decimal.Zero))
	assert.True(t, maxQuote.Amount.GreaterThanOrEqual(decimal.Zero))
}
