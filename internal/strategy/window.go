// Package strategy implements the arbitrage strategy: locating a
// profitable ask/bid window across venues, sizing and placing the two legs,
// and reversing a pair whose legs didn't both fill.
//
// Ported from cryptotrader.strategy.arbitrage.
package strategy

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptoarb/internal/model"
)

// maxSum stands in for cryptotrader.const.MAX_SUM: a venue with no
// configured global limit is treated as having this much room.
var maxSum = decimal.New(1, 32)

// GetMaxSpend computes the maximum base amount (to buy on the ask venue)
// and quote amount (to sell on the bid venue) a single arbitrage trade may
// use, reconciling both venues' balances, their global limits, and a
// 2x-fee safety factor down to one mutually consistent pair of sizes.
//
// Ported from cryptotrader.strategy.arbitrage.get_max_spend. The two
// offers must share the same base/quote currencies and come from
// different venues.
func GetMaxSpend(askOffer, bidOffer model.Offer, maxSpendPart float64) (maxBase, maxQuote model.Money, err error) {
	if askOffer.Side() != model.Ask {
		return model.Money{}, model.Money{}, fmt.Errorf("get max spend: first offer must be an ask")
	}
	if bidOffer.Side() != model.Bid {
		return model.Money{}, model.Money{}, fmt.Errorf("get max spend: second offer must be a bid")
	}
	if askOffer.Base().Currency != bidOffer.Base().Currency || askOffer.Quote().Currency != bidOffer.Quote().Currency {
		return model.Money{}, model.Money{}, fmt.Errorf("get max spend: offers must share base/quote currencies")
	}

	baseCurrency := askOffer.Base().Currency
	quoteCurrency := askOffer.Quote().Currency

	askVenue := askOffer.Venue()
	bidVenue := bidOffer.Venue()

	exchangeLimit := askVenue.Limit()
	if exchangeLimit.IsZero() {
		exchangeLimit = maxSum
	}
	if bidLimit := bidVenue.Limit(); !bidLimit.IsZero() && bidLimit.LessThan(exchangeLimit) {
		exchangeLimit = bidLimit
	}

	// ask leg spends base currency: how much we can afford to buy.
	askBalance := askVenue.Balance(baseCurrency)
	maxBaseSum := decimal.Min(askBalance, askOffer.Base().Amount)
	maxBasePrice := askOffer.Price()

	// bid leg spends quote currency: how much we have available to sell.
	bidBalance := bidVenue.Balance(quoteCurrency)
	maxQuoteSum := decimal.Min(bidBalance, bidOffer.Quote().Amount)

	// Sync the two legs to the same notional, in ask-leg price terms --
	// both legs must move the same quote amount for the arbitrage to
	// close cleanly.
	priceDec := decimal.NewFromFloat(maxBasePrice)
	if priceDec.IsZero() {
		return model.Money{}, model.Money{}, fmt.Errorf("get max spend: ask price is zero")
	}
	maxQuoteSum = decimal.Min(maxQuoteSum, maxBaseSum.Div(priceDec))
	maxBaseSum = decimal.Min(maxBaseSum, maxQuoteSum.Mul(priceDec))

	// Fee safety factor: one venue's fee would be enough in theory, but a
	// factor of 2 is kept for stability, on both legs' own fee.
	maxBaseSum = maxBaseSum.Mul(decimal.NewFromFloat(1.0 - 2*askVenue.Fee()))
	maxQuoteSum = maxQuoteSum.Mul(decimal.NewFromFloat(1.0 - 2*bidVenue.Fee()))

	maxBaseSum = maxBaseSum.Mul(decimal.NewFromFloat(maxSpendPart))
	maxQuoteSum = maxQuoteSum.Mul(decimal.NewFromFloat(maxSpendPart))

	maxQuoteSumOrLimit := decimal.Min(maxQuoteSum, exchangeLimit)

	if maxBaseSum.IsNegative() {
		maxBaseSum = decimal.Zero
	}
	if maxQuoteSumOrLimit.IsNegative() {
		maxQuoteSumOrLimit = decimal.Zero
	}

	return model.Money{Amount: maxBaseSum, Currency: baseCurrency},
		model.Money{Amount: maxQuoteSumOrLimit, Currency: quoteCurrency}, nil
}

// Window is a profitable (or not yet profitable) state between an ask
// offer and a bid offer for the same pair, from two different venues.
//
// Ported from cryptotrader.strategy.arbitrage.ArbitrageWindow.
type Window struct {
	Ask            model.Offer
	Bid            model.Offer
	DirectWidth    float64
	ReversedWidth  float64
}

// NewWindow builds a Window, validating the side and pair invariants the
// Python source asserted at construction.
func NewWindow(ask, bid model.Offer, directWidth, reversedWidth float64) (Window, error) {
	if ask.Side() != model.Ask {
		return Window{}, fmt.Errorf("window: first offer must be an ask")
	}
	if bid.Side() != model.Bid {
		return Window{}, fmt.Errorf("window: second offer must be a bid")
	}
	if ask.Pair() != bid.Pair() {
		return Window{}, fmt.Errorf("window: ask pair %s != bid pair %s", ask.Pair(), bid.Pair())
	}
	return Window{Ask: ask, Bid: bid, DirectWidth: directWidth, ReversedWidth: reversedWidth}, nil
}

// Exists reports whether the window spans two distinct venues -- a window
// against a single venue's own book is not an arbitrage opportunity.
func (w Window) Exists() bool {
	return w.Ask.VenueName() != "" && w.Bid.VenueName() != "" && w.Ask.VenueName() != w.Bid.VenueName()
}

// IsOpened reports whether buying on the ask venue and immediately selling
// on the bid venue is profitable by at least DirectWidth.
func (w Window) IsOpened() bool {
	return w.Ask.TotalPrice()*w.DirectWidth < w.Bid.TotalPrice()
}

// IsClosed reports whether the window has narrowed enough that the
// reversed trade (sell back on the ask venue, buy back on the bid venue)
// is no longer a loss -- the signal to unwind an open pair.
func (w Window) IsClosed() bool {
	return w.Ask.Price()*w.ReversedWidth >= w.Bid.Price()
}

func (w Window) String() string {
	return fmt.Sprintf("Pair - %s\n%s\n%s", w.Ask.Pair(), w.Ask.ReportStr(), w.Bid.ReportStr())
}

// roundFloat rounds v to places decimal digits, halves away from zero.
func roundFloat(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
