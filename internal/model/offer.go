package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Side is an offer's price type: ask (sell-side top) or bid (buy-side top).
type Side string

const (
	Ask Side = "ask"
	Bid Side = "bid"
)

// OrderSide is the trading intent derived from an offer's Side.
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// SideToOrderSide and OrderSideToSide mirror cryptotrader.const's
// OFFER_ORDER_SIDES_MAP / ORDER_OFFER_SIDES_MAP.
var SideToOrderSide = map[Side]OrderSide{Ask: Buy, Bid: Sell}
var OrderSideToSide = map[OrderSide]Side{Buy: Ask, Sell: Bid}

// VenueRef is the narrow slice of a venue an Offer needs: its name, fee,
// balances and spend limits. Venue (package venue) implements
// this; keeping it here avoids an import cycle between model and venue.
type VenueRef interface {
	Name() string
	Fee() float64
	Balance(currency string) decimal.Decimal
	PairLimit(pair string) decimal.Decimal
	// Limit is the venue's global spend limit across all pairs, or the
	// zero Decimal if the venue has none configured.
	Limit() decimal.Decimal
	DefaultPairs() []string
}

// Offer is an immutable snapshot: the best price a venue offers to buy or
// sell some quantity of an instrument, at a point in time.
//
// Invariants (spec.md §3): Pair must be among Venue.DefaultPairs(); Price
// and QuoteAmount must be > 0 at construction.
type Offer struct {
	pair      PairName
	side      Side
	price     float64
	quote     Money
	base      Money
	venue     VenueRef
	timestamp float64
}

// NewOffer constructs an Offer, deriving Base = round(Quote*Price, 5) and
// validating the two positivity invariants and pair-membership invariant
// from spec.md §3.
func NewOffer(side Side, pair string, price, quoteAmount float64, venue VenueRef, timestamp float64) (Offer, error) {
	if price <= 0 {
		return Offer{}, fmt.Errorf("offer: price must be > 0, got %v", price)
	}
	if quoteAmount <= 0 {
		return Offer{}, fmt.Errorf("offer: quote amount must be > 0, got %v", quoteAmount)
	}
	pn := ParsePairName(pair)
	if venue != nil {
		if !containsPair(venue.DefaultPairs(), pn.String()) {
			return Offer{}, fmt.Errorf("offer: pair %s is not in venue %s's default pairs", pn, venue.Name())
		}
	}
	return Offer{
		pair:      pn,
		side:      side,
		price:     price,
		quote:     NewMoney(quoteAmount, pn.Quote),
		base:      NewMoney(RoundQuote(quoteAmount, price), pn.Base),
		venue:     venue,
		timestamp: timestamp,
	}, nil
}

func containsPair(pairs []string, pair string) bool {
	for _, p := range pairs {
		if p == pair {
			return true
		}
	}
	return false
}

func (o Offer) Pair() string    { return o.pair.String() }
func (o Offer) Side() Side      { return o.side }
func (o Offer) Price() float64  { return o.price }
func (o Offer) Quote() Money    { return o.quote }
func (o Offer) Base() Money     { return o.base }
func (o Offer) Venue() VenueRef { return o.venue }
func (o Offer) Timestamp() float64 { return o.timestamp }

func (o Offer) VenueName() string {
	if o.venue == nil {
		return ""
	}
	return o.venue.Name()
}

// TotalPrice is the price adjusted by the venue's fee: total_price =
// price * (1 + fee*sign(side)), sign(ask)=+1, sign(bid)=-1.
func (o Offer) TotalPrice() float64 {
	fee := 0.0
	if o.venue != nil {
		fee = o.venue.Fee()
	}
	k := 1.0
	if o.side == Bid {
		k = -1.0
	}
	return o.price * (1.0 + k*fee)
}

func (o Offer) String() string {
	return fmt.Sprintf(
		"<Offer: pair: %s, side: %s, price: %.4f, venue: %s, base: %s, quote: %s>",
		o.Pair(), o.side, o.price, o.VenueName(), o.base, o.quote,
	)
}

// ReportStr is the human-readable block the Telegram notifier formats into
// its messages.
func (o Offer) ReportStr() string {
	return fmt.Sprintf(
		"%s:\n- Venue - %s\n- Price - %v\n- Quote Volume - %s\n- Base Volume - %s",
		upper(string(o.side)), o.VenueName(), o.price, o.quote, o.base,
	)
}

func upper(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 32
	}
	return string(r)
}

// ReversedSide flips ask<->bid.
func (o Offer) ReversedSide() Side {
	if o.side == Bid {
		return Ask
	}
	return Bid
}

// Reversed returns the same offer with the opposite side.
func (o Offer) Reversed() Offer {
	clone := o
	clone.side = o.ReversedSide()
	return clone
}

// WithPrice returns a copy of the offer with a new price/timestamp, the way
// Offer.refreshed() does after a fresh top-of-book fetch.
func (o Offer) WithPrice(price, timestamp float64) Offer {
	clone := o
	clone.price = price
	clone.timestamp = timestamp
	clone.base = NewMoney(RoundQuote(clone.quote.Amount.InexactFloat64(), price), o.pair.Base)
	return clone
}

// WithQuote returns a copy of the offer sized to a new quote amount,
// recomputing Base at the current price (used by Order.SetQuote through
// the offer it wraps).
func (o Offer) WithQuote(quoteAmount float64) Offer {
	clone := o
	clone.quote = NewMoney(quoteAmount, o.pair.Quote)
	clone.base = NewMoney(RoundQuote(quoteAmount, o.price), o.pair.Base)
	return clone
}

// WithBase returns a copy of the offer sized to a new base amount,
// recomputing Quote at the current price (used by Order.SetBase through
// the offer it wraps, the mirror of WithQuote).
func (o Offer) WithBase(baseAmount float64) Offer {
	clone := o
	clone.base = NewMoney(baseAmount, o.pair.Base)
	quoteAmount := 0.0
	if o.price != 0 {
		quoteAmount = baseAmount / o.price
	}
	clone.quote = NewMoney(quoteAmount, o.pair.Quote)
	return clone
}

// IsSimilar compares Pair/Side/VenueName, the default similarity fields
// from cryptotrader.models.offer.Offer.FIELDS_FOR_SIMILARITY.
func (o Offer) IsSimilar(other Offer) bool {
	return o.Pair() == other.Pair() && o.side == other.side && o.VenueName() == other.VenueName()
}

// InPairLimit checks that both the relevant venue balance and this offer's
// own quote amount clear the venue's pair limit, scaled by maxSpendPart.
// Ported from cryptotrader.models.offer.Offer.in_pair_limit.
func (o Offer) InPairLimit(maxSpendPart float64) bool {
	if o.venue == nil {
		return false
	}
	var fundsCurrency string
	var priceFactor float64
	if o.side == Ask {
		fundsCurrency = o.base.Currency
		priceFactor = o.price
	} else {
		fundsCurrency = o.quote.Currency
		priceFactor = 1.0
	}
	balance := o.venue.Balance(fundsCurrency)
	pairLimit := o.venue.PairLimit(o.Pair())

	balanceOK := balance.Mul(decimal.NewFromFloat(maxSpendPart)).
		GreaterThanOrEqual(pairLimit.Mul(decimal.NewFromFloat(priceFactor)))
	quoteOK := o.quote.Amount.Mul(decimal.NewFromFloat(maxSpendPart)).GreaterThanOrEqual(pairLimit)
	return balanceOK && quoteOK
}
