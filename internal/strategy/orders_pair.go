package strategy

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/web3guy0/cryptoarb/internal/model"
	"github.com/web3guy0/cryptoarb/internal/notify"
	"github.com/web3guy0/cryptoarb/internal/venue"
)

// OrdersPair is the pair of orders (buy on the ask venue, sell on the bid
// venue) that opens or closes a window. Ported from
// cryptotrader.strategy.arbitrage.ArbitrageOrdersPair.
type OrdersPair struct {
	Buy  model.Order
	Sell model.Order
	ok   bool
}

// NewOrdersPair sizes a window into a pair of orders via GetMaxSpend:
// the buy (ask) leg is sized to the max base amount, the sell (bid) leg
// to the max quote amount. ok is false when either leg computed to zero,
// mirroring the Python source's silent no-op in that case.
func NewOrdersPair(window Window, maxSpendPart float64, orderType model.OrderType) (OrdersPair, error) {
	maxBase, maxQuote, err := GetMaxSpend(window.Ask, window.Bid, maxSpendPart)
	if err != nil {
		return OrdersPair{}, err
	}
	if maxBase.Amount.IsZero() || maxQuote.Amount.IsZero() {
		return OrdersPair{}, nil
	}

	buyOrder := model.NewOrder(window.Ask, orderType).SetBase(maxBase.Amount.InexactFloat64())
	sellOrder := model.NewOrder(window.Bid, orderType).SetQuote(maxQuote.Amount.InexactFloat64())

	return OrdersPair{Buy: buyOrder, Sell: sellOrder, ok: true}, nil
}

// Orders reports both legs and whether this pair has anything to place.
func (p OrdersPair) Orders() (model.Order, model.Order, bool) {
	return p.Buy, p.Sell, p.ok
}

// IsValid checks both legs against their venues' cached balances, and
// notifies the operator if either leg would be declined. Ported from
// ArbitrageOrdersPair.is_valid.
func (p OrdersPair) IsValid(notifier notify.Notifier, log zerolog.Logger) bool {
	if !p.ok {
		return false
	}
	buyVenue := p.Buy.Offer().Venue().(*venue.Venue)
	sellVenue := p.Sell.Offer().Venue().(*venue.Venue)

	buyErr := buyVenue.Validate(p.Buy)
	sellErr := sellVenue.Validate(p.Sell)

	if buyErr != nil {
		log.Debug().Err(buyErr).Str("order", p.Buy.UUID.String()).Msg("order declined by inner validation")
	}
	if sellErr != nil {
		log.Debug().Err(sellErr).Str("order", p.Sell.UUID.String()).Msg("order declined by inner validation")
	}

	if buyErr != nil || sellErr != nil {
		msg := fmt.Sprintf("Orders place error\nPair - %s\n%s\n%s", p.Buy.Pair(), p.Buy.ReportStr(), p.Sell.ReportStr())
		if buyErr != nil {
			msg = fmt.Sprintf("Not enough funds on %s\n", p.Buy.VenueName()) + msg
		}
		if sellErr != nil {
			msg = fmt.Sprintf("Not enough funds on %s\n", p.Sell.VenueName()) + msg
		}
		notifier.Error(msg)
		return false
	}
	return true
}

// Save persists both legs via the given callback.
func (p OrdersPair) Save(saveOrder func(model.Order) error) error {
	if err := saveOrder(p.Buy); err != nil {
		return fmt.Errorf("save buy order: %w", err)
	}
	if err := saveOrder(p.Sell); err != nil {
		return fmt.Errorf("save sell order: %w", err)
	}
	return nil
}
