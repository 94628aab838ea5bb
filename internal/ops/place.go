package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/web3guy0/cryptoarb/internal/model"
	"github.com/web3guy0/cryptoarb/internal/venue"
)

// minSum and maxSum stand in for cryptotrader.const.MIN_SUM/MAX_SUM: the
// safe placeholder prices used for market orders, whose venues ignore the
// price field but often still validate it's present and sane. A buy gets
// a price too low to reject for "too expensive", a sell gets one too high
// to reject for "too cheap".
const (
	minSum = 1e-4
	maxSum = 1e32
)

func safePrice(side model.OrderSide) float64 {
	if side == model.Buy {
		return minSum
	}
	return maxSum
}

// Place submits a single ad-hoc market order against a venue, refreshing
// balances before and after. Used by the `place` CLI subcommand for
// manual intervention outside the scheduled strategy. Ported from
// cryptotrader.cli.place_order.
func Place(ctx context.Context, v *venue.Venue, side model.OrderSide, pair string, quoteAmount, price float64) error {
	if err := v.RefreshBalances(ctx); err != nil {
		return fmt.Errorf("place: refresh balances: %w", err)
	}

	if price == 0 {
		price = safePrice(side)
	}
	offerSide := model.OrderSideToSide[side]
	offer, err := model.NewOffer(offerSide, pair, price, quoteAmount, v, 0)
	if err != nil {
		return fmt.Errorf("place: build offer: %w", err)
	}
	order := model.NewOrder(offer, model.Market)

	timings := venue.TradeTimings{
		SleepAfterPlaced: time.Second,
		FetchInterval:    2 * time.Second,
		Timeout:          10 * time.Second,
	}
	result, err := v.Trade(ctx, order, timings)
	if err != nil {
		return fmt.Errorf("place: trade: %w", err)
	}
	if result.Status() != model.Fulfilled && result.Status() != model.Placed {
		return fmt.Errorf("place: order ended in status %s", result.Status())
	}
	return nil
}
