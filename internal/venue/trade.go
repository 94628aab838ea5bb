package venue

import (
	"context"
	"fmt"
	"time"

	"github.com/web3guy0/cryptoarb/internal/model"
	"github.com/web3guy0/cryptoarb/internal/venue/session"
)

// Schedule re-exports session.Schedule so callers outside this package
// never need to import venue/session directly just to drive the tick
// loop.
var Schedule = session.Schedule

// TradeTimings bounds how long Trade waits for an order to settle: a fixed
// pause after placement before the first poll, a poll cadence, and an
// overall deadline after which the order is left in whatever status it
// last reported.
//
// Ported from the trade_timings dict cryptotrader.strategy.arbitrage.Arbitrage
// passes into every Order.trade() call.
type TradeTimings struct {
	SleepAfterPlaced time.Duration
	FetchInterval    time.Duration
	Timeout          time.Duration
}

// Trade places an order and polls it to a terminal status (or until
// Timeout elapses), refreshing the venue's cached balances afterward.
// Ported from cryptotrader.models.order.Order.trade.
func (v *Venue) Trade(ctx context.Context, order model.Order, timings TradeTimings) (model.Order, error) {
	placed, err := v.Place(ctx, order)
	if err != nil {
		return placed, err
	}

	select {
	case <-ctx.Done():
		return placed, ctx.Err()
	case <-time.After(timings.SleepAfterPlaced):
	}

	deadline := time.Now().Add(timings.Timeout)
	current := placed
	for time.Now().Before(deadline) {
		current, err = v.FetchStatus(ctx, current)
		if err != nil {
			return current, fmt.Errorf("venue %s: poll order %s: %w", v.cfg.Name, current.UUID, err)
		}
		if current.IsTerminal() {
			break
		}
		select {
		case <-ctx.Done():
			return current, ctx.Err()
		case <-time.After(timings.FetchInterval):
		}
	}

	if err := v.RefreshBalances(ctx); err != nil {
		v.log.Warn().Err(err).Msg("balance refresh after trade failed")
	}

	return current, nil
}
