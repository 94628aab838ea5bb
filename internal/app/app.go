// Package app wires venues, the strategy and the store into the scheduled
// process the execute command runs. Ported from
// cryptotrader.commands.execute.App.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/web3guy0/cryptoarb/internal/model"
	"github.com/web3guy0/cryptoarb/internal/store"
	"github.com/web3guy0/cryptoarb/internal/strategy"
	"github.com/web3guy0/cryptoarb/internal/venue"
)

// App owns the scheduler loop: subscribe to venues, warm up by cancelling
// any orders left dangling in "placed" status by a previous crash, then
// tick the strategy on an interval until the context is cancelled.
type App struct {
	venues   *venue.Venues
	strategy *strategy.Arbitrage
	st       *store.Store
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger
}

// New builds an App.
func New(venues *venue.Venues, strat *strategy.Arbitrage, st *store.Store, interval, timeout time.Duration, log zerolog.Logger) *App {
	return &App{venues: venues, strategy: strat, st: st, interval: interval, timeout: timeout, log: log}
}

// Run starts every venue's subscription loop, cancels dangling placed
// orders, then ticks the strategy on App.interval until ctx is cancelled.
// Ported from App.run: context() (warm-up) followed by the scheduled
// loop.
func (a *App) Run(ctx context.Context) error {
	if err := a.venues.Subscribe(ctx); err != nil {
		return fmt.Errorf("app: subscribe venues: %w", err)
	}
	if err := a.venues.RefreshBalances(ctx); err != nil {
		return fmt.Errorf("app: initial balance refresh: %w", err)
	}
	if err := a.warmUp(ctx); err != nil {
		return fmt.Errorf("app: warm up: %w", err)
	}

	venue.Schedule(ctx, a.interval, a.log, func(tickCtx context.Context) {
		tickCtx, cancel := context.WithTimeout(tickCtx, a.timeout)
		defer cancel()
		if err := a.strategy.Schedule(tickCtx); err != nil {
			a.log.Error().Err(err).Msg("strategy tick failed")
		}
	})
	return nil
}

// warmUp scans the orders table for rows still marked "placed" -- orders
// that were submitted but never reached a terminal status before the
// process last exited -- and cancels each one on its venue. Ported from
// App._cancel_placed_orders.
func (a *App) warmUp(ctx context.Context) error {
	rows, err := a.st.OrdersByStatus(string(model.Placed))
	if err != nil {
		return fmt.Errorf("warm up: list placed orders: %w", err)
	}
	for _, row := range rows {
		v, err := a.venues.Get(row.VenueName)
		if err != nil {
			a.log.Warn().Str("venue", row.VenueName).Msg("warm up: dangling order references unconfigured venue, skipping")
			continue
		}
		if err := v.CancelByVenueID(ctx, row.VenueOrderID); err != nil {
			a.log.Warn().Err(err).Str("order", row.UUID).Msg("warm up: failed to cancel dangling placed order")
			continue
		}
		row.Status = string(model.Cancelled)
		if err := a.st.SaveOrder(row); err != nil {
			a.log.Warn().Err(err).Str("order", row.UUID).Msg("warm up: failed to persist cancellation")
		}
	}
	return nil
}

// Shutdown closes every venue connection and the store.
func (a *App) Shutdown() error {
	if err := a.venues.Close(); err != nil {
		a.log.Warn().Err(err).Msg("error closing venues")
	}
	return a.st.Close()
}
