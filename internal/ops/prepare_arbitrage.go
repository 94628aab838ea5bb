// Package ops implements the one-shot operator commands: prepare_arbitrage
// (rebalance every venue's quote holdings to a workable range before
// starting the scheduler) and the single-order place command.
//
// Ported from cryptotrader.cli's _prepare_arbitrage and place_order.
package ops

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptoarb/internal/model"
	"github.com/web3guy0/cryptoarb/internal/venue"
)

// PrepareArbitrageConfig bounds the balances PrepareArbitrage tries to
// leave every venue in, expressed in USD notional.
type PrepareArbitrageConfig struct {
	BottomMargin decimal.Decimal
	TopMargin    decimal.Decimal
}

// PrepareArbitrage rebalances every configured venue's holdings in two
// passes:
//
//  1. Sell down any currency whose USD value sits above TopMargin, turning
//     the excess back into USD.
//  2. Top up any pair the strategy trades whose quote-currency balance is
//     worth less than BottomMargin in USD, so the strategy always has
//     enough on hand to size a window.
//
// Each order is placed through Place, which polls it until it settles or
// times out; a rebalance failure is logged, not
// retried -- an operator running this command by hand is expected to
// follow up with the place command if something didn't go through.
func PrepareArbitrage(ctx context.Context, venues *venue.Venues, strategyPairs []string, cfg PrepareArbitrageConfig, log zerolog.Logger) error {
	log.Info().Str("balances", venues.BalancesString()).Msg("balances before prepare_arbitrage")

	for _, v := range venues.All() {
		if err := sellDownOverweightCurrencies(ctx, v, cfg, log); err != nil {
			return fmt.Errorf("prepare arbitrage: sell down %s: %w", v.Name(), err)
		}
		if err := topUpUnderweightPairs(ctx, v, strategyPairs, cfg, log); err != nil {
			return fmt.Errorf("prepare arbitrage: top up %s: %w", v.Name(), err)
		}
	}

	log.Info().Str("balances", venues.BalancesString()).Msg("balances after prepare_arbitrage")
	return nil
}

func sellDownOverweightCurrencies(ctx context.Context, v *venue.Venue, cfg PrepareArbitrageConfig, log zerolog.Logger) error {
	for _, pair := range v.DefaultPairs() {
		pn := model.ParsePairName(pair)
		if pn.Base != "USD" {
			continue
		}
		balance := v.Balance(pn.Quote)
		if balance.IsZero() {
			continue
		}
		ask, bid, err := v.FetchTop(ctx, pair)
		if err != nil {
			log.Warn().Err(err).Str("pair", pair).Msg("prepare arbitrage: fetch top failed, skipping")
			continue
		}
		notional := balance.Mul(decimal.NewFromFloat(ask.Price()))
		if notional.LessThanOrEqual(cfg.TopMargin) {
			continue
		}
		quoteToSell := balance.Sub(cfg.TopMargin.Div(decimal.NewFromFloat(bid.Price())))
		quoteLimit := v.PairLimit(pair)
		if quoteToSell.LessThanOrEqual(quoteLimit) {
			continue
		}
		if err := Place(ctx, v, model.Sell, pair, quoteToSell.InexactFloat64(), bid.Price()); err != nil {
			log.Warn().Err(err).Str("pair", pair).Msg("prepare arbitrage: sell down order failed")
		}
	}
	return nil
}

func topUpUnderweightPairs(ctx context.Context, v *venue.Venue, strategyPairs []string, cfg PrepareArbitrageConfig, log zerolog.Logger) error {
	for _, pair := range intersect(v.DefaultPairs(), strategyPairs) {
		pn := model.ParsePairName(pair)
		if pn.Base != "USD" {
			continue
		}
		ask, _, err := v.FetchTop(ctx, pair)
		if err != nil {
			log.Warn().Err(err).Str("pair", pair).Msg("prepare arbitrage: fetch top failed, skipping")
			continue
		}
		balance := v.Balance(pn.Quote)
		notional := balance.Mul(decimal.NewFromFloat(ask.Price()))
		if notional.GreaterThanOrEqual(cfg.BottomMargin) {
			continue
		}
		quoteDiff := cfg.BottomMargin.Div(decimal.NewFromFloat(ask.Price())).Sub(balance)
		quoteLimit := v.PairLimit(pair)
		quoteToBuy := decimal.Max(quoteDiff, quoteLimit)
		if err := Place(ctx, v, model.Buy, pair, quoteToBuy.InexactFloat64(), ask.Price()); err != nil {
			log.Warn().Err(err).Str("pair", pair).Msg("prepare arbitrage: top up order failed")
		}
	}
	return nil
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	var out []string
	for _, s := range a {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}
