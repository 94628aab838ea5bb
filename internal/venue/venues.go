package venue

import (
	"context"
	"fmt"

	"github.com/web3guy0/cryptoarb/internal/model"
)

// Venues is the keyed collection of every configured venue, and the source
// of the cross-venue offer map the arbitrage strategy searches. Ported
// from cryptotrader.exchange.base.exchanges.Exchanges.
type Venues struct {
	byName map[string]*Venue
	order  []string
}

// NewVenues builds a Venues collection from a set of already-constructed
// venues, preserving the order they're given in (used for deterministic
// iteration in tests and reports).
func NewVenues(venues ...*Venue) *Venues {
	vs := &Venues{byName: make(map[string]*Venue, len(venues))}
	for _, v := range venues {
		vs.byName[v.Name()] = v
		vs.order = append(vs.order, v.Name())
	}
	return vs
}

// Get looks up a venue by name.
func (vs *Venues) Get(name string) (*Venue, error) {
	v, ok := vs.byName[name]
	if !ok {
		return nil, fmt.Errorf("no such venue: %s", name)
	}
	return v, nil
}

// All returns every venue, in construction order.
func (vs *Venues) All() []*Venue {
	out := make([]*Venue, 0, len(vs.order))
	for _, name := range vs.order {
		out = append(out, vs.byName[name])
	}
	return out
}

// RefreshBalances refreshes every venue's balances in turn.
func (vs *Venues) RefreshBalances(ctx context.Context) error {
	for _, v := range vs.All() {
		if err := v.RefreshBalances(ctx); err != nil {
			return err
		}
	}
	return nil
}

// BalancesString renders every venue's balances for operator reporting.
// Ported from Exchanges.balances_str.
func (vs *Venues) BalancesString() string {
	out := ""
	for _, v := range vs.All() {
		out += v.BalancesString()
	}
	return out
}

// Subscribe starts every venue's streaming loop.
func (vs *Venues) Subscribe(ctx context.Context) error {
	for _, v := range vs.All() {
		if err := v.Subscribe(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every venue's underlying session.
func (vs *Venues) Close() error {
	var firstErr error
	for _, v := range vs.All() {
		if err := v.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PairOfferMap reads the cached top-of-book (ask, bid) pair for the given
// pair from every venue that trades it, keyed by venue name. Ported from
// Exchanges.get_pair_offer_map, the input the arbitrage strategy's window
// search scans across venues; like the source, this reads each exchange's
// last cached ticker rather than fetching fresh on every tick, so a venue
// with no usable cached ticker is simply left out of the map instead of
// aborting the whole pair's window search. Stale tickers stay in the map;
// the caller's freshness filter drops them.
func (vs *Venues) PairOfferMap(ctx context.Context, pair string) (map[string]model.Offer, map[string]model.Offer, error) {
	asks := make(map[string]model.Offer)
	bids := make(map[string]model.Offer)
	for _, v := range vs.All() {
		if !containsPair(v.DefaultPairs(), pair) {
			continue
		}
		ask, bid, err := v.CachedTop(pair)
		if err != nil {
			continue
		}
		asks[v.Name()] = ask
		bids[v.Name()] = bid
	}
	return asks, bids, nil
}

func containsPair(pairs []string, pair string) bool {
	for _, p := range pairs {
		if p == pair {
			return true
		}
	}
	return false
}
