package venue_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/cryptoarb/internal/venue"
	"github.com/web3guy0/cryptoarb/internal/venue/session"
)

func newNamedTestVenue(t *testing.T, name string, pairs ...string) *venue.Venue {
	t.Helper()
	sess := &fakeSession{name: name, balances: session.Balances{}}
	return venue.New(venue.Config{
		Name:         name,
		Fee:          0.001,
		DefaultPairs: pairs,
		PairLimits:   map[string]decimal.Decimal{},
	}, sess, zerolog.Nop())
}

func TestVenues_PairOfferMap_SkipsVenuesWithNoCachedTicker(t *testing.T) {
	warm := newNamedTestVenue(t, "kraken", "LTCUSD")
	_, _, err := warm.FetchTop(context.Background(), "LTCUSD")
	require.NoError(t, err)

	cold := newNamedTestVenue(t, "binance", "LTCUSD")

	vs := venue.NewVenues(warm, cold)
	asks, bids, err := vs.PairOfferMap(context.Background(), "LTCUSD")
	require.NoError(t, err)

	assert.Contains(t, asks, "kraken")
	assert.Contains(t, bids, "kraken")
	assert.NotContains(t, asks, "binance", "venue with no cached ticker yet is skipped, not an aborting error")
	assert.NotContains(t, bids, "binance")
}

func TestVenues_PairOfferMap_IgnoresVenuesNotTradingThePair(t *testing.T) {
	v := newNamedTestVenue(t, "kraken", "BTCUSD")
	vs := venue.NewVenues(v)

	asks, bids, err := vs.PairOfferMap(context.Background(), "LTCUSD")
	require.NoError(t, err)
	assert.Empty(t, asks)
	assert.Empty(t, bids)
}
