package strategy_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/cryptoarb/internal/model"
	"github.com/web3guy0/cryptoarb/internal/notify"
	"github.com/web3guy0/cryptoarb/internal/strategy"
	"github.com/web3guy0/cryptoarb/internal/venue"
	"github.com/web3guy0/cryptoarb/internal/venue/session"
)

func TestNewOrdersPair_SizesBothLegs(t *testing.T) {
	askVenue := newVenue("kraken", 0, map[string]decimal.Decimal{"USD": decimal.NewFromInt(1000)})
	bidVenue := newVenue("binance", 0, map[string]decimal.Decimal{"LTC": decimal.NewFromInt(3)})

	ask, err := model.NewOffer(model.Ask, "LTCUSD", 100, 100, askVenue, 0)
	require.NoError(t, err)
	bid, err := model.NewOffer(model.Bid, "LTCUSD", 100, 100, bidVenue, 0)
	require.NoError(t, err)
	w, err := strategy.NewWindow(ask, bid, 1.0, 1.0)
	require.NoError(t, err)

	pair, err := strategy.NewOrdersPair(w, 1.0, model.Limit)
	require.NoError(t, err)
	buy, sell, ok := pair.Orders()
	require.True(t, ok)
	assert.Equal(t, model.Buy, buy.OrderSide())
	assert.Equal(t, model.Sell, sell.OrderSide())
	assert.InDelta(t, 300, buy.Base().Amount.InexactFloat64(), 1e-6)
	assert.InDelta(t, 3, sell.Quote().Amount.InexactFloat64(), 1e-6)
}

func TestNewOrdersPair_NotOkWhenSizeIsZero(t *testing.T) {
	askVenue := newVenue("kraken", 0, map[string]decimal.Decimal{"USD": decimal.Zero})
	bidVenue := newVenue("binance", 0, map[string]decimal.Decimal{"LTC": decimal.Zero})

	ask, err := model.NewOffer(model.Ask, "LTCUSD", 100, 100, askVenue, 0)
	require.NoError(t, err)
	bid, err := model.NewOffer(model.Bid, "LTCUSD", 100, 100, bidVenue, 0)
	require.NoError(t, err)
	w, err := strategy.NewWindow(ask, bid, 1.0, 1.0)
	require.NoError(t, err)

	pair, err := strategy.NewOrdersPair(w, 1.0, model.Limit)
	require.NoError(t, err)
	_, _, ok := pair.Orders()
	assert.False(t, ok)
}

// realVenueSession is a bare-bones session.Session for building a real
// *venue.Venue, which OrdersPair.IsValid requires via type assertion.
type realVenueSession struct {
	name     string
	balances session.Balances
	// ask/bid set the quoted top-of-book; zero means 100.
	ask, bid float64
}

func (s *realVenueSession) Name() string { return s.name }
func (s *realVenueSession) FetchBalances(ctx context.Context) (session.Balances, error) {
	return s.balances, nil
}
func (s *realVenueSession) FetchPair(ctx context.Context, pair string) (session.TickerPoint, error) {
	ask, bid := s.ask, s.bid
	if ask == 0 {
		ask = 100
	}
	if bid == 0 {
		bid = 100
	}
	return session.TickerPoint{Pair: pair, AskPrice: ask, AskVolume: 5, BidPrice: bid, BidVolume: 5, Timestamp: time.Now()}, nil
}
func (s *realVenueSession) Place(ctx context.Context, req session.PlaceRequest) (session.PlacedOrder, error) {
	return session.PlacedOrder{VenueOrderID: "vo-1"}, nil
}
func (s *realVenueSession) Cancel(ctx context.Context, venueOrderID string) error { return nil }
func (s *realVenueSession) FetchStatus(ctx context.Context, venueOrderID string) (session.OrderStatus, error) {
	return session.OrderStatus{}, nil
}
func (s *realVenueSession) Subscribe(ctx context.Context, pairs []string) (<-chan session.TickerPoint, error) {
	ch := make(chan session.TickerPoint)
	close(ch)
	return ch, nil
}
func (s *realVenueSession) Close() error { return nil }

func newRealVenue(t *testing.T, name string, balances session.Balances) *venue.Venue {
	t.Helper()
	v := venue.New(venue.Config{
		Name:         name,
		DefaultPairs: []string{"LTCUSD"},
	}, &realVenueSession{name: name, balances: balances}, zerolog.Nop())
	require.NoError(t, v.RefreshBalances(context.Background()))
	return v
}

func TestOrdersPair_IsValid_TrueWithEnoughFunds(t *testing.T) {
	askVenue := newRealVenue(t, "kraken", session.Balances{"USD": decimal.NewFromInt(10000)})
	bidVenue := newRealVenue(t, "binance", session.Balances{"LTC": decimal.NewFromInt(10)})

	ask, err := model.NewOffer(model.Ask, "LTCUSD", 100, 5, askVenue, 0)
	require.NoError(t, err)
	bid, err := model.NewOffer(model.Bid, "LTCUSD", 100, 5, bidVenue, 0)
	require.NoError(t, err)
	w, err := strategy.NewWindow(ask, bid, 1.0, 1.0)
	require.NoError(t, err)

	pair, err := strategy.NewOrdersPair(w, 1.0, model.Limit)
	require.NoError(t, err)

	assert.True(t, pair.IsValid(notify.Noop{}, zerolog.Nop()))
}

func TestOrdersPair_IsValid_FalseWhenUnderfunded(t *testing.T) {
	askVenue := newRealVenue(t, "kraken", session.Balances{"USD": decimal.Zero})
	bidVenue := newRealVenue(t, "binance", session.Balances{"LTC": decimal.Zero})

	ask, err := model.NewOffer(model.Ask, "LTCUSD", 100, 5, askVenue, 0)
	require.NoError(t, err)
	bid, err := model.NewOffer(model.Bid, "LTCUSD", 100, 5, bidVenue, 0)
	require.NoError(t, err)
	w, err := strategy.NewWindow(ask, bid, 1.0, 1.0)
	require.NoError(t, err)

	pair, err := strategy.NewOrdersPair(w, 1.0, model.Limit)
	require.NoError(t, err)
	_, _, ok := pair.Orders()
	require.False(t, ok, "zero balances size to zero, pair is a no-op")
	assert.False(t, pair.IsValid(notify.Noop{}, zerolog.Nop()))
}
