package venue_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/cryptoarb/internal/model"
	"github.com/web3guy0/cryptoarb/internal/venue"
	"github.com/web3guy0/cryptoarb/internal/venue/session"
)

// fakeSession is a minimal in-memory session.Session for exercising Venue
// without any network traffic.
type fakeSession struct {
	name     string
	balances session.Balances
	placeErr error
	status   session.OrderStatus
}

func (f *fakeSession) Name() string { return f.name }
func (f *fakeSession) FetchBalances(ctx context.Context) (session.Balances, error) {
	return f.balances, nil
}
func (f *fakeSession) FetchPair(ctx context.Context, pair string) (session.TickerPoint, error) {
	return session.TickerPoint{Pair: pair, AskPrice: 100, AskVolume: 5, BidPrice: 99, BidVolume: 5, Timestamp: time.Now()}, nil
}
func (f *fakeSession) Place(ctx context.Context, req session.PlaceRequest) (session.PlacedOrder, error) {
	if f.placeErr != nil {
		return session.PlacedOrder{}, f.placeErr
	}
	return session.PlacedOrder{VenueOrderID: "vo-1", Status: "open"}, nil
}
func (f *fakeSession) Cancel(ctx context.Context, venueOrderID string) error { return nil }
func (f *fakeSession) FetchStatus(ctx context.Context, venueOrderID string) (session.OrderStatus, error) {
	return f.status, nil
}
func (f *fakeSession) Subscribe(ctx context.Context, pairs []string) (<-chan session.TickerPoint, error) {
	ch := make(chan session.TickerPoint)
	close(ch)
	return ch, nil
}
func (f *fakeSession) Close() error { return nil }

func newTestVenue(t *testing.T, balances session.Balances) (*venue.Venue, *fakeSession) {
	t.Helper()
	sess := &fakeSession{name: "kraken", balances: balances}
	v := venue.New(venue.Config{
		Name:         "kraken",
		Fee:          0.001,
		DefaultPairs: []string{"LTCUSD"},
		PairLimits:   map[string]decimal.Decimal{"LTCUSD": decimal.NewFromInt(10)},
	}, sess, zerolog.Nop())
	return v, sess
}

func TestVenue_RefreshBalances_PopulatesCache(t *testing.T) {
	v, _ := newTestVenue(t, session.Balances{"USD": decimal.NewFromInt(500), "LTC": decimal.NewFromInt(5)})
	err := v.RefreshBalances(context.Background())
	require.NoError(t, err)
	assert.True(t, v.Balance("USD").Equal(decimal.NewFromInt(500)))
	assert.True(t, v.Balance("LTC").Equal(decimal.NewFromInt(5)))
	assert.True(t, v.Balance("BTC").IsZero(), "unknown currency defaults to zero")
}

func TestVenue_FetchTop_BuildsAskAndBidOffers(t *testing.T) {
	v, _ := newTestVenue(t, session.Balances{})
	ask, bid, err := v.FetchTop(context.Background(), "LTCUSD")
	require.NoError(t, err)
	assert.Equal(t, model.Ask, ask.Side())
	assert.Equal(t, model.Bid, bid.Side())
	assert.InDelta(t, 100, ask.Price(), 1e-9)
	assert.InDelta(t, 99, bid.Price(), 1e-9)
}

func TestVenue_CachedTop_ErrorsBeforeAnythingCached(t *testing.T) {
	v, _ := newTestVenue(t, session.Balances{})
	_, _, err := v.CachedTop("LTCUSD")
	require.Error(t, err)
}

func TestVenue_CachedTop_ReadsLastFetchWithoutRefetching(t *testing.T) {
	v, _ := newTestVenue(t, session.Balances{})
	_, _, err := v.FetchTop(context.Background(), "LTCUSD")
	require.NoError(t, err)

	ask, bid, err := v.CachedTop("LTCUSD")
	require.NoError(t, err)
	assert.Equal(t, model.Ask, ask.Side())
	assert.Equal(t, model.Bid, bid.Side())
	assert.InDelta(t, 100, ask.Price(), 1e-9)
	assert.InDelta(t, 99, bid.Price(), 1e-9)
}

func TestVenue_Validate_AskNeedsBaseCurrency(t *testing.T) {
	v, _ := newTestVenue(t, session.Balances{"USD": decimal.NewFromInt(50)})
	require.NoError(t, v.RefreshBalances(context.Background()))

	offer, err := model.NewOffer(model.Ask, "LTCUSD", 100, 1, v, 0) // needs 100 USD
	require.NoError(t, err)
	order := model.NewOrder(offer, model.Limit)

	err = v.Validate(order)
	assert.Error(t, err, "only 50 USD available, order needs 100")
}

func TestVenue_Validate_BidNeedsQuoteCurrency(t *testing.T) {
	v, _ := newTestVenue(t, session.Balances{"LTC": decimal.NewFromInt(1)})
	require.NoError(t, v.RefreshBalances(context.Background()))

	offer, err := model.NewOffer(model.Bid, "LTCUSD", 100, 2, v, 0) // needs 2 LTC, have 1
	require.NoError(t, err)
	order := model.NewOrder(offer, model.Limit)

	err = v.Validate(order)
	assert.Error(t, err)
}

func TestVenue_Validate_PassesWithEnoughFunds(t *testing.T) {
	v, _ := newTestVenue(t, session.Balances{"USD": decimal.NewFromInt(1000)})
	require.NoError(t, v.RefreshBalances(context.Background()))

	offer, err := model.NewOffer(model.Ask, "LTCUSD", 100, 1, v, 0) // needs 100 USD
	require.NoError(t, err)
	order := model.NewOrder(offer, model.Limit)

	assert.NoError(t, v.Validate(order))
}

func TestVenue_Place_RejectsOnValidationFailure(t *testing.T) {
	v, _ := newTestVenue(t, session.Balances{"USD": decimal.Zero})
	require.NoError(t, v.RefreshBalances(context.Background()))

	offer, err := model.NewOffer(model.Ask, "LTCUSD", 100, 1, v, 0)
	require.NoError(t, err)
	order := model.NewOrder(offer, model.Limit)

	result, err := v.Place(context.Background(), order)
	assert.Error(t, err)
	assert.Equal(t, model.Rejected, result.Status())
}

func TestVenue_Place_TransitionsToPlacedOnSuccess(t *testing.T) {
	v, _ := newTestVenue(t, session.Balances{"USD": decimal.NewFromInt(1000)})
	require.NoError(t, v.RefreshBalances(context.Background()))

	offer, err := model.NewOffer(model.Ask, "LTCUSD", 100, 1, v, 0)
	require.NoError(t, err)
	order := model.NewOrder(offer, model.Limit)

	result, err := v.Place(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, model.Placed, result.Status())
	assert.Equal(t, "vo-1", result.VenueID())
}

func TestVenue_IsPairExpired_TrueWhenNeverFetched(t *testing.T) {
	v, _ := newTestVenue(t, session.Balances{})
	assert.True(t, v.IsPairExpired("LTCUSD"))
	_, _, err := v.FetchTop(context.Background(), "LTCUSD")
	require.NoError(t, err)
	assert.False(t, v.IsPairExpired("LTCUSD"))
}
