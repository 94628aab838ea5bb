package ops_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/cryptoarb/internal/model"
	"github.com/web3guy0/cryptoarb/internal/ops"
	"github.com/web3guy0/cryptoarb/internal/venue"
	"github.com/web3guy0/cryptoarb/internal/venue/session"
)

type stubSession struct {
	balances session.Balances
	status   session.OrderStatus
}

func (s *stubSession) Name() string { return "kraken" }
func (s *stubSession) FetchBalances(ctx context.Context) (session.Balances, error) {
	return s.balances, nil
}
func (s *stubSession) FetchPair(ctx context.Context, pair string) (session.TickerPoint, error) {
	return session.TickerPoint{Pair: pair, AskPrice: 100, BidPrice: 99, Timestamp: time.Now()}, nil
}
func (s *stubSession) Place(ctx context.Context, req session.PlaceRequest) (session.PlacedOrder, error) {
	return session.PlacedOrder{VenueOrderID: "vo-1", Status: "open"}, nil
}
func (s *stubSession) Cancel(ctx context.Context, venueOrderID string) error { return nil }
func (s *stubSession) FetchStatus(ctx context.Context, venueOrderID string) (session.OrderStatus, error) {
	return s.status, nil
}
func (s *stubSession) Subscribe(ctx context.Context, pairs []string) (<-chan session.TickerPoint, error) {
	ch := make(chan session.TickerPoint)
	close(ch)
	return ch, nil
}
func (s *stubSession) Close() error { return nil }

func newStubVenue(status session.OrderStatus, balances session.Balances) *venue.Venue {
	return venue.New(venue.Config{
		Name:         "kraken",
		DefaultPairs: []string{"LTCUSD"},
	}, &stubSession{balances: balances, status: status}, zerolog.Nop())
}

func TestPlace_ZeroPriceFallsBackToSafePrice(t *testing.T) {
	v := newStubVenue(session.OrderStatus{Status: "filled"}, session.Balances{"USD": decimal.NewFromInt(1000)})
	// price=0 must not reach model.NewOffer, which rejects non-positive prices.
	err := ops.Place(context.Background(), v, model.Buy, "LTCUSD", 1, 0)
	assert.NoError(t, err)
}

func TestPlace_FailsWhenOrderEndsRejected(t *testing.T) {
	v := newStubVenue(session.OrderStatus{Status: "rejected"}, session.Balances{"USD": decimal.NewFromInt(1000)})
	err := ops.Place(context.Background(), v, model.Buy, "LTCUSD", 1, 50)
	assert.Error(t, err)
}

func TestPlace_SellUsesMaxSumFallback(t *testing.T) {
	v := newStubVenue(session.OrderStatus{Status: "filled"}, session.Balances{"LTC": decimal.NewFromInt(10)})
	err := ops.Place(context.Background(), v, model.Sell, "LTCUSD", 1, 0)
	require.NoError(t, err)
}
