// Package session defines the contract every venue connection implements
// (five venue operations plus a ticker subscription), plus the shared
// transport helpers (rate limiting,
// debouncing, HTTP and websocket transports) that the concrete venue
// adapters in internal/venue/binance and internal/venue/kraken build on.
//
// Ported from cryptotrader.exchange.base.session.Session and
// cryptotrader.exchange.base.transport.
package session

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Balances is the snapshot FetchBalances returns: currency -> available
// amount, as reported by the venue's account endpoint.
type Balances map[string]decimal.Decimal

// TickerPoint is a single top-of-book quote for one pair, as returned by
// FetchPair or pushed over a websocket subscription.
type TickerPoint struct {
	Pair      string
	AskPrice  float64
	AskVolume float64
	BidPrice  float64
	BidVolume float64
	Timestamp time.Time
}

// PlacedOrder is what Place returns on success: the venue's own order
// identifier plus whatever status the venue reports at placement time
// (some venues confirm fills synchronously, most don't).
type PlacedOrder struct {
	VenueOrderID string
	Status       string
}

// OrderStatus is what FetchStatus returns for a previously placed order.
type OrderStatus struct {
	VenueOrderID string
	Status       string
	FilledQuote  decimal.Decimal
}

// PlaceRequest is the normalized instruction Place receives; venue adapters
// translate Pair/Side/Price/Quote into their own wire format.
type PlaceRequest struct {
	Pair      string
	Side      string // "buy" or "sell"
	Type      string // "market" or "limit"
	Price     float64
	Quote     decimal.Decimal
	ClientRef string
}

// Session is the contract a venue connection must satisfy. Every method
// that talks to the venue takes a context so the caller can bound how long
// it waits on a venue
// that's gone quiet — the Go equivalent of the Python source's
// FOREVER_TASK_TIMEOUT on every awaited call.
type Session interface {
	// Name identifies the venue this session talks to, e.g. "binance".
	Name() string

	// FetchBalances retrieves the account's current balances.
	FetchBalances(ctx context.Context) (Balances, error)

	// FetchPair retrieves a fresh top-of-book quote for one pair.
	FetchPair(ctx context.Context, pair string) (TickerPoint, error)

	// Place submits a new order.
	Place(ctx context.Context, req PlaceRequest) (PlacedOrder, error)

	// Cancel requests cancellation of a previously placed order.
	Cancel(ctx context.Context, venueOrderID string) error

	// FetchStatus polls the current state of a previously placed order.
	FetchStatus(ctx context.Context, venueOrderID string) (OrderStatus, error)

	// Subscribe starts streaming ticker updates for the given pairs,
	// pushing each update onto the returned channel until ctx is
	// cancelled. Sessions that only support REST polling may implement
	// this by polling FetchPair on a ticker internally.
	Subscribe(ctx context.Context, pairs []string) (<-chan TickerPoint, error)

	// Close releases any held connections (websocket, HTTP client pool).
	Close() error
}
