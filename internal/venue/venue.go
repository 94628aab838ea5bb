// Package venue wraps a session.Session with the cache, subscription loop
// and balance bookkeeping every venue needs regardless of which exchange
// it talks to. Ported from cryptotrader.exchange.base.exchange.Exchange.
package venue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptoarb/internal/model"
	"github.com/web3guy0/cryptoarb/internal/venue/session"
)

// priceLongChangeTimeout bounds how stale a cached ticker may be before
// IsPairExpired reports it unusable. Ported from
// cryptotrader.const.PRICE_LONG_CHANGE_TIMEOUT.
const priceLongChangeTimeout = 60 * time.Second

// Config describes one venue's static configuration: its fee, the pairs it
// trades by default, and a per-pair spend limit (expressed in the pair's
// quote currency) the strategy must respect.
type Config struct {
	Name         string
	Fee          float64
	DefaultPairs []string
	PairLimits   map[string]decimal.Decimal
	// GlobalLimit caps total spend across every pair on this venue. Zero
	// means unlimited. Ported from Exchange.get_limit.
	GlobalLimit decimal.Decimal
	RateLimit   session.RateLimit
	Debounce    time.Duration
}

// Venue mediates every interaction between a strategy and one exchange
// connection: it caches balances and top-of-book, debounces balance
// refreshes, and validates orders against cached state before they ever
// reach the wire.
type Venue struct {
	cfg     Config
	sess    session.Session
	log     zerolog.Logger
	debounce *session.Debouncer

	mu       sync.RWMutex
	balances session.Balances
	tickers  map[string]session.TickerPoint
}

// New wraps a session.Session in venue bookkeeping.
func New(cfg Config, sess session.Session, log zerolog.Logger) *Venue {
	return &Venue{
		cfg:      cfg,
		sess:     sess,
		log:      log.With().Str("venue", cfg.Name).Logger(),
		debounce: session.NewDebouncer(cfg.Debounce),
		balances: make(session.Balances),
		tickers:  make(map[string]session.TickerPoint),
	}
}

func (v *Venue) Name() string           { return v.cfg.Name }
func (v *Venue) Fee() float64           { return v.cfg.Fee }
func (v *Venue) DefaultPairs() []string { return v.cfg.DefaultPairs }
func (v *Venue) Limit() decimal.Decimal { return v.cfg.GlobalLimit }

// Balance returns the cached available balance for a currency, or zero if
// unknown. Implements model.VenueRef.
func (v *Venue) Balance(currency string) decimal.Decimal {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if b, ok := v.balances[currency]; ok {
		return b
	}
	return decimal.Zero
}

// PairLimit returns the configured per-pair spend limit, or zero (meaning
// unlimited) if none is configured. Implements model.VenueRef.
func (v *Venue) PairLimit(pair string) decimal.Decimal {
	if lim, ok := v.cfg.PairLimits[pair]; ok {
		return lim
	}
	return decimal.Zero
}

// RefreshBalances fetches balances from the venue, subject to the
// debounce window, and updates the cache. Ported from
// Exchange.fetch_balances, which wrapped the same call in a Debounced.
func (v *Venue) RefreshBalances(ctx context.Context) error {
	if !v.debounce.Allow() {
		return nil
	}
	balances, err := v.sess.FetchBalances(ctx)
	if err != nil {
		return fmt.Errorf("venue %s: fetch balances: %w", v.cfg.Name, err)
	}
	v.mu.Lock()
	prev := v.balances
	v.balances = balances
	v.mu.Unlock()
	v.reportBalanceChanges(prev, balances)
	return nil
}

// reportBalanceChanges logs currencies whose balance moved by more than
// the floor-precision epsilon, the way Exchange.calculate_balances_difference
// / report_balances did.
func (v *Venue) reportBalanceChanges(prev, next session.Balances) {
	for currency, amount := range next {
		old, ok := prev[currency]
		if !ok {
			continue
		}
		oldF, _ := old.Float64()
		newF, _ := amount.Float64()
		if model.FloorWithPrecision(oldF, model.MoneyPrecision) != model.FloorWithPrecision(newF, model.MoneyPrecision) {
			v.log.Info().
				Str("currency", currency).
				Float64("from", oldF).
				Float64("to", newF).
				Msg("balance changed")
		}
	}
}

// BalancesString renders the cached balances for operator reporting.
// Ported from Exchange.balances_str.
func (v *Venue) BalancesString() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := fmt.Sprintf("%s balances:\n", v.cfg.Name)
	for currency, amount := range v.balances {
		out += fmt.Sprintf("- %s: %s\n", currency, amount.StringFixed(int32(model.MoneyPrecision)))
	}
	return out
}

// FetchTop fetches a fresh top-of-book offer pair (ask, bid) for a pair,
// updating the ticker cache.
func (v *Venue) FetchTop(ctx context.Context, pair string) (ask, bid model.Offer, err error) {
	point, err := v.sess.FetchPair(ctx, pair)
	if err != nil {
		return model.Offer{}, model.Offer{}, fmt.Errorf("venue %s: fetch pair %s: %w", v.cfg.Name, pair, err)
	}
	v.mu.Lock()
	v.tickers[pair] = point
	v.mu.Unlock()

	ts := float64(point.Timestamp.Unix())
	ask, err = model.NewOffer(model.Ask, pair, point.AskPrice, point.AskVolume, v, ts)
	if err != nil {
		return model.Offer{}, model.Offer{}, err
	}
	bid, err = model.NewOffer(model.Bid, pair, point.BidPrice, point.BidVolume, v, ts)
	if err != nil {
		return model.Offer{}, model.Offer{}, err
	}
	return ask, bid, nil
}

// CachedTop returns the cached top-of-book (ask, bid) pair for a pair
// without touching the network, for the window search's per-tick scan
// (Exchanges.get_pair_offer_map reads off each exchange's last streamed
// ticker, never polls fresh on every call). Errors if nothing has been
// cached for pair yet.
func (v *Venue) CachedTop(pair string) (ask, bid model.Offer, err error) {
	v.mu.RLock()
	point, ok := v.tickers[pair]
	v.mu.RUnlock()
	if !ok {
		return model.Offer{}, model.Offer{}, fmt.Errorf("venue %s: no cached ticker for %s", v.cfg.Name, pair)
	}

	ts := float64(point.Timestamp.Unix())
	ask, err = model.NewOffer(model.Ask, pair, point.AskPrice, point.AskVolume, v, ts)
	if err != nil {
		return model.Offer{}, model.Offer{}, err
	}
	bid, err = model.NewOffer(model.Bid, pair, point.BidPrice, point.BidVolume, v, ts)
	if err != nil {
		return model.Offer{}, model.Offer{}, err
	}
	return ask, bid, nil
}

// IsPairExpired reports whether the cached ticker for pair is older than
// priceLongChangeTimeout, or missing entirely. Ported from
// Exchange.is_pair_expired.
func (v *Venue) IsPairExpired(pair string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	point, ok := v.tickers[pair]
	if !ok {
		return true
	}
	return time.Since(point.Timestamp) > priceLongChangeTimeout
}

// Subscribe starts the venue's streaming ticker loop, updating the ticker
// cache as updates arrive, until ctx is cancelled.
func (v *Venue) Subscribe(ctx context.Context) error {
	ch, err := v.sess.Subscribe(ctx, v.cfg.DefaultPairs)
	if err != nil {
		return fmt.Errorf("venue %s: subscribe: %w", v.cfg.Name, err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case point, ok := <-ch:
				if !ok {
					return
				}
				v.mu.Lock()
				v.tickers[point.Pair] = point
				v.mu.Unlock()
			}
		}
	}()
	return nil
}

// Validate checks an order can be placed against currently cached
// balances before it's sent to the venue: the funding currency must have
// enough balance to cover the order's cost. Ported from
// Exchange.validate, including the source's NOT_ENOUGH_FUNDS log fix: the
// logged shortfall names the amount needed on the funding side, the base
// amount for an ask and the quote amount for a bid.
func (v *Venue) Validate(order model.Order) error {
	offer := order.Offer()
	var fundsCurrency string
	var needed decimal.Decimal
	if offer.Side() == model.Ask {
		fundsCurrency = offer.Base().Currency
		needed = offer.Base().Amount
	} else {
		fundsCurrency = offer.Quote().Currency
		needed = offer.Quote().Amount
	}

	have := v.Balance(fundsCurrency)
	if have.LessThan(needed) {
		v.log.Warn().
			Str("order", order.UUID.String()).
			Str("currency", fundsCurrency).
			Str("needed", needed.StringFixed(int32(model.MoneyPrecision))).
			Str("have", have.StringFixed(int32(model.MoneyPrecision))).
			Msg("NOT_ENOUGH_FUNDS")
		return fmt.Errorf("venue %s: not enough funds: need %s %s, have %s", v.cfg.Name, needed, fundsCurrency, have)
	}
	return nil
}

// Place validates then submits an order, returning it transitioned to
// Placed (with the venue's order id attached) or Rejected.
func (v *Venue) Place(ctx context.Context, order model.Order) (model.Order, error) {
	if err := v.Validate(order); err != nil {
		return order.WithStatus(model.Rejected, ""), err
	}
	offer := order.Offer()
	placed, err := v.sess.Place(ctx, session.PlaceRequest{
		Pair:      order.Pair(),
		Side:      string(order.OrderSide()),
		Type:      string(order.Type()),
		Price:     order.Price(),
		Quote:     offer.Quote().Amount,
		ClientRef: order.UUID.String(),
	})
	if err != nil {
		v.log.Error().Err(err).Str("order", order.UUID.String()).Msg("place order failed")
		return order.WithStatus(model.Rejected, ""), fmt.Errorf("venue %s: place: %w", v.cfg.Name, err)
	}
	v.log.Info().
		Str("order", order.UUID.String()).
		Str("venue_order_id", placed.VenueOrderID).
		Msg("order placed")
	return order.WithStatus(model.Placed, placed.VenueOrderID), nil
}

// Cancel requests cancellation of a placed order.
func (v *Venue) Cancel(ctx context.Context, order model.Order) (model.Order, error) {
	if err := v.sess.Cancel(ctx, order.VenueID()); err != nil {
		return order, fmt.Errorf("venue %s: cancel %s: %w", v.cfg.Name, order.VenueID(), err)
	}
	return order.WithStatus(model.Cancelled, order.VenueID()).MarkExecuted(), nil
}

// CancelByVenueID requests cancellation of an order the caller only has a
// venue order id for (no live model.Order in hand), used by the warm-up
// pass to clear orders left dangling by a previous crash.
func (v *Venue) CancelByVenueID(ctx context.Context, venueOrderID string) error {
	if err := v.sess.Cancel(ctx, venueOrderID); err != nil {
		return fmt.Errorf("venue %s: cancel %s: %w", v.cfg.Name, venueOrderID, err)
	}
	return nil
}

// FetchStatus polls the venue for a placed order's current status.
func (v *Venue) FetchStatus(ctx context.Context, order model.Order) (model.Order, error) {
	st, err := v.sess.FetchStatus(ctx, order.VenueID())
	if err != nil {
		return order, fmt.Errorf("venue %s: fetch status %s: %w", v.cfg.Name, order.VenueID(), err)
	}
	status := normalizeStatus(st.Status)
	result := order.WithStatus(status, order.VenueID())
	if status == model.Fulfilled || status == model.Cancelled {
		result = result.MarkExecuted()
	}
	return result, nil
}

func normalizeStatus(venueStatus string) model.OrderStatus {
	switch venueStatus {
	case "filled", "fulfilled", "closed":
		return model.Fulfilled
	case "canceled", "cancelled":
		return model.Cancelled
	case "rejected", "expired":
		return model.Rejected
	default:
		return model.Placed
	}
}

// Close releases the underlying session's resources.
func (v *Venue) Close() error {
	return v.sess.Close()
}
