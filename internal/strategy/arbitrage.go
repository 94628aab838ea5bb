package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/web3guy0/cryptoarb/internal/model"
	"github.com/web3guy0/cryptoarb/internal/notify"
	"github.com/web3guy0/cryptoarb/internal/queue"
	"github.com/web3guy0/cryptoarb/internal/store"
	"github.com/web3guy0/cryptoarb/internal/venue"
)

// Config tunes one Arbitrage strategy instance. Field names mirror the
// keyword arguments cryptotrader.strategy.arbitrage.Arbitrage.__init__
// takes.
type Config struct {
	Pairs                []string
	WindowDirectWidth    float64
	WindowReversedWidth  float64
	MaxSpendPart         float64
	Interval             time.Duration
	OrderPlacementWait   time.Duration
	AutoreverseOrderAge  time.Duration
	OrderType            model.OrderType
	Trade                venue.TradeTimings
}

// DefaultConfig mirrors the Python source's keyword defaults.
func DefaultConfig() Config {
	return Config{
		WindowDirectWidth:   1.0,
		WindowReversedWidth: 1.0,
		MaxSpendPart:        1.0,
		Interval:            10 * time.Second,
		OrderPlacementWait:  5 * time.Second,
		AutoreverseOrderAge: 48 * time.Hour,
		OrderType:           model.Limit,
		Trade: venue.TradeTimings{
			SleepAfterPlaced: time.Second,
			FetchInterval:    5 * time.Second,
			Timeout:          10 * time.Second,
		},
	}
}

// Arbitrage scans configured venues for a profitable ask/bid window,
// places a sized pair of orders against it, and reconciles pairs that
// didn't both fill via the reversal queue.
//
// Ported from cryptotrader.strategy.arbitrage.Arbitrage.
type Arbitrage struct {
	cfg      Config
	venues   *venue.Venues
	toReverse *queue.Queue
	st       *store.Store
	notifier notify.Notifier
	log      zerolog.Logger
}

// New builds an Arbitrage strategy, validating that every configured pair
// is tradeable on at least one venue, the way the Python constructor did
// against exchanges.default_pairs.
func New(cfg Config, venues *venue.Venues, toReverse *queue.Queue, st *store.Store, notifier notify.Notifier, log zerolog.Logger) (*Arbitrage, error) {
	for _, pair := range cfg.Pairs {
		found := false
		for _, v := range venues.All() {
			for _, p := range v.DefaultPairs() {
				if p == pair {
					found = true
				}
			}
		}
		if !found {
			return nil, fmt.Errorf("strategy: no configured venue trades pair %s", pair)
		}
	}
	return &Arbitrage{cfg: cfg, venues: venues, toReverse: toReverse, st: st, notifier: notifier, log: log}, nil
}

// Schedule runs one tick: unwind anything due for reversal, then look for
// a new window to enter. Ported from Arbitrage.schedule (exit before
// enter, so a closing window is never missed in favor of opening a new
// one in the same tick).
func (a *Arbitrage) Schedule(ctx context.Context) error {
	if err := a.Exit(ctx); err != nil {
		return fmt.Errorf("exit: %w", err)
	}
	if err := a.Enter(ctx); err != nil {
		return fmt.Errorf("enter: %w", err)
	}
	return nil
}

// Enter locates a window and, if one exists, sizes and places orders
// against it.
func (a *Arbitrage) Enter(ctx context.Context) error {
	window, err := a.LocateWindow(ctx)
	if err != nil {
		return err
	}
	if window == nil {
		return nil
	}
	a.log.Info().Str("pair", window.Ask.Pair()).Msg("arbitrage window detected")
	a.notifier.Info(fmt.Sprintf("Arbitrage window detected\n%s", window.String()))

	if err := a.ProcessWindow(ctx, *window); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(a.cfg.OrderPlacementWait):
	}
	return nil
}

// Exit unwinds any order pairs sitting in the reversal queue whose window
// has closed (or aged out).
func (a *Arbitrage) Exit(ctx context.Context) error {
	return a.ReverseOrders(ctx)
}

// LocateWindow scans the configured pairs in order, pairing each one's
// lowest fresh ask with its highest fresh bid across the venues that trade
// it, and returns the first such window that is open, or nil if none is.
// Ported from Arbitrage.locate_window / get_pair_offer_map.
func (a *Arbitrage) LocateWindow(ctx context.Context) (*Window, error) {
	expiredAt := time.Now().Add(-a.cfg.Interval)

	for _, pair := range a.cfg.Pairs {
		asks, bids, err := a.venues.PairOfferMap(ctx, pair)
		if err != nil {
			return nil, fmt.Errorf("locate window: %s: %w", pair, err)
		}

		var minAsk, maxBid *model.Offer
		for _, offer := range asks {
			if !offer.InPairLimit(a.cfg.MaxSpendPart) || time.Unix(int64(offer.Timestamp()), 0).Before(expiredAt) {
				continue
			}
			o := offer
			if minAsk == nil || o.Price() < minAsk.Price() {
				minAsk = &o
			}
		}
		for _, offer := range bids {
			if !offer.InPairLimit(a.cfg.MaxSpendPart) || time.Unix(int64(offer.Timestamp()), 0).Before(expiredAt) {
				continue
			}
			o := offer
			if maxBid == nil || o.Price() > maxBid.Price() {
				maxBid = &o
			}
		}

		if minAsk == nil || maxBid == nil {
			continue
		}
		window, err := NewWindow(*minAsk, *maxBid, a.cfg.WindowDirectWidth, a.cfg.WindowReversedWidth)
		if err != nil {
			continue
		}
		if window.Exists() && window.IsOpened() {
			return &window, nil
		}
	}
	return nil, nil
}

// ProcessWindow sizes a window into an order pair and places it if valid.
// Ported from Arbitrage.process_window.
func (a *Arbitrage) ProcessWindow(ctx context.Context, window Window) error {
	pair, err := NewOrdersPair(window, a.cfg.MaxSpendPart, a.cfg.OrderType)
	if err != nil {
		return fmt.Errorf("process window: %w", err)
	}

	if !pair.IsValid(a.notifier, a.log) || !window.IsOpened() {
		return nil
	}

	ok, err := a.Place(ctx, pair)
	if err != nil {
		return err
	}
	if ok {
		return a.enqueueReversal(pair.Buy, pair.Sell)
	}
	return a.Cancel(ctx, pair)
}

// Place trades both legs of an order pair concurrently, reversing
// whichever leg succeeded if the other one failed. Ported from
// Arbitrage.place.
func (a *Arbitrage) Place(ctx context.Context, pair OrdersPair) (bool, error) {
	buyVenue := pair.Buy.Offer().Venue().(*venue.Venue)
	sellVenue := pair.Sell.Offer().Venue().(*venue.Venue)

	var buyOrder, sellOrder model.Order
	var buyErr, sellErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		buyOrder, buyErr = buyVenue.Trade(gctx, pair.Buy, a.cfg.Trade)
		return nil
	})
	g.Go(func() error {
		sellOrder, sellErr = sellVenue.Trade(gctx, pair.Sell, a.cfg.Trade)
		return nil
	})
	_ = g.Wait() // legs report their own errors via buyErr/sellErr, never abort the other

	buyOK := buyErr == nil && buyOrder.Status() != model.Rejected && buyOrder.Status() != model.Cancelled
	sellOK := sellErr == nil && sellOrder.Status() != model.Rejected && sellOrder.Status() != model.Cancelled

	if !buyOK && sellOK {
		if err := a.ReverseOrder(ctx, sellOrder); err != nil {
			a.log.Warn().Err(err).Msg("failed to reverse surviving sell leg")
		}
	}
	if !sellOK && buyOK {
		if err := a.ReverseOrder(ctx, buyOrder); err != nil {
			a.log.Warn().Err(err).Msg("failed to reverse surviving buy leg")
		}
	}

	if err := a.saveOrder(buyOrder); err != nil {
		a.log.Warn().Err(err).Msg("failed to persist buy order")
	}
	if err := a.saveOrder(sellOrder); err != nil {
		a.log.Warn().Err(err).Msg("failed to persist sell order")
	}

	if buyOK && sellOK {
		a.notifier.Info(fmt.Sprintf(
			"Orders placed successfully\nPair - %s\n%s\n%s",
			pair.Buy.Pair(), pair.Buy.ReportStr(), pair.Sell.ReportStr(),
		))
	} else {
		msg := fmt.Sprintf("Orders place error\nPair - %s\n%s\n%s", pair.Buy.Pair(), pair.Buy.ReportStr(), pair.Sell.ReportStr())
		if !buyOK {
			msg = fmt.Sprintf("Error on exchange %s\n", pair.Buy.VenueName()) + msg
		}
		if !sellOK {
			msg = fmt.Sprintf("Error on exchange %s\n", pair.Sell.VenueName()) + msg
		}
		a.notifier.Error(msg)
	}

	return buyOK && sellOK, nil
}

// Cancel is a placeholder matching Arbitrage.cancel, which the original
// never implemented either -- a failed orders pair is simply left for the
// operator to reconcile manually.
func (a *Arbitrage) Cancel(_ context.Context, _ OrdersPair) error {
	a.log.Debug().Msg("Arbitrage.Cancel is not implemented")
	return nil
}

// ReverseOrder unwinds a single surviving leg immediately, used when its
// counter-leg failed to place.
func (a *Arbitrage) ReverseOrder(ctx context.Context, order model.Order) error {
	reversed, err := a.getReversedOrder(ctx, order)
	if err != nil {
		return err
	}
	v := reversed.Offer().Venue().(*venue.Venue)
	if err := v.Validate(reversed); err != nil {
		return fmt.Errorf("reverse order: %w", err)
	}
	_, err = v.Trade(ctx, reversed, a.cfg.Trade)
	return err
}

// getReversedOrder builds the order that would unwind order: same pair
// and venue, opposite side, repriced to a fresh top-of-book quote where
// available. A stale offer is used as a fault-tolerant fallback since
// reversed orders are always market orders and a slightly stale price is
// not destructive. Ported from Arbitrage.get_reversed_order.
func (a *Arbitrage) getReversedOrder(ctx context.Context, order model.Order) (model.Order, error) {
	reversedOffer := order.Offer().Reversed()
	v := reversedOffer.Venue().(*venue.Venue)
	freshAsk, freshBid, err := v.FetchTop(ctx, reversedOffer.Pair())
	if err != nil {
		a.log.Warn().Err(err).Msg("fetch fresh offer for reversal failed, using stale offer")
		return model.NewOrder(reversedOffer, model.Market), nil
	}
	fresh := freshAsk
	if reversedOffer.Side() == model.Bid {
		fresh = freshBid
	}
	return model.NewOrder(reversedOffer.WithPrice(fresh.Price(), fresh.Timestamp()), model.Market), nil
}

func (a *Arbitrage) enqueueReversal(buy, sell model.Order) error {
	return a.toReverse.Push(queue.Pair{
		UUID:           buy.UUID.String() + "-" + sell.UUID.String(),
		LeftOrderUUID:  buy.UUID.String(),
		RightOrderUUID: sell.UUID.String(),
	})
}

func (a *Arbitrage) saveOrder(order model.Order) error {
	return a.st.SaveOrder(store.OrderRow{
		UUID:         order.UUID.String(),
		Pair:         order.Pair(),
		Side:         string(order.OrderSide()),
		OrderType:    string(order.Type()),
		Status:       string(order.Status()),
		VenueName:    order.VenueName(),
		VenueOrderID: order.VenueID(),
		Price:        order.Price(),
		QuoteAmount:  order.Quote().Amount,
		BaseAmount:   order.Base().Amount,
		ExecutedAt:   order.ExecutedAt(),
		ExpiredAt:    order.ExpiredAt(),
	})
}

// areOrdersExpired reports whether every order's executedAt is older than
// AutoreverseOrderAge, the unconditional auto-reverse trigger for pairs
// whose window never closes on its own. An order that hasn't reached a
// closed status yet carries a zero executedAt and is never considered
// expired by this check -- only the window-closed path can unwind it.
func (a *Arbitrage) areOrdersExpired(executedAt ...time.Time) bool {
	expiredAfter := time.Now().Add(-a.cfg.AutoreverseOrderAge)
	for _, t := range executedAt {
		if t.IsZero() || !t.Before(expiredAfter) {
			return false
		}
	}
	return true
}

// ReverseOrders drains the reversal queue once, unwinding any pair whose
// window has closed or whose legs have aged past AutoreverseOrderAge, and
// pushing everything else back for a later tick. Ported from
// Arbitrage.reverse_orders.
func (a *Arbitrage) ReverseOrders(ctx context.Context) error {
	length, err := a.toReverse.Len()
	if err != nil {
		return fmt.Errorf("reverse orders: queue length: %w", err)
	}

	for i := 0; i < length; i++ {
		pending, err := a.toReverse.Pop()
		if errors.Is(err, queue.ErrEmpty) {
			break
		}
		if err != nil {
			return fmt.Errorf("reverse orders: pop: %w", err)
		}

		buyRow, errBuy := a.st.GetOrder(pending.LeftOrderUUID)
		sellRow, errSell := a.st.GetOrder(pending.RightOrderUUID)
		if errBuy != nil || errSell != nil {
			a.log.Warn().Msg("reversal pair references orders no longer in the store, dropping")
			continue
		}

		buyOrder, err1 := a.reconstructOrder(ctx, buyRow)
		sellOrder, err2 := a.reconstructOrder(ctx, sellRow)
		if err1 != nil || err2 != nil {
			if err := a.toReverse.Push(pending); err != nil {
				a.log.Warn().Err(err).Msg("failed to requeue reversal pair after reconstruct failure")
			}
			continue
		}

		newAsk, _, errAsk := a.lookupVenue(buyOrder).FetchTop(ctx, buyOrder.Pair())
		_, newBid, errBid := a.lookupVenue(sellOrder).FetchTop(ctx, sellOrder.Pair())
		if errAsk != nil || errBid != nil {
			a.log.Warn().Msg("can't get fresh offers to build reversed orders, will retry later")
			if err := a.toReverse.Push(pending); err != nil {
				a.log.Warn().Err(err).Msg("failed to requeue reversal pair")
			}
			continue
		}

		window, err := NewWindow(newAsk, newBid, a.cfg.WindowDirectWidth, a.cfg.WindowReversedWidth)
		if err != nil {
			if err := a.toReverse.Push(pending); err != nil {
				a.log.Warn().Err(err).Msg("failed to requeue reversal pair")
			}
			continue
		}

		expired := a.areOrdersExpired(buyOrder.ExecutedAt(), sellOrder.ExecutedAt())
		if !window.IsClosed() && !expired {
			if err := a.toReverse.Push(pending); err != nil {
				a.log.Warn().Err(err).Msg("failed to requeue reversal pair")
			}
			continue
		}

		if expired {
			msg := fmt.Sprintf(
				"Pair of orders auto reverse\nA pair of orders have expired %s, so they will be reversed. Buy order: %s. Sell order: %s.",
				a.cfg.AutoreverseOrderAge, buyOrder, sellOrder,
			)
			a.log.Info().Msg(msg)
			a.notifier.Info(msg)
		}

		reversedBuy, errRB := a.getReversedOrder(ctx, buyOrder)
		reversedSell, errRS := a.getReversedOrder(ctx, sellOrder)
		if errRB != nil || errRS != nil {
			if err := a.toReverse.Push(pending); err != nil {
				a.log.Warn().Err(err).Msg("failed to requeue reversal pair")
			}
			continue
		}

		buyVenue := reversedBuy.Offer().Venue().(*venue.Venue)
		sellVenue := reversedSell.Offer().Venue().(*venue.Venue)
		if buyVenue.Validate(reversedBuy) != nil || sellVenue.Validate(reversedSell) != nil {
			if err := a.toReverse.Push(pending); err != nil {
				a.log.Warn().Err(err).Msg("failed to requeue reversal pair")
			}
			continue
		}

		placedBuy, errTB := buyVenue.Trade(ctx, reversedBuy, a.cfg.Trade)
		placedSell, errTS := sellVenue.Trade(ctx, reversedSell, a.cfg.Trade)

		if err := a.saveOrder(placedBuy); err != nil {
			a.log.Warn().Err(err).Msg("failed to persist reversed buy order")
		}
		if err := a.saveOrder(placedSell); err != nil {
			a.log.Warn().Err(err).Msg("failed to persist reversed sell order")
		}

		if errTB == nil && errTS == nil {
			a.notifier.Info(fmt.Sprintf(
				"Reversed orders placed successfully\nPair - %s\n%s\n%s",
				buyOrder.Pair(), reversedBuy.ReportStr(), reversedSell.ReportStr(),
			))
		} else {
			a.notifier.Error(fmt.Sprintf(
				"Reverse orders place error\nPair - %s\n%s\n%s",
				buyOrder.Pair(), reversedBuy.ReportStr(), reversedSell.ReportStr(),
			))
		}
	}
	return nil
}

func (a *Arbitrage) lookupVenue(order model.Order) *venue.Venue {
	return order.Offer().Venue().(*venue.Venue)
}

func mustParseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.New()
	}
	return id
}

var errNoVenueForOrder = errors.New("strategy: order's venue is not configured")

// reconstructOrder rebuilds a model.Order from its persisted row, looking
// up the venue and wrapping the row's stored price and quote amount in an
// Offer -- needed because queue pairs only carry order UUIDs, not live
// Offer state.
func (a *Arbitrage) reconstructOrder(ctx context.Context, row store.OrderRow) (model.Order, error) {
	v, err := a.venues.Get(row.VenueName)
	if err != nil {
		return model.Order{}, errNoVenueForOrder
	}
	side := model.Ask
	if row.Side == string(model.Sell) {
		side = model.Bid
	}
	offer, err := model.NewOffer(side, row.Pair, row.Price, row.QuoteAmount.InexactFloat64(), v, float64(row.CreatedAt.Unix()))
	if err != nil {
		return model.Order{}, fmt.Errorf("reconstruct order: %w", err)
	}
	order := model.NewOrder(offer, model.OrderType(row.OrderType))
	order.UUID = mustParseUUID(row.UUID)
	order = order.WithTimestamps(row.CreatedAt, row.ExecutedAt, row.ExpiredAt)
	return order.WithStatus(model.OrderStatus(row.Status), row.VenueOrderID), nil
}
