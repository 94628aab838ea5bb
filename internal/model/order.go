package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderType distinguishes market from limit orders.
type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
)

// OrderStatus is the closed set of states an Order moves through. Every
// venue adapter normalizes its own vocabulary into one of these five.
type OrderStatus string

const (
	Created   OrderStatus = "created"
	Placed    OrderStatus = "placed"
	Rejected  OrderStatus = "rejected"
	Cancelled OrderStatus = "cancelled"
	Fulfilled OrderStatus = "fulfilled"
)

// Order is a single leg of a trade: one offer a strategy decided to act on,
// plus the bookkeeping the venue session needs to place, poll and reconcile
// it. Order wraps an Offer rather than embedding one; Side/OrderID/Status
// are the order-specific state the offer itself doesn't carry.
//
// Ported from cryptotrader.models.order.Order.
type Order struct {
	UUID       uuid.UUID
	offer      Offer
	orderSide  OrderSide
	venueID    string
	orderType  OrderType
	status     OrderStatus
	createdAt  time.Time
	executedAt time.Time
	expiredAt  time.Time
}

// NewOrder builds an Order from the Offer a strategy decided to act on.
// OrderSide is derived from the offer's Side via SideToOrderSide.
func NewOrder(offer Offer, orderType OrderType) Order {
	return Order{
		UUID:      uuid.New(),
		offer:     offer,
		orderSide: SideToOrderSide[offer.Side()],
		orderType: orderType,
		status:    Created,
		createdAt: time.Now(),
	}
}

func (o Order) Offer() Offer           { return o.offer }
func (o Order) OrderSide() OrderSide   { return o.orderSide }
func (o Order) Type() OrderType        { return o.orderType }
func (o Order) Status() OrderStatus    { return o.status }
func (o Order) VenueID() string        { return o.venueID }
func (o Order) Pair() string           { return o.offer.Pair() }
func (o Order) Price() float64         { return o.offer.Price() }
func (o Order) Quote() Money           { return o.offer.Quote() }
func (o Order) Base() Money            { return o.offer.Base() }
func (o Order) VenueName() string      { return o.offer.VenueName() }
func (o Order) CreatedAt() time.Time   { return o.createdAt }

// ExecutedAt is when the order last reached a closed status (fulfilled or
// cancelled), the zero time if it never has. Ported from
// cryptotrader.models.order.Order.executed_at.
func (o Order) ExecutedAt() time.Time { return o.executedAt }

// ExpiredAt mirrors cryptotrader.models.order.Order.expired_at: accepted
// and persisted, but nothing in the Python source ever assigns it either.
func (o Order) ExpiredAt() time.Time { return o.expiredAt }

// IsTerminal reports whether Status will never change again without a new
// order being placed.
func (o Order) IsTerminal() bool {
	return o.status == Rejected || o.status == Cancelled || o.status == Fulfilled
}

// WithStatus returns a copy of the order transitioned to a new status. The
// venue id is set once, on the Placed transition, and carried unchanged
// after that — mirroring Order.update_status, which only ever sets
// order_id on the first placement response.
func (o Order) WithStatus(status OrderStatus, venueID string) Order {
	clone := o
	clone.status = status
	if venueID != "" {
		clone.venueID = venueID
	}
	return clone
}

// MarkExecuted returns a copy with executedAt set to now. Called at the
// moment an order actually reaches a closed status (fulfilled or
// cancelled), mirroring Order.trade's `self.executed_at =
// datetime.utcnow()` right after wait_status reports the order closed.
func (o Order) MarkExecuted() Order {
	clone := o
	clone.executedAt = time.Now()
	return clone
}

// WithTimestamps returns a copy with createdAt/executedAt/expiredAt
// overridden. Used only when reconstructing an Order from its persisted
// row, since the other constructors/transitions stamp these themselves.
func (o Order) WithTimestamps(createdAt, executedAt, expiredAt time.Time) Order {
	clone := o
	clone.createdAt = createdAt
	clone.executedAt = executedAt
	clone.expiredAt = expiredAt
	return clone
}

// SetQuote resizes the order's underlying offer to a new quote amount
// (Order.set_quote in the source), used when a strategy trims a leg's
// size to fit a counter-venue's pair limit before placing it.
func (o Order) SetQuote(quoteAmount float64) Order {
	clone := o
	clone.offer = o.offer.WithQuote(quoteAmount)
	return clone
}

// SetBase resizes the order's underlying offer to a new base amount
// (Order.set_base in the source), used when sizing the ask leg of a
// window to the max-spend calculation's base result.
func (o Order) SetBase(baseAmount float64) Order {
	clone := o
	clone.offer = o.offer.WithBase(baseAmount)
	return clone
}

// Reversed builds the order that would unwind this one: same pair and
// venue, opposite side, same size and order type, status reset to Created.
// The arbitrage strategy's reversal path does not call this; it builds its
// own reversed orders, repriced to a fresh quote and of market type.
//
// Ported from cryptotrader.models.order.Order.reversed.
func (o Order) Reversed() Order {
	reversedOffer := o.offer.Reversed()
	return NewOrder(reversedOffer, o.orderType)
}

func (o Order) String() string {
	return fmt.Sprintf(
		"<Order: uuid: %s, pair: %s, side: %s, status: %s, venue: %s, venue_id: %s>",
		o.UUID, o.Pair(), o.orderSide, o.status, o.VenueName(), o.venueID,
	)
}

// ReportStr is the human-readable block the Telegram notifier formats when
// announcing a placed or reversed order.
func (o Order) ReportStr() string {
	return fmt.Sprintf(
		"Order %s:\n- Venue - %s\n- Side - %s\n- Status - %s\n- %s",
		o.UUID, o.VenueName(), o.orderSide, o.status, o.offer.ReportStr(),
	)
}

// Validate checks this order can be placed: price/quote positivity already
// holds by construction (via Offer), so the only remaining check is that
// the order hasn't already been placed or otherwise left Created.
func (o Order) Validate() error {
	if o.status != Created {
		return fmt.Errorf("order %s: cannot place, status is %s not %s", o.UUID, o.status, Created)
	}
	return nil
}
