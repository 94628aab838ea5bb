package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/cryptoarb/internal/model"
)

func newTestOrder(t *testing.T, side model.Side) model.Order {
	t.Helper()
	offer, err := model.NewOffer(side, "LTCUSD", 100, 2, newFakeVenue(), 0)
	require.NoError(t, err)
	return model.NewOrder(offer, model.Limit)
}

func TestNewOrder_DerivesOrderSideFromOfferSide(t *testing.T) {
	buy := newTestOrder(t, model.Ask)
	sell := newTestOrder(t, model.Bid)
	assert.Equal(t, model.Buy, buy.OrderSide())
	assert.Equal(t, model.Sell, sell.OrderSide())
	assert.Equal(t, model.Created, buy.Status())
}

func TestOrder_WithStatus_SetsVenueIDOnlyOnce(t *testing.T) {
	o := newTestOrder(t, model.Ask)
	placed := o.WithStatus(model.Placed, "venue-order-1")
	assert.Equal(t, model.Placed, placed.Status())
	assert.Equal(t, "venue-order-1", placed.VenueID())

	// A later transition with an empty venue id must not clear it.
	fulfilled := placed.WithStatus(model.Fulfilled, "")
	assert.Equal(t, "venue-order-1", fulfilled.VenueID())
	assert.Equal(t, model.Fulfilled, fulfilled.Status())

	assert.Equal(t, model.Created, o.Status(), "original order must not be mutated")
}

func TestOrder_IsTerminal(t *testing.T) {
	o := newTestOrder(t, model.Ask)
	assert.False(t, o.IsTerminal())
	assert.False(t, o.WithStatus(model.Placed, "x").IsTerminal())
	assert.True(t, o.WithStatus(model.Rejected, "").IsTerminal())
	assert.True(t, o.WithStatus(model.Cancelled, "").IsTerminal())
	assert.True(t, o.WithStatus(model.Fulfilled, "").IsTerminal())
}

func TestOrder_SetQuoteAndSetBase(t *testing.T) {
	o := newTestOrder(t, model.Ask)
	resized := o.SetQuote(5)
	assert.InDelta(t, 5, resized.Quote().Amount.InexactFloat64(), 1e-9)
	assert.InDelta(t, 500, resized.Base().Amount.InexactFloat64(), 1e-9)

	baseResized := o.SetBase(50)
	assert.InDelta(t, 50, baseResized.Base().Amount.InexactFloat64(), 1e-9)
	assert.InDelta(t, 0.5, baseResized.Quote().Amount.InexactFloat64(), 1e-9)
}

func TestOrder_Reversed_FlipsSideAndResetsStatus(t *testing.T) {
	o := newTestOrder(t, model.Ask).WithStatus(model.Fulfilled, "v1")
	r := o.Reversed()
	assert.Equal(t, model.Sell, r.OrderSide())
	assert.Equal(t, model.Created, r.Status())
	assert.NotEqual(t, o.UUID, r.UUID)
}

func TestOrder_MarkExecuted_SetsExecutedAtOnly(t *testing.T) {
	o := newTestOrder(t, model.Ask)
	assert.True(t, o.ExecutedAt().IsZero())

	executed := o.WithStatus(model.Fulfilled, "v1").MarkExecuted()
	assert.False(t, executed.ExecutedAt().IsZero())
	assert.True(t, o.ExecutedAt().IsZero(), "original order must not be mutated")
	assert.Equal(t, o.CreatedAt(), executed.CreatedAt(), "MarkExecuted leaves createdAt untouched")
}

func TestOrder_WithTimestamps_RestoresAllThree(t *testing.T) {
	o := newTestOrder(t, model.Ask)
	created := time.Now().Add(-time.Hour)
	executed := time.Now().Add(-time.Minute)
	expired := time.Now().Add(-30 * time.Second)

	restored := o.WithTimestamps(created, executed, expired)
	assert.True(t, restored.CreatedAt().Equal(created))
	assert.True(t, restored.ExecutedAt().Equal(executed))
	assert.True(t, restored.ExpiredAt().Equal(expired))
}

func TestOrder_Validate_RejectsNonCreatedStatus(t *testing.T) {
	o := newTestOrder(t, model.Ask)
	require.NoError(t, o.Validate())

	placed := o.WithStatus(model.Placed, "v1")
	assert.Error(t, placed.Validate())
}
