package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/providers"
)

func waitForEvent(t *testing.T, ch <-chan *entities.QuoteEvent) *entities.QuoteEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func testQuote() *entities.Quote {
	return &entities.Quote{ID: "q1", Status: entities.QuoteStatusReady, TotalCost: 4620}
}

func TestLocalEventBus_FanOut(t *testing.T) {
	bus := NewLocalEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub1, err := bus.Subscribe(ctx, providers.EventChannelQuoteUpdates)
	require.NoError(t, err)
	sub2, err := bus.Subscribe(ctx, providers.EventChannelQuoteUpdates)
	require.NoError(t, err)
	other, err := bus.Subscribe(ctx, providers.GetQuoteChannel("q2"))
	require.NoError(t, err)

	event := entities.NewQuoteEvent(testQuote(), entities.QuoteEventTypeTransitioned, entities.QuoteStatusReview, entities.Actor{Role: entities.RoleAdmin, UserID: "admin-1"})
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelQuoteUpdates, event))

	assert.Equal(t, event.ID, waitForEvent(t, sub1).ID)
	assert.Equal(t, event.ID, waitForEvent(t, sub2).ID)
	assert.Len(t, other, 0)
}

func TestLocalEventBus_ClosesOnContextDone(t *testing.T) {
	bus := NewLocalEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := bus.Subscribe(ctx, "quote:q1")
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-sub:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription was not closed")
	}
}

func TestLocalEventBus_CloseStopsDelivery(t *testing.T) {
	bus := NewLocalEventBus()
	sub, err := bus.Subscribe(context.Background(), "quote:q1")
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	_, ok := <-sub
	assert.False(t, ok)

	event := entities.NewQuoteEvent(testQuote(), entities.QuoteEventTypeCreated, "", entities.Actor{Role: entities.RoleDoctor, UserID: "doc-1"})
	assert.NoError(t, bus.Publish(context.Background(), "quote:q1", event))
}
