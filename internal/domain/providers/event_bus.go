package providers

import (
	"context"

	"github.com/tmvsalud/medtour/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.QuoteEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.QuoteEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelQuoteUpdates is the channel for all quote updates
	EventChannelQuoteUpdates = "quotes:updates"

	// EventChannelQuotePrefix is the prefix for quote-specific channels
	EventChannelQuotePrefix = "quote:"
)

// GetQuoteChannel returns the channel name for a specific quote
func GetQuoteChannel(quoteID string) string {
	return EventChannelQuotePrefix + quoteID
}
