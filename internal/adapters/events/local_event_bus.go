package events

import (
	"context"
	"sync"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/providers"
)

// LocalEventBus fans events out inside one process. Used when redis is disabled.
type LocalEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.QuoteEvent]struct{}
	closed      bool
}

var _ providers.EventBus = (*LocalEventBus)(nil)

// NewLocalEventBus creates an in-process event bus
func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{
		subscribers: make(map[string]map[chan *entities.QuoteEvent]struct{}),
	}
}

// Publish delivers event to current subscribers of channel
func (b *LocalEventBus) Publish(ctx context.Context, channel string, event *entities.QuoteEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}
	fanOut(channel, b.subscribers[channel], event)
	return nil
}

// Subscribe registers a buffered channel that closes when ctx is done
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.QuoteEvent, error) {
	eventChan := make(chan *entities.QuoteEvent, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(eventChan)
		return eventChan, nil
	}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.QuoteEvent]struct{})
	}
	b.subscribers[channel][eventChan] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(channel, eventChan)
	}()

	return eventChan, nil
}

func (b *LocalEventBus) remove(channel string, eventChan chan *entities.QuoteEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, ok := b.subscribers[channel]
	if !ok {
		return
	}
	if _, ok := subscribers[eventChan]; !ok {
		return
	}
	delete(subscribers, eventChan)
	close(eventChan)
	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
	}
}

// Unsubscribe drops every subscriber of channel
func (b *LocalEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subscriber := range b.subscribers[channel] {
		close(subscriber)
	}
	delete(b.subscribers, channel)
	return nil
}

// Close drops all subscribers; later publishes are no-ops
func (b *LocalEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for channel, subscribers := range b.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}
	b.closed = true
	return nil
}
