package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/providers"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

// publishQuoteEvent fans an event out to the quote channel and the global feed.
// Delivery is best effort; the quote is already persisted.
func publishQuoteEvent(ctx context.Context, bus providers.EventBus, event *entities.QuoteEvent) {
	if bus == nil {
		return
	}
	for _, channel := range []string{providers.GetQuoteChannel(event.QuoteID), providers.EventChannelQuoteUpdates} {
		if err := bus.Publish(ctx, channel, event); err != nil {
			log.Ctx(ctx).Warn().Err(err).
				Str("channel", channel).
				Str("quote_id", event.QuoteID).
				Msg("failed to publish quote event")
		}
	}
}

// outcome labels a metric with "ok" or the error kind
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperrors.TypeOf(err))
}
