//go:build integration

package events

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/providers"
	redisclient "github.com/tmvsalud/medtour/internal/infrastructure/clients/redis"
	"github.com/tmvsalud/medtour/pkg/config"
)

func TestRedisEventBusFanoutIntegration(t *testing.T) {
	host := os.Getenv("TEST_REDIS_HOST")
	if host == "" {
		t.Skip("Skipping integration test: TEST_REDIS_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("TEST_REDIS_PORT"))
	if port == 0 {
		port = 6379
	}

	client, err := redisclient.NewClient(&config.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	defer client.Close()

	bus := NewRedisEventBus(client)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub1, err := bus.Subscribe(ctx, providers.EventChannelQuoteUpdates)
	require.NoError(t, err)
	sub2, err := bus.Subscribe(ctx, providers.EventChannelQuoteUpdates)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	event := entities.NewQuoteEvent(testQuote(), entities.QuoteEventTypeTransitioned, entities.QuoteStatusReview, entities.Actor{Role: entities.RoleAdmin, UserID: "admin-1"})
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelQuoteUpdates, event))

	assert.Equal(t, event.ID, waitForEvent(t, sub1).ID)
	assert.Equal(t, event.ID, waitForEvent(t, sub2).ID)
}
