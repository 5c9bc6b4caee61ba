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

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/providers"
	redisclient "github.com/olumydee/healthcare-readmission-risk-dashboard/internal/infrastructure/clients/redis"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/config"
)

func TestRedisRunEventBusIntegration(t *testing.T) {
	if os.Getenv("TEST_REDIS_HOST") == "" {
		t.Skip("Skipping integration test: TEST_REDIS_HOST not set")
	}
	port := 6379
	if v := os.Getenv("TEST_REDIS_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		require.NoError(t, err)
		port = p
	}

	ctx := context.Background()
	client, err := redisclient.NewClient(ctx, &config.RedisConfig{
		Host:     os.Getenv("TEST_REDIS_HOST"),
		Port:     port,
		Password: os.Getenv("TEST_REDIS_PASSWORD"),
	})
	require.NoError(t, err)
	defer client.Close()

	bus := NewRedisRunEventBus(client)
	defer bus.Close()

	subCtx, cancel := context.WithCancel(ctx)
	events, err := bus.Subscribe(subCtx)
	require.NoError(t, err)

	// Publishing before the subscription is confirmed may be lost, so retry.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case event := <-events:
			require.NotNil(t, event)
			assert.Equal(t, "integration-run", event.RunID)
			cancel()
			for range events {
			}
			assert.Zero(t, bus.SubscriberCount())
			return
		case <-tick.C:
			require.NoError(t, client.Client().Publish(ctx, providers.RunEventChannel, `{"run_id":"integration-run","scope":"holdout"}`).Err())
		case <-deadline:
			t.Fatal("no run event received")
		}
	}
}
