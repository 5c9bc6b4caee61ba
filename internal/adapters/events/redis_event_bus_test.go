package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/providers"
)

func addSubscriber(b *RedisRunEventBus, size int) chan *providers.RunEvent {
	ch := make(chan *providers.RunEvent, size)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func TestBroadcastFansOut(t *testing.T) {
	bus := NewRedisRunEventBus(nil)
	a := addSubscriber(bus, 1)
	b := addSubscriber(bus, 1)

	bus.broadcast(`{"run_id":"r1","scope":"holdout","created_at":"2026-01-02T03:04:05Z"}`)

	for _, ch := range []chan *providers.RunEvent{a, b} {
		require.Len(t, ch, 1)
		event := <-ch
		assert.Equal(t, "r1", event.RunID)
		assert.Equal(t, "holdout", event.Scope)
		assert.Equal(t, 2026, event.CreatedAt.Year())
	}
	assert.Equal(t, 2, bus.SubscriberCount())
}

func TestBroadcastSkipsBadPayloadAndFullSubscribers(t *testing.T) {
	bus := NewRedisRunEventBus(nil)
	ch := addSubscriber(bus, 1)

	bus.broadcast("not json")
	assert.Empty(t, ch)

	bus.broadcast(`{"run_id":"r1"}`)
	bus.broadcast(`{"run_id":"r2"}`)
	require.Len(t, ch, 1)
	assert.Equal(t, "r1", (<-ch).RunID)
}

func TestRemoveSubscriberClosesChannel(t *testing.T) {
	bus := NewRedisRunEventBus(nil)
	ch := addSubscriber(bus, 1)

	bus.removeSubscriber(ch)
	bus.removeSubscriber(ch)

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, bus.SubscriberCount())
}

func TestCloseStopsBus(t *testing.T) {
	bus := NewRedisRunEventBus(nil)
	ch := addSubscriber(bus, 1)

	require.NoError(t, bus.Close())

	_, open := <-ch
	assert.False(t, open)

	_, err := bus.Subscribe(context.Background())
	assert.Error(t, err)
}
