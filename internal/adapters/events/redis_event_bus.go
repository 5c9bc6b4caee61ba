package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/providers"
	redisclient "github.com/olumydee/healthcare-readmission-risk-dashboard/internal/infrastructure/clients/redis"
)

// subscriberBuffer is how many events a slow listener may lag behind before
// events are dropped for it.
const subscriberBuffer = 16

// RedisRunEventBus implements the RunEventBus interface using Redis Pub/Sub.
// One Redis subscription is shared by every in-process subscriber and is
// opened lazily on the first Subscribe.
type RedisRunEventBus struct {
	client       *redisclient.Client
	subscription *redis.PubSub
	subscribers  map[chan *providers.RunEvent]struct{}
	mu           sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewRedisRunEventBus creates a new Redis-based run event bus
func NewRedisRunEventBus(client *redisclient.Client) *RedisRunEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisRunEventBus{
		client:      client,
		subscribers: make(map[chan *providers.RunEvent]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Subscribe registers a listener on providers.RunEventChannel.
func (b *RedisRunEventBus) Subscribe(ctx context.Context) (<-chan *providers.RunEvent, error) {
	b.mu.Lock()
	if b.ctx.Err() != nil {
		b.mu.Unlock()
		return nil, errors.New("run event bus is closed")
	}

	if b.subscription == nil {
		pubsub := b.client.Client().Subscribe(b.ctx, providers.RunEventChannel)
		b.subscription = pubsub
		go b.receiveMessages(pubsub)
	}

	eventChan := make(chan *providers.RunEvent, subscriberBuffer)
	b.subscribers[eventChan] = struct{}{}
	count := len(b.subscribers)
	b.mu.Unlock()

	log.Debug().Str("channel", providers.RunEventChannel).Int("subscribers", count).Msg("subscribed to run events")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.removeSubscriber(eventChan)
	}()

	return eventChan, nil
}

// SubscriberCount returns the number of active listeners.
func (b *RedisRunEventBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *RedisRunEventBus) receiveMessages(pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.broadcast(msg.Payload)
		}
	}
}

// broadcast decodes one published payload and hands it to every listener
// without blocking.
func (b *RedisRunEventBus) broadcast(payload string) {
	var event providers.RunEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		log.Warn().Err(err).Str("channel", providers.RunEventChannel).Msg("failed to decode run event")
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for subscriber := range b.subscribers {
		select {
		case subscriber <- &event:
		default:
			log.Warn().Str("run_id", event.RunID).Msg("subscriber channel full, skipping run event")
		}
	}
}

func (b *RedisRunEventBus) removeSubscriber(eventChan chan *providers.RunEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[eventChan]; !ok {
		return
	}
	delete(b.subscribers, eventChan)
	close(eventChan)

	if len(b.subscribers) == 0 && b.subscription != nil {
		if err := b.subscription.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close run event subscription")
		}
		b.subscription = nil
	}
}

// Close stops delivery and closes every subscriber channel.
func (b *RedisRunEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for subscriber := range b.subscribers {
		close(subscriber)
		delete(b.subscribers, subscriber)
	}

	if b.subscription == nil {
		return nil
	}
	err := b.subscription.Close()
	b.subscription = nil
	if err != nil {
		return fmt.Errorf("failed to close run event subscription: %w", err)
	}
	return nil
}
