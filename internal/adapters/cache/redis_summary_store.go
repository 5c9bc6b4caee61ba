package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/providers"
	redisclient "github.com/olumydee/healthcare-readmission-risk-dashboard/internal/infrastructure/clients/redis"
	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// RedisSummaryStore implements the SummaryStore interface using Redis
type RedisSummaryStore struct {
	client *redisclient.Client
	ttl    time.Duration
}

// NewRedisSummaryStore creates a summary store. A ttlSeconds of zero or
// less keeps entries until they are overwritten.
func NewRedisSummaryStore(client *redisclient.Client, ttlSeconds int) providers.SummaryStore {
	ttl := time.Duration(0)
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return &RedisSummaryStore{
		client: client,
		ttl:    ttl,
	}
}

// Put stores the summary under its run key and the latest key, then
// publishes a providers.RunEvent. Both writes and the publish go out in one
// MULTI/EXEC block.
func (s *RedisSummaryStore) Put(ctx context.Context, summary *providers.RunSummary) error {
	if summary == nil || summary.RunID == "" {
		return apperrors.NewValidationError("run summary with an id is required")
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	event, err := json.Marshal(providers.RunEvent{RunID: summary.RunID, Scope: summary.Scope, CreatedAt: summary.CreatedAt})
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	pipe := s.client.Client().TxPipeline()
	pipe.Set(ctx, providers.RunKey(summary.RunID), data, s.ttl)
	pipe.Set(ctx, providers.LatestRunKey, data, s.ttl)
	pipe.Publish(ctx, providers.RunEventChannel, event)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewExternalError("failed to store run summary", err)
	}

	log.Debug().Str("run_id", summary.RunID).Str("channel", providers.RunEventChannel).Msg("published run summary")
	return nil
}

// Get returns the summary stored for runID, or nil when it is absent or expired.
func (s *RedisSummaryStore) Get(ctx context.Context, runID string) (*providers.RunSummary, error) {
	return s.load(ctx, providers.RunKey(runID))
}

// Latest returns the most recently stored summary, or nil when none is cached.
func (s *RedisSummaryStore) Latest(ctx context.Context) (*providers.RunSummary, error) {
	return s.load(ctx, providers.LatestRunKey)
}

func (s *RedisSummaryStore) load(ctx context.Context, key string) (*providers.RunSummary, error) {
	data, err := s.client.Client().Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewExternalError("failed to get run summary from cache", err)
	}
	return decodeSummary(data)
}

func decodeSummary(data []byte) (*providers.RunSummary, error) {
	var summary providers.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, apperrors.NewInternalError("cached run summary is corrupt", err)
	}
	return &summary, nil
}
