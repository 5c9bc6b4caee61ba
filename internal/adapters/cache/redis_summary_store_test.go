package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/providers"
	redisclient "github.com/olumydee/healthcare-readmission-risk-dashboard/internal/infrastructure/clients/redis"
	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// unreachableClient points at a closed local port so every command fails fast.
func unreachableClient(t *testing.T) *redisclient.Client {
	t.Helper()
	c := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { c.Close() })
	return redisclient.NewClientFromRedis(c)
}

func TestPutRequiresRunID(t *testing.T) {
	store := NewRedisSummaryStore(unreachableClient(t), 60)

	err := store.Put(context.Background(), nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	err = store.Put(context.Background(), &providers.RunSummary{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestUnreachableRedisIsExternalError(t *testing.T) {
	store := NewRedisSummaryStore(unreachableClient(t), 60)
	ctx := context.Background()

	err := store.Put(ctx, &providers.RunSummary{RunID: "run-1", Payload: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))

	_, err = store.Latest(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}

func TestDecodeSummary(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := json.Marshal(providers.RunSummary{
		RunID:     "run-1",
		Scope:     "holdout",
		CreatedAt: created,
		Payload:   json.RawMessage(`{"scoring":{"rows":190}}`),
	})
	require.NoError(t, err)

	got, err := decodeSummary(data)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.JSONEq(t, `{"scoring":{"rows":190}}`, string(got.Payload))

	_, err = decodeSummary([]byte("not json"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestRunKey(t *testing.T) {
	assert.Equal(t, "readmission:run:abc", providers.RunKey("abc"))
	assert.NotEqual(t, providers.LatestRunKey, providers.RunKey("abc"))
}
