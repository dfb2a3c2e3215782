//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamrouter/internal/logger"
)

func TestRedisSnapshotStore_AgainstRedis(t *testing.T) {
	client := setupRedis(t)
	next := &countingFetcher{streams: testStreams()}
	store := NewRedisSnapshotStore(client, next, time.Minute, logger.NopLogger())
	ctx := context.Background()

	_, err := store.FetchEnabledStreams(ctx)
	require.NoError(t, err)
	streams, err := store.FetchEnabledStreams(ctx)
	require.NoError(t, err)

	assert.Len(t, streams, 1)
	assert.Equal(t, int32(1), next.calls.Load())

	require.NoError(t, store.Invalidate(ctx))
	_, err = store.FetchEnabledStreams(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}
