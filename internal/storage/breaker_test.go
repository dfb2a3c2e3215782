package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamrouter/internal/config"
	"streamrouter/pkg/circuitbreaker"
)

func TestCircuitBreakerFetcher(t *testing.T) {
	next := &countingFetcher{streams: testStreams()}
	breaker := circuitbreaker.NewWrapper(circuitbreaker.FromSettings("test-fetcher", config.CircuitBreakerConfig{
		MinRequests:  2,
		FailureRatio: 0.5,
		Timeout:      time.Minute,
	}))
	fetcher := NewCircuitBreakerFetcher(next, breaker)

	streams, err := fetcher.FetchEnabledStreams(context.Background())
	require.NoError(t, err)
	assert.Len(t, streams, 1)

	next.err = errors.New("mongo down")
	_, err = fetcher.FetchEnabledStreams(context.Background())
	require.Error(t, err)

	_, err = fetcher.FetchEnabledStreams(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), next.calls.Load())
}
