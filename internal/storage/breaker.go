package storage

import (
	"context"

	"streamrouter/internal/routing"
	"streamrouter/pkg/circuitbreaker"
)

// CircuitBreakerFetcher stops hammering storage once fetches keep failing.
// While the breaker is open the stream cache keeps serving its last snapshot.
type CircuitBreakerFetcher struct {
	next    routing.StreamFetcher
	breaker *circuitbreaker.Wrapper
}

func NewCircuitBreakerFetcher(next routing.StreamFetcher, breaker *circuitbreaker.Wrapper) *CircuitBreakerFetcher {
	return &CircuitBreakerFetcher{next: next, breaker: breaker}
}

func (f *CircuitBreakerFetcher) FetchEnabledStreams(ctx context.Context) ([]routing.Stream, error) {
	v, err := f.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return f.next.FetchEnabledStreams(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]routing.Stream), nil
}
