package routing

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"streamrouter/internal/constants"
	"streamrouter/internal/logger"
	"streamrouter/pkg/metrics"
)

// StreamFetcher loads every enabled stream with its rules fully resolved.
type StreamFetcher interface {
	FetchEnabledStreams(ctx context.Context) ([]Stream, error)
}

type StreamFetcherFunc func(ctx context.Context) ([]Stream, error)

func (f StreamFetcherFunc) FetchEnabledStreams(ctx context.Context) ([]Stream, error) {
	return f(ctx)
}

type CacheOptions struct {
	// TTL bounds how long a snapshot is served. Zero keeps it until Invalidate.
	TTL time.Duration
	// RefreshErrorBackoff is the minimum gap between fetch attempts after a
	// failure while a stale snapshot is available.
	RefreshErrorBackoff time.Duration
	// FetchTimeout bounds a single fetch. Zero means no timeout.
	FetchTimeout time.Duration
	Clock        clockwork.Clock
}

// StreamCache holds the current enabled-stream snapshot. Readers never block
// on each other; a replacement snapshot is published with a single atomic
// store. Concurrent misses share one fetch.
type StreamCache struct {
	fetcher StreamFetcher
	logger  logger.Logger
	clock   clockwork.Clock

	ttl          time.Duration
	errorBackoff time.Duration
	fetchTimeout time.Duration

	snapshot    atomic.Pointer[Snapshot]
	generation  atomic.Uint64
	lastFailure atomic.Int64

	group singleflight.Group
}

func NewStreamCache(fetcher StreamFetcher, opts CacheOptions, log logger.Logger) *StreamCache {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StreamCache{
		fetcher:      fetcher,
		logger:       log,
		clock:        clock,
		ttl:          opts.TTL,
		errorBackoff: opts.RefreshErrorBackoff,
		fetchTimeout: opts.FetchTimeout,
	}
}

// Get returns a valid snapshot, refreshing synchronously when needed. If the
// refresh fails and an older snapshot exists, the older one is returned. The
// error wraps ErrNoSnapshot only when nothing was ever loaded.
func (c *StreamCache) Get(ctx context.Context) (*Snapshot, error) {
	if s := c.snapshot.Load(); c.isValid(s) {
		return s, nil
	}

	if stale := c.snapshot.Load(); stale != nil && c.inErrorBackoff() {
		metrics.IncStreamCacheStaleServed()
		return stale, nil
	}

	return c.load(ctx, false)
}

// Valid reports whether the cached snapshot can be served without a fetch.
func (c *StreamCache) Valid() bool {
	return c.isValid(c.snapshot.Load())
}

// Current returns the cached snapshot without checking validity. It is nil
// until the first successful load.
func (c *StreamCache) Current() *Snapshot {
	return c.snapshot.Load()
}

// Set publishes streams as the current snapshot. It starts a new generation,
// so a fetch already in flight cannot overwrite it.
func (c *StreamCache) Set(streams []Stream) {
	generation := c.generation.Add(1)
	c.publish(newSnapshot(streams, c.clock.Now(), generation))
}

// Invalidate marks the current snapshot stale. The next Get refetches, even
// inside the error backoff window.
func (c *StreamCache) Invalidate() {
	c.generation.Add(1)
	c.lastFailure.Store(0)
}

// Reload fetches unconditionally and publishes the result. On failure the
// current snapshot is left in place.
func (c *StreamCache) Reload(ctx context.Context) error {
	_, err := c.load(ctx, true)
	return err
}

// Run reloads the snapshot every interval, delayed by up to jitter so replicas
// do not hit storage together. It blocks until ctx is cancelled.
func (c *StreamCache) Run(ctx context.Context, interval, jitter time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if err := c.sleepJitter(ctx, jitter); err != nil {
				return err
			}
			if err := c.Reload(ctx); err != nil {
				c.logger.ErrorwCtx(ctx, "Failed to reload streams",
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *StreamCache) sleepJitter(ctx context.Context, jitter time.Duration) error {
	if jitter <= 0 {
		return nil
	}
	delay := time.Duration(rand.Int63n(int64(jitter)))
	c.logger.DebugwCtx(ctx, "Reload scheduled with jitter",
		"jitter_ms", delay.Milliseconds(),
	)

	select {
	case <-c.clock.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *StreamCache) isValid(s *Snapshot) bool {
	if s == nil || s.generation != c.generation.Load() {
		return false
	}
	return c.ttl <= 0 || c.clock.Since(s.LoadedAt) < c.ttl
}

func (c *StreamCache) inErrorBackoff() bool {
	last := c.lastFailure.Load()
	if last == 0 || c.errorBackoff <= 0 {
		return false
	}
	return c.clock.Since(time.Unix(0, last)) < c.errorBackoff
}

func (c *StreamCache) load(ctx context.Context, force bool) (*Snapshot, error) {
	v, err, _ := c.group.Do(constants.SnapshotSingleflightKey, func() (interface{}, error) {
		if s := c.snapshot.Load(); !force && c.isValid(s) {
			return s, nil
		}
		return c.fetch(ctx)
	})
	if err == nil {
		return v.(*Snapshot), nil
	}

	if stale := c.snapshot.Load(); stale != nil {
		c.logger.WarnwCtx(ctx, "Stream refresh failed, serving stale snapshot",
			"error", err,
			"snapshot_age", c.clock.Since(stale.LoadedAt).String(),
			"streams_count", stale.Len(),
		)
		metrics.IncStreamCacheStaleServed()
		if force {
			return stale, err
		}
		return stale, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrNoSnapshot, err)
}

// fetch runs detached from the caller's cancellation since other callers may
// be waiting on the same result.
func (c *StreamCache) fetch(ctx context.Context) (*Snapshot, error) {
	generation := c.generation.Load()

	fetchCtx := context.WithoutCancel(ctx)
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(fetchCtx, c.fetchTimeout)
		defer cancel()
	}

	start := c.clock.Now()
	streams, err := c.fetcher.FetchEnabledStreams(fetchCtx)
	metrics.ObserveStreamCacheRefreshDuration(c.clock.Since(start))
	if err != nil {
		c.lastFailure.Store(c.clock.Now().UnixNano())
		metrics.IncStreamCacheRefresh("error")
		return nil, fmt.Errorf("failed to fetch enabled streams: %w", err)
	}

	snap := newSnapshot(streams, c.clock.Now(), generation)
	if current, ok := c.publishIfCurrent(snap); !ok {
		metrics.IncStreamCacheRefresh("superseded")
		c.logger.DebugwCtx(ctx, "Discarded fetched streams, snapshot was replaced during fetch",
			"fetch_generation", generation,
			"current_generation", current.generation,
		)
		return current, nil
	}
	metrics.IncStreamCacheRefresh("success")

	c.logger.InfowCtx(ctx, "Loaded enabled streams",
		"streams_count", snap.Len(),
		"duration_ms", c.clock.Since(start).Milliseconds(),
	)
	return snap, nil
}

// publishIfCurrent stores s unless a snapshot from a later generation has
// been published since s was fetched. It returns the winning snapshot.
func (c *StreamCache) publishIfCurrent(s *Snapshot) (*Snapshot, bool) {
	for {
		current := c.snapshot.Load()
		if current != nil && current.generation > s.generation {
			return current, false
		}
		if c.snapshot.CompareAndSwap(current, s) {
			c.lastFailure.Store(0)
			metrics.SetStreamCacheActiveStreams(s.Len())
			return s, true
		}
	}
}

func (c *StreamCache) publish(s *Snapshot) {
	c.snapshot.Store(s)
	c.lastFailure.Store(0)
	metrics.SetStreamCacheActiveStreams(s.Len())
}
