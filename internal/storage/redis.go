package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"streamrouter/internal/constants"
	"streamrouter/internal/logger"
	"streamrouter/internal/routing"
)

// storeIfCurrent writes the snapshot only while the generation is still the
// one read before the backend fetch. A missing generation counts as "0".
var storeIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[2])
if not gen then gen = '0' end
if gen ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisSnapshotStore shares the enabled-stream list between router replicas
// so a fleet restart costs one storage query instead of one per replica.
// Redis failures fall through to the wrapped fetcher.
//
// Every Invalidate bumps a generation counter. A fetch that started before the
// bump cannot write its result back, so an edit is never masked by an older
// list.
type RedisSnapshotStore struct {
	client *redis.Client
	next   routing.StreamFetcher
	key    string
	genKey string
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisSnapshotStore(client *redis.Client, next routing.StreamFetcher, ttl time.Duration, log logger.Logger) *RedisSnapshotStore {
	if ttl <= 0 {
		ttl = constants.DefaultSnapshotL2TTL
	}
	return &RedisSnapshotStore{
		client: client,
		next:   next,
		key:    constants.SnapshotCacheKey,
		genKey: constants.SnapshotGenerationKey,
		ttl:    ttl,
		logger: log,
	}
}

func (s *RedisSnapshotStore) FetchEnabledStreams(ctx context.Context) ([]routing.Stream, error) {
	if streams, ok := s.load(ctx); ok {
		return streams, nil
	}

	generation, genErr := s.generation(ctx)

	streams, err := s.next.FetchEnabledStreams(ctx)
	if err != nil {
		return nil, err
	}

	if genErr == nil {
		s.store(ctx, generation, streams)
	}
	return streams, nil
}

// Invalidate drops the shared entry and starts a new generation so the next
// fetch goes to storage.
func (s *RedisSnapshotStore) Invalidate(ctx context.Context) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, s.genKey)
		pipe.Del(ctx, s.key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisSnapshotStore) generation(ctx context.Context) (string, error) {
	gen, err := s.client.Get(ctx, s.genKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to read shared snapshot generation",
			"key", s.genKey,
			"error", err,
		)
		return "", err
	}
	return gen, nil
}

func (s *RedisSnapshotStore) load(ctx context.Context) ([]routing.Stream, bool) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to read shared stream snapshot",
			"key", s.key,
			"error", err,
		)
		return nil, false
	}

	var streams []routing.Stream
	if err := json.Unmarshal(data, &streams); err != nil {
		s.logger.WarnwCtx(ctx, "Discarding undecodable shared stream snapshot",
			"key", s.key,
			"error", err,
		)
		return nil, false
	}

	s.logger.DebugwCtx(ctx, "Loaded streams from shared snapshot",
		"streams_count", len(streams),
	)
	return streams, true
}

func (s *RedisSnapshotStore) store(ctx context.Context, generation string, streams []routing.Stream) {
	data, err := json.Marshal(streams)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to encode stream snapshot", "error", err)
		return
	}

	stored, err := storeIfCurrent.Run(ctx, s.client,
		[]string{s.key, s.genKey},
		generation, data, s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to write shared stream snapshot",
			"key", s.key,
			"error", err,
		)
		return
	}
	if stored == 0 {
		s.logger.DebugwCtx(ctx, "Skipped shared snapshot write, invalidated during fetch",
			"key", s.key,
			"generation", generation,
		)
	}
}
