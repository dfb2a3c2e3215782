package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamrouter/internal/broker"
	"streamrouter/internal/logger"
	"streamrouter/internal/routing"
	pkgerrors "streamrouter/pkg/errors"
	"streamrouter/pkg/models"
	"streamrouter/pkg/retry"
)

type stubRouter struct {
	streams []routing.Stream
	err     error
	got     *models.Message
}

func (r *stubRouter) Route(_ context.Context, msg *models.Message) ([]routing.Stream, error) {
	r.got = msg
	return r.streams, r.err
}

type capturingProducer struct {
	topic string
	msgs  []broker.Message
	err   error
}

func (p *capturingProducer) Publish(_ context.Context, topic string, msg broker.Message) error {
	if p.err != nil {
		return p.err
	}
	p.topic = topic
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *capturingProducer) Close() error { return nil }

var routedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(router Router, producer broker.Producer, defaultStream string) *Service {
	return NewService(router, producer, Options{
		OutputTopic:     "routed_messages",
		DefaultStreamID: defaultStream,
		Clock:           clockwork.NewFakeClockAt(routedAt),
	}, logger.NopLogger())
}

func gelf(t *testing.T, fields map[string]interface{}) broker.Message {
	t.Helper()
	body, err := json.Marshal(fields)
	require.NoError(t, err)
	return broker.Message{Topic: "gelf_messages", Key: []byte("key-1"), Value: body}
}

func TestHandleMessage_PublishesMatchedStreams(t *testing.T) {
	router := &stubRouter{streams: []routing.Stream{{ID: "s1"}, {ID: "s2"}}}
	producer := &capturingProducer{}
	svc := newTestService(router, producer, "")

	err := svc.HandleMessage(context.Background(), gelf(t, map[string]interface{}{
		"host":          "web01",
		"short_message": "connection refused",
		"level":         3,
		"_env":          "prod",
	}))
	require.NoError(t, err)

	require.NotNil(t, router.got)
	assert.Equal(t, "key-1", router.got.ID, "message id falls back to the record key")
	env, _ := router.got.FieldString("env")
	assert.Equal(t, "prod", env)

	require.Len(t, producer.msgs, 1)
	assert.Equal(t, "routed_messages", producer.topic)
	assert.Equal(t, []byte("key-1"), producer.msgs[0].Key)

	var out struct {
		Message  map[string]interface{} `json:"message"`
		Streams  []string               `json:"streams"`
		RoutedAt time.Time              `json:"routed_at"`
	}
	require.NoError(t, json.Unmarshal(producer.msgs[0].Value, &out))
	assert.Equal(t, []string{"s1", "s2"}, out.Streams)
	assert.Equal(t, "web01", out.Message["host"])
	assert.Equal(t, "prod", out.Message["_env"])
	assert.True(t, routedAt.Equal(out.RoutedAt))
}

func TestHandleMessage_KeepsExplicitID(t *testing.T) {
	router := &stubRouter{streams: []routing.Stream{{ID: "s1"}}}
	producer := &capturingProducer{}
	svc := newTestService(router, producer, "")

	require.NoError(t, svc.HandleMessage(context.Background(), gelf(t, map[string]interface{}{
		"id": "msg-42", "host": "web01", "short_message": "x",
	})))
	assert.Equal(t, []byte("msg-42"), producer.msgs[0].Key)
}

func TestHandleMessage_GeneratesIDWithoutKey(t *testing.T) {
	router := &stubRouter{streams: []routing.Stream{{ID: "s1"}}}
	svc := newTestService(router, &capturingProducer{}, "")

	msg := gelf(t, map[string]interface{}{"host": "web01", "short_message": "x"})
	msg.Key = nil
	require.NoError(t, svc.HandleMessage(context.Background(), msg))
	assert.NotEmpty(t, router.got.ID)
}

func TestHandleMessage_Unmatched(t *testing.T) {
	t.Run("dropped without default stream", func(t *testing.T) {
		producer := &capturingProducer{}
		svc := newTestService(&stubRouter{}, producer, "")

		require.NoError(t, svc.HandleMessage(context.Background(), gelf(t, map[string]interface{}{
			"host": "web01", "short_message": "x",
		})))
		assert.Empty(t, producer.msgs)
	})

	t.Run("sent to default stream", func(t *testing.T) {
		producer := &capturingProducer{}
		svc := newTestService(&stubRouter{}, producer, "all-messages")

		require.NoError(t, svc.HandleMessage(context.Background(), gelf(t, map[string]interface{}{
			"host": "web01", "short_message": "x",
		})))
		require.Len(t, producer.msgs, 1)

		var out models.RoutedMessage
		require.NoError(t, json.Unmarshal(producer.msgs[0].Value, &out))
		assert.Equal(t, []string{"all-messages"}, out.StreamIDs)
	})
}

func TestHandleMessage_InvalidInputIsFatal(t *testing.T) {
	tests := []struct {
		name      string
		value     []byte
		wantField string
	}{
		{name: "malformed json", value: []byte("{not json")},
		{name: "missing host", value: []byte(`{"short_message":"x"}`), wantField: "host"},
		{name: "bad level", value: []byte(`{"host":"h","short_message":"x","level":12}`), wantField: "level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := &stubRouter{}
			svc := newTestService(router, &capturingProducer{}, "")

			err := svc.HandleMessage(context.Background(), broker.Message{Value: tt.value})
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
			assert.True(t, pkgerrors.IsFatal(err))
			assert.Nil(t, router.got)

			if tt.wantField != "" {
				var appErr *pkgerrors.Error
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.wantField, appErr.Details["field"])
			}
		})
	}
}

func TestHandleMessage_NoSnapshotIsRetryable(t *testing.T) {
	router := &stubRouter{err: fmt.Errorf("%w: %w", routing.ErrNoSnapshot, errors.New("mongo down"))}
	svc := newTestService(router, &capturingProducer{}, "")

	err := svc.HandleMessage(context.Background(), gelf(t, map[string]interface{}{
		"host": "web01", "short_message": "x",
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, routing.ErrNoSnapshot)
	assert.False(t, pkgerrors.IsFatal(err))

	var retryable retry.RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.True(t, retryable.IsRetryable())
}

func TestHandleMessage_PublishFailure(t *testing.T) {
	router := &stubRouter{streams: []routing.Stream{{ID: "s1"}}}
	svc := newTestService(router, &capturingProducer{err: errors.New("broker down")}, "")

	err := svc.HandleMessage(context.Background(), gelf(t, map[string]interface{}{
		"host": "web01", "short_message": "x",
	}))
	assert.Error(t, err)
	assert.False(t, pkgerrors.IsFatal(err))
}

func TestHandleMessage_WithRealRouter(t *testing.T) {
	patterns := routing.NewPatternCache(time.Minute, time.Minute, nil)
	cache := routing.NewStreamCache(routing.StreamFetcherFunc(func(context.Context) ([]routing.Stream, error) {
		return nil, errors.New("unused")
	}), routing.CacheOptions{}, logger.NopLogger())
	cache.Set([]routing.Stream{
		{ID: "nginx-errors", Rules: []routing.StreamRule{
			{ID: "r1", Type: routing.RuleTypeFacility, Value: "nginx"},
			{ID: "r2", Type: routing.RuleTypeSeverityOrHigher, Value: "3"},
		}},
		{ID: "db", Rules: []routing.StreamRule{{ID: "r3", Type: routing.RuleTypeHostRegex, Value: "^db"}}},
	})
	router := routing.NewRouter(cache, routing.NewRegistry(patterns), logger.NopLogger())

	producer := &capturingProducer{}
	svc := newTestService(router, producer, "")

	require.NoError(t, svc.HandleMessage(context.Background(), gelf(t, map[string]interface{}{
		"host": "web01", "short_message": "upstream timed out", "facility": "nginx", "level": 2,
	})))

	require.Len(t, producer.msgs, 1)
	var out models.RoutedMessage
	require.NoError(t, json.Unmarshal(producer.msgs[0].Value, &out))
	assert.Equal(t, []string{"nginx-errors"}, out.StreamIDs)
}
