package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"streamrouter/internal/config"
	"streamrouter/pkg/logging"
)

func TestNew(t *testing.T) {
	log, err := New(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)
	log.(*SugaredLogger).SetServiceName("router-service")

	ctx := logging.WithMessageID(context.Background(), "msg-1")
	ctx = logging.WithStreamID(ctx, "stream-9")
	log.InfowCtx(ctx, "routed", "streams", 2)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "msg-1", fields["message_id"])
	assert.Equal(t, "stream-9", fields["stream_id"])
	assert.Equal(t, "router-service", fields["service_name"])
	assert.EqualValues(t, 2, fields["streams"])
}

func TestContextServiceNameWins(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)
	log.(*SugaredLogger).SetServiceName("default")

	log.WarnwCtx(logging.WithServiceName(context.Background(), "config-consumer"), "lagging")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "config-consumer", logs.All()[0].ContextMap()["service_name"])
}
