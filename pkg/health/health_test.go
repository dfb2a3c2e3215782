package health

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckerRegistry(t *testing.T) {
	healthy := NewFuncChecker("ok", func(context.Context) error { return nil })
	degraded := NewFuncChecker("stale", func(context.Context) error {
		return fmt.Errorf("%w: snapshot expired", ErrDegraded)
	})
	broken := NewFuncChecker("down", func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name     string
		checkers []Checker
		want     Status
	}{
		{name: "no checkers", want: StatusHealthy},
		{name: "all healthy", checkers: []Checker{healthy}, want: StatusHealthy},
		{name: "degraded", checkers: []Checker{healthy, degraded}, want: StatusDegraded},
		{name: "unhealthy wins", checkers: []Checker{degraded, broken}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewCheckerRegistry()
			for _, c := range tt.checkers {
				registry.Register(c)
			}

			h := registry.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, len(tt.checkers))
		})
	}
}

func TestCheckerRegistry_ReportsMessages(t *testing.T) {
	registry := NewCheckerRegistry()
	registry.Register(NewFuncChecker("down", func(context.Context) error { return errors.New("connection refused") }))

	h := registry.Check(context.Background())
	require.Contains(t, h.Checks, "down")
	assert.Equal(t, StatusUnhealthy, h.Checks["down"].Status)
	assert.Equal(t, "connection refused", h.Checks["down"].Message)
}

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	checker := NewRedisChecker(client)
	assert.Equal(t, "redis", checker.Name())
	assert.NoError(t, checker.Check(context.Background()))

	mr.Close()
	assert.Error(t, checker.Check(context.Background()))
}
