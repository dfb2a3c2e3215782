package config_handler

import (
	"context"
	"encoding/json"

	"streamrouter/internal/broker"
	"streamrouter/internal/logger"
	"streamrouter/pkg/metrics"
	"streamrouter/pkg/models"
)

// Invalidator drops the in-process stream snapshot.
type Invalidator interface {
	Invalidate()
}

// SharedInvalidator drops a snapshot copy shared between instances.
type SharedInvalidator interface {
	Invalidate(ctx context.Context) error
}

type Reloader interface {
	Reload(ctx context.Context) error
}

type Handler struct {
	eventTypes          map[string]struct{}
	expectedServiceType string
	invalidator         Invalidator
	shared              SharedInvalidator
	reloader            Reloader
	logger              logger.Logger
}

func NewHandler(expectedServiceType string, invalidator Invalidator, log logger.Logger, eventTypes ...string) *Handler {
	if len(eventTypes) == 0 {
		eventTypes = []string{models.EventTypeStreamUpdated, models.EventTypeStreamRuleUpdated}
	}
	types := make(map[string]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = struct{}{}
	}
	return &Handler{
		eventTypes:          types,
		expectedServiceType: expectedServiceType,
		invalidator:         invalidator,
		logger:              log,
	}
}

func (h *Handler) WithShared(shared SharedInvalidator) *Handler {
	h.shared = shared
	return h
}

// WithReloader makes the handler refresh eagerly after invalidating instead
// of leaving the reload to the next routed message.
func (h *Handler) WithReloader(reloader Reloader) *Handler {
	h.reloader = reloader
	return h
}

func (h *Handler) HandleConfigUpdateEvent(ctx context.Context, msg broker.Message) error {
	var event models.ConfigUpdateEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.WarnwCtx(ctx, "Ignoring malformed config event", "error", err, "key", string(msg.Key))
		return nil
	}

	if event.EventType == "" {
		h.logger.WarnwCtx(ctx, "Config event missing event_type", "key", string(msg.Key))
		return nil
	}
	if _, ok := h.eventTypes[event.EventType]; !ok {
		return nil
	}

	if event.ServiceType == "" {
		h.logger.WarnwCtx(ctx, "Config event missing service_type", "key", string(msg.Key))
		return nil
	}
	if event.ServiceType != h.expectedServiceType {
		return nil
	}

	h.logger.InfowCtx(ctx, "Received config update event",
		"event_type", event.EventType,
		"action", event.Action,
		"stream_id", event.StreamID,
		"rule_id", event.RuleID,
	)

	// Shared copy first, so a reload cannot pick the old snapshot back up.
	if h.shared != nil {
		if err := h.shared.Invalidate(ctx); err != nil {
			h.logger.WarnwCtx(ctx, "Failed to invalidate shared stream snapshot", "error", err)
		}
	}

	if h.invalidator != nil {
		h.invalidator.Invalidate()
		metrics.IncStreamCacheInvalidation("event")
	}

	if h.reloader != nil {
		if err := h.reloader.Reload(ctx); err != nil {
			h.logger.WarnwCtx(ctx, "Stream reload after config update failed", "error", err)
			return nil
		}
		h.logger.InfowCtx(ctx, "Streams reloaded after config update", "action", event.Action)
	}

	return nil
}
