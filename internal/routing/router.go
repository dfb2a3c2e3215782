package routing

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"streamrouter/internal/logger"
	pkgerrors "streamrouter/pkg/errors"
	"streamrouter/pkg/logging"
	"streamrouter/pkg/metrics"
	"streamrouter/pkg/models"
	"streamrouter/pkg/tracing"
)

const tracerName = "stream-router"

// Router decides which enabled streams a message belongs to.
type Router struct {
	cache    *StreamCache
	registry *Registry
	logger   logger.Logger
}

func NewRouter(cache *StreamCache, registry *Registry, log logger.Logger) *Router {
	return &Router{
		cache:    cache,
		registry: registry,
		logger:   log,
	}
}

// Route returns every enabled stream whose rules all match msg. A rule that
// cannot be evaluated excludes its own stream and nothing else. The only
// error is one wrapping ErrNoSnapshot. The returned streams are copies and
// may be modified by the caller.
func (r *Router) Route(ctx context.Context, msg *models.Message) ([]Stream, error) {
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "routing.route")
	defer span.End()

	start := time.Now()
	snapshot, err := r.cache.Get(ctx)
	if err != nil {
		span.RecordError(err)
		metrics.IncRoutingMessages("error")
		metrics.ObserveRoutingDuration(time.Since(start), "error")
		return nil, err
	}

	matched := make([]Stream, 0)
	for _, stream := range snapshot.Streams {
		if r.matchStream(ctx, msg, stream) {
			matched = append(matched, stream.Clone())
			metrics.IncStreamMatch(stream.ID)
		}
	}

	status := "routed"
	if len(matched) == 0 {
		status = "unrouted"
	}
	metrics.IncRoutingMessages(status)
	metrics.ObserveRoutingDuration(time.Since(start), status)
	span.SetAttributes(
		attribute.Int("routing.streams_evaluated", snapshot.Len()),
		attribute.Int("routing.streams_matched", len(matched)),
	)

	return matched, nil
}

func (r *Router) matchStream(ctx context.Context, msg *models.Message, stream Stream) bool {
	if len(stream.Rules) == 0 {
		return false
	}

	for _, rule := range stream.Rules {
		ok, err := r.evaluate(msg, rule)
		if err != nil {
			r.reportFault(ctx, stream, rule, err)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

func (r *Router) evaluate(msg *models.Message, rule StreamRule) (matched bool, err error) {
	return EvaluateRule(r.registry, msg, rule)
}

// EvaluateRule resolves the matcher for rule and applies it, honouring
// Inverted. A panicking matcher is reported as an error.
func EvaluateRule(registry *Registry, msg *models.Message, rule StreamRule) (matched bool, err error) {
	matcher, err := registry.Lookup(rule.Type)
	if err != nil {
		return false, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			matched, err = false, pkgerrors.RecoverPanic(rec)
		}
	}()

	matched, err = matcher.Match(msg, rule)
	if err != nil {
		return false, err
	}
	if rule.Inverted {
		matched = !matched
	}
	return matched, nil
}

func (r *Router) reportFault(ctx context.Context, stream Stream, rule StreamRule, err error) {
	reason := "matcher_error"
	switch {
	case errors.Is(err, ErrInvalidRuleType):
		reason = "invalid_rule_type"
	case errors.Is(err, ErrInvalidPattern):
		reason = "invalid_pattern"
	case errors.Is(err, ErrInvalidRuleValue):
		reason = "invalid_rule_value"
	case pkgerrors.IsFatal(err):
		reason = "panic"
	}
	metrics.IncRuleFault(rule.Type.String(), reason)

	ctx = logging.WithStreamID(ctx, stream.ID)
	r.logger.WarnwCtx(ctx, "Stream rule could not be evaluated, excluding stream",
		"rule_id", rule.ID,
		"rule_type", rule.Type.String(),
		"reason", reason,
		"error", err,
	)
}

// RuleResult is the outcome of one rule in Explain.
type RuleResult struct {
	RuleID  string   `json:"rule_id"`
	Type    RuleType `json:"type"`
	Matched bool     `json:"matched"`
	Error   string   `json:"error,omitempty"`
}

// Explanation reports how a stream evaluated against a message.
type Explanation struct {
	StreamID string       `json:"stream_id"`
	Matched  bool         `json:"matched"`
	Rules    []RuleResult `json:"rules"`
}

// Explain evaluates every rule of stream without short-circuiting. The
// overall result follows the same rules as Route.
func Explain(registry *Registry, msg *models.Message, stream Stream) Explanation {
	out := Explanation{
		StreamID: stream.ID,
		Matched:  len(stream.Rules) > 0,
		Rules:    make([]RuleResult, 0, len(stream.Rules)),
	}

	for _, rule := range stream.Rules {
		res := RuleResult{RuleID: rule.ID, Type: rule.Type}
		ok, err := EvaluateRule(registry, msg, rule)
		if err != nil {
			res.Error = err.Error()
		}
		res.Matched = ok
		if !ok {
			out.Matched = false
		}
		out.Rules = append(out.Rules, res)
	}
	return out
}
