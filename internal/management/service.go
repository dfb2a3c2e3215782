package management

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"streamrouter/internal/constants"
	"streamrouter/internal/logger"
	"streamrouter/internal/routing"
	"streamrouter/pkg/cel"
	pkgerrors "streamrouter/pkg/errors"
	"streamrouter/pkg/middleware"
	"streamrouter/pkg/models"
)

type service struct {
	repo                Repository
	validator           *Validator
	registry            *routing.Registry
	configEventProducer *ConfigEventProducer
	audit               AuditLog
	logger              logger.Logger
}

type ServiceOption func(*service)

func WithConfigEvents(configEventProducer *ConfigEventProducer) ServiceOption {
	return func(s *service) {
		s.configEventProducer = configEventProducer
	}
}

func WithAuditLog(audit AuditLog) ServiceOption {
	return func(s *service) {
		s.audit = audit
	}
}

func WithLogger(log logger.Logger) ServiceOption {
	return func(s *service) {
		s.logger = log
	}
}

func NewService(repo Repository, registry *routing.Registry, patterns *routing.PatternCache, opts ...ServiceOption) Service {
	s := &service{
		repo:      repo,
		validator: NewValidator(registry, patterns),
		registry:  registry,
		logger:    logger.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) ListStreams(ctx context.Context) ([]routing.Stream, error) {
	streams, err := s.repo.ListStreams(ctx)
	if err != nil {
		return nil, wrapRepoError(err)
	}
	return streams, nil
}

func (s *service) GetStream(ctx context.Context, id string) (*routing.Stream, error) {
	stream, err := s.repo.GetStream(ctx, id)
	if err != nil {
		return nil, wrapRepoError(err)
	}
	return stream, nil
}

func (s *service) CreateStream(ctx context.Context, req CreateStreamRequest) (*routing.Stream, error) {
	if err := s.validator.ValidateCreateStream(req); err != nil {
		return nil, err
	}

	stream := &routing.Stream{
		Title:       req.Title,
		Description: req.Description,
		Disabled:    req.Disabled,
		Rules:       make([]routing.StreamRule, 0, len(req.Rules)),
	}
	for _, r := range req.Rules {
		stream.Rules = append(stream.Rules, routing.StreamRule{
			Type:        r.Type,
			Value:       r.Value,
			Inverted:    r.Inverted,
			Description: r.Description,
		})
	}

	if err := s.repo.CreateStream(ctx, stream); err != nil {
		return nil, wrapRepoError(err)
	}

	s.recordAudit(ctx, stream.ID, "", models.ActionCreate, nil, stream)
	s.publishStreamEvent(ctx, models.ActionCreate, stream.ID)
	return stream, nil
}

func (s *service) UpdateStream(ctx context.Context, id string, req UpdateStreamRequest) (*routing.Stream, error) {
	if err := s.validator.ValidateUpdateStream(req); err != nil {
		return nil, err
	}

	stream, err := s.repo.GetStream(ctx, id)
	if err != nil {
		return nil, wrapRepoError(err)
	}
	old := *stream

	if req.Title != nil {
		stream.Title = *req.Title
	}
	if req.Description != nil {
		stream.Description = *req.Description
	}

	if err := s.repo.UpdateStream(ctx, stream); err != nil {
		return nil, wrapRepoError(err)
	}

	s.recordAudit(ctx, id, "", models.ActionUpdate, &old, stream)
	s.publishStreamEvent(ctx, models.ActionUpdate, id)
	return stream, nil
}

func (s *service) DeleteStream(ctx context.Context, id string) error {
	stream, err := s.repo.GetStream(ctx, id)
	if err != nil {
		return wrapRepoError(err)
	}

	if err := s.repo.DeleteStream(ctx, id); err != nil {
		return wrapRepoError(err)
	}

	s.recordAudit(ctx, id, "", models.ActionDelete, stream, nil)
	s.publishStreamEvent(ctx, models.ActionDelete, id)
	return nil
}

func (s *service) PauseStream(ctx context.Context, id string) (*routing.Stream, error) {
	return s.setDisabled(ctx, id, true, models.ActionPause)
}

func (s *service) ResumeStream(ctx context.Context, id string) (*routing.Stream, error) {
	return s.setDisabled(ctx, id, false, models.ActionResume)
}

func (s *service) setDisabled(ctx context.Context, id string, disabled bool, action string) (*routing.Stream, error) {
	if err := s.repo.SetStreamDisabled(ctx, id, disabled); err != nil {
		return nil, wrapRepoError(err)
	}

	stream, err := s.repo.GetStream(ctx, id)
	if err != nil {
		return nil, wrapRepoError(err)
	}

	s.recordAudit(ctx, id, "", action, nil, map[string]interface{}{"disabled": disabled})
	s.publishStreamEvent(ctx, action, id)
	return stream, nil
}

func (s *service) CreateRule(ctx context.Context, streamID string, req CreateRuleRequest) (*routing.StreamRule, error) {
	rule := &routing.StreamRule{
		StreamID:    streamID,
		Type:        req.Type,
		Value:       req.Value,
		Inverted:    req.Inverted,
		Description: req.Description,
	}
	if err := s.validator.ValidateRule(*rule); err != nil {
		return nil, err
	}

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, wrapRepoError(err)
	}

	s.recordAudit(ctx, streamID, rule.ID, models.ActionCreate, nil, rule)
	s.publishRuleEvent(ctx, models.ActionCreate, streamID, rule.ID)
	return rule, nil
}

func (s *service) UpdateRule(ctx context.Context, streamID, ruleID string, req UpdateRuleRequest) (*routing.StreamRule, error) {
	rule, err := s.findRule(ctx, streamID, ruleID)
	if err != nil {
		return nil, err
	}
	old := *rule

	if req.Type != nil {
		rule.Type = *req.Type
	}
	if req.Value != nil {
		rule.Value = *req.Value
	}
	if req.Inverted != nil {
		rule.Inverted = *req.Inverted
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}

	if err := s.validator.ValidateRule(*rule); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, wrapRepoError(err)
	}

	s.recordAudit(ctx, streamID, ruleID, models.ActionUpdate, &old, rule)
	s.publishRuleEvent(ctx, models.ActionUpdate, streamID, ruleID)
	return rule, nil
}

func (s *service) DeleteRule(ctx context.Context, streamID, ruleID string) error {
	rule, err := s.findRule(ctx, streamID, ruleID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteRule(ctx, streamID, ruleID); err != nil {
		return wrapRepoError(err)
	}

	s.recordAudit(ctx, streamID, ruleID, models.ActionDelete, rule, nil)
	s.publishRuleEvent(ctx, models.ActionDelete, streamID, ruleID)
	return nil
}

// TestStream evaluates msg against one stream, paused or not, and reports
// every rule. A missing timestamp is taken as now.
func (s *service) TestStream(ctx context.Context, id string, msg *models.Message) (*routing.Explanation, error) {
	if err := models.ValidateMessage(msg); err != nil {
		return nil, pkgerrors.ErrValidation.WithCause(err).WithDetail("message", err.Error())
	}

	stream, err := s.repo.GetStream(ctx, id)
	if err != nil {
		return nil, wrapRepoError(err)
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	explanation := routing.Explain(s.registry, msg, *stream)
	return &explanation, nil
}

func (s *service) RuleTypes() RuleTypesResponse {
	return RuleTypesResponse{
		Types:              routing.DescribeRuleTypes(s.registry),
		ExpressionExamples: cel.RuleExpressionExamples,
	}
}

func (s *service) GetAuditLogs(ctx context.Context, streamID string, limit int) ([]models.AuditEntry, error) {
	if s.audit == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "audit logging not enabled")
	}
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}
	entries, err := s.audit.List(ctx, streamID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return entries, nil
}

func (s *service) findRule(ctx context.Context, streamID, ruleID string) (*routing.StreamRule, error) {
	stream, err := s.repo.GetStream(ctx, streamID)
	if err != nil {
		return nil, wrapRepoError(err)
	}
	for i := range stream.Rules {
		if stream.Rules[i].ID == ruleID {
			rule := stream.Rules[i]
			return &rule, nil
		}
	}
	return nil, pkgerrors.ErrNotFound.WithDetail("message", "stream rule '"+ruleID+"' not found")
}

func (s *service) recordAudit(ctx context.Context, streamID, ruleID, action string, oldValue, newValue interface{}) {
	if s.audit == nil {
		return
	}

	entry := &models.AuditEntry{
		StreamID:  streamID,
		RuleID:    ruleID,
		Action:    action,
		OldValue:  toMap(oldValue),
		NewValue:  toMap(newValue),
		ChangedBy: middleware.ActorFromContext(ctx),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to record audit entry",
			"error", err,
			"stream_id", streamID,
			"action", action,
		)
	}
}

func (s *service) publishStreamEvent(ctx context.Context, action, streamID string) {
	if s.configEventProducer == nil {
		return
	}
	if err := s.configEventProducer.PublishStreamEvent(ctx, action, streamID, middleware.ActorFromContext(ctx)); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to publish config update event",
			"error", err,
			"stream_id", streamID,
			"action", action,
		)
	}
}

func (s *service) publishRuleEvent(ctx context.Context, action, streamID, ruleID string) {
	if s.configEventProducer == nil {
		return
	}
	if err := s.configEventProducer.PublishStreamRuleEvent(ctx, action, streamID, ruleID, middleware.ActorFromContext(ctx)); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to publish config update event",
			"error", err,
			"stream_id", streamID,
			"rule_id", ruleID,
			"action", action,
		)
	}
}

func toMap(v interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// wrapRepoError keeps API errors from the repository and hides the rest
// behind ErrInternal.
func wrapRepoError(err error) error {
	var appErr *pkgerrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
}
