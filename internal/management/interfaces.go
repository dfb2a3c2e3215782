package management

import (
	"context"

	"streamrouter/internal/routing"
	"streamrouter/pkg/models"
)

type Service interface {
	ListStreams(ctx context.Context) ([]routing.Stream, error)
	GetStream(ctx context.Context, id string) (*routing.Stream, error)
	CreateStream(ctx context.Context, req CreateStreamRequest) (*routing.Stream, error)
	UpdateStream(ctx context.Context, id string, req UpdateStreamRequest) (*routing.Stream, error)
	DeleteStream(ctx context.Context, id string) error
	PauseStream(ctx context.Context, id string) (*routing.Stream, error)
	ResumeStream(ctx context.Context, id string) (*routing.Stream, error)

	CreateRule(ctx context.Context, streamID string, req CreateRuleRequest) (*routing.StreamRule, error)
	UpdateRule(ctx context.Context, streamID, ruleID string, req UpdateRuleRequest) (*routing.StreamRule, error)
	DeleteRule(ctx context.Context, streamID, ruleID string) error

	TestStream(ctx context.Context, id string, msg *models.Message) (*routing.Explanation, error)
	RuleTypes() RuleTypesResponse
	GetAuditLogs(ctx context.Context, streamID string, limit int) ([]models.AuditEntry, error)
}
