package management

import (
	"context"

	"streamrouter/internal/routing"
	"streamrouter/pkg/models"
)

// Repository is the stream catalogue the API edits. Missing streams and
// rules are reported as pkg/errors.ErrNotFound.
type Repository interface {
	ListStreams(ctx context.Context) ([]routing.Stream, error)
	GetStream(ctx context.Context, id string) (*routing.Stream, error)
	CreateStream(ctx context.Context, stream *routing.Stream) error
	UpdateStream(ctx context.Context, stream *routing.Stream) error
	SetStreamDisabled(ctx context.Context, id string, disabled bool) error
	DeleteStream(ctx context.Context, id string) error

	CreateRule(ctx context.Context, rule *routing.StreamRule) error
	UpdateRule(ctx context.Context, rule *routing.StreamRule) error
	DeleteRule(ctx context.Context, streamID, ruleID string) error
}

type AuditLog interface {
	Record(ctx context.Context, entry *models.AuditEntry) error
	List(ctx context.Context, streamID string, limit int) ([]models.AuditEntry, error)
}
