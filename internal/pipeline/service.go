package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"streamrouter/internal/broker"
	"streamrouter/internal/logger"
	"streamrouter/internal/routing"
	pkgerrors "streamrouter/pkg/errors"
	"streamrouter/pkg/logging"
	"streamrouter/pkg/models"
	"streamrouter/pkg/tracing"
)

type Router interface {
	Route(ctx context.Context, msg *models.Message) ([]routing.Stream, error)
}

type Options struct {
	OutputTopic     string
	DefaultStreamID string
	Clock           clockwork.Clock
}

// Service turns raw GELF records from the input topic into routed messages
// on the output topic.
type Service struct {
	router   Router
	producer broker.Producer
	opts     Options
	logger   logger.Logger
}

func NewService(router Router, producer broker.Producer, opts Options, log logger.Logger) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Service{
		router:   router,
		producer: producer,
		opts:     opts,
		logger:   log,
	}
}

// HandleMessage is a broker.HandlerFunc. Undecodable or invalid messages are
// returned as fatal so they go straight to the dead letter topic.
func (s *Service) HandleMessage(ctx context.Context, in broker.Message) error {
	ctx, span := tracing.GetTracer("router-service").Start(ctx, "pipeline.handle_message")
	defer span.End()

	msg, err := s.decode(in)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Rejecting message", "error", err)
		return err
	}
	ctx = logging.WithMessageID(ctx, msg.ID)

	streams, err := s.router.Route(ctx, msg)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, routing.ErrNoSnapshot) {
			return pkgerrors.ErrNoRoutingSnapshot.WithCause(err).AsRetryable()
		}
		return err
	}

	ids := make([]string, 0, len(streams))
	for _, stream := range streams {
		ids = append(ids, stream.ID)
	}
	if len(ids) == 0 {
		if s.opts.DefaultStreamID == "" {
			s.logger.DebugwCtx(ctx, "Message matched no stream, dropping")
			return nil
		}
		ids = append(ids, s.opts.DefaultStreamID)
	}

	routed := models.RoutedMessage{
		Message:   msg,
		StreamIDs: ids,
		RoutedAt:  s.opts.Clock.Now().UTC(),
	}
	if err := broker.PublishJSON(ctx, s.producer, s.opts.OutputTopic, msg.ID, routed); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to publish routed message",
			"error", err,
			"output_topic", s.opts.OutputTopic,
		)
		return err
	}

	s.logger.DebugwCtx(ctx, "Message routed", "streams", ids)
	return nil
}

func (s *Service) decode(in broker.Message) (*models.Message, error) {
	var msg models.Message
	if err := json.Unmarshal(in.Value, &msg); err != nil {
		return nil, pkgerrors.ErrValidation.
			WithCause(fmt.Errorf("decode GELF payload: %w", err)).
			WithDetail("reason", "malformed payload")
	}

	if err := models.ValidateMessage(&msg); err != nil {
		appErr := pkgerrors.ErrValidation.WithCause(err)
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			appErr = appErr.WithDetail("field", vErr.Field)
		}
		return nil, appErr
	}

	if msg.ID == "" {
		if len(in.Key) > 0 {
			msg.ID = string(in.Key)
		} else {
			msg.ID = uuid.NewString()
		}
	}
	return &msg, nil
}
