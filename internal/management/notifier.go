package management

import (
	"context"

	"github.com/jonboulle/clockwork"

	"streamrouter/internal/broker"
	"streamrouter/pkg/models"
)

// ConfigEventProducer tells router instances that the stream catalogue
// changed. Events are keyed by stream id so one stream's changes stay ordered.
type ConfigEventProducer struct {
	producer broker.Producer
	topic    string
	clock    clockwork.Clock
}

func NewConfigEventProducer(producer broker.Producer, topic string) *ConfigEventProducer {
	return &ConfigEventProducer{
		producer: producer,
		topic:    topic,
		clock:    clockwork.NewRealClock(),
	}
}

func (p *ConfigEventProducer) PublishStreamEvent(ctx context.Context, action, streamID, changedBy string) error {
	return p.publishEvent(ctx, models.ConfigUpdateEvent{
		EventType:   models.EventTypeStreamUpdated,
		ServiceType: models.ServiceTypeRouting,
		StreamID:    streamID,
		Action:      action,
		Timestamp:   p.clock.Now().UTC(),
		ChangedBy:   changedBy,
	})
}

func (p *ConfigEventProducer) PublishStreamRuleEvent(ctx context.Context, action, streamID, ruleID, changedBy string) error {
	return p.publishEvent(ctx, models.ConfigUpdateEvent{
		EventType:   models.EventTypeStreamRuleUpdated,
		ServiceType: models.ServiceTypeRouting,
		StreamID:    streamID,
		RuleID:      ruleID,
		Action:      action,
		Timestamp:   p.clock.Now().UTC(),
		ChangedBy:   changedBy,
	})
}

func (p *ConfigEventProducer) publishEvent(ctx context.Context, event models.ConfigUpdateEvent) error {
	if p == nil || p.producer == nil || p.topic == "" {
		return nil
	}
	return broker.PublishJSON(ctx, p.producer, p.topic, event.StreamID, event)
}
