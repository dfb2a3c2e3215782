package broker

import (
	"context"
	"encoding/json"
	"fmt"
)

// PublishJSON encodes v and publishes it under key.
func PublishJSON(ctx context.Context, p Producer, topic, key string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return p.Publish(ctx, topic, Message{Key: []byte(key), Value: body})
}
