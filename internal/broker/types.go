package broker

import (
	"context"
	"time"
)

// Message is a broker record as the handlers see it. Value holds the raw
// payload; decoding is up to the handler.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Time      time.Time
}

type Producer interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

// HandlerFunc processes one message. Returning a fatal error (see
// retry.NewFatalError) skips the remaining attempts and sends the message
// to the dead letter topic.
type HandlerFunc func(ctx context.Context, msg Message) error
