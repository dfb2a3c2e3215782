package models

import "time"

type MessageBuilder struct {
	msg *Message
}

func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		msg: &Message{
			Version: gelfVersion,
			Fields:  make(map[string]interface{}),
		},
	}
}

func (b *MessageBuilder) WithID(id string) *MessageBuilder {
	b.msg.ID = id
	return b
}

func (b *MessageBuilder) WithHost(host string) *MessageBuilder {
	b.msg.Host = host
	return b
}

func (b *MessageBuilder) WithShortMessage(text string) *MessageBuilder {
	b.msg.ShortMessage = text
	return b
}

func (b *MessageBuilder) WithFullMessage(text string) *MessageBuilder {
	b.msg.FullMessage = text
	return b
}

func (b *MessageBuilder) WithTimestamp(ts time.Time) *MessageBuilder {
	b.msg.Timestamp = ts
	return b
}

func (b *MessageBuilder) WithLevel(level int) *MessageBuilder {
	b.msg.Level = &level
	return b
}

func (b *MessageBuilder) WithFacility(facility string) *MessageBuilder {
	b.msg.Facility = facility
	return b
}

func (b *MessageBuilder) WithFileLine(file string, line int) *MessageBuilder {
	b.msg.File = file
	b.msg.Line = &line
	return b
}

func (b *MessageBuilder) WithField(name string, value interface{}) *MessageBuilder {
	b.msg.Fields[name] = value
	return b
}

func (b *MessageBuilder) Build() *Message {
	if b.msg.Timestamp.IsZero() {
		b.msg.Timestamp = time.Now().UTC()
	}
	return b.msg
}
