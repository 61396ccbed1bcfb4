package watermill

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/viant/procflow/service/event"
)

// Metadata keys set on published messages
const (
	MetadataType         = "event_type"
	MetadataInstanceID   = "instance_id"
	MetadataDefinitionID = "definition_id"
)

var codec = sonic.ConfigStd

// Publisher publishes lifecycle events as JSON messages on a watermill publisher
type Publisher struct {
	publisher message.Publisher
	topic     func(e *event.Event) string
}

var _ event.Publisher = (*Publisher)(nil)

// Publish encodes e and publishes it on the event topic
func (p *Publisher) Publish(ctx context.Context, e *event.Event) error {
	payload, err := codec.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", e.ID, err)
	}
	msg := message.NewMessage(e.ID, payload)
	msg.Metadata.Set(MetadataType, string(e.Type))
	msg.Metadata.Set(MetadataInstanceID, e.InstanceID)
	msg.Metadata.Set(MetadataDefinitionID, e.DefinitionID)
	msg.SetContext(ctx)
	if err = p.publisher.Publish(p.topic(e), msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", e.ID, err)
	}
	return nil
}

// Close closes the underlying publisher
func (p *Publisher) Close() error {
	return p.publisher.Close()
}

// Decode decodes a message published by Publisher
func Decode(msg *message.Message) (*event.Event, error) {
	e := &event.Event{}
	if err := codec.Unmarshal(msg.Payload, e); err != nil {
		return nil, err
	}
	return e, nil
}

// New creates a publisher sending every event to topic
func New(publisher message.Publisher, topic string, options ...Option) *Publisher {
	ret := &Publisher{publisher: publisher, topic: func(*event.Event) string { return topic }}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Option configures a Publisher
type Option func(p *Publisher)

// WithTopicPerDefinition publishes events on prefix + definition id
func WithTopicPerDefinition(prefix string) Option {
	return func(p *Publisher) {
		p.topic = func(e *event.Event) string { return prefix + e.DefinitionID }
	}
}
