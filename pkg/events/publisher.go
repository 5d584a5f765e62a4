// Package events carries mark mutation events over watermill.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/marks-api/pkg/logger"
)

// MarkEventType names a mark mutation.
type MarkEventType string

const (
	MarkCreated MarkEventType = "mark.created"
	MarkUpdated MarkEventType = "mark.updated"
	MarkDeleted MarkEventType = "mark.deleted"
)

// MarkEvent is published after a mark record changes.
type MarkEvent struct {
	ID         string        `json:"id"`
	Type       MarkEventType `json:"type"`
	RecordID   string        `json:"record_id"`
	StudentID  string        `json:"student_id"`
	Category   string        `json:"category"`
	Total      float64       `json:"total"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewMarkEvent stamps an event with an ID and timestamp.
func NewMarkEvent(t MarkEventType, recordID, studentID, category string, total float64) *MarkEvent {
	return &MarkEvent{
		ID:         uuid.NewString(),
		Type:       t,
		RecordID:   recordID,
		StudentID:  studentID,
		Category:   category,
		Total:      total,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher emits mark events.
type Publisher interface {
	PublishMarkEvent(ctx context.Context, event *MarkEvent) error
	Close() error
}

// WatermillPublisher publishes JSON encoded events to a watermill topic.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *zap.Logger
}

// NewWatermillPublisher wraps any watermill publisher.
func NewWatermillPublisher(publisher message.Publisher, topic string, log *zap.Logger) *WatermillPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &WatermillPublisher{publisher: publisher, topic: topic, logger: log}
}

// NewKafkaPublisher builds a publisher writing to Kafka.
func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) (*WatermillPublisher, error) {
	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger.Watermill(log))
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	return NewWatermillPublisher(pub, topic, log), nil
}

// NewInMemoryBus returns an in-process pub/sub usable as both publisher and subscriber.
func NewInMemoryBus(log *zap.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger.Watermill(log))
}

// PublishMarkEvent implements Publisher.
func (p *WatermillPublisher) PublishMarkEvent(ctx context.Context, event *MarkEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal mark event: %w", err)
	}
	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("student_id", event.StudentID)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		p.logger.Warn("publish mark event failed", zap.String("event_id", event.ID), zap.String("type", string(event.Type)), zap.Error(err))
		return fmt.Errorf("publish mark event: %w", err)
	}
	return nil
}

// Close releases the underlying publisher.
func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// Handler reacts to a consumed event.
type Handler func(ctx context.Context, event MarkEvent) error

// Consume subscribes to topic and feeds decoded events to handler until ctx ends.
// Messages are acked even when the handler fails.
func Consume(ctx context.Context, sub message.Subscriber, topic string, handler Handler, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	go func() {
		for msg := range messages {
			var event MarkEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				log.Warn("drop malformed mark event", zap.String("message_id", msg.UUID), zap.Error(err))
				msg.Ack()
				continue
			}
			if err := handler(msg.Context(), event); err != nil {
				log.Warn("mark event handler failed", zap.String("event_id", event.ID), zap.Error(err))
			}
			msg.Ack()
		}
	}()
	return nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishMarkEvent(context.Context, *MarkEvent) error { return nil }
func (NopPublisher) Close() error                                       { return nil }

// RecordingPublisher keeps events in memory; used in tests.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []MarkEvent
	Err    error
}

func (r *RecordingPublisher) PublishMarkEvent(_ context.Context, event *MarkEvent) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *RecordingPublisher) Close() error { return nil }

// Events returns a copy of recorded events.
func (r *RecordingPublisher) Events() []MarkEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MarkEvent, len(r.events))
	copy(out, r.events)
	return out
}
