package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/polkiloo/orderflow/internal/dispatch"
	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

// Publisher writes order events to per-lane topics. Messages are keyed by
// order id so all events of one order land in the same partition.
type Publisher struct {
	writers [model.PriorityCount]*kafkago.Writer
	logger  *slog.Logger
}

// NewPublisher builds one writer per priority lane.
func NewPublisher(brokers []string, topicPrefix string, logger *slog.Logger) *Publisher {
	p := &Publisher{logger: logger}
	for i := range p.writers {
		p.writers[i] = &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Topic:                  laneTopic(topicPrefix, model.PriorityClass(i)),
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireAll,
			AllowAutoTopicCreation: true,
		}
	}
	return p
}

// Publish appends the event to its lane topic.
func (p *Publisher) Publish(ctx context.Context, event *model.OrderEvent) error {
	if event == nil {
		return fmt.Errorf("nil event: %w", domainErrors.ErrValidation)
	}
	if !event.Priority.Valid() {
		return fmt.Errorf("priority %d: %w", event.Priority, domainErrors.ErrValidation)
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.writers[event.Priority].WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.OrderID),
		Value: value,
	})
}

// Close flushes and closes all lane writers.
func (p *Publisher) Close() error {
	var firstErr error
	for _, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// deadLetterRecord is the wire form of a dead letter on the DLT topic.
type deadLetterRecord struct {
	Event  *model.OrderEvent `json:"event"`
	Reason string            `json:"reason"`
	At     time.Time         `json:"at"`
}

// DeadLetterPublisher records given-up events on a dead letter topic so they
// survive process restarts and can be inspected or replayed.
type DeadLetterPublisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

var _ dispatch.DeadLetterSink = (*DeadLetterPublisher)(nil)

func NewDeadLetterPublisher(brokers []string, topicPrefix string, logger *slog.Logger) *DeadLetterPublisher {
	return &DeadLetterPublisher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Topic:                  deadLetterTopic(topicPrefix),
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

// Publish writes one dead letter to the DLT topic.
func (p *DeadLetterPublisher) Publish(ctx context.Context, letter dispatch.DeadLetter) error {
	value, err := json.Marshal(deadLetterRecord{Event: letter.Event, Reason: letter.Reason, At: letter.At})
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	msg := kafkago.Message{
		Value:   value,
		Headers: []kafkago.Header{{Key: "reason", Value: []byte(letter.Reason)}},
	}
	if letter.Event != nil {
		msg.Key = []byte(letter.Event.OrderID)
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *DeadLetterPublisher) Close() error {
	return p.writer.Close()
}
