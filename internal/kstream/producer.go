package kstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"tourbook-backend/internal/model"
)

// Publisher emits domain events after a booking or review mutation. Callers
// log a publish failure and carry on; the user action has already succeeded.
type Publisher interface {
	Publish(ctx context.Context, evt model.Event) error
}

// NewEvent stamps a fresh id and occurrence time onto an event.
func NewEvent(typ model.EventType, tourID, vendorID, customerID, entityID string) model.Event {
	return model.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		TourID:     tourID,
		VendorID:   vendorID,
		CustomerID: customerID,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// kafkaWriter constructs a Kafka producer using segmentio/kafka-go library.
// kafka.Writer batches asynchronously; delivery errors surface in Completion.
func kafkaWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(broker), // segmentio/kafka-go: TCP address for Kafka broker
		Topic:        topic,             // Target Kafka topic name
		Balancer:     &kafka.Hash{},     // segmentio/kafka-go: same key, same partition
		RequiredAcks: kafka.RequireOne,  // segmentio/kafka-go: Wait for leader ack only
		Async:        true,              // segmentio/kafka-go: Non-blocking writes
		BatchTimeout: 50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Printf("Kafka: failed to deliver %d message(s) to %s: %v", len(messages), topic, err)
			}
		},
	}
}

// KafkaPublisher keeps one writer per topic for the life of the process.
type KafkaPublisher struct {
	broker string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewKafkaPublisher(broker string) *KafkaPublisher {
	return &KafkaPublisher{broker: broker, writers: make(map[string]*kafka.Writer)}
}

func (p *KafkaPublisher) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.writers[topic]
	if !ok {
		w = kafkaWriter(p.broker, topic)
		p.writers[topic] = w
	}
	return w
}

// Publish writes evt to its topic keyed by tour id so events of one tour stay
// ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, evt model.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.ID, err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.TourID),
		Value: data,
		Time:  time.Now(),
	}
	// segmentio/kafka-go: WriteMessages publishes message to Kafka broker asynchronously.
	return p.writer(evt.Type.Topic()).WriteMessages(ctx, msg)
}

// Close flushes and closes every writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var first error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && first == nil {
			first = fmt.Errorf("close writer %s: %w", topic, err)
		}
	}
	return first
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.Event) error { return nil }

// MemoryPublisher records events in order. Handy for tests and for local runs
// that want to inspect what would have been published.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []model.Event
	Err    error
}

func (p *MemoryPublisher) Publish(_ context.Context, evt model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *MemoryPublisher) Events() []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Event(nil), p.events...)
}
