package kstream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"tourbook-backend/internal/model"
)

// KafkaReader creates a Kafka consumer using segmentio/kafka-go library.
// kafka.Reader provides consumer group functionality with automatic offset management.
func KafkaReader(broker, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker}, // segmentio/kafka-go: Kafka broker addresses
		Topic:          topic,            // segmentio/kafka-go: Topic to consume from
		GroupID:        groupID,          // segmentio/kafka-go: Consumer group ID (enables load balancing)
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second, // segmentio/kafka-go: Auto-commit interval for offsets
	})
}

// DecodeEvent parses a message written by KafkaPublisher.
func DecodeEvent(msg kafka.Message) (model.Event, error) {
	var evt model.Event
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return evt, fmt.Errorf("decode event at %s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
	}
	if evt.ID == "" || evt.Type == "" {
		return evt, fmt.Errorf("decode event at %s/%d@%d: missing id or type", msg.Topic, msg.Partition, msg.Offset)
	}
	return evt, nil
}
