package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lucashmcosta/estoque/internal/domain"
)

// EventTopicPublisher публикует outbox-сообщения в Kafka, выбирая topic
// по типу агрегата: события товаров уходят в stock-topic, заказы в order-topic.
type EventTopicPublisher struct {
	producer *Producer
}

// NewEventPublisher создаёт Kafka-паблишер для transactional outbox.
func NewEventPublisher(producer *Producer) domain.EventPublisher {
	return &EventTopicPublisher{producer: producer}
}

func (p *EventTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka event publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	topic := TopicStockEvents
	if event.AggregateType == "order" {
		topic = TopicOrderEvents
	}

	envelope := struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		PublishedAt   time.Time       `json:"published_at"`
	}{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	return p.producer.PublishEvent(topic, key, envelope)
}

var _ domain.EventPublisher = (*EventTopicPublisher)(nil)

// DLQPublisher отправляет сообщения напрямую в dead letter topic.
// Payload сообщения уже содержит контекст ошибки, поэтому конверт не добавляется.
type DLQPublisher struct {
	producer *Producer
}

// NewDLQPublisher создаёт publisher для DLQ.
func NewDLQPublisher(producer *Producer) domain.EventPublisher {
	return &DLQPublisher{producer: producer}
}

func (p *DLQPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka dlq publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	return p.producer.PublishEvent(TopicDeadLetterQueue, key, json.RawMessage(event.Payload))
}

var _ domain.EventPublisher = (*DLQPublisher)(nil)
