package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// Topics сопоставляет тип агрегата с topic событий.
type Topics struct {
	Orders        string
	ShoppingCarts string
	Customers     string
}

// DefaultTopics возвращает стандартные topic'и сервиса.
func DefaultTopics() Topics {
	return Topics{
		Orders:        TopicOrderEvents,
		ShoppingCarts: TopicShoppingCartEvents,
		Customers:     TopicCustomerEvents,
	}
}

func (t Topics) topicFor(aggregate domain.AggregateType) (string, error) {
	defaults := DefaultTopics()
	switch aggregate {
	case domain.AggregateOrder:
		return firstNonEmpty(t.Orders, defaults.Orders), nil
	case domain.AggregateShoppingCart:
		return firstNonEmpty(t.ShoppingCarts, defaults.ShoppingCarts), nil
	case domain.AggregateCustomer:
		return firstNonEmpty(t.Customers, defaults.Customers), nil
	default:
		return "", fmt.Errorf("no topic for aggregate type %q", aggregate)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// OutboxPublisher публикует outbox-сообщения в topic их агрегата.
// Ключ сообщения — id агрегата, поэтому события одного агрегата
// попадают в одну партицию и сохраняют порядок.
type OutboxPublisher struct {
	producer *Producer
	topics   Topics
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topics Topics) *OutboxPublisher {
	return &OutboxPublisher{producer: producer, topics: topics}
}

// Publish отправляет сообщение в виде Envelope.
func (p *OutboxPublisher) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}
	topic, err := p.topics.topicFor(msg.AggregateType)
	if err != nil {
		return err
	}
	return p.producer.PublishJSON(ctx, topic, messageKey(msg), newEnvelope(msg), messageHeaders(msg))
}

// DLQPublisher публикует сообщения, исчерпавшие попытки, в один topic.
type DLQPublisher struct {
	producer *Producer
	topic    string
}

// NewDLQPublisher создаёт паблишер DLQ; пустой topic заменяется на TopicDeadLetterQueue.
func NewDLQPublisher(producer *Producer, topic string) *DLQPublisher {
	return &DLQPublisher{producer: producer, topic: firstNonEmpty(topic, TopicDeadLetterQueue)}
}

// Publish отправляет payload сообщения без дополнительной обёртки.
func (p *DLQPublisher) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka dlq publisher is not initialized")
	}
	return p.producer.Publish(ctx, p.topic, messageKey(msg), msg.Payload, messageHeaders(msg))
}

func newEnvelope(msg domain.OutboxMessage) Envelope {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		OccurredAt:    msg.CreatedAt.UTC(),
		PublishedAt:   time.Now().UTC(),
	}
}

func messageKey(msg domain.OutboxMessage) string {
	return firstNonEmpty(msg.AggregateID, msg.ID)
}

func messageHeaders(msg domain.OutboxMessage) map[string]string {
	return map[string]string{
		HeaderEventType:     msg.EventType,
		HeaderAggregateType: string(msg.AggregateType),
	}
}

var (
	_ domain.OutboxPublisher = (*OutboxPublisher)(nil)
	_ domain.OutboxPublisher = (*DLQPublisher)(nil)
)
