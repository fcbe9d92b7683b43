package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

func topicChecker(topic string, check func(Envelope) error) func(*sarama.ProducerMessage) error {
	return func(msg *sarama.ProducerMessage) error {
		if msg.Topic != topic {
			return fmt.Errorf("expected topic %s, got %s", topic, msg.Topic)
		}
		if check == nil {
			return nil
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var envelope Envelope
		if err := json.Unmarshal(value, &envelope); err != nil {
			return err
		}
		return check(envelope)
	}
}

func TestOutboxPublisher_RoutesByAggregate(t *testing.T) {
	tests := []struct {
		aggregate domain.AggregateType
		topic     string
	}{
		{domain.AggregateOrder, TopicOrderEvents},
		{domain.AggregateShoppingCart, TopicShoppingCartEvents},
		{domain.AggregateCustomer, TopicCustomerEvents},
	}

	for _, tt := range tests {
		t.Run(string(tt.aggregate), func(t *testing.T) {
			producer, mockProducer := testProducer(t)
			mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(topicChecker(tt.topic, nil))

			publisher := NewOutboxPublisher(producer, Topics{})
			err := publisher.Publish(context.Background(), domain.OutboxMessage{
				ID:            "outbox-1",
				AggregateType: tt.aggregate,
				AggregateID:   "aggregate-1",
				EventType:     "Changed",
				Payload:       []byte(`{}`),
			})
			require.NoError(t, err)
			require.NoError(t, mockProducer.Close())
		})
	}
}

func TestOutboxPublisher_Envelope(t *testing.T) {
	producer, mockProducer := testProducer(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(topicChecker("orders.custom", func(e Envelope) error {
		if e.ID != "outbox-2" || e.AggregateID != "order-7" || e.EventType != domain.EventOrderPlaced {
			return fmt.Errorf("unexpected envelope %+v", e)
		}
		if string(e.Payload) != `{"status":"PLACED"}` {
			return fmt.Errorf("unexpected payload %s", e.Payload)
		}
		if !e.OccurredAt.Equal(created) {
			return fmt.Errorf("unexpected occurred_at %s", e.OccurredAt)
		}
		return nil
	}))

	publisher := NewOutboxPublisher(producer, Topics{Orders: "orders.custom"})
	err := publisher.Publish(context.Background(), domain.OutboxMessage{
		ID:            "outbox-2",
		AggregateType: domain.AggregateOrder,
		AggregateID:   "order-7",
		EventType:     domain.EventOrderPlaced,
		Payload:       []byte(`{"status":"PLACED"}`),
		CreatedAt:     created,
	})
	require.NoError(t, err)
	require.NoError(t, mockProducer.Close())
}

func TestOutboxPublisher_Errors(t *testing.T) {
	producer, mockProducer := testProducer(t)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewOutboxPublisher(producer, DefaultTopics())
	err := publisher.Publish(context.Background(), domain.OutboxMessage{ID: "o-1", AggregateType: domain.AggregateOrder})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)

	err = publisher.Publish(context.Background(), domain.OutboxMessage{ID: "o-2", AggregateType: "invoice"})
	assert.Error(t, err)
	require.NoError(t, mockProducer.Close())

	assert.Error(t, NewOutboxPublisher(nil, DefaultTopics()).Publish(context.Background(), domain.OutboxMessage{}))
}

func TestDLQPublisher_Publish(t *testing.T) {
	producer, mockProducer := testProducer(t)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicDeadLetterQueue {
			return fmt.Errorf("expected dlq topic, got %s", msg.Topic)
		}
		value, _ := msg.Value.Encode()
		if string(value) != `{"outbox_id":"o-1"}` {
			return fmt.Errorf("payload must be sent as is, got %s", value)
		}
		return nil
	})

	publisher := NewDLQPublisher(producer, "")
	err := publisher.Publish(context.Background(), domain.OutboxMessage{
		ID:            "o-1",
		AggregateType: domain.AggregateOrder,
		AggregateID:   "order-1",
		Payload:       []byte(`{"outbox_id":"o-1"}`),
	})
	require.NoError(t, err)
	require.NoError(t, mockProducer.Close())
}
