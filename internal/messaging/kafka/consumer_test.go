package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
)

type mockConsumerGroup struct {
	consumeFn func(context.Context, []string, sarama.ConsumerGroupHandler) error
	errorsCh  chan error
	closeFn   func() error
}

func (m *mockConsumerGroup) Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	if m.consumeFn != nil {
		return m.consumeFn(ctx, topics, handler)
	}
	return nil
}

func (m *mockConsumerGroup) Errors() <-chan error { return m.errorsCh }

func (m *mockConsumerGroup) Close() error {
	if m.closeFn != nil {
		return m.closeFn()
	}
	if m.errorsCh != nil {
		close(m.errorsCh)
	}
	return nil
}

func (m *mockConsumerGroup) Pause(map[string][]int32)  {}
func (m *mockConsumerGroup) Resume(map[string][]int32) {}
func (m *mockConsumerGroup) PauseAll()                 {}
func (m *mockConsumerGroup) ResumeAll()                {}

type mockSession struct {
	ctx    context.Context
	marked []*sarama.ConsumerMessage
}

func (m *mockSession) Claims() map[string][]int32               { return nil }
func (m *mockSession) MemberID() string                         { return "member" }
func (m *mockSession) GenerationID() int32                      { return 1 }
func (m *mockSession) MarkOffset(string, int32, int64, string)  {}
func (m *mockSession) Commit()                                  {}
func (m *mockSession) ResetOffset(string, int32, int64, string) {}
func (m *mockSession) Context() context.Context                 { return m.ctx }
func (m *mockSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	m.marked = append(m.marked, msg)
}

type mockClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (m *mockClaim) Topic() string                            { return TopicCatalogProductEvents }
func (m *mockClaim) Partition() int32                         { return 0 }
func (m *mockClaim) InitialOffset() int64                     { return 0 }
func (m *mockClaim) HighWaterMarkOffset() int64               { return 0 }
func (m *mockClaim) Messages() <-chan *sarama.ConsumerMessage { return m.messages }

func quietEntry() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger.WithField("test", "kafka")
}

func testConsumer(handler MessageHandler, dlq *Producer, maxRetries int) *Consumer {
	c := newConsumer(&mockConsumerGroup{}, ConsumerConfig{
		Topics:     []string{TopicCatalogProductEvents},
		MaxRetries: maxRetries,
	}, handler, dlq)
	c.logger = quietEntry()
	return c
}

func claimWith(messages ...*sarama.ConsumerMessage) *mockClaim {
	claim := &mockClaim{messages: make(chan *sarama.ConsumerMessage, len(messages))}
	for _, msg := range messages {
		claim.messages <- msg
	}
	close(claim.messages)
	return claim
}

func TestNewConsumerValidation(t *testing.T) {
	handler := func(context.Context, *sarama.ConsumerMessage) error { return nil }
	if _, err := NewConsumer(ConsumerConfig{GroupID: "g", Topics: []string{"t"}}, handler, nil); err == nil {
		t.Fatal("expected error without brokers")
	}
	if _, err := NewConsumer(ConsumerConfig{Brokers: []string{"invalid-broker:9092"}, Topics: []string{"t"}}, handler, nil); err == nil {
		t.Fatal("expected error without group")
	}
}

func TestConsumerStartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	consumeCalls := 0
	errorsCh := make(chan error, 1)
	group := &mockConsumerGroup{
		errorsCh: errorsCh,
		consumeFn: func(context.Context, []string, sarama.ConsumerGroupHandler) error {
			mu.Lock()
			consumeCalls++
			mu.Unlock()
			cancel()
			return nil
		},
	}

	consumer := newConsumer(group, ConsumerConfig{Topics: []string{"topic-a"}}, nil, nil)
	consumer.logger = quietEntry()

	errorsCh <- errors.New("background error")
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := consumer.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if consumeCalls == 0 {
		t.Fatal("expected consume call")
	}
}

func TestConsumerStopError(t *testing.T) {
	errorsCh := make(chan error)
	group := &mockConsumerGroup{errorsCh: errorsCh, closeFn: func() error {
		close(errorsCh)
		return errors.New("close failed")
	}}
	consumer := newConsumer(group, ConsumerConfig{}, nil, nil)
	consumer.logger = quietEntry()
	if err := consumer.Stop(); err == nil {
		t.Fatal("expected stop error")
	}
}

func TestConsumeClaim_MarksHandledMessages(t *testing.T) {
	consumer := testConsumer(func(context.Context, *sarama.ConsumerMessage) error { return nil }, nil, 1)
	session := &mockSession{ctx: context.Background()}

	err := consumer.ConsumeClaim(session, claimWith(
		&sarama.ConsumerMessage{Offset: 1, Value: []byte("a")},
		&sarama.ConsumerMessage{Offset: 2, Value: []byte("b")},
	))
	if err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if len(session.marked) != 2 {
		t.Fatalf("expected two marked messages, got %d", len(session.marked))
	}
}

func TestConsumeClaim_FailedWithoutDLQIsNotMarked(t *testing.T) {
	attempts := 0
	consumer := testConsumer(func(context.Context, *sarama.ConsumerMessage) error {
		attempts++
		return errors.New("temporary")
	}, nil, 3)
	session := &mockSession{ctx: context.Background()}

	if err := consumer.ConsumeClaim(session, claimWith(&sarama.ConsumerMessage{Offset: 1})); err != nil {
		t.Fatalf("ConsumeClaim failed: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(session.marked) != 0 {
		t.Fatalf("failed message should not be marked, got %d", len(session.marked))
	}
}

func TestHandle(t *testing.T) {
	t.Run("success after retry", func(t *testing.T) {
		attempts := 0
		consumer := testConsumer(func(context.Context, *sarama.ConsumerMessage) error {
			attempts++
			if attempts < 2 {
				return errors.New("temporary")
			}
			return nil
		}, nil, 3)
		if err := consumer.handle(context.Background(), &sarama.ConsumerMessage{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if attempts != 2 {
			t.Fatalf("expected 2 attempts, got %d", attempts)
		}
	})

	t.Run("retry header counts previous attempts", func(t *testing.T) {
		attempts := 0
		consumer := testConsumer(func(context.Context, *sarama.ConsumerMessage) error {
			attempts++
			return errors.New("temporary")
		}, nil, 3)
		msg := &sarama.ConsumerMessage{
			Headers: []*sarama.RecordHeader{{Key: []byte(HeaderRetryCount), Value: []byte("2")}},
		}
		if err := consumer.handle(context.Background(), msg); err == nil {
			t.Fatal("expected error")
		}
		if attempts != 1 {
			t.Fatalf("expected 1 attempt, got %d", attempts)
		}
	})

	t.Run("permanent error goes to dlq at once", func(t *testing.T) {
		mockProducer := mocks.NewSyncProducer(t, nil)
		mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			if msg.Topic != TopicDeadLetterQueue {
				return errors.New("unexpected topic " + msg.Topic)
			}
			return nil
		})
		attempts := 0
		consumer := testConsumer(func(context.Context, *sarama.ConsumerMessage) error {
			attempts++
			return Permanent(errors.New("bad payload"))
		}, NewProducerFromSync(mockProducer, quietEntry()), 5)

		if err := consumer.handle(context.Background(), &sarama.ConsumerMessage{Key: []byte("k")}); err != nil {
			t.Fatalf("unexpected error after dlq publish: %v", err)
		}
		if attempts != 1 {
			t.Fatalf("permanent error must not be retried, got %d attempts", attempts)
		}
		if err := mockProducer.Close(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("dlq failure", func(t *testing.T) {
		mockProducer := mocks.NewSyncProducer(t, nil)
		mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
		consumer := testConsumer(func(context.Context, *sarama.ConsumerMessage) error {
			return errors.New("permanent")
		}, NewProducerFromSync(mockProducer, quietEntry()), 1)

		if err := consumer.handle(context.Background(), &sarama.ConsumerMessage{}); !errors.Is(err, sarama.ErrOutOfBrokers) {
			t.Fatalf("expected dlq failure, got %v", err)
		}
		if err := mockProducer.Close(); err != nil {
			t.Fatal(err)
		}
	})
}

func TestRetryCount(t *testing.T) {
	valid := &sarama.ConsumerMessage{Headers: []*sarama.RecordHeader{{Key: []byte(HeaderRetryCount), Value: []byte("5")}}}
	if got := retryCount(valid); got != 5 {
		t.Fatalf("unexpected retry count: %d", got)
	}
	invalid := &sarama.ConsumerMessage{Headers: []*sarama.RecordHeader{{Key: []byte(HeaderRetryCount), Value: []byte("bad")}}}
	if got := retryCount(invalid); got != 0 {
		t.Fatalf("invalid retry count should fallback to 0, got %d", got)
	}
}

func TestConsumeClaimStopsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	consumer := testConsumer(func(context.Context, *sarama.ConsumerMessage) error { return nil }, nil, 1)
	session := &mockSession{ctx: ctx}
	claim := &mockClaim{messages: make(chan *sarama.ConsumerMessage)}

	done := make(chan struct{})
	go func() {
		_ = consumer.ConsumeClaim(session, claim)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ConsumeClaim did not stop after context cancellation")
	}
}

type recordingUpdater struct {
	products []domain.Product
	err      error
}

func (r *recordingUpdater) ApplyProductUpdate(_ context.Context, product domain.Product) (int, error) {
	r.products = append(r.products, product)
	return 1, r.err
}

type recordingStore struct {
	products []domain.Product
}

func (r *recordingStore) Upsert(product domain.Product) bool {
	r.products = append(r.products, product)
	return true
}

func TestProductEventHandler(t *testing.T) {
	m := metrics.NewOrderingMetricsWithRegisterer(prometheus.NewRegistry())
	productID := domain.NewProductID()
	value := []byte(`{"product_id":"` + productID.String() + `","name":"Mouse","price":"39.90","in_stock":false}`)

	t.Run("applies update", func(t *testing.T) {
		updater := &recordingUpdater{}
		store := &recordingStore{}
		handler := NewProductEventHandler(updater, store, m, quietEntry())

		if err := handler(context.Background(), &sarama.ConsumerMessage{Value: value}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(updater.products) != 1 || len(store.products) != 1 {
			t.Fatalf("expected product to be stored and applied")
		}
		got := updater.products[0]
		if got.ID() != productID || got.Price().String() != "39.90" || got.InStock() {
			t.Fatalf("unexpected product: %s %s %v", got.ID(), got.Price(), got.InStock())
		}
	})

	t.Run("invalid payload is permanent", func(t *testing.T) {
		handler := NewProductEventHandler(&recordingUpdater{}, nil, m, quietEntry())
		err := handler(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"product_id":"nope"}`)})
		if !errors.Is(err, errPermanent) {
			t.Fatalf("expected permanent error, got %v", err)
		}
	})

	t.Run("update failure is retryable", func(t *testing.T) {
		handler := NewProductEventHandler(&recordingUpdater{err: domain.ErrVersionConflict}, nil, m, quietEntry())
		err := handler(context.Background(), &sarama.ConsumerMessage{Value: value})
		if err == nil || errors.Is(err, errPermanent) {
			t.Fatalf("expected retryable error, got %v", err)
		}
	})
}

func TestParseProductEvent(t *testing.T) {
	productID := domain.NewProductID()
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid", `{"product_id":"` + productID.String() + `","name":"Mouse","price":"10","in_stock":true}`, false},
		{"broken json", `{`, true},
		{"bad id", `{"product_id":"x","name":"Mouse","price":"10"}`, true},
		{"blank name", `{"product_id":"` + productID.String() + `","name":" ","price":"10"}`, true},
		{"negative price", `{"product_id":"` + productID.String() + `","name":"Mouse","price":"-1"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProductEvent([]byte(tt.value))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProductEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
