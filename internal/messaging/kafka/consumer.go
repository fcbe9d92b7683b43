package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
)

// MessageHandler обрабатывает сообщение из Kafka
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

// errPermanent помечает ошибки, которые не исправит повтор (например, битый payload).
var errPermanent = errors.New("permanent message error")

// Permanent оборачивает ошибку так, что сообщение сразу уходит в DLQ.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", errPermanent, err)
}

// ConsumerConfig задаёт параметры consumer group.
type ConsumerConfig struct {
	Brokers    []string
	GroupID    string
	Topics     []string
	MaxRetries int
	RetryDelay time.Duration
	DLQTopic   string
}

// Consumer читает topic'и consumer group'ой, повторяет неудачную обработку
// и отправляет исчерпавшие попытки сообщения в DLQ.
type Consumer struct {
	consumer    sarama.ConsumerGroup
	topics      []string
	handler     MessageHandler
	logger      *log.Entry
	wg          sync.WaitGroup
	dlqProducer *Producer
	dlqTopic    string
	maxRetries  int
	retryDelay  time.Duration
}

// NewConsumer создаёт consumer group. dlqProducer может быть nil.
func NewConsumer(cfg ConsumerConfig, handler MessageHandler, dlqProducer *Producer) (*Consumer, error) {
	if len(cfg.Brokers) == 0 || cfg.GroupID == "" || len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("kafka consumer: brokers, group and topics are required")
	}

	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	return newConsumer(group, cfg, handler, dlqProducer), nil
}

func newConsumer(group sarama.ConsumerGroup, cfg ConsumerConfig, handler MessageHandler, dlqProducer *Producer) *Consumer {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Consumer{
		consumer:    group,
		topics:      cfg.Topics,
		handler:     handler,
		logger:      log.WithField("component", "kafka-consumer"),
		dlqProducer: dlqProducer,
		dlqTopic:    firstNonEmpty(cfg.DLQTopic, TopicDeadLetterQueue),
		maxRetries:  maxRetries,
		retryDelay:  cfg.RetryDelay,
	}
}

// Start запускает чтение в фоне до отмены ctx или Stop.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			// Consume завершается при каждом rebalance.
			if err := c.consumer.Consume(ctx, c.topics, c); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.WithError(err).Error("error from consumer")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consumer.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// Stop закрывает consumer group и ждёт фоновые горутины.
func (c *Consumer) Stop() error {
	if err := c.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup вызывается при старте consumer session
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup вызывается при завершении consumer session
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim обрабатывает сообщения партиции. Сообщение помечается
// обработанным после успеха или после отправки в DLQ.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			fields := log.Fields{
				"topic":     message.Topic,
				"partition": message.Partition,
				"offset":    message.Offset,
			}
			c.logger.WithFields(fields).Debug("received message")

			if err := c.handle(session.Context(), message); err != nil {
				c.logger.WithError(err).WithFields(fields).Error("message processing failed after all retries")
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// handle вызывает handler до maxRetries раз с учётом уже сделанных попыток
// из header x-retry-count, затем отправляет сообщение в DLQ.
func (c *Consumer) handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	attempts := retryCount(message)
	var err error
	for attempts < c.maxRetries {
		attempts++
		if err = c.handler(ctx, message); err == nil {
			return nil
		}
		if errors.Is(err, errPermanent) || ctx.Err() != nil {
			break
		}
		if attempts < c.maxRetries {
			c.logger.WithError(err).WithFields(log.Fields{
				"topic":       message.Topic,
				"attempt":     attempts,
				"max_retries": c.maxRetries,
			}).Warn("message processing failed, will retry")
			if !c.wait(ctx, attempts) {
				return ctx.Err()
			}
		}
	}
	if err == nil {
		err = fmt.Errorf("retry limit %d reached", c.maxRetries)
	}
	if ctx.Err() != nil {
		return err
	}

	if c.dlqProducer == nil {
		return err
	}
	if dlqErr := c.sendToDLQ(ctx, message, err, attempts); dlqErr != nil {
		return fmt.Errorf("failed to send to DLQ: %w", dlqErr)
	}
	c.logger.WithFields(log.Fields{
		"topic":    message.Topic,
		"attempts": attempts,
	}).Info("message sent to DLQ")
	return nil
}

func (c *Consumer) wait(ctx context.Context, attempt int) bool {
	if c.retryDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(c.retryDelay * time.Duration(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func retryCount(message *sarama.ConsumerMessage) int {
	for _, header := range message.Headers {
		if header != nil && string(header.Key) == HeaderRetryCount {
			if count, err := strconv.Atoi(string(header.Value)); err == nil && count > 0 {
				return count
			}
		}
	}
	return 0
}

func (c *Consumer) sendToDLQ(ctx context.Context, message *sarama.ConsumerMessage, processingErr error, attempts int) error {
	failedAt := time.Now().UTC().Format(time.RFC3339)
	letter := deadLetter{
		OriginalTopic:     message.Topic,
		OriginalPartition: message.Partition,
		OriginalOffset:    message.Offset,
		OriginalKey:       string(message.Key),
		OriginalValue:     string(message.Value),
		ErrorMessage:      processingErr.Error(),
		FailedAt:          failedAt,
		Attempts:          attempts,
	}
	headers := map[string]string{
		HeaderOriginalTopic: message.Topic,
		HeaderErrorMessage:  processingErr.Error(),
		HeaderFailedAt:      failedAt,
		HeaderRetryCount:    strconv.Itoa(attempts),
	}
	return c.dlqProducer.PublishJSON(ctx, c.dlqTopic, string(message.Key), letter, headers)
}

// ProductUpdater применяет новый снимок товара к корзинам.
type ProductUpdater interface {
	ApplyProductUpdate(ctx context.Context, product domain.Product) (int, error)
}

// ProductStore сохраняет снимок товара в локальном каталоге.
type ProductStore interface {
	Upsert(product domain.Product) bool
}

// NewProductEventHandler обрабатывает события catalog.product.events:
// обновляет локальный каталог и пересчитывает корзины с этим товаром.
// Некорректные события не повторяются.
func NewProductEventHandler(updater ProductUpdater, store ProductStore, m *metrics.OrderingMetrics, logger *log.Entry) MessageHandler {
	if logger == nil {
		logger = log.WithField("component", "catalog-events")
	}
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		product, err := ParseProductEvent(message.Value)
		if err != nil {
			m.RecordCatalogUpdate("invalid")
			return Permanent(err)
		}
		if store != nil {
			store.Upsert(product)
		}

		updated, err := updater.ApplyProductUpdate(ctx, product)
		if err != nil {
			m.RecordCatalogUpdate("failed")
			return fmt.Errorf("apply product %s: %w", product.ID(), err)
		}
		m.RecordCatalogUpdate("applied")
		logger.WithFields(log.Fields{
			"product_id": product.ID().String(),
			"price":      product.Price().String(),
			"in_stock":   product.InStock(),
			"carts":      updated,
		}).Debug("catalog product update applied")
		return nil
	}
}
