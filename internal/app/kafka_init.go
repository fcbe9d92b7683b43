package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/messaging/kafka"
)

// initKafkaProducer создаёт producer, если заданы брокеры.
// Возвращает nil, nil, когда Kafka не настроена.
func initKafkaProducer(cfg Config, logger *log.Entry) (*kafka.Producer, error) {
	if !cfg.KafkaEnabled() {
		return nil, nil
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:  cfg.KafkaBrokers,
		ClientID: cfg.KafkaClientID,
	})
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
	return producer, nil
}

// kafkaTopics собирает topic'и outbox из конфигурации.
func kafkaTopics(cfg Config) kafka.Topics {
	return kafka.Topics{
		Orders:        cfg.KafkaOrderTopic,
		ShoppingCarts: cfg.KafkaCartTopic,
		Customers:     cfg.KafkaCustomerTopic,
	}
}

// initCatalogConsumer создаёт consumer событий каталога. Без брокеров возвращает nil, nil.
func initCatalogConsumer(cfg Config, handler kafka.MessageHandler, dlq *kafka.Producer) (*kafka.Consumer, error) {
	if !cfg.KafkaEnabled() {
		return nil, nil
	}
	return kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:    cfg.KafkaBrokers,
		GroupID:    cfg.KafkaCatalogGroup,
		Topics:     []string{cfg.KafkaCatalogTopic},
		MaxRetries: cfg.ConsumerMaxRetries,
		RetryDelay: cfg.ConsumerRetryDelay,
		DLQTopic:   cfg.KafkaDLQTopic,
	}, handler, dlq)
}

// closeKafka закрывает producer, если он создан.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// stopConsumer останавливает consumer, если он запущен.
func stopConsumer(consumer *kafka.Consumer, logger *log.Entry) {
	if consumer == nil {
		return
	}
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop kafka consumer")
	}
}
