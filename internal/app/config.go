package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/messaging/kafka"
)

// Драйверы хранилища агрегатов.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

const envPrefix = "ORDERING_"

// Config описывает настройки запуска сервиса.
type Config struct {
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers       []string
	KafkaClientID      string
	KafkaCatalogGroup  string
	KafkaCatalogTopic  string
	KafkaDLQTopic      string
	KafkaOrderTopic    string
	KafkaCartTopic     string
	KafkaCustomerTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	ConsumerMaxRetries int
	ConsumerRetryDelay time.Duration

	// ConflictRetries — число попыток операции при конфликте версий агрегата.
	ConflictRetries     int
	HealthCheckInterval time.Duration
	ShutdownTimeout     time.Duration
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		KafkaClientID:       "ordering-service",
		KafkaCatalogGroup:   "ordering-catalog",
		KafkaCatalogTopic:   kafka.TopicCatalogProductEvents,
		KafkaDLQTopic:       kafka.TopicDeadLetterQueue,
		KafkaOrderTopic:     kafka.TopicOrderEvents,
		KafkaCartTopic:      kafka.TopicShoppingCartEvents,
		KafkaCustomerTopic:  kafka.TopicCustomerEvents,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
		ConsumerMaxRetries:  3,
		ConsumerRetryDelay:  100 * time.Millisecond,
		ConflictRetries:     3,
		HealthCheckInterval: 5 * time.Second,
		ShutdownTimeout:     5 * time.Second,
	}
}

// LoadConfigFromEnv читает ORDERING_* поверх DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(os.LookupEnv)
}

func loadConfig(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	env := envReader{lookup: lookup}

	env.string("GRPC_ADDR", &cfg.GRPCAddr)
	env.string("METRICS_ADDR", &cfg.MetricsAddr)
	env.string("STORAGE_DRIVER", &cfg.StorageDriver)
	env.string("POSTGRES_DSN", &cfg.PostgresDSN)
	env.bool("POSTGRES_AUTO_MIGRATE", &cfg.PostgresAutoMigrate)

	env.list("KAFKA_BROKERS", &cfg.KafkaBrokers)
	env.string("KAFKA_CLIENT_ID", &cfg.KafkaClientID)
	env.string("KAFKA_CATALOG_GROUP", &cfg.KafkaCatalogGroup)
	env.string("KAFKA_CATALOG_TOPIC", &cfg.KafkaCatalogTopic)
	env.string("KAFKA_DLQ_TOPIC", &cfg.KafkaDLQTopic)
	env.string("KAFKA_ORDER_TOPIC", &cfg.KafkaOrderTopic)
	env.string("KAFKA_CART_TOPIC", &cfg.KafkaCartTopic)
	env.string("KAFKA_CUSTOMER_TOPIC", &cfg.KafkaCustomerTopic)

	env.duration("OUTBOX_POLL_INTERVAL", &cfg.OutboxPollInterval)
	env.int("OUTBOX_BATCH_SIZE", &cfg.OutboxBatchSize)
	env.int("OUTBOX_MAX_ATTEMPTS", &cfg.OutboxMaxAttempts)
	env.duration("OUTBOX_RETRY_DELAY", &cfg.OutboxRetryDelay)

	env.int("CONSUMER_MAX_RETRIES", &cfg.ConsumerMaxRetries)
	env.duration("CONSUMER_RETRY_DELAY", &cfg.ConsumerRetryDelay)

	env.int("CONFLICT_RETRIES", &cfg.ConflictRetries)
	env.duration("HEALTH_CHECK_INTERVAL", &cfg.HealthCheckInterval)
	env.duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)

	if err := errors.Join(env.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, fmt.Errorf("%sPOSTGRES_DSN is required for postgres storage", envPrefix))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}
	if c.GRPCAddr == "" {
		errs = append(errs, errors.New("grpc address is required"))
	}
	if c.OutboxPollInterval <= 0 {
		errs = append(errs, errors.New("outbox poll interval must be positive"))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("outbox batch size must be positive"))
	}
	if c.OutboxMaxAttempts <= 0 {
		errs = append(errs, errors.New("outbox max attempts must be positive"))
	}
	if c.OutboxRetryDelay < 0 || c.ConsumerRetryDelay < 0 {
		errs = append(errs, errors.New("retry delays must not be negative"))
	}
	if c.ConflictRetries <= 0 {
		errs = append(errs, errors.New("conflict retries must be positive"))
	}
	return errors.Join(errs...)
}

// KafkaEnabled сообщает, заданы ли брокеры.
func (c Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// envReader собирает ошибки разбора, чтобы вернуть их все сразу.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) raw(key string) (string, bool) {
	value, ok := r.lookup(envPrefix + key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (r *envReader) string(key string, dst *string) {
	if value, ok := r.raw(key); ok {
		*dst = value
	}
}

func (r *envReader) list(key string, dst *[]string) {
	value, ok := r.raw(key)
	if !ok {
		return
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}

func (r *envReader) bool(key string, dst *bool) {
	value, ok := r.raw(key)
	if !ok {
		return
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: invalid bool %q", envPrefix, key, value))
		return
	}
	*dst = parsed
}

func (r *envReader) int(key string, dst *int) {
	value, ok := r.raw(key)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: invalid integer %q", envPrefix, key, value))
		return
	}
	*dst = parsed
}

func (r *envReader) duration(key string, dst *time.Duration) {
	value, ok := r.raw(key)
	if !ok {
		return
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: invalid duration %q", envPrefix, key, value))
		return
	}
	*dst = parsed
}
