package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// Topics для Kafka
const (
	TopicOrderEvents          = "ordering.order.events"
	TopicShoppingCartEvents   = "ordering.cart.events"
	TopicCustomerEvents       = "ordering.customer.events"
	TopicCatalogProductEvents = "catalog.product.events"
	TopicDeadLetterQueue      = "ordering.dlq"
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// Envelope — формат событий, публикуемых из outbox.
type Envelope struct {
	ID            string               `json:"id"`
	AggregateType domain.AggregateType `json:"aggregate_type"`
	AggregateID   string               `json:"aggregate_id"`
	EventType     string               `json:"event_type"`
	Payload       json.RawMessage      `json:"payload"`
	OccurredAt    time.Time            `json:"occurred_at"`
	PublishedAt   time.Time            `json:"published_at"`
}

// ProductEvent — изменение товара в каталоге.
type ProductEvent struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	InStock   bool   `json:"in_stock"`
}

// ParseProductEvent разбирает и проверяет событие каталога.
func ParseProductEvent(data []byte) (domain.Product, error) {
	var event ProductEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.Product{}, fmt.Errorf("unmarshal product event: %w", err)
	}
	return event.Product()
}

// Product переводит событие в снимок товара.
func (e ProductEvent) Product() (domain.Product, error) {
	id, err := domain.ParseProductID(e.ProductID)
	if err != nil {
		return domain.Product{}, err
	}
	name, err := domain.NewProductName(e.Name)
	if err != nil {
		return domain.Product{}, err
	}
	price, err := domain.ParseMoney(e.Price)
	if err != nil {
		return domain.Product{}, err
	}
	return domain.NewProduct(id, name, price, e.InStock)
}

// deadLetter — содержимое сообщения в DLQ.
type deadLetter struct {
	OriginalTopic     string `json:"original_topic"`
	OriginalPartition int32  `json:"original_partition"`
	OriginalOffset    int64  `json:"original_offset"`
	OriginalKey       string `json:"original_key"`
	OriginalValue     string `json:"original_value"`
	ErrorMessage      string `json:"error_message"`
	FailedAt          string `json:"failed_at"`
	Attempts          int    `json:"attempts"`
}
