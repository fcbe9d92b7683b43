package ordering

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
)

// OrderEvent — payload событий заказа в outbox.
type OrderEvent struct {
	OrderID       string `json:"order_id"`
	CustomerID    string `json:"customer_id"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method,omitempty"`
	TotalAmount   string `json:"total_amount"`
	TotalItems    int    `json:"total_items"`
	Reason        string `json:"reason,omitempty"`
	Timestamp     string `json:"ts"`
}

// ShoppingCartEvent — payload событий корзины в outbox.
type ShoppingCartEvent struct {
	ShoppingCartID string `json:"shopping_cart_id"`
	CustomerID     string `json:"customer_id"`
	TotalAmount    string `json:"total_amount"`
	TotalItems     int    `json:"total_items"`
	ProductID      string `json:"product_id,omitempty"`
	OrderID        string `json:"order_id,omitempty"`
	Timestamp      string `json:"ts"`
}

// CustomerEvent — payload событий клиента в outbox.
type CustomerEvent struct {
	CustomerID    string `json:"customer_id"`
	Archived      bool   `json:"archived"`
	LoyaltyPoints int    `json:"loyalty_points"`
	Timestamp     string `json:"ts"`
}

// eventRecorder пишет события в outbox и timeline. Ошибки записи логируются
// и не отменяют уже сохранённое изменение агрегата.
type eventRecorder struct {
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	metrics  *metrics.OrderingMetrics
	logger   *log.Entry
}

func (r *eventRecorder) orderEvent(ctx context.Context, order *domain.Order, eventType, reason string) {
	occurred := time.Now().UTC()
	r.emit(ctx, domain.AggregateOrder, order.ID().String(), eventType, reason, occurred, OrderEvent{
		OrderID:       order.ID().String(),
		CustomerID:    order.CustomerID().String(),
		Status:        string(order.Status()),
		PaymentMethod: string(order.PaymentMethod()),
		TotalAmount:   order.TotalAmount().String(),
		TotalItems:    order.TotalItems().Int(),
		Reason:        reason,
		Timestamp:     occurred.Format(time.RFC3339Nano),
	})
}

func (r *eventRecorder) cartEvent(ctx context.Context, cart *domain.ShoppingCart, eventType string, productID *domain.ProductID, orderID *domain.OrderID) {
	occurred := time.Now().UTC()
	payload := ShoppingCartEvent{
		ShoppingCartID: cart.ID().String(),
		CustomerID:     cart.CustomerID().String(),
		TotalAmount:    cart.TotalAmount().String(),
		TotalItems:     cart.TotalItems().Int(),
		Timestamp:      occurred.Format(time.RFC3339Nano),
	}
	if productID != nil {
		payload.ProductID = productID.String()
	}
	if orderID != nil {
		payload.OrderID = orderID.String()
	}
	r.emit(ctx, domain.AggregateShoppingCart, cart.ID().String(), eventType, "", occurred, payload)
}

func (r *eventRecorder) customerEvent(ctx context.Context, customer *domain.Customer, eventType string) {
	occurred := time.Now().UTC()
	r.emit(ctx, domain.AggregateCustomer, customer.ID().String(), eventType, "", occurred, CustomerEvent{
		CustomerID:    customer.ID().String(),
		Archived:      customer.IsArchived(),
		LoyaltyPoints: customer.LoyaltyPoints().Int(),
		Timestamp:     occurred.Format(time.RFC3339Nano),
	})
}

func (r *eventRecorder) emit(
	ctx context.Context,
	aggregateType domain.AggregateType,
	aggregateID, eventType, reason string,
	occurred time.Time,
	payload any,
) {
	logger := r.logger.WithFields(log.Fields{
		"aggregate_type": aggregateType,
		"aggregate_id":   aggregateID,
		"event":          eventType,
	})

	if r.outbox != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			logger.WithError(err).Error("marshal event failed")
		} else if _, err := r.outbox.Enqueue(ctx, domain.OutboxMessage{
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			EventType:     eventType,
			Payload:       data,
			CreatedAt:     occurred,
		}); err != nil {
			logger.WithError(err).Error("enqueue event failed")
		} else {
			r.metrics.RecordOutboxEvent()
		}
	}

	if r.timeline != nil {
		event := domain.TimelineEvent{
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			Type:          eventType,
			Reason:        reason,
			Occurred:      occurred,
		}
		if err := r.timeline.Append(ctx, event); err != nil {
			logger.WithError(err).Warn("append timeline event failed")
		} else {
			r.metrics.RecordTimelineEvent()
		}
	}
}
