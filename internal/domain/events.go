package domain

import "time"

// AggregateType — тип агрегата в outbox и timeline.
type AggregateType string

const (
	AggregateOrder        AggregateType = "order"
	AggregateShoppingCart AggregateType = "shopping_cart"
	AggregateCustomer     AggregateType = "customer"
)

// Типы событий, которые сервисы публикуют через outbox.
const (
	EventOrderDrafted              = "OrderDrafted"
	EventOrderItemAdded            = "OrderItemAdded"
	EventOrderItemQuantityChanged  = "OrderItemQuantityChanged"
	EventOrderItemRemoved          = "OrderItemRemoved"
	EventOrderBillingChanged       = "OrderBillingChanged"
	EventOrderShippingChanged      = "OrderShippingChanged"
	EventOrderPaymentMethodChanged = "OrderPaymentMethodChanged"
	EventOrderPlaced               = "OrderPlaced"
	EventOrderPaid                 = "OrderPaid"
	EventOrderReady                = "OrderReady"
	EventOrderCanceled             = "OrderCanceled"

	EventShoppingCartStarted             = "ShoppingCartStarted"
	EventShoppingCartItemAdded           = "ShoppingCartItemAdded"
	EventShoppingCartItemRemoved         = "ShoppingCartItemRemoved"
	EventShoppingCartItemQuantityChanged = "ShoppingCartItemQuantityChanged"
	EventShoppingCartItemRefreshed       = "ShoppingCartItemRefreshed"
	EventShoppingCartEmptied             = "ShoppingCartEmptied"
	EventShoppingCartCheckedOut          = "ShoppingCartCheckedOut"
	EventCustomerRegistered              = "CustomerRegistered"
	EventCustomerArchived                = "CustomerArchived"
	EventCustomerLoyaltyPointsAdded      = "CustomerLoyaltyPointsAdded"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType AggregateType
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// TimelineEvent описывает событие в жизни агрегата.
type TimelineEvent struct {
	AggregateType AggregateType
	AggregateID   string
	Type          string
	Reason        string
	Occurred      time.Time
}
