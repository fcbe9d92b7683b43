package domain

import "time"

// OrderItemSnapshot — сохраняемое представление позиции заказа.
type OrderItemSnapshot struct {
	ID          OrderItemID `json:"id"`
	OrderID     OrderID     `json:"order_id"`
	ProductID   ProductID   `json:"product_id"`
	ProductName ProductName `json:"product_name"`
	Price       Money       `json:"price"`
	Quantity    Quantity    `json:"quantity"`
	TotalAmount Money       `json:"total_amount"`
}

// OrderSnapshot — сохраняемое представление заказа.
type OrderSnapshot struct {
	ID            OrderID             `json:"id"`
	CustomerID    CustomerID          `json:"customer_id"`
	TotalAmount   Money               `json:"total_amount"`
	TotalItems    Quantity            `json:"total_items"`
	PlacedAt      *time.Time          `json:"placed_at,omitempty"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	CanceledAt    *time.Time          `json:"canceled_at,omitempty"`
	ReadyAt       *time.Time          `json:"ready_at,omitempty"`
	Billing       *Billing            `json:"billing,omitempty"`
	Shipping      *Shipping           `json:"shipping,omitempty"`
	Status        OrderStatus         `json:"status"`
	PaymentMethod PaymentMethod       `json:"payment_method,omitempty"`
	Items         []OrderItemSnapshot `json:"items"`
	Version       int64               `json:"version"`
}

// ShoppingCartItemSnapshot — сохраняемое представление позиции корзины.
type ShoppingCartItemSnapshot struct {
	ID             ShoppingCartItemID `json:"id"`
	ShoppingCartID ShoppingCartID     `json:"shopping_cart_id"`
	ProductID      ProductID          `json:"product_id"`
	Name           ProductName        `json:"name"`
	Price          Money              `json:"price"`
	Quantity       Quantity           `json:"quantity"`
	Available      bool               `json:"available"`
	TotalAmount    Money              `json:"total_amount"`
}

// ShoppingCartSnapshot — сохраняемое представление корзины.
type ShoppingCartSnapshot struct {
	ID          ShoppingCartID             `json:"id"`
	CustomerID  CustomerID                 `json:"customer_id"`
	TotalAmount Money                      `json:"total_amount"`
	TotalItems  Quantity                   `json:"total_items"`
	CreatedAt   time.Time                  `json:"created_at"`
	Items       []ShoppingCartItemSnapshot `json:"items"`
	Version     int64                      `json:"version"`
}

// CustomerSnapshot — сохраняемое представление клиента.
type CustomerSnapshot struct {
	ID                            CustomerID    `json:"id"`
	FullName                      FullName      `json:"full_name"`
	BirthDate                     *BirthDate    `json:"birth_date,omitempty"`
	Email                         Email         `json:"email"`
	Phone                         Phone         `json:"phone"`
	Document                      Document      `json:"document"`
	PromotionNotificationsAllowed bool          `json:"promotion_notifications_allowed"`
	Archived                      bool          `json:"archived"`
	RegisteredAt                  time.Time     `json:"registered_at"`
	ArchivedAt                    *time.Time    `json:"archived_at,omitempty"`
	LoyaltyPoints                 LoyaltyPoints `json:"loyalty_points"`
	Version                       int64         `json:"version"`
}
