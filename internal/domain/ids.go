package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// newUUID генерирует UUIDv7: идентификаторы упорядочены по времени создания,
// что используется для сортировки заказов клиента в хранилище.
func newUUID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

func parseUUID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, newValidationError(field, fmt.Sprintf("malformed uuid %q", raw))
	}
	if id == uuid.Nil {
		return uuid.Nil, newValidationError(field, "must not be nil uuid")
	}
	return id, nil
}

// CustomerID идентифицирует клиента.
type CustomerID struct{ uuid.UUID }

// NewCustomerID генерирует новый идентификатор клиента.
func NewCustomerID() CustomerID { return CustomerID{newUUID()} }

// ParseCustomerID разбирает строковое представление идентификатора.
func ParseCustomerID(raw string) (CustomerID, error) {
	id, err := parseUUID("customer_id", raw)
	return CustomerID{id}, err
}

// IsZero сообщает, что идентификатор не задан.
func (id CustomerID) IsZero() bool { return id.UUID == uuid.Nil }

// OrderID идентифицирует заказ.
type OrderID struct{ uuid.UUID }

// NewOrderID генерирует новый идентификатор заказа.
func NewOrderID() OrderID { return OrderID{newUUID()} }

// ParseOrderID разбирает строковое представление идентификатора.
func ParseOrderID(raw string) (OrderID, error) {
	id, err := parseUUID("order_id", raw)
	return OrderID{id}, err
}

// IsZero сообщает, что идентификатор не задан.
func (id OrderID) IsZero() bool { return id.UUID == uuid.Nil }

// OrderItemID идентифицирует позицию заказа.
type OrderItemID struct{ uuid.UUID }

// NewOrderItemID генерирует новый идентификатор позиции заказа.
func NewOrderItemID() OrderItemID { return OrderItemID{newUUID()} }

// ParseOrderItemID разбирает строковое представление идентификатора.
func ParseOrderItemID(raw string) (OrderItemID, error) {
	id, err := parseUUID("order_item_id", raw)
	return OrderItemID{id}, err
}

// IsZero сообщает, что идентификатор не задан.
func (id OrderItemID) IsZero() bool { return id.UUID == uuid.Nil }

// ProductID идентифицирует товар каталога.
type ProductID struct{ uuid.UUID }

// NewProductID генерирует новый идентификатор товара.
func NewProductID() ProductID { return ProductID{newUUID()} }

// ParseProductID разбирает строковое представление идентификатора.
func ParseProductID(raw string) (ProductID, error) {
	id, err := parseUUID("product_id", raw)
	return ProductID{id}, err
}

// IsZero сообщает, что идентификатор не задан.
func (id ProductID) IsZero() bool { return id.UUID == uuid.Nil }

// ShoppingCartID идентифицирует корзину.
type ShoppingCartID struct{ uuid.UUID }

// NewShoppingCartID генерирует новый идентификатор корзины.
func NewShoppingCartID() ShoppingCartID { return ShoppingCartID{newUUID()} }

// ParseShoppingCartID разбирает строковое представление идентификатора.
func ParseShoppingCartID(raw string) (ShoppingCartID, error) {
	id, err := parseUUID("shopping_cart_id", raw)
	return ShoppingCartID{id}, err
}

// IsZero сообщает, что идентификатор не задан.
func (id ShoppingCartID) IsZero() bool { return id.UUID == uuid.Nil }

// ShoppingCartItemID идентифицирует позицию корзины.
type ShoppingCartItemID struct{ uuid.UUID }

// NewShoppingCartItemID генерирует новый идентификатор позиции корзины.
func NewShoppingCartItemID() ShoppingCartItemID { return ShoppingCartItemID{newUUID()} }

// ParseShoppingCartItemID разбирает строковое представление идентификатора.
func ParseShoppingCartItemID(raw string) (ShoppingCartItemID, error) {
	id, err := parseUUID("shopping_cart_item_id", raw)
	return ShoppingCartItemID{id}, err
}

// IsZero сообщает, что идентификатор не задан.
func (id ShoppingCartItemID) IsZero() bool { return id.UUID == uuid.Nil }
