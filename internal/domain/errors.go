package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation — значение не прошло проверку конструктора.
	ErrValidation = errors.New("validation failed")
	// ErrCustomerArchived — изменение архивного клиента.
	ErrCustomerArchived = errors.New("customer is archived")
	// ErrOrderCannotBeEdited — заказ можно менять только в статусе DRAFT.
	ErrOrderCannotBeEdited = errors.New("order cannot be edited")
	// ErrOrderStatusCannotBeChanged — переход статуса запрещён таблицей переходов.
	ErrOrderStatusCannotBeChanged = errors.New("order status cannot be changed")
	// ErrOrderCannotBePlaced — не выполнены предусловия размещения заказа.
	ErrOrderCannotBePlaced = errors.New("order cannot be placed")
	// ErrOrderInvalidShippingDeliveryDate — ожидаемая дата доставки в прошлом.
	ErrOrderInvalidShippingDeliveryDate = errors.New("order expected delivery date is invalid")
	// ErrOrderDoesNotContainItem — в заказе нет позиции с указанным id.
	ErrOrderDoesNotContainItem = errors.New("order does not contain item")
	// ErrShoppingCartDoesNotContainItem — в корзине нет позиции с указанным id.
	ErrShoppingCartDoesNotContainItem = errors.New("shopping cart does not contain item")
	// ErrShoppingCartDoesNotContainProduct — в корзине нет позиции с указанным товаром.
	ErrShoppingCartDoesNotContainProduct = errors.New("shopping cart does not contain product")
	// ErrShoppingCartItemIncompatibleProduct — попытка обновить позицию чужим товаром.
	ErrShoppingCartItemIncompatibleProduct = errors.New("shopping cart item product is incompatible")
	// ErrProductOutOfStock — товара нет в наличии.
	ErrProductOutOfStock = errors.New("product is out of stock")
	// ErrShoppingCartEmpty — оформление пустой корзины.
	ErrShoppingCartEmpty = errors.New("shopping cart is empty")
	// ErrShoppingCartHasUnavailableItems — в корзине есть недоступные позиции.
	ErrShoppingCartHasUnavailableItems = errors.New("shopping cart contains unavailable items")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrShoppingCartNotFound возвращается, если корзина не найдена.
	ErrShoppingCartNotFound = errors.New("shopping cart not found")
	// ErrCustomerNotFound возвращается, если клиент не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrProductNotFound возвращается каталогом для неизвестного товара.
	ErrProductNotFound = errors.New("product not found")
	// ErrVersionConflict сигнализирует о конфликте версий при сохранении агрегата.
	ErrVersionConflict = errors.New("aggregate version conflict")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsNotFound сообщает, что агрегат или товар не найден.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrShoppingCartNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrProductNotFound)
}

// ValidationError описывает отклонённое значение.
type ValidationError struct {
	Field  string
	Reason string
}

func newValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// CustomerArchivedError возвращается при попытке изменить архивного клиента.
type CustomerArchivedError struct {
	CustomerID CustomerID
}

func (e *CustomerArchivedError) Error() string {
	return fmt.Sprintf("Customer %s is archived and cannot be changed", e.CustomerID)
}

func (e *CustomerArchivedError) Is(target error) bool { return target == ErrCustomerArchived }

// OrderCannotBeEditedError возвращается при изменении заказа вне статуса DRAFT.
type OrderCannotBeEditedError struct {
	OrderID OrderID
	Status  OrderStatus
}

func (e *OrderCannotBeEditedError) Error() string {
	return fmt.Sprintf("Order %s with status %s cannot be edited", e.OrderID, e.Status)
}

func (e *OrderCannotBeEditedError) Is(target error) bool { return target == ErrOrderCannotBeEdited }

// OrderStatusCannotBeChangedError описывает запрещённый переход статуса.
type OrderStatusCannotBeChangedError struct {
	OrderID OrderID
	From    OrderStatus
	To      OrderStatus
}

func (e *OrderStatusCannotBeChangedError) Error() string {
	return fmt.Sprintf("Cannot change order %s status from %s to %s", e.OrderID, e.From, e.To)
}

func (e *OrderStatusCannotBeChangedError) Is(target error) bool {
	return target == ErrOrderStatusCannotBeChanged
}

// PlacementFailure — причина, по которой заказ не может быть размещён.
type PlacementFailure string

const (
	PlacementNoShippingInfo  PlacementFailure = "shipping info"
	PlacementNoBillingInfo   PlacementFailure = "billing info"
	PlacementNoPaymentMethod PlacementFailure = "payment method"
	PlacementNoItems         PlacementFailure = "items"
)

// OrderCannotBePlacedError возвращается из Place при невыполненных предусловиях.
type OrderCannotBePlacedError struct {
	OrderID OrderID
	Reason  PlacementFailure
}

func (e *OrderCannotBePlacedError) Error() string {
	return fmt.Sprintf("Order %s cannot be placed, it has no %s", e.OrderID, e.Reason)
}

func (e *OrderCannotBePlacedError) Is(target error) bool { return target == ErrOrderCannotBePlaced }

// OrderInvalidShippingDeliveryDateError — дата доставки раньше текущей даты.
type OrderInvalidShippingDeliveryDateError struct {
	OrderID OrderID
}

func (e *OrderInvalidShippingDeliveryDateError) Error() string {
	return fmt.Sprintf("Order %s expected delivery date cannot be in the past", e.OrderID)
}

func (e *OrderInvalidShippingDeliveryDateError) Is(target error) bool {
	return target == ErrOrderInvalidShippingDeliveryDate
}

// OrderDoesNotContainItemError — позиция не найдена в заказе.
type OrderDoesNotContainItemError struct {
	OrderID OrderID
	ItemID  OrderItemID
}

func (e *OrderDoesNotContainItemError) Error() string {
	return fmt.Sprintf("Order %s does not contain item %s", e.OrderID, e.ItemID)
}

func (e *OrderDoesNotContainItemError) Is(target error) bool {
	return target == ErrOrderDoesNotContainItem
}

// ShoppingCartDoesNotContainItemError — позиция не найдена в корзине.
type ShoppingCartDoesNotContainItemError struct {
	CartID ShoppingCartID
	ItemID ShoppingCartItemID
}

func (e *ShoppingCartDoesNotContainItemError) Error() string {
	return fmt.Sprintf("Shopping cart %s does not contain item %s", e.CartID, e.ItemID)
}

func (e *ShoppingCartDoesNotContainItemError) Is(target error) bool {
	return target == ErrShoppingCartDoesNotContainItem
}

// ShoppingCartDoesNotContainProductError — в корзине нет позиции с товаром.
type ShoppingCartDoesNotContainProductError struct {
	CartID    ShoppingCartID
	ProductID ProductID
}

func (e *ShoppingCartDoesNotContainProductError) Error() string {
	return fmt.Sprintf("Shopping cart %s does not contain product %s", e.CartID, e.ProductID)
}

func (e *ShoppingCartDoesNotContainProductError) Is(target error) bool {
	return target == ErrShoppingCartDoesNotContainProduct
}

// ShoppingCartItemIncompatibleProductError — товар не совпадает с товаром позиции.
type ShoppingCartItemIncompatibleProductError struct {
	ItemID    ShoppingCartItemID
	ProductID ProductID
}

func (e *ShoppingCartItemIncompatibleProductError) Error() string {
	return fmt.Sprintf("Shopping cart item %s is incompatible with product %s", e.ItemID, e.ProductID)
}

func (e *ShoppingCartItemIncompatibleProductError) Is(target error) bool {
	return target == ErrShoppingCartItemIncompatibleProduct
}

// ProductOutOfStockError — товара нет в наличии.
type ProductOutOfStockError struct {
	ProductID ProductID
}

func (e *ProductOutOfStockError) Error() string {
	return fmt.Sprintf("Product %s is out of stock", e.ProductID)
}

func (e *ProductOutOfStockError) Is(target error) bool { return target == ErrProductOutOfStock }
