package domain

import (
	"fmt"
	"slices"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusDraft — заказ собирается, позиции и реквизиты можно менять.
	OrderStatusDraft OrderStatus = "DRAFT"
	// OrderStatusPlaced — заказ оформлен клиентом.
	OrderStatusPlaced OrderStatus = "PLACED"
	// OrderStatusPaid — оплата подтверждена.
	OrderStatusPaid OrderStatus = "PAID"
	// OrderStatusReady — заказ собран и готов к выдаче.
	OrderStatusReady OrderStatus = "READY"
	// OrderStatusCanceled — заказ отменён.
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// orderStatusPredecessors — из каких статусов разрешён переход в ключевой статус.
var orderStatusPredecessors = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:    nil,
	OrderStatusPlaced:   {OrderStatusDraft},
	OrderStatusPaid:     {OrderStatusPlaced},
	OrderStatusReady:    {OrderStatusPaid},
	OrderStatusCanceled: {OrderStatusDraft, OrderStatusPlaced, OrderStatusPaid, OrderStatusReady},
}

// OrderStatuses перечисляет все статусы в порядке жизненного цикла.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusDraft, OrderStatusPlaced, OrderStatusPaid, OrderStatusReady, OrderStatusCanceled}
}

// Valid сообщает, что статус известен.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusPredecessors[s]
	return ok
}

// CanChangeTo сообщает, разрешён ли переход s -> target.
func (s OrderStatus) CanChangeTo(target OrderStatus) bool {
	return slices.Contains(orderStatusPredecessors[target], s)
}

// CanNotChangeTo — отрицание CanChangeTo.
func (s OrderStatus) CanNotChangeTo(target OrderStatus) bool { return !s.CanChangeTo(target) }

// ParseOrderStatus разбирает строковое значение статуса.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", newValidationError("order_status", fmt.Sprintf("unknown value %q", raw))
	}
	return s, nil
}
