package domain

import (
	"slices"
	"time"
)

// Order — агрегат заказа клиента.
//
// Итоги заказа (totalAmount, totalItems) не хранятся как независимое состояние:
// они пересчитываются после каждого изменения позиций или доставки.
// Позиции, реквизиты и способ оплаты меняются только в статусе DRAFT.
type Order struct {
	id            OrderID
	customerID    CustomerID
	totalAmount   Money
	totalItems    Quantity
	placedAt      *time.Time
	paidAt        *time.Time
	canceledAt    *time.Time
	readyAt       *time.Time
	billing       *Billing
	shipping      *Shipping
	status        OrderStatus
	paymentMethod PaymentMethod
	items         []OrderItem
	version       int64
}

// DraftOrder создаёт новый заказ в статусе DRAFT без позиций.
func DraftOrder(customerID CustomerID) (*Order, error) {
	if customerID.IsZero() {
		return nil, newValidationError("customer_id", "is required")
	}
	return &Order{
		id:          NewOrderID(),
		customerID:  customerID,
		totalAmount: ZeroMoney,
		totalItems:  ZeroQuantity,
		status:      OrderStatusDraft,
	}, nil
}

// RestoreOrder восстанавливает заказ из хранилища.
// Итоги пересчитываются и должны совпасть с сохранёнными.
func RestoreOrder(s OrderSnapshot) (*Order, error) {
	switch {
	case s.ID.IsZero():
		return nil, newValidationError("order.id", "is required")
	case s.CustomerID.IsZero():
		return nil, newValidationError("order.customer_id", "is required")
	case !s.Status.Valid():
		return nil, newValidationError("order.status", "unknown value "+string(s.Status))
	case s.PaymentMethod != "" && !s.PaymentMethod.Valid():
		return nil, newValidationError("order.payment_method", "unknown value "+string(s.PaymentMethod))
	case s.Version < 0:
		return nil, newValidationError("order.version", "must be non-negative")
	}

	items := make([]OrderItem, 0, len(s.Items))
	seen := make(map[OrderItemID]struct{}, len(s.Items))
	for _, itemSnapshot := range s.Items {
		item, err := RestoreOrderItem(itemSnapshot)
		if err != nil {
			return nil, err
		}
		if item.orderID != s.ID {
			return nil, newValidationError("order.items", "item "+item.id.String()+" belongs to another order")
		}
		if _, dup := seen[item.id]; dup {
			return nil, newValidationError("order.items", "duplicate item "+item.id.String())
		}
		seen[item.id] = struct{}{}
		items = append(items, item)
	}

	order := &Order{
		id:            s.ID,
		customerID:    s.CustomerID,
		placedAt:      copyTime(s.PlacedAt),
		paidAt:        copyTime(s.PaidAt),
		canceledAt:    copyTime(s.CanceledAt),
		readyAt:       copyTime(s.ReadyAt),
		status:        s.Status,
		paymentMethod: s.PaymentMethod,
		items:         items,
		version:       s.Version,
	}
	if s.Billing != nil {
		billing := *s.Billing
		order.billing = &billing
	}
	if s.Shipping != nil {
		shipping := *s.Shipping
		order.shipping = &shipping
	}
	order.recalculateTotals()

	if !order.totalAmount.Equal(s.TotalAmount) {
		return nil, newValidationError("order.total_amount", "does not match items and shipping")
	}
	if order.totalItems != s.TotalItems {
		return nil, newValidationError("order.total_items", "does not match items")
	}
	return order, nil
}

func (o *Order) ID() OrderID                  { return o.id }
func (o *Order) CustomerID() CustomerID       { return o.customerID }
func (o *Order) TotalAmount() Money           { return o.totalAmount }
func (o *Order) TotalItems() Quantity         { return o.totalItems }
func (o *Order) PlacedAt() *time.Time         { return copyTime(o.placedAt) }
func (o *Order) PaidAt() *time.Time           { return copyTime(o.paidAt) }
func (o *Order) CanceledAt() *time.Time       { return copyTime(o.canceledAt) }
func (o *Order) ReadyAt() *time.Time          { return copyTime(o.readyAt) }
func (o *Order) Status() OrderStatus          { return o.status }
func (o *Order) PaymentMethod() PaymentMethod { return o.paymentMethod }

// Version — версия для optimistic locking; 0 у ещё не сохранённого заказа.
func (o *Order) Version() int64 { return o.version }

// AdvanceVersion вызывается хранилищем после успешного сохранения.
func (o *Order) AdvanceVersion() { o.version++ }

// Billing возвращает копию платёжных данных или nil.
func (o *Order) Billing() *Billing {
	if o.billing == nil {
		return nil
	}
	b := *o.billing
	return &b
}

// Shipping возвращает копию условий доставки или nil.
func (o *Order) Shipping() *Shipping {
	if o.shipping == nil {
		return nil
	}
	s := *o.shipping
	return &s
}

// Items возвращает копию позиций; изменения копии не влияют на заказ.
func (o *Order) Items() []OrderItem { return slices.Clone(o.items) }

func (o *Order) IsDraft() bool    { return o.status == OrderStatusDraft }
func (o *Order) IsPlaced() bool   { return o.status == OrderStatusPlaced }
func (o *Order) IsPaid() bool     { return o.status == OrderStatusPaid }
func (o *Order) IsReady() bool    { return o.status == OrderStatusReady }
func (o *Order) IsCanceled() bool { return o.status == OrderStatusCanceled }

// AddItem добавляет новую позицию. Позиции с одинаковым товаром не объединяются.
func (o *Order) AddItem(product Product, quantity Quantity) (OrderItem, error) {
	if err := o.verifyIfChangeable(); err != nil {
		return OrderItem{}, err
	}
	if err := product.CheckOutOfStock(); err != nil {
		return OrderItem{}, err
	}
	item, err := newOrderItem(o.id, product, quantity)
	if err != nil {
		return OrderItem{}, err
	}
	o.items = append(o.items, item)
	o.recalculateTotals()
	return item, nil
}

// ChangeItemQuantity меняет количество позиции; количество должно быть не меньше 1.
func (o *Order) ChangeItemQuantity(itemID OrderItemID, quantity Quantity) error {
	if err := o.verifyIfChangeable(); err != nil {
		return err
	}
	idx, err := o.findItem(itemID)
	if err != nil {
		return err
	}
	updated, err := o.items[idx].withQuantity(quantity)
	if err != nil {
		return err
	}
	o.items[idx] = updated
	o.recalculateTotals()
	return nil
}

// RemoveItem удаляет позицию.
func (o *Order) RemoveItem(itemID OrderItemID) error {
	if err := o.verifyIfChangeable(); err != nil {
		return err
	}
	idx, err := o.findItem(itemID)
	if err != nil {
		return err
	}
	o.items = slices.Delete(o.items, idx, idx+1)
	o.recalculateTotals()
	return nil
}

// ChangeBilling заменяет платёжные данные.
func (o *Order) ChangeBilling(billing Billing) error {
	if err := o.verifyIfChangeable(); err != nil {
		return err
	}
	o.billing = &billing
	return nil
}

// ChangeShipping заменяет условия доставки и пересчитывает итоги.
func (o *Order) ChangeShipping(shipping Shipping) error {
	if err := o.verifyIfChangeable(); err != nil {
		return err
	}
	if shipping.ExpectedDate().Before(today()) {
		return &OrderInvalidShippingDeliveryDateError{OrderID: o.id}
	}
	o.shipping = &shipping
	o.recalculateTotals()
	return nil
}

// ChangePaymentMethod задаёт способ оплаты.
func (o *Order) ChangePaymentMethod(method PaymentMethod) error {
	if err := o.verifyIfChangeable(); err != nil {
		return err
	}
	if !method.Valid() {
		return newValidationError("payment_method", "unknown value "+string(method))
	}
	o.paymentMethod = method
	return nil
}

// Place оформляет заказ. Предусловия проверяются в порядке:
// доставка, оплата, способ оплаты, позиции.
func (o *Order) Place() error {
	if err := o.verifyCanBePlaced(); err != nil {
		return err
	}
	if err := o.changeStatus(OrderStatusPlaced); err != nil {
		return err
	}
	o.placedAt = timestamp()
	return nil
}

// MarkAsPaid фиксирует оплату.
func (o *Order) MarkAsPaid() error {
	if err := o.changeStatus(OrderStatusPaid); err != nil {
		return err
	}
	o.paidAt = timestamp()
	return nil
}

// MarkAsReady фиксирует готовность заказа.
func (o *Order) MarkAsReady() error {
	if err := o.changeStatus(OrderStatusReady); err != nil {
		return err
	}
	o.readyAt = timestamp()
	return nil
}

// Cancel отменяет заказ; повторная отмена запрещена таблицей переходов.
func (o *Order) Cancel() error {
	if err := o.changeStatus(OrderStatusCanceled); err != nil {
		return err
	}
	o.canceledAt = timestamp()
	return nil
}

// Snapshot возвращает данные заказа для хранилища.
func (o *Order) Snapshot() OrderSnapshot {
	items := make([]OrderItemSnapshot, 0, len(o.items))
	for _, item := range o.items {
		items = append(items, item.Snapshot())
	}
	return OrderSnapshot{
		ID:            o.id,
		CustomerID:    o.customerID,
		TotalAmount:   o.totalAmount,
		TotalItems:    o.totalItems,
		PlacedAt:      copyTime(o.placedAt),
		PaidAt:        copyTime(o.paidAt),
		CanceledAt:    copyTime(o.canceledAt),
		ReadyAt:       copyTime(o.readyAt),
		Billing:       o.Billing(),
		Shipping:      o.Shipping(),
		Status:        o.status,
		PaymentMethod: o.paymentMethod,
		Items:         items,
		Version:       o.version,
	}
}

func (o *Order) verifyIfChangeable() error {
	if o.status != OrderStatusDraft {
		return &OrderCannotBeEditedError{OrderID: o.id, Status: o.status}
	}
	return nil
}

func (o *Order) verifyCanBePlaced() error {
	switch {
	case o.shipping == nil:
		return &OrderCannotBePlacedError{OrderID: o.id, Reason: PlacementNoShippingInfo}
	case o.billing == nil:
		return &OrderCannotBePlacedError{OrderID: o.id, Reason: PlacementNoBillingInfo}
	case o.paymentMethod == "":
		return &OrderCannotBePlacedError{OrderID: o.id, Reason: PlacementNoPaymentMethod}
	case len(o.items) == 0:
		return &OrderCannotBePlacedError{OrderID: o.id, Reason: PlacementNoItems}
	}
	return nil
}

func (o *Order) changeStatus(target OrderStatus) error {
	if o.status.CanNotChangeTo(target) {
		return &OrderStatusCannotBeChangedError{OrderID: o.id, From: o.status, To: target}
	}
	o.status = target
	return nil
}

func (o *Order) findItem(itemID OrderItemID) (int, error) {
	idx := slices.IndexFunc(o.items, func(item OrderItem) bool { return item.id == itemID })
	if idx < 0 {
		return -1, &OrderDoesNotContainItemError{OrderID: o.id, ItemID: itemID}
	}
	return idx, nil
}

func (o *Order) recalculateTotals() {
	amount := ZeroMoney
	count := ZeroQuantity
	for _, item := range o.items {
		amount = amount.Add(item.totalAmount)
		count = count.Add(item.quantity)
	}
	if o.shipping != nil {
		amount = amount.Add(o.shipping.cost)
	}
	o.totalAmount = amount
	o.totalItems = count
}

func timestamp() *time.Time {
	t := now()
	return &t
}
