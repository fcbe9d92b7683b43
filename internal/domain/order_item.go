package domain

// OrderItem — строка заказа. Итог позиции всегда равен price * quantity.
type OrderItem struct {
	id          OrderItemID
	orderID     OrderID
	productID   ProductID
	productName ProductName
	price       Money
	quantity    Quantity
	totalAmount Money
}

func newOrderItem(orderID OrderID, product Product, quantity Quantity) (OrderItem, error) {
	total, err := product.Price().Multiply(quantity)
	if err != nil {
		return OrderItem{}, err
	}
	return OrderItem{
		id:          NewOrderItemID(),
		orderID:     orderID,
		productID:   product.ID(),
		productName: product.Name(),
		price:       product.Price(),
		quantity:    quantity,
		totalAmount: total,
	}, nil
}

// RestoreOrderItem восстанавливает сохранённую позицию; итог пересчитывается и сверяется.
func RestoreOrderItem(s OrderItemSnapshot) (OrderItem, error) {
	switch {
	case s.ID.IsZero():
		return OrderItem{}, newValidationError("order_item.id", "is required")
	case s.OrderID.IsZero():
		return OrderItem{}, newValidationError("order_item.order_id", "is required")
	case s.ProductID.IsZero():
		return OrderItem{}, newValidationError("order_item.product_id", "is required")
	case s.ProductName.IsZero():
		return OrderItem{}, newValidationError("order_item.product_name", "is required")
	}
	total, err := s.Price.Multiply(s.Quantity)
	if err != nil {
		return OrderItem{}, err
	}
	if !total.Equal(s.TotalAmount) {
		return OrderItem{}, newValidationError("order_item.total_amount", "does not match price * quantity")
	}
	return OrderItem{
		id:          s.ID,
		orderID:     s.OrderID,
		productID:   s.ProductID,
		productName: s.ProductName,
		price:       s.Price,
		quantity:    s.Quantity,
		totalAmount: total,
	}, nil
}

func (i OrderItem) withQuantity(quantity Quantity) (OrderItem, error) {
	total, err := i.price.Multiply(quantity)
	if err != nil {
		return OrderItem{}, err
	}
	i.quantity = quantity
	i.totalAmount = total
	return i, nil
}

func (i OrderItem) ID() OrderItemID          { return i.id }
func (i OrderItem) OrderID() OrderID         { return i.orderID }
func (i OrderItem) ProductID() ProductID     { return i.productID }
func (i OrderItem) ProductName() ProductName { return i.productName }
func (i OrderItem) Price() Money             { return i.price }
func (i OrderItem) Quantity() Quantity       { return i.quantity }
func (i OrderItem) TotalAmount() Money       { return i.totalAmount }

// Snapshot возвращает данные позиции для хранилища.
func (i OrderItem) Snapshot() OrderItemSnapshot {
	return OrderItemSnapshot{
		ID:          i.id,
		OrderID:     i.orderID,
		ProductID:   i.productID,
		ProductName: i.productName,
		Price:       i.price,
		Quantity:    i.quantity,
		TotalAmount: i.totalAmount,
	}
}
