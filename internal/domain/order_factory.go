package domain

// NewFilledOrder собирает черновик заказа с реквизитами, способом оплаты и
// одной позицией. Возвращается первая ошибка любого из шагов.
func NewFilledOrder(
	customerID CustomerID,
	shipping Shipping,
	billing Billing,
	method PaymentMethod,
	product Product,
	quantity Quantity,
) (*Order, error) {
	order, err := DraftOrder(customerID)
	if err != nil {
		return nil, err
	}
	if err := order.ChangeBilling(billing); err != nil {
		return nil, err
	}
	if err := order.ChangeShipping(shipping); err != nil {
		return nil, err
	}
	if err := order.ChangePaymentMethod(method); err != nil {
		return nil, err
	}
	if _, err := order.AddItem(product, quantity); err != nil {
		return nil, err
	}
	return order, nil
}
