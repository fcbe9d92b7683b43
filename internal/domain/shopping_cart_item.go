package domain

// ShoppingCartItem — позиция корзины, привязанная к одному товару.
type ShoppingCartItem struct {
	id             ShoppingCartItemID
	shoppingCartID ShoppingCartID
	productID      ProductID
	name           ProductName
	price          Money
	quantity       Quantity
	available      bool
	totalAmount    Money
}

// NewShoppingCartItem создаёт новую позицию; количество должно быть больше нуля.
func NewShoppingCartItem(
	cartID ShoppingCartID,
	productID ProductID,
	name ProductName,
	price Money,
	quantity Quantity,
	available bool,
) (ShoppingCartItem, error) {
	return newShoppingCartItem(ShoppingCartItemSnapshot{
		ID:             NewShoppingCartItemID(),
		ShoppingCartID: cartID,
		ProductID:      productID,
		Name:           name,
		Price:          price,
		Quantity:       quantity,
		Available:      available,
	})
}

// RestoreShoppingCartItem восстанавливает сохранённую позицию.
func RestoreShoppingCartItem(s ShoppingCartItemSnapshot) (ShoppingCartItem, error) {
	item, err := newShoppingCartItem(s)
	if err != nil {
		return ShoppingCartItem{}, err
	}
	if !item.totalAmount.Equal(s.TotalAmount) {
		return ShoppingCartItem{}, newValidationError("shopping_cart_item.total_amount", "does not match price * quantity")
	}
	return item, nil
}

func newShoppingCartItem(s ShoppingCartItemSnapshot) (ShoppingCartItem, error) {
	switch {
	case s.ID.IsZero():
		return ShoppingCartItem{}, newValidationError("shopping_cart_item.id", "is required")
	case s.ShoppingCartID.IsZero():
		return ShoppingCartItem{}, newValidationError("shopping_cart_item.shopping_cart_id", "is required")
	case s.ProductID.IsZero():
		return ShoppingCartItem{}, newValidationError("shopping_cart_item.product_id", "is required")
	case s.Name.IsZero():
		return ShoppingCartItem{}, newValidationError("shopping_cart_item.name", "is required")
	}
	item := ShoppingCartItem{
		id:             s.ID,
		shoppingCartID: s.ShoppingCartID,
		productID:      s.ProductID,
		name:           s.Name,
		price:          s.Price,
		available:      s.Available,
	}
	return item.withQuantity(s.Quantity)
}

// withQuantity возвращает позицию с новым количеством и пересчитанным итогом.
func (i ShoppingCartItem) withQuantity(quantity Quantity) (ShoppingCartItem, error) {
	if quantity.IsZero() {
		return ShoppingCartItem{}, newValidationError("quantity", "shopping cart item quantity must be greater than zero")
	}
	total, err := i.price.Multiply(quantity)
	if err != nil {
		return ShoppingCartItem{}, err
	}
	i.quantity = quantity
	i.totalAmount = total
	return i, nil
}

// refreshed возвращает позицию с данными нового снимка товара.
func (i ShoppingCartItem) refreshed(product Product) (ShoppingCartItem, error) {
	if product.ID() != i.productID {
		return ShoppingCartItem{}, &ShoppingCartItemIncompatibleProductError{ItemID: i.id, ProductID: product.ID()}
	}
	i.price = product.Price()
	i.available = product.InStock()
	i.name = product.Name()
	return i.withQuantity(i.quantity)
}

func (i ShoppingCartItem) ID() ShoppingCartItemID         { return i.id }
func (i ShoppingCartItem) ShoppingCartID() ShoppingCartID { return i.shoppingCartID }
func (i ShoppingCartItem) ProductID() ProductID           { return i.productID }
func (i ShoppingCartItem) Name() ProductName              { return i.name }
func (i ShoppingCartItem) Price() Money                   { return i.price }
func (i ShoppingCartItem) Quantity() Quantity             { return i.quantity }
func (i ShoppingCartItem) IsAvailable() bool              { return i.available }
func (i ShoppingCartItem) TotalAmount() Money             { return i.totalAmount }

// Snapshot возвращает данные позиции для хранилища.
func (i ShoppingCartItem) Snapshot() ShoppingCartItemSnapshot {
	return ShoppingCartItemSnapshot{
		ID:             i.id,
		ShoppingCartID: i.shoppingCartID,
		ProductID:      i.productID,
		Name:           i.name,
		Price:          i.price,
		Quantity:       i.quantity,
		Available:      i.available,
		TotalAmount:    i.totalAmount,
	}
}
