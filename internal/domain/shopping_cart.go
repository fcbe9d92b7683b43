package domain

import (
	"slices"
	"time"
)

// ShoppingCart — корзина клиента. Один товар всегда занимает одну позицию:
// повторное добавление увеличивает количество существующей позиции.
type ShoppingCart struct {
	id          ShoppingCartID
	customerID  CustomerID
	totalAmount Money
	totalItems  Quantity
	createdAt   time.Time
	items       []ShoppingCartItem
	version     int64
}

// StartShopping создаёт пустую корзину клиента.
func StartShopping(customerID CustomerID) (*ShoppingCart, error) {
	if customerID.IsZero() {
		return nil, newValidationError("customer_id", "is required")
	}
	return &ShoppingCart{
		id:          NewShoppingCartID(),
		customerID:  customerID,
		totalAmount: ZeroMoney,
		totalItems:  ZeroQuantity,
		createdAt:   now(),
	}, nil
}

// RestoreShoppingCart восстанавливает корзину из хранилища.
func RestoreShoppingCart(s ShoppingCartSnapshot) (*ShoppingCart, error) {
	switch {
	case s.ID.IsZero():
		return nil, newValidationError("shopping_cart.id", "is required")
	case s.CustomerID.IsZero():
		return nil, newValidationError("shopping_cart.customer_id", "is required")
	case s.CreatedAt.IsZero():
		return nil, newValidationError("shopping_cart.created_at", "is required")
	case s.Version < 0:
		return nil, newValidationError("shopping_cart.version", "must be non-negative")
	}

	items := make([]ShoppingCartItem, 0, len(s.Items))
	products := make(map[ProductID]struct{}, len(s.Items))
	for _, itemSnapshot := range s.Items {
		item, err := RestoreShoppingCartItem(itemSnapshot)
		if err != nil {
			return nil, err
		}
		if item.shoppingCartID != s.ID {
			return nil, newValidationError("shopping_cart.items", "item "+item.id.String()+" belongs to another cart")
		}
		if _, dup := products[item.productID]; dup {
			return nil, newValidationError("shopping_cart.items", "duplicate product "+item.productID.String())
		}
		products[item.productID] = struct{}{}
		items = append(items, item)
	}

	cart := &ShoppingCart{
		id:         s.ID,
		customerID: s.CustomerID,
		createdAt:  s.CreatedAt,
		items:      items,
		version:    s.Version,
	}
	cart.recalculateTotals()
	if !cart.totalAmount.Equal(s.TotalAmount) {
		return nil, newValidationError("shopping_cart.total_amount", "does not match items")
	}
	if cart.totalItems != s.TotalItems {
		return nil, newValidationError("shopping_cart.total_items", "does not match items")
	}
	return cart, nil
}

func (c *ShoppingCart) ID() ShoppingCartID     { return c.id }
func (c *ShoppingCart) CustomerID() CustomerID { return c.customerID }
func (c *ShoppingCart) TotalAmount() Money     { return c.totalAmount }
func (c *ShoppingCart) TotalItems() Quantity   { return c.totalItems }
func (c *ShoppingCart) CreatedAt() time.Time   { return c.createdAt }
func (c *ShoppingCart) Version() int64         { return c.version }

// AdvanceVersion вызывается хранилищем после успешного сохранения.
func (c *ShoppingCart) AdvanceVersion() { c.version++ }

// Items возвращает копию позиций.
func (c *ShoppingCart) Items() []ShoppingCartItem { return slices.Clone(c.items) }

// IsEmpty сообщает, что в корзине нет позиций.
func (c *ShoppingCart) IsEmpty() bool { return len(c.items) == 0 }

// AddItem добавляет товар или увеличивает количество уже лежащей позиции.
// При объединении позиция обновляется по новому снимку товара.
func (c *ShoppingCart) AddItem(product Product, quantity Quantity) (ShoppingCartItem, error) {
	if err := product.CheckOutOfStock(); err != nil {
		return ShoppingCartItem{}, err
	}

	if idx := c.indexOfProduct(product.ID()); idx >= 0 {
		existing := c.items[idx]
		refreshed, err := existing.refreshed(product)
		if err != nil {
			return ShoppingCartItem{}, err
		}
		merged, err := refreshed.withQuantity(existing.quantity.Add(quantity))
		if err != nil {
			return ShoppingCartItem{}, err
		}
		c.items[idx] = merged
		c.recalculateTotals()
		return merged, nil
	}

	item, err := NewShoppingCartItem(c.id, product.ID(), product.Name(), product.Price(), quantity, product.InStock())
	if err != nil {
		return ShoppingCartItem{}, err
	}
	c.items = append(c.items, item)
	c.recalculateTotals()
	return item, nil
}

// RemoveItem удаляет позицию по идентификатору.
func (c *ShoppingCart) RemoveItem(itemID ShoppingCartItemID) error {
	idx, err := c.findItem(itemID)
	if err != nil {
		return err
	}
	c.items = slices.Delete(c.items, idx, idx+1)
	c.recalculateTotals()
	return nil
}

// ChangeItemQuantity меняет количество позиции; ноль запрещён.
func (c *ShoppingCart) ChangeItemQuantity(itemID ShoppingCartItemID, quantity Quantity) error {
	idx, err := c.findItem(itemID)
	if err != nil {
		return err
	}
	updated, err := c.items[idx].withQuantity(quantity)
	if err != nil {
		return err
	}
	c.items[idx] = updated
	c.recalculateTotals()
	return nil
}

// RefreshItem обновляет позицию товара по новому снимку каталога.
func (c *ShoppingCart) RefreshItem(product Product) error {
	idx := c.indexOfProduct(product.ID())
	if idx < 0 {
		return &ShoppingCartDoesNotContainProductError{CartID: c.id, ProductID: product.ID()}
	}
	updated, err := c.items[idx].refreshed(product)
	if err != nil {
		return err
	}
	c.items[idx] = updated
	c.recalculateTotals()
	return nil
}

// ContainsProduct сообщает, есть ли в корзине позиция с товаром.
func (c *ShoppingCart) ContainsProduct(productID ProductID) bool {
	return c.indexOfProduct(productID) >= 0
}

// Empty очищает корзину и обнуляет итоги.
func (c *ShoppingCart) Empty() {
	c.items = nil
	c.totalAmount = ZeroMoney
	c.totalItems = ZeroQuantity
}

// ContainsUnavailableItems сообщает, есть ли позиции без наличия.
func (c *ShoppingCart) ContainsUnavailableItems() bool {
	return slices.ContainsFunc(c.items, func(item ShoppingCartItem) bool { return !item.available })
}

// Snapshot возвращает данные корзины для хранилища.
func (c *ShoppingCart) Snapshot() ShoppingCartSnapshot {
	items := make([]ShoppingCartItemSnapshot, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, item.Snapshot())
	}
	return ShoppingCartSnapshot{
		ID:          c.id,
		CustomerID:  c.customerID,
		TotalAmount: c.totalAmount,
		TotalItems:  c.totalItems,
		CreatedAt:   c.createdAt,
		Items:       items,
		Version:     c.version,
	}
}

func (c *ShoppingCart) findItem(itemID ShoppingCartItemID) (int, error) {
	idx := slices.IndexFunc(c.items, func(item ShoppingCartItem) bool { return item.id == itemID })
	if idx < 0 {
		return -1, &ShoppingCartDoesNotContainItemError{CartID: c.id, ItemID: itemID}
	}
	return idx, nil
}

func (c *ShoppingCart) indexOfProduct(productID ProductID) int {
	return slices.IndexFunc(c.items, func(item ShoppingCartItem) bool { return item.productID == productID })
}

func (c *ShoppingCart) recalculateTotals() {
	amount := ZeroMoney
	count := ZeroQuantity
	for _, item := range c.items {
		amount = amount.Add(item.totalAmount)
		count = count.Add(item.quantity)
	}
	c.totalAmount = amount
	c.totalItems = count
}
