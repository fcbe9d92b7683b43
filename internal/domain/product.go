package domain

// Product — снимок товара каталога на момент добавления в корзину или заказ.
type Product struct {
	id      ProductID
	name    ProductName
	price   Money
	inStock bool
}

// NewProduct требует идентификатор и название.
func NewProduct(id ProductID, name ProductName, price Money, inStock bool) (Product, error) {
	if id.IsZero() {
		return Product{}, newValidationError("product_id", "is required")
	}
	if name.IsZero() {
		return Product{}, newValidationError("product_name", "is required")
	}
	return Product{id: id, name: name, price: price, inStock: inStock}, nil
}

func (p Product) ID() ProductID     { return p.id }
func (p Product) Name() ProductName { return p.name }
func (p Product) Price() Money      { return p.price }
func (p Product) InStock() bool     { return p.inStock }

// CheckOutOfStock возвращает ProductOutOfStockError, если товара нет в наличии.
func (p Product) CheckOutOfStock() error {
	if !p.inStock {
		return &ProductOutOfStockError{ProductID: p.id}
	}
	return nil
}
