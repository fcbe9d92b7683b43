package domain

import "context"

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Load возвращает заказ по идентификатору или ErrOrderNotFound.
	Load(ctx context.Context, id OrderID) (*Order, error)
	// Exists сообщает, сохранён ли заказ.
	Exists(ctx context.Context, id OrderID) (bool, error)
	// Save вставляет или обновляет заказ с учётом optimistic locking;
	// при успехе версия агрегата увеличивается.
	Save(ctx context.Context, order *Order) error
	// Count возвращает число сохранённых заказов.
	Count(ctx context.Context) (int, error)
	// ListByCustomer возвращает заказы клиента, новые первыми; limit <= 0 — без ограничения.
	ListByCustomer(ctx context.Context, customerID CustomerID, limit int) ([]*Order, error)
}

// ShoppingCartRepository описывает требования к хранилищу корзин.
type ShoppingCartRepository interface {
	Load(ctx context.Context, id ShoppingCartID) (*ShoppingCart, error)
	Exists(ctx context.Context, id ShoppingCartID) (bool, error)
	Save(ctx context.Context, cart *ShoppingCart) error
	Count(ctx context.Context) (int, error)
	// ListContainingProduct возвращает корзины, в которых есть позиция с товаром.
	ListContainingProduct(ctx context.Context, productID ProductID) ([]*ShoppingCart, error)
}

// CustomerRepository описывает требования к хранилищу клиентов.
type CustomerRepository interface {
	Load(ctx context.Context, id CustomerID) (*Customer, error)
	Exists(ctx context.Context, id CustomerID) (bool, error)
	Save(ctx context.Context, customer *Customer) error
	Count(ctx context.Context) (int, error)
}

// Catalog поставляет актуальные снимки товаров.
type Catalog interface {
	// Product возвращает товар или ErrProductNotFound.
	Product(ctx context.Context, id ProductID) (Product, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит историю изменений агрегатов.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, aggregateType AggregateType, aggregateID string) ([]TimelineEvent, error)
}
