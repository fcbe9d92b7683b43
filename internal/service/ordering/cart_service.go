package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
)

const aggregateCartLabel = "shopping_cart"

// CartService реализует сценарии работы с корзиной покупателя.
type CartService struct {
	carts     domain.ShoppingCartRepository
	customers domain.CustomerRepository
	catalog   domain.Catalog
	events    *eventRecorder
	metrics   *metrics.OrderingMetrics
	logger    *log.Entry
	retry     RetryPolicy
}

// NewCartService создаёт сервис корзин. Если задан Customers, StartShopping
// проверяет, что клиент существует и не архивирован.
func NewCartService(deps Dependencies) *CartService {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-service")
	}
	return &CartService{
		carts:     deps.Carts,
		customers: deps.Customers,
		catalog:   deps.Catalog,
		events: &eventRecorder{
			outbox:   deps.Outbox,
			timeline: deps.Timeline,
			metrics:  deps.Metrics,
			logger:   logger,
		},
		metrics: deps.Metrics,
		logger:  logger,
		retry:   deps.Retry.normalized(),
	}
}

// StartShopping создаёт пустую корзину клиента.
func (s *CartService) StartShopping(ctx context.Context, customerID domain.CustomerID) (*domain.ShoppingCart, error) {
	const op = "start_shopping"
	start := time.Now()
	if s.customers != nil {
		customer, err := s.customers.Load(ctx, customerID)
		if err != nil {
			return nil, s.fail(op, domain.ShoppingCartID{}, err)
		}
		if customer.IsArchived() {
			return nil, s.fail(op, domain.ShoppingCartID{}, &domain.CustomerArchivedError{CustomerID: customerID})
		}
	}

	cart, err := domain.StartShopping(customerID)
	if err != nil {
		return nil, s.fail(op, domain.ShoppingCartID{}, err)
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, s.fail(op, cart.ID(), err)
	}
	s.succeed(ctx, op, cart, domain.EventShoppingCartStarted, nil, start)
	return cart, nil
}

// Get возвращает корзину по идентификатору.
func (s *CartService) Get(ctx context.Context, id domain.ShoppingCartID) (*domain.ShoppingCart, error) {
	cart, err := s.carts.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get shopping cart %s: %w", id, err)
	}
	return cart, nil
}

// AddItem кладёт товар из каталога в корзину. Повторное добавление того же
// товара увеличивает количество существующей позиции.
func (s *CartService) AddItem(ctx context.Context, id domain.ShoppingCartID, productID domain.ProductID, quantity domain.Quantity) (*domain.ShoppingCart, error) {
	const op = "add_item"
	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, s.fail(op, id, err)
	}
	return s.update(ctx, op, id, domain.EventShoppingCartItemAdded, &productID, func(cart *domain.ShoppingCart) error {
		_, err := cart.AddItem(product, quantity)
		return err
	})
}

// RemoveItem удаляет позицию из корзины.
func (s *CartService) RemoveItem(ctx context.Context, id domain.ShoppingCartID, itemID domain.ShoppingCartItemID) (*domain.ShoppingCart, error) {
	return s.update(ctx, "remove_item", id, domain.EventShoppingCartItemRemoved, nil, func(cart *domain.ShoppingCart) error {
		return cart.RemoveItem(itemID)
	})
}

// ChangeItemQuantity меняет количество позиции корзины.
func (s *CartService) ChangeItemQuantity(ctx context.Context, id domain.ShoppingCartID, itemID domain.ShoppingCartItemID, quantity domain.Quantity) (*domain.ShoppingCart, error) {
	return s.update(ctx, "change_item_quantity", id, domain.EventShoppingCartItemQuantityChanged, nil, func(cart *domain.ShoppingCart) error {
		return cart.ChangeItemQuantity(itemID, quantity)
	})
}

// Empty удаляет все позиции корзины.
func (s *CartService) Empty(ctx context.Context, id domain.ShoppingCartID) (*domain.ShoppingCart, error) {
	return s.update(ctx, "empty", id, domain.EventShoppingCartEmptied, nil, func(cart *domain.ShoppingCart) error {
		cart.Empty()
		return nil
	})
}

// RefreshProduct перечитывает товар из каталога и обновляет все корзины с ним.
func (s *CartService) RefreshProduct(ctx context.Context, productID domain.ProductID) (int, error) {
	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return 0, s.fail("refresh_product", domain.ShoppingCartID{}, err)
	}
	return s.ApplyProductUpdate(ctx, product)
}

// ApplyProductUpdate переносит новый снимок товара (цена, наличие) во все
// корзины, где он лежит. Возвращает число обновлённых корзин; ошибки
// отдельных корзин объединяются.
func (s *CartService) ApplyProductUpdate(ctx context.Context, product domain.Product) (int, error) {
	carts, err := s.carts.ListContainingProduct(ctx, product.ID())
	if err != nil {
		return 0, s.fail("refresh_product", domain.ShoppingCartID{}, err)
	}

	productID := product.ID()
	var (
		updated int
		errs    []error
	)
	for _, cart := range carts {
		_, err := s.update(ctx, "refresh_product", cart.ID(), domain.EventShoppingCartItemRefreshed, &productID, func(cart *domain.ShoppingCart) error {
			return cart.RefreshItem(product)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		updated++
	}

	s.logger.WithFields(log.Fields{
		"product_id": productID.String(),
		"carts":      len(carts),
		"updated":    updated,
	}).Info("product update applied to shopping carts")
	return updated, errors.Join(errs...)
}

// update загружает корзину, применяет fn и сохраняет её с повтором при конфликте версий.
func (s *CartService) update(
	ctx context.Context,
	op string,
	id domain.ShoppingCartID,
	eventType string,
	productID *domain.ProductID,
	fn func(*domain.ShoppingCart) error,
) (*domain.ShoppingCart, error) {
	start := time.Now()
	var cart *domain.ShoppingCart
	err := retryOnConflict(ctx, s.retry, s.logger.WithField("shopping_cart_id", id.String()), func() error {
		loaded, err := s.carts.Load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(loaded); err != nil {
			return err
		}
		if err := s.carts.Save(ctx, loaded); err != nil {
			return err
		}
		cart = loaded
		return nil
	})
	if err != nil {
		return nil, s.fail(op, id, err)
	}
	s.succeed(ctx, op, cart, eventType, productID, start)
	return cart, nil
}

func (s *CartService) succeed(ctx context.Context, op string, cart *domain.ShoppingCart, eventType string, productID *domain.ProductID, start time.Time) {
	s.metrics.RecordOperation(aggregateCartLabel, op, time.Since(start))
	s.events.cartEvent(ctx, cart, eventType, productID, nil)
	s.logger.WithFields(log.Fields{
		"shopping_cart_id": cart.ID().String(),
		"operation":        op,
		"total_amount":     cart.TotalAmount().String(),
		"total_items":      cart.TotalItems().Int(),
		"version":          cart.Version(),
	}).Debug("shopping cart updated")
}

func (s *CartService) fail(op string, id domain.ShoppingCartID, err error) error {
	reason := rejectionReason(err)
	s.metrics.RecordRejection(aggregateCartLabel, op, reason)

	entry := s.logger.WithError(err).WithFields(log.Fields{
		"operation": op,
		"reason":    reason,
	})
	if !id.IsZero() {
		entry = entry.WithField("shopping_cart_id", id.String())
	}
	if isDomainRejection(err) {
		entry.Warn("shopping cart operation rejected")
	} else {
		entry.Error("shopping cart operation failed")
	}

	if id.IsZero() {
		return fmt.Errorf("%s shopping cart: %w", op, err)
	}
	return fmt.Errorf("%s shopping cart %s: %w", op, id, err)
}
