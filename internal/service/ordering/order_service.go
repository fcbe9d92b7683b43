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

const aggregateOrderLabel = "order"

// OrderService реализует сценарии работы с заказом.
type OrderService struct {
	orders  domain.OrderRepository
	carts   domain.ShoppingCartRepository
	catalog domain.Catalog
	events  *eventRecorder
	metrics *metrics.OrderingMetrics
	logger  *log.Entry
	retry   RetryPolicy
}

// NewOrderService создаёт сервис заказов. Orders и Catalog обязательны;
// Carts нужен только для Checkout.
func NewOrderService(deps Dependencies) *OrderService {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	return &OrderService{
		orders:  deps.Orders,
		carts:   deps.Carts,
		catalog: deps.Catalog,
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

// Draft создаёт пустой заказ клиента.
func (s *OrderService) Draft(ctx context.Context, customerID domain.CustomerID) (*domain.Order, error) {
	start := time.Now()
	order, err := domain.DraftOrder(customerID)
	if err != nil {
		return nil, s.fail("draft", domain.OrderID{}, err)
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, s.fail("draft", order.ID(), err)
	}
	s.succeed(ctx, "draft", order, domain.EventOrderDrafted, "", start)
	s.metrics.RecordOrderTransition(string(domain.OrderStatusDraft))
	return order, nil
}

// Get возвращает заказ по идентификатору.
func (s *OrderService) Get(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	order, err := s.orders.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return order, nil
}

// ListByCustomer возвращает заказы клиента, новые первыми.
func (s *OrderService) ListByCustomer(ctx context.Context, customerID domain.CustomerID, limit int) ([]*domain.Order, error) {
	orders, err := s.orders.ListByCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders of customer %s: %w", customerID, err)
	}
	return orders, nil
}

// AddItem добавляет в заказ товар из каталога.
func (s *OrderService) AddItem(ctx context.Context, id domain.OrderID, productID domain.ProductID, quantity domain.Quantity) (*domain.Order, error) {
	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, s.fail("add_item", id, err)
	}
	return s.update(ctx, "add_item", id, domain.EventOrderItemAdded, func(order *domain.Order) error {
		_, err := order.AddItem(product, quantity)
		return err
	})
}

// ChangeItemQuantity меняет количество позиции заказа.
func (s *OrderService) ChangeItemQuantity(ctx context.Context, id domain.OrderID, itemID domain.OrderItemID, quantity domain.Quantity) (*domain.Order, error) {
	return s.update(ctx, "change_item_quantity", id, domain.EventOrderItemQuantityChanged, func(order *domain.Order) error {
		return order.ChangeItemQuantity(itemID, quantity)
	})
}

// RemoveItem удаляет позицию заказа.
func (s *OrderService) RemoveItem(ctx context.Context, id domain.OrderID, itemID domain.OrderItemID) (*domain.Order, error) {
	return s.update(ctx, "remove_item", id, domain.EventOrderItemRemoved, func(order *domain.Order) error {
		return order.RemoveItem(itemID)
	})
}

// ChangeBilling заменяет платёжные данные заказа.
func (s *OrderService) ChangeBilling(ctx context.Context, id domain.OrderID, billing domain.Billing) (*domain.Order, error) {
	return s.update(ctx, "change_billing", id, domain.EventOrderBillingChanged, func(order *domain.Order) error {
		return order.ChangeBilling(billing)
	})
}

// ChangeShipping заменяет условия доставки заказа.
func (s *OrderService) ChangeShipping(ctx context.Context, id domain.OrderID, shipping domain.Shipping) (*domain.Order, error) {
	return s.update(ctx, "change_shipping", id, domain.EventOrderShippingChanged, func(order *domain.Order) error {
		return order.ChangeShipping(shipping)
	})
}

// ChangePaymentMethod задаёт способ оплаты.
func (s *OrderService) ChangePaymentMethod(ctx context.Context, id domain.OrderID, method domain.PaymentMethod) (*domain.Order, error) {
	return s.update(ctx, "change_payment_method", id, domain.EventOrderPaymentMethodChanged, func(order *domain.Order) error {
		return order.ChangePaymentMethod(method)
	})
}

// Place оформляет заказ.
func (s *OrderService) Place(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	order, err := s.update(ctx, "place", id, domain.EventOrderPlaced, (*domain.Order).Place)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordOrderTransition(string(domain.OrderStatusPlaced))
	s.metrics.RecordPlacedAmount(order.TotalAmount().Decimal().InexactFloat64())
	return order, nil
}

// MarkAsPaid фиксирует оплату заказа.
func (s *OrderService) MarkAsPaid(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	return s.transition(ctx, "mark_as_paid", id, domain.EventOrderPaid, domain.OrderStatusPaid, (*domain.Order).MarkAsPaid)
}

// MarkAsReady фиксирует готовность заказа.
func (s *OrderService) MarkAsReady(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	return s.transition(ctx, "mark_as_ready", id, domain.EventOrderReady, domain.OrderStatusReady, (*domain.Order).MarkAsReady)
}

// Cancel отменяет заказ; reason попадает в timeline и payload события.
func (s *OrderService) Cancel(ctx context.Context, id domain.OrderID, reason string) (*domain.Order, error) {
	start := time.Now()
	order, err := s.apply(ctx, "cancel", id, (*domain.Order).Cancel)
	if err != nil {
		return nil, err
	}
	s.succeed(ctx, "cancel", order, domain.EventOrderCanceled, reason, start)
	s.metrics.RecordOrderTransition(string(domain.OrderStatusCanceled))
	return order, nil
}

// Checkout превращает корзину в размещённый заказ и очищает корзину.
// Корзина должна быть непустой и без недоступных позиций.
func (s *OrderService) Checkout(
	ctx context.Context,
	cartID domain.ShoppingCartID,
	billing domain.Billing,
	shipping domain.Shipping,
	method domain.PaymentMethod,
) (*domain.Order, error) {
	const op = "checkout"
	start := time.Now()
	if s.carts == nil {
		return nil, s.fail(op, domain.OrderID{}, errors.New("shopping cart repository is not configured"))
	}

	var (
		order *domain.Order
		cart  *domain.ShoppingCart
	)
	err := retryOnConflict(ctx, s.retry, s.logger.WithField("shopping_cart_id", cartID.String()), func() error {
		var err error
		cart, err = s.carts.Load(ctx, cartID)
		if err != nil {
			return err
		}
		order, err = orderFromCart(cart, billing, shipping, method)
		if err != nil {
			return err
		}
		if err := s.orders.Save(ctx, order); err != nil {
			return err
		}
		cart.Empty()
		if err := s.carts.Save(ctx, cart); err != nil {
			s.compensateCheckout(ctx, order, err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(op, domain.OrderID{}, fmt.Errorf("checkout shopping cart %s: %w", cartID, err))
	}

	orderID := order.ID()
	s.events.cartEvent(ctx, cart, domain.EventShoppingCartCheckedOut, nil, &orderID)
	s.succeed(ctx, op, order, domain.EventOrderPlaced, "", start)
	s.metrics.RecordOrderTransition(string(domain.OrderStatusPlaced))
	s.metrics.RecordPlacedAmount(order.TotalAmount().Decimal().InexactFloat64())
	return order, nil
}

// compensateCheckout отменяет заказ, если корзину не удалось очистить.
func (s *OrderService) compensateCheckout(ctx context.Context, order *domain.Order, cause error) {
	logger := s.logger.WithError(cause).WithField("order_id", order.ID().String())
	if err := order.Cancel(); err != nil {
		logger.WithField("compensation_error", err.Error()).Error("checkout compensation failed")
		return
	}
	if err := s.orders.Save(ctx, order); err != nil {
		logger.WithField("compensation_error", err.Error()).Error("checkout compensation failed")
		return
	}
	s.events.orderEvent(ctx, order, domain.EventOrderCanceled, "checkout compensation")
	logger.Warn("checkout compensated, order canceled")
}

func orderFromCart(cart *domain.ShoppingCart, billing domain.Billing, shipping domain.Shipping, method domain.PaymentMethod) (*domain.Order, error) {
	if cart.IsEmpty() {
		return nil, domain.ErrShoppingCartEmpty
	}
	if cart.ContainsUnavailableItems() {
		return nil, domain.ErrShoppingCartHasUnavailableItems
	}

	order, err := domain.DraftOrder(cart.CustomerID())
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
	for _, item := range cart.Items() {
		product, err := domain.NewProduct(item.ProductID(), item.Name(), item.Price(), item.IsAvailable())
		if err != nil {
			return nil, err
		}
		if _, err := order.AddItem(product, item.Quantity()); err != nil {
			return nil, err
		}
	}
	if err := order.Place(); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) transition(
	ctx context.Context,
	op string,
	id domain.OrderID,
	eventType string,
	target domain.OrderStatus,
	fn func(*domain.Order) error,
) (*domain.Order, error) {
	order, err := s.update(ctx, op, id, eventType, fn)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordOrderTransition(string(target))
	return order, nil
}

// update выполняет операцию над заказом и публикует событие.
func (s *OrderService) update(ctx context.Context, op string, id domain.OrderID, eventType string, fn func(*domain.Order) error) (*domain.Order, error) {
	start := time.Now()
	order, err := s.apply(ctx, op, id, fn)
	if err != nil {
		return nil, err
	}
	s.succeed(ctx, op, order, eventType, "", start)
	return order, nil
}

// apply загружает заказ, применяет fn и сохраняет результат с повтором при конфликте версий.
func (s *OrderService) apply(ctx context.Context, op string, id domain.OrderID, fn func(*domain.Order) error) (*domain.Order, error) {
	var order *domain.Order
	err := retryOnConflict(ctx, s.retry, s.logger.WithField("order_id", id.String()), func() error {
		loaded, err := s.orders.Load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(loaded); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, loaded); err != nil {
			return err
		}
		order = loaded
		return nil
	})
	if err != nil {
		return nil, s.fail(op, id, err)
	}
	return order, nil
}

func (s *OrderService) succeed(ctx context.Context, op string, order *domain.Order, eventType, reason string, start time.Time) {
	s.metrics.RecordOperation(aggregateOrderLabel, op, time.Since(start))
	s.events.orderEvent(ctx, order, eventType, reason)
	s.logger.WithFields(log.Fields{
		"order_id":     order.ID().String(),
		"operation":    op,
		"status":       order.Status(),
		"total_amount": order.TotalAmount().String(),
		"version":      order.Version(),
	}).Info("order updated")
}

func (s *OrderService) fail(op string, id domain.OrderID, err error) error {
	reason := rejectionReason(err)
	s.metrics.RecordRejection(aggregateOrderLabel, op, reason)

	entry := s.logger.WithError(err).WithFields(log.Fields{
		"operation": op,
		"reason":    reason,
	})
	if !id.IsZero() {
		entry = entry.WithField("order_id", id.String())
	}
	if isDomainRejection(err) {
		entry.Warn("order operation rejected")
	} else {
		entry.Error("order operation failed")
	}

	if id.IsZero() {
		return fmt.Errorf("%s order: %w", op, err)
	}
	return fmt.Errorf("%s order %s: %w", op, id, err)
}
