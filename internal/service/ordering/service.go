// Package ordering содержит use-case сервисы корзины, заказов и клиентов.
//
// Каждый вызов загружает агрегат, выполняет ровно одну доменную операцию,
// сохраняет агрегат с optimistic locking, пишет событие в timeline и outbox.
// При конфликте версий операция повторяется на свежей копии агрегата.
package ordering

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
)

// Dependencies — общие зависимости сервисов пакета.
type Dependencies struct {
	Orders    domain.OrderRepository
	Carts     domain.ShoppingCartRepository
	Customers domain.CustomerRepository
	Catalog   domain.Catalog
	Outbox    domain.OutboxRepository
	Timeline  domain.TimelineRepository
	Metrics   *metrics.OrderingMetrics
	Logger    *log.Entry
	Retry     RetryPolicy
}

// RetryPolicy задаёт повторы операции при конфликте версий.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy возвращает политику по умолчанию: 3 попытки, 10ms с удвоением.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// retryOnConflict повторяет fn, пока она возвращает конфликт версий.
// Остальные ошибки возвращаются сразу.
func retryOnConflict(ctx context.Context, policy RetryPolicy, logger *log.Entry, fn func() error) error {
	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err = fn()
		if err == nil || !domain.IsVersionConflict(err) || attempt == policy.MaxAttempts {
			return err
		}

		logger.WithField("attempt", attempt).Warn("version conflict detected, retrying")
		delay := policy.BaseDelay * time.Duration(1<<uint(attempt-1))
		if delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// rejectionReason сводит ошибку к короткой метке для метрик.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrCustomerArchived):
		return "customer_archived"
	case errors.Is(err, domain.ErrOrderCannotBeEdited):
		return "order_cannot_be_edited"
	case errors.Is(err, domain.ErrOrderStatusCannotBeChanged):
		return "order_status_cannot_be_changed"
	case errors.Is(err, domain.ErrOrderCannotBePlaced):
		return "order_cannot_be_placed"
	case errors.Is(err, domain.ErrOrderInvalidShippingDeliveryDate):
		return "invalid_delivery_date"
	case errors.Is(err, domain.ErrOrderDoesNotContainItem),
		errors.Is(err, domain.ErrShoppingCartDoesNotContainItem),
		errors.Is(err, domain.ErrShoppingCartDoesNotContainProduct):
		return "item_not_found"
	case errors.Is(err, domain.ErrShoppingCartItemIncompatibleProduct):
		return "incompatible_product"
	case errors.Is(err, domain.ErrProductOutOfStock):
		return "out_of_stock"
	case errors.Is(err, domain.ErrShoppingCartEmpty):
		return "cart_empty"
	case errors.Is(err, domain.ErrShoppingCartHasUnavailableItems):
		return "cart_has_unavailable_items"
	case domain.IsNotFound(err):
		return "not_found"
	case domain.IsVersionConflict(err):
		return "version_conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

// isDomainRejection отличает нарушение бизнес-правил от сбоя инфраструктуры.
func isDomainRejection(err error) bool {
	switch rejectionReason(err) {
	case "internal", "canceled", "version_conflict":
		return false
	default:
		return true
	}
}
