package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	store *snapshotStore[domain.OrderID, domain.OrderSnapshot]
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{store: newSnapshotStore[domain.OrderID, domain.OrderSnapshot](domain.ErrOrderNotFound)}
}

// Load восстанавливает заказ или возвращает ErrOrderNotFound.
func (r *orderRepositoryInMemory) Load(_ context.Context, id domain.OrderID) (*domain.Order, error) {
	snapshot, ok := r.store.get(id)
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return domain.RestoreOrder(snapshot)
}

func (r *orderRepositoryInMemory) Exists(_ context.Context, id domain.OrderID) (bool, error) {
	return r.store.exists(id), nil
}

// Save сохраняет снимок заказа, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(_ context.Context, order *domain.Order) error {
	snapshot := order.Snapshot()
	snapshot.Version++
	if err := r.store.put(order.ID(), order.Version(), snapshot); err != nil {
		return fmt.Errorf("save order %s: %w", order.ID(), err)
	}
	order.AdvanceVersion()
	return nil
}

func (r *orderRepositoryInMemory) Count(_ context.Context) (int, error) {
	return r.store.count(), nil
}

// ListByCustomer возвращает заказы клиента, новые первыми, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByCustomer(_ context.Context, customerID domain.CustomerID, limit int) ([]*domain.Order, error) {
	snapshots := r.store.filter(func(s domain.OrderSnapshot) bool { return s.CustomerID == customerID })
	slices.Reverse(snapshots)
	if limit > 0 && len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}

	result := make([]*domain.Order, 0, len(snapshots))
	for _, snapshot := range snapshots {
		order, err := domain.RestoreOrder(snapshot)
		if err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	return result, nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
