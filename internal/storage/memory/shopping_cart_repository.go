package memory

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// shoppingCartRepositoryInMemory — in-memory реализация ShoppingCartRepository.
type shoppingCartRepositoryInMemory struct {
	store *snapshotStore[domain.ShoppingCartID, domain.ShoppingCartSnapshot]
}

// NewShoppingCartRepository создаёт in-memory хранилище корзин.
func NewShoppingCartRepository() domain.ShoppingCartRepository {
	return &shoppingCartRepositoryInMemory{store: newSnapshotStore[domain.ShoppingCartID, domain.ShoppingCartSnapshot](domain.ErrShoppingCartNotFound)}
}

func (r *shoppingCartRepositoryInMemory) Load(_ context.Context, id domain.ShoppingCartID) (*domain.ShoppingCart, error) {
	snapshot, ok := r.store.get(id)
	if !ok {
		return nil, domain.ErrShoppingCartNotFound
	}
	return domain.RestoreShoppingCart(snapshot)
}

func (r *shoppingCartRepositoryInMemory) Exists(_ context.Context, id domain.ShoppingCartID) (bool, error) {
	return r.store.exists(id), nil
}

func (r *shoppingCartRepositoryInMemory) Save(_ context.Context, cart *domain.ShoppingCart) error {
	snapshot := cart.Snapshot()
	snapshot.Version++
	if err := r.store.put(cart.ID(), cart.Version(), snapshot); err != nil {
		return fmt.Errorf("save shopping cart %s: %w", cart.ID(), err)
	}
	cart.AdvanceVersion()
	return nil
}

func (r *shoppingCartRepositoryInMemory) Count(_ context.Context) (int, error) {
	return r.store.count(), nil
}

// ListContainingProduct возвращает корзины с позицией указанного товара.
func (r *shoppingCartRepositoryInMemory) ListContainingProduct(_ context.Context, productID domain.ProductID) ([]*domain.ShoppingCart, error) {
	snapshots := r.store.filter(func(s domain.ShoppingCartSnapshot) bool {
		for _, item := range s.Items {
			if item.ProductID == productID {
				return true
			}
		}
		return false
	})

	result := make([]*domain.ShoppingCart, 0, len(snapshots))
	for _, snapshot := range snapshots {
		cart, err := domain.RestoreShoppingCart(snapshot)
		if err != nil {
			return nil, err
		}
		result = append(result, cart)
	}
	return result, nil
}

var _ domain.ShoppingCartRepository = (*shoppingCartRepositoryInMemory)(nil)
