package memory

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

type customerRepositoryInMemory struct {
	store *snapshotStore[domain.CustomerID, domain.CustomerSnapshot]
}

// NewCustomerRepository создаёт in-memory хранилище клиентов.
func NewCustomerRepository() domain.CustomerRepository {
	return &customerRepositoryInMemory{store: newSnapshotStore[domain.CustomerID, domain.CustomerSnapshot](domain.ErrCustomerNotFound)}
}

func (r *customerRepositoryInMemory) Load(_ context.Context, id domain.CustomerID) (*domain.Customer, error) {
	snapshot, ok := r.store.get(id)
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return domain.RestoreCustomer(snapshot)
}

func (r *customerRepositoryInMemory) Exists(_ context.Context, id domain.CustomerID) (bool, error) {
	return r.store.exists(id), nil
}

func (r *customerRepositoryInMemory) Save(_ context.Context, customer *domain.Customer) error {
	snapshot := customer.Snapshot()
	snapshot.Version++
	if err := r.store.put(customer.ID(), customer.Version(), snapshot); err != nil {
		return fmt.Errorf("save customer %s: %w", customer.ID(), err)
	}
	customer.AdvanceVersion()
	return nil
}

func (r *customerRepositoryInMemory) Count(_ context.Context) (int, error) {
	return r.store.count(), nil
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
