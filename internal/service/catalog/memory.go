// Package catalog содержит in-memory каталог товаров для разработки и тестов.
package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

// Memory — потокобезопасный каталог в памяти.
type Memory struct {
	mu       sync.RWMutex
	products map[domain.ProductID]domain.Product

	// Lookups считает обращения к Product.
	lookups int
}

// NewMemory создаёт каталог с начальным набором товаров.
func NewMemory(products ...domain.Product) *Memory {
	m := &Memory{products: make(map[domain.ProductID]domain.Product, len(products))}
	for _, product := range products {
		m.products[product.ID()] = product
	}
	return m
}

// Product возвращает товар или domain.ErrProductNotFound.
func (m *Memory) Product(ctx context.Context, id domain.ProductID) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lookups++
	product, ok := m.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// Upsert добавляет товар или заменяет существующий снимок.
// Возвращает true, если товар был новым.
func (m *Memory) Upsert(product domain.Product) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.products[product.ID()]
	m.products[product.ID()] = product
	return !exists
}

// Products возвращает все товары, отсортированные по id.
func (m *Memory) Products() []domain.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Product, 0, len(m.products))
	for _, product := range m.products {
		out = append(out, product)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID().String() < out[j].ID().String() })
	return out
}

// Lookups возвращает число вызовов Product.
func (m *Memory) Lookups() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lookups
}

var _ domain.Catalog = (*Memory)(nil)
