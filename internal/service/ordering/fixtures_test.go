package ordering_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

func mustProduct(t *testing.T, name, price string, inStock bool) domain.Product {
	t.Helper()
	productName, err := domain.NewProductName(name)
	if err != nil {
		t.Fatalf("product name: %v", err)
	}
	product, err := domain.NewProduct(domain.NewProductID(), productName, domain.MustMoney(price), inStock)
	if err != nil {
		t.Fatalf("product: %v", err)
	}
	return product
}

func withStock(t *testing.T, p domain.Product, price string, inStock bool) domain.Product {
	t.Helper()
	updated, err := domain.NewProduct(p.ID(), p.Name(), domain.MustMoney(price), inStock)
	if err != nil {
		t.Fatalf("product: %v", err)
	}
	return updated
}

func mustAddress(t *testing.T) domain.Address {
	t.Helper()
	zip, err := domain.NewZipCode("79911")
	if err != nil {
		t.Fatalf("zip code: %v", err)
	}
	address, err := domain.NewAddress(domain.AddressParams{
		Street:       "Bourbon Street",
		Neighborhood: "North Ville",
		Number:       "1134",
		City:         "York",
		State:        "South California",
		ZipCode:      zip,
	})
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	return address
}

func mustFullName(t *testing.T) domain.FullName {
	t.Helper()
	name, err := domain.NewFullName("John", "Doe")
	if err != nil {
		t.Fatalf("full name: %v", err)
	}
	return name
}

func mustBilling(t *testing.T) domain.Billing {
	t.Helper()
	document, _ := domain.NewDocument("225-09-1992")
	phone, _ := domain.NewPhone("123-111-9911")
	email, _ := domain.NewEmail("john.doe@gmail.com")
	billing, err := domain.NewBilling(mustFullName(t), document, phone, email, mustAddress(t))
	if err != nil {
		t.Fatalf("billing: %v", err)
	}
	return billing
}

func mustShipping(t *testing.T, cost string) domain.Shipping {
	t.Helper()
	document, _ := domain.NewDocument("112-33-2321")
	phone, _ := domain.NewPhone("111-441-1244")
	recipient, err := domain.NewRecipient(mustFullName(t), document, phone)
	if err != nil {
		t.Fatalf("recipient: %v", err)
	}
	shipping, err := domain.NewShipping(domain.MustMoney(cost), time.Now().UTC().AddDate(0, 0, 7), recipient, mustAddress(t))
	if err != nil {
		t.Fatalf("shipping: %v", err)
	}
	return shipping
}

func mustRegistration(t *testing.T) domain.CustomerRegistration {
	t.Helper()
	email, _ := domain.NewEmail("john.doe@gmail.com")
	phone, _ := domain.NewPhone("123-111-9911")
	document, _ := domain.NewDocument("225-09-1992")
	return domain.CustomerRegistration{
		FullName: mustFullName(t),
		Email:    email,
		Phone:    phone,
		Document: document,
	}
}

func qty(v int) domain.Quantity { return domain.MustQuantity(v) }

// flakyOrders возвращает конфликт версий на первых conflicts вызовах Save.
type flakyOrders struct {
	domain.OrderRepository

	mu        sync.Mutex
	conflicts int
	saves     int
}

func (r *flakyOrders) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	r.saves++
	if r.conflicts > 0 {
		r.conflicts--
		r.mu.Unlock()
		return domain.ErrVersionConflict
	}
	r.mu.Unlock()
	return r.OrderRepository.Save(ctx, order)
}

var errStorageDown = errors.New("storage is down")

// brokenCarts отказывает в сохранении, пока включён failSaves.
type brokenCarts struct {
	domain.ShoppingCartRepository
	failSaves bool
}

func (r *brokenCarts) Save(ctx context.Context, cart *domain.ShoppingCart) error {
	if r.failSaves {
		return errStorageDown
	}
	return r.ShoppingCartRepository.Save(ctx, cart)
}
