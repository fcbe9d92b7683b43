package domain_test

import (
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

func mustAddress(t *testing.T) domain.Address {
	t.Helper()
	zip, err := domain.NewZipCode("79911")
	if err != nil {
		t.Fatalf("zip code: %v", err)
	}
	address, err := domain.NewAddress(domain.AddressParams{
		Street:       "Bourbon Street",
		Complement:   "apt. 11",
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

func mustShipping(t *testing.T, cost string, expected time.Time) domain.Shipping {
	t.Helper()
	document, _ := domain.NewDocument("112-33-2321")
	phone, _ := domain.NewPhone("111-441-1244")
	recipient, err := domain.NewRecipient(mustFullName(t), document, phone)
	if err != nil {
		t.Fatalf("recipient: %v", err)
	}
	shipping, err := domain.NewShipping(domain.MustMoney(cost), expected, recipient, mustAddress(t))
	if err != nil {
		t.Fatalf("shipping: %v", err)
	}
	return shipping
}

func nextWeek() time.Time { return time.Now().UTC().AddDate(0, 0, 7) }

func qty(v int) domain.Quantity { return domain.MustQuantity(v) }

func draftOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := domain.DraftOrder(domain.NewCustomerID())
	if err != nil {
		t.Fatalf("draft order: %v", err)
	}
	return order
}

// readyToPlace собирает черновик со всеми реквизитами и одной позицией.
func readyToPlace(t *testing.T) *domain.Order {
	t.Helper()
	order, err := domain.NewFilledOrder(
		domain.NewCustomerID(),
		mustShipping(t, "10", nextWeek()),
		mustBilling(t),
		domain.PaymentMethodCreditCard,
		mustProduct(t, "Notebook", "3000", true),
		qty(1),
	)
	if err != nil {
		t.Fatalf("filled order: %v", err)
	}
	return order
}

// assertOrderTotals проверяет, что итоги заказа выводятся из позиций и доставки.
func assertOrderTotals(t *testing.T, order *domain.Order) {
	t.Helper()
	amount := domain.ZeroMoney
	count := 0
	for _, item := range order.Items() {
		amount = amount.Add(item.TotalAmount())
		count += item.Quantity().Int()
	}
	if shipping := order.Shipping(); shipping != nil {
		amount = amount.Add(shipping.Cost())
	}
	if !order.TotalAmount().Equal(amount) {
		t.Fatalf("expected total amount %s, got %s", amount, order.TotalAmount())
	}
	if order.TotalItems().Int() != count {
		t.Fatalf("expected total items %d, got %d", count, order.TotalItems().Int())
	}
}
