package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
	"github.com/vladislavdragonenkov/ordering/internal/service/catalog"
	"github.com/vladislavdragonenkov/ordering/internal/service/ordering"
	"github.com/vladislavdragonenkov/ordering/internal/service/outbox"
	"github.com/vladislavdragonenkov/ordering/internal/storage/memory"
)

// OrderingLifecycleTestSuite проходит путь от регистрации клиента до
// готового заказа и публикации событий через outbox в Kafka.
type OrderingLifecycleTestSuite struct {
	suite.Suite

	logger   *log.Entry
	outbox   *memory.OutboxRepository
	timeline domain.TimelineRepository
	catalog  *catalog.Memory
	metrics  *metrics.OrderingMetrics

	keyboard domain.Product
	monitor  domain.Product

	orders    *ordering.OrderService
	carts     *ordering.CartService
	customers *ordering.CustomerService
}

func (suite *OrderingLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	suite.logger = baseLogger.WithField("component", "integration-test")

	suite.outbox = memory.NewOutboxRepository()
	suite.timeline = memory.NewTimelineRepository()
	suite.metrics = metrics.NewOrderingMetricsWithRegisterer(prometheus.NewRegistry())

	suite.keyboard = suite.product(domain.NewProductID(), "Keyboard", "120.00", true)
	suite.monitor = suite.product(domain.NewProductID(), "Monitor", "899.90", true)
	suite.catalog = catalog.NewMemory(suite.keyboard, suite.monitor)

	deps := ordering.Dependencies{
		Orders:    memory.NewOrderRepository(),
		Carts:     memory.NewShoppingCartRepository(),
		Customers: memory.NewCustomerRepository(),
		Catalog:   suite.catalog,
		Outbox:    suite.outbox,
		Timeline:  suite.timeline,
		Metrics:   suite.metrics,
		Logger:    suite.logger,
	}
	suite.orders = ordering.NewOrderService(deps)
	suite.carts = ordering.NewCartService(deps)
	suite.customers = ordering.NewCustomerService(deps)
}

func (suite *OrderingLifecycleTestSuite) product(id domain.ProductID, name, price string, inStock bool) domain.Product {
	productName, err := domain.NewProductName(name)
	suite.Require().NoError(err)
	product, err := domain.NewProduct(id, productName, domain.MustMoney(price), inStock)
	suite.Require().NoError(err)
	return product
}

func (suite *OrderingLifecycleTestSuite) fullName() domain.FullName {
	name, err := domain.NewFullName("Jane", "Roe")
	suite.Require().NoError(err)
	return name
}

func (suite *OrderingLifecycleTestSuite) address() domain.Address {
	zip, err := domain.NewZipCode("10115")
	suite.Require().NoError(err)
	address, err := domain.NewAddress(domain.AddressParams{
		Street:       "Main Street",
		Neighborhood: "Downtown",
		Number:       "42",
		City:         "Springfield",
		State:        "Oregon",
		ZipCode:      zip,
	})
	suite.Require().NoError(err)
	return address
}

func (suite *OrderingLifecycleTestSuite) registration() domain.CustomerRegistration {
	email, err := domain.NewEmail("jane.roe@example.com")
	suite.Require().NoError(err)
	phone, err := domain.NewPhone("555-010-2030")
	suite.Require().NoError(err)
	document, err := domain.NewDocument("123-45-6789")
	suite.Require().NoError(err)
	return domain.CustomerRegistration{
		FullName:                      suite.fullName(),
		Email:                         email,
		Phone:                         phone,
		Document:                      document,
		PromotionNotificationsAllowed: true,
	}
}

func (suite *OrderingLifecycleTestSuite) billing() domain.Billing {
	r := suite.registration()
	billing, err := domain.NewBilling(r.FullName, r.Document, r.Phone, r.Email, suite.address())
	suite.Require().NoError(err)
	return billing
}

func (suite *OrderingLifecycleTestSuite) shipping(cost string) domain.Shipping {
	r := suite.registration()
	recipient, err := domain.NewRecipient(r.FullName, r.Document, r.Phone)
	suite.Require().NoError(err)
	shipping, err := domain.NewShipping(domain.MustMoney(cost), time.Now().UTC().AddDate(0, 0, 3), recipient, suite.address())
	suite.Require().NoError(err)
	return shipping
}

func (suite *OrderingLifecycleTestSuite) publishProductEvent(ctx context.Context, event kafka.ProductEvent) {
	value, err := json.Marshal(event)
	suite.Require().NoError(err)
	handler := kafka.NewProductEventHandler(suite.carts, suite.catalog, suite.metrics, suite.logger)
	suite.Require().NoError(handler(ctx, &sarama.ConsumerMessage{Topic: kafka.TopicCatalogProductEvents, Value: value}))
}

// TestCheckoutLifecycle проверяет путь корзина -> заказ -> READY -> CANCELED.
func (suite *OrderingLifecycleTestSuite) TestCheckoutLifecycle() {
	ctx := context.Background()

	customer, err := suite.customers.Register(ctx, suite.registration())
	suite.Require().NoError(err)

	cart, err := suite.carts.StartShopping(ctx, customer.ID())
	suite.Require().NoError(err)
	_, err = suite.carts.AddItem(ctx, cart.ID(), suite.keyboard.ID(), domain.MustQuantity(2))
	suite.Require().NoError(err)
	cart, err = suite.carts.AddItem(ctx, cart.ID(), suite.monitor.ID(), domain.MustQuantity(1))
	suite.Require().NoError(err)
	suite.Equal("1139.90", cart.TotalAmount().String())

	// Каталог снизил цену клавиатуры: корзина пересчитывается.
	suite.publishProductEvent(ctx, kafka.ProductEvent{
		ProductID: suite.keyboard.ID().String(),
		Name:      "Keyboard",
		Price:     "100.00",
		InStock:   true,
	})
	cart, err = suite.carts.Get(ctx, cart.ID())
	suite.Require().NoError(err)
	suite.Equal("1099.90", cart.TotalAmount().String())

	order, err := suite.orders.Checkout(ctx, cart.ID(), suite.billing(), suite.shipping("25.00"), domain.PaymentMethodCreditCard)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusPlaced, order.Status())
	suite.Equal("1124.90", order.TotalAmount().String())

	cart, err = suite.carts.Get(ctx, cart.ID())
	suite.Require().NoError(err)
	suite.True(cart.IsEmpty())

	order, err = suite.orders.MarkAsPaid(ctx, order.ID())
	suite.Require().NoError(err)
	order, err = suite.orders.MarkAsReady(ctx, order.ID())
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusReady, order.Status())

	order, err = suite.orders.Cancel(ctx, order.ID(), "customer changed mind")
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusCanceled, order.Status())

	_, err = suite.orders.Cancel(ctx, order.ID(), "again")
	suite.Require().ErrorIs(err, domain.ErrOrderStatusCannotBeChanged)
	_, err = suite.orders.MarkAsPaid(ctx, order.ID())
	suite.Require().ErrorIs(err, domain.ErrOrderStatusCannotBeChanged)

	events, err := suite.timeline.List(ctx, domain.AggregateOrder, order.ID().String())
	suite.Require().NoError(err)
	suite.Len(events, 4)

	listed, err := suite.orders.ListByCustomer(ctx, customer.ID(), 0)
	suite.Require().NoError(err)
	suite.Require().Len(listed, 1)
	suite.Equal(order.ID(), listed[0].ID())
}

// TestOutboxDeliversToKafka проверяет, что worker публикует все накопленные
// события в топики по типу агрегата.
func (suite *OrderingLifecycleTestSuite) TestOutboxDeliversToKafka() {
	ctx := context.Background()

	customer, err := suite.customers.Register(ctx, suite.registration())
	suite.Require().NoError(err)
	cart, err := suite.carts.StartShopping(ctx, customer.ID())
	suite.Require().NoError(err)
	_, err = suite.carts.AddItem(ctx, cart.ID(), suite.monitor.ID(), domain.MustQuantity(1))
	suite.Require().NoError(err)
	_, err = suite.orders.Checkout(ctx, cart.ID(), suite.billing(), suite.shipping("15.00"), domain.PaymentMethodGatewayBalance)
	suite.Require().NoError(err)

	pending, err := suite.outbox.PullPending(ctx, 100)
	suite.Require().NoError(err)
	suite.Require().NotEmpty(pending)

	topics := map[string]int{}
	mockProducer := mocks.NewSyncProducer(suite.T(), nil)
	for range pending {
		mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			topics[msg.Topic]++
			return nil
		})
	}

	producer := kafka.NewProducerFromSync(mockProducer, suite.logger)
	worker := outbox.NewWorker(suite.outbox, kafka.NewOutboxPublisher(producer, kafka.DefaultTopics()),
		outbox.WithConfig(outbox.Config{BatchSize: len(pending)}),
		outbox.WithLogger(suite.logger),
	)

	result := worker.ProcessOnce(ctx)
	suite.Equal(len(pending), result.Sent)
	suite.Zero(result.Failed)
	require.NoError(suite.T(), mockProducer.Close())

	suite.Equal(1, topics[kafka.TopicCustomerEvents])
	suite.Equal(3, topics[kafka.TopicShoppingCartEvents])
	suite.Equal(1, topics[kafka.TopicOrderEvents])

	stats, err := suite.outbox.Stats(ctx)
	suite.Require().NoError(err)
	suite.Zero(stats.PendingCount)
}

func TestOrderingLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(OrderingLifecycleTestSuite))
}
