package ordering

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
)

const aggregateCustomerLabel = "customer"

// CustomerService регистрирует и архивирует клиентов.
type CustomerService struct {
	customers domain.CustomerRepository
	events    *eventRecorder
	metrics   *metrics.OrderingMetrics
	logger    *log.Entry
	retry     RetryPolicy
}

// NewCustomerService создаёт сервис клиентов.
func NewCustomerService(deps Dependencies) *CustomerService {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "customer-service")
	}
	return &CustomerService{
		customers: deps.Customers,
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

// Register регистрирует нового клиента.
func (s *CustomerService) Register(ctx context.Context, registration domain.CustomerRegistration) (*domain.Customer, error) {
	const op = "register"
	start := time.Now()
	customer, err := domain.RegisterCustomer(registration)
	if err != nil {
		return nil, s.fail(op, domain.CustomerID{}, err)
	}
	if err := s.customers.Save(ctx, customer); err != nil {
		return nil, s.fail(op, customer.ID(), err)
	}
	s.succeed(ctx, op, customer, domain.EventCustomerRegistered, start)
	return customer, nil
}

// Get возвращает клиента по идентификатору.
func (s *CustomerService) Get(ctx context.Context, id domain.CustomerID) (*domain.Customer, error) {
	customer, err := s.customers.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer %s: %w", id, err)
	}
	return customer, nil
}

// Archive архивирует и анонимизирует клиента.
func (s *CustomerService) Archive(ctx context.Context, id domain.CustomerID) (*domain.Customer, error) {
	return s.update(ctx, "archive", id, domain.EventCustomerArchived, (*domain.Customer).Archive)
}

// AddLoyaltyPoints начисляет клиенту бонусные баллы.
func (s *CustomerService) AddLoyaltyPoints(ctx context.Context, id domain.CustomerID, points domain.LoyaltyPoints) (*domain.Customer, error) {
	return s.update(ctx, "add_loyalty_points", id, domain.EventCustomerLoyaltyPointsAdded, func(customer *domain.Customer) error {
		return customer.AddLoyaltyPoints(points)
	})
}

func (s *CustomerService) update(ctx context.Context, op string, id domain.CustomerID, eventType string, fn func(*domain.Customer) error) (*domain.Customer, error) {
	start := time.Now()
	var customer *domain.Customer
	err := retryOnConflict(ctx, s.retry, s.logger.WithField("customer_id", id.String()), func() error {
		loaded, err := s.customers.Load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(loaded); err != nil {
			return err
		}
		if err := s.customers.Save(ctx, loaded); err != nil {
			return err
		}
		customer = loaded
		return nil
	})
	if err != nil {
		return nil, s.fail(op, id, err)
	}
	s.succeed(ctx, op, customer, eventType, start)
	return customer, nil
}

func (s *CustomerService) succeed(ctx context.Context, op string, customer *domain.Customer, eventType string, start time.Time) {
	s.metrics.RecordOperation(aggregateCustomerLabel, op, time.Since(start))
	s.events.customerEvent(ctx, customer, eventType)
	s.logger.WithFields(log.Fields{
		"customer_id": customer.ID().String(),
		"operation":   op,
		"archived":    customer.IsArchived(),
	}).Info("customer updated")
}

func (s *CustomerService) fail(op string, id domain.CustomerID, err error) error {
	reason := rejectionReason(err)
	s.metrics.RecordRejection(aggregateCustomerLabel, op, reason)

	entry := s.logger.WithError(err).WithFields(log.Fields{
		"operation": op,
		"reason":    reason,
	})
	if isDomainRejection(err) {
		entry.Warn("customer operation rejected")
	} else {
		entry.Error("customer operation failed")
	}

	if id.IsZero() {
		return fmt.Errorf("%s customer: %w", op, err)
	}
	return fmt.Errorf("%s customer %s: %w", op, id, err)
}
