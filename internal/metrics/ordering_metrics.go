package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderingMetrics содержит метрики use-case сервисов корзины и заказов.
// Методы безопасны для nil-получателя: сервисы без метрик ничего не записывают.
type OrderingMetrics struct {
	// Переходы статусов заказа.
	orderTransitions *prometheus.CounterVec
	// Успешные операции по агрегатам.
	operations *prometheus.CounterVec
	// Отказы доменной модели с причиной.
	rejections *prometheus.CounterVec

	operationDuration *prometheus.HistogramVec
	placedAmount      prometheus.Histogram

	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
	catalogUpdates *prometheus.CounterVec
}

// NewOrderingMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewOrderingMetrics() *OrderingMetrics {
	return NewOrderingMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderingMetricsWithRegisterer регистрирует метрики в переданном registerer.
func NewOrderingMetricsWithRegisterer(registerer prometheus.Registerer) *OrderingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderingMetrics{
		orderTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ordering_order_transitions_total",
			Help: "Total number of order status transitions grouped by target status",
		}, []string{"status"}),
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ordering_operations_total",
			Help: "Total number of successful aggregate operations",
		}, []string{"aggregate", "operation"}),
		rejections: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ordering_operation_rejections_total",
			Help: "Total number of operations rejected by domain rules or storage",
		}, []string{"aggregate", "operation", "reason"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "ordering_operation_duration_seconds",
			Help:    "Duration of aggregate operations including persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"aggregate", "operation"}),
		placedAmount: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "ordering_order_placed_amount",
			Help:    "Total amount of placed orders",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ordering_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ordering_outbox_events_total",
			Help: "Total number of events enqueued into transactional outbox",
		}),
		catalogUpdates: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ordering_catalog_updates_total",
			Help: "Total number of catalog product updates applied to carts",
		}, []string{"result"}),
	}
}

// RecordOrderTransition увеличивает счётчик переходов в статус.
func (m *OrderingMetrics) RecordOrderTransition(status string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(status).Inc()
}

// RecordOperation фиксирует успешную операцию и её длительность.
func (m *OrderingMetrics) RecordOperation(aggregate, operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(aggregate, operation).Inc()
	m.operationDuration.WithLabelValues(aggregate, operation).Observe(duration.Seconds())
}

// RecordRejection фиксирует отказ операции.
func (m *OrderingMetrics) RecordRejection(aggregate, operation, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(aggregate, operation, reason).Inc()
}

// RecordPlacedAmount записывает сумму размещённого заказа.
func (m *OrderingMetrics) RecordPlacedAmount(amount float64) {
	if m == nil {
		return
	}
	m.placedAmount.Observe(amount)
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *OrderingMetrics) RecordTimelineEvent() {
	if m == nil {
		return
	}
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *OrderingMetrics) RecordOutboxEvent() {
	if m == nil {
		return
	}
	m.outboxEvents.Inc()
}

// RecordCatalogUpdate фиксирует результат применения обновления товара.
func (m *OrderingMetrics) RecordCatalogUpdate(result string) {
	if m == nil {
		return
	}
	m.catalogUpdates.WithLabelValues(result).Inc()
}
