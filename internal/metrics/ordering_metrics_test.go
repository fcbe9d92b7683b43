package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("write counter: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func TestOrderingMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderingMetricsWithRegisterer(reg)

	m.RecordOrderTransition("PLACED")
	m.RecordOrderTransition("PLACED")
	m.RecordOperation("order", "place", 15*time.Millisecond)
	m.RecordRejection("order", "place", "order_cannot_be_placed")
	m.RecordPlacedAmount(120.5)
	m.RecordTimelineEvent()
	m.RecordOutboxEvent()
	m.RecordCatalogUpdate("applied")

	if got := counterValue(t, m.orderTransitions.WithLabelValues("PLACED")); got != 2 {
		t.Fatalf("expected 2 transitions, got %v", got)
	}
	if got := counterValue(t, m.operations.WithLabelValues("order", "place")); got != 1 {
		t.Fatalf("expected 1 operation, got %v", got)
	}
	if got := counterValue(t, m.rejections.WithLabelValues("order", "place", "order_cannot_be_placed")); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
	if got := counterValue(t, m.timelineEvents); got != 1 {
		t.Fatalf("expected 1 timeline event, got %v", got)
	}
	if got := counterValue(t, m.outboxEvents); got != 1 {
		t.Fatalf("expected 1 outbox event, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, family := range families {
		if family.GetName() == "ordering_order_placed_amount" {
			found = family.GetMetric()[0].GetHistogram().GetSampleCount() == 1
		}
	}
	if !found {
		t.Fatal("expected placed amount histogram with one sample")
	}
}

func TestOrderingMetricsReuseRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewOrderingMetricsWithRegisterer(reg)
	second := NewOrderingMetricsWithRegisterer(reg)

	first.RecordTimelineEvent()
	second.RecordTimelineEvent()

	if got := counterValue(t, first.timelineEvents); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}

func TestOrderingMetricsNilReceiver(t *testing.T) {
	var m *OrderingMetrics
	m.RecordOrderTransition("PAID")
	m.RecordOperation("order", "pay", time.Second)
	m.RecordRejection("order", "pay", "x")
	m.RecordPlacedAmount(1)
	m.RecordTimelineEvent()
	m.RecordOutboxEvent()
	m.RecordCatalogUpdate("failed")
}
