package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewCheckoutMetrics(t *testing.T) {
	metrics := newCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("newCheckoutMetricsWithRegisterer should not return nil")
	}

	if metrics.productsRegistered == nil {
		t.Error("productsRegistered counter should not be nil")
	}
	if metrics.cartLinesAdded == nil {
		t.Error("cartLinesAdded counter should not be nil")
	}
	if metrics.ordersFinalized == nil {
		t.Error("ordersFinalized counter should not be nil")
	}
	if metrics.checkoutFailed == nil {
		t.Error("checkoutFailed counter should not be nil")
	}
	if metrics.insufficientStock == nil {
		t.Error("insufficientStock counter should not be nil")
	}
	if metrics.checkoutDuration == nil {
		t.Error("checkoutDuration histogram should not be nil")
	}
	if metrics.outboxEvents == nil {
		t.Error("outboxEvents counter should not be nil")
	}
	if metrics.docsHydrated == nil {
		t.Error("docsHydrated counter vec should not be nil")
	}
	if metrics.docsQuarantine == nil {
		t.Error("docsQuarantine counter vec should not be nil")
	}
	if metrics.activeCarts == nil {
		t.Error("activeCarts gauge should not be nil")
	}
}

func TestCheckoutMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newCheckoutMetricsWithRegisterer(reg)
	second := newCheckoutMetricsWithRegisterer(reg)

	// Повторная регистрация возвращает уже существующие коллекторы.
	first.RecordOrderFinalized()
	second.RecordOrderFinalized()

	if got := counterValue(t, first.ordersFinalized); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}

func TestCheckoutMetrics_RecordCounters(t *testing.T) {
	metrics := newCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordProductRegistered()
	metrics.RecordCartLineAdded()
	metrics.RecordOrderFinalized()
	metrics.RecordCheckoutFailed()
	metrics.RecordInsufficientStock()
	metrics.RecordOutboxEvent()
	metrics.RecordCheckoutDuration(25 * time.Millisecond)
	metrics.RecordCartOpened()
	metrics.RecordCartClosed()

	if got := counterValue(t, metrics.ordersFinalized); got != 1 {
		t.Errorf("expected ordersFinalized 1, got %v", got)
	}
	if got := counterValue(t, metrics.insufficientStock); got != 1 {
		t.Errorf("expected insufficientStock 1, got %v", got)
	}
}

func TestCheckoutMetrics_HydrationCounters(t *testing.T) {
	metrics := newCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordDocumentHydrated("estoque")
	metrics.RecordDocumentHydrated("estoque")
	metrics.RecordDocumentQuarantined("historico")

	hydrated := metrics.docsHydrated.WithLabelValues("estoque")
	if got := counterValue(t, hydrated); got != 2 {
		t.Errorf("expected hydrated counter 2, got %v", got)
	}

	quarantined := metrics.docsQuarantine.WithLabelValues("historico")
	if got := counterValue(t, quarantined); got != 1 {
		t.Errorf("expected quarantined counter 1, got %v", got)
	}
}

func counterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()

	var m dto.Metric
	if err := counter.Write(&m); err != nil {
		t.Fatalf("write counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
