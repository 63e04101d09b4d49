package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики каталога и оформления заказов.
type CheckoutMetrics struct {
	// Счётчики операций
	productsRegistered prometheus.Counter
	cartLinesAdded     prometheus.Counter
	ordersFinalized    prometheus.Counter
	checkoutFailed     prometheus.Counter
	insufficientStock  prometheus.Counter

	// Гистограмма времени финализации
	checkoutDuration prometheus.Histogram

	// Счётчики событий outbox и гидрации
	outboxEvents   prometheus.Counter
	docsHydrated   *prometheus.CounterVec
	docsQuarantine *prometheus.CounterVec

	// Gauge для открытых корзин
	activeCarts prometheus.Gauge
}

// NewCheckoutMetrics создаёт новый экземпляр метрик оформления заказов.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		productsRegistered: registerCounter(registerer, prometheus.CounterOpts{
			Name: "estoque_products_registered_total",
			Help: "Total number of products registered in the catalog",
		}),
		cartLinesAdded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "estoque_cart_lines_added_total",
			Help: "Total number of lines added to carts",
		}),
		ordersFinalized: registerCounter(registerer, prometheus.CounterOpts{
			Name: "estoque_orders_finalized_total",
			Help: "Total number of orders finalized successfully",
		}),
		checkoutFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "estoque_checkout_failed_total",
			Help: "Total number of failed checkout attempts",
		}),
		insufficientStock: registerCounter(registerer, prometheus.CounterOpts{
			Name: "estoque_insufficient_stock_total",
			Help: "Total number of checkouts rejected due to insufficient stock",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "estoque_checkout_duration_seconds",
			Help:    "Duration of checkout operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "estoque_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		docsHydrated: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "estoque_documents_hydrated_total",
			Help: "Total number of documents hydrated at startup",
		}, []string{"collection"}),
		docsQuarantine: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "estoque_documents_quarantined_total",
			Help: "Total number of malformed documents skipped during hydration",
		}, []string{"collection"}),
		activeCarts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "estoque_active_carts",
			Help: "Number of cart sessions with at least one line",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordProductRegistered увеличивает счётчик зарегистрированных товаров.
func (m *CheckoutMetrics) RecordProductRegistered() {
	m.productsRegistered.Inc()
}

// RecordCartLineAdded увеличивает счётчик добавленных позиций.
func (m *CheckoutMetrics) RecordCartLineAdded() {
	m.cartLinesAdded.Inc()
}

// RecordOrderFinalized увеличивает счётчик финализированных заказов.
func (m *CheckoutMetrics) RecordOrderFinalized() {
	m.ordersFinalized.Inc()
}

// RecordCheckoutFailed увеличивает счётчик неудачных финализаций.
func (m *CheckoutMetrics) RecordCheckoutFailed() {
	m.checkoutFailed.Inc()
}

// RecordInsufficientStock увеличивает счётчик отказов из-за остатка.
func (m *CheckoutMetrics) RecordInsufficientStock() {
	m.insufficientStock.Inc()
}

// RecordCheckoutDuration записывает время финализации заказа.
func (m *CheckoutMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *CheckoutMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordDocumentHydrated увеличивает счётчик загруженных документов коллекции.
func (m *CheckoutMetrics) RecordDocumentHydrated(collection string) {
	m.docsHydrated.WithLabelValues(collection).Inc()
}

// RecordDocumentQuarantined увеличивает счётчик отбракованных документов коллекции.
func (m *CheckoutMetrics) RecordDocumentQuarantined(collection string) {
	m.docsQuarantine.WithLabelValues(collection).Inc()
}

// RecordCartOpened увеличивает количество открытых корзин.
func (m *CheckoutMetrics) RecordCartOpened() {
	m.activeCarts.Inc()
}

// RecordCartClosed уменьшает количество открытых корзин.
func (m *CheckoutMetrics) RecordCartClosed() {
	m.activeCarts.Dec()
}
