package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics содержит метрики жизненного цикла заказов.
type FulfillmentMetrics struct {
	// Счётчики переходов жизненного цикла
	ordersPlaced    prometheus.Counter
	ordersCompleted prometheus.Counter
	ordersCancelled prometheus.Counter
	ordersRejected  prometheus.Counter

	// Гистограммы времени выполнения
	placeDuration prometheus.Histogram
	stepDuration  *prometheus.HistogramVec

	// Склад и события
	stockDeductions   prometheus.Counter
	stockRestorations prometheus.Counter
	outboxEvents      prometheus.Counter

	// Gauge для заказов в статусе Pending
	pendingOrders prometheus.Gauge
}

// NewFulfillmentMetrics создаёт новый экземпляр метрик.
func NewFulfillmentMetrics() *FulfillmentMetrics {
	return newFulfillmentMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newFulfillmentMetricsWithRegisterer(registerer prometheus.Registerer) *FulfillmentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &FulfillmentMetrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "printshop_orders_placed_total",
			Help: "Total number of orders placed successfully",
		}),
		ordersCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "printshop_orders_completed_total",
			Help: "Total number of orders completed",
		}),
		ordersCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "printshop_orders_cancelled_total",
			Help: "Total number of orders cancelled",
		}),
		ordersRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "printshop_orders_rejected_total",
			Help: "Total number of order placements rejected",
		}),
		placeDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "printshop_order_place_duration_seconds",
			Help:    "Duration of order placement in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "printshop_fulfillment_step_duration_seconds",
			Help:    "Duration of individual fulfillment steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"}),
		stockDeductions: registerCounter(registerer, prometheus.CounterOpts{
			Name: "printshop_stock_deductions_total",
			Help: "Total number of stock deductions applied at placement",
		}),
		stockRestorations: registerCounter(registerer, prometheus.CounterOpts{
			Name: "printshop_stock_restorations_total",
			Help: "Total number of stock restorations applied at cancellation",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "printshop_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		pendingOrders: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "printshop_pending_orders",
			Help: "Number of orders currently in Pending status",
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

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderPlaced увеличивает счётчик размещённых заказов и число Pending.
func (m *FulfillmentMetrics) RecordOrderPlaced() {
	m.ordersPlaced.Inc()
	m.pendingOrders.Inc()
}

// RecordOrderCompleted увеличивает счётчик завершённых заказов.
func (m *FulfillmentMetrics) RecordOrderCompleted() {
	m.ordersCompleted.Inc()
	m.pendingOrders.Dec()
}

// RecordOrderCancelled увеличивает счётчик отменённых заказов.
func (m *FulfillmentMetrics) RecordOrderCancelled() {
	m.ordersCancelled.Inc()
	m.pendingOrders.Dec()
}

// RecordOrderRejected увеличивает счётчик отклонённых размещений.
func (m *FulfillmentMetrics) RecordOrderRejected() {
	m.ordersRejected.Inc()
}

// RecordPlaceDuration записывает время размещения заказа.
func (m *FulfillmentMetrics) RecordPlaceDuration(duration time.Duration) {
	m.placeDuration.Observe(duration.Seconds())
}

// RecordStepDuration записывает время выполнения отдельного шага.
func (m *FulfillmentMetrics) RecordStepDuration(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordStockDeduction увеличивает счётчик складских списаний.
func (m *FulfillmentMetrics) RecordStockDeduction() {
	m.stockDeductions.Inc()
}

// RecordStockRestoration увеличивает счётчик складских возвратов.
func (m *FulfillmentMetrics) RecordStockRestoration() {
	m.stockRestorations.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *FulfillmentMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
