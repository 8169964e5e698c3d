package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders successfully placed",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed checkout attempts",
	}, []string{"reason"})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	OrdersDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_deleted_total",
		Help: "Total number of orders removed by an admin",
	})

	StockReservedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_units_reserved_total",
		Help: "Total stock units reserved by committed orders",
	})

	StockReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_units_released_total",
		Help: "Total stock units released by cancellations and deletions",
	})

	PromotionsConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promotions_consumed_total",
		Help: "Total number of promotion usages recorded at order commit",
	})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Latency of the order assembly transaction",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
