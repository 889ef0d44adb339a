package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce            sync.Once
	apiRequestsTotal        *prometheus.CounterVec
	apiLatencySeconds       *prometheus.HistogramVec
	apiErrorsTotal          *prometheus.CounterVec
	promotionResponsesTotal *prometheus.CounterVec
	promotionGateBlocked    prometheus.Counter
	rolloverRecordsCreated  prometheus.Counter
	notificationsPublished  *prometheus.CounterVec
	messagingClientsActive  prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartedu_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smartedu_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartedu_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		promotionResponsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartedu_promotion_responses_total",
			Help: "Parent promotion responses processed, labelled by outcome.",
		}, []string{"outcome"})

		promotionGateBlocked = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartedu_promotion_gate_blocked_total",
			Help: "Requests blocked by the parental-consent gate.",
		})

		rolloverRecordsCreated = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartedu_promotion_rollover_created_total",
			Help: "Promotion records created by year-rollover runs.",
		})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartedu_notifications_published_total",
			Help: "Notifications published, labelled by type.",
		}, []string{"type"})

		messagingClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smartedu_messaging_clients_active",
			Help: "Currently connected messaging websocket clients.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			promotionResponsesTotal,
			promotionGateBlocked,
			rolloverRecordsCreated,
			notificationsPublished,
			messagingClientsActive,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// PromotionResponses exposes the counter for processed promotion answers.
func PromotionResponses() *prometheus.CounterVec {
	RegisterMetrics()
	return promotionResponsesTotal
}

// PromotionGateBlocked exposes the counter for gate-blocked requests.
func PromotionGateBlocked() prometheus.Counter {
	RegisterMetrics()
	return promotionGateBlocked
}

// RolloverRecordsCreated exposes the counter for rollover-created records.
func RolloverRecordsCreated() prometheus.Counter {
	RegisterMetrics()
	return rolloverRecordsCreated
}

// NotificationsPublishedTotal exposes the counter for published notifications.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// MessagingClientsActive exposes the gauge for connected messaging clients.
func MessagingClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return messagingClientsActive
}

// MetricsHandler exposes the Prometheus scrape endpoint on a Fiber route.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
