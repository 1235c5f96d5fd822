package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "visual_commerce"

// Metrics хранит коллекторы сервиса в собственном реестре.
type Metrics struct {
	registry *prometheus.Registry

	visualSearch   *prometheus.CounterVec
	paymentIntents *prometheus.CounterVec
	webhooks       *prometheus.CounterVec
	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	rateLimitHits  *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		visualSearch: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "visual_search_total",
				Help:      "Visual search runs by outcome (vector, fallback, canceled, failed).",
			},
			[]string{"outcome"},
		),
		paymentIntents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_intents_total",
				Help:      "Payment intent creation attempts by outcome.",
			},
			[]string{"outcome"},
		),
		webhooks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Provider webhook events by kind and applied action.",
			},
			[]string{"kind", "action"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		rateLimitHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter.",
			},
			[]string{"route"},
		),
	}

	registry.MustRegister(
		m.visualSearch,
		m.paymentIntents,
		m.webhooks,
		m.requests,
		m.latency,
		m.rateLimitHits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) ObserveVisualSearch(outcome string) {
	m.visualSearch.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePaymentIntent(outcome string) {
	m.paymentIntents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveWebhook(kind string, action string) {
	m.webhooks.WithLabelValues(kind, action).Inc()
}

// ObserveRequest учитывает завершённый HTTP-запрос. route берётся из шаблона маршрута, а не из сырого пути.
func (m *Metrics) ObserveRequest(method string, route string, status int, took time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(took.Seconds())
}

func (m *Metrics) ObserveRateLimitHit(route string) {
	m.rateLimitHits.WithLabelValues(route).Inc()
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
