package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	checkinsTotal   *prometheus.CounterVec
	qrIssuedTotal   prometheus.Counter
	aulasCriadas    *prometheus.CounterVec
	decisoesTotal   *prometheus.CounterVec
}

// NewMetricsService registers the API collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	checkinsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkins_total",
		Help: "Total check-ins recorded, by origin",
	}, []string{"origem"})

	qrIssuedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qr_codes_issued_total",
		Help: "Total QR tokens issued for class instances",
	})

	aulasCriadas := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aulas_criadas_total",
		Help: "Total class instances created, single versus batch",
	}, []string{"modo"})

	decisoesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "presenca_decisoes_total",
		Help: "Total attendance decisions applied, by outcome",
	}, []string{"status"})

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requestDuration,
		requestTotal,
		checkinsTotal,
		qrIssuedTotal,
		aulasCriadas,
		decisoesTotal,
	)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		checkinsTotal:   checkinsTotal,
		qrIssuedTotal:   qrIssuedTotal,
		aulasCriadas:    aulasCriadas,
		decisoesTotal:   decisoesTotal,
	}
}

// Handler exposes the scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveRequest records one handled HTTP request.
func (m *MetricsService) ObserveRequest(method, path, status string, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCheckin counts a recorded check-in.
func (m *MetricsService) RecordCheckin(origem string) {
	m.checkinsTotal.WithLabelValues(origem).Inc()
}

// RecordQRIssued counts an issued QR token.
func (m *MetricsService) RecordQRIssued() {
	m.qrIssuedTotal.Inc()
}

// RecordAulasCriadas counts created class instances.
func (m *MetricsService) RecordAulasCriadas(modo string, n int) {
	if n > 0 {
		m.aulasCriadas.WithLabelValues(modo).Add(float64(n))
	}
}

// RecordDecisao counts an applied attendance decision.
func (m *MetricsService) RecordDecisao(status string) {
	m.decisoesTotal.WithLabelValues(status).Inc()
}
