// internal/monitoring/metrics.go

package monitoring

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector manages Prometheus metrics for the wall.
// A nil *MetricsCollector is valid and records nothing.
type MetricsCollector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	messagesCreated prometheus.Counter
	nearbyDegraded  prometheus.Counter
	nearbyResults   prometheus.Histogram
	liveClients     prometheus.Gauge
	eventsDropped   prometheus.Counter
}

// NewMetricsCollector creates collectors on a private registry
func NewMetricsCollector(serviceName string) *MetricsCollector {
	ns := strings.ReplaceAll(serviceName, "-", "_")

	mc := &MetricsCollector{registry: prometheus.NewRegistry()}

	mc.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: ns + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	mc.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    ns + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	mc.messagesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: ns + "_messages_created_total",
		Help: "Messages successfully posted",
	})

	mc.nearbyDegraded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: ns + "_nearby_degraded_total",
		Help: "Nearby queries answered empty because the store failed",
	})

	mc.nearbyResults = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ns + "_nearby_results",
		Help:    "Messages returned per nearby query",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
	})

	mc.liveClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ns + "_live_clients",
		Help: "Connected live feed clients",
	})

	mc.eventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: ns + "_live_events_dropped_total",
		Help: "Live events dropped because a client buffer was full",
	})

	mc.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		mc.httpRequestsTotal,
		mc.httpRequestDuration,
		mc.messagesCreated,
		mc.nearbyDegraded,
		mc.nearbyResults,
		mc.liveClients,
		mc.eventsDropped,
	)

	return mc
}

// Registry exposes the underlying registry
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// Handler returns the Prometheus metrics HTTP handler
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per chi route pattern
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	if mc == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		mc.httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		mc.httpRequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// MessageCreated counts a stored message
func (mc *MetricsCollector) MessageCreated() {
	if mc == nil {
		return
	}
	mc.messagesCreated.Inc()
}

// NearbyDegraded counts a nearby query that fell back to an empty result
func (mc *MetricsCollector) NearbyDegraded() {
	if mc == nil {
		return
	}
	mc.nearbyDegraded.Inc()
}

// ObserveNearby records the size of a nearby result
func (mc *MetricsCollector) ObserveNearby(n int) {
	if mc == nil {
		return
	}
	mc.nearbyResults.Observe(float64(n))
}

// LiveClientConnected tracks a new live feed connection
func (mc *MetricsCollector) LiveClientConnected() {
	if mc == nil {
		return
	}
	mc.liveClients.Inc()
}

// LiveClientDisconnected tracks a closed live feed connection
func (mc *MetricsCollector) LiveClientDisconnected() {
	if mc == nil {
		return
	}
	mc.liveClients.Dec()
}

// LiveEventDropped counts an event not delivered to a slow client
func (mc *MetricsCollector) LiveEventDropped() {
	if mc == nil {
		return
	}
	mc.eventsDropped.Inc()
}
