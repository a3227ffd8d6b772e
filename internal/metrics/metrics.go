// Package metrics provides Prometheus instrumentation for the options engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PositionsOpened counts positions opened, partitioned by option type.
	PositionsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carstonks_positions_opened_total",
		Help: "Total number of option positions opened",
	}, []string{"type"})

	// PositionsClosed counts positions closed, partitioned by option type.
	PositionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carstonks_positions_closed_total",
		Help: "Total number of option positions closed",
	}, []string{"type"})

	// PremiumCollected sums premium paid for opened positions, in dollars.
	PremiumCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carstonks_premium_dollars_total",
		Help: "Cumulative premium paid for opened positions",
	}, []string{"type"})

	// TradeLatency observes the duration of an open or close including persistence.
	TradeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "carstonks_trade_latency_seconds",
		Help:    "Trade execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// Rejections counts trades refused, by reason.
	Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carstonks_trade_rejections_total",
		Help: "Trades rejected before execution",
	}, []string{"reason"})

	// StoreErrors counts failed persistence writes.
	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carstonks_store_errors_total",
		Help: "Failed writes to the key-value store",
	})

	// CashBalance tracks the account cash balance.
	CashBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "carstonks_cash_balance_dollars",
		Help: "Current account cash balance",
	})

	// ActivePositions tracks open contracts.
	ActivePositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "carstonks_active_positions",
		Help: "Number of open contracts",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "carstonks_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carstonks_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "carstonks_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern keeps position ids out of the label set.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
