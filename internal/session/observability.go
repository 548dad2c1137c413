package session

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality - no per-ship labels, to keep the
// cardinality DoS-proof regardless of ship/bot churn.
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent in the room tick",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	shipCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_ship_count",
		Help: "Current number of connected ships",
	})

	botCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_bot_count",
		Help: "Current number of live bots",
	})

	eventLogTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_event_log_total",
		Help: "Total events logged",
	})

	eventLogDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_event_log_dropped_total",
		Help: "Events dropped by the event log's rate limiters or buffer overflow",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // bounded: rate_limit, origin, ws_total_limit, ws_ip_limit

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arena_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_websocket_messages_total",
		Help: "Total outbound WebSocket messages",
	})

	hubRequestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_hub_requests_total",
		Help: "Outbound requests to the external scoring hub",
	}, []string{"call", "outcome"}) // call: currentGame|score; outcome: ok|error
)

// ObservabilityConfig configures the internal debug/metrics server.
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // should stay 127.0.0.1 in production
	BasicAuthUser string
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults.
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// StartDebugServer starts the internal pprof/metrics server.
// CRITICAL: must bind to localhost only.
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("debug server disabled")
		return nil
	}

	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("debug server forced to localhost for security")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}

	go func() {
		log.Printf("debug server starting on %s", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("debug server error: %v", err)
		}
	}()

	return nil
}

func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick records one tick's wall-clock duration.
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// UpdateShipCount updates the ship gauge.
func UpdateShipCount(count int) {
	shipCount.Set(float64(count))
}

// UpdateBotCount updates the bot gauge.
func UpdateBotCount(count int) {
	botCount.Set(float64(count))
}

// UpdateEventLogStats reconciles the event log counters against the
// cumulative totals the event log itself tracks.
func UpdateEventLogStats(total, dropped uint64) {
	if delta := float64(total) - eventLogTotalSeen; delta > 0 {
		eventLogTotal.Add(delta)
		eventLogTotalSeen = float64(total)
	}
	if delta := float64(dropped) - eventLogDroppedSeen; delta > 0 {
		eventLogDropped.Add(delta)
		eventLogDroppedSeen = float64(dropped)
	}
}

var eventLogTotalSeen, eventLogDroppedSeen float64

// RecordConnectionRejected increments the rejection counter.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records one completed HTTP request.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates the active WebSocket connection gauge.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments the outbound WebSocket message counter.
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}

// RecordHubRequest records the outcome of a hub HTTP call (§4.11).
func RecordHubRequest(call string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	hubRequestTotal.WithLabelValues(call, outcome).Inc()
}
