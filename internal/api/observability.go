package api

import (
	"net/http"
	"net/http/pprof"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics with bounded cardinality: no per-player or per-room labels, room
// counts are capped by config but player ids are not.
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "room_tick_duration_seconds",
		Help:    "Time spent in one room simulation tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.016, 0.033, 0.1},
	})

	roomCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rooms_active",
		Help: "Current number of live rooms",
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "players_connected",
		Help: "Current number of players across all rooms",
	})

	auditDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_log_dropped_total",
		Help: "Audit records dropped due to rate limiting or buffer full",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // bounded: rate_limit, origin, ws_total_limit, ws_ip_limit

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})

	wsMessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_dropped_total",
		Help: "Messages dropped because a client send buffer was full",
	})
)

// Metrics implements the room Observer interface on top of the Prometheus
// collectors above. Per-room measurements fold into shared series.
type Metrics struct {
	mu     sync.Mutex
	counts map[string]int // per-room player counts, summed into one gauge
}

// NewMetrics builds the Observer used by the room manager.
func NewMetrics() *Metrics {
	return &Metrics{counts: make(map[string]int)}
}

// RecordTick feeds the tick histogram.
func (m *Metrics) RecordTick(roomID string, d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

// RecordPlayerCount updates the global player gauge from one room's count.
func (m *Metrics) RecordPlayerCount(roomID string, n int) {
	m.mu.Lock()
	if n == 0 {
		delete(m.counts, roomID)
	} else {
		m.counts[roomID] = n
	}
	total := 0
	for _, c := range m.counts {
		total += c
	}
	m.mu.Unlock()
	playerCount.Set(float64(total))
}

// UpdateRoomCount updates the room gauge.
func UpdateRoomCount(n int) {
	roomCount.Set(float64(n))
}

// AddAuditDropped adds to the audit drop counter.
func AddAuditDropped(n uint64) {
	auditDropped.Add(float64(n))
}

// RecordConnectionRejected increments the rejection counter.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// UpdateWSConnections updates the WebSocket connection gauge.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages counts one outbound message.
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}

// IncrementWSDropped counts one dropped outbound message.
func IncrementWSDropped() {
	wsMessagesDropped.Inc()
}

// ObservabilityConfig configures the localhost debug server.
type ObservabilityConfig struct {
	Enabled    bool
	ListenAddr string // must stay on localhost in production
}

// StartDebugServer serves pprof, Prometheus metrics and a health probe.
// Binding is forced to localhost unless ALLOW_DEBUG_EXTERNAL is set; pprof on
// a public interface is a DoS vector.
func StartDebugServer(cfg ObservabilityConfig, log *zap.Logger) {
	if !cfg.Enabled {
		return
	}
	addr := cfg.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:6060"
	}
	if addr != "127.0.0.1:6060" && addr != "localhost:6060" &&
		os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		log.Warn("debug server forced to localhost", zap.String("requested", addr))
		addr = "127.0.0.1:6060"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	go func() {
		log.Info("debug server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warn("debug server exited", zap.Error(err))
		}
	}()
}
