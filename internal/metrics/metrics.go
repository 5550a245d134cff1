package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the analysis engine.
type Metrics struct {
	// Indicator phase
	IndicatorsComputed prometheus.Counter
	IndicatorFailures  *prometheus.CounterVec // labels: reason
	IndicatorDur       prometheus.Histogram

	// Pattern phase
	PatternsEvaluated   prometheus.Counter
	PatternFailures     *prometheus.CounterVec // labels: reason
	DetectionsPersisted *prometheus.CounterVec // labels: pattern
	DetectionsFiltered  prometheus.Counter     // below confidence threshold

	// Symbol / batch orchestration
	SymbolAnalysisDur prometheus.Histogram
	SymbolTimeouts    prometheus.Counter
	SymbolFailures    prometheus.Counter
	BatchSize         prometheus.Gauge
	BatchDur          prometheus.Histogram

	// Storage
	SQLiteFlushDur prometheus.Histogram
	BarsLoaded     prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		IndicatorsComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_indicators_computed_total",
			Help: "Indicator results computed successfully",
		}),
		IndicatorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_indicator_failures_total",
			Help: "Indicator component failures by reason",
		}, []string{"reason"}),
		IndicatorDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_indicator_compute_duration_seconds",
			Help:    "Per-indicator calculation latency",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),

		PatternsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_patterns_evaluated_total",
			Help: "Pattern detections evaluated successfully",
		}),
		PatternFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_pattern_failures_total",
			Help: "Pattern component failures by reason",
		}, []string{"reason"}),
		DetectionsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_detections_persisted_total",
			Help: "Pattern detections persisted above their confidence threshold",
		}, []string{"pattern"}),
		DetectionsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_detections_filtered_total",
			Help: "Detections discarded below their confidence threshold",
		}),

		SymbolAnalysisDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_symbol_analysis_duration_seconds",
			Help:    "Full per-symbol pipeline latency (load, indicators, patterns, commit)",
			Buckets: prometheus.DefBuckets,
		}),
		SymbolTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_symbol_timeouts_total",
			Help: "Symbol analyses abandoned on per-symbol timeout",
		}),
		SymbolFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_symbol_failures_total",
			Help: "Symbol-level analysis failures (load errors, timeouts)",
		}),
		BatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_batch_symbols",
			Help: "Symbols in the most recent universe run",
		}),
		BatchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_batch_duration_seconds",
			Help:    "Universe run latency",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		SQLiteFlushDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_sqlite_flush_duration_seconds",
			Help:    "Per-symbol result flush latency",
			Buckets: prometheus.DefBuckets,
		}),
		BarsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_bars_loaded_total",
			Help: "Bars loaded from storage for analysis",
		}),
	}

	prometheus.MustRegister(
		m.IndicatorsComputed,
		m.IndicatorFailures,
		m.IndicatorDur,
		m.PatternsEvaluated,
		m.PatternFailures,
		m.DetectionsPersisted,
		m.DetectionsFiltered,
		m.SymbolAnalysisDur,
		m.SymbolTimeouts,
		m.SymbolFailures,
		m.BatchSize,
		m.BatchDur,
		m.SQLiteFlushDur,
		m.BarsLoaded,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool `json:"redis_connected"`
	SQLiteOK       bool `json:"sqlite_ok"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastRunAt       time.Time `json:"last_run_at"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastRunAt(t time.Time) {
	h.mu.Lock()
	h.LastRunAt = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.SQLiteOK {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	} else if !h.RedisConnected {
		// Redis is an optional cache; without it we are degraded, not down.
		overallStatus = "degraded"
	}

	lastRun := ""
	if !h.LastRunAt.IsZero() {
		lastRun = h.LastRunAt.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastRunAt       string  `json:"last_run_at"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastRunAt:       lastRun,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
