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

// Metrics holds all Prometheus metrics for the scheduler.
type Metrics struct {
	OrdersSubmitted *prometheus.CounterVec // labels: side
	OrdersFilled    *prometheus.CounterVec // labels: side
	OrdersFailed    *prometheus.CounterVec // labels: side, reason
	OrderRoundtrip  prometheus.Histogram   // submit-to-terminal-state latency

	CandleAssembleDur    prometheus.Histogram
	CandleAssembleErrors prometheus.Counter

	IterationDur   prometheus.Histogram
	Iterations     prometheus.Counter
	IterationError prometheus.Counter

	PortfolioSize   prometheus.Gauge
	AccountBalance  prometheus.Gauge
	AccountEarnings prometheus.Gauge

	ExitReasons *prometheus.CounterVec // labels: reason

	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	ObserverClients  prometheus.Gauge
	ObserverDropped  prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_orders_submitted_total",
			Help: "Total orders submitted to the exchange",
		}, []string{"side"}),
		OrdersFilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_orders_filled_total",
			Help: "Total orders that reached the filled state",
		}, []string{"side"}),
		OrdersFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_orders_failed_total",
			Help: "Total orders cancelled or rejected",
		}, []string{"side", "reason"}),
		OrderRoundtrip: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_order_roundtrip_seconds",
			Help:    "Time from order submission to terminal state",
			Buckets: prometheus.DefBuckets,
		}),

		CandleAssembleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_candle_assemble_duration_seconds",
			Help:    "Per-instrument candle assembly latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		CandleAssembleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_candle_assemble_errors_total",
			Help: "Errors encountered while assembling candle windows",
		}),

		IterationDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_loop_iteration_duration_seconds",
			Help:    "Duration of a single scheduler loop iteration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}),
		Iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_loop_iterations_total",
			Help: "Total scheduler loop iterations completed",
		}),
		IterationError: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_loop_iteration_errors_total",
			Help: "Scheduler loop iterations that returned an error",
		}),

		PortfolioSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_portfolio_size",
			Help: "Current number of open positions",
		}),
		AccountBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_account_balance",
			Help: "Current account balance",
		}),
		AccountEarnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_account_earnings",
			Help: "Account earnings: current balance minus starting balance",
		}),

		ExitReasons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_exit_reasons_total",
			Help: "Position exits by reason",
		}, []string{"reason"}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		ObserverClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_observer_clients",
			Help: "Connected observer websocket clients",
		}),
		ObserverDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_observer_dropped_total",
			Help: "Observer messages dropped due to a full client send buffer",
		}),
	}

	prometheus.MustRegister(
		m.OrdersSubmitted,
		m.OrdersFilled,
		m.OrdersFailed,
		m.OrderRoundtrip,
		m.CandleAssembleDur,
		m.CandleAssembleErrors,
		m.IterationDur,
		m.Iterations,
		m.IterationError,
		m.PortfolioSize,
		m.AccountBalance,
		m.AccountEarnings,
		m.ExitReasons,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.ObserverClients,
		m.ObserverDropped,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	ExecutorConnected bool      `json:"executor_connected"`
	LastIterationAt   time.Time `json:"last_iteration_at"`
	RedisConnected    bool      `json:"redis_connected"`
	CandleStoreOK     bool      `json:"candle_store_ok"`
	ReportStoreOK     bool      `json:"report_store_ok"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetExecutorConnected(v bool) {
	h.mu.Lock()
	h.ExecutorConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastIterationAt(t time.Time) {
	h.mu.Lock()
	h.LastIterationAt = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetCandleStoreOK(v bool) {
	h.mu.Lock()
	h.CandleStoreOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetReportStoreOK(v bool) {
	h.mu.Lock()
	h.ReportStoreOK = v
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
	h.CandleStoreOK = err == nil
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

	if !h.ExecutorConnected || !h.RedisConnected || !h.CandleStoreOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.RedisConnected && !h.CandleStoreOK {
		overallStatus = "unhealthy"
	}

	iterationAge := ""
	if !h.LastIterationAt.IsZero() {
		iterationAge = time.Since(h.LastIterationAt).Round(time.Millisecond).String()
	}

	status := struct {
		Status            string `json:"status"`
		Uptime            string `json:"uptime"`
		ExecutorConnected bool   `json:"executor_connected"`
		LastIterationAt   string `json:"last_iteration_at"`
		IterationAge      string `json:"iteration_age"`
		RedisConnected    bool   `json:"redis_connected"`
		RedisLatencyMs    float64 `json:"redis_latency_ms"`
		CandleStoreOK     bool    `json:"candle_store_ok"`
		SQLiteLatencyMs   float64 `json:"sqlite_latency_ms"`
		ReportStoreOK     bool    `json:"report_store_ok"`
		LastCheckAt       string  `json:"last_check_at"`
	}{
		Status:            overallStatus,
		Uptime:            time.Since(h.StartedAt).Round(time.Second).String(),
		ExecutorConnected: h.ExecutorConnected,
		LastIterationAt:   h.LastIterationAt.Format(time.RFC3339),
		IterationAge:      iterationAge,
		RedisConnected:    h.RedisConnected,
		RedisLatencyMs:    h.RedisLatencyMs,
		CandleStoreOK:     h.CandleStoreOK,
		SQLiteLatencyMs:   h.SQLiteLatencyMs,
		ReportStoreOK:     h.ReportStoreOK,
		LastCheckAt:       h.LastCheckAt.Format(time.RFC3339),
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
