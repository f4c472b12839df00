package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"spotscheduler/config"
	"spotscheduler/internal/candle"
	"spotscheduler/internal/clock"
	"spotscheduler/internal/exchange"
	"spotscheduler/internal/ledger"
	"spotscheduler/internal/logger"
	"spotscheduler/internal/metrics"
	"spotscheduler/internal/model"
	"spotscheduler/internal/notification"
	"spotscheduler/internal/observer"
	"spotscheduler/internal/reportstore"
	"spotscheduler/internal/scheduler"
	"spotscheduler/internal/strategy"
	redisstore "spotscheduler/internal/store/redis"
	sqlitestore "spotscheduler/internal/store/sqlite"
)

func main() {
	logger.Init("scheduler", slog.LevelInfo)
	log.Println("[scheduler] starting...")

	cfg := config.Load()
	slog.Info("strategy loaded", "hash", cfg.Strategy.Hash, "top", cfg.Strategy.Top,
		"portfolio_size", cfg.Strategy.PortfolioSize, "sim_mode", cfg.SimMode)

	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- candle store (SQLite WAL) ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	candleStore, err := sqlitestore.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[scheduler] candle store init failed: %v", err)
	}
	defer candleStore.Close()
	health.SetCandleStoreOK(true)
	log.Println("[scheduler] candle store ready")

	// ---- report store (SQLite WAL, orders/reports/strategies) ----
	os.MkdirAll(filepath.Dir(cfg.ReportDBPath), 0o755)
	reportStore, err := reportstore.Open(cfg.ReportDBPath)
	if err != nil {
		log.Fatalf("[scheduler] report store init failed: %v", err)
	}
	defer reportStore.Close()
	health.SetReportStoreOK(true)
	if err := reportStore.SaveStrategy(ctx, cfg.Strategy); err != nil {
		slog.Warn("save strategy failed", "err", err)
	}

	// ---- Redis-backed cooldown/deny-list cache ----
	cache := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, 0, prom.RedisCircuitBreakerTrips.Inc)
	defer cache.Close()
	health.SetRedisConnected(true)

	clk := clock.Real{}

	// ---- executor: live signed client, or deterministic simulator ----
	var executor exchange.Executor
	if cfg.SimMode {
		executor = exchange.NewSim(cfg.SimSeed, cfg.StartingBalance)
		log.Println("[scheduler] *** SIM MODE — orders resolve against a simulated exchange ***")
	} else {
		creds := exchange.Credentials{APIKey: cfg.APIKey, APISecret: cfg.APISecret, Passphrase: cfg.Passphrase}
		executor = exchange.NewClient(cfg.BaseURL, creds, 10*time.Second, clk)
	}
	health.SetExecutorConnected(true)

	// ---- observer hub + throttled publisher ----
	hub := observer.NewHub()
	publisher := observer.NewPublisher(hub)
	go publisher.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	obsSrv := &http.Server{Addr: cfg.ObserverAddr, Handler: mux}
	go func() {
		log.Printf("[scheduler] observer listening on %s", cfg.ObserverAddr)
		if err := obsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[scheduler] observer server error: %v", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				prom.ObserverClients.Set(float64(hub.ClientCount()))
				prom.RedisCircuitBreakerState.Set(float64(cache.BreakerState()))
			}
		}
	}()

	// ---- notifier: webhook if configured, else telegram, else log ----
	var notifier notification.Notifier
	switch {
	case os.Getenv("WEBHOOK_URL") != "":
		notifier = notification.NewWebhookNotifier(os.Getenv("WEBHOOK_URL"))
	case os.Getenv("TELEGRAM_BOT_TOKEN") != "":
		notifier = notification.NewTelegramNotifier(os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"))
	default:
		notifier = notification.NewLogNotifier()
	}

	assembler := candle.New(candleStore, clk)
	engine := strategy.NewEngine(nil)
	var led *ledger.Ledger
	if cfg.SimMode {
		led = ledger.New(0.001)
	} else {
		led = ledger.NewWithExecutor(0.001, executor)
	}
	account := model.NewAccount(cfg.AccountName, cfg.StartingBalance, cfg.SpendablePerTrade)

	if denied := cache.DenyList(ctx); len(denied) > 0 {
		account.DenyList = denied
	}

	deps := scheduler.Deps{
		CandleStore: candleStore,
		ReportStore: reportStore,
		Assembler:   assembler,
		Engine:      engine,
		Executor:    executor,
		Ledger:      led,
		Publisher:   publisher,
		Notifier:    notifier,
		Clock:       clk,
		WindowSize:  cfg.Strategy.Timeframe,
		Concurrency: 5000,
		Metrics:     prom,
		Cooldowns:   cache,
	}
	loop := scheduler.New(deps, account, cfg.Strategy)

	go func() {
		if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[scheduler] loop exited: %v", err)
		}
	}()
	health.SetLastIterationAt(time.Now())

	log.Println("[scheduler] ╔════════════════════════════════════════════════════╗")
	log.Println("[scheduler] ║  Spot Trading Scheduler                             ║")
	log.Printf("[scheduler] ║  strategy=%-10s portfolio_size=%-4d top=%-4d     ║", cfg.Strategy.Hash[:min(10, len(cfg.Strategy.Hash))], cfg.Strategy.PortfolioSize, cfg.Strategy.Top)
	log.Println("[scheduler] ╚════════════════════════════════════════════════════╝")

	<-sigCh
	log.Println("[scheduler] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
	obsSrv.Shutdown(shutdownCtx)

	if err := cache.SetDenyList(shutdownCtx, account.DenyList); err != nil {
		slog.Warn("persist deny-list on shutdown failed", "err", err)
	}

	log.Println("[scheduler] shutdown complete.")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
