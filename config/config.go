package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"spotscheduler/internal/model"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Exchange credentials
	APIKey     string
	APISecret  string
	Passphrase string
	BaseURL    string

	// Account
	AccountName      string
	StartingBalance  float64
	SpendablePerTrade float64

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	ReportDBPath  string
	MetricsAddr   string
	ObserverAddr  string

	// Strategy knobs, comma-separated deny list
	Strategy model.Strategy

	// Simulation mode: when true, orders are routed to exchange.Sim instead
	// of the live signed client.
	SimMode bool
	SimSeed int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	strat := model.DefaultStrategy()
	strat.Top = getEnvInt("STRATEGY_TOP", strat.Top)
	strat.PortfolioSize = getEnvInt("STRATEGY_PORTFOLIO_SIZE", strat.PortfolioSize)
	strat.Timeframe = getEnvInt("STRATEGY_TIMEFRAME", strat.Timeframe)
	strat.Cooldown = getEnvInt("STRATEGY_COOLDOWN", strat.Cooldown)
	strat.Timeout = getEnvInt("STRATEGY_TIMEOUT", strat.Timeout)
	strat.MinVol = getEnvFloat("STRATEGY_MIN_VOL", strat.MinVol)
	strat.MinChange = getEnvFloat("STRATEGY_MIN_CHANGE", strat.MinChange)
	strat.MinChangeLastCandle = getEnvFloat("STRATEGY_MIN_CHANGE_LAST_CANDLE", strat.MinChangeLastCandle)
	strat.MinDeviation = getEnvFloat("STRATEGY_MIN_DEVIATION", strat.MinDeviation)
	strat.MaxDeviation = getEnvFloat("STRATEGY_MAX_DEVIATION", strat.MaxDeviation)
	strat.Cashout = getEnvFloat("STRATEGY_CASHOUT", strat.Cashout)
	strat.Stoploss = getEnvFloat("STRATEGY_STOPLOSS", strat.Stoploss)
	strat.SellFloor = getEnvFloat("STRATEGY_SELL_FLOOR", strat.SellFloor)
	strat.Quickstart = getEnvBool("STRATEGY_QUICKSTART", strat.Quickstart)
	strat.AvoidAfterStoploss = getEnvBool("STRATEGY_AVOID_AFTER_STOPLOSS", strat.AvoidAfterStoploss)
	strat.OrderType = getEnv("STRATEGY_ORDER_TYPE", strat.OrderType)
	strat.DenyList = splitNonEmpty(getEnv("STRATEGY_DENY_LIST", ""))
	if hash, err := strat.GetHash(); err == nil {
		strat.Hash = hash
	}

	return &Config{
		APIKey:     getEnv("OKX_API_KEY", ""),
		APISecret:  getEnv("OKX_API_SECRET", ""),
		Passphrase: getEnv("OKX_PASSPHRASE", ""),
		BaseURL:    getEnv("OKX_BASE_URL", "https://www.okx.com"),

		AccountName:       getEnv("ACCOUNT_NAME", "default"),
		StartingBalance:   getEnvFloat("ACCOUNT_BALANCE", 700),
		SpendablePerTrade: getEnvFloat("ACCOUNT_SPENDABLE", 100),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/candles.db"),
		ReportDBPath:  getEnv("REPORT_DB_PATH", "data/reports.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		ObserverAddr:  getEnv("OBSERVER_ADDR", ":3030"),

		Strategy: strat,

		SimMode: getEnvBool("SIM_MODE", true),
		SimSeed: int64(getEnvInt("SIM_SEED", 1)),
	}
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid float for %s=%q, using default %v", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid bool for %s=%q, using default %v", key, v, fallback)
		return fallback
	}
	return b
}
