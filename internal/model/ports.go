package model

import "context"

// ── Storage Port Interfaces ──
// These interfaces decouple the scheduler's business logic from concrete
// storage implementations (SQLite, Redis). Each implementation satisfies
// one or more of these interfaces.

// CandleStore persists and serves minute candlesticks and tickers, standing
// in for the time-series store the scheduler queries on every iteration.
type CandleStore interface {
	// WriteCandle upserts a single minute candlestick.
	WriteCandle(ctx context.Context, c Candlestick) error

	// QueryCandles returns the most recent limit candlesticks for instid,
	// ordered ascending by TS.
	QueryCandles(ctx context.Context, instid string, limit int) ([]Candlestick, error)

	// QueryAllInstIDs returns every instrument with at least one stored candle.
	QueryAllInstIDs(ctx context.Context) ([]string, error)

	// WriteTicker upserts the latest ticker snapshot for an instrument.
	WriteTicker(ctx context.Context, t Ticker) error

	// QueryTickers returns the latest known ticker for every instrument.
	QueryTickers(ctx context.Context) (map[string]Ticker, error)

	// Close releases underlying resources.
	Close() error
}

// ReportStore persists reports, orders, and strategy rows and supports the
// replay query used to seed per-position thresholds from trading history.
type ReportStore interface {
	// SaveReport persists a completed report.
	SaveReport(ctx context.Context, r *Report) error

	// SaveOrder persists (upserts) an order snapshot.
	SaveOrder(ctx context.Context, instid string, o *Order) error

	// SaveStrategy persists a strategy row keyed by its hash.
	SaveStrategy(ctx context.Context, s Strategy) error

	// ReportsFor returns historical reports for (instid, strategyHash), most
	// recent first.
	ReportsFor(ctx context.Context, instid, strategyHash string) ([]Report, error)

	// LiveOrders returns every order whose last persisted state was Live,
	// for crash-recovery reconciliation at startup.
	LiveOrders(ctx context.Context) ([]Order, error)

	// Close releases underlying resources.
	Close() error
}
