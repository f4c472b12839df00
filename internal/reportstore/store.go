// Package reportstore persists reports, orders, and strategy rows to
// SQLite, and replays historical reports to seed new positions' exit
// thresholds.
package reportstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"spotscheduler/internal/model"
)

// Store is a single-writer SQLite-backed implementation of model.ReportStore.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the report store database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		round_id        TEXT NOT NULL,
		instid          TEXT NOT NULL,
		buy_price       REAL NOT NULL,
		sell_price      REAL NOT NULL,
		earnings        REAL NOT NULL,
		reason          TEXT NOT NULL,
		highest         REAL NOT NULL,
		highest_elapsed INTEGER NOT NULL,
		lowest          REAL NOT NULL,
		lowest_elapsed  INTEGER NOT NULL,
		change          REAL NOT NULL,
		time_left       INTEGER NOT NULL,
		strategy        TEXT NOT NULL,
		ts              DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_instid_strategy ON reports(instid, strategy);

	CREATE TABLE IF NOT EXISTS orders (
		cl_ord_id   TEXT PRIMARY KEY,
		instid      TEXT NOT NULL,
		side        TEXT NOT NULL,
		state       TEXT NOT NULL,
		strategy    TEXT NOT NULL,
		payload     TEXT NOT NULL,
		updated_at  DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_orders_state ON orders(state);

	CREATE TABLE IF NOT EXISTS strategies (
		hash       TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("reportstore opened", "path", dbPath)
	return &Store{db: db}, nil
}

func (s *Store) SaveReport(ctx context.Context, r *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (round_id, instid, buy_price, sell_price, earnings, reason, highest,
			highest_elapsed, lowest, lowest_elapsed, change, time_left, strategy, ts)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.RoundID, r.InstID, r.BuyPrice, r.SellPrice, r.Earnings, string(r.Reason),
		r.Highest, r.HighestElapsed, r.Lowest, r.LowestElapsed, r.Change, r.TimeLeft, r.Strategy,
		r.TS.Format(time.RFC3339))
	return err
}

func (s *Store) SaveOrder(ctx context.Context, instid string, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO orders (cl_ord_id, instid, side, state, strategy, payload, updated_at)
		 VALUES (?,?,?,?,?,?,?)
		 ON CONFLICT(cl_ord_id) DO UPDATE SET state=excluded.state, payload=excluded.payload, updated_at=excluded.updated_at`,
		o.ClOrdID, instid, string(o.Side), string(o.State), o.Strategy, string(payload),
		time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) SaveStrategy(ctx context.Context, strat model.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(strat)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO strategies (hash, payload) VALUES (?, ?) ON CONFLICT(hash) DO NOTHING`,
		strat.Hash, string(payload))
	return err
}

// ReportsFor returns historical reports for (instid, strategyHash), most
// recent first.
func (s *Store) ReportsFor(ctx context.Context, instid, strategyHash string) ([]model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT round_id, instid, buy_price, sell_price, earnings, reason, highest, highest_elapsed,
			lowest, lowest_elapsed, change, time_left, strategy, ts
		 FROM reports WHERE instid = ? AND strategy = ? ORDER BY id DESC`, instid, strategyHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Report
	for rows.Next() {
		var r model.Report
		var reason, ts string
		if err := rows.Scan(&r.RoundID, &r.InstID, &r.BuyPrice, &r.SellPrice, &r.Earnings, &reason,
			&r.Highest, &r.HighestElapsed, &r.Lowest, &r.LowestElapsed, &r.Change, &r.TimeLeft,
			&r.Strategy, &ts); err != nil {
			continue
		}
		r.Reason = model.ExitReason(reason)
		r.TS, _ = time.Parse(time.RFC3339, ts)
		out = append(out, r)
	}
	return out, nil
}

// LiveOrders returns every order whose last persisted state is Live, for
// crash-recovery reconciliation at startup.
func (s *Store) LiveOrders(ctx context.Context) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM orders WHERE state = ?`, string(model.StateLive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			continue
		}
		var o model.Order
		if err := json.Unmarshal([]byte(payload), &o); err != nil {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SeedThresholds implements the replay rule: on the first buy of an
// (instid, strategyHash) pair, look at historical reports and compute the
// population standard deviation of `highest` (candidate sell_floor) and of
// `highest_elapsed` (candidate timeout). Each candidate is adopted on its
// own: the timeout only if it is at least 30s, the sell_floor only if it is
// at least 0.1 — too tight a replayed threshold is treated as noise and the
// strategy default is kept for it instead.
func (s *Store) SeedThresholds(ctx context.Context, instid string, strat model.Strategy) (model.PositionConfig, error) {
	reports, err := s.ReportsFor(ctx, instid, strat.Hash)
	if err != nil {
		return model.PositionConfig{}, err
	}
	cfg := model.PositionConfig{SellFloor: strat.SellFloor, Timeout: strat.Timeout}
	if len(reports) == 0 {
		return cfg, nil
	}

	highests := make([]float64, len(reports))
	elapsed := make([]float64, len(reports))
	for i, r := range reports {
		highests[i] = r.Highest
		elapsed[i] = float64(r.HighestElapsed)
	}
	sellFloorCandidate := stdDeviation(highests)
	timeoutCandidate := int(stdDeviation(elapsed))

	if timeoutCandidate >= 30 {
		cfg.Timeout = timeoutCandidate
	}
	if sellFloorCandidate >= 0.1 {
		cfg.SellFloor = sellFloorCandidate
	}
	return cfg, nil
}

func stdDeviation(xs []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= n
	var sumSq float64
	for _, x := range xs {
		d := mean - x
		sumSq += d * d
	}
	return math.Sqrt(sumSq / n)
}
