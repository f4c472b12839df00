// Package sqlite persists candlesticks and tickers for the scheduler's
// time-series store, in a single-writer WAL-mode SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"spotscheduler/internal/model"
)

// Store is a SQLite-backed model.CandleStore. Writes are serialized behind
// a mutex (SQLite allows only one writer at a time); reads are not locked
// and share the same pool of up to four connections.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the candle store database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(4)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("candle store opened", "path", dbPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candle1m (
			instid TEXT NOT NULL,
			ts     INTEGER NOT NULL,
			open   REAL NOT NULL,
			high   REAL NOT NULL,
			low    REAL NOT NULL,
			close  REAL NOT NULL,
			vol    REAL NOT NULL,
			change REAL NOT NULL,
			range  REAL NOT NULL,
			PRIMARY KEY (instid, ts)
		);
		CREATE INDEX IF NOT EXISTS idx_candle1m_instid_ts ON candle1m(instid, ts);

		CREATE TABLE IF NOT EXISTS tickers (
			instid    TEXT PRIMARY KEY,
			price     REAL NOT NULL,
			size      REAL NOT NULL,
			vol24h    REAL NOT NULL,
			change24h REAL NOT NULL,
			ts        INTEGER NOT NULL
		);
	`)
	return err
}

// WriteCandle upserts a single minute candlestick.
func (s *Store) WriteCandle(ctx context.Context, c model.Candlestick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO candle1m (instid, ts, open, high, low, close, vol, change, range)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		c.InstID, c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Vol, c.Change, c.Range)
	return err
}

// WriteTicker upserts the latest ticker snapshot for an instrument.
func (s *Store) WriteTicker(ctx context.Context, t model.Ticker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tickers (instid, price, size, vol24h, change24h, ts)
		 VALUES (?,?,?,?,?,?)`,
		t.InstID, t.Price, t.Size, t.Vol24h, t.Change24h, t.TS.Unix())
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
