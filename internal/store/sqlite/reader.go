package sqlite

import (
	"context"
	"time"

	"spotscheduler/internal/model"
)

// QueryCandles returns the most recent limit candlesticks for instid,
// ordered ascending by TS.
func (s *Store) QueryCandles(ctx context.Context, instid string, limit int) ([]model.Candlestick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instid, ts, open, high, low, close, vol, change, range
		FROM (
			SELECT * FROM candle1m WHERE instid = ? ORDER BY ts DESC LIMIT ?
		) ORDER BY ts ASC
	`, instid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Candlestick
	for rows.Next() {
		var c model.Candlestick
		var tsUnix int64
		if err := rows.Scan(&c.InstID, &tsUnix, &c.Open, &c.High, &c.Low, &c.Close, &c.Vol, &c.Change, &c.Range); err != nil {
			return nil, err
		}
		c.TS = time.Unix(tsUnix, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// QueryAllInstIDs returns every instrument with at least one stored candle.
func (s *Store) QueryAllInstIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT instid FROM candle1m`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// QueryTickers returns the latest known ticker for every instrument.
func (s *Store) QueryTickers(ctx context.Context) (map[string]model.Ticker, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT instid, price, size, vol24h, change24h, ts FROM tickers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]model.Ticker)
	for rows.Next() {
		var t model.Ticker
		var tsUnix int64
		if err := rows.Scan(&t.InstID, &t.Price, &t.Size, &t.Vol24h, &t.Change24h, &tsUnix); err != nil {
			return nil, err
		}
		t.TS = time.Unix(tsUnix, 0).UTC()
		out[t.InstID] = t
	}
	return out, rows.Err()
}
