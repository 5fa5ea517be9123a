// Package history caches daily price bars in a local SQLite database
// so the pipeline does not refetch a full lookback of candles from the
// market data provider on every cycle.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/apetros/valuecycle/internal/domain"
)

// DB provides access to the local price history cache
type DB struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (or creates) the history database at path and ensures the
// schema exists
func Open(path string, log zerolog.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	h := &DB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return h, nil
}

func (h *DB) migrate() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_prices (
			symbol TEXT NOT NULL,
			date INTEGER NOT NULL,
			open REAL NOT NULL,
			high REAL NOT NULL,
			low REAL NOT NULL,
			close REAL NOT NULL,
			volume INTEGER,
			PRIMARY KEY (symbol, date)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (h *DB) Close() error {
	return h.db.Close()
}

// SyncDailyPrices writes a batch of daily candles for a symbol in a
// single transaction, replacing any bars already cached for the same
// dates
func (h *DB) SyncDailyPrices(symbol string, candles []domain.Candle) error {
	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be no-op if Commit succeeds

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_prices
		(symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		dateUnix, err := dateToUnix(c.Date)
		if err != nil {
			return fmt.Errorf("failed to parse date %s: %w", c.Date, err)
		}

		_, err = stmt.Exec(symbol, dateUnix, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert daily price for %s: %w", c.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	h.log.Debug().
		Str("symbol", symbol).
		Int("count", len(candles)).
		Msg("Synced daily prices")

	return nil
}

// GetDailyPrices fetches up to limit cached bars for a symbol, ordered
// by date ascending (oldest first) so callers can feed them straight
// into window math
func (h *DB) GetDailyPrices(symbol string, limit int) ([]domain.Candle, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := h.db.Query(query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var candles []domain.Candle
	for rows.Next() {
		var c domain.Candle
		var dateUnix int64
		var volume sql.NullInt64

		if err := rows.Scan(&dateUnix, &c.Open, &c.High, &c.Low, &c.Close, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		c.Date = time.Unix(dateUnix, 0).UTC().Format("2006-01-02")
		if volume.Valid {
			c.Volume = volume.Int64
		}

		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	// Reverse into ascending date order
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return candles, nil
}

// LatestDate returns the most recent cached date for a symbol, or ""
// when nothing is cached (not an error)
func (h *DB) LatestDate(symbol string) (string, error) {
	var dateUnix int64
	err := h.db.QueryRow(
		"SELECT date FROM daily_prices WHERE symbol = ? ORDER BY date DESC LIMIT 1",
		symbol,
	).Scan(&dateUnix)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest date: %w", err)
	}

	return time.Unix(dateUnix, 0).UTC().Format("2006-01-02"), nil
}

func dateToUnix(date string) (int64, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
