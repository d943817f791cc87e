// Package archive mirrors written bars into a per-ticker cgo-backed
// SQLite file, the long-horizon history cache C13 keeps alongside the
// main store. Adapted from the teacher's HistoryDB (one mattn/go-sqlite3
// file per symbol, daily rows aggregated into a monthly table).
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/kis-trader/swingbot/internal/domain"
)

// Store opens one SQLite file per ticker code under dir, e.g.
// dir/005930.db, independent of the main modernc.org/sqlite store.
type Store struct {
	dir string
	log zerolog.Logger
}

func New(dir string, log zerolog.Logger) *Store {
	return &Store{dir: dir, log: log.With().Str("component", "archive").Logger()}
}

// DailyPrice is one archived OHLCV row, keyed by session (YYYYMMDD).
type DailyPrice struct {
	Session string
	Open    int64
	High    int64
	Low     int64
	Close   int64
	Volume  int64
}

// MonthlyPrice is the average close aggregated over one calendar month.
type MonthlyPrice struct {
	YearMonth string
	AvgClose  float64
}

func (s *Store) openTickerDB(code string) (*sql.DB, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	dbPath := filepath.Join(s.dir, code+".db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open archive db for %s: %w", code, err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_prices (
			session TEXT PRIMARY KEY,
			open_price INTEGER NOT NULL,
			high_price INTEGER NOT NULL,
			low_price INTEGER NOT NULL,
			close_price INTEGER NOT NULL,
			volume INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS monthly_prices (
			year_month TEXT PRIMARY KEY,
			avg_close REAL NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive db for %s: %w", code, err)
	}
	return db, nil
}

// SyncDailyPrices writes bars into the ticker's archive file and
// re-aggregates the monthly table from the full daily history, matching
// the teacher's SyncHistoricalPrices transaction shape.
func (s *Store) SyncDailyPrices(code string, bars []domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	db, err := s.openTickerDB(code)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_prices
		(session, open_price, high_price, low_price, close_price, volume)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare archive insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(b.Session, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("insert archive row %s/%s: %w", code, b.Session, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO monthly_prices (year_month, avg_close)
		SELECT substr(session, 1, 6) AS year_month, AVG(close_price)
		FROM daily_prices
		GROUP BY substr(session, 1, 6)
	`); err != nil {
		return fmt.Errorf("aggregate archive monthly prices: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}

	s.log.Debug().Str("code", code).Int("bars", len(bars)).Msg("archived daily prices")
	return nil
}

// DailyPrices returns the code's archived bars, most recent first.
func (s *Store) DailyPrices(code string, limit int) ([]DailyPrice, error) {
	db, err := s.openTickerDB(code)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT session, open_price, high_price, low_price, close_price, volume
		FROM daily_prices ORDER BY session DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query archive daily prices: %w", err)
	}
	defer rows.Close()

	var out []DailyPrice
	for rows.Next() {
		var p DailyPrice
		if err := rows.Scan(&p.Session, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("scan archive daily price: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MonthlyPrices returns the code's monthly-averaged close, most recent
// year-month first.
func (s *Store) MonthlyPrices(code string, limit int) ([]MonthlyPrice, error) {
	db, err := s.openTickerDB(code)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT year_month, avg_close FROM monthly_prices
		ORDER BY year_month DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query archive monthly prices: %w", err)
	}
	defer rows.Close()

	var out []MonthlyPrice
	for rows.Next() {
		var p MonthlyPrice
		if err := rows.Scan(&p.YearMonth, &p.AvgClose); err != nil {
			return nil, fmt.Errorf("scan archive monthly price: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
