// Package store implements the snapshot store (C6) and the position/history
// accessors (C13): one repository per entity from §3, following the
// teacher's BaseRepository pattern, plus the scoring-view JOIN (§4.4).
package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kis-trader/swingbot/internal/database/repositories"
	"github.com/kis-trader/swingbot/internal/domain"
)

// TickerRepository owns the universe's Ticker rows.
type TickerRepository struct {
	*repositories.BaseRepository
}

func NewTickerRepository(db *sql.DB, log zerolog.Logger) *TickerRepository {
	return &TickerRepository{
		BaseRepository: repositories.NewBase(db, log.With().Str("repo", "ticker").Logger()),
	}
}

// Upsert inserts a new ticker or refreshes its name/sector, leaving
// CreatedAt untouched once set (it is immutable per §3).
func (r *TickerRepository) Upsert(t domain.Ticker) error {
	_, err := r.DB().Exec(`
		INSERT INTO tickers (code, market, short_name, name, sector, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			market = excluded.market,
			short_name = excluded.short_name,
			name = excluded.name,
			sector = excluded.sector
	`, t.Code, t.Market, t.ShortName, t.Name, t.Sector, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert ticker %s: %w", t.Code, err)
	}
	return nil
}

// CodesByMarket returns every ticker code currently known for a market,
// the set internal/ingest iterates.
func (r *TickerRepository) CodesByMarket(market string) ([]string, error) {
	rows, err := r.DB().Query(`SELECT code FROM tickers WHERE market = ? ORDER BY code`, market)
	if err != nil {
		return nil, fmt.Errorf("query tickers by market %s: %w", market, err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan ticker code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
