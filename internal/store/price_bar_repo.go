package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kis-trader/swingbot/internal/database/repositories"
	"github.com/kis-trader/swingbot/internal/domain"
)

// PriceBarRepository owns daily OHLCV rows and their derived moving
// averages.
type PriceBarRepository struct {
	*repositories.BaseRepository
}

func NewPriceBarRepository(db *sql.DB, log zerolog.Logger) *PriceBarRepository {
	return &PriceBarRepository{
		BaseRepository: repositories.NewBase(db, log.With().Str("repo", "price_bar").Logger()),
	}
}

func (r *PriceBarRepository) Upsert(b domain.PriceBar) error {
	_, err := r.DB().Exec(`
		INSERT INTO price_bars (
			code, session, open, high, low, close, volume, turnover,
			prev_day_delta, prev_day_sign,
			ma5, ma10, ma20, ma30, ma60, ma120, ma200, ma240
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, session) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume, turnover = excluded.turnover,
			prev_day_delta = excluded.prev_day_delta, prev_day_sign = excluded.prev_day_sign,
			ma5 = excluded.ma5, ma10 = excluded.ma10, ma20 = excluded.ma20,
			ma30 = excluded.ma30, ma60 = excluded.ma60, ma120 = excluded.ma120,
			ma200 = excluded.ma200, ma240 = excluded.ma240
	`,
		b.Code, b.Session, b.Open, b.High, b.Low, b.Close, b.Volume, b.Turnover.String(),
		b.PrevDayDelta, b.PrevDaySign,
		b.MA5, b.MA10, b.MA20, b.MA30, b.MA60, b.MA120, b.MA200, b.MA240,
	)
	if err != nil {
		return fmt.Errorf("upsert price bar %s/%s: %w", b.Code, b.Session, err)
	}
	return nil
}

// UpdateMA writes back just the moving-average columns for one bar, the
// form the MA engine (C7) uses so it never disturbs OHLCV fields it did
// not recompute.
func (r *PriceBarRepository) UpdateMA(key domain.BarKey, ma map[int]float64) error {
	_, err := r.DB().Exec(`
		UPDATE price_bars SET
			ma5 = ?, ma10 = ?, ma20 = ?, ma30 = ?, ma60 = ?, ma120 = ?, ma200 = ?, ma240 = ?
		WHERE code = ? AND session = ?
	`,
		ma[5], ma[10], ma[20], ma[30], ma[60], ma[120], ma[200], ma[240],
		key.Code, key.Session,
	)
	if err != nil {
		return fmt.Errorf("update MA for %s/%s: %w", key.Code, key.Session, err)
	}
	return nil
}

// Sequence returns a ticker's bars newest-first, the traversal order the
// MA engine and pivot calculator both rely on. limit <= 0 means "no
// limit" — the full history.
func (r *PriceBarRepository) Sequence(code string, limit int) ([]domain.PriceBar, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}
	rows, err := r.DB().Query(`
		SELECT code, session, open, high, low, close, volume, turnover,
		       prev_day_delta, prev_day_sign,
		       ma5, ma10, ma20, ma30, ma60, ma120, ma200, ma240
		FROM price_bars
		WHERE code = ?
		ORDER BY session DESC
		LIMIT ?
	`, code, limit)
	if err != nil {
		return nil, fmt.Errorf("query price bar sequence %s: %w", code, err)
	}
	defer rows.Close()

	var bars []domain.PriceBar
	for rows.Next() {
		var b domain.PriceBar
		var turnover string
		if err := rows.Scan(
			&b.Code, &b.Session, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &turnover,
			&b.PrevDayDelta, &b.PrevDaySign,
			&b.MA5, &b.MA10, &b.MA20, &b.MA30, &b.MA60, &b.MA120, &b.MA200, &b.MA240,
		); err != nil {
			return nil, fmt.Errorf("scan price bar: %w", err)
		}
		b.Turnover, _ = decimal.NewFromString(turnover)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// Latest returns the most recent bar for a ticker, or sql.ErrNoRows if
// none exists.
func (r *PriceBarRepository) Latest(code string) (domain.PriceBar, error) {
	bars, err := r.Sequence(code, 1)
	if err != nil {
		return domain.PriceBar{}, err
	}
	if len(bars) == 0 {
		return domain.PriceBar{}, sql.ErrNoRows
	}
	return bars[0], nil
}
