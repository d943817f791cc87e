package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kis-trader/swingbot/internal/database/repositories"
	"github.com/kis-trader/swingbot/internal/domain"
)

// TradeRepository owns TradeInfo, TradeStatus, and TradeHistory — the
// pivot/candidate bridge (C9), the per-day position state, and the
// append-only trade log (C13).
type TradeRepository struct {
	*repositories.BaseRepository
}

func NewTradeRepository(db *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		BaseRepository: repositories.NewBase(db, log.With().Str("repo", "trade").Logger()),
	}
}

func (r *TradeRepository) UpsertInfo(ti domain.TradeInfo) error {
	_, err := r.DB().Exec(`
		INSERT INTO trade_info (code, session, pivot, r1, r2, r3, s1, s2, s3, today_open, prev_close, current, strategy, candidate, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, session) DO UPDATE SET
			pivot = excluded.pivot, r1 = excluded.r1, r2 = excluded.r2, r3 = excluded.r3,
			s1 = excluded.s1, s2 = excluded.s2, s3 = excluded.s3,
			today_open = excluded.today_open, prev_close = excluded.prev_close, current = excluded.current,
			strategy = excluded.strategy, candidate = excluded.candidate, note = excluded.note
	`, ti.Code, ti.Session, ti.Pivot, ti.R1, ti.R2, ti.R3, ti.S1, ti.S2, ti.S3,
		ti.TodayOpen, ti.PrevClose, ti.Current, ti.Strategy, ti.Candidate, ti.Note)
	if err != nil {
		return fmt.Errorf("upsert trade info %s/%s: %w", ti.Code, ti.Session, err)
	}
	return nil
}

func (r *TradeRepository) Get(code, session string) (domain.TradeInfo, error) {
	var ti domain.TradeInfo
	err := r.DB().QueryRow(`
		SELECT code, session, pivot, r1, r2, r3, s1, s2, s3, today_open, prev_close, current, strategy, candidate, note
		FROM trade_info WHERE code = ? AND session = ?
	`, code, session).Scan(&ti.Code, &ti.Session, &ti.Pivot, &ti.R1, &ti.R2, &ti.R3, &ti.S1, &ti.S2, &ti.S3,
		&ti.TodayOpen, &ti.PrevClose, &ti.Current, &ti.Strategy, &ti.Candidate, &ti.Note)
	if err != nil {
		return domain.TradeInfo{}, fmt.Errorf("get trade info %s/%s: %w", code, session, err)
	}
	return ti, nil
}

// Candidates returns every TradeInfo flagged as a buy candidate ("Y") for
// a session, the set the buy loop iterates each tick.
func (r *TradeRepository) Candidates(session string) ([]domain.TradeInfo, error) {
	rows, err := r.DB().Query(`
		SELECT code, session, pivot, r1, r2, r3, s1, s2, s3, today_open, prev_close, current, strategy, candidate, note
		FROM trade_info
		WHERE session = ? AND candidate = ?
		ORDER BY code
	`, session, domain.Yes)
	if err != nil {
		return nil, fmt.Errorf("query trade candidates %s: %w", session, err)
	}
	defer rows.Close()

	var out []domain.TradeInfo
	for rows.Next() {
		var ti domain.TradeInfo
		if err := rows.Scan(&ti.Code, &ti.Session, &ti.Pivot, &ti.R1, &ti.R2, &ti.R3, &ti.S1, &ti.S2, &ti.S3,
			&ti.TodayOpen, &ti.PrevClose, &ti.Current, &ti.Strategy, &ti.Candidate, &ti.Note); err != nil {
			return nil, fmt.Errorf("scan trade info: %w", err)
		}
		out = append(out, ti)
	}
	return out, rows.Err()
}

func (r *TradeRepository) UpsertStatus(ts domain.TradeStatus) error {
	_, err := r.DB().Exec(`
		INSERT INTO trade_status (code, session, direction, order_id, qty, avg_price, trade_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, session) DO UPDATE SET
			direction = excluded.direction, order_id = excluded.order_id,
			qty = excluded.qty, avg_price = excluded.avg_price, trade_time = excluded.trade_time
	`, ts.Code, ts.Session, ts.Direction, ts.OrderID, ts.Qty, ts.AvgPrice, ts.TradeTime)
	if err != nil {
		return fmt.Errorf("upsert trade status %s/%s: %w", ts.Code, ts.Session, err)
	}
	return nil
}

// Holdings returns every position currently marked bought-and-held for a
// session, the set the sell loop iterates each tick.
func (r *TradeRepository) Holdings(session string) ([]domain.TradeStatus, error) {
	rows, err := r.DB().Query(`
		SELECT code, session, direction, order_id, qty, avg_price, trade_time
		FROM trade_status
		WHERE session = ? AND direction = ?
		ORDER BY code
	`, session, domain.DirectionBoughtHeld)
	if err != nil {
		return nil, fmt.Errorf("query holdings %s: %w", session, err)
	}
	defer rows.Close()

	var out []domain.TradeStatus
	for rows.Next() {
		var ts domain.TradeStatus
		if err := rows.Scan(&ts.Code, &ts.Session, &ts.Direction, &ts.OrderID, &ts.Qty, &ts.AvgPrice, &ts.TradeTime); err != nil {
			return nil, fmt.Errorf("scan trade status: %w", err)
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// Append writes one trade-history entry. The table has no upsert path —
// every call is a new row, and its primary key rejects exact duplicates
// (same code/session/time/type).
func (r *TradeRepository) Append(h domain.TradeHistory) error {
	_, err := r.DB().Exec(`
		INSERT INTO trade_history (code, session, time, type, qty, price, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, session, time, type) DO NOTHING
	`, h.Code, h.Session, h.Time, h.Type, h.Qty, h.Price, h.Note)
	if err != nil {
		return fmt.Errorf("append trade history %s/%s: %w", h.Code, h.Session, err)
	}
	return nil
}

// HasBuyToday reports whether a buy was already recorded for a ticker on
// a session, the dedup check the buy loop makes before acting on a
// candidate (Testable Property, §4.8).
func (r *TradeRepository) HasBuyToday(code, session string) (bool, error) {
	var n int
	err := r.DB().QueryRow(`
		SELECT COUNT(*) FROM trade_history WHERE code = ? AND session = ? AND type = ?
	`, code, session, domain.HistoryBuySubmitted).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check buy history %s/%s: %w", code, session, err)
	}
	return n > 0, nil
}
