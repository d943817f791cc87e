package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kis-trader/swingbot/internal/database/repositories"
	"github.com/kis-trader/swingbot/internal/domain"
)

// ScoreRepository owns ScoreCard rows and the scoring-view JOIN (§4.4).
type ScoreRepository struct {
	*repositories.BaseRepository
}

func NewScoreRepository(db *sql.DB, log zerolog.Logger) *ScoreRepository {
	return &ScoreRepository{
		BaseRepository: repositories.NewBase(db, log.With().Str("repo", "score").Logger()),
	}
}

// Upsert persists a ScoreCard. Callers enforce the total>30 persistence
// rule (§4.4) before calling this — the repository itself writes
// whatever it is given.
func (r *ScoreRepository) Upsert(sc domain.ScoreCard) error {
	_, err := r.DB().Exec(`
		INSERT INTO score_cards (code, session, sheet_score, trend_score, price_score, kpi_score, buy_score, cap_score, per_score, pbr_score, total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, session) DO UPDATE SET
			sheet_score = excluded.sheet_score, trend_score = excluded.trend_score,
			price_score = excluded.price_score, kpi_score = excluded.kpi_score,
			buy_score = excluded.buy_score, cap_score = excluded.cap_score,
			per_score = excluded.per_score, pbr_score = excluded.pbr_score,
			total = excluded.total
	`, sc.Code, sc.Session, sc.SheetScore, sc.TrendScore, sc.PriceScore, sc.KPIScore,
		sc.BuyScore, sc.CapScore, sc.PERScore, sc.PBRScore, sc.Total)
	if err != nil {
		return fmt.Errorf("upsert score card %s/%s: %w", sc.Code, sc.Session, err)
	}
	return nil
}

// ScoringView returns the joined projection the scoring engine consumes
// for one run: Ticker + EquitySnapshot + latest annual RatioRow + most
// recent PriceBar at or before cutoff, excluding SPAC-named tickers
// ("스팩"), ordered by (market, industry, code) for deterministic
// iteration (Testable Property 3). cutoff is the prior session
// (today-1, §4.4): a same-day bar ingested ahead of the scoring run
// must not be picked up in place of the prior session's bar.
func (r *ScoreRepository) ScoringView(cutoff string) ([]domain.ScoringViewRow, error) {
	rows, err := r.DB().Query(`
		SELECT
			t.code, t.market, t.name, e.industry,
			ir.revenue_growth_rate, ir.operating_profit_rate,
			bs.reserve_rate, bs.debt_rate,
			e.year_high_rate, e.year_low_rate,
			pb.close, pb.ma5, pb.ma20, pb.ma60,
			e.listed_shares, e.foreign_net_buy_qty, e.program_net_buy_qty,
			pb.volume, e.foreign_hold_qty,
			rr.per, rr.pbr
		FROM tickers t
		JOIN equity_snapshots e ON e.code = t.code
		JOIN (
			SELECT code, eps, bps, per, pbr, roe, roa
			FROM ratio_rows r1
			WHERE sheet_class = ? AND year_month = (
				SELECT MAX(year_month) FROM ratio_rows r2
				WHERE r2.code = r1.code AND r2.sheet_class = ?
			)
		) rr ON rr.code = t.code
		LEFT JOIN balance_sheet_rows bs ON bs.code = rr.code AND bs.sheet_class = ? AND bs.year_month = (
			SELECT MAX(year_month) FROM balance_sheet_rows b2 WHERE b2.code = rr.code AND b2.sheet_class = ?
		)
		LEFT JOIN income_rows ir ON ir.code = rr.code AND ir.sheet_class = ? AND ir.year_month = (
			SELECT MAX(year_month) FROM income_rows i2 WHERE i2.code = rr.code AND i2.sheet_class = ?
		)
		LEFT JOIN (
			SELECT p1.code, p1.close, p1.ma5, p1.ma20, p1.ma60, p1.volume
			FROM price_bars p1
			WHERE p1.session = (
				SELECT MAX(session) FROM price_bars p2
				WHERE p2.code = p1.code AND p2.session <= ?
			)
		) pb ON pb.code = t.code
		WHERE t.name NOT LIKE '%스팩%'
		ORDER BY t.market, e.industry, t.code
	`, domain.SheetAnnual, domain.SheetAnnual, domain.SheetAnnual, domain.SheetAnnual, domain.SheetAnnual, domain.SheetAnnual, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query scoring view: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoringViewRow
	for rows.Next() {
		var v domain.ScoringViewRow
		if err := rows.Scan(
			&v.Code, &v.Market, &v.Name, &v.Industry,
			&v.RevenueGrowthRate, &v.OperatingProfitRate,
			&v.ReserveRate, &v.DebtRate,
			&v.RateVsYearHigh, &v.RateVsYearLow,
			&v.Close, &v.MA5, &v.MA20, &v.MA60,
			&v.ListedShares, &v.ForeignNetBuyQty, &v.ProgramNetBuyQty,
			&v.Volume, &v.ForeignHoldQty,
			&v.PER, &v.PBR,
		); err != nil {
			return nil, fmt.Errorf("scan scoring view row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
