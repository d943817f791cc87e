package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kis-trader/swingbot/internal/database/repositories"
	"github.com/kis-trader/swingbot/internal/domain"
)

// EquitySnapshotRepository owns the daily-overwritten fundamentals row.
type EquitySnapshotRepository struct {
	*repositories.BaseRepository
}

func NewEquitySnapshotRepository(db *sql.DB, log zerolog.Logger) *EquitySnapshotRepository {
	return &EquitySnapshotRepository{
		BaseRepository: repositories.NewBase(db, log.With().Str("repo", "equity_snapshot").Logger()),
	}
}

func (r *EquitySnapshotRepository) Upsert(s domain.EquitySnapshot) error {
	_, err := r.DB().Exec(`
		INSERT INTO equity_snapshots (
			code, industry, status, ref_price, weighted_avg, face_price,
			ceiling_price, floor_price, listed_shares, market_cap, turnover_rate,
			foreign_hold_qty, foreign_net_buy_qty, program_net_buy_qty,
			year_high, year_high_date, year_high_rate,
			year_low, year_low_date, year_low_rate,
			per, eps, pbr, bps
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			industry = excluded.industry,
			status = excluded.status,
			ref_price = excluded.ref_price,
			weighted_avg = excluded.weighted_avg,
			face_price = excluded.face_price,
			ceiling_price = excluded.ceiling_price,
			floor_price = excluded.floor_price,
			listed_shares = excluded.listed_shares,
			market_cap = excluded.market_cap,
			turnover_rate = excluded.turnover_rate,
			foreign_hold_qty = excluded.foreign_hold_qty,
			foreign_net_buy_qty = excluded.foreign_net_buy_qty,
			program_net_buy_qty = excluded.program_net_buy_qty,
			year_high = excluded.year_high,
			year_high_date = excluded.year_high_date,
			year_high_rate = excluded.year_high_rate,
			year_low = excluded.year_low,
			year_low_date = excluded.year_low_date,
			year_low_rate = excluded.year_low_rate,
			per = excluded.per,
			eps = excluded.eps,
			pbr = excluded.pbr,
			bps = excluded.bps
	`,
		s.Code, s.Industry, s.Status, s.RefPrice, s.WeightedAvg, s.FacePrice,
		s.CeilingPrice, s.FloorPrice, s.ListedShares, s.MarketCap.String(), s.TurnoverRate,
		s.ForeignHoldQty, s.ForeignNetBuyQty, s.ProgramNetBuyQty,
		s.YearHigh, s.YearHighDate, s.YearHighRate,
		s.YearLow, s.YearLowDate, s.YearLowRate,
		s.PER, s.EPS, s.PBR, s.BPS,
	)
	if err != nil {
		return fmt.Errorf("upsert equity snapshot %s: %w", s.Code, err)
	}
	return nil
}
