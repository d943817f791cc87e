package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kis-trader/swingbot/internal/database/repositories"
	"github.com/kis-trader/swingbot/internal/domain"
)

// SheetRepository owns the five financial-statement tables (§3). They
// share the same (code, sheet_class, year_month) key shape and upsert
// idiom, so one repository serves all of them rather than five near-
// identical types.
type SheetRepository struct {
	*repositories.BaseRepository
}

func NewSheetRepository(db *sql.DB, log zerolog.Logger) *SheetRepository {
	return &SheetRepository{
		BaseRepository: repositories.NewBase(db, log.With().Str("repo", "sheet").Logger()),
	}
}

func (r *SheetRepository) UpsertBalanceSheet(row domain.BalanceSheetRow) error {
	_, err := r.DB().Exec(`
		INSERT INTO balance_sheet_rows (code, sheet_class, year_month, total_assets, total_liabilities, total_equity, reserve_rate, debt_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, sheet_class, year_month) DO UPDATE SET
			total_assets = excluded.total_assets,
			total_liabilities = excluded.total_liabilities,
			total_equity = excluded.total_equity,
			reserve_rate = excluded.reserve_rate,
			debt_rate = excluded.debt_rate
	`, row.Code, row.Class, row.YearMonth, row.TotalAssets.String(), row.TotalLiabilities.String(), row.TotalEquity.String(), row.ReserveRate, row.DebtRate)
	if err != nil {
		return fmt.Errorf("upsert balance sheet row %s/%s/%s: %w", row.Code, row.Class, row.YearMonth, err)
	}
	return nil
}

func (r *SheetRepository) UpsertIncome(row domain.IncomeRow) error {
	_, err := r.DB().Exec(`
		INSERT INTO income_rows (code, sheet_class, year_month, revenue, operating_profit, net_income, revenue_growth_rate, operating_profit_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, sheet_class, year_month) DO UPDATE SET
			revenue = excluded.revenue,
			operating_profit = excluded.operating_profit,
			net_income = excluded.net_income,
			revenue_growth_rate = excluded.revenue_growth_rate,
			operating_profit_rate = excluded.operating_profit_rate
	`, row.Code, row.Class, row.YearMonth, row.Revenue.String(), row.OperatingProfit.String(), row.NetIncome.String(), row.RevenueGrowthRate, row.OperatingProfitRate)
	if err != nil {
		return fmt.Errorf("upsert income row %s/%s/%s: %w", row.Code, row.Class, row.YearMonth, err)
	}
	return nil
}

func (r *SheetRepository) UpsertRatio(row domain.RatioRow) error {
	_, err := r.DB().Exec(`
		INSERT INTO ratio_rows (code, sheet_class, year_month, eps, bps, per, pbr, roe, roa)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, sheet_class, year_month) DO UPDATE SET
			eps = excluded.eps, bps = excluded.bps, per = excluded.per, pbr = excluded.pbr,
			roe = excluded.roe, roa = excluded.roa
	`, row.Code, row.Class, row.YearMonth, row.EPS, row.BPS, row.PER, row.PBR, row.ROE, row.ROA)
	if err != nil {
		return fmt.Errorf("upsert ratio row %s/%s/%s: %w", row.Code, row.Class, row.YearMonth, err)
	}
	return nil
}

func (r *SheetRepository) UpsertProfit(row domain.ProfitRow) error {
	_, err := r.DB().Exec(`
		INSERT INTO profit_rows (code, sheet_class, year_month, gross_profit_rate, net_profit_rate)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code, sheet_class, year_month) DO UPDATE SET
			gross_profit_rate = excluded.gross_profit_rate,
			net_profit_rate = excluded.net_profit_rate
	`, row.Code, row.Class, row.YearMonth, row.GrossProfitRate, row.NetProfitRate)
	if err != nil {
		return fmt.Errorf("upsert profit row %s/%s/%s: %w", row.Code, row.Class, row.YearMonth, err)
	}
	return nil
}

func (r *SheetRepository) UpsertOther(row domain.OtherRow) error {
	_, err := r.DB().Exec(`
		INSERT INTO other_rows (code, sheet_class, year_month, growth_rate, stability_rate)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code, sheet_class, year_month) DO UPDATE SET
			growth_rate = excluded.growth_rate,
			stability_rate = excluded.stability_rate
	`, row.Code, row.Class, row.YearMonth, row.GrowthRate, row.StabilityRate)
	if err != nil {
		return fmt.Errorf("upsert other row %s/%s/%s: %w", row.Code, row.Class, row.YearMonth, err)
	}
	return nil
}

// LatestAnnualRatio returns the most recent annual RatioRow for a ticker,
// the row the scoring view JOIN reads PER/PBR from.
func (r *SheetRepository) LatestAnnualRatio(code string) (domain.RatioRow, error) {
	var row domain.RatioRow
	row.Code = code
	row.Class = domain.SheetAnnual
	err := r.DB().QueryRow(`
		SELECT year_month, eps, bps, per, pbr, roe, roa
		FROM ratio_rows
		WHERE code = ? AND sheet_class = ?
		ORDER BY year_month DESC
		LIMIT 1
	`, code, domain.SheetAnnual).Scan(&row.YearMonth, &row.EPS, &row.BPS, &row.PER, &row.PBR, &row.ROE, &row.ROA)
	if err != nil {
		return domain.RatioRow{}, fmt.Errorf("latest annual ratio %s: %w", code, err)
	}
	return row, nil
}

// LatestNetIncome returns the net income from the most recent IncomeRow
// for a ticker irrespective of sheet class (§4.6 sheet-score lookup),
// the "separate lookup" the spec calls out as distinct from the scoring
// view's annual RatioRow join.
func (r *SheetRepository) LatestNetIncome(code string) (decimal.Decimal, error) {
	var netIncome string
	err := r.DB().QueryRow(`
		SELECT net_income FROM income_rows
		WHERE code = ?
		ORDER BY year_month DESC
		LIMIT 1
	`, code).Scan(&netIncome)
	if err != nil {
		return decimal.Zero, fmt.Errorf("latest net income %s: %w", code, err)
	}
	d, err := decimal.NewFromString(netIncome)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse net income %s: %w", code, err)
	}
	return d, nil
}
