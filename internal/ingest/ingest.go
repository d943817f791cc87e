// Package ingest is the daily bulk-ingest pipeline (§4.10, §5): for
// every ticker in a market it fans out the brokerage adapter's calls,
// writes the results through the snapshot store, and recomputes moving
// averages and pivot levels from the freshly written bar history.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kis-trader/swingbot/internal/archive"
	"github.com/kis-trader/swingbot/internal/broker"
	"github.com/kis-trader/swingbot/internal/domain"
	"github.com/kis-trader/swingbot/internal/indicators"
	"github.com/kis-trader/swingbot/internal/numeric"
	"github.com/kis-trader/swingbot/internal/pivot"
	"github.com/kis-trader/swingbot/internal/store"
)

// defaultWorkers is the bulk-ingest pool size (§5: "bounded worker pool
// (default 4)").
const defaultWorkers = 4

// Runner drives one market's daily ingest.
type Runner struct {
	broker  *broker.Adapter
	store   *store.Store
	archive *archive.Store
	workers int
	log     zerolog.Logger
}

// NewRunner wires the bulk-ingest pipeline. archive may be nil, in which
// case the per-ticker history mirror is skipped (§C13, optional archival
// path alongside the main store).
func NewRunner(b *broker.Adapter, s *store.Store, a *archive.Store, log zerolog.Logger) *Runner {
	return &Runner{broker: b, store: s, archive: a, workers: defaultWorkers, log: log.With().Str("component", "ingest").Logger()}
}

// Run ingests every ticker currently on record for market, fanning work
// out across a bounded worker pool. Per-ticker failures are caught and
// logged; the bulk run continues (§7).
func (r *Runner) Run(ctx context.Context, market string) error {
	codes, err := r.store.Tickers.CodesByMarket(market)
	if err != nil {
		return fmt.Errorf("load tickers for %s: %w", market, err)
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for code := range jobs {
				if err := r.ingestOne(ctx, code); err != nil {
					r.log.Error().Err(err).Str("code", code).Msg("ticker ingest failed, continuing with next ticker")
				}
			}
		}()
	}
	for _, code := range codes {
		jobs <- code
	}
	close(jobs)
	wg.Wait()

	r.log.Info().Str("market", market).Int("tickers", len(codes)).Msg("bulk ingest complete")
	return nil
}

// ingestOne fetches the equity snapshot and the four daily-chart batches
// folded into HistoryChart concurrently, writes the snapshot and bars,
// then fetches and writes the five financial sheets x2 cycles one call
// after another, finally recomputing MA/pivot from the refreshed bar
// sequence.
func (r *Runner) ingestOne(ctx context.Context, code string) error {
	var (
		snap domain.EquitySnapshot
		bars []domain.PriceBar
		errs [2]error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		snap, err = r.broker.EquitySnapshotFields(ctx, code)
		errs[0] = err
	}()
	go func() {
		defer wg.Done()
		var err error
		bars, err = r.broker.HistoryChart(ctx, code, false)
		errs[1] = err
	}()
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	if err := r.store.Equities.Upsert(snap); err != nil {
		return fmt.Errorf("upsert equity snapshot: %w", err)
	}

	for _, bar := range bars {
		if err := r.store.Bars.Upsert(bar); err != nil {
			return fmt.Errorf("upsert price bar: %w", err)
		}
	}

	if r.archive != nil {
		if err := r.archive.SyncDailyPrices(code, bars); err != nil {
			return fmt.Errorf("archive daily prices: %w", err)
		}
	}

	if err := r.ingestSheets(ctx, code); err != nil {
		return fmt.Errorf("ingest sheets: %w", err)
	}

	return r.recomputeDerived(code)
}

// recomputeDerived rebuilds MA fields over the ticker's full bar
// history and refreshes today's pivot levels on its TradeInfo row. A
// failure here is isolated to the MA/pivot step, per §7 ("the MA step
// for the failed ticker is skipped").
func (r *Runner) recomputeDerived(code string) error {
	history, err := r.store.Bars.Sequence(code, 0)
	if err != nil {
		return fmt.Errorf("load bar history: %w", err)
	}
	if len(history) == 0 {
		return nil
	}

	mas := indicators.Compute(history)
	for i, bar := range history {
		if err := r.store.Bars.UpdateMA(domain.BarKey{Code: bar.Code, Session: bar.Session}, mas[i]); err != nil {
			return fmt.Errorf("update MA for %s/%s: %w", bar.Code, bar.Session, err)
		}
	}

	if len(history) < 2 {
		return nil
	}
	today, prior := history[0], history[1]
	lv := pivot.Compute(prior.High, prior.Low, prior.Close, today.Open, today.High, today.Low)

	ti, err := r.store.Trades.Get(code, today.Session)
	if err != nil {
		ti = domain.TradeInfo{Code: code, Session: today.Session}
	}
	pivot.ApplyTo(&ti, lv)
	return r.store.Trades.UpsertInfo(ti)
}

// ingestSheets fetches and persists all five statement kinds across
// both annual and quarterly cycles.
func (r *Runner) ingestSheets(ctx context.Context, code string) error {
	cycles := []domain.SheetClass{domain.SheetAnnual, domain.SheetQuarter}
	kinds := []broker.SheetKind{broker.SheetKindBalance, broker.SheetKindIncome, broker.SheetKindRatio, broker.SheetKindProfit, broker.SheetKindOther}

	for _, cycle := range cycles {
		for _, kind := range kinds {
			raw, err := r.broker.FinancialSheet(ctx, kind, code, cycle)
			if err != nil {
				return fmt.Errorf("fetch sheet %s/%s: %w", kind, cycle, err)
			}
			if err := r.persistSheet(code, cycle, kind, raw); err != nil {
				return fmt.Errorf("persist sheet %s/%s: %w", kind, cycle, err)
			}
		}
	}
	return nil
}

func (r *Runner) persistSheet(code string, cycle domain.SheetClass, kind broker.SheetKind, raw json.RawMessage) error {
	var rows []map[string]interface{}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return &broker.Error{Op: "persistSheet", Kind: broker.KindDecode, Err: err}
	}

	for _, row := range rows {
		key := domain.SheetKey{Code: code, Class: cycle, YearMonth: numeric.String(row["stac_yymm"])}
		var err error
		switch kind {
		case broker.SheetKindBalance:
			err = r.store.Sheets.UpsertBalanceSheet(domain.BalanceSheetRow{
				SheetKey:         key,
				TotalAssets:      numeric.Decimal(row["total_aset"]),
				TotalLiabilities: numeric.Decimal(row["total_lblt"]),
				TotalEquity:      numeric.Decimal(row["total_cptl"]),
				ReserveRate:      numeric.Float(row["rsrv_rate"]),
				DebtRate:         numeric.Float(row["lblt_rate"]),
			})
		case broker.SheetKindIncome:
			err = r.store.Sheets.UpsertIncome(domain.IncomeRow{
				SheetKey:            key,
				Revenue:             numeric.Decimal(row["sale_account"]),
				OperatingProfit:     numeric.Decimal(row["bsop_prti"]),
				NetIncome:           numeric.Decimal(row["thtr_ntin"]),
				RevenueGrowthRate:   numeric.Float(row["grs"]),
				OperatingProfitRate: numeric.Float(row["bsop_prfi_inrt"]),
			})
		case broker.SheetKindRatio:
			err = r.store.Sheets.UpsertRatio(domain.RatioRow{
				SheetKey: key,
				EPS:      numeric.Float(row["eps"]),
				BPS:      numeric.Float(row["bps"]),
				PER:      numeric.Float(row["per"]),
				PBR:      numeric.Float(row["pbr"]),
				ROE:      numeric.Float(row["roe_val"]),
				ROA:      numeric.Float(row["roa_val"]),
			})
		case broker.SheetKindProfit:
			err = r.store.Sheets.UpsertProfit(domain.ProfitRow{
				SheetKey:        key,
				GrossProfitRate: numeric.Float(row["sale_totl_rate"]),
				NetProfitRate:   numeric.Float(row["sale_ntin_rate"]),
			})
		case broker.SheetKindOther:
			err = r.store.Sheets.UpsertOther(domain.OtherRow{
				SheetKey:      key,
				GrowthRate:    numeric.Float(row["grs"]),
				StabilityRate: numeric.Float(row["lblt_rate"]),
			})
		}
		if err != nil {
			return err
		}
	}
	return nil
}
