package scoring

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kis-trader/swingbot/internal/calendar"
	"github.com/kis-trader/swingbot/internal/domain"
	"github.com/kis-trader/swingbot/internal/store"
)

// Runner executes one scoring pass (C8) over the joined view (§4.4),
// iterating in the JOIN's fixed (market, industry, code) order so a
// fixed input set always produces bit-identical output (Testable
// Property 3 / determinism).
type Runner struct {
	store   *store.Store
	log     zerolog.Logger
	session string
}

func NewRunner(s *store.Store, session string, log zerolog.Logger) *Runner {
	return &Runner{store: s, log: log.With().Str("component", "scoring_runner").Logger(), session: session}
}

// Run scores every ticker in the scoring view. Per-ticker failures are
// caught and logged; the run continues (§7) — a failed ticker simply
// receives no ScoreCard for this session.
func (r *Runner) Run() error {
	rows, err := r.store.Scores.ScoringView(calendar.DayBefore(r.session))
	if err != nil {
		return fmt.Errorf("load scoring view: %w", err)
	}

	for _, row := range rows {
		if err := r.scoreOne(row); err != nil {
			r.log.Error().Err(err).Str("code", row.Code).Msg("scoring failed for ticker, skipping")
		}
	}
	return nil
}

func (r *Runner) scoreOne(row domain.ScoringViewRow) error {
	netIncomeLookup := func(code string) (bool, bool) {
		return latestIncomePositive(r.store, code)
	}

	bars, err := r.store.Bars.Sequence(row.Code, 0)
	if err != nil {
		return fmt.Errorf("load bar sequence for %s: %w", row.Code, err)
	}

	result := Score(row, netIncomeLookup, func() (int, bool) { return KPI(bars) })
	if !result.Passed {
		return nil
	}

	card := domain.ScoreCard{
		Code: row.Code, Session: r.session,
		SheetScore: result.SheetScore, PriceScore: result.PriceScore, TrendScore: result.TrendScore,
		CapScore: result.CapScore, BuyScore: result.BuyScore, PERScore: result.PERScore,
		PBRScore: result.PBRScore, KPIScore: result.KPIScore, Total: result.Total,
	}
	if err := r.store.Scores.Upsert(card); err != nil {
		return fmt.Errorf("persist score card for %s: %w", row.Code, err)
	}

	ti, err := r.store.Trades.Get(row.Code, r.session)
	if err != nil {
		ti = domain.TradeInfo{Code: row.Code, Session: r.session}
	}
	ti.Strategy = "SW"
	ti.Candidate = domain.Yes
	ti.Note = "swing target"
	return r.store.Trades.UpsertInfo(ti)
}

func latestIncomePositive(s *store.Store, code string) (positive bool, found bool) {
	netIncome, err := s.Sheets.LatestNetIncome(code)
	if err != nil {
		return false, false
	}
	return netIncome.IsPositive(), true
}
