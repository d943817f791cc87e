package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kis-trader/swingbot/internal/calendar"
	"github.com/kis-trader/swingbot/internal/ingest"
	"github.com/kis-trader/swingbot/internal/notify"
	"github.com/kis-trader/swingbot/internal/scoring"
	"github.com/kis-trader/swingbot/internal/store"
	"github.com/kis-trader/swingbot/internal/trading"
	"github.com/kis-trader/swingbot/internal/universe"
)

// UniverseRefreshJob repopulates the ticker table from the exchange
// reference endpoint (§4.10: monthly, 1st at 06:00).
type UniverseRefreshJob struct {
	sources []*universe.Source
	store   *store.Store
	notify  *notify.Sink
	log     zerolog.Logger
}

func NewUniverseRefreshJob(sources []*universe.Source, s *store.Store, n *notify.Sink, log zerolog.Logger) *UniverseRefreshJob {
	return &UniverseRefreshJob{sources: sources, store: s, notify: n, log: log}
}

func (j *UniverseRefreshJob) Name() string { return "universe_refresh" }

func (j *UniverseRefreshJob) Run() error {
	ctx := context.Background()
	j.notify.JobStarted(ctx, j.Name())

	for _, src := range j.sources {
		tickers, err := src.Fetch(ctx)
		if err != nil {
			j.notify.JobFailed(ctx, j.Name(), err)
			return err
		}
		for _, t := range tickers {
			if err := j.store.Tickers.Upsert(t); err != nil {
				j.notify.JobFailed(ctx, j.Name(), err)
				return err
			}
		}
	}

	j.notify.JobCompleted(ctx, j.Name())
	return nil
}

// BulkIngestJob runs one market's daily ingest (§4.10: KOSDAQ 16:00,
// KOSPI 17:00).
type BulkIngestJob struct {
	market string
	runner *ingest.Runner
	notify *notify.Sink
}

func NewBulkIngestJob(market string, runner *ingest.Runner, n *notify.Sink) *BulkIngestJob {
	return &BulkIngestJob{market: market, runner: runner, notify: n}
}

func (j *BulkIngestJob) Name() string { return "bulk_ingest_" + j.market }

func (j *BulkIngestJob) Run() error {
	ctx := context.Background()
	j.notify.JobStarted(ctx, j.Name())
	if err := j.runner.Run(ctx, j.market); err != nil {
		j.notify.JobFailed(ctx, j.Name(), err)
		return err
	}
	j.notify.JobCompleted(ctx, j.Name())
	return nil
}

// ScoringJob runs one scoring pass over the current session (§4.10:
// daily 05:00, after both bulk ingests complete).
type ScoringJob struct {
	store  *store.Store
	notify *notify.Sink
	log    zerolog.Logger
}

func NewScoringJob(s *store.Store, n *notify.Sink, log zerolog.Logger) *ScoringJob {
	return &ScoringJob{store: s, notify: n, log: log}
}

func (j *ScoringJob) Name() string { return "scoring_run" }

func (j *ScoringJob) Run() error {
	ctx := context.Background()
	j.notify.JobStarted(ctx, j.Name())
	runner := scoring.NewRunner(j.store, calendar.Today(), j.log)
	if err := runner.Run(); err != nil {
		j.notify.JobFailed(ctx, j.Name(), err)
		return err
	}
	j.notify.JobCompleted(ctx, j.Name())
	return nil
}

// BuyJob and SellJob tick the intraday trading loop (§4.10: every 30s,
// 09:00-15:59). They are registered as separate cron jobs so a stall in
// one never drops the other's tick.
type BuyJob struct{ task *trading.BuyTask }

func NewBuyJob(t *trading.BuyTask) *BuyJob { return &BuyJob{task: t} }

func (j *BuyJob) Name() string { return "buy_task" }
func (j *BuyJob) Run() error   { return j.task.Tick(context.Background()) }

type SellJob struct{ task *trading.SellTask }

func NewSellJob(t *trading.SellTask) *SellJob { return &SellJob{task: t} }

func (j *SellJob) Name() string { return "sell_task" }
func (j *SellJob) Run() error   { return j.task.Tick(context.Background()) }
