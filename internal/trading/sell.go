package trading

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/kis-trader/swingbot/internal/broker"
	"github.com/kis-trader/swingbot/internal/calendar"
	"github.com/kis-trader/swingbot/internal/config"
	"github.com/kis-trader/swingbot/internal/domain"
	"github.com/kis-trader/swingbot/internal/store"
)

// SellTask is the intraday sell loop (C11), evaluating every held
// position each tick against trailing-stop and loss-cut rules.
type SellTask struct {
	broker *broker.Adapter
	store  *store.Store
	cfg    *config.Config
	locks  *TickerLocks
	notify Notifier
	log    zerolog.Logger
}

func NewSellTask(b *broker.Adapter, s *store.Store, cfg *config.Config, locks *TickerLocks, notify Notifier, log zerolog.Logger) *SellTask {
	return &SellTask{broker: b, store: s, cfg: cfg, locks: locks, notify: notify, log: log.With().Str("component", "sell_task").Logger()}
}

// Tick runs one iteration of the sell loop (§4.9).
func (t *SellTask) Tick(ctx context.Context) error {
	session := calendar.Today()

	holdings, err := t.store.Trades.Holdings(session)
	if err != nil {
		return fmt.Errorf("load holdings: %w", err)
	}

	for _, pos := range holdings {
		if err := t.trySell(ctx, session, pos); err != nil {
			t.log.Error().Err(err).Str("code", pos.Code).Msg("sell evaluation failed, continuing with next position")
		}
	}
	return nil
}

func (t *SellTask) trySell(ctx context.Context, session string, pos domain.TradeStatus) error {
	if !t.locks.TryLock(pos.Code) {
		return nil // a buy tick holds the lock this instant; drop, don't queue
	}
	defer t.locks.Unlock(pos.Code)

	quote, err := t.broker.SpotQuote(ctx, pos.Code)
	if err != nil {
		return fmt.Errorf("spot quote: %w", err)
	}
	if quote.Current == 0 {
		return nil
	}
	if quote.Open == 0 {
		if series, serr := t.broker.DailyPriceSeries(ctx, pos.Code); serr == nil && len(series) > 0 {
			quote.Open, quote.High, quote.Low = series[0].Open, series[0].High, series[0].Low
		}
	}

	ti, err := t.store.Trades.Get(pos.Code, session)
	if err != nil {
		ti = domain.TradeInfo{Code: pos.Code, Session: session}
	}
	ti.Current = quote.Current
	ti.TodayOpen = quote.Open
	if err := t.store.Trades.UpsertInfo(ti); err != nil {
		return err
	}

	profit := profitPercent(quote.Current, pos.AvgPrice)
	t.log.Info().Str("code", pos.Code).Float64("profit_pct", profit).Msg("position profit")

	shouldSell := t.cfg.TestForceSell == domain.Yes
	if !shouldSell {
		if pos.Qty*pos.AvgPrice < int64(float64(t.cfg.LimitPrice)*t.cfg.SellHoldRate) {
			return nil // still accumulating
		}

		stop := ti.S1
		if stop == 0 {
			stop = meanIgnoringZero(ti.S2, ti.S3)
		}

		switch {
		case profit >= t.cfg.SellUpRate && (stop == 0 || quote.Current < stop):
			shouldSell = true
		case t.cfg.UseLossCut == domain.Yes && profit <= t.cfg.SellDownRate:
			shouldSell = true
		}
	}
	if !shouldSell {
		return nil
	}

	result, err := t.broker.PlaceOrder(ctx, domain.SideSell, pos.Code, "00", pos.Qty, quote.Current)
	if err != nil {
		if broker.IsKind(err, broker.KindBrokerReject) {
			t.log.Warn().Err(err).Str("code", pos.Code).Msg("sell order rejected by broker")
			return nil
		}
		return fmt.Errorf("place order: %w", err)
	}

	if err := t.store.Trades.UpsertStatus(domain.TradeStatus{
		Code: pos.Code, Session: session, Direction: domain.DirectionSold,
		OrderID: result.ODNO, Qty: pos.Qty, AvgPrice: quote.Current, TradeTime: calendar.Now(),
	}); err != nil {
		return err
	}
	if err := t.store.Trades.Append(domain.TradeHistory{
		Code: pos.Code, Session: session, Time: calendar.Now(), Type: domain.HistorySellFilled,
		Qty: pos.Qty, Price: quote.Current, Note: "swing sell",
	}); err != nil {
		return err
	}

	t.notify.Notify(ctx, fmt.Sprintf("SELL %s qty=%d price=%d profit=%.2f%% odno=%s", pos.Code, pos.Qty, quote.Current, profit, result.ODNO))
	return nil
}

// profitPercent is round(((current-bought)/bought)*100, 2), guarding the
// bought=0 case the spec assumes won't occur but which a data glitch
// could still produce.
func profitPercent(current, bought int64) float64 {
	if bought == 0 {
		return 0
	}
	raw := (float64(current-bought) / float64(bought)) * 100
	return math.Round(raw*100) / 100
}
