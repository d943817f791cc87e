package trading

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kis-trader/swingbot/internal/broker"
	"github.com/kis-trader/swingbot/internal/calendar"
	"github.com/kis-trader/swingbot/internal/config"
	"github.com/kis-trader/swingbot/internal/domain"
	"github.com/kis-trader/swingbot/internal/pivot"
	"github.com/kis-trader/swingbot/internal/store"
	"github.com/kis-trader/swingbot/pkg/formulas"
)

// BuyTask is the intraday buy loop (C10), ticked on a fixed cadence
// during market hours.
type BuyTask struct {
	broker *broker.Adapter
	store  *store.Store
	cfg    *config.Config
	locks  *TickerLocks
	notify Notifier
	log    zerolog.Logger
}

// Notifier is the narrow fire-and-forget sink both tasks use, kept as an
// interface so tests can swap in a no-op.
type Notifier interface {
	Notify(ctx context.Context, msg string)
}

func NewBuyTask(b *broker.Adapter, s *store.Store, cfg *config.Config, locks *TickerLocks, notify Notifier, log zerolog.Logger) *BuyTask {
	return &BuyTask{broker: b, store: s, cfg: cfg, locks: locks, notify: notify, log: log.With().Str("component", "buy_task").Logger()}
}

// Tick runs one iteration of the buy loop (§4.8).
func (t *BuyTask) Tick(ctx context.Context) error {
	session := calendar.Today()

	snap, err := t.broker.AccountBalance(ctx)
	if err != nil {
		return fmt.Errorf("account balance: %w", err)
	}
	if snap.EffectiveCash == 0 {
		return nil
	}

	if err := t.reconcile(session, snap); err != nil {
		return fmt.Errorf("reconcile positions: %w", err)
	}

	if t.cfg.BuyUseYN != domain.Yes {
		return nil
	}

	candidates, err := t.store.Trades.Candidates(session)
	if err != nil {
		return fmt.Errorf("load candidates: %w", err)
	}

	holdings, err := t.store.Trades.Holdings(session)
	if err != nil {
		return fmt.Errorf("load holdings: %w", err)
	}
	held := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		held[h.Code] = true
	}

	for _, candidate := range candidates {
		if err := t.tryBuy(ctx, session, candidate, snap.EffectiveCash, len(holdings), held); err != nil {
			t.log.Error().Err(err).Str("code", candidate.Code).Msg("buy attempt failed, continuing with next candidate")
		}
	}
	return nil
}

// reconcile upserts TradeStatus/TradeInfo from the account's current
// positions (§4.8 step 2).
func (t *BuyTask) reconcile(session string, snap broker.AccountSnapshot) error {
	for _, pos := range snap.Positions {
		ti, err := t.store.Trades.Get(pos.Code, session)
		if err != nil {
			ti = domain.TradeInfo{Code: pos.Code, Session: session}
		}

		if pos.PurchaseAmt > 0 {
			if err := t.store.Trades.UpsertStatus(domain.TradeStatus{
				Code: pos.Code, Session: session, Direction: domain.DirectionBoughtHeld,
				Qty: pos.Qty, AvgPrice: pos.AvgPrice, TradeTime: calendar.Now(),
			}); err != nil {
				return err
			}
			if pos.Qty*pos.AvgPrice > t.cfg.LimitPrice {
				ti.Candidate = domain.No
				ti.Note = "swing bought item(buy-stop)"
			} else {
				ti.Candidate = domain.Yes
				ti.Note = "swing bought item"
			}
		} else {
			if err := t.store.Trades.UpsertStatus(domain.TradeStatus{
				Code: pos.Code, Session: session, Direction: domain.DirectionSold, TradeTime: calendar.Now(),
			}); err != nil {
				return err
			}
		}

		if err := t.store.Trades.UpsertInfo(ti); err != nil {
			return err
		}
	}
	return nil
}

func (t *BuyTask) tryBuy(ctx context.Context, session string, candidate domain.TradeInfo, effectiveCash int64, holdingsCount int, held map[string]bool) error {
	if !t.locks.TryLock(candidate.Code) {
		return nil // a sell tick holds the lock this instant; drop, don't queue
	}
	defer t.locks.Unlock(candidate.Code)

	if holdingsCount >= t.cfg.LimitCnt && !held[candidate.Code] {
		return nil
	}

	quote, err := t.broker.SpotQuote(ctx, candidate.Code)
	if err != nil {
		return fmt.Errorf("spot quote: %w", err)
	}
	if quote.Current == 0 {
		return nil
	}
	if quote.Open == 0 {
		if series, serr := t.broker.DailyPriceSeries(ctx, candidate.Code); serr == nil && len(series) > 0 {
			quote.Open, quote.High, quote.Low = series[0].Open, series[0].High, series[0].Low
		}
	}

	candidate.Current = quote.Current
	candidate.TodayOpen = quote.Open
	if err := t.store.Trades.UpsertInfo(candidate); err != nil {
		return err
	}

	prior, err := t.priorDayOHLC(candidate.Code, session)
	if err == nil {
		lv := pivot.Compute(prior.High, prior.Low, prior.Close, quote.Open, quote.High, quote.Low)
		pivot.ApplyTo(&candidate, lv)
		if err := t.store.Trades.UpsertInfo(candidate); err != nil {
			return err
		}
	}

	hasBuy, err := t.store.Trades.HasBuyToday(candidate.Code, session)
	if err != nil {
		return fmt.Errorf("check buy history: %w", err)
	}
	if hasBuy {
		return nil
	}

	buyTarget := meanIgnoringZero(candidate.S1, candidate.S2, candidate.S3)
	if buyTarget <= 0 {
		return nil
	}

	if t.cfg.TestForceBuy != domain.Yes && quote.Current >= buyTarget {
		return nil
	}

	alloc := int64(float64(effectiveCash) * t.cfg.ContractRate)
	qty := alloc / quote.Current
	if qty == 0 && effectiveCash >= quote.Current {
		qty = 1
	}
	if qty == 0 {
		return nil
	}

	result, err := t.broker.PlaceOrder(ctx, domain.SideBuy, candidate.Code, "00", qty, quote.Current)
	if err != nil {
		if broker.IsKind(err, broker.KindBrokerReject) {
			t.log.Warn().Err(err).Str("code", candidate.Code).Msg("buy order rejected by broker")
			return nil
		}
		return fmt.Errorf("place order: %w", err)
	}

	if err := t.store.Trades.UpsertStatus(domain.TradeStatus{
		Code: candidate.Code, Session: session, Direction: domain.DirectionBoughtHeld,
		OrderID: result.ODNO, Qty: qty, AvgPrice: quote.Current, TradeTime: calendar.Now(),
	}); err != nil {
		return err
	}
	if err := t.store.Trades.Append(domain.TradeHistory{
		Code: candidate.Code, Session: session, Time: calendar.Now(), Type: domain.HistoryBuySubmitted,
		Qty: qty, Price: quote.Current, Note: "swing buy",
	}); err != nil {
		return err
	}

	t.notify.Notify(ctx, fmt.Sprintf("BUY %s qty=%d price=%d odno=%s", candidate.Code, qty, quote.Current, result.ODNO))
	return nil
}

func (t *BuyTask) priorDayOHLC(code, session string) (domain.PriceBar, error) {
	bars, err := t.store.Bars.Sequence(code, 2)
	if err != nil {
		return domain.PriceBar{}, err
	}
	for _, b := range bars {
		if b.Session != session {
			return b, nil
		}
	}
	return domain.PriceBar{}, fmt.Errorf("no prior-day bar for %s", code)
}

// meanIgnoringZero averages the non-zero values among vs, matching the
// spec's "ignoring null values" pivot-average convention (§4.8/§4.9):
// an unset support/resistance level reads as 0 and is excluded. KRW
// prices are whole won, so the gonum mean is truncated back to int64.
func meanIgnoringZero(vs ...int64) int64 {
	vals := make([]float64, 0, len(vs))
	for _, v := range vs {
		if v != 0 {
			vals = append(vals, float64(v))
		}
	}
	if len(vals) == 0 {
		return 0
	}
	return int64(formulas.Mean(vals))
}
