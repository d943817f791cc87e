package trading_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kis-trader/swingbot/internal/broker"
	"github.com/kis-trader/swingbot/internal/broker/httpapi"
	"github.com/kis-trader/swingbot/internal/broker/token"
	"github.com/kis-trader/swingbot/internal/calendar"
	"github.com/kis-trader/swingbot/internal/config"
	"github.com/kis-trader/swingbot/internal/database"
	"github.com/kis-trader/swingbot/internal/domain"
	"github.com/kis-trader/swingbot/internal/store"
	"github.com/kis-trader/swingbot/internal/trading"
)

// decodeOrderBody reads an order-cash request's JSON body and returns the
// ORD_QTY/ORD_UNPR fields the adapter encodes as decimal strings.
func decodeOrderBody(t *testing.T, r *http.Request) (qty, price string) {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body["ORD_QTY"], body["ORD_UNPR"]
}

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, msg string) {}

func newHarness(t *testing.T, brokerHandler http.HandlerFunc) (*store.Store, *broker.Adapter, *config.Config) {
	t.Helper()

	db, err := database.New(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	s := store.New(db.Conn(), zerolog.Nop())

	srv := httptest.NewServer(brokerHandler)
	t.Cleanup(srv.Close)
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":86400}`))
	}))
	t.Cleanup(tokenSrv.Close)

	tm := token.NewManager(tokenSrv.URL, "key", "secret", t.TempDir()+"/token.cache", zerolog.Nop())
	hc := httpapi.NewClient(srv.URL, "key", "secret", zerolog.Nop())
	adapter := broker.NewAdapter(hc, tm, broker.ModeMock, "12345678", "01")

	cfg := &config.Config{
		ContractRate: 0.1, LimitPrice: 1_000_000, LimitCnt: 10,
		BuyUseYN: domain.Yes, TestForceBuy: domain.No,
		SellUpRate: 10, SellDownRate: -10, UseLossCut: domain.Yes, SellHoldRate: 0, TestForceSell: domain.No,
	}
	return s, adapter, cfg
}

// E3 — Buy target passes: S1=8900,S2=8800,S3=8700, current=8750 < target 8800.
func TestBuyTaskE3TargetPasses(t *testing.T) {
	session := calendar.Today()
	var placedQty, placedPrice string

	s, adapter, cfg := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("tr_id") {
		case "VTTC8434R":
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output1":[],"output2":[{"dnca_tot_amt":"1000000","prvs_rcdl_excc_amt":"1000000"}]}`))
		case "FHKST01010100":
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output":{"stck_prpr":"8750","stck_oprc":"8700","stck_hgpr":"8800","stck_lwpr":"8600"}}`))
		case "VTTC0012U":
			placedQty, placedPrice = decodeOrderBody(t, r)
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output":{"ODNO":"000123"}}`))
		default:
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok"}`))
		}
	})

	require.NoError(t, s.Tickers.Upsert(domain.Ticker{Code: "005930", Market: "KOSPI", CreatedAt: session}))
	require.NoError(t, s.Bars.Upsert(domain.PriceBar{Code: "005930", Session: calendar.DaysAgo(1), High: 9100, Low: 8900, Close: 9000}))
	require.NoError(t, s.Trades.UpsertInfo(domain.TradeInfo{
		Code: "005930", Session: session, S1: 8900, S2: 8800, S3: 8700, Strategy: "SW", Candidate: domain.Yes,
	}))

	locks := &trading.TickerLocks{}
	task := trading.NewBuyTask(adapter, s, cfg, locks, noopNotifier{}, zerolog.Nop())
	require.NoError(t, task.Tick(context.Background()))

	require.Equal(t, "11", placedQty, "alloc=100000/current=8750 truncates to 11")
	require.Equal(t, "8750", placedPrice)

	status, err := s.Trades.Get("005930", session)
	require.NoError(t, err)
	require.Equal(t, domain.YesNo("Y"), status.Candidate) // unaffected by buy; reconcile not triggered without positions

	hasBuy, err := s.Trades.HasBuyToday("005930", session)
	require.NoError(t, err)
	require.True(t, hasBuy)
}

// E4 — Buy skipped by daily dedup: a prior TradeHistory type=B already exists.
func TestBuyTaskE4SkipsOnDailyDedup(t *testing.T) {
	session := calendar.Today()
	orderCalls := 0

	s, adapter, cfg := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("tr_id") {
		case "VTTC8434R":
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output1":[],"output2":[{"dnca_tot_amt":"1000000","prvs_rcdl_excc_amt":"1000000"}]}`))
		case "FHKST01010100":
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output":{"stck_prpr":"8750","stck_oprc":"8700","stck_hgpr":"8800","stck_lwpr":"8600"}}`))
		case "VTTC0012U":
			orderCalls++
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output":{"ODNO":"000123"}}`))
		default:
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok"}`))
		}
	})

	require.NoError(t, s.Tickers.Upsert(domain.Ticker{Code: "005930", Market: "KOSPI", CreatedAt: session}))
	require.NoError(t, s.Bars.Upsert(domain.PriceBar{Code: "005930", Session: calendar.DaysAgo(1), High: 9100, Low: 8900, Close: 9000}))
	require.NoError(t, s.Trades.UpsertInfo(domain.TradeInfo{
		Code: "005930", Session: session, S1: 8900, S2: 8800, S3: 8700, Strategy: "SW", Candidate: domain.Yes,
	}))
	require.NoError(t, s.Trades.Append(domain.TradeHistory{
		Code: "005930", Session: session, Time: "090000", Type: domain.HistoryBuySubmitted, Qty: 5, Price: 8700,
	}))

	locks := &trading.TickerLocks{}
	task := trading.NewBuyTask(adapter, s, cfg, locks, noopNotifier{}, zerolog.Nop())
	require.NoError(t, task.Tick(context.Background()))

	require.Zero(t, orderCalls, "a prior buy today must suppress a second order")
}

// E5 — Sell trailing stop: bought=10000 qty=20, current=11500 -> profit=15%, S1=11600 -> sell.
func TestSellTaskE5TrailingStop(t *testing.T) {
	session := calendar.Today()
	var sellQty, sellPrice string

	s, adapter, cfg := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("tr_id") {
		case "FHKST01010100":
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output":{"stck_prpr":"11500","stck_oprc":"11000","stck_hgpr":"11600","stck_lwpr":"10900"}}`))
		case "VTTC0011U":
			sellQty, sellPrice = decodeOrderBody(t, r)
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output":{"ODNO":"000456"}}`))
		default:
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok"}`))
		}
	})

	require.NoError(t, s.Tickers.Upsert(domain.Ticker{Code: "000660", Market: "KOSPI", CreatedAt: session}))
	require.NoError(t, s.Trades.UpsertStatus(domain.TradeStatus{
		Code: "000660", Session: session, Direction: domain.DirectionBoughtHeld, Qty: 20, AvgPrice: 10000,
	}))
	require.NoError(t, s.Trades.UpsertInfo(domain.TradeInfo{Code: "000660", Session: session, S1: 11600}))

	locks := &trading.TickerLocks{}
	task := trading.NewSellTask(adapter, s, cfg, locks, noopNotifier{}, zerolog.Nop())
	require.NoError(t, task.Tick(context.Background()))

	require.Equal(t, "20", sellQty)
	require.Equal(t, "11500", sellPrice)

	status, err := s.Trades.Get("000660", session)
	require.NoError(t, err)
	_ = status
}

// E6 — Sell loss-cut disabled: useLossCut=N, profit=-25%, downRate=-20, upRate not met -> no sell.
func TestSellTaskE6LossCutDisabled(t *testing.T) {
	session := calendar.Today()
	orderCalls := 0

	s, adapter, cfg := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("tr_id") {
		case "FHKST01010100":
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output":{"stck_prpr":"7500","stck_oprc":"9000","stck_hgpr":"9100","stck_lwpr":"7400"}}`))
		case "VTTC0011U":
			orderCalls++
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output":{"ODNO":"000789"}}`))
		default:
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok"}`))
		}
	})
	cfg.UseLossCut = domain.No
	cfg.SellDownRate = -20

	require.NoError(t, s.Tickers.Upsert(domain.Ticker{Code: "000880", Market: "KOSPI", CreatedAt: session}))
	require.NoError(t, s.Trades.UpsertStatus(domain.TradeStatus{
		Code: "000880", Session: session, Direction: domain.DirectionBoughtHeld, Qty: 10, AvgPrice: 10000,
	}))
	require.NoError(t, s.Trades.UpsertInfo(domain.TradeInfo{Code: "000880", Session: session}))

	locks := &trading.TickerLocks{}
	task := trading.NewSellTask(adapter, s, cfg, locks, noopNotifier{}, zerolog.Nop())
	require.NoError(t, task.Tick(context.Background()))

	require.Zero(t, orderCalls, "loss-cut disabled and up-rate unmet must not trigger a sell")
}
