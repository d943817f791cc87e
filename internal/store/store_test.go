package store_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kis-trader/swingbot/internal/database"
	"github.com/kis-trader/swingbot/internal/domain"
	"github.com/kis-trader/swingbot/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.New(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return store.New(db.Conn(), zerolog.Nop())
}

func TestTickerUpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	tk := domain.Ticker{Code: "005930", Market: "KOSPI", Name: "Samsung Electronics", CreatedAt: "20260101"}

	require.NoError(t, s.Tickers.Upsert(tk))
	require.NoError(t, s.Tickers.Upsert(tk))

	codes, err := s.Tickers.CodesByMarket("KOSPI")
	require.NoError(t, err)
	require.Equal(t, []string{"005930"}, codes)
}

func TestPriceBarUpsertOverwritesSameSession(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Tickers.Upsert(domain.Ticker{Code: "005930", Market: "KOSPI", CreatedAt: "20260101"}))

	bar := domain.PriceBar{Code: "005930", Session: "20260115", Close: 70000}
	require.NoError(t, s.Bars.Upsert(bar))

	bar.Close = 71000
	require.NoError(t, s.Bars.Upsert(bar))

	latest, err := s.Bars.Latest("005930")
	require.NoError(t, err)
	require.Equal(t, int64(71000), latest.Close)
}

func TestTradeHistoryAppendRejectsExactDuplicate(t *testing.T) {
	s := newTestStore(t)
	h := domain.TradeHistory{Code: "005930", Session: "20260115", Time: "090100", Type: domain.HistoryBuySubmitted, Qty: 10, Price: 70000}

	require.NoError(t, s.Trades.Append(h))
	require.NoError(t, s.Trades.Append(h)) // ON CONFLICT DO NOTHING, not an error

	has, err := s.Trades.HasBuyToday("005930", "20260115")
	require.NoError(t, err)
	require.True(t, has)
}

func TestCandidatesFiltersByFlag(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Tickers.Upsert(domain.Ticker{Code: "005930", Market: "KOSPI", CreatedAt: "20260101"}))
	require.NoError(t, s.Tickers.Upsert(domain.Ticker{Code: "000660", Market: "KOSPI", CreatedAt: "20260101"}))

	require.NoError(t, s.Trades.UpsertInfo(domain.TradeInfo{Code: "005930", Session: "20260115", Candidate: domain.Yes}))
	require.NoError(t, s.Trades.UpsertInfo(domain.TradeInfo{Code: "000660", Session: "20260115", Candidate: domain.No}))

	candidates, err := s.Trades.Candidates("20260115")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "005930", candidates[0].Code)
}
