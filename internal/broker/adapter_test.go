package broker_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kis-trader/swingbot/internal/broker"
	"github.com/kis-trader/swingbot/internal/broker/httpapi"
	"github.com/kis-trader/swingbot/internal/broker/token"
	"github.com/kis-trader/swingbot/internal/domain"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *broker.Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":86400}`))
	}))
	t.Cleanup(tokenSrv.Close)

	tm := token.NewManager(tokenSrv.URL, "key", "secret", t.TempDir()+"/token.cache", zerolog.Nop())
	hc := httpapi.NewClient(srv.URL, "key", "secret", zerolog.Nop())
	return broker.NewAdapter(hc, tm, broker.ModeMock, "12345678", "01")
}

func TestSpotQuoteDecodesOutput(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output":{"stck_prpr":"70000","stck_oprc":"69500","stck_hgpr":"70500","stck_lwpr":"69000"}}`))
	})

	q, err := a.SpotQuote(context.Background(), "005930")
	require.NoError(t, err)
	require.Equal(t, int64(70000), q.Current)
	require.Equal(t, int64(69500), q.Open)
}

func TestFinancialSheetRejectsUnknownKind(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach the network for an invalid kind")
	})

	_, err := a.FinancialSheet(context.Background(), broker.SheetKind("X"), "005930", domain.SheetAnnual)
	require.Error(t, err)
	require.True(t, broker.IsKind(err, broker.KindArgumentInvalid))
}

func TestAccountBalanceComputesEffectiveCash(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output1":[{"pdno":"005930","prdt_name":"Samsung","pchs_amt":"700000","pchs_avg_pric":"70000","hldg_qty":"10"}],"output2":[{"dnca_tot_amt":"500000","prvs_rcdl_excc_amt":"250000"}]}`))
	})

	snap, err := a.AccountBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(250000), snap.EffectiveCash)
	require.Len(t, snap.Positions, 1)
	require.Equal(t, int64(10), snap.Positions[0].Qty)
}

func TestAccountBalanceFallsBackToDepositWhenSettlementZero(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output1":[],"output2":[{"dnca_tot_amt":"500000","prvs_rcdl_excc_amt":"0"}]}`))
	})

	snap, err := a.AccountBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(500000), snap.EffectiveCash)
}

func TestPlaceOrderReturnsODNOOnSuccess(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output":{"ODNO":"0000123456"}}`))
	})

	res, err := a.PlaceOrder(context.Background(), domain.SideBuy, "005930", "00", 11, 8750)
	require.NoError(t, err)
	require.Equal(t, "0000123456", res.ODNO)
}

func TestPlaceOrderSurfacesBrokerReject(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rt_cd":"1","msg1":"insufficient balance"}`))
	})

	_, err := a.PlaceOrder(context.Background(), domain.SideBuy, "005930", "00", 11, 8750)
	require.Error(t, err)
	require.True(t, broker.IsKind(err, broker.KindBrokerReject))
}
