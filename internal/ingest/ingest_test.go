package ingest_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kis-trader/swingbot/internal/archive"
	"github.com/kis-trader/swingbot/internal/broker"
	"github.com/kis-trader/swingbot/internal/broker/httpapi"
	"github.com/kis-trader/swingbot/internal/broker/token"
	"github.com/kis-trader/swingbot/internal/database"
	"github.com/kis-trader/swingbot/internal/domain"
	"github.com/kis-trader/swingbot/internal/ingest"
	"github.com/kis-trader/swingbot/internal/store"
)

func TestRunIngestsTickerAndRecomputesMA(t *testing.T) {
	db, err := database.New(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	s := store.New(db.Conn(), zerolog.Nop())
	require.NoError(t, s.Tickers.Upsert(domain.Ticker{Code: "005930", Market: "KOSPI", CreatedAt: "20260101"}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("tr_id") {
		case "FHKST01010100":
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output":{"stck_prpr":"70000","per":"7","pbr":"0.8","lstn_stcn":"100000000","hts_avls":"7000000000000"}}`))
		case "FHKST03010100":
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output2":[{"stck_bsop_date":"20260115","stck_oprc":"69000","stck_hgpr":"70500","stck_lwpr":"68500","stck_clpr":"70000","acml_vol":"500000"}]}`))
		case "FHKST66430100", "FHKST66430200", "FHKST66430300", "FHKST66430400", "FHKST66430500":
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output":[{"stac_yymm":"202412","total_aset":"1000","total_lblt":"300","total_cptl":"700","rsrv_rate":"600","lblt_rate":"40","sale_account":"5000","bsop_prti":"800","thtr_ntin":"600","grs":"12","bsop_prfi_inrt":"15","eps":"1200","bps":"9000","per":"7","pbr":"0.8","roe_val":"10","roa_val":"5","sale_totl_rate":"20","sale_ntin_rate":"12"}]}`))
		default:
			w.Write([]byte(`{"rt_cd":"0","msg1":"ok"}`))
		}
	}))
	t.Cleanup(srv.Close)
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":86400}`))
	}))
	t.Cleanup(tokenSrv.Close)

	tm := token.NewManager(tokenSrv.URL, "key", "secret", t.TempDir()+"/token.cache", zerolog.Nop())
	hc := httpapi.NewClient(srv.URL, "key", "secret", zerolog.Nop())
	adapter := broker.NewAdapter(hc, tm, broker.ModeMock, "12345678", "01")

	arch := archive.New(t.TempDir(), zerolog.Nop())
	runner := ingest.NewRunner(adapter, s, arch, zerolog.Nop())
	require.NoError(t, runner.Run(context.Background(), "KOSPI"))

	bar, err := s.Bars.Latest("005930")
	require.NoError(t, err)
	require.Equal(t, int64(70000), bar.Close)
	require.NotZero(t, bar.MA5)

	netIncome, err := s.Sheets.LatestNetIncome("005930")
	require.NoError(t, err)
	require.True(t, netIncome.IsPositive())

	archived, err := arch.DailyPrices("005930", 10)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	require.Equal(t, int64(70000), archived[0].Close)
}
