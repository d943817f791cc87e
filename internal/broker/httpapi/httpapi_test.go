package httpapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kis-trader/swingbot/internal/broker"
	"github.com/kis-trader/swingbot/internal/broker/httpapi"
)

func TestDoAttachesHeadersAndDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "appkey1", r.Header.Get("appkey"))
		require.Equal(t, "FHKST01010100", r.Header.Get("tr_id"))
		w.Write([]byte(`{"rt_cd":"0","msg1":"ok","output":{"stck_prpr":"70000"}}`))
	}))
	defer srv.Close()

	c := httpapi.NewClient(srv.URL, "appkey1", "appsecret1", zerolog.Nop())
	env, err := c.Do(context.Background(), "SpotQuote", httpapi.Request{
		Method: http.MethodGet,
		Path:   "/uapi/domestic-stock/v1/quotations/inquire-price",
		Token:  "tok",
		TrID:   "FHKST01010100",
	})
	require.NoError(t, err)
	require.True(t, env.OK())
}

func TestDoRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"rt_cd":"0","msg1":"ok"}`))
	}))
	defer srv.Close()

	c := httpapi.NewClient(srv.URL, "k", "s", zerolog.Nop())
	env, err := c.Do(context.Background(), "SpotQuote", httpapi.Request{Method: http.MethodGet, Token: "t", TrID: "x"})
	require.NoError(t, err)
	require.True(t, env.OK())
	require.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestDoReturnsBrokerRejectOnNonZeroRTCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rt_cd":"1","msg1":"invalid request"}`))
	}))
	defer srv.Close()

	c := httpapi.NewClient(srv.URL, "k", "s", zerolog.Nop())
	_, err := c.Do(context.Background(), "SpotQuote", httpapi.Request{Method: http.MethodGet, Token: "t", TrID: "x"})
	require.Error(t, err)
	require.True(t, broker.IsKind(err, broker.KindBrokerReject))
}

func TestDoDetectsRateExceededEmbeddedInMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rt_cd":"1","msg1":"초당 거래건수를 초과하였습니다.(EGW00201)"}`))
	}))
	defer srv.Close()

	c := httpapi.NewClient(srv.URL, "k", "s", zerolog.Nop())
	_, err := c.Do(context.Background(), "SpotQuote", httpapi.Request{Method: http.MethodGet, Token: "t", TrID: "x"})
	require.Error(t, err)
	require.True(t, broker.IsKind(err, broker.KindRateExceeded))
}
