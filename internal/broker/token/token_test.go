package token_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kis-trader/swingbot/internal/broker/token"
)

func TestGetTokenFetchesAndCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"token_type":   "Bearer",
			"expires_in":   86400,
		})
	}))
	defer srv.Close()

	m := token.NewManager(srv.URL, "key", "secret", t.TempDir()+"/token.cache", zerolog.Nop())

	tok1, err := m.GetToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok1)

	tok2, err := m.GetToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok2)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls), "second call should be served from cache, not refetched")
}

func TestGetTokenFailsAfterRetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := token.NewManager(srv.URL, "key", "secret", t.TempDir()+"/token.cache", zerolog.Nop())

	_, err := m.GetToken(context.Background())
	require.Error(t, err)
}
