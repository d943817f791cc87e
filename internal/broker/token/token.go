// Package token manages the brokerage's bearer access token (C3): a
// file-backed cache, single-flight refresh, and the ≥1-minute validity
// guarantee GetToken promises its callers.
package token

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/kis-trader/swingbot/internal/broker"
)

const (
	refreshMargin   = 23 * time.Hour // token requested validity is 24h; refresh a margin early
	minValidity     = 1 * time.Minute
	maxRetries      = 2
	retryBackoff    = 1 * time.Second
	singleflightKey = "token"
)

// Manager owns one brokerage bearer token, durable across restarts via a
// two-line cache file (token, then RFC3339 expiry).
type Manager struct {
	httpClient *http.Client
	baseURL    string
	appKey     string
	appSecret  string
	cachePath  string
	log        zerolog.Logger

	group singleflight.Group
}

func NewManager(baseURL, appKey, appSecret, cachePath string, log zerolog.Logger) *Manager {
	return &Manager{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		appKey:     appKey,
		appSecret:  appSecret,
		cachePath:  cachePath,
		log:        log.With().Str("component", "token_manager").Logger(),
	}
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// GetToken returns a bearer token guaranteed valid for at least
// minValidity. Concurrent callers during a refresh share one in-flight
// HTTP call via singleflight.
func (m *Manager) GetToken(ctx context.Context) (string, error) {
	if cached, ok := m.readCache(); ok && time.Until(cached.expiresAt) > minValidity {
		return cached.token, nil
	}

	v, err, _ := m.group.Do(singleflightKey, func() (interface{}, error) {
		// Re-check in case a sibling call already refreshed while we waited
		// to enter Do.
		if cached, ok := m.readCache(); ok && time.Until(cached.expiresAt) > minValidity {
			return cached.token, nil
		}
		return m.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", &broker.Error{Op: "RefreshToken", Kind: broker.KindTokenFailure, Err: ctx.Err()}
			case <-time.After(retryBackoff):
			}
		}

		token, err := m.requestToken(ctx)
		if err == nil {
			expiresAt := time.Now().Add(refreshMargin)
			if werr := m.writeCache(token, expiresAt); werr != nil {
				m.log.Warn().Err(werr).Msg("failed to persist refreshed token to disk")
			}
			return token, nil
		}
		lastErr = err
		m.log.Warn().Err(err).Int("attempt", attempt+1).Msg("token refresh attempt failed")
	}
	return "", &broker.Error{Op: "RefreshToken", Kind: broker.KindTokenFailure, Err: lastErr}
}

type tokenRequest struct {
	GrantType string `json:"grant_type"`
	AppKey    string `json:"appkey"`
	AppSecret string `json:"appsecret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (m *Manager) requestToken(ctx context.Context) (string, error) {
	body, err := json.Marshal(tokenRequest{GrantType: "client_credentials", AppKey: m.appKey, AppSecret: m.appSecret})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/oauth2/tokenP", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return tr.AccessToken, nil
}

func (m *Manager) readCache() (cachedToken, bool) {
	f, err := os.Open(m.cachePath)
	if err != nil {
		return cachedToken{}, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) < 2 {
		return cachedToken{}, false
	}

	expiresAt, err := time.ParseInLocation(time.RFC3339, lines[1], time.Local)
	if err != nil {
		return cachedToken{}, false
	}
	return cachedToken{token: lines[0], expiresAt: expiresAt}, true
}

func (m *Manager) writeCache(token string, expiresAt time.Time) error {
	f, err := os.Create(m.cachePath)
	if err != nil {
		return fmt.Errorf("create token cache file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, token)
	fmt.Fprintln(w, expiresAt.Format(time.RFC3339))
	return w.Flush()
}
