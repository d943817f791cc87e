// Package httpapi is the rate-limited, retrying HTTP transport (C4)
// beneath the brokerage adapter. It knows nothing about trading
// semantics — only headers, spacing, retries, and envelope decoding.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kis-trader/swingbot/internal/broker"
)

const (
	callSpacing  = 1100 * time.Millisecond // ≥1000ms spacing per brokerage rate limit
	callTimeout  = 10 * time.Second
	maxAttempts  = 3
	retryBackoff = 1 * time.Second
	rateExceededSentinel = "EGW00201"
)

// Client issues rate-limited, retrying calls against the brokerage REST
// API and decodes its envelope shapes.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	appKey     string
	appSecret  string
	log        zerolog.Logger
}

func NewClient(baseURL, appKey, appSecret string, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: callTimeout},
		limiter:    rate.NewLimiter(rate.Every(callSpacing), 1),
		baseURL:    baseURL,
		appKey:     appKey,
		appSecret:  appSecret,
		log:        log.With().Str("component", "broker_http").Logger(),
	}
}

// Envelope is the common shape of every brokerage JSON response: a
// result code, a message, and one of three output field layouts.
type Envelope struct {
	RTCode string          `json:"rt_cd"`
	Msg1   string          `json:"msg1"`
	Output json.RawMessage `json:"output"`
	Output1 json.RawMessage `json:"output1"`
	Output2 json.RawMessage `json:"output2"`
}

func (e Envelope) OK() bool { return e.RTCode == "0" }

// Request describes one call: method, path, query/body, and the tr-id
// header that selects the brokerage operation.
type Request struct {
	Method string
	Path   string
	Token  string
	TrID   string
	Query  url.Values
	Body   interface{} // marshaled as JSON for POST; ignored for GET
}

// Do executes req with header attachment, spacing, and retry-on-
// transient-failure, returning the decoded envelope.
func (c *Client) Do(ctx context.Context, op string, req Request) (Envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Envelope{}, &broker.Error{Op: op, Kind: broker.KindNetwork, Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		env, retriable, err := c.attempt(ctx, op, req)
		if err == nil {
			return env, nil
		}
		lastErr = err
		if !retriable || attempt == maxAttempts {
			break
		}
		c.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("retrying broker call")
		select {
		case <-ctx.Done():
			return Envelope{}, &broker.Error{Op: op, Kind: broker.KindNetwork, Err: ctx.Err()}
		case <-time.After(retryBackoff):
		}
	}
	return Envelope{}, lastErr
}

func (c *Client) attempt(ctx context.Context, op string, r Request) (Envelope, bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	fullURL := c.baseURL + r.Path
	var bodyReader io.Reader
	method := r.Method

	if method == http.MethodGet {
		if r.Query != nil {
			fullURL += "?" + r.Query.Encode()
		}
	} else if r.Body != nil {
		raw, err := json.Marshal(r.Body)
		if err != nil {
			return Envelope{}, false, &broker.Error{Op: op, Kind: broker.KindDecode, Err: fmt.Errorf("marshal body: %w", err)}
		}
		bodyReader = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, method, fullURL, bodyReader)
	if err != nil {
		return Envelope{}, false, &broker.Error{Op: op, Kind: broker.KindNetwork, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Authorization", "Bearer "+r.Token)
	httpReq.Header.Set("appkey", c.appKey)
	httpReq.Header.Set("appsecret", c.appSecret)
	httpReq.Header.Set("tr_id", r.TrID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Envelope{}, true, &broker.Error{Op: op, Kind: broker.KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Envelope{}, true, &broker.Error{Op: op, Kind: broker.KindNetwork, Err: err}
	}

	if resp.StatusCode >= 500 {
		return Envelope{}, true, &broker.Error{Op: op, Kind: broker.KindHTTPStatus, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return Envelope{}, false, &broker.Error{Op: op, Kind: broker.KindHTTPStatus, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, false, &broker.Error{Op: op, Kind: broker.KindDecode, Err: err}
	}

	if !env.OK() {
		if strings.Contains(env.RTCode, rateExceededSentinel) || strings.Contains(env.Msg1, rateExceededSentinel) {
			return Envelope{}, true, &broker.Error{Op: op, Kind: broker.KindRateExceeded, Err: fmt.Errorf("%s", env.Msg1)}
		}
		return Envelope{}, false, &broker.Error{Op: op, Kind: broker.KindBrokerReject, Err: fmt.Errorf("%s", env.Msg1)}
	}
	return env, false, nil
}
