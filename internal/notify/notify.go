// Package notify is the fire-and-forget notification sink (§6): a
// webhook POST issued at job boundaries (start, end, unrecoverable
// error) and after each placed buy or sell order, adapted from the teacher's event-emission idiom.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sink posts best-effort text notifications to a webhook URL. A failure
// to deliver is logged, never propagated — notification is explicitly
// out of the core's failure path (§7).
type Sink struct {
	webhookURL string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewSink(webhookURL string, log zerolog.Logger) *Sink {
	return &Sink{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		log:        log.With().Str("component", "notify").Logger(),
	}
}

type payload struct {
	Text string `json:"text"`
}

// Notify posts msg to the configured webhook. Every call is tagged with
// a fresh correlation id in the log line so job-boundary notifications
// can be traced back to the job run that emitted them, even though the
// webhook body itself carries no id (the brokerage's own webhook
// contract is just {"text": ...}).
func (s *Sink) Notify(ctx context.Context, msg string) {
	corrID := uuid.New().String()
	log := s.log.With().Str("correlation_id", corrID).Logger()

	if s.webhookURL == "" {
		log.Debug().Str("msg", msg).Msg("notify webhook not configured, logging only")
		return
	}

	body, err := json.Marshal(payload{Text: msg})
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal notification payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		log.Warn().Err(err).Msg("failed to build notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("failed to deliver notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Msg("notification webhook returned non-2xx")
	}
}

// JobStarted, JobCompleted, and JobFailed are the three job-boundary
// notification points the scheduler calls (§7: "emitted to the
// notification sink only at job boundaries").
func (s *Sink) JobStarted(ctx context.Context, job string) {
	s.Notify(ctx, job+" started")
}

func (s *Sink) JobCompleted(ctx context.Context, job string) {
	s.Notify(ctx, job+" completed")
}

func (s *Sink) JobFailed(ctx context.Context, job string, err error) {
	s.Notify(ctx, job+" failed: "+err.Error())
}
