// Package universe ingests the exchange reference endpoint into the
// narrow Universe(market) -> {code} contract the scheduler's monthly
// refresh populates the ticker table from.
package universe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kis-trader/swingbot/internal/domain"
)

const commonStockKind = "보통주"

// row is one exchange reference-data entry.
type row struct {
	Code      string `json:"ISU_SRT_CD"`
	ShortName string `json:"ISU_ABBRV"`
	EnglishName string `json:"ISU_ENG_NM"`
	Market    string `json:"MKT_TP_NM"`
	Sector    string `json:"SECT_TP_NM"`
	Kind      string `json:"KIND_STKCERT_TP_NM"`
}

type refResponse struct {
	OutBlock1 []row `json:"OutBlock_1"`
}

// Source fetches one market's reference data.
type Source struct {
	httpClient *http.Client
	url        string
	key        string
	market     string
	log        zerolog.Logger
}

func NewSource(url, key, market string, log zerolog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		url:        url,
		key:        key,
		market:     market,
		log:        log.With().Str("component", "universe").Str("market", market).Logger(),
	}
}

// Fetch returns this market's current tickers, filtered to common stock
// and deduplicated first-wins by code, with any leading "A" prefix
// stripped from the code.
func (s *Source) Fetch(ctx context.Context) ([]domain.Ticker, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build universe request: %w", err)
	}
	req.Header.Set("AUTH_KEY", s.key)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch universe %s: %w", s.market, err)
	}
	defer resp.Body.Close()

	var parsed refResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode universe %s: %w", s.market, err)
	}

	seen := make(map[string]bool, len(parsed.OutBlock1))
	tickers := make([]domain.Ticker, 0, len(parsed.OutBlock1))
	now := time.Now().Format("20060102")

	for _, r := range parsed.OutBlock1 {
		if r.Kind != commonStockKind {
			continue
		}
		code := strings.TrimPrefix(r.Code, "A")
		if seen[code] {
			continue
		}
		seen[code] = true
		tickers = append(tickers, domain.Ticker{
			Code:      code,
			Market:    s.market,
			ShortName: r.ShortName,
			Name:      r.EnglishName,
			Sector:    r.Sector,
			CreatedAt: now,
		})
	}

	s.log.Info().Int("count", len(tickers)).Msg("universe fetched")
	return tickers, nil
}
