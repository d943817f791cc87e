// Package scoring implements the multi-factor scoring engine (C8): seven
// sub-scores, four of them gated, plus a KPI sub-score derived from RSI/OBV, combined
// into a total that gates ScoreCard persistence and candidate marking.
package scoring

import (
	"github.com/kis-trader/swingbot/internal/domain"
	"github.com/kis-trader/swingbot/pkg/formulas"
)

const (
	sheetFloor = 3
	priceFloor = 0
	trendFloor = 3
	capFloor   = 3
	totalFloor = 30

	billion  = 1_000_000_000
	trillion = 1_000_000_000_000
)

// Result is one ticker's full scorecard, gate outcome included so the
// caller can decide whether to persist it.
type Result struct {
	Code string

	SheetScore int
	PriceScore int
	TrendScore int
	CapScore   int
	BuyScore   int
	PERScore   int
	PBRScore   int
	KPIScore   int
	Total      int

	Passed bool // true only if every gate cleared and Total > totalFloor
}

// LatestQuarterlyNetIncome is the extra per-ticker lookup the sheet score
// needs: the most recent IncomeRow for the code irrespective of sheet
// class (§4.6).
type LatestQuarterlyNetIncome func(code string) (positive bool, found bool)

// Score evaluates one scoring-view row, short-circuiting as soon as a
// gating sub-score falls below its floor. netIncomeLookup supplies the
// sheet score's separate net-income check; kpi supplies the RSI/OBV
// sub-score computed from the ticker's full bar history.
func Score(row domain.ScoringViewRow, netIncomeLookup LatestQuarterlyNetIncome, kpi func() (int, bool)) Result {
	res := Result{Code: row.Code}

	res.SheetScore = sheetScore(row, netIncomeLookup)
	if res.SheetScore < sheetFloor {
		return res
	}

	res.PriceScore = priceScore(row)
	if res.PriceScore < priceFloor {
		return res
	}

	res.TrendScore = trendScore(row)
	if res.TrendScore < trendFloor {
		return res
	}

	res.CapScore = capScore(row)
	if res.CapScore < capFloor {
		return res
	}

	res.BuyScore = buyScore(row)
	res.PERScore = perScore(row.PER)
	res.PBRScore = pbrScore(row.PBR)
	if kpiValue, ok := kpi(); ok {
		res.KPIScore = kpiValue
	}

	res.Total = res.SheetScore + res.PriceScore + res.TrendScore + res.CapScore +
		res.BuyScore + res.PERScore + res.PBRScore + res.KPIScore
	res.Passed = res.Total > totalFloor
	return res
}

func sheetScore(row domain.ScoringViewRow, netIncomeLookup LatestQuarterlyNetIncome) int {
	score := 0
	if row.RevenueGrowthRate > 10 {
		score++
	}
	if row.OperatingProfitRate > 10 {
		score++
	}
	if row.ReserveRate > 500 {
		score++
	}
	if row.DebtRate > 50 {
		score++
	}
	if netIncomeLookup != nil {
		if positive, found := netIncomeLookup(row.Code); found && positive {
			score++
		}
	}
	return score
}

func priceScore(row domain.ScoringViewRow) int {
	award := 0
	switch {
	case row.RateVsYearHigh <= -30:
		award = 5
	case row.RateVsYearHigh <= -20:
		award = 4
	case row.RateVsYearHigh <= -10:
		award = 3
	case row.RateVsYearHigh <= -5:
		award = 2
	case row.RateVsYearHigh < 0:
		award = 1
	}

	penalty := 0
	switch {
	case row.RateVsYearLow > 30:
		penalty = 3
	case row.RateVsYearLow > 20:
		penalty = 2
	case row.RateVsYearLow > 10:
		penalty = 1
	}

	score := award - penalty
	if score < 0 {
		score = 0
	}
	return score
}

func trendScore(row domain.ScoringViewRow) int {
	if row.MA60 == 0 || row.MA20 == 0 || row.MA5 == 0 {
		return 0
	}
	score := 0
	if row.MA60 > row.MA20 {
		score += 2
	}
	if float64(row.Close) >= row.MA20 {
		score += 2
	}
	if float64(row.Close) >= row.MA5 {
		score++
	}
	return score
}

func capScore(row domain.ScoringViewRow) int {
	cap := float64(row.ListedShares) * float64(row.Close)
	switch {
	case cap < 100*billion:
		return 1
	case cap < 500*billion:
		return 2
	case cap < 1*trillion:
		return 3
	case cap < 5*trillion:
		return 4
	default:
		return 5
	}
}

func buyScore(row domain.ScoringViewRow) int {
	var volRate, holdRate float64
	if row.Volume > 0 {
		foreignRate := float64(row.ForeignNetBuyQty) / float64(row.Volume)
		programRate := float64(row.ProgramNetBuyQty) / float64(row.Volume)
		volRate = max(foreignRate, programRate) * 100
	}
	if row.ListedShares > 0 {
		holdRate = float64(row.ForeignHoldQty) / float64(row.ListedShares) * 100
	}

	switch {
	case volRate > 10 && holdRate > 10:
		return 5
	case volRate > 10 || holdRate > 10:
		return 4
	case volRate > 5 && holdRate > 5:
		return 3
	case volRate > 5 || holdRate > 5:
		return 2
	default:
		return 1
	}
}

func perScore(per float64) int {
	switch {
	case per <= 0:
		return 1
	case per < 5:
		return 5
	case per < 10:
		return 4
	case per < 15:
		return 3
	case per < 20:
		return 2
	default:
		return 1
	}
}

func pbrScore(pbr float64) int {
	switch {
	case pbr <= 0:
		return 1
	case pbr < 1:
		return 5
	case pbr < 2:
		return 4
	case pbr < 3:
		return 3
	case pbr < 4:
		return 2
	default:
		return 1
	}
}

const kpiMinBars = 14

// KPI computes the RSI/OBV sub-score (§4.6) from a ticker's newest-first
// bar sequence. Returns ok=false when fewer than 15 bars are available
// (14 periods plus the starting point),
// in which case the caller leaves KPIScore at its zero value.
func KPI(bars []domain.PriceBar) (score int, ok bool) {
	if len(bars) < kpiMinBars+1 {
		return 0, false
	}

	// talib/RSI expect ascending (oldest-first) series.
	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		asc := len(bars) - 1 - i
		closes[asc] = b.CloseF()
		volumes[asc] = float64(b.Volume)
	}

	rsiScore := 0
	if rsi := formulas.CalculateRSI(closes, kpiMinBars); rsi != nil {
		switch {
		case *rsi > 70:
			rsiScore = -2
		case *rsi < 30:
			rsiScore = 2
		}
	}

	obvScore := 0
	if latest, prior, obvOK := formulas.CalculateOBV(closes, volumes, kpiMinBars); obvOK {
		switch {
		case latest > prior:
			obvScore = 2
		case latest < prior:
			obvScore = -2
		}
	}

	bonus := 0
	if rsiScore != 0 && obvScore != 0 {
		bonus = 1
	}
	return rsiScore + obvScore + bonus, true
}
