package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kis-trader/swingbot/internal/domain"
	"github.com/kis-trader/swingbot/internal/scoring"
)

func TestScoreHappyPath(t *testing.T) {
	row := domain.ScoringViewRow{
		Code:                "005930",
		RevenueGrowthRate:   12,
		OperatingProfitRate: 15,
		ReserveRate:         600,
		DebtRate:            40,
		RateVsYearHigh:      -25,
		RateVsYearLow:       8,
		Close:               9000,
		MA5:                 8800,
		MA20:                8700,
		MA60:                8750,
		ListedShares:        300_000_000,
		ForeignNetBuyQty:    1_200_000,
		ProgramNetBuyQty:    500_000,
		Volume:              10_000_000,
		ForeignHoldQty:      7_000_000,
		PER:                 7,
		PBR:                 0.8,
	}

	netIncomeLookup := func(code string) (bool, bool) { return true, true }
	kpi := func() (int, bool) { return 5, true } // rsi=+2, obv=+2, bonus=+1

	res := scoring.Score(row, netIncomeLookup, kpi)

	assert.Equal(t, 4, res.SheetScore)
	assert.Equal(t, 4, res.PriceScore)
	assert.Equal(t, 5, res.TrendScore)
	assert.Equal(t, 4, res.CapScore)
	assert.Equal(t, 4, res.BuyScore)
	assert.Equal(t, 4, res.PERScore)
	assert.Equal(t, 5, res.PBRScore)
	assert.Equal(t, 5, res.KPIScore)
	assert.Equal(t, 35, res.Total)
	require.True(t, res.Passed)
}

func TestScoreSheetGateFails(t *testing.T) {
	row := domain.ScoringViewRow{
		Code:                "000660",
		RevenueGrowthRate:   5,
		OperatingProfitRate: 5,
		ReserveRate:         100,
		DebtRate:            20,
	}
	netIncomeLookup := func(code string) (bool, bool) { return false, true }

	res := scoring.Score(row, netIncomeLookup, func() (int, bool) { return 0, false })

	assert.Equal(t, 0, res.SheetScore)
	assert.False(t, res.Passed)
	assert.Zero(t, res.Total, "gated scores downstream of the failed gate must stay unset")
}

func TestPriceScoreClampsAtZero(t *testing.T) {
	row := domain.ScoringViewRow{
		RevenueGrowthRate: 11, OperatingProfitRate: 11, ReserveRate: 600, DebtRate: 60,
		RateVsYearHigh: -5, RateVsYearLow: 40, // award=2, penalty=3 -> would be negative
	}
	res := scoring.Score(row, func(string) (bool, bool) { return false, true }, func() (int, bool) { return 0, false })
	assert.Equal(t, 0, res.PriceScore)
}

func TestCapScoreBands(t *testing.T) {
	cases := []struct {
		listedShares int64
		close        int64
		want         int
	}{
		{1, 50_000_000_000, 1},    // 50B < 100B
		{1, 400_000_000_000, 2},   // 400B < 500B
		{1, 900_000_000_000, 3},   // 900B < 1T
		{1, 3_000_000_000_000, 4}, // 3T < 5T
		{1, 9_000_000_000_000, 5}, // 9T >= 5T
	}
	for _, c := range cases {
		row := domain.ScoringViewRow{
			RevenueGrowthRate: 11, OperatingProfitRate: 11, ReserveRate: 600, DebtRate: 60,
			MA5: 1, MA20: 1, MA60: 2, Close: c.close, ListedShares: c.listedShares,
		}
		res := scoring.Score(row, func(string) (bool, bool) { return false, true }, func() (int, bool) { return 0, false })
		assert.Equal(t, c.want, res.CapScore, "listedShares=%d close=%d", c.listedShares, c.close)
	}
}

func TestKPINeedsAtLeast14Bars(t *testing.T) {
	bars := make([]domain.PriceBar, 10)
	_, ok := scoring.KPI(bars)
	assert.False(t, ok)
}
