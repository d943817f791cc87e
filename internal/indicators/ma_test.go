package indicators_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kis-trader/swingbot/internal/domain"
	"github.com/kis-trader/swingbot/internal/indicators"
)

func bars(closes ...int64) []domain.PriceBar {
	out := make([]domain.PriceBar, len(closes))
	for i, c := range closes {
		out[i] = domain.PriceBar{Close: c}
	}
	return out
}

func TestComputePartialWindowUsesWhatExists(t *testing.T) {
	b := bars(10, 20, 30)
	means := indicators.Compute(b)
	// window 5 but only 3 bars total from index 0
	assert.Equal(t, (10.0+20.0+30.0)/3, means[0][5])
	// window 5 from index 1: only 2 bars remain (20,30)
	assert.Equal(t, (20.0+30.0)/2, means[1][5])
}

func TestComputeExactWindow(t *testing.T) {
	b := bars(10, 20, 30, 40, 50)
	means := indicators.Compute(b)
	assert.Equal(t, (10.0+20.0+30.0+40.0+50.0)/5, means[0][5])
}

func TestApplyIsIdempotent(t *testing.T) {
	b := bars(10, 20, 30, 40, 50, 60)
	indicators.Apply(b)
	first := b[0].MA5
	indicators.Apply(b)
	assert.Equal(t, first, b[0].MA5)
}
