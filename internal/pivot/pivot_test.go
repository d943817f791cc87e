package pivot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kis-trader/swingbot/internal/pivot"
)

func TestComputeWithoutTodayRange(t *testing.T) {
	lv := pivot.Compute(110, 90, 100, 0, 0, 0)
	assert.Equal(t, int64(100), lv.P)
	assert.Equal(t, int64(110), lv.R1) // 2*100-90
	assert.Equal(t, int64(90), lv.S1)  // 2*100-110
	assert.Zero(t, lv.R2)
	assert.Zero(t, lv.R3)
	assert.Zero(t, lv.S2)
	assert.Zero(t, lv.S3)
}

func TestComputeWithTodayRange(t *testing.T) {
	lv := pivot.Compute(110, 90, 100, 105, 115, 95)
	assert.Equal(t, int64(100), lv.P)
	assert.Equal(t, int64(110), lv.R1)
	assert.Equal(t, int64(90), lv.S1)
	rng := int64(20) // 115-95
	assert.Equal(t, lv.P+rng, lv.R2)
	assert.Equal(t, lv.R1+rng, lv.R3)
	assert.Equal(t, lv.P-rng, lv.S2)
	assert.Equal(t, lv.S1-rng, lv.S3)
}

func TestComputeTruncatesTowardZero(t *testing.T) {
	lv := pivot.Compute(11, 10, 10, 0, 0, 0) // (11+10+10)/3 = 10.33 -> 10
	assert.Equal(t, int64(10), lv.P)
}
