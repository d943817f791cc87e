package numeric

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInt(t *testing.T) {
	assert.Equal(t, int64(1234), Int("1,234"))
	assert.Equal(t, int64(1234), Int("₩1,234"))
	assert.Equal(t, int64(0), Int(nil))
	assert.Equal(t, int64(0), Int("garbage"))
	assert.Equal(t, int64(-50), Int("-50"))
	assert.Equal(t, int64(7), Int(7.9))
	assert.Equal(t, int64(7), Int(float64(7)))
}

func TestFloat(t *testing.T) {
	assert.Equal(t, 12.5, Float("12.5"))
	assert.Equal(t, 12.5, Float("12.5%"))
	assert.Equal(t, 0.0, Float(nil))
	assert.Equal(t, 0.0, Float(""))
	assert.Equal(t, -3.2, Float("-3.2"))
}

func TestDecimal(t *testing.T) {
	d := Decimal("1,234,567.89")
	want, _ := decimal.NewFromString("1234567.89")
	assert.True(t, d.Equal(want))
	assert.True(t, Decimal(nil).IsZero())
}

func TestString(t *testing.T) {
	assert.Equal(t, "abc", String("  abc  "))
	assert.Equal(t, "", String(nil))
}
