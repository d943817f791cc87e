package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatParseRoundtrip(t *testing.T) {
	tm := time.Date(2026, 7, 30, 12, 0, 0, 0, Location)
	s := FormatDate(tm)
	require.Equal(t, "20260730", s)

	parsed := ParseDate(s)
	assert.Equal(t, tm.Year(), parsed.Year())
	assert.Equal(t, tm.Month(), parsed.Month())
	assert.Equal(t, tm.Day(), parsed.Day())
}

func TestParseDateMalformed(t *testing.T) {
	assert.True(t, ParseDate("not-a-date").IsZero())
}

func TestIsWeekday(t *testing.T) {
	// 2026-08-01 is a Saturday
	assert.False(t, IsWeekday("20260801"))
	// 2026-07-31 is a Friday
	assert.True(t, IsWeekday("20260731"))
}

func TestDaysAgo(t *testing.T) {
	today := ParseDate(DaysAgo(0))
	yesterday := ParseDate(DaysAgo(1))
	assert.Equal(t, 1, int(today.Sub(yesterday).Hours()/24))
}
