// Package pivot computes the classical daily pivot levels (C9) from the
// prior day's OHLC and today's open/high/low.
package pivot

import "github.com/kis-trader/swingbot/internal/domain"

// Levels are the seven classical pivot values, all integer-truncated.
type Levels struct {
	P                  int64
	R1, R2, R3         int64
	S1, S2, S3         int64
}

// Compute derives pivot levels from the prior session's (highP, lowP,
// closeP) and the current session's open/high/low. When
// todayOpen is 0, R2/R3/S2/S3 are zero (today's range is not yet known).
// All arithmetic truncates toward zero per §4.7.
func Compute(highP, lowP, closeP, todayOpen, todayHigh, todayLow int64) Levels {
	p := (highP + lowP + closeP) / 3
	r1 := 2*p - lowP
	s1 := 2*p - highP

	lv := Levels{P: p, R1: r1, S1: s1}
	if todayOpen > 0 {
		rng := todayHigh - todayLow
		lv.R2 = p + rng
		lv.R3 = r1 + rng
		lv.S2 = p - rng
		lv.S3 = s1 - rng
	}
	return lv
}

// ApplyTo merges computed levels into a TradeInfo, preserving the
// existing Candidate and Note fields untouched as the engine's upsert
// contract requires.
func ApplyTo(ti *domain.TradeInfo, lv Levels) {
	ti.Pivot = lv.P
	ti.R1, ti.R2, ti.R3 = lv.R1, lv.R2, lv.R3
	ti.S1, ti.S2, ti.S3 = lv.S1, lv.S2, lv.S3
}
