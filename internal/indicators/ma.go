// Package indicators computes the moving-average engine (C7) that writes
// back MA{5,10,20,30,60,120,200,240} onto each ticker's price-bar
// sequence.
package indicators

import "github.com/kis-trader/swingbot/internal/domain"

// Windows are the eight moving-average spans the engine maintains.
var Windows = []int{5, 10, 20, 30, 60, 120, 200, 240}

// Compute takes a newest-first bar sequence (index 0 = most recent) and
// returns, for each index, the map of window -> mean(close[i..i+w-1])
// using only the closes that exist. A missing close is excluded from
// both the sum and the divisor (the resolved reading of the spec's open
// question on missing-value handling) rather than counted as zero; with
// fewer than w bars remaining, the partial mean over whatever exists is
// returned. The function is pure — it never touches the store, so
// repeated calls on the same input are idempotent by construction.
func Compute(bars []domain.PriceBar) []map[int]float64 {
	out := make([]map[int]float64, len(bars))
	for i := range bars {
		out[i] = make(map[int]float64, len(Windows))
		for _, w := range Windows {
			out[i][w] = meanWindow(bars, i, w)
		}
	}
	return out
}

func meanWindow(bars []domain.PriceBar, i, w int) float64 {
	end := i + w
	if end > len(bars) {
		end = len(bars)
	}
	var sum float64
	var n int
	for j := i; j < end; j++ {
		if bars[j].Close == 0 {
			continue // missing close: left out of both sum and divisor
		}
		sum += bars[j].CloseF()
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Apply computes and writes the eight MA fields directly onto bars,
// mutating the slice the caller passed in. The ingest pipeline does not
// call it: it uses Compute and writes each bar's means through the store.
func Apply(bars []domain.PriceBar) {
	means := Compute(bars)
	for i := range bars {
		bars[i].MA5 = means[i][5]
		bars[i].MA10 = means[i][10]
		bars[i].MA20 = means[i][20]
		bars[i].MA30 = means[i][30]
		bars[i].MA60 = means[i][60]
		bars[i].MA120 = means[i][120]
		bars[i].MA200 = means[i][200]
		bars[i].MA240 = means[i][240]
	}
}
