package formulas

import (
	"github.com/markcheno/go-talib"
)

// CalculateOBV computes On-Balance Volume accumulated over the full
// series and returns the value compareBack bars before the most recent
// one alongside the latest value, the pair the KPI sub-score compares to
// decide ascending/descending (§4.6). closes/volumes must be in
// ascending (oldest-first) order. Returns (0, 0, false) if the series is
// shorter than compareBack+1.
func CalculateOBV(closes, volumes []float64, compareBack int) (latest, prior float64, ok bool) {
	if len(closes) < compareBack+1 || len(closes) != len(volumes) {
		return 0, 0, false
	}
	obv := talib.Obv(closes, volumes)
	last := len(obv) - 1
	return obv[last], obv[last-compareBack], true
}
