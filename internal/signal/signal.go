// Package signal derives the spread and rolling z-score consumed by the entry
// engine, and carries the pair type the scanner produces.
package signal

import "statarb-go/internal/stats"

// minStd guards the z-score division; a window this flat carries no signal.
const minStd = 1e-9

// Pair is a validated cointegrated pair. Pairs are immutable once created and
// are superseded wholesale by the next scan cycle.
type Pair struct {
	Base       string  `json:"base_market"`
	Quote      string  `json:"quote_market"`
	HedgeRatio float64 `json:"hedge_ratio"`
	HalfLife   int     `json:"half_life"`
}

// Spread returns base − hedgeRatio×quote. Inputs must be equal length.
func Spread(base, quote []float64, hedgeRatio float64) []float64 {
	if len(base) != len(quote) {
		return nil
	}
	out := make([]float64, len(base))
	for i := range base {
		out[i] = base[i] - hedgeRatio*quote[i]
	}
	return out
}

// ZScores returns the rolling z-score of the spread. The first window-1
// entries are undefined and dropped, never zero-filled; windows with
// near-zero deviation are skipped rather than dividing toward infinity.
func ZScores(spread []float64, window int) []float64 {
	means, stds := stats.RollingStats(spread, window)
	if means == nil {
		return nil
	}
	out := make([]float64, 0, len(means))
	for i := range means {
		if stds[i] < minStd {
			continue
		}
		out = append(out, (spread[i+window-1]-means[i])/stds[i])
	}
	return out
}

// Latest returns the most recent well-defined z-score for a validated pair,
// or false when the series carry too little usable history.
func Latest(base, quote []float64, hedgeRatio float64, window int) (float64, bool) {
	if len(base) == 0 || len(base) != len(quote) {
		return 0, false
	}
	zs := ZScores(Spread(base, quote, hedgeRatio), window)
	if len(zs) == 0 {
		return 0, false
	}
	return zs[len(zs)-1], true
}
