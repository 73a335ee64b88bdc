package stats

import (
	"errors"
	"math"
)

// ErrNoReversion reports a spread whose AR(1) slope is non-negative, meaning
// the series shows no pull back toward its mean.
var ErrNoReversion = errors.New("stats: spread does not mean-revert")

// HalfLife estimates the number of periods a mean-reverting spread needs to
// close half the distance back to its mean, from the OLS of Δspread_t on
// spread_{t-1} with an intercept.
func HalfLife(spread []float64) (int, error) {
	if len(spread) < 3 {
		return 0, ErrShortSeries
	}
	lagged := spread[:len(spread)-1]
	delta := make([]float64, len(spread)-1)
	for i := 1; i < len(spread); i++ {
		delta[i-1] = spread[i] - spread[i-1]
	}
	slope, _, err := OLS(lagged, delta)
	if err != nil {
		return 0, err
	}
	if slope >= 0 {
		return 0, ErrNoReversion
	}
	return int(math.Round(-math.Ln2 / slope)), nil
}
