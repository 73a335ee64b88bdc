// Package stats implements the regression and time-series tools behind the
// cointegration scanner: least squares, rolling moments, the residual-based
// augmented Dickey-Fuller test, and MacKinnon's surfaces for the
// Engle-Granger two-step test.
package stats

import "errors"

var (
	// ErrShortSeries reports inputs with too few observations to fit.
	ErrShortSeries = errors.New("stats: series too short")
	// ErrSingular reports a regression without a unique solution.
	ErrSingular = errors.New("stats: singular regression")
)

// OLS fits y = intercept + slope*x by least squares.
func OLS(x, y []float64) (slope, intercept float64, err error) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, 0, ErrShortSeries
	}
	n := float64(len(x))
	var sx, sy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/n, sy/n
	var sxx, sxy float64
	for i := range x {
		dx := x[i] - mx
		sxx += dx * dx
		sxy += dx * (y[i] - my)
	}
	if sxx == 0 {
		return 0, 0, ErrSingular
	}
	slope = sxy / sxx
	return slope, my - slope*mx, nil
}

// OLSNoIntercept fits y = slope*x through the origin.
func OLSNoIntercept(x, y []float64) (float64, error) {
	if len(x) != len(y) || len(x) == 0 {
		return 0, ErrShortSeries
	}
	var sxy, sxx float64
	for i := range x {
		sxy += x[i] * y[i]
		sxx += x[i] * x[i]
	}
	if sxx == 0 {
		return 0, ErrSingular
	}
	return sxy / sxx, nil
}
