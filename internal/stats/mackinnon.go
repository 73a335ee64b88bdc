package stats

import "math"

// MacKinnon surfaces for the Engle-Granger test with two variables and a
// constant in the cointegrating regression. P-values follow MacKinnon (1994);
// critical values follow the MacKinnon (2010) response surface.

const (
	tauStar = -2.62
	tauMax  = 0.92
	tauMin  = -18.86
)

var (
	tauSmallP = [3]float64{2.92, 1.5012, 0.039796}
	tauLargeP = [4]float64{2.1945, 0.86557, -0.12840, -0.016658}

	// level -> {b0, b1, b2}; crit(T) = b0 + b1/T + b2/T².
	critSurface = map[int][3]float64{
		1:  {-3.89644, -10.9519, -22.527},
		5:  {-3.33613, -6.1101, -6.823},
		10: {-3.04445, -4.2412, -2.720},
	}
)

// PValue returns the approximate asymptotic p-value for an Engle-Granger test
// statistic. Statistics beyond the tabulated range clamp to 0 or 1.
func PValue(tau float64) float64 {
	switch {
	case tau > tauMax:
		return 1
	case tau < tauMin:
		return 0
	}
	var g float64
	if tau <= tauStar {
		g = tauSmallP[0] + tauSmallP[1]*tau + tauSmallP[2]*tau*tau
	} else {
		g = tauLargeP[0] + tauLargeP[1]*tau + tauLargeP[2]*tau*tau + tauLargeP[3]*tau*tau*tau
	}
	return normCDF(g)
}

// CritValue returns the finite-sample critical value at the given significance
// level (1, 5, or 10 percent) for a test over nobs observations.
func CritValue(level, nobs int) float64 {
	c, ok := critSurface[level]
	if !ok {
		c = critSurface[5]
	}
	t := float64(nobs)
	return c[0] + c[1]/t + c[2]/(t*t)
}

// Crit5 is the 5% critical value used for scanner acceptance.
func Crit5(nobs int) float64 { return CritValue(5, nobs) }

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
