package stats

import "math"

// minEngleGrangerObs is the fewest observations the two-step test will accept;
// below this the Dickey-Fuller regression has no usable degrees of freedom.
const minEngleGrangerObs = 8

// ADF runs the augmented Dickey-Fuller regression on a zero-mean residual
// series with no deterministic terms:
//
//	Δe_t = ρ·e_{t-1} + Σ φ_i·Δe_{t-i} + ε_t
//
// The lag order is chosen by AIC up to maxLag (Schwert's cap when maxLag is
// negative). The returned statistic is the t-ratio on ρ; lag candidates whose
// regression is singular or fits the differences almost exactly are skipped.
func ADF(series []float64, maxLag int) (float64, error) {
	T := len(series)
	if T < minEngleGrangerObs {
		return 0, ErrShortSeries
	}
	diffs := make([]float64, T-1)
	for i := 1; i < T; i++ {
		diffs[i-1] = series[i] - series[i-1]
	}
	if maxLag < 0 {
		maxLag = int(12 * math.Pow(float64(T)/100, 0.25))
	}
	// Keep at least three residual degrees of freedom in the regression.
	for maxLag > 0 && (len(diffs)-maxLag)-(1+maxLag) < 3 {
		maxLag--
	}

	var ssy float64
	for _, d := range diffs {
		ssy += d * d
	}
	if ssy == 0 {
		return 0, ErrSingular
	}

	bestSet := false
	var bestAIC, bestTau float64
	for lag := 0; lag <= maxLag; lag++ {
		n := len(diffs) - lag
		y := diffs[lag:]
		cols := 1 + lag
		design := make([][]float64, n)
		for r := 0; r < n; r++ {
			row := make([]float64, cols)
			row[0] = series[lag+r]
			for i := 1; i <= lag; i++ {
				row[i] = diffs[lag+r-i]
			}
			design[r] = row
		}
		beta, se, rss, err := fitOLS(design, y)
		if err != nil || se[0] <= 0 || rss <= 1e-12*ssy {
			continue
		}
		aic := float64(n)*math.Log(rss/float64(n)) + 2*float64(cols)
		if !bestSet || aic < bestAIC {
			bestSet = true
			bestAIC = aic
			bestTau = beta[0] / se[0]
		}
	}
	if !bestSet {
		return 0, ErrSingular
	}
	return bestTau, nil
}

// EngleGranger tests two equal-length price series for cointegration: an OLS
// of s1 on s2 with an intercept, then an ADF test on the residuals. It returns
// the test statistic, MacKinnon's approximate p-value, and the 5% critical
// value for this sample size.
func EngleGranger(s1, s2 []float64) (tau, pValue, crit5 float64, err error) {
	if len(s1) != len(s2) {
		return 0, 0, 0, ErrShortSeries
	}
	if len(s1) < minEngleGrangerObs {
		return 0, 0, 0, ErrShortSeries
	}
	slope, intercept, err := OLS(s2, s1)
	if err != nil {
		return 0, 0, 0, err
	}
	resid := make([]float64, len(s1))
	for i := range s1 {
		resid[i] = s1[i] - intercept - slope*s2[i]
	}
	tau, err = ADF(resid, -1)
	if err != nil {
		return 0, 0, 0, err
	}
	return tau, PValue(tau), Crit5(len(s1)), nil
}

// fitOLS solves a small dense least-squares problem via the normal equations,
// returning coefficients, their standard errors, and the residual sum of
// squares. Matrix sizes here never exceed a handful of lag terms, so Gaussian
// elimination is plenty.
func fitOLS(design [][]float64, y []float64) (beta, se []float64, rss float64, err error) {
	n := len(design)
	if n == 0 || n != len(y) {
		return nil, nil, 0, ErrShortSeries
	}
	k := len(design[0])
	if n <= k {
		return nil, nil, 0, ErrShortSeries
	}

	xtx := make([][]float64, k)
	xty := make([]float64, k)
	for i := 0; i < k; i++ {
		xtx[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			var s float64
			for r := 0; r < n; r++ {
				s += design[r][i] * design[r][j]
			}
			xtx[i][j] = s
		}
		var s float64
		for r := 0; r < n; r++ {
			s += design[r][i] * y[r]
		}
		xty[i] = s
	}

	beta, inv, err := solveWithInverse(xtx, xty)
	if err != nil {
		return nil, nil, 0, err
	}

	for r := 0; r < n; r++ {
		fit := 0.0
		for j := 0; j < k; j++ {
			fit += design[r][j] * beta[j]
		}
		d := y[r] - fit
		rss += d * d
	}
	s2 := rss / float64(n-k)
	se = make([]float64, k)
	for i := 0; i < k; i++ {
		se[i] = math.Sqrt(math.Max(0, s2*inv[i][i]))
	}
	return beta, se, rss, nil
}

// solveWithInverse solves a·x = b by Gauss-Jordan elimination with partial
// pivoting and also returns a's inverse (needed for coefficient variances).
func solveWithInverse(a [][]float64, b []float64) (x []float64, inv [][]float64, err error) {
	k := len(a)
	var scale float64
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			if v := math.Abs(a[i][j]); v > scale {
				scale = v
			}
		}
	}
	if scale == 0 {
		return nil, nil, ErrSingular
	}

	// Augmented matrix [a | I | b].
	width := 2*k + 1
	aug := make([][]float64, k)
	for i := 0; i < k; i++ {
		aug[i] = make([]float64, width)
		copy(aug[i], a[i])
		aug[i][k+i] = 1
		aug[i][2*k] = b[i]
	}

	for col := 0; col < k; col++ {
		piv := col
		for r := col + 1; r < k; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[piv][col]) {
				piv = r
			}
		}
		if math.Abs(aug[piv][col]) < 1e-12*scale {
			return nil, nil, ErrSingular
		}
		aug[col], aug[piv] = aug[piv], aug[col]
		pv := aug[col][col]
		for c := 0; c < width; c++ {
			aug[col][c] /= pv
		}
		for r := 0; r < k; r++ {
			if r == col || aug[r][col] == 0 {
				continue
			}
			f := aug[r][col]
			for c := 0; c < width; c++ {
				aug[r][c] -= f * aug[col][c]
			}
		}
	}

	x = make([]float64, k)
	inv = make([][]float64, k)
	for i := 0; i < k; i++ {
		x[i] = aug[i][2*k]
		inv[i] = aug[i][k : 2*k]
	}
	return x, inv, nil
}
