package stats

import "math"

// RollingStats computes windowed mean and sample standard deviation over data.
// Output index i corresponds to input index window-1+i, so both slices carry
// exactly window-1 fewer points than the input.
func RollingStats(data []float64, window int) (means, stds []float64) {
	if window < 2 || len(data) < window {
		return nil, nil
	}
	n := len(data) - window + 1
	means = make([]float64, n)
	stds = make([]float64, n)
	for i := 0; i < n; i++ {
		win := data[i : i+window]
		var sum float64
		for _, v := range win {
			sum += v
		}
		mean := sum / float64(window)
		var ss float64
		for _, v := range win {
			d := v - mean
			ss += d * d
		}
		means[i] = mean
		stds[i] = math.Sqrt(ss / float64(window-1))
	}
	return means, stds
}
