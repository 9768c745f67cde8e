package index

import "math"

// Mean 평균
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance 표본분산 (n-1); exactly 0 for a constant series
func Variance(values []float64) float64 {
	if len(values) < 2 || constant(values) {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return sumSq / float64(len(values)-1)
}

// StdDev 표본표준편차
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// Slope fits y = a + b*i by least squares over positions i = 0..n-1
func Slope(values []float64) float64 {
	n := len(values)
	if n < 2 || constant(values) {
		return 0
	}

	xMean := float64(n-1) / 2
	yMean := Mean(values)

	var sxy, sxx float64
	for i, y := range values {
		dx := float64(i) - xMean
		sxy += dx * (y - yMean)
		sxx += dx * dx
	}
	return sxy / sxx
}

// constant reports whether every value equals the first.
// The computed mean can sit a few ulps off such a series.
func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
