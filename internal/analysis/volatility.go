package analysis

import "math"

// Volatility returns the unbiased sample standard deviation of ranks.
// Fewer than two ranks have no spread and yield 0.
func Volatility(ranks []int) float64 {
	n := len(ranks)
	if n < 2 {
		return 0
	}

	values := toFloats(ranks)
	avg := mean(values)

	var sumSquares float64
	for _, v := range values {
		d := v - avg
		sumSquares += d * d
	}

	return math.Sqrt(sumSquares / float64(n-1))
}

// ClassifyVolatility buckets a standard deviation. Each band includes its lower bound.
func ClassifyVolatility(value float64) VolatilityLevel {
	switch {
	case value < VolatilityMediumThreshold:
		return VolatilityLow
	case value < VolatilityHighThreshold:
		return VolatilityMedium
	default:
		return VolatilityHigh
	}
}
