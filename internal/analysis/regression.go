package analysis

// fitLine fits an ordinary least-squares line of values against their 0-based
// position. Positions are used instead of calendar years so that gaps in the
// year sequence do not distort the slope. degenerate is true when x has no
// variance (fewer than two points), in which case slope is 0 and intercept is
// the mean.
func fitLine(values []float64) (slope, intercept float64, degenerate bool) {
	n := len(values)
	if n == 0 {
		return 0, 0, true
	}

	xMean := float64(n-1) / 2
	yMean := mean(values)

	var numerator, denominator float64
	for i, y := range values {
		dx := float64(i) - xMean
		numerator += dx * (y - yMean)
		denominator += dx * dx
	}

	if denominator == 0 {
		return 0, yMean, true
	}

	slope = numerator / denominator
	intercept = yMean - slope*xMean
	return slope, intercept, false
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func toFloats(ranks []int) []float64 {
	out := make([]float64, len(ranks))
	for i, r := range ranks {
		out[i] = float64(r)
	}
	return out
}
