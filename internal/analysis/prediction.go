package analysis

import "math"

// PredictNext extrapolates next cycle's rank with a straight line through the
// series and surrounds it with a band of ConfidenceMultiplier x volatility.
//
// This is deliberately naive: no seasonality, no outlier rejection and no
// recency weighting. A single anomalous year moves both the slope and the band.
//
// RangeMin and PredictedRank are floored at 1. RangeMax is the rounded upper
// edge, except that it is raised to PredictedRank when a steep downward
// extrapolation would leave it below the floored prediction, so the result
// always satisfies RangeMin <= PredictedRank <= RangeMax.
func PredictNext(ranks []int) PredictionResult {
	switch len(ranks) {
	case 0:
		return PredictionResult{}
	case 1:
		return PredictionResult{
			PredictedRank: ranks[0],
			RangeMin:      ranks[0],
			RangeMax:      ranks[0],
		}
	}

	values := toFloats(ranks)
	halfWidth := ConfidenceMultiplier * Volatility(ranks)

	slope, intercept, degenerate := fitLine(values)
	if degenerate {
		avg := mean(values)
		return PredictionResult{
			PredictedRank: int(math.Round(avg)),
			RangeMin:      maxInt(1, int(math.Round(avg-halfWidth))),
			RangeMax:      int(math.Round(avg + halfWidth)),
		}
	}

	predicted := slope*float64(len(ranks)) + intercept
	predictedRank := maxInt(1, int(math.Round(predicted)))

	return PredictionResult{
		PredictedRank: predictedRank,
		RangeMin:      maxInt(1, int(math.Round(predicted-halfWidth))),
		RangeMax:      maxInt(predictedRank, int(math.Round(predicted+halfWidth))),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
