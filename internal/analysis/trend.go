package analysis

import "fmt"

// Fixed trend descriptions for series without a usable slope
const (
	DescriptionInsufficient = "insufficient data to determine trend"
	DescriptionSteady       = "rank held steady"
)

// ClassifyTrend determines whether competition for a program is rising,
// falling or stable from the slope of its rank series.
func ClassifyTrend(observations []Observation) TrendResult {
	n := len(observations)
	if n < 2 {
		return TrendResult{
			Direction:   TrendStable,
			Description: DescriptionInsufficient,
		}
	}

	slope, _, degenerate := fitLine(toFloats(Ranks(observations)))
	if degenerate {
		return TrendResult{
			Direction:   TrendStable,
			Description: DescriptionSteady,
		}
	}

	switch {
	case slope < -TrendSlopeThreshold:
		return TrendResult{
			Direction:   TrendRising,
			Description: fmt.Sprintf("competition intensifying over %d years", n),
			Slope:       slope,
		}
	case slope > TrendSlopeThreshold:
		return TrendResult{
			Direction:   TrendFalling,
			Description: fmt.Sprintf("competition easing over %d years", n),
			Slope:       slope,
		}
	default:
		return TrendResult{
			Direction:   TrendStable,
			Description: fmt.Sprintf("little year-to-year movement over %d years", n),
			Slope:       slope,
		}
	}
}
