// Package analysis holds the admissions-rank analytics: trend classification,
// next-cycle rank prediction, volatility and candidate risk. Every function is
// a pure computation over the observations it is handed; none of them retain
// state, so they are safe to call concurrently.
//
// Rank is an inverse signal: a lower numeric rank is a more competitive
// position, so a falling rank series means competition is intensifying.
package analysis

// Observation is one historical cutoff of a (school, major, province, track)
// series. MinScore is informational; only MinRank drives the analytics.
type Observation struct {
	Year     int  `json:"year" db:"year"`
	MinScore *int `json:"min_score" db:"min_score"`
	MinRank  int  `json:"min_rank" db:"min_rank"`
}

// Policy constants. They are fixed behaviour, not per-query tuning knobs.
const (
	// TrendSlopeThreshold is the per-step rank change separating a trend from noise.
	TrendSlopeThreshold = 100.0
	// ConfidenceMultiplier scales volatility into the half-width of a prediction band.
	ConfidenceMultiplier = 1.5
	// VolatilityMediumThreshold is the lower bound of the MEDIUM volatility band.
	VolatilityMediumThreshold = 300.0
	// VolatilityHighThreshold is the lower bound of the HIGH volatility band.
	VolatilityHighThreshold = 800.0
)

// Trend is the direction of competition for a program.
type Trend string

const (
	// TrendRising means ranks are falling: competition is intensifying.
	TrendRising Trend = "rising"
	// TrendFalling means ranks are climbing: competition is easing.
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// TrendResult carries the direction and a human-readable explanation.
type TrendResult struct {
	Direction   Trend   `json:"trend"`
	Description string  `json:"trend_description"`
	Slope       float64 `json:"-"`
}

// PredictionResult is the forecast for the next cycle. RangeMin <= PredictedRank <= RangeMax.
// The zero value is the "no data" sentinel.
type PredictionResult struct {
	PredictedRank int `json:"predicted_rank"`
	RangeMin      int `json:"min"`
	RangeMax      int `json:"max"`
}

// VolatilityLevel buckets the sample standard deviation of a rank series.
type VolatilityLevel string

const (
	VolatilityLow    VolatilityLevel = "low"
	VolatilityMedium VolatilityLevel = "medium"
	VolatilityHigh   VolatilityLevel = "high"
)

// RiskTier describes where a candidate rank sits relative to the predicted band.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Ranks extracts the rank subsequence of observations, preserving order.
func Ranks(observations []Observation) []int {
	ranks := make([]int, len(observations))
	for i, o := range observations {
		ranks[i] = o.MinRank
	}
	return ranks
}
