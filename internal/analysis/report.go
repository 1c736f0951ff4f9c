package analysis

import (
	"fmt"
	"strconv"

	"admissions-platform/internal/models"
)

// Range is the public predicted band.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Report bundles every figure derived from one program's history.
type Report struct {
	Trend            Trend           `json:"trend"`
	TrendDescription string          `json:"trend_description"`
	PredictedRank    int             `json:"predicted_rank"`
	PredictedRange   Range           `json:"predicted_range"`
	VolatilityLevel  VolatilityLevel `json:"volatility_level"`
	VolatilityValue  int             `json:"volatility_value"`
	VolatilityStdDev float64         `json:"volatility_stddev"`
	RiskAssessment   *RiskTier       `json:"risk_assessment"`
	Years            int             `json:"years"`
}

// Analyze runs the four analytics over an ascending observation series. The
// components compose by data: trend and volatility read the rank series,
// the prediction reuses the same volatility, and risk combines the candidate
// rank with the prediction. A nil candidateRank leaves RiskAssessment nil.
//
// Empty and single-point series are valid inputs with defined outputs.
// Contract violations (non-positive ranks, unordered years, a non-positive
// candidate rank) return a *models.ValidationError.
func Analyze(observations []Observation, candidateRank *int) (*Report, error) {
	if err := ValidateObservations(observations); err != nil {
		return nil, err
	}

	ranks := Ranks(observations)
	trend := ClassifyTrend(observations)
	volatility := Volatility(ranks)
	prediction := PredictNext(ranks)

	report := &Report{
		Trend:            trend.Direction,
		TrendDescription: trend.Description,
		PredictedRank:    prediction.PredictedRank,
		PredictedRange:   Range{Min: prediction.RangeMin, Max: prediction.RangeMax},
		VolatilityLevel:  ClassifyVolatility(volatility),
		VolatilityValue:  int(volatility),
		VolatilityStdDev: volatility,
		Years:            len(observations),
	}

	if candidateRank != nil {
		if err := report.AssessCandidate(*candidateRank); err != nil {
			return nil, err
		}
	}

	return report, nil
}

// AssessCandidate sets RiskAssessment for candidateRank against the report's
// prediction. It lets a cached report be reused across candidates.
func (r *Report) AssessCandidate(candidateRank int) error {
	if candidateRank <= 0 {
		return &models.ValidationError{
			Field:   "student_rank",
			Value:   strconv.Itoa(candidateRank),
			Message: "candidate rank must be a positive integer",
		}
	}

	tier := AssessRisk(candidateRank, r.PredictedRank, r.VolatilityStdDev)
	r.RiskAssessment = &tier
	return nil
}

// ValidateObservations checks the caller contract: every rank is positive and
// years are strictly ascending (unique per year).
func ValidateObservations(observations []Observation) error {
	for i, o := range observations {
		if o.MinRank <= 0 {
			return &models.ValidationError{
				Field:   "min_rank",
				Value:   strconv.Itoa(o.MinRank),
				Message: fmt.Sprintf("observation %d (year %d): rank must be a positive integer", i, o.Year),
			}
		}
		if i > 0 && o.Year <= observations[i-1].Year {
			return &models.ValidationError{
				Field:   "year",
				Value:   strconv.Itoa(o.Year),
				Message: fmt.Sprintf("observation %d: years must be strictly ascending, got %d after %d", i, o.Year, observations[i-1].Year),
			}
		}
	}
	return nil
}
