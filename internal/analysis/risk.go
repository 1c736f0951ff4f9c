package analysis

// AssessRisk places a candidate rank against the window
// predictedRank ± ConfidenceMultiplier x volatility. The window is not floored
// at 1 and both edges count as inside it.
func AssessRisk(candidateRank, predictedRank int, volatility float64) RiskTier {
	halfWidth := ConfidenceMultiplier * volatility
	low := float64(predictedRank) - halfWidth
	high := float64(predictedRank) + halfWidth

	candidate := float64(candidateRank)
	switch {
	case candidate < low:
		return RiskLow
	case candidate <= high:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// AdmissionProbability is a coarse percentage estimate from the ratio of the
// candidate rank to a program's average historical rank. It is a fixed lookup
// table, not a calibrated model.
func AdmissionProbability(candidateRank int, averageRank float64) int {
	if averageRank == 0 {
		return 0
	}

	ratio := float64(candidateRank) / averageRank
	switch {
	case ratio < 0.85:
		return 95
	case ratio < 0.95:
		return 70
	case ratio < 1.05:
		return 50
	case ratio < 1.15:
		return 30
	case ratio < 1.3:
		return 15
	default:
		return 5
	}
}
