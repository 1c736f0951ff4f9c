package handlers

import (
	"fmt"

	"admissions-platform/internal/analysis"
	"admissions-platform/internal/services"
)

var (
	trendLabelsZH = map[analysis.Trend]string{
		analysis.TrendRising:  "上升",
		analysis.TrendFalling: "下降",
		analysis.TrendStable:  "稳定",
	}
	volatilityLabelsZH = map[analysis.VolatilityLevel]string{
		analysis.VolatilityLow:    "低",
		analysis.VolatilityMedium: "中",
		analysis.VolatilityHigh:   "高",
	}
	riskLabelsZH = map[analysis.RiskTier]string{
		analysis.RiskLow:    "低风险",
		analysis.RiskMedium: "中风险",
		analysis.RiskHigh:   "高风险",
	}
)

func trendDescriptionZH(trend analysis.Trend, description string, years int) string {
	switch {
	case description == analysis.DescriptionInsufficient:
		return "数据不足，无法判断趋势"
	case description == analysis.DescriptionSteady:
		return "位次保持稳定"
	case trend == analysis.TrendRising:
		return fmt.Sprintf("近%d年位次持续上升，竞争加剧", years)
	case trend == analysis.TrendFalling:
		return fmt.Sprintf("近%d年位次持续下降，竞争降低", years)
	default:
		return fmt.Sprintf("近%d年位次相对稳定，波动不大", years)
	}
}

// localizeAnalysis rewrites the categorical fields of res with Chinese labels
func localizeAnalysis(res *services.AnalysisResult) {
	res.TrendDescription = trendDescriptionZH(res.Trend, res.TrendDescription, res.Years)
	if label, ok := trendLabelsZH[res.Trend]; ok {
		res.Trend = analysis.Trend(label)
	}
	if label, ok := volatilityLabelsZH[res.VolatilityLevel]; ok {
		res.VolatilityLevel = analysis.VolatilityLevel(label)
	}
	if res.RiskAssessment != nil {
		if label, ok := riskLabelsZH[*res.RiskAssessment]; ok {
			tier := analysis.RiskTier(label)
			res.RiskAssessment = &tier
		}
	}
}

// recommendationZH keys the buckets the way the Chinese front end expects
func recommendationZH(res *services.RecommendationResult) map[string]interface{} {
	return map[string]interface{}{
		"rank":           res.Rank,
		"province":       res.Province,
		"exam_track":     res.ExamTrack.Label(),
		"lookback_years": res.LookbackYears,
		"冲":              res.Rush,
		"稳":              res.Match,
		"保":              res.Safety,
	}
}
