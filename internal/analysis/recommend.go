package analysis

import (
	"math"
	"sort"
	"strconv"

	"admissions-platform/internal/models"
)

// ProgramAverage is a program's mean cutoff rank over a recent window of years.
type ProgramAverage struct {
	School      string  `json:"school" db:"school"`
	Major       string  `json:"major" db:"major"`
	AverageRank float64 `json:"avg_rank" db:"avg_rank"`
	MinScore    int     `json:"min_score" db:"min_score"`
	Years       int     `json:"years" db:"years"`
}

// Candidate is a recommended program with its admission probability.
type Candidate struct {
	School      string `json:"school"`
	Major       string `json:"major"`
	AverageRank int    `json:"avg_rank"`
	MinScore    int    `json:"min_score"`
	Probability int    `json:"probability"`
}

// Recommendation groups programs into reach, match and safety choices.
type Recommendation struct {
	Rush   []Candidate `json:"rush"`
	Match  []Candidate `json:"match"`
	Safety []Candidate `json:"safety"`
}

// Bucket bounds as multiples of the student's rank.
const (
	rushLower   = 0.85
	rushUpper   = 0.95
	matchLower  = 0.95
	matchUpper  = 1.05
	safetyLower = 1.1
	safetyUpper = 1.3
)

// Recommend buckets programs by how their rounded average rank compares to
// studentRank:
//
//	rush:   0.85s <= avg <  0.95s
//	match:  0.95s <= avg <= 1.05s
//	safety: 1.1s  <= avg <= 1.3s
//
// Programs outside every window are dropped. Each bucket is sorted by
// ascending average rank (most competitive first).
func Recommend(studentRank int, programs []ProgramAverage) (*Recommendation, error) {
	if studentRank <= 0 {
		return nil, &models.ValidationError{
			Field:   "rank",
			Value:   strconv.Itoa(studentRank),
			Message: "rank must be a positive integer",
		}
	}

	s := float64(studentRank)
	rec := &Recommendation{
		Rush:   []Candidate{},
		Match:  []Candidate{},
		Safety: []Candidate{},
	}

	for _, p := range programs {
		avg := math.Round(p.AverageRank)
		c := Candidate{
			School:      p.School,
			Major:       p.Major,
			AverageRank: int(avg),
			MinScore:    p.MinScore,
			Probability: AdmissionProbability(studentRank, avg),
		}

		switch {
		case avg >= s*rushLower && avg < s*rushUpper:
			rec.Rush = append(rec.Rush, c)
		case avg >= s*matchLower && avg <= s*matchUpper:
			rec.Match = append(rec.Match, c)
		case avg >= s*safetyLower && avg <= s*safetyUpper:
			rec.Safety = append(rec.Safety, c)
		}
	}

	for _, bucket := range [][]Candidate{rec.Rush, rec.Match, rec.Safety} {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].AverageRank < bucket[j].AverageRank
		})
	}

	return rec, nil
}
