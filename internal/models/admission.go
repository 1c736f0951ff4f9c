package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ExamTrack partitions admissions data into the science-oriented (physics)
// and humanities-oriented (history) pools of the entrance exam.
type ExamTrack string

const (
	TrackPhysics ExamTrack = "physics"
	TrackHistory ExamTrack = "history"
)

// ParseExamTrack accepts the canonical names as well as the labels found in
// provincial CSV exports.
func ParseExamTrack(s string) (ExamTrack, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "physics", "science", "物理类", "物理", "理科":
		return TrackPhysics, nil
	case "history", "humanities", "历史类", "历史", "文科":
		return TrackHistory, nil
	}
	return "", &ValidationError{
		Field:   "exam_track",
		Value:   s,
		Message: "exam track must be physics or history",
	}
}

// Label returns the Chinese display label for the track
func (t ExamTrack) Label() string {
	switch t {
	case TrackPhysics:
		return "物理类"
	case TrackHistory:
		return "历史类"
	default:
		return string(t)
	}
}

// ProgramKey identifies one admissions time series
type ProgramKey struct {
	School    string    `json:"school" db:"school" validate:"required,max=200"`
	Major     string    `json:"major" db:"major" validate:"required,max=200"`
	Province  string    `json:"province" db:"province" validate:"required,max=50"`
	ExamTrack ExamTrack `json:"exam_track" db:"exam_track" validate:"required,oneof=physics history"`
}

// String renders the key for logs and cache keys
func (k ProgramKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.Province, k.ExamTrack, k.School, k.Major)
}

// Admission is one stored row: the cutoff of a program in one year
type Admission struct {
	ID        int64     `json:"id" db:"id"`
	Province  string    `json:"province" db:"province"`
	ExamTrack ExamTrack `json:"exam_track" db:"exam_track"`
	Year      int       `json:"year" db:"year"`
	School    string    `json:"school" db:"school"`
	Major     string    `json:"major" db:"major"`
	MinScore  *int      `json:"min_score,omitempty" db:"min_score"`
	MinRank   *int      `json:"min_rank,omitempty" db:"min_rank"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Key returns the program key of the row
func (a *Admission) Key() ProgramKey {
	return ProgramKey{
		School:    a.School,
		Major:     a.Major,
		Province:  a.Province,
		ExamTrack: a.ExamTrack,
	}
}

// Program is a distinct admissions series with its year coverage
type Program struct {
	ProgramKey
	Years     int `json:"years" db:"years"`
	FirstYear int `json:"first_year" db:"first_year"`
	LastYear  int `json:"last_year" db:"last_year"`
}

// Ingestion bounds for raw CSV values
const (
	MinAdmissionYear = 2000
	MaxAdmissionYear = 2030
	MaxExamScore     = 750
	MaxRank          = math.MaxInt32
)

// RawAdmissionRecord is one CSV row keyed by header name, whitespace trimmed
type RawAdmissionRecord struct {
	Line      int
	Province  string
	ExamTrack string
	Year      string
	School    string
	Major     string
	MinScore  string
	MinRank   string
}

// ToAdmission validates the raw row and converts it to an Admission.
// Ranks and scores exported as "3500.0" are accepted and truncated.
func (r *RawAdmissionRecord) ToAdmission() (*Admission, error) {
	required := []struct {
		field string
		value string
	}{
		{"province", r.Province},
		{"exam_type", r.ExamTrack},
		{"year", r.Year},
		{"school", r.School},
		{"major", r.Major},
		{"min_score", r.MinScore},
		{"min_rank", r.MinRank},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return nil, r.invalid(f.field, f.value, "missing required field")
		}
	}

	track, err := ParseExamTrack(r.ExamTrack)
	if err != nil {
		return nil, r.invalid("exam_type", r.ExamTrack, "exam track must be physics or history")
	}

	year, err := strconv.Atoi(strings.TrimSpace(r.Year))
	if err != nil {
		return nil, r.invalid("year", r.Year, "invalid year format")
	}
	if year < MinAdmissionYear || year > MaxAdmissionYear {
		return nil, r.invalid("year", r.Year, fmt.Sprintf("year out of range [%d, %d]", MinAdmissionYear, MaxAdmissionYear))
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(r.MinScore), 64)
	if err != nil {
		return nil, r.invalid("min_score", r.MinScore, "invalid score format")
	}
	if math.IsNaN(score) || score < 0 || score > MaxExamScore {
		return nil, r.invalid("min_score", r.MinScore, fmt.Sprintf("score out of range [0, %d]", MaxExamScore))
	}

	rankValue, err := strconv.ParseFloat(strings.TrimSpace(r.MinRank), 64)
	if err != nil {
		return nil, r.invalid("min_rank", r.MinRank, "invalid rank format")
	}
	if math.IsNaN(rankValue) || math.IsInf(rankValue, 0) {
		return nil, r.invalid("min_rank", r.MinRank, "invalid rank format")
	}
	if rankValue < 0 {
		return nil, r.invalid("min_rank", r.MinRank, "rank must not be negative")
	}
	if rankValue > MaxRank {
		return nil, r.invalid("min_rank", r.MinRank, fmt.Sprintf("rank above maximum %d", MaxRank))
	}

	minScore := int(score)
	minRank := int(rankValue)

	return &Admission{
		Province:  strings.TrimSpace(r.Province),
		ExamTrack: track,
		Year:      year,
		School:    strings.TrimSpace(r.School),
		Major:     strings.TrimSpace(r.Major),
		MinScore:  &minScore,
		MinRank:   &minRank,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (r *RawAdmissionRecord) invalid(field, value, message string) *ValidationError {
	if r.Line > 0 {
		message = fmt.Sprintf("line %d: %s", r.Line, message)
	}
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ErrValidation is matched by every *ValidationError through errors.Is
var ErrValidation = errors.New("validation failed")

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap lets callers test errors.Is(err, ErrValidation)
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
