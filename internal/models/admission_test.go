package models

import (
	"errors"
	"testing"
)

// TestRawAdmissionRecord_ToAdmission tests the CSV row conversion rules
func TestRawAdmissionRecord_ToAdmission(t *testing.T) {
	valid := RawAdmissionRecord{
		Line:      2,
		Province:  "广东",
		ExamTrack: "物理类",
		Year:      "2024",
		School:    "中山大学",
		Major:     "计算机科学与技术",
		MinScore:  "620",
		MinRank:   "4500",
	}

	tests := []struct {
		name        string
		mutate      func(r *RawAdmissionRecord)
		wantErr     bool
		wantField   string
		checkValues func(*testing.T, *Admission)
	}{
		{
			name:    "valid record",
			mutate:  func(r *RawAdmissionRecord) {},
			wantErr: false,
			checkValues: func(t *testing.T, a *Admission) {
				if a.Province != "广东" {
					t.Errorf("Province = %v, want %v", a.Province, "广东")
				}
				if a.ExamTrack != TrackPhysics {
					t.Errorf("ExamTrack = %v, want %v", a.ExamTrack, TrackPhysics)
				}
				if a.Year != 2024 {
					t.Errorf("Year = %v, want %v", a.Year, 2024)
				}
				if a.MinScore == nil || *a.MinScore != 620 {
					t.Errorf("MinScore = %v, want 620", a.MinScore)
				}
				if a.MinRank == nil || *a.MinRank != 4500 {
					t.Errorf("MinRank = %v, want 4500", a.MinRank)
				}
			},
		},
		{
			name: "float formatted rank and score",
			mutate: func(r *RawAdmissionRecord) {
				r.MinRank = "3500.0"
				r.MinScore = "600.5"
			},
			wantErr: false,
			checkValues: func(t *testing.T, a *Admission) {
				if *a.MinRank != 3500 {
					t.Errorf("MinRank = %v, want 3500", *a.MinRank)
				}
				if *a.MinScore != 600 {
					t.Errorf("MinScore = %v, want 600", *a.MinScore)
				}
			},
		},
		{
			name: "english track name and padded fields",
			mutate: func(r *RawAdmissionRecord) {
				r.ExamTrack = " History "
				r.School = "  Sun Yat-sen University "
			},
			wantErr: false,
			checkValues: func(t *testing.T, a *Admission) {
				if a.ExamTrack != TrackHistory {
					t.Errorf("ExamTrack = %v, want %v", a.ExamTrack, TrackHistory)
				}
				if a.School != "Sun Yat-sen University" {
					t.Errorf("School = %q, want trimmed", a.School)
				}
			},
		},
		{
			name:      "missing major",
			mutate:    func(r *RawAdmissionRecord) { r.Major = " " },
			wantErr:   true,
			wantField: "major",
		},
		{
			name:      "unknown exam track",
			mutate:    func(r *RawAdmissionRecord) { r.ExamTrack = "艺术类" },
			wantErr:   true,
			wantField: "exam_type",
		},
		{
			name:      "year not a number",
			mutate:    func(r *RawAdmissionRecord) { r.Year = "twenty" },
			wantErr:   true,
			wantField: "year",
		},
		{
			name:      "year below range",
			mutate:    func(r *RawAdmissionRecord) { r.Year = "1999" },
			wantErr:   true,
			wantField: "year",
		},
		{
			name:      "year above range",
			mutate:    func(r *RawAdmissionRecord) { r.Year = "2031" },
			wantErr:   true,
			wantField: "year",
		},
		{
			name:      "score above maximum",
			mutate:    func(r *RawAdmissionRecord) { r.MinScore = "751" },
			wantErr:   true,
			wantField: "min_score",
		},
		{
			name:      "negative rank",
			mutate:    func(r *RawAdmissionRecord) { r.MinRank = "-1" },
			wantErr:   true,
			wantField: "min_rank",
		},
		{
			name:      "NaN score",
			mutate:    func(r *RawAdmissionRecord) { r.MinScore = "NaN" },
			wantErr:   true,
			wantField: "min_score",
		},
		{
			name:      "infinite score",
			mutate:    func(r *RawAdmissionRecord) { r.MinScore = "Inf" },
			wantErr:   true,
			wantField: "min_score",
		},
		{
			name:      "NaN rank",
			mutate:    func(r *RawAdmissionRecord) { r.MinRank = "NaN" },
			wantErr:   true,
			wantField: "min_rank",
		},
		{
			name:      "infinite rank",
			mutate:    func(r *RawAdmissionRecord) { r.MinRank = "Inf" },
			wantErr:   true,
			wantField: "min_rank",
		},
		{
			name:      "negative infinite rank",
			mutate:    func(r *RawAdmissionRecord) { r.MinRank = "-Inf" },
			wantErr:   true,
			wantField: "min_rank",
		},
		{
			name:      "rank beyond integer column",
			mutate:    func(r *RawAdmissionRecord) { r.MinRank = "1e12" },
			wantErr:   true,
			wantField: "min_rank",
		},
		{
			name:    "largest storable rank",
			mutate:  func(r *RawAdmissionRecord) { r.MinRank = "2147483647" },
			wantErr: false,
			checkValues: func(t *testing.T, a *Admission) {
				if *a.MinRank != MaxRank {
					t.Errorf("MinRank = %v, want %v", *a.MinRank, MaxRank)
				}
			},
		},
		{
			name:    "zero rank is accepted at import",
			mutate:  func(r *RawAdmissionRecord) { r.MinRank = "0" },
			wantErr: false,
			checkValues: func(t *testing.T, a *Admission) {
				if *a.MinRank != 0 {
					t.Errorf("MinRank = %v, want 0", *a.MinRank)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := valid
			tt.mutate(&record)

			admission, err := record.ToAdmission()

			if (err != nil) != tt.wantErr {
				t.Errorf("ToAdmission() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("error type = %T, want *ValidationError", err)
				}
				if vErr.Field != tt.wantField {
					t.Errorf("Field = %v, want %v", vErr.Field, tt.wantField)
				}
				return
			}

			if tt.checkValues != nil {
				tt.checkValues(t, admission)
			}
		})
	}
}

func TestParseExamTrack(t *testing.T) {
	tests := []struct {
		in      string
		want    ExamTrack
		wantErr bool
	}{
		{"physics", TrackPhysics, false},
		{"物理类", TrackPhysics, false},
		{"理科", TrackPhysics, false},
		{"HISTORY", TrackHistory, false},
		{"历史类", TrackHistory, false},
		{"文科", TrackHistory, false},
		{"", "", true},
		{"arts", "", true},
	}

	for _, tt := range tests {
		got, err := ParseExamTrack(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseExamTrack(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseExamTrack(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestValidationError tests error handling
func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:   "year",
		Value:   "abc",
		Message: "invalid year format",
	}

	if err.Error() != "invalid year format" {
		t.Errorf("Error() = %v, want %v", err.Error(), "invalid year format")
	}

	if err.IsTransient() {
		t.Error("ValidationError should not be transient")
	}

	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationError should match ErrValidation")
	}
}

func TestValidate_ProgramKey(t *testing.T) {
	tests := []struct {
		name      string
		key       ProgramKey
		wantField string
	}{
		{"valid", ProgramKey{School: "中山大学", Major: "法学", Province: "广东", ExamTrack: TrackHistory}, ""},
		{"missing school", ProgramKey{Major: "法学", Province: "广东", ExamTrack: TrackHistory}, "school"},
		{"missing province", ProgramKey{School: "中山大学", Major: "法学", ExamTrack: TrackHistory}, "province"},
		{"unknown track", ProgramKey{School: "中山大学", Major: "法学", Province: "广东", ExamTrack: "art"}, "exam_track"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.key)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.wantField)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("validation failures should match ErrValidation")
			}
		})
	}
}
