package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"admissions-platform/internal/analysis"
	"admissions-platform/internal/models"
	"admissions-platform/pkg/database"
	"admissions-platform/pkg/logging"
	"admissions-platform/pkg/metrics"
)

// AdmissionRepository provides data access for admissions cutoffs
type AdmissionRepository interface {
	// Write operations
	CreateAdmissionsBatch(ctx context.Context, admissions []*models.Admission) (inserted, skipped int, err error)

	// Read operations
	GetHistory(ctx context.Context, key models.ProgramKey) ([]analysis.Observation, error)
	ListPrograms(ctx context.Context, filter ProgramFilter) ([]*models.Program, int, error)
	AverageRanks(ctx context.Context, province string, track models.ExamTrack, lookbackYears int) ([]analysis.ProgramAverage, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// ProgramFilter defines filters for listing programs
type ProgramFilter struct {
	Province  *string
	ExamTrack *models.ExamTrack
	School    *string
	Limit     int
	Offset    int
}

// admissionRepository implements AdmissionRepository
type admissionRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewAdmissionRepository creates a new admission repository
func NewAdmissionRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) AdmissionRepository {
	return &admissionRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const insertAdmissionSQL = `
	INSERT INTO admissions (
		province, exam_track, year, school, major,
		min_score, min_rank, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (province, exam_track, year, school, major) DO NOTHING
`

// CreateAdmissionsBatch inserts rows in a single transaction. Rows that
// already exist for the same program and year are left untouched and
// counted as skipped.
func (r *admissionRepository) CreateAdmissionsBatch(ctx context.Context, admissions []*models.Admission) (int, int, error) {
	if len(admissions) == 0 {
		return 0, 0, nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.IngestionBatchSize.Observe(float64(len(admissions)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"count":       len(admissions),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	// Begin transaction
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertAdmissionSQL)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted, skipped := 0, 0
	for _, a := range admissions {
		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		res, err := stmt.ExecContext(ctx,
			a.Province,
			string(a.ExamTrack),
			a.Year,
			a.School,
			a.Major,
			a.MinScore,
			a.MinRank,
			createdAt,
		)
		if err != nil {
			r.metrics.RecordDBError("insert_admission")
			return 0, 0, fmt.Errorf("failed to insert admission %s/%d: %w", a.Key(), a.Year, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n == 0 {
			skipped++
		} else {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.RecordIngestedRecords("inserted", inserted)
	r.metrics.RecordIngestedRecords("skipped", skipped)

	return inserted, skipped, nil
}

// GetHistory returns the ranked observations of one program in ascending year order
func (r *admissionRepository) GetHistory(ctx context.Context, key models.ProgramKey) ([]analysis.Observation, error) {
	query := `
		SELECT year, min_score, min_rank
		FROM admissions
		WHERE school = $1 AND major = $2 AND province = $3 AND exam_track = $4
		  AND min_rank IS NOT NULL AND min_rank > 0
		ORDER BY year ASC
	`

	var history []analysis.Observation
	err := r.db.SelectContext(ctx, "get_history", &history, query,
		key.School, key.Major, key.Province, string(key.ExamTrack))
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	return history, nil
}

// buildProgramQuery returns the filtered listing query, its count query and
// the shared arguments, with LIMIT/OFFSET appended to the listing only.
func buildProgramQuery(filter ProgramFilter) (string, string, []interface{}) {
	var where []string
	args := []interface{}{}
	argNum := 1

	if filter.Province != nil {
		where = append(where, fmt.Sprintf("province = $%d", argNum))
		args = append(args, *filter.Province)
		argNum++
	}

	if filter.ExamTrack != nil {
		where = append(where, fmt.Sprintf("exam_track = $%d", argNum))
		args = append(args, string(*filter.ExamTrack))
		argNum++
	}

	if filter.School != nil {
		where = append(where, fmt.Sprintf("school ILIKE $%d", argNum))
		args = append(args, "%"+escapeLike(*filter.School)+"%")
		argNum++
	}

	base := `
		SELECT school, major, province, exam_track,
		       COUNT(*) AS years, MIN(year) AS first_year, MAX(year) AS last_year
		FROM admissions`
	if len(where) > 0 {
		base += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	base += "\n\t\tGROUP BY school, major, province, exam_track"

	countQuery := "SELECT COUNT(*) FROM (" + base + ") AS count_query"

	query := base + " ORDER BY province, exam_track, school, major"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)

	return query, countQuery, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListPrograms lists distinct program series with filtering and pagination
func (r *admissionRepository) ListPrograms(ctx context.Context, filter ProgramFilter) ([]*models.Program, int, error) {
	query, countQuery, args := buildProgramQuery(filter)

	var totalCount int
	err := r.db.GetContext(ctx, "count_programs", &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count programs: %w", err)
	}

	var programs []*models.Program
	err = r.db.SelectContext(ctx, "list_programs", &programs, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list programs: %w", err)
	}

	return programs, totalCount, nil
}

// averageRanksSQL averages ranked rows over the latest $3 years of a province and track.
// Rows without a positive rank are left out, as in GetHistory.
const averageRanksSQL = `
	WITH recent AS (
		SELECT DISTINCT year
		FROM admissions
		WHERE province = $1 AND exam_track = $2
		ORDER BY year DESC
		LIMIT $3
	)
	SELECT school, major,
	       AVG(min_rank)::float8 AS avg_rank,
	       COALESCE(MIN(min_score), 0) AS min_score,
	       COUNT(*) AS years
	FROM admissions
	WHERE province = $1 AND exam_track = $2
	  AND min_rank IS NOT NULL AND min_rank > 0
	  AND year IN (SELECT year FROM recent)
	GROUP BY school, major
	ORDER BY avg_rank
`

// AverageRanks averages each program's cutoff rank over the latest
// lookbackYears years that have data for the province and track.
func (r *admissionRepository) AverageRanks(ctx context.Context, province string, track models.ExamTrack, lookbackYears int) ([]analysis.ProgramAverage, error) {
	if lookbackYears <= 0 {
		return nil, &models.ValidationError{
			Field:   "lookback_years",
			Value:   fmt.Sprint(lookbackYears),
			Message: "lookback must be at least one year",
		}
	}

	timer := time.Now()
	defer func() {
		r.logger.Debug(ctx, "[REPO_AVG_RANKS] Average ranks calculated", logging.Fields{
			"province":    province,
			"exam_track":  string(track),
			"lookback":    lookbackYears,
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	var averages []analysis.ProgramAverage
	err := r.db.SelectContext(ctx, "average_ranks", &averages, averageRanksSQL, province, string(track), lookbackYears)
	if err != nil {
		return nil, fmt.Errorf("failed to average ranks: %w", err)
	}

	return averages, nil
}

// HealthCheck performs a repository health check
func (r *admissionRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// IsNotFound reports whether err wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
