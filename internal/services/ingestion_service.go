package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"admissions-platform/internal/cache"
	"admissions-platform/internal/models"
	"admissions-platform/internal/repository"
	"admissions-platform/pkg/logging"
	"admissions-platform/pkg/metrics"
)

// maxReportedErrors caps the row errors kept on a result
const maxReportedErrors = 100

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IngestionService handles admissions CSV ingestion
type IngestionService struct {
	repo    repository.AdmissionRepository
	cache   cache.Service
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalFiles   int
	TotalRecords int
	Inserted     int
	Skipped      int
	Failed       int
	Duration     time.Duration
	Errors       []string
}

// FileIngestionResult contains per-file ingestion statistics
type FileIngestionResult struct {
	Encoding     string
	TotalRecords int
	Inserted     int
	Skipped      int
	Failed       int
	Errors       []string
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.AdmissionRepository, c cache.Service, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	if c == nil {
		c = cache.Noop{}
	}
	return &IngestionService{
		repo:    repo,
		cache:   c,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// IngestDirectory ingests every *.csv file of a directory in name order
func (s *IngestionService) IngestDirectory(ctx context.Context, dataDir string, batchSize int) (*IngestionResult, error) {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no data files found in %s", dataDir)
	}
	sort.Strings(files)

	s.logger.Info(ctx, "[INGEST_FILES] Found data files", logging.Fields{
		"data_dir":   dataDir,
		"file_count": len(files),
		"stage":      "FILE_DISCOVERY",
	})

	return s.ingestFiles(ctx, files, batchSize)
}

// IngestFile ingests a single CSV file
func (s *IngestionService) IngestFile(ctx context.Context, filePath string, batchSize int) (*IngestionResult, error) {
	return s.ingestFiles(ctx, []string{filePath}, batchSize)
}

func (s *IngestionService) ingestFiles(ctx context.Context, files []string, batchSize int) (*IngestionResult, error) {
	if batchSize <= 0 {
		return nil, &models.ValidationError{
			Field:   "batch_size",
			Value:   fmt.Sprint(batchSize),
			Message: "batch size must be positive",
		}
	}

	startTime := time.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"file_count": len(files),
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	result := &IngestionResult{
		TotalFiles: len(files),
		Errors:     make([]string, 0),
	}

	for _, filePath := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fileResult, err := s.ingestPath(ctx, filePath, batchSize)
		if err != nil {
			result.addError(fmt.Sprintf("failed to ingest %s: %v", filePath, err))
			s.logger.Error(ctx, "[INGEST_FILE_ERROR] File ingestion failed", logging.Fields{
				"file_path": filePath,
				"stage":     "FILE_PROCESSING",
			}, err)
			s.metrics.RecordIngestionError("file_error")
			if fileResult != nil {
				result.merge(filePath, fileResult)
			}
			continue
		}

		result.merge(filePath, fileResult)

		s.logger.Info(ctx, "[INGEST_FILE_SUCCESS] File ingested", logging.Fields{
			"file_path":     filePath,
			"encoding":      fileResult.Encoding,
			"total_records": fileResult.TotalRecords,
			"inserted":      fileResult.Inserted,
			"skipped":       fileResult.Skipped,
			"failed":        fileResult.Failed,
			"stage":         "FILE_COMPLETE",
		})
	}

	if result.Inserted > 0 {
		s.invalidateCache(ctx)
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", logging.Fields{
		"total_files":      result.TotalFiles,
		"total_records":    result.TotalRecords,
		"inserted":         result.Inserted,
		"skipped":          result.Skipped,
		"failed":           result.Failed,
		"duration_seconds": result.Duration.Seconds(),
		"error_count":      len(result.Errors),
		"stage":            "COMPLETE",
	})

	return result, nil
}

func (s *IngestionService) ingestPath(ctx context.Context, filePath string, batchSize int) (*FileIngestionResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return s.IngestReader(ctx, file, batchSize)
}

// IngestReader reads one CSV document with a header row naming the columns
// province, exam_type, year, school, major, min_score and min_rank. UTF-8
// (with or without BOM) and GBK input are accepted. Invalid rows are counted
// and reported; rows already stored are skipped. The partial result is
// returned alongside a storage error.
func (s *IngestionService) IngestReader(ctx context.Context, r io.Reader, batchSize int) (*FileIngestionResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	content, encoding, err := decodeCSV(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty CSV input")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	result := &FileIngestionResult{Encoding: encoding}
	batch := make([]*models.Admission, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		inserted, skipped, err := s.repo.CreateAdmissionsBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		result.Inserted += inserted
		result.Skipped += skipped
		batch = batch[:0]
		return nil
	}

	line := 1
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++

		if err != nil {
			result.TotalRecords++
			result.fail(fmt.Sprintf("line %d: %v", line, err))
			s.metrics.RecordIngestionError("parse_error")
			continue
		}
		if isBlank(fields) {
			continue
		}
		result.TotalRecords++

		record := columns.record(line, fields)
		admission, err := record.ToAdmission()
		if err != nil {
			result.fail(err.Error())
			s.metrics.RecordIngestionError("validation_error")
			continue
		}

		batch = append(batch, admission)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}

	if err := flush(); err != nil {
		return result, err
	}

	s.metrics.RecordIngestedRecords("failed", result.Failed)

	return result, nil
}

func (s *IngestionService) invalidateCache(ctx context.Context) {
	for _, prefix := range []string{analysisCachePrefix, recommendCachePrefix} {
		if err := s.cache.DeleteByPrefix(ctx, prefix); err != nil {
			s.logger.Warn(ctx, "[INGEST_CACHE_ERROR] Failed to invalidate cache", logging.Fields{
				"prefix": prefix,
				"error":  err.Error(),
			})
		}
	}
}

// decodeCSV strips a UTF-8 BOM and converts GBK input to UTF-8.
func decodeCSV(raw []byte) ([]byte, string, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		return raw[len(utf8BOM):], "utf-8-sig", nil
	}
	if utf8.Valid(raw) {
		return raw, "utf-8", nil
	}

	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, "", fmt.Errorf("input is neither UTF-8 nor GBK: %w", err)
	}
	return decoded, "gbk", nil
}

// csvColumns maps record fields to header positions
type csvColumns map[string]int

var columnAliases = map[string]string{
	"exam_track": "exam_type",
}

var requiredColumns = []string{"province", "exam_type", "year", "school", "major", "min_score", "min_rank"}

func indexColumns(header []string) (csvColumns, error) {
	cols := make(csvColumns, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("CSV header is missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c csvColumns) record(line int, fields []string) *models.RawAdmissionRecord {
	get := func(name string) string {
		i := c[name]
		if i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}
	return &models.RawAdmissionRecord{
		Line:      line,
		Province:  get("province"),
		ExamTrack: get("exam_type"),
		Year:      get("year"),
		School:    get("school"),
		Major:     get("major"),
		MinScore:  get("min_score"),
		MinRank:   get("min_rank"),
	}
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func (r *FileIngestionResult) fail(msg string) {
	r.Failed++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, msg)
	}
}

func (r *IngestionResult) addError(msg string) {
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, msg)
	}
}

func (r *IngestionResult) merge(filePath string, f *FileIngestionResult) {
	r.TotalRecords += f.TotalRecords
	r.Inserted += f.Inserted
	r.Skipped += f.Skipped
	r.Failed += f.Failed
	for _, e := range f.Errors {
		r.addError(fmt.Sprintf("%s: %s", filepath.Base(filePath), e))
	}
}
