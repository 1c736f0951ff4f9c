package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"admissions-platform/internal/cache"
	"admissions-platform/internal/models"
)

const sampleCSV = `province,exam_type,year,school,major,min_score,min_rank
广东,物理类,2022,中山大学,计算机科学与技术,625,4000
广东,物理类,2023,中山大学,计算机科学与技术,622,4500.0
广东,物理类,2024,中山大学,计算机科学与技术,618,5200
广东,历史类,2024,中山大学,法学,601,1200
广东,物理类,1999,中山大学,计算机科学与技术,600,6000
广东,物理类,2024,暨南大学,金融学,800,9000
广东,物理类,2024,暨南大学,,610,9000
,,,,,,
`

func TestIngestionService_IngestReader(t *testing.T) {
	repo := newFakeRepository()
	logger, m := testDeps(t)
	svc := NewIngestionService(repo, nil, logger, m)

	result, err := svc.IngestReader(context.Background(), strings.NewReader(sampleCSV), 2)
	require.NoError(t, err)

	assert.Equal(t, "utf-8", result.Encoding)
	assert.Equal(t, 7, result.TotalRecords, "blank rows are not counted")
	assert.Equal(t, 4, result.Inserted)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 3, result.Failed)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "line 6")
	assert.Contains(t, result.Errors[1], "score out of range")
	assert.Contains(t, result.Errors[2], "missing required field")

	require.Len(t, repo.batches, 2)
	assert.Len(t, repo.batches[0], 2)
	assert.Len(t, repo.batches[1], 2)

	second := repo.batches[0][1]
	assert.Equal(t, models.TrackPhysics, second.ExamTrack)
	require.NotNil(t, second.MinRank)
	assert.Equal(t, 4500, *second.MinRank)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.IngestionRecordsTotal.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.IngestionErrorsTotal.WithLabelValues("validation_error")))
}

func TestIngestionService_DuplicatesAreSkipped(t *testing.T) {
	repo := newFakeRepository()
	logger, m := testDeps(t)
	svc := NewIngestionService(repo, nil, logger, m)
	ctx := context.Background()

	csv := "province,exam_type,year,school,major,min_score,min_rank\n" +
		"广东,物理类,2024,中山大学,法学,600,1000\n" +
		"广东,物理类,2024,中山大学,法学,600,1000\n"

	result, err := svc.IngestReader(ctx, strings.NewReader(csv), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Skipped)

	again, err := svc.IngestReader(ctx, strings.NewReader(csv), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Inserted)
	assert.Equal(t, 2, again.Skipped)
}

func TestIngestionService_Encodings(t *testing.T) {
	body := "province,exam_type,year,school,major,min_score,min_rank\n广东,历史类,2024,中山大学,汉语言文学,598,2100\n"

	gbk, err := simplifiedchinese.GBK.NewEncoder().String(body)
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		encoding string
	}{
		{"utf-8", body, "utf-8"},
		{"utf-8 with BOM", "\ufeff" + body, "utf-8-sig"},
		{"gbk", gbk, "gbk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepository()
			logger, m := testDeps(t)
			svc := NewIngestionService(repo, nil, logger, m)

			result, err := svc.IngestReader(context.Background(), strings.NewReader(tt.input), 10)
			require.NoError(t, err)
			assert.Equal(t, tt.encoding, result.Encoding)
			require.Equal(t, 1, result.Inserted, "errors: %v", result.Errors)

			row := repo.batches[0][0]
			assert.Equal(t, "广东", row.Province)
			assert.Equal(t, "汉语言文学", row.Major)
			assert.Equal(t, models.TrackHistory, row.ExamTrack)
		})
	}
}

func TestIngestionService_BadHeader(t *testing.T) {
	logger, m := testDeps(t)
	svc := NewIngestionService(newFakeRepository(), nil, logger, m)

	_, err := svc.IngestReader(context.Background(), strings.NewReader("province,year,school\n广东,2024,A\n"), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exam_type")
	assert.Contains(t, err.Error(), "min_rank")

	_, err = svc.IngestReader(context.Background(), strings.NewReader(""), 10)
	require.Error(t, err)
}

func TestIngestionService_ExamTrackColumnAlias(t *testing.T) {
	repo := newFakeRepository()
	logger, m := testDeps(t)
	svc := NewIngestionService(repo, nil, logger, m)

	csv := "Province, Exam_Track ,year,school,major,min_score,min_rank\n河南,physics,2024,郑州大学,临床医学,610,8000\n"
	result, err := svc.IngestReader(context.Background(), strings.NewReader(csv), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
}

func TestIngestionService_StorageError(t *testing.T) {
	repo := newFakeRepository()
	repo.failInsert = errors.New("connection reset")
	logger, m := testDeps(t)
	svc := NewIngestionService(repo, nil, logger, m)

	result, err := svc.IngestReader(context.Background(), strings.NewReader(sampleCSV), 2)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Inserted)
}

func TestIngestionService_IngestDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024.csv"), []byte(sampleCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.csv"), []byte(""), 0o600))

	repo := newFakeRepository()
	logger, m := testDeps(t)

	mc := cache.NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()
	require.NoError(t, mc.Set(ctx, analysisCachePrefix+"stale", 1, time.Hour))
	require.NoError(t, mc.Set(ctx, recommendCachePrefix+"stale", 1, time.Hour))
	require.NoError(t, mc.Set(ctx, "unrelated", 1, time.Hour))

	svc := NewIngestionService(repo, mc, logger, m)

	result, err := svc.IngestDirectory(ctx, dir, 500)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalFiles)
	assert.Equal(t, 7, result.TotalRecords)
	assert.Equal(t, 4, result.Inserted)
	assert.Equal(t, 3, result.Failed)
	assert.Len(t, result.Errors, 4, "three row errors and the empty file")
	assert.Equal(t, 1, mc.Len(), "analysis and recommendation entries are invalidated")

	_, err = svc.IngestDirectory(ctx, t.TempDir(), 500)
	assert.Error(t, err)

	_, err = svc.IngestFile(ctx, filepath.Join(dir, "2024.csv"), 0)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestIngestionService_NonFiniteValuesFailOnlyTheirRow(t *testing.T) {
	repo := newFakeRepository()
	logger, m := testDeps(t)
	svc := NewIngestionService(repo, nil, logger, m)

	csv := "province,exam_type,year,school,major,min_score,min_rank\n" +
		"广东,物理类,2024,中山大学,法学,600,1000\n" +
		"广东,物理类,2024,中山大学,临床医学,610,NaN\n" +
		"广东,物理类,2024,中山大学,金融学,605,1e12\n" +
		"广东,物理类,2024,中山大学,哲学,NaN,3000\n" +
		"广东,物理类,2024,中山大学,数学,615,Inf\n" +
		"广东,物理类,2024,中山大学,化学,590,6000\n"

	result, err := svc.IngestReader(context.Background(), strings.NewReader(csv), 100)
	require.NoError(t, err)

	assert.Equal(t, 6, result.TotalRecords)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 4, result.Failed)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "line 3")
	assert.Contains(t, result.Errors[1], "line 4")
	assert.Contains(t, result.Errors[2], "line 5")
	assert.Contains(t, result.Errors[3], "line 6")

	require.Len(t, repo.batches, 1)
	require.Len(t, repo.batches[0], 2)
	for _, a := range repo.batches[0] {
		require.NotNil(t, a.MinRank)
		assert.True(t, *a.MinRank > 0 && *a.MinRank <= models.MaxRank, "rank %d", *a.MinRank)
		require.NotNil(t, a.MinScore)
		assert.True(t, *a.MinScore >= 0 && *a.MinScore <= models.MaxExamScore, "score %d", *a.MinScore)
	}
	assert.Equal(t, "法学", repo.batches[0][0].Major)
	assert.Equal(t, "化学", repo.batches[0][1].Major)
}
