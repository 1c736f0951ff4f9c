package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"admissions-platform/internal/analysis"
	"admissions-platform/internal/models"
	"admissions-platform/internal/repository"
	"admissions-platform/pkg/logging"
	"admissions-platform/pkg/metrics"
)

// fakeRepository is an in-memory AdmissionRepository
type fakeRepository struct {
	mu sync.Mutex

	rows     map[string]*models.Admission
	history  map[string][]analysis.Observation
	averages []analysis.ProgramAverage

	batches      [][]*models.Admission
	historyCalls int
	averageCalls int
	lastLookback int
	failInsert   error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		rows:    make(map[string]*models.Admission),
		history: make(map[string][]analysis.Observation),
	}
}

func (f *fakeRepository) CreateAdmissionsBatch(_ context.Context, admissions []*models.Admission) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failInsert != nil {
		return 0, 0, f.failInsert
	}

	batch := make([]*models.Admission, len(admissions))
	copy(batch, admissions)
	f.batches = append(f.batches, batch)

	inserted, skipped := 0, 0
	for _, a := range admissions {
		id := fmt.Sprintf("%s|%d", a.Key(), a.Year)
		if _, ok := f.rows[id]; ok {
			skipped++
			continue
		}
		f.rows[id] = a
		inserted++
	}
	return inserted, skipped, nil
}

func (f *fakeRepository) GetHistory(_ context.Context, key models.ProgramKey) ([]analysis.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	return f.history[key.String()], nil
}

func (f *fakeRepository) ListPrograms(_ context.Context, _ repository.ProgramFilter) ([]*models.Program, int, error) {
	return nil, 0, nil
}

func (f *fakeRepository) AverageRanks(_ context.Context, _ string, _ models.ExamTrack, lookbackYears int) ([]analysis.ProgramAverage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.averageCalls++
	f.lastLookback = lookbackYears
	return f.averages, nil
}

func (f *fakeRepository) HealthCheck(context.Context) error {
	return nil
}

func testDeps(t *testing.T) (*logging.StructuredLogger, *metrics.Collector) {
	t.Helper()
	return logging.Discard(), metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
}

func intPtr(v int) *int { return &v }

func observations(startYear int, ranks ...int) []analysis.Observation {
	obs := make([]analysis.Observation, len(ranks))
	for i, r := range ranks {
		obs[i] = analysis.Observation{Year: startYear + i, MinRank: r}
	}
	return obs
}
