//go:build ignore

package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"admissions-platform/internal/analysis"
	"admissions-platform/internal/cache"
	"admissions-platform/internal/models"
	"admissions-platform/internal/repository"
	"admissions-platform/internal/services"
	"admissions-platform/pkg/logging"
	"admissions-platform/pkg/metrics"
)

// memoryRepository keeps imported rows in process so the demo runs without PostgreSQL
type memoryRepository struct {
	mu   sync.Mutex
	rows map[string]*models.Admission
}

func (m *memoryRepository) CreateAdmissionsBatch(_ context.Context, admissions []*models.Admission) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted, skipped := 0, 0
	for _, a := range admissions {
		id := fmt.Sprintf("%s|%d", a.Key(), a.Year)
		if _, ok := m.rows[id]; ok {
			skipped++
			continue
		}
		m.rows[id] = a
		inserted++
	}
	return inserted, skipped, nil
}

func (m *memoryRepository) GetHistory(_ context.Context, key models.ProgramKey) ([]analysis.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var history []analysis.Observation
	for _, a := range m.rows {
		if a.Key() != key || a.MinRank == nil || *a.MinRank <= 0 {
			continue
		}
		history = append(history, analysis.Observation{Year: a.Year, MinScore: a.MinScore, MinRank: *a.MinRank})
	}
	sort.Slice(history, func(i, j int) bool { return history[i].Year < history[j].Year })
	return history, nil
}

func (m *memoryRepository) ListPrograms(_ context.Context, _ repository.ProgramFilter) ([]*models.Program, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKey := make(map[models.ProgramKey]*models.Program)
	for _, a := range m.rows {
		p, ok := byKey[a.Key()]
		if !ok {
			p = &models.Program{ProgramKey: a.Key(), FirstYear: a.Year, LastYear: a.Year}
			byKey[a.Key()] = p
		}
		p.Years++
		if a.Year < p.FirstYear {
			p.FirstYear = a.Year
		}
		if a.Year > p.LastYear {
			p.LastYear = a.Year
		}
	}

	programs := make([]*models.Program, 0, len(byKey))
	for _, p := range byKey {
		programs = append(programs, p)
	}
	sort.Slice(programs, func(i, j int) bool { return programs[i].String() < programs[j].String() })
	return programs, len(programs), nil
}

func (m *memoryRepository) AverageRanks(_ context.Context, province string, track models.ExamTrack, lookbackYears int) ([]analysis.ProgramAverage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	yearSet := make(map[int]bool)
	for _, a := range m.rows {
		if a.Province == province && a.ExamTrack == track {
			yearSet[a.Year] = true
		}
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	if len(years) > lookbackYears {
		years = years[:lookbackYears]
	}
	recent := make(map[int]bool, len(years))
	for _, y := range years {
		recent[y] = true
	}

	type acc struct {
		sum, n, minScore int
	}
	sums := make(map[[2]string]*acc)
	for _, a := range m.rows {
		if a.Province != province || a.ExamTrack != track || !recent[a.Year] || a.MinRank == nil || *a.MinRank <= 0 {
			continue
		}
		k := [2]string{a.School, a.Major}
		s, ok := sums[k]
		if !ok {
			s = &acc{minScore: math.MaxInt}
			sums[k] = s
		}
		s.sum += *a.MinRank
		s.n++
		if a.MinScore != nil && *a.MinScore < s.minScore {
			s.minScore = *a.MinScore
		}
	}

	averages := make([]analysis.ProgramAverage, 0, len(sums))
	for k, s := range sums {
		if s.minScore == math.MaxInt {
			s.minScore = 0
		}
		averages = append(averages, analysis.ProgramAverage{
			School:      k[0],
			Major:       k[1],
			AverageRank: float64(s.sum) / float64(s.n),
			MinScore:    s.minScore,
			Years:       s.n,
		})
	}
	return averages, nil
}

func (m *memoryRepository) HealthCheck(context.Context) error { return nil }

// DemoDataProcessing imports the sample CSVs and prints analyses without a database
func main() {
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println("ADMISSIONS PLATFORM - ANALYSIS DEMONSTRATION")
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println()

	logger := logging.NewConsoleLogger("demo", "1.0.0", logging.InfoLevel)
	collector := metrics.NewCollectorWithRegistry("demo", prometheus.NewRegistry())
	ctx := context.Background()

	dataDir := "./data"
	if len(os.Args) > 1 {
		dataDir = os.Args[1]
	}

	repo := &memoryRepository{rows: make(map[string]*models.Admission)}
	memCache := cache.NewMemoryCache()
	defer memCache.Close()

	ingestion := services.NewIngestionService(repo, memCache, logger, collector)
	result, err := ingestion.IngestDirectory(ctx, dataDir, 500)
	if err != nil {
		fmt.Printf("Error importing %s: %v\n", dataDir, err)
		os.Exit(1)
	}

	fmt.Printf("Files:    %d\n", result.TotalFiles)
	fmt.Printf("Rows:     %d\n", result.TotalRecords)
	fmt.Printf("Inserted: %d\n", result.Inserted)
	fmt.Printf("Failed:   %d\n", result.Failed)
	for _, msg := range result.Errors {
		fmt.Printf("  - %s\n", msg)
	}
	fmt.Println()

	analysisService := services.NewAnalysisService(repo, memCache, 0, logger, collector)
	programs, _, _ := repo.ListPrograms(ctx, repository.ProgramFilter{})

	for _, p := range programs {
		fmt.Printf("─────────────────────────────────────────────────────────────\n")
		fmt.Printf("%s / %s (%s, %s)\n", p.School, p.Major, p.Province, p.ExamTrack.Label())
		fmt.Printf("─────────────────────────────────────────────────────────────\n")

		res, err := analysisService.Analyze(ctx, p.ProgramKey, nil)
		if err != nil {
			fmt.Printf("  skipped: %v\n\n", err)
			continue
		}

		ranks := make([]string, len(res.HistoricalData))
		for i, obs := range res.HistoricalData {
			ranks[i] = fmt.Sprintf("%d:%d", obs.Year, obs.MinRank)
		}
		fmt.Printf("  History:    %s\n", strings.Join(ranks, "  "))
		fmt.Printf("  Trend:      %s (%s)\n", res.Trend, res.TrendDescription)
		fmt.Printf("  Predicted:  %d [%d, %d]\n", res.PredictedRank, res.PredictedRange.Min, res.PredictedRange.Max)
		fmt.Printf("  Volatility: %s (%d)\n\n", res.VolatilityLevel, res.VolatilityValue)
	}

	if len(programs) == 0 {
		return
	}

	first := programs[0]
	probe := 10000
	if res, err := analysisService.Analyze(ctx, first.ProgramKey, nil); err == nil {
		probe = res.PredictedRank
	}

	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Printf("RECOMMENDATIONS FOR RANK %d (%s, %s)\n", probe, first.Province, first.ExamTrack.Label())
	fmt.Println("════════════════════════════════════════════════════════════════")

	recommender := services.NewRecommendationService(repo, memCache, 0, 3, logger, collector)
	rec, err := recommender.Recommend(ctx, services.RecommendRequest{
		Rank:      probe,
		Province:  first.Province,
		ExamTrack: first.ExamTrack,
	})
	if err != nil {
		fmt.Printf("Recommendation failed: %v\n", err)
		os.Exit(1)
	}

	for _, bucket := range []struct {
		name       string
		candidates []analysis.Candidate
	}{
		{"冲 (rush)", rec.Rush},
		{"稳 (match)", rec.Match},
		{"保 (safety)", rec.Safety},
	} {
		fmt.Printf("%s:\n", bucket.name)
		for _, c := range bucket.candidates {
			fmt.Printf("  %-12s %-16s avg rank %6d  probability %d%%\n", c.School, c.Major, c.AverageRank, c.Probability)
		}
	}
}
