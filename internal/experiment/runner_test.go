package experiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xcs/internal/lcs"
	"xcs/internal/metrics"
	"xcs/internal/model"
	"xcs/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newStore(t *testing.T) storage.Store {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))
	return store
}

func shortConfig(problems int) Config {
	cfg := DefaultConfig()
	cfg.Problems = problems
	cfg.RecordEvery = 100
	cfg.LogEvery = 0
	return cfg
}

func TestRunPersistsSummaryCurveAndSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	clock := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	runner, err := New(shortConfig(1000), lcs.DefaultParams(),
		WithStore(store), WithLogger(quietLogger()), WithClock(clock))
	require.NoError(t, err)

	result, err := runner.Run(ctx)
	require.NoError(t, err)

	assert.Len(t, result.Performance, 10)
	assert.Equal(t, 1000, result.Performance[9].Step)
	assert.LessOrEqual(t, result.Population.NumerositySum(), 400)
	require.NoError(t, result.Population.Validate())

	run, ok, err := store.GetRun(ctx, result.Summary.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "mux6", run.Problem)
	assert.Equal(t, "2026-03-01T12:00:00Z", run.CreatedAtUTC)
	assert.Equal(t, result.Snapshot.ID, run.PopulationID)

	snap, ok, err := store.GetPopulation(ctx, run.PopulationID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, run.ID, snap.RunID)
	assert.Equal(t, 1000, snap.Time)
	assert.Equal(t, result.Population.NumerositySum(), snap.NumerositySum)

	points, ok, err := store.GetPerformance(ctx, run.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.Performance, points)
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	run := func() Result {
		runner, err := New(shortConfig(600), lcs.DefaultParams(), WithLogger(quietLogger()))
		require.NoError(t, err)
		result, err := runner.Run(context.Background())
		require.NoError(t, err)
		return result
	}
	first, second := run(), run()
	assert.Equal(t, first.Performance, second.Performance)
	assert.Equal(t, first.Snapshot.Rules, second.Snapshot.Rules)
}

func TestRunContinuesFromSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	first, err := New(shortConfig(500), lcs.DefaultParams(), WithStore(store), WithLogger(quietLogger()))
	require.NoError(t, err)
	before, err := first.Run(ctx)
	require.NoError(t, err)

	cfg := shortConfig(300)
	cfg.ContinueFrom = before.Snapshot.ID
	cfg.Seed = 2
	second, err := New(cfg, lcs.DefaultParams(), WithStore(store), WithLogger(quietLogger()))
	require.NoError(t, err)
	after, err := second.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 800, after.Snapshot.Time)
	assert.NotEqual(t, before.Summary.ID, after.Summary.ID)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestContinueFromRequiresStoredSnapshot(t *testing.T) {
	cfg := shortConfig(10)
	cfg.ContinueFrom = "missing"

	_, err := New(cfg, lcs.DefaultParams())
	require.Error(t, err)

	runner, err := New(cfg, lcs.DefaultParams(), WithStore(newStore(t)), WithLogger(quietLogger()))
	require.NoError(t, err)
	_, err = runner.Run(context.Background())
	assert.True(t, errors.Is(err, ErrSnapshotNotFound), "got %v", err)
}

func TestContinueRejectsMismatchedProblem(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	first, err := New(shortConfig(50), lcs.DefaultParams(), WithStore(store), WithLogger(quietLogger()))
	require.NoError(t, err)
	before, err := first.Run(ctx)
	require.NoError(t, err)

	cfg := shortConfig(10)
	cfg.Problem = "rmux6"
	cfg.ContinueFrom = before.Snapshot.ID
	runner, err := New(cfg, lcs.DefaultParams(), WithStore(store), WithLogger(quietLogger()))
	require.NoError(t, err)
	_, err = runner.Run(ctx)
	assert.Error(t, err)
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner, err := New(shortConfig(100), lcs.DefaultParams(), WithLogger(quietLogger()))
	require.NoError(t, err)
	_, err = runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunLogsProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	cfg := shortConfig(300)
	cfg.LogEvery = 100

	runner, err := New(cfg, lcs.DefaultParams(), WithLogger(logger))
	require.NoError(t, err)
	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	progress := 0
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "progress" {
			progress++
			assert.Equal(t, "mux6", entry["problem"])
			assert.Contains(t, entry, "numerosity_sum")
		}
	}
	assert.Equal(t, 3, progress)
}

func TestRunRecordsMetrics(t *testing.T) {
	collectors := metrics.New()
	runner, err := New(shortConfig(200), lcs.DefaultParams(), WithLogger(quietLogger()), WithMetrics(collectors))
	require.NoError(t, err)
	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	problems, err := testutil.GatherAndCount(collectors.Registry(), "xcs_problems_total")
	require.NoError(t, err)
	assert.Equal(t, 2, problems)
	events, err := testutil.GatherAndCount(collectors.Registry(), "xcs_population_events_total")
	require.NoError(t, err)
	assert.Greater(t, events, 0)
}

func TestRunWithRouletteExplorationAndExploitUpdates(t *testing.T) {
	cfg := shortConfig(300)
	cfg.ExploreSelection = ExploreRoulette
	cfg.UpdateOnExploit = true
	runner, err := New(cfg, lcs.DefaultParams(), WithLogger(quietLogger()))
	require.NoError(t, err)
	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, result.Population.Validate())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"problem":   func(c *Config) { c.Problem = "" },
		"problems":  func(c *Config) { c.Problems = 0 },
		"window":    func(c *Config) { c.Window = 0 },
		"record":    func(c *Config) { c.RecordEvery = 0 },
		"log":       func(c *Config) { c.LogEvery = -1 },
		"selection": func(c *Config) { c.ExploreSelection = "greedy" },
		"unknown":   func(c *Config) { c.Problem = "maze4" },
	} {
		cfg := DefaultConfig()
		mutate(&cfg)
		_, err := New(cfg, lcs.DefaultParams())
		assert.Error(t, err, name)
	}

	params := lcs.DefaultParams()
	params.Beta = 0
	_, err := New(DefaultConfig(), params)
	assert.Error(t, err)
}

func TestMovingAverage(t *testing.T) {
	m := newMovingAverage(3)
	assert.Equal(t, 0.0, m.Value())
	m.Add(1)
	m.Add(0)
	assert.InDelta(t, 0.5, m.Value(), 1e-12)
	m.Add(1)
	m.Add(1)
	assert.InDelta(t, 2.0/3, m.Value(), 1e-12)
}

func TestAverageCurves(t *testing.T) {
	a := []model.PerformancePoint{{Step: 50, Performance: 0.5, PredictionError: 100, PopulationSize: 10, NumerositySum: 40}}
	b := []model.PerformancePoint{{Step: 50, Performance: 1, PredictionError: 50, PopulationSize: 13, NumerositySum: 41}}
	got, err := AverageCurves([][]model.PerformancePoint{a, b})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 50, got[0].Step)
	assert.InDelta(t, 0.75, got[0].Performance, 1e-12)
	assert.InDelta(t, 75, got[0].PredictionError, 1e-12)
	assert.Equal(t, 12, got[0].PopulationSize)
	assert.Equal(t, 41, got[0].NumerositySum)

	_, err = AverageCurves(nil)
	assert.Error(t, err)
	_, err = AverageCurves([][]model.PerformancePoint{a, {{Step: 60}}})
	assert.Error(t, err)
	_, err = AverageCurves([][]model.PerformancePoint{a, append(a, a...)})
	assert.Error(t, err)
}

func TestLearnsSixMultiplexer(t *testing.T) {
	if testing.Short() {
		t.Skip("long learning run")
	}
	cfg := shortConfig(8000)
	cfg.Window = 500
	runner, err := New(cfg, lcs.DefaultParams(), WithLogger(quietLogger()))
	require.NoError(t, err)
	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Greater(t, result.Summary.FinalPerformance, 0.85)
}
