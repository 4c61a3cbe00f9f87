package xcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"xcs/internal/api"
	"xcs/internal/config"
	"xcs/internal/experiment"
	"xcs/internal/lcs"
	"xcs/internal/metrics"
	"xcs/internal/model"
	"xcs/internal/stats"
	"xcs/internal/storage"
)

const (
	defaultExportsDir = "exports"
	defaultDBPath     = "xcs.db"
	defaultRunsLimit  = 20
)

var ErrNoRuns = errors.New("no runs available")

type Options struct {
	StoreKind  string
	DBPath     string
	ExportsDir string
	Logger     *slog.Logger
	Metrics    *metrics.Collectors
}

type Client struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *metrics.Collectors

	exportsDir string
}

// RunRequest starts one experiment. Params and Experiment seed the run
// (defaults when nil); every non-zero field below overrides them. UsePreset
// and then Theoretical are applied last. Repeats > 1 runs the experiment
// again with seeds Seed+1, Seed+2, ...
type RunRequest struct {
	Problem          string
	Problems         int
	Seed             int64
	Repeats          int
	Workers          int
	MaxPopSize       int
	ThetaSub         int
	Selection        string
	ExploreSelection string
	UpdateOnExploit  bool
	UsePreset        bool
	Theoretical      bool
	ContinueFrom     string
	RecordEvery      int
	LogEvery         int

	Params     *lcs.Params
	Experiment *experiment.Config
}

// RunSummary describes the last run of a request. With repeats, the
// performance figures and population sizes are averaged over every run.
type RunSummary struct {
	RunIDs           []string
	RunID            string
	PopulationID     string
	Problem          string
	FinalPerformance float64
	FinalError       float64
	PopulationSize   int
	NumerositySum    int
	Performance      []model.PerformancePoint
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Problem          string
	ConditionKind    string
	Seed             int64
	Problems         int
	MaxPopSize       int
	FinalPerformance float64
	FinalError       float64
	PopulationSize   int
	NumerositySum    int
}

type PopulationRequest struct {
	RunID     string
	Latest    bool
	Sort      string
	Limit     int
	Condensed bool
}

type ExportRequest struct {
	RunID     string
	Latest    bool
	OutDir    string
	Condensed bool
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(context.Background()); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, fmt.Errorf("init %s store: %w", storeKind, err)
	}

	return &Client{
		store:      store,
		logger:     logger,
		metrics:    opts.Metrics,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	params, cfg, err := resolveRun(req)
	if err != nil {
		return RunSummary{}, err
	}
	repeats := max(req.Repeats, 1)

	var (
		summary RunSummary
		curves  = make([][]model.PerformancePoint, 0, repeats)
	)
	for i := 0; i < repeats; i++ {
		runCfg := cfg
		runCfg.Seed = cfg.Seed + int64(i)
		runner, err := experiment.New(runCfg, params,
			experiment.WithStore(c.store),
			experiment.WithLogger(c.logger),
			experiment.WithMetrics(c.metrics),
		)
		if err != nil {
			return RunSummary{}, err
		}
		result, err := runner.Run(ctx)
		if err != nil {
			return RunSummary{}, fmt.Errorf("run %d of %d: %w", i+1, repeats, err)
		}
		summary.RunIDs = append(summary.RunIDs, result.Summary.ID)
		summary.RunID = result.Summary.ID
		summary.PopulationID = result.Summary.PopulationID
		summary.Problem = result.Summary.Problem
		summary.FinalPerformance = result.Summary.FinalPerformance
		summary.FinalError = result.Summary.FinalError
		summary.PopulationSize = result.Summary.PopulationSize
		summary.NumerositySum = result.Summary.NumerositySum
		summary.Performance = result.Performance
		curves = append(curves, result.Performance)
	}
	if repeats == 1 {
		return summary, nil
	}

	averaged, err := experiment.AverageCurves(curves)
	if err != nil {
		return RunSummary{}, err
	}
	last := averaged[len(averaged)-1]
	summary.Performance = averaged
	summary.FinalPerformance = last.Performance
	summary.FinalError = last.PredictionError
	summary.PopulationSize = last.PopulationSize
	summary.NumerositySum = last.NumerositySum
	c.logger.Info("repeated runs finished",
		slog.String("problem", summary.Problem),
		slog.Int("repeats", repeats),
		slog.Float64("performance", summary.FinalPerformance),
		slog.Float64("error", summary.FinalError),
	)
	return summary, nil
}

func resolveRun(req RunRequest) (lcs.Params, experiment.Config, error) {
	params := lcs.DefaultParams()
	if req.Params != nil {
		params = *req.Params
	}
	cfg := experiment.DefaultConfig()
	if req.Experiment != nil {
		cfg = *req.Experiment
	}

	if req.Problem != "" {
		cfg.Problem = req.Problem
	}
	if req.Problems > 0 {
		cfg.Problems = req.Problems
	}
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	if req.ExploreSelection != "" {
		cfg.ExploreSelection = experiment.ExploreSelection(req.ExploreSelection)
	}
	if req.UpdateOnExploit {
		cfg.UpdateOnExploit = true
	}
	if req.ContinueFrom != "" {
		cfg.ContinueFrom = req.ContinueFrom
	}
	if req.RecordEvery > 0 {
		cfg.RecordEvery = req.RecordEvery
	}
	if req.LogEvery > 0 {
		cfg.LogEvery = req.LogEvery
	}
	if req.Workers > 0 {
		params.Workers = req.Workers
	}
	if req.MaxPopSize > 0 {
		params.MaxPopSize = req.MaxPopSize
	}
	if req.ThetaSub > 0 {
		params.ThetaSub = req.ThetaSub
	}
	if req.Selection != "" {
		params.Selection = lcs.SelectionMode(req.Selection)
	}
	if req.Repeats < 0 {
		return params, cfg, fmt.Errorf("repeats must be >= 0")
	}
	if req.UsePreset {
		preset, err := config.Preset(cfg.Problem)
		if err != nil {
			return params, cfg, err
		}
		preset.Apply(&params)
	}
	if req.Theoretical {
		setting, err := config.Theoretical(params.ThetaSub)
		if err != nil {
			return params, cfg, err
		}
		setting.Apply(&params)
	}
	return params, cfg, nil
}

// Runs lists stored runs newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = defaultRunsLimit
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]RunItem, 0, min(len(runs), req.Limit))
	for i := len(runs) - 1; i >= 0 && len(out) < req.Limit; i-- {
		r := runs[i]
		out = append(out, RunItem{
			RunID:            r.ID,
			CreatedAtUTC:     r.CreatedAtUTC,
			Problem:          r.Problem,
			ConditionKind:    r.ConditionKind,
			Seed:             r.Seed,
			Problems:         r.Problems,
			MaxPopSize:       r.MaxPopSize,
			FinalPerformance: r.FinalPerformance,
			FinalError:       r.FinalError,
			PopulationSize:   r.PopulationSize,
			NumerositySum:    r.NumerositySum,
		})
	}
	return out, nil
}

// Population returns the final population snapshot of a run.
func (c *Client) Population(ctx context.Context, req PopulationRequest) (model.PopulationSnapshot, error) {
	run, err := c.resolveRun(ctx, req.RunID, req.Latest)
	if err != nil {
		return model.PopulationSnapshot{}, err
	}
	snap, err := c.snapshotOf(ctx, run)
	if err != nil {
		return model.PopulationSnapshot{}, err
	}
	if req.Condensed {
		snap = snap.Condensed()
	}
	if err := stats.SortRules(snap.Rules, req.Sort); err != nil {
		return model.PopulationSnapshot{}, err
	}
	if req.Limit > 0 && len(snap.Rules) > req.Limit {
		snap.Rules = snap.Rules[:req.Limit]
	}
	return snap, nil
}

// Export writes summary.json, population.csv and performance.csv for a run.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	run, err := c.resolveRun(ctx, req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	snap, err := c.snapshotOf(ctx, run)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.Condensed {
		snap = snap.Condensed()
	}
	points, _, err := c.store.GetPerformance(ctx, run.ID)
	if err != nil {
		return ExportSummary{}, err
	}

	dir, err := stats.WriteRunArtifacts(req.OutDir, stats.RunArtifacts{
		Summary:     run,
		Population:  snap,
		Performance: points,
	})
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: run.ID, Directory: filepath.Clean(dir)}, nil
}

// Serve exposes the store over HTTP until ctx is done.
func (c *Client) Serve(ctx context.Context, addr string) error {
	return api.NewServer(c.store, c.metrics, c.logger).ListenAndServe(ctx, addr)
}

func (c *Client) resolveRun(ctx context.Context, runID string, latest bool) (model.RunSummary, error) {
	if runID != "" && latest {
		return model.RunSummary{}, errors.New("use either run id or latest")
	}
	if runID == "" && !latest {
		return model.RunSummary{}, errors.New("run id or latest is required")
	}
	if latest {
		runs, err := c.store.ListRuns(ctx)
		if err != nil {
			return model.RunSummary{}, err
		}
		if len(runs) == 0 {
			return model.RunSummary{}, ErrNoRuns
		}
		return runs[len(runs)-1], nil
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunSummary{}, err
	}
	if !ok {
		return model.RunSummary{}, fmt.Errorf("run not found: %s", runID)
	}
	return run, nil
}

func (c *Client) snapshotOf(ctx context.Context, run model.RunSummary) (model.PopulationSnapshot, error) {
	if run.PopulationID == "" {
		return model.PopulationSnapshot{}, fmt.Errorf("run %s has no saved population", run.ID)
	}
	snap, ok, err := c.store.GetPopulation(ctx, run.PopulationID)
	if err != nil {
		return model.PopulationSnapshot{}, err
	}
	if !ok {
		return model.PopulationSnapshot{}, fmt.Errorf("population not found: %s", run.PopulationID)
	}
	return snap, nil
}
