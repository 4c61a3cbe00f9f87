package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"xcs/internal/lcs"
	"xcs/internal/metrics"
	"xcs/internal/model"
	"xcs/internal/problem"
	"xcs/internal/storage"
)

var ErrSnapshotNotFound = errors.New("population snapshot not found")

// Result is the outcome of one run.
type Result struct {
	Summary     model.RunSummary
	Performance []model.PerformancePoint
	Population  *lcs.Population
	Snapshot    model.PopulationSnapshot
}

type Runner struct {
	cfg     Config
	params  lcs.Params
	env     problem.Environment
	store   storage.Store
	logger  *slog.Logger
	metrics *metrics.Collectors
	now     func() time.Time
	newID   func() string
}

type Option func(*Runner)

// WithStore persists the run summary, performance curve and final snapshot,
// and is required to continue from a snapshot.
func WithStore(store storage.Store) Option {
	return func(r *Runner) { r.store = store }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(c *metrics.Collectors) Option {
	return func(r *Runner) { r.metrics = c }
}

// WithEnvironment replaces the registry lookup of cfg.Problem.
func WithEnvironment(env problem.Environment) Option {
	return func(r *Runner) { r.env = env }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func New(cfg Config, params lcs.Params, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid experiment config: %w", err)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid xcs params: %w", err)
	}
	r := &Runner{
		cfg:    cfg,
		params: params,
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.env == nil {
		env, err := problem.New(cfg.Problem)
		if err != nil {
			return nil, err
		}
		r.env = env
	}
	if cfg.ContinueFrom != "" && r.store == nil {
		return nil, fmt.Errorf("continue_from %s requires a store", cfg.ContinueFrom)
	}
	return r, nil
}

func (r *Runner) Run(ctx context.Context) (Result, error) {
	createdAt := r.now().UTC()
	rng := rand.New(rand.NewSource(r.cfg.Seed))
	pop, t, err := r.population(ctx)
	if err != nil {
		return Result{}, err
	}

	runID := r.newID()
	name := r.env.Name()
	logger := r.logger.With(slog.String("run_id", runID), slog.String("problem", name))
	logger.Info("run started",
		slog.Int("problems", r.cfg.Problems),
		slog.Int64("seed", r.cfg.Seed),
		slog.Int("max_pop_size", r.params.MaxPopSize),
		slog.String("condition_kind", string(pop.Kind())),
		slog.Int("start_time", t),
	)

	performance := newMovingAverage(r.cfg.Window)
	predictionError := newMovingAverage(r.cfg.Window)
	points := make([]model.PerformancePoint, 0, r.cfg.Problems/r.cfg.RecordEvery+1)
	prev := pop.Counters()

	for i := 0; i < r.cfg.Problems; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := r.explore(ctx, rng, pop, t); err != nil {
			return Result{}, fmt.Errorf("explore problem %d: %w", i, err)
		}
		t++

		correct, absError, err := r.exploit(ctx, rng, pop, t)
		if err != nil {
			return Result{}, fmt.Errorf("exploit problem %d: %w", i, err)
		}
		if correct {
			performance.Add(1)
		} else {
			performance.Add(0)
		}
		predictionError.Add(absError)

		counters := pop.Counters()
		r.metrics.ObserveCounters(name, counters.Sub(prev))
		prev = counters

		n := i + 1
		if n%r.cfg.RecordEvery == 0 || n == r.cfg.Problems {
			points = append(points, model.PerformancePoint{
				Step:            n,
				Performance:     performance.Value(),
				PredictionError: predictionError.Value(),
				PopulationSize:  pop.Size(),
				NumerositySum:   pop.NumerositySum(),
			})
			if r.metrics != nil {
				r.metrics.ObservePopulation(name, pop.Stats())
				r.metrics.ObservePerformance(name, performance.Value(), predictionError.Value())
			}
		}
		if r.cfg.LogEvery > 0 && n%r.cfg.LogEvery == 0 {
			logger.Info("progress",
				slog.Int("step", n),
				slog.Float64("performance", performance.Value()),
				slog.Float64("error", predictionError.Value()),
				slog.Int("population_size", pop.Size()),
				slog.Int("numerosity_sum", pop.NumerositySum()),
			)
		}
	}

	snapshot := pop.Snapshot(r.newID(), t)
	snapshot.VersionedRecord = storage.CurrentVersion()
	snapshot.RunID = runID

	summary := model.RunSummary{
		VersionedRecord:  storage.CurrentVersion(),
		ID:               runID,
		Problem:          name,
		ConditionKind:    string(pop.Kind()),
		Seed:             r.cfg.Seed,
		Problems:         r.cfg.Problems,
		MaxPopSize:       r.params.MaxPopSize,
		CreatedAtUTC:     createdAt.Format(time.RFC3339),
		FinalPerformance: performance.Value(),
		FinalError:       predictionError.Value(),
		PopulationSize:   pop.Size(),
		NumerositySum:    pop.NumerositySum(),
	}
	if r.store != nil {
		if err := r.persist(ctx, &summary, snapshot, points); err != nil {
			return Result{}, err
		}
	}

	stats := pop.Stats()
	logger.Info("run finished",
		slog.Float64("performance", summary.FinalPerformance),
		slog.Float64("error", summary.FinalError),
		slog.Int("population_size", stats.Size),
		slog.Int("numerosity_sum", stats.NumerositySum),
		slog.Float64("mean_generality", stats.MeanGenerality),
		slog.Int("ga_runs", pop.Counters().GARuns),
	)
	return Result{
		Summary:     summary,
		Performance: points,
		Population:  pop,
		Snapshot:    snapshot,
	}, nil
}

func (r *Runner) population(ctx context.Context) (*lcs.Population, int, error) {
	if r.cfg.ContinueFrom == "" {
		pop, err := lcs.NewPopulation(r.params, r.env.Kind(), r.env.NumActions())
		return pop, 0, err
	}
	snap, ok, err := r.store.GetPopulation(ctx, r.cfg.ContinueFrom)
	if err != nil {
		return nil, 0, fmt.Errorf("load population %s: %w", r.cfg.ContinueFrom, err)
	}
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrSnapshotNotFound, r.cfg.ContinueFrom)
	}
	if snap.NumActions != r.env.NumActions() {
		return nil, 0, fmt.Errorf("population %s has %d actions, %s needs %d", snap.ID, snap.NumActions, r.env.Name(), r.env.NumActions())
	}
	pop, err := lcs.Restore(r.params, snap)
	if err != nil {
		return nil, 0, fmt.Errorf("restore population %s: %w", snap.ID, err)
	}
	if pop.Kind() != r.env.Kind() {
		return nil, 0, fmt.Errorf("population %s holds %s conditions, %s needs %s", snap.ID, pop.Kind(), r.env.Name(), r.env.Kind())
	}
	return pop, snap.Time, nil
}

func (r *Runner) explore(ctx context.Context, rng *rand.Rand, pop *lcs.Population, t int) error {
	state := r.env.ResetState(rng, false)
	ms, err := pop.BuildMatchSet(ctx, rng, state, t)
	if err != nil {
		return err
	}
	pa := ms.PredictionArray()
	action := pa.RandomActionWinner(rng)
	if r.cfg.ExploreSelection == ExploreRoulette {
		action = pa.RouletteActionWinner(rng)
	}
	reward := r.env.ExecuteAction(action, false)
	r.metrics.ObserveProblem(r.env.Name(), "explore", r.env.WasCorrect())

	as := ms.ActionSet(action)
	if err := as.Update(reward); err != nil {
		return err
	}
	_, err = as.RunEvolution(rng, t, state)
	return err
}

func (r *Runner) exploit(ctx context.Context, rng *rand.Rand, pop *lcs.Population, t int) (bool, float64, error) {
	state := r.env.ResetState(rng, true)
	ms, err := pop.BuildMatchSet(ctx, rng, state, t)
	if err != nil {
		return false, 0, err
	}
	pa := ms.PredictionArray()
	action := pa.BestActionWinner()
	reward := r.env.ExecuteAction(action, true)
	correct := r.env.WasCorrect()
	r.metrics.ObserveProblem(r.env.Name(), "exploit", correct)

	if r.cfg.UpdateOnExploit {
		if err := ms.ActionSet(action).Update(reward); err != nil {
			return false, 0, err
		}
	}
	return correct, math.Abs(pa.Value(action) - reward), nil
}

func (r *Runner) persist(ctx context.Context, summary *model.RunSummary, snapshot model.PopulationSnapshot, points []model.PerformancePoint) error {
	if r.cfg.SaveSnapshot {
		if err := r.store.SavePopulation(ctx, snapshot); err != nil {
			return fmt.Errorf("save population %s: %w", snapshot.ID, err)
		}
		summary.PopulationID = snapshot.ID
	}
	if err := r.store.SavePerformance(ctx, summary.ID, points); err != nil {
		return fmt.Errorf("save performance %s: %w", summary.ID, err)
	}
	if err := r.store.SaveRun(ctx, *summary); err != nil {
		return fmt.Errorf("save run %s: %w", summary.ID, err)
	}
	return nil
}
