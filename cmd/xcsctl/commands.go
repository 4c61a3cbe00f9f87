package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"xcs/internal/config"
	"xcs/internal/metrics"
	"xcs/internal/problem"
	"xcs/internal/stats"
	"xcs/pkg/xcs"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		probName        string
		problems        int
		seed            int64
		repeats         int
		thetaSub        int
		theoretical     bool
		workers         int
		maxPopSize      int
		selection       string
		explore         string
		updateOnExploit bool
		continueFrom    string
		usePreset       bool
		metricsAddr     string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Train a population on a problem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			req := xcs.RunRequest{
				Params:     &a.cfg.XCS,
				Experiment: &a.cfg.Experiment,
			}
			if flags.Changed("problem") {
				req.Problem = probName
			}
			if flags.Changed("problems") {
				if problems <= 0 {
					return errors.New("problems must be > 0")
				}
				req.Problems = problems
			}
			if flags.Changed("seed") {
				req.Seed = seed
			}
			if flags.Changed("repeats") {
				if repeats <= 0 {
					return errors.New("repeats must be > 0")
				}
				req.Repeats = repeats
			}
			if flags.Changed("theta-sub") {
				req.ThetaSub = thetaSub
			}
			if flags.Changed("workers") {
				req.Workers = workers
			}
			if flags.Changed("max-pop-size") {
				req.MaxPopSize = maxPopSize
			}
			req.Selection = selection
			req.ExploreSelection = explore
			req.UpdateOnExploit = updateOnExploit
			req.ContinueFrom = continueFrom
			req.UsePreset = usePreset
			req.Theoretical = theoretical || a.cfg.Theoretical

			addr := a.cfg.Metrics.Addr
			if flags.Changed("metrics-addr") {
				addr = metricsAddr
			}
			serveMetrics := addr != "" && (a.cfg.Metrics.Enabled || flags.Changed("metrics-addr"))
			var collectors *metrics.Collectors
			if serveMetrics {
				collectors = metrics.New()
			}

			client, err := a.client(collectors)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := runWithMetrics(cmd.Context(), client, req, serveMetrics, addr)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(summary.RunIDs) > 1 {
				fmt.Fprintf(out, "averaged repeats=%d run_ids=%s\n", len(summary.RunIDs), strings.Join(summary.RunIDs, ","))
			}
			fmt.Fprintf(out, "run completed run_id=%s population_id=%s problem=%s performance=%.4f error=%.4f population=%d numerosity=%d\n",
				summary.RunID,
				summary.PopulationID,
				summary.Problem,
				summary.FinalPerformance,
				summary.FinalError,
				summary.PopulationSize,
				summary.NumerositySum,
			)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&probName, "problem", "", "problem name (see presets)")
	flags.IntVar(&problems, "problems", 0, "explore/exploit problem pairs to run")
	flags.Int64Var(&seed, "seed", 0, "random seed")
	flags.IntVar(&repeats, "repeats", 1, "independent runs with consecutive seeds, curves averaged")
	flags.IntVar(&thetaSub, "theta-sub", 0, "subsumption experience threshold")
	flags.BoolVar(&theoretical, "theoretical", false, "derive beta and epsilon0 from theta-sub")
	flags.IntVar(&workers, "workers", 0, "parallel matching workers")
	flags.IntVar(&maxPopSize, "max-pop-size", 0, "population cap in micro-classifiers")
	flags.StringVar(&selection, "selection", "", "GA parent selection: tournament or roulette")
	flags.StringVar(&explore, "explore", "", "explore action choice: random or roulette")
	flags.BoolVar(&updateOnExploit, "update-on-exploit", false, "also reinforce the exploit action set")
	flags.StringVar(&continueFrom, "continue-from", "", "population snapshot id to resume")
	flags.BoolVar(&usePreset, "use-preset", false, "apply the problem parameter preset")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address while running")
	return cmd
}

func runWithMetrics(ctx context.Context, client *xcs.Client, req xcs.RunRequest, serve bool, addr string) (xcs.RunSummary, error) {
	if !serve {
		return client.Run(ctx, req)
	}
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var summary xcs.RunSummary
	g, gctx := errgroup.WithContext(serveCtx)
	g.Go(func() error {
		return client.Serve(gctx, addr)
	})
	g.Go(func() error {
		defer cancel()
		var err error
		summary, err = client.Run(gctx, req)
		return err
	})
	if err := g.Wait(); err != nil {
		return xcs.RunSummary{}, err
	}
	return summary, nil
}

func newRunsCommand(a *app) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return errors.New("limit must be > 0")
			}
			client, err := a.client(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			items, err := client.Runs(cmd.Context(), xcs.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "no runs found")
				return nil
			}
			for _, item := range items {
				fmt.Fprintf(out, "run_id=%s created=%s problem=%s kind=%s seed=%d problems=%s performance=%.4f error=%.4f population=%d numerosity=%s\n",
					item.RunID,
					createdDisplay(item.CreatedAtUTC),
					item.Problem,
					item.ConditionKind,
					item.Seed,
					humanize.Comma(int64(item.Problems)),
					item.FinalPerformance,
					item.FinalError,
					item.PopulationSize,
					humanize.Comma(int64(item.NumerositySum)),
				)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit runs as JSON")
	return cmd
}

func createdDisplay(createdAtUTC string) string {
	t, err := time.Parse(time.RFC3339, createdAtUTC)
	if err != nil {
		return createdAtUTC
	}
	return humanize.Time(t)
}

func newPopulationCommand(a *app) *cobra.Command {
	var (
		req    xcs.PopulationRequest
		format string
	)
	cmd := &cobra.Command{
		Use:   "population",
		Short: "Print the final population of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			snap, err := client.Population(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch format {
			case "csv":
				return stats.WritePopulationCSV(out, snap.Rules)
			case "json":
				return writeJSON(out, snap)
			case "text":
				fmt.Fprintf(out, "population_id=%s run_id=%s kind=%s time=%s rules=%d numerosity=%d\n",
					snap.ID, snap.RunID, snap.ConditionKind, humanize.Comma(int64(snap.Time)), len(snap.Rules), snap.NumerositySum)
				for _, r := range snap.Rules {
					fmt.Fprintf(out, "%s : %d prediction=%.3f error=%.3f fitness=%.4f num=%d exp=%d\n",
						r.Condition, r.Action, r.Prediction, r.PredictionError, r.Fitness, r.Numerosity, r.Experience)
				}
				return nil
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.RunID, "run-id", "", "run id")
	flags.BoolVar(&req.Latest, "latest", false, "use the most recent run")
	flags.StringVar(&req.Sort, "sort", "numerosity", "sort key: numerosity, fitness, experience, prediction, error or id")
	flags.IntVar(&req.Limit, "limit", 0, "max rules to print (0 prints all)")
	flags.BoolVar(&req.Condensed, "condensed", false, "drop rules that were never updated")
	flags.StringVar(&format, "format", "text", "text, csv or json")
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	var req xcs.ExportRequest
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write run summary, population and performance files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.RunID != "" && req.Latest {
				return errors.New("use either --run-id or --latest, not both")
			}
			if req.RunID == "" && !req.Latest {
				return errors.New("export requires --run-id or --latest")
			}
			client, err := a.client(nil)
			if err != nil {
				return err
			}
			defer client.Close()

			exported, err := client.Export(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.RunID, "run-id", "", "run id")
	flags.BoolVar(&req.Latest, "latest", false, "export the most recent run")
	flags.StringVar(&req.OutDir, "out", "exports", "export output directory")
	flags.BoolVar(&req.Condensed, "condensed", false, "drop rules that were never updated")
	return cmd
}

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(metrics.New())
			if err != nil {
				return err
			}
			defer client.Close()
			return client.Serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func newPresetsCommand(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List problems, parameter presets and theoretical settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, name := range problem.Names() {
				p, err := config.Preset(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "problem=%s max_pop_size=%s epsilon0=%g theta_ga=%d dont_care_prob=%g\n",
					p.Problem, humanize.Comma(int64(p.MaxPopSize)), p.Epsilon0, p.ThetaGA, p.DontCareProb)
			}
			for _, s := range config.TheoreticalSettings() {
				fmt.Fprintf(out, "theta_sub=%d beta=%g epsilon0=%g\n", s.ThetaSub, s.Beta, s.Epsilon0)
			}
			return nil
		},
	}
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
