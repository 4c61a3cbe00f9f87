package xcs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"xcs/internal/lcs"
	"xcs/internal/stats"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{
		StoreKind:  "memory",
		ExportsDir: filepath.Join(t.TempDir(), "exports"),
		Logger:     slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestClientRunRunsAndExport(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	summary, err := client.Run(ctx, RunRequest{
		Problem:     "mux6",
		Problems:    400,
		Seed:        7,
		Workers:     2,
		RecordEvery: 100,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" || summary.PopulationID == "" {
		t.Fatalf("expected run and population ids, got %+v", summary)
	}
	if len(summary.Performance) != 4 || summary.Performance[3].Step != 400 {
		t.Fatalf("unexpected performance curve: %+v", summary.Performance)
	}
	if summary.NumerositySum > lcs.DefaultParams().MaxPopSize {
		t.Fatalf("population cap exceeded: %d", summary.NumerositySum)
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID || runs[0].Problem != "mux6" || runs[0].Seed != 7 {
		t.Fatalf("unexpected runs listing: %+v", runs)
	}

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.RunID != summary.RunID {
		t.Fatalf("exported wrong run %s", exported.RunID)
	}
	for _, name := range []string{"summary.json", "population.csv", "performance.csv"} {
		if _, err := os.Stat(filepath.Join(exported.Directory, name)); err != nil {
			t.Fatalf("missing exported %s: %v", name, err)
		}
	}
	read, ok, err := stats.ReadRunSummary(exported.Directory)
	if err != nil || !ok || read.ID != summary.RunID {
		t.Fatalf("unexpected exported summary %+v ok=%v err=%v", read, ok, err)
	}

	f, err := os.Open(filepath.Join(exported.Directory, "population.csv"))
	if err != nil {
		t.Fatalf("open population csv: %v", err)
	}
	defer f.Close()
	rules, err := stats.ReadPopulationCSV(f)
	if err != nil {
		t.Fatalf("read population csv: %v", err)
	}
	if len(rules) != summary.PopulationSize {
		t.Fatalf("expected %d exported rules, got %d", summary.PopulationSize, len(rules))
	}
}

func TestClientPopulationSortLimitAndCondense(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	summary, err := client.Run(ctx, RunRequest{Problems: 300, RecordEvery: 100})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	snap, err := client.Population(ctx, PopulationRequest{RunID: summary.RunID, Sort: "numerosity", Limit: 5})
	if err != nil {
		t.Fatalf("population: %v", err)
	}
	if len(snap.Rules) > 5 {
		t.Fatalf("limit ignored: %d rules", len(snap.Rules))
	}
	for i := 1; i < len(snap.Rules); i++ {
		if snap.Rules[i].Numerosity > snap.Rules[i-1].Numerosity {
			t.Fatalf("rules not sorted by numerosity: %+v", snap.Rules)
		}
	}

	condensed, err := client.Population(ctx, PopulationRequest{Latest: true, Condensed: true})
	if err != nil {
		t.Fatalf("condensed population: %v", err)
	}
	for _, r := range condensed.Rules {
		if r.Experience == 0 {
			t.Fatalf("condensed population kept inexperienced rule %+v", r)
		}
	}

	if _, err := client.Population(ctx, PopulationRequest{Latest: true, Sort: "age"}); err == nil {
		t.Fatal("expected unsupported sort key error")
	}
}

func TestClientRunAppliesPresetAndContinues(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	first, err := client.Run(ctx, RunRequest{Problem: "parity3", Problems: 200, UsePreset: true, MaxPopSize: 50})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if runs[0].MaxPopSize != 400 {
		t.Fatalf("expected parity3 preset cap 400, got %d", runs[0].MaxPopSize)
	}

	second, err := client.Run(ctx, RunRequest{Problem: "parity3", Problems: 100, ContinueFrom: first.PopulationID})
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	snap, err := client.Population(ctx, PopulationRequest{RunID: second.RunID})
	if err != nil {
		t.Fatalf("population: %v", err)
	}
	if snap.Time != 300 {
		t.Fatalf("expected continued time 300, got %d", snap.Time)
	}
}

func TestClientRunRepeatsAndAverages(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	summary, err := client.Run(ctx, RunRequest{Problems: 200, RecordEvery: 100, Seed: 1, Repeats: 3})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(summary.RunIDs) != 3 || summary.RunIDs[2] != summary.RunID {
		t.Fatalf("unexpected run ids %v last=%s", summary.RunIDs, summary.RunID)
	}
	if len(summary.Performance) != 2 || summary.Performance[1].Step != 200 {
		t.Fatalf("unexpected averaged curve %+v", summary.Performance)
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 stored runs, got %d", len(runs))
	}
	seeds := map[int64]bool{}
	for _, r := range runs {
		seeds[r.Seed] = true
	}
	if !seeds[1] || !seeds[2] || !seeds[3] {
		t.Fatalf("expected seeds 1..3, got %v", seeds)
	}
	limited, err := client.Runs(ctx, RunsRequest{Limit: 2})
	if err != nil || len(limited) != 2 {
		t.Fatalf("expected 2 limited runs, got %d %v", len(limited), err)
	}
}

func TestClientRunTheoreticalSetting(t *testing.T) {
	params, _, err := resolveRun(RunRequest{ThetaSub: 127, Theoretical: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if params.ThetaSub != 127 || params.Beta != 0.04739 || params.Epsilon0 != 15.36777 {
		t.Fatalf("unexpected theoretical params beta=%v epsilon0=%v", params.Beta, params.Epsilon0)
	}
	if _, _, err := resolveRun(RunRequest{Theoretical: true}); err == nil {
		t.Fatal("expected missing theoretical entry for default theta_sub")
	}
	if _, _, err := resolveRun(RunRequest{Repeats: -1}); err == nil {
		t.Fatal("expected negative repeats error")
	}
}

func TestClientRejectsAmbiguousRunSelection(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	if _, err := client.Export(ctx, ExportRequest{}); err == nil {
		t.Fatal("expected error without run id or latest")
	}
	if _, err := client.Export(ctx, ExportRequest{RunID: "a", Latest: true}); err == nil {
		t.Fatal("expected error with both run id and latest")
	}
	if _, err := client.Population(ctx, PopulationRequest{Latest: true}); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns, got %v", err)
	}
	if _, err := client.Population(ctx, PopulationRequest{RunID: "missing"}); err == nil {
		t.Fatal("expected missing run error")
	}
}

func TestClientRunRejectsBadRequests(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	for name, req := range map[string]RunRequest{
		"problem":   {Problem: "maze4"},
		"preset":    {Problem: "maze4", UsePreset: true},
		"selection": {Selection: "elitist"},
		"explore":   {ExploreSelection: "greedy"},
	} {
		if _, err := client.Run(ctx, req); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestNewRejectsUnknownStore(t *testing.T) {
	if _, err := New(Options{StoreKind: "redis"}); err == nil {
		t.Fatal("expected unsupported store error")
	}
}
