package stats

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"xcs/internal/model"
)

func sampleRules() []model.RuleRecord {
	return []model.RuleRecord{
		{ID: 1, Condition: "1#0#", Action: 0, Prediction: 1000, PredictionError: 0.5, Fitness: 0.9, Numerosity: 2, Experience: 40, ActionSetSize: 12.5, TimeStamp: 90},
		{ID: 2, Condition: "####", Action: 1, Prediction: 500, PredictionError: 480, Fitness: 0.01, Numerosity: 5, Experience: 3, ActionSetSize: 20, TimeStamp: 99},
		{ID: 3, Condition: "0.25:0.5 0:1", Action: 1, Prediction: 10, Fitness: 0.2, Numerosity: 2, Experience: 40, ActionSetSize: 1, TimeStamp: 7},
	}
}

func TestPopulationCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePopulationCSV(&buf, sampleRules()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "id,condition,action,prediction,") {
		t.Fatalf("unexpected header: %q", buf.String())
	}
	rules, err := ReadPopulationCSV(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(rules, sampleRules()) {
		t.Fatalf("round trip mismatch: %+v", rules)
	}
}

func TestReadPopulationCSVRejectsBadRows(t *testing.T) {
	body := strings.Join(populationHeader, ",") + "\n1,1#,x,1,1,1,1,1,1,1\n"
	if _, err := ReadPopulationCSV(strings.NewReader(body)); err == nil || !strings.Contains(err.Error(), "action") {
		t.Fatalf("expected column error, got %v", err)
	}
	if _, err := ReadPopulationCSV(strings.NewReader("a,b,c,d,e,f,g,h,i,j\n")); err == nil {
		t.Fatal("expected header error")
	}
	rules, err := ReadPopulationCSV(strings.NewReader(""))
	if err != nil || len(rules) != 0 {
		t.Fatalf("expected empty population, got %v %v", rules, err)
	}
}

func TestPerformanceCSVRoundTrip(t *testing.T) {
	input := []model.PerformancePoint{
		{Step: 50, Performance: 0.5, PredictionError: 412.25, PopulationSize: 120, NumerositySum: 400},
		{Step: 100, Performance: 0.74, PredictionError: 201, PopulationSize: 98, NumerositySum: 400},
	}
	var buf bytes.Buffer
	if err := WritePerformanceCSV(&buf, input); err != nil {
		t.Fatalf("write: %v", err)
	}
	output, err := ReadPerformanceCSV(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(input, output) {
		t.Fatalf("round trip mismatch: %+v", output)
	}
}

func TestSortRules(t *testing.T) {
	rules := sampleRules()
	if err := SortRules(rules, "numerosity"); err != nil {
		t.Fatalf("sort: %v", err)
	}
	if rules[0].ID != 2 || rules[1].ID != 1 || rules[2].ID != 3 {
		t.Fatalf("unexpected numerosity order: %d %d %d", rules[0].ID, rules[1].ID, rules[2].ID)
	}
	if err := SortRules(rules, "error"); err != nil {
		t.Fatalf("sort: %v", err)
	}
	if rules[0].ID != 3 || rules[2].ID != 2 {
		t.Fatalf("unexpected error order: %d %d %d", rules[0].ID, rules[1].ID, rules[2].ID)
	}
	if err := SortRules(rules, "id"); err != nil || rules[0].ID != 1 {
		t.Fatalf("unexpected id order: %v", err)
	}
	if err := SortRules(rules, "age"); err == nil {
		t.Fatal("expected unsupported key error")
	}
}

func TestWriteRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	artifacts := RunArtifacts{
		Summary:     model.RunSummary{ID: "run-123", Problem: "mux6", FinalPerformance: 0.98},
		Population:  model.PopulationSnapshot{ID: "pop-1", Rules: sampleRules()},
		Performance: []model.PerformancePoint{{Step: 50, Performance: 0.6}},
	}
	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	for _, file := range []string{"summary.json", "population.csv", "performance.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}
	summary, ok, err := ReadRunSummary(runDir)
	if err != nil || !ok || summary.Problem != "mux6" {
		t.Fatalf("unexpected summary %+v ok=%v err=%v", summary, ok, err)
	}
	if _, ok, err := ReadRunSummary(filepath.Join(baseDir, "missing")); ok || err != nil {
		t.Fatalf("expected missing summary, got ok=%v err=%v", ok, err)
	}
	if _, err := WriteRunArtifacts(baseDir, RunArtifacts{}); err == nil {
		t.Fatal("expected missing run id error")
	}
}
