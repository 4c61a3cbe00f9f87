package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"xcs/internal/model"
)

// RunArtifacts is everything exported for one run.
type RunArtifacts struct {
	Summary     model.RunSummary
	Population  model.PopulationSnapshot
	Performance []model.PerformancePoint
}

// WriteRunArtifacts writes summary.json, population.csv and performance.csv
// under baseDir/<run id> and returns that directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Summary.ID == "" {
		return "", fmt.Errorf("run id is required")
	}
	runDir := filepath.Join(baseDir, artifacts.Summary.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "summary.json"), artifacts.Summary); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, "population.csv"), func(f *os.File) error {
		return WritePopulationCSV(f, artifacts.Population.Rules)
	}); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, "performance.csv"), func(f *os.File) error {
		return WritePerformanceCSV(f, artifacts.Performance)
	}); err != nil {
		return "", err
	}
	return runDir, nil
}

func ReadRunSummary(runDir string) (model.RunSummary, bool, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "summary.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunSummary{}, false, nil
		}
		return model.RunSummary{}, false, err
	}
	var summary model.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.RunSummary{}, false, err
	}
	return summary, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func writeCSV(path string, write func(*os.File) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
