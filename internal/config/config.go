package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"xcs/internal/experiment"
	"xcs/internal/lcs"
	"xcs/internal/storage"
)

// File is the on-disk configuration. Values resolve as environment, then
// file, then defaults.
type File struct {
	XCS        lcs.Params        `json:"xcs" yaml:"xcs"`
	Experiment experiment.Config `json:"experiment" yaml:"experiment"`
	// UsePreset replaces the population cap, epsilon0, theta_ga and the
	// don't-care probability with the preset of the configured problem.
	UsePreset bool `json:"use_preset" yaml:"use_preset"`
	// Theoretical derives beta and epsilon0 from xcs.theta_sub; a theta_sub
	// without a table entry is a configuration error.
	Theoretical bool          `json:"theoretical_setting" yaml:"theoretical_setting"`
	Storage     StorageConfig `json:"storage" yaml:"storage"`
	Logging     LoggingConfig `json:"logging" yaml:"logging"`
	Metrics     MetricsConfig `json:"metrics" yaml:"metrics"`
}

type StorageConfig struct {
	Kind       string `json:"kind" yaml:"kind"`
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

func Default() File {
	return File{
		XCS:        lcs.DefaultParams(),
		Experiment: experiment.DefaultConfig(),
		Storage: StorageConfig{
			Kind:       storage.DefaultStoreKind(),
			SQLitePath: "xcs.db",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Addr: ":9464"},
	}
}

// Load reads path (optional; a missing file means defaults), applies XCS_*
// environment overrides, then the problem preset and the theoretical setting
// when enabled, and validates.
func Load(path string) (File, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadFromEnv(&cfg)

	if cfg.UsePreset {
		preset, err := Preset(cfg.Experiment.Problem)
		if err != nil {
			return cfg, err
		}
		preset.Apply(&cfg.XCS)
	}
	if cfg.Theoretical {
		setting, err := Theoretical(cfg.XCS.ThetaSub)
		if err != nil {
			return cfg, err
		}
		setting.Apply(&cfg.XCS)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *File) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadFromEnv(cfg *File) {
	// Experiment
	if v := os.Getenv("XCS_PROBLEM"); v != "" {
		cfg.Experiment.Problem = v
	}
	if v := os.Getenv("XCS_PROBLEMS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Experiment.Problems = i
		}
	}
	if v := os.Getenv("XCS_SEED"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Experiment.Seed = i
		}
	}
	if v := os.Getenv("XCS_CONTINUE_FROM"); v != "" {
		cfg.Experiment.ContinueFrom = v
	}
	if v := os.Getenv("XCS_USE_PRESET"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.UsePreset = b
		}
	}
	if v := os.Getenv("XCS_THEORETICAL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Theoretical = b
		}
	}

	// Learner
	if v := os.Getenv("XCS_MAX_POP_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.XCS.MaxPopSize = i
		}
	}
	if v := os.Getenv("XCS_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.XCS.Workers = i
		}
	}
	if v := os.Getenv("XCS_BETA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.XCS.Beta = f
		}
	}
	if v := os.Getenv("XCS_EPSILON0"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.XCS.Epsilon0 = f
		}
	}
	if v := os.Getenv("XCS_THETA_SUB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.XCS.ThetaSub = i
		}
	}
	if v := os.Getenv("XCS_THETA_GA"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.XCS.ThetaGA = i
		}
	}
	if v := os.Getenv("XCS_SELECTION"); v != "" {
		cfg.XCS.Selection = lcs.SelectionMode(v)
	}

	// Storage, logging, metrics
	if v := os.Getenv("XCS_STORE"); v != "" {
		cfg.Storage.Kind = v
	}
	if v := os.Getenv("XCS_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("XCS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("XCS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("XCS_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}
}

func (f File) Validate() error {
	if err := f.XCS.Validate(); err != nil {
		return fmt.Errorf("xcs: %w", err)
	}
	if err := f.Experiment.Validate(); err != nil {
		return fmt.Errorf("experiment: %w", err)
	}
	if !storage.SupportedKind(f.Storage.Kind) {
		return fmt.Errorf("storage: %w %q", storage.ErrUnsupportedStore, f.Storage.Kind)
	}
	if f.Storage.Kind == storage.KindSQLite && strings.TrimSpace(f.Storage.SQLitePath) == "" {
		return fmt.Errorf("storage: sqlite_path is required")
	}
	if _, err := parseLevel(f.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	switch f.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging: unsupported format %q", f.Logging.Format)
	}
	if f.Metrics.Enabled && f.Metrics.Addr == "" {
		return fmt.Errorf("metrics: addr is required when enabled")
	}
	return nil
}
