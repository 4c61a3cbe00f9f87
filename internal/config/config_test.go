package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xcs/internal/lcs"
	"xcs/internal/storage"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, lcs.DefaultParams(), cfg.XCS)
	assert.Equal(t, "mux6", cfg.Experiment.Problem)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.XCS.MaxPopSize)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "xcs.yaml", `
xcs:
  max_pop_size: 800
  selection: roulette
  do_action_set_subsumption: true
experiment:
  problem: mux11
  problems: 20000
storage:
  kind: memory
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.XCS.MaxPopSize)
	assert.Equal(t, lcs.SelectionRoulette, cfg.XCS.Selection)
	assert.True(t, cfg.XCS.DoActionSetSubsumption)
	assert.Equal(t, 0.2, cfg.XCS.Beta, "unset keys keep their defaults")
	assert.Equal(t, "mux11", cfg.Experiment.Problem)
	assert.Equal(t, 20000, cfg.Experiment.Problems)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "xcs.json", `{"experiment": {"problem": "parity3", "seed": 9}, "storage": {"kind": "memory"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "parity3", cfg.Experiment.Problem)
	assert.Equal(t, int64(9), cfg.Experiment.Seed)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := writeFile(t, "xcs.yaml", "xcs: [unterminated")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "xcs.yaml", "experiment:\n  problem: mux11\nstorage:\n  kind: memory\n")
	t.Setenv("XCS_PROBLEM", "mux20")
	t.Setenv("XCS_MAX_POP_SIZE", "2000")
	t.Setenv("XCS_SEED", "42")
	t.Setenv("XCS_WORKERS", "4")
	t.Setenv("XCS_LOG_LEVEL", "warn")
	t.Setenv("XCS_METRICS_ADDR", ":9999")
	t.Setenv("XCS_THETA_GA", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mux20", cfg.Experiment.Problem)
	assert.Equal(t, 2000, cfg.XCS.MaxPopSize)
	assert.Equal(t, int64(42), cfg.Experiment.Seed)
	assert.Equal(t, 4, cfg.XCS.Workers)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)
	assert.Equal(t, 25, cfg.XCS.ThetaGA, "unparsable values are ignored")
}

func TestLoadRejectsUnknownStoreKind(t *testing.T) {
	_, err := Load(writeFile(t, "xcs.yaml", "storage:\n  kind: redis\n"))
	require.ErrorIs(t, err, storage.ErrUnsupportedStore)
}

func TestLoadValidates(t *testing.T) {
	for name, body := range map[string]string{
		"params":  "xcs:\n  beta: 2\n",
		"problem": "experiment:\n  problems: 0\n",
		"store":   "storage:\n  kind: redis\n",
		"sqlite":  "storage:\n  kind: sqlite\n  sqlite_path: ''\n",
		"level":   "logging:\n  level: loud\n",
		"format":  "logging:\n  format: xml\n",
		"metrics": "metrics:\n  enabled: true\n  addr: ''\n",
	} {
		_, err := Load(writeFile(t, "xcs.yaml", body))
		assert.Error(t, err, name)
	}
}

func TestUsePresetAppliesProblemEntry(t *testing.T) {
	path := writeFile(t, "xcs.yaml", "use_preset: true\nexperiment:\n  problem: mux20\nstorage:\n  kind: memory\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.XCS.MaxPopSize)
	assert.Equal(t, 0.5, cfg.XCS.DontCareProb)
}

func TestUsePresetUnknownProblemIsFatal(t *testing.T) {
	t.Setenv("XCS_USE_PRESET", "true")
	t.Setenv("XCS_PROBLEM", "maze4")
	_, err := Load("")
	assert.True(t, errors.Is(err, ErrUnknownPreset), "got %v", err)
}

func TestPresets(t *testing.T) {
	all := Presets()
	require.Len(t, all, 13)
	assert.Equal(t, "amux11", all[0].Problem)

	p, err := Preset(" MUX6 ")
	require.NoError(t, err)
	params := lcs.DefaultParams()
	params.MaxPopSize = 1
	p.Apply(&params)
	assert.Equal(t, 400, params.MaxPopSize)
	assert.NoError(t, params.Validate())
}

func TestTheoreticalSettingDerivesBetaAndEpsilon(t *testing.T) {
	path := writeFile(t, "xcs.yaml", "theoretical_setting: true\nxcs:\n  theta_sub: 63\nstorage:\n  kind: memory\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 63, cfg.XCS.ThetaSub)
	assert.InDelta(t, 0.08199827, cfg.XCS.Beta, 1e-12)
	assert.InDelta(t, 30.23281083, cfg.XCS.Epsilon0, 1e-12)
}

func TestTheoreticalSettingWinsOverPreset(t *testing.T) {
	t.Setenv("XCS_USE_PRESET", "true")
	t.Setenv("XCS_THEORETICAL", "true")
	t.Setenv("XCS_THETA_SUB", "31")
	t.Setenv("XCS_STORE", "memory")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.XCS.MaxPopSize)
	assert.InDelta(t, 58.52695551, cfg.XCS.Epsilon0, 1e-12)
}

func TestTheoreticalSettingUnknownThetaSubIsFatal(t *testing.T) {
	t.Setenv("XCS_THEORETICAL", "true")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrNoTheoreticalSetting)

	all := TheoreticalSettings()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ThetaSub, all[i].ThetaSub)
	}
	for _, s := range all {
		params := lcs.DefaultParams()
		s.Apply(&params)
		assert.NoError(t, params.Validate(), "theta_sub %d", s.ThetaSub)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "step", 3)
	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden"))
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"step":3`)

	_, err = NewLogger(LoggingConfig{Level: "info", Format: "xml"}, &buf)
	assert.Error(t, err)
}
