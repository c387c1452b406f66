package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumyai/bgcselect/pkg/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, filepath.Join("data", "input"), cfg.InputDir)
	assert.Equal(t, filepath.Join("data", "selected"), cfg.SelectedDir)
	assert.Equal(t, filepath.Join("data", "db", "bgcselect.db"), cfg.DBPath)
	assert.Equal(t, "0.0.0.0:8080", cfg.Listen)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.True(t, cfg.ClearSelected)
	assert.True(t, cfg.RenameOnCollision)
	assert.True(t, cfg.RequireSingleClusterLabel)
	assert.False(t, cfg.GroupProducts)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.Equal(t, model.DefaultThresholds(), cfg.Thresholds)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bgcselect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /srv/bgc
workers: 3
group_products: true
ignore_patterns:
  - "**/tmp/**"
watch_debounce: 500ms
thresholds:
  min_length_bp: 15000
  min_additional_genes_second_chance: 6
`), 0o644))

	t.Setenv("BGCSELECT_THRESHOLDS_MIN_CORE_GENES", "3")
	t.Setenv("BGCSELECT_LISTEN", "127.0.0.1:9000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("workers", 0, "")
	flags.String("selected-dir", "", "")
	require.NoError(t, flags.Parse([]string{"--selected-dir", "/tmp/picked"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/srv/bgc", "input"), cfg.InputDir)
	assert.Equal(t, "/tmp/picked", cfg.SelectedDir)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.True(t, cfg.GroupProducts)
	assert.Equal(t, []string{"**/tmp/**"}, cfg.IgnorePatterns)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, 3, cfg.Thresholds.MinCoreGenes)
	assert.Equal(t, 15000, cfg.Thresholds.MinLengthBP)
	assert.Equal(t, 5000, cfg.Thresholds.MinEdgeDistanceBP)
	assert.Equal(t, 6, cfg.Thresholds.MinAdditionalGenesSecondChance)
}

func TestLoadRejectsInvalidThresholds(t *testing.T) {
	t.Setenv("BGCSELECT_THRESHOLDS_MIN_ADDITIONAL_GENES_SECOND_CHANCE", "1")

	_, err := Load("", nil)
	assert.ErrorIs(t, err, model.ErrInvalidThresholds)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestValidateWorkers(t *testing.T) {
	cfg := &Config{Workers: 0, Thresholds: model.DefaultThresholds()}
	assert.Error(t, cfg.Validate())
}
