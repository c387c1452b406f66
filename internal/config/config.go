// Package config loads bgcselect settings from an optional YAML file,
// BGCSELECT_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/yumyai/bgcselect/pkg/model"
)

const envPrefix = "BGCSELECT"

type Config struct {
	DataDir     string `mapstructure:"data_dir"`
	InputDir    string `mapstructure:"input_dir"`
	SelectedDir string `mapstructure:"selected_dir"`
	StatsDir    string `mapstructure:"stats_dir"`
	DBPath      string `mapstructure:"db_path"`

	Listen   string `mapstructure:"listen"`
	Workers  int    `mapstructure:"workers"`
	LogLevel string `mapstructure:"log_level"`

	ClearSelected             bool     `mapstructure:"clear_selected"`
	RenameOnCollision         bool     `mapstructure:"rename_on_collision"`
	RequireSingleClusterLabel bool     `mapstructure:"require_single_cluster_label"`
	GroupProducts             bool     `mapstructure:"group_products"`
	IgnorePatterns            []string `mapstructure:"ignore_patterns"`

	WatchDebounce time.Duration `mapstructure:"watch_debounce"`

	Thresholds model.Thresholds `mapstructure:"thresholds"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	th := model.DefaultThresholds()
	v.SetDefault("data_dir", "./data")
	v.SetDefault("input_dir", "")
	v.SetDefault("selected_dir", "")
	v.SetDefault("stats_dir", "")
	v.SetDefault("db_path", "")
	v.SetDefault("listen", "0.0.0.0:8080")
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("log_level", "info")
	v.SetDefault("clear_selected", true)
	v.SetDefault("rename_on_collision", true)
	v.SetDefault("require_single_cluster_label", true)
	v.SetDefault("group_products", false)
	v.SetDefault("ignore_patterns", []string{})
	v.SetDefault("watch_debounce", 2*time.Second)
	v.SetDefault("thresholds.min_core_genes", th.MinCoreGenes)
	v.SetDefault("thresholds.min_length_bp", th.MinLengthBP)
	v.SetDefault("thresholds.min_edge_distance_bp", th.MinEdgeDistanceBP)
	v.SetDefault("thresholds.min_additional_genes_main", th.MinAdditionalGenesMain)
	v.SetDefault("thresholds.min_additional_genes_second_chance", th.MinAdditionalGenesSecondChance)
	return v
}

// Load reads the file at path (skipped when empty), then environment
// overrides, then any flags that were set explicitly. Flag names use dashes
// in place of the underscores of the keys.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr == nil {
				bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDerived() {
	if c.InputDir == "" {
		c.InputDir = filepath.Join(c.DataDir, "input")
	}
	if c.SelectedDir == "" {
		c.SelectedDir = filepath.Join(c.DataDir, "selected")
	}
	if c.StatsDir == "" {
		c.StatsDir = filepath.Join(c.DataDir, "stats")
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "db", "bgcselect.db")
	}
}

func (c *Config) Validate() error {
	var errs []error
	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.WatchDebounce < 0 {
		errs = append(errs, fmt.Errorf("watch_debounce must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
