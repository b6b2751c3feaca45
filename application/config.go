// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 16th 2026
// Project: A Monte-Carlo Analysis of OLS and Instrumental-Variables Estimators
// Class: 02-613 at Caregie Mellon University

package main

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// AppName is used for the CLI and the config directory.
const AppName = "ivsim"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Config holds everything a simulation run needs. Zero values in a YAML file
// are not special: missing keys keep the defaults from DefaultConfig.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// Monte-Carlo settings shared by every command
	Replications int     `yaml:"replications"`
	SampleSize   int     `yaml:"sample_size"`
	Seed         uint64  `yaml:"seed"`
	Workers      int     `yaml:"workers"`
	SkipFailed   bool    `yaml:"skip_failed"`
	Tolerance    float64 `yaml:"tolerance"`
	Bins         int     `yaml:"bins"`

	Regression   RegressionConfig   `yaml:"regression"`
	LinearIV     LinearIVParams     `yaml:"linear_iv"`
	SupplyDemand SupplyDemandParams `yaml:"supply_demand"`

	Output OutputConfig `yaml:"output"`
}

// RegressionConfig is the YAML form of RegressionParams.
type RegressionConfig struct {
	Beta   []float64   `yaml:"beta"`
	Mean   []float64   `yaml:"mean"`
	Cov    [][]float64 `yaml:"cov"`
	SigmaE float64     `yaml:"sigma_e"`
}

// Where results are written. Empty fields disable that output.
type OutputConfig struct {
	CSV    string `yaml:"csv"`
	Report string `yaml:"report"`
	DBDir  string `yaml:"db_dir"`
}

// DefaultConfig returns the settings used when no file or flag overrides them.
func DefaultConfig() *Config {
	reg := DefaultRegressionParams()
	k := len(reg.Beta)
	cov := make([][]float64, k)
	for i := range cov {
		cov[i] = mat.Row(nil, i, reg.Cov)
	}

	return &Config{
		LogLevel:     "info",
		Replications: 1000,
		SampleSize:   1000,
		Workers:      0,
		Tolerance:    DefaultConditionTolerance,
		Bins:         20,
		Regression: RegressionConfig{
			Beta:   reg.Beta,
			Mean:   reg.Mean,
			Cov:    cov,
			SigmaE: reg.SigmaE,
		},
		LinearIV:     DefaultLinearIVParams(),
		SupplyDemand: DefaultSupplyDemandParams(),
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/ivsim/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// FindConfigFile returns configPath if given and present, otherwise the
// default path if present, otherwise "".
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}
	if _, err := os.Stat(DefaultConfigPath()); err == nil {
		return DefaultConfigPath()
	}
	return ""
}

// LoadConfigFile reads a YAML file on top of DefaultConfig.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, errors.Wrapf(err, "reading %s failed", path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s failed", path)
	}
	return cfg, nil
}

// Validate checks the Monte-Carlo settings. Model parameters are checked by
// the DGP constructors.
func (c *Config) Validate() error {
	if c.Replications <= 0 {
		return configErr("replications", "must be > 0, got %d", c.Replications)
	}
	if c.SampleSize <= 0 {
		return configErr("sample_size", "must be > 0, got %d", c.SampleSize)
	}
	if c.Workers < 0 {
		return configErr("workers", "must be >= 0, got %d", c.Workers)
	}
	if c.Tolerance < 0 {
		return configErr("tolerance", "must be >= 0, got %v", c.Tolerance)
	}
	if c.Bins <= 0 {
		return configErr("bins", "must be > 0, got %d", c.Bins)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return configErr("log_level", "%v", err)
	}
	return nil
}

// Level returns the configured log level, info if it cannot be parsed.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// MonteCarloOptions builds driver options for a named run.
func (c *Config) MonteCarloOptions(name string) MonteCarloOptions {
	return MonteCarloOptions{
		Replications: c.Replications,
		SampleSize:   c.SampleSize,
		Seed:         c.Seed,
		Workers:      c.Workers,
		SkipFailed:   c.SkipFailed,
		Name:         name,
	}
}

// Params converts the YAML regression block. The covariance must be square
// and symmetric.
func (rc RegressionConfig) Params() (RegressionParams, error) {
	k := len(rc.Cov)
	if k == 0 {
		return RegressionParams{}, distErr("multivariate normal", "covariance not provided")
	}
	data := make([]float64, 0, k*k)
	for i, row := range rc.Cov {
		if len(row) != k {
			return RegressionParams{}, distErr("multivariate normal", "covariance row %d has %d entries, want %d", i, len(row), k)
		}
		data = append(data, row...)
	}
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			if data[i*k+j] != data[j*k+i] {
				return RegressionParams{}, distErr("multivariate normal", "covariance is not symmetric at (%d,%d)", i, j)
			}
		}
	}

	mean := rc.Mean
	if mean == nil {
		mean = make([]float64, k)
	}
	return RegressionParams{
		Beta:   rc.Beta,
		Mean:   mean,
		Cov:    mat.NewSymDense(k, data),
		SigmaE: rc.SigmaE,
	}, nil
}
