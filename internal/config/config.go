package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: load fit defaults from a separate YAML (e.g. examples/fits/*.yaml).
	// If both FitFile and Fit are provided, Fit overrides FitFile.
	FitFile string       `yaml:"fit_file"`
	DataDir string       `yaml:"data_dir"`
	Server  ServerConfig `yaml:"server"`
	Fit     FitConfig    `yaml:"fit"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	StaticDir   string   `yaml:"static_dir"`
}

// FitConfig holds the default estimator settings applied when a request
// leaves them unset.
type FitConfig struct {
	GradientLimit float64 `yaml:"gradient_limit"`
	NumStarts     int     `yaml:"num_starts"`
	MaxIter       int     `yaml:"max_iter"`
	NumPoints     int     `yaml:"num_points"`
	Seed          int64   `yaml:"seed"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	// If fit_file is set, load it and merge in any explicit overrides from c.Fit.
	if c.FitFile != "" {
		fitPath := c.FitFile
		if !filepath.IsAbs(fitPath) {
			// Prefer interpreting relative paths as relative to the config file directory,
			// but fall back to the provided path (relative to cwd) if that doesn't exist.
			cand := filepath.Join(filepath.Dir(path), fitPath)
			if _, err := os.Stat(cand); err == nil {
				fitPath = cand
			}
		}
		loaded, err := loadFitFile(fitPath)
		if err != nil {
			return nil, err
		}
		c.Fit = MergeFit(loaded, c.Fit)
	}
	return &c, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Fit.GradientLimit == 0 {
		c.Fit.GradientLimit = 0.1
	}
	if c.Fit.NumStarts == 0 {
		c.Fit.NumStarts = 100
	}
	if c.Fit.MaxIter == 0 {
		c.Fit.MaxIter = 200
	}
	if c.Fit.NumPoints == 0 {
		c.Fit.NumPoints = 1001
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.Fit.GradientLimit <= 0 {
		return fmt.Errorf("fit.gradient_limit must be positive, got %g", c.Fit.GradientLimit)
	}
	if c.Fit.NumStarts < 1 || c.Fit.NumStarts > 5000 {
		return fmt.Errorf("fit.num_starts must be in [1, 5000], got %d", c.Fit.NumStarts)
	}
	if c.Fit.MaxIter < 20 || c.Fit.MaxIter > 20000 {
		return fmt.Errorf("fit.max_iter must be in [20, 20000], got %d", c.Fit.MaxIter)
	}
	if c.Fit.NumPoints < 101 || c.Fit.NumPoints > 5001 {
		return fmt.Errorf("fit.num_points must be in [101, 5001], got %d", c.Fit.NumPoints)
	}
	return nil
}

type fitFileWrapper struct {
	Fit FitConfig `yaml:"fit"`
}

func loadFitFile(path string) (FitConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FitConfig{}, err
	}
	var w fitFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return FitConfig{}, err
	}
	return w.Fit, nil
}

// MergeFit overlays non-zero fields from override onto base.
// This is used when loading a fit file and then applying overrides from the request.
func MergeFit(base, override FitConfig) FitConfig {
	out := base
	if override.GradientLimit != 0 {
		out.GradientLimit = override.GradientLimit
	}
	if override.NumStarts != 0 {
		out.NumStarts = override.NumStarts
	}
	if override.MaxIter != 0 {
		out.MaxIter = override.MaxIter
	}
	if override.NumPoints != 0 {
		out.NumPoints = override.NumPoints
	}
	if override.Seed != 0 {
		out.Seed = override.Seed
	}
	return out
}
