// Package config provides configuration loading and management for axonspread.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"axonspread/internal/models"
	"axonspread/pkg/logging"
)

// Default plausibility limits for voxel sizes in µm
const (
	DefaultMaxVoxelSizeXY = 10.0
	DefaultMaxVoxelSizeZ  = 50.0
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Voxel is the physical voxel size in µm
	Voxel models.VoxelSize `yaml:"voxel"`

	// Processing parameters
	Processing struct {
		// NumWorkers bounds the goroutines used to rotate slices
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Limits above which a voxel size is reported as implausible
	Limits struct {
		MaxVoxelSizeXY float64 `yaml:"maxVoxelSizeXY"`
		MaxVoxelSizeZ  float64 `yaml:"maxVoxelSizeZ"`
	} `yaml:"limits"`

	// Filters applied to the stack before analysis
	Filters struct {
		// ThresholdPercent zeroes voxels at or below this percentage of the maximum. 0 disables it.
		ThresholdPercent float64 `yaml:"thresholdPercent"`

		// MedianSize is the odd window size of the per-slice median filter. 0 disables it.
		MedianSize int `yaml:"medianSize"`
	} `yaml:"filters"`

	// Output parameters
	Output struct {
		// CSVFile receives one row per analysis, appended
		CSVFile string `yaml:"csvFile"`

		// Database, when set, is a SQLite file that also receives every result
		Database string `yaml:"database"`

		// ProjectionDir, when set, receives a PNG of the depth projection before and after re-alignment
		ProjectionDir string `yaml:"projectionDir"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// LogFormat is text or json
		LogFormat string `yaml:"logFormat"`

		// LogFile, when set, receives a copy of the log
		LogFile string `yaml:"logFile"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Voxel = models.VoxelSize{X: 0.1, Y: 0.1, Z: 1.0}

	cfg.Processing.NumWorkers = runtime.NumCPU()

	cfg.Limits.MaxVoxelSizeXY = DefaultMaxVoxelSizeXY
	cfg.Limits.MaxVoxelSizeZ = DefaultMaxVoxelSizeZ

	cfg.Output.CSVFile = "results.csv"
	cfg.Output.LogFormat = "text"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks settings that would make an analysis fail
func (c *Config) Validate() error {
	var errs []error

	if !c.Voxel.Positive() {
		errs = append(errs, fmt.Errorf("voxel sizes must be positive, got %+v", c.Voxel))
	}
	if c.Processing.NumWorkers < 0 {
		errs = append(errs, fmt.Errorf("numWorkers must not be negative, got %d", c.Processing.NumWorkers))
	}
	if c.Filters.ThresholdPercent < 0 || c.Filters.ThresholdPercent >= 100 {
		errs = append(errs, fmt.Errorf("thresholdPercent must be in [0, 100), got %g", c.Filters.ThresholdPercent))
	}
	if c.Filters.MedianSize < 0 || (c.Filters.MedianSize > 0 && c.Filters.MedianSize%2 == 0) {
		errs = append(errs, fmt.Errorf("medianSize must be 0 or a positive odd number, got %d", c.Filters.MedianSize))
	}
	if _, err := logging.ParseFormat(c.Output.LogFormat); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ValidateVoxelSize checks a voxel size for plausibility. Non-positive sizes
// are an error; sizes above the configured limits only produce warnings, as
// they usually mean the size was entered in the wrong unit.
func (c *Config) ValidateVoxelSize(voxel models.VoxelSize) ([]string, error) {
	if !voxel.Positive() {
		return nil, fmt.Errorf("voxel sizes must be positive, got %+v", voxel)
	}

	var warnings []string
	if voxel.X > c.Limits.MaxVoxelSizeXY {
		warnings = append(warnings, fmt.Sprintf("X voxel size %g µm exceeds %g µm", voxel.X, c.Limits.MaxVoxelSizeXY))
	}
	if voxel.Y > c.Limits.MaxVoxelSizeXY {
		warnings = append(warnings, fmt.Sprintf("Y voxel size %g µm exceeds %g µm", voxel.Y, c.Limits.MaxVoxelSizeXY))
	}
	if voxel.Z > c.Limits.MaxVoxelSizeZ {
		warnings = append(warnings, fmt.Sprintf("Z voxel size %g µm exceeds %g µm", voxel.Z, c.Limits.MaxVoxelSizeZ))
	}
	return warnings, nil
}
