package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"axonspread/internal/models"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Voxel != (models.VoxelSize{X: 0.1, Y: 0.1, Z: 1.0}) {
		t.Errorf("Expected default voxel (0.1, 0.1, 1.0), got %+v", cfg.Voxel)
	}
	if cfg.Processing.NumWorkers <= 0 {
		t.Errorf("Expected positive worker count, got %d", cfg.Processing.NumWorkers)
	}
	if cfg.Limits.MaxVoxelSizeXY != 10 || cfg.Limits.MaxVoxelSizeZ != 50 {
		t.Errorf("Expected limits 10/50, got %v/%v", cfg.Limits.MaxVoxelSizeXY, cfg.Limits.MaxVoxelSizeZ)
	}
	if cfg.Output.CSVFile != "results.csv" {
		t.Errorf("Expected results.csv, got %q", cfg.Output.CSVFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestLoadMissingConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if cfg.Voxel.X != 0.1 {
		t.Errorf("Expected defaults, got %+v", cfg.Voxel)
	}
}

func TestSaveLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Voxel = models.VoxelSize{X: 0.2, Y: 0.3, Z: 2}
	cfg.Processing.NumWorkers = 3
	cfg.Filters.MedianSize = 3
	cfg.Output.ProjectionDir = "proj"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved config: %v", err)
	}
	if !strings.Contains(string(data), "numWorkers: 3") {
		t.Errorf("Expected camelCase keys, got:\n%s", data)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Voxel != cfg.Voxel {
		t.Errorf("Expected voxel %+v, got %+v", cfg.Voxel, loaded.Voxel)
	}
	if loaded.Processing.NumWorkers != 3 {
		t.Errorf("Expected 3 workers, got %d", loaded.Processing.NumWorkers)
	}
	if loaded.Filters.MedianSize != 3 || loaded.Output.ProjectionDir != "proj" {
		t.Errorf("Expected filters and output to survive, got %+v %+v", loaded.Filters, loaded.Output)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "voxel:\n  x: 0.5\n  y: 0.5\n  z: 2\noutput:\n  verbose: true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Voxel.X != 0.5 || cfg.Voxel.Z != 2 {
		t.Errorf("Expected voxel from file, got %+v", cfg.Voxel)
	}
	if !cfg.Output.Verbose {
		t.Error("Expected verbose from file")
	}
	if cfg.Output.CSVFile != "results.csv" {
		t.Errorf("Expected unset keys to keep defaults, got %q", cfg.Output.CSVFile)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("voxel: [1, 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected an error for malformed YAML")
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Limits.MaxVoxelSizeZ != DefaultMaxVoxelSizeZ {
		t.Errorf("Expected default Z limit, got %v", cfg.Limits.MaxVoxelSizeZ)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero voxel", func(c *Config) { c.Voxel.Y = 0 }},
		{"negative workers", func(c *Config) { c.Processing.NumWorkers = -1 }},
		{"threshold too high", func(c *Config) { c.Filters.ThresholdPercent = 100 }},
		{"even median", func(c *Config) { c.Filters.MedianSize = 4 }},
		{"bad log format", func(c *Config) { c.Output.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.modify(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", tt.name)
		}
	}
}

func TestValidateVoxelSize(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		voxel    models.VoxelSize
		warnings int
		wantErr  bool
	}{
		{models.VoxelSize{X: 0.1, Y: 0.1, Z: 1}, 0, false},
		{models.VoxelSize{X: 10, Y: 10, Z: 50}, 0, false},
		{models.VoxelSize{X: 11, Y: 0.1, Z: 1}, 1, false},
		{models.VoxelSize{X: 11, Y: 12, Z: 60}, 3, false},
		{models.VoxelSize{X: 0, Y: 0.1, Z: 1}, 0, true},
		{models.VoxelSize{X: 0.1, Y: 0.1, Z: -1}, 0, true},
	}

	for _, tt := range tests {
		warnings, err := cfg.ValidateVoxelSize(tt.voxel)
		if (err != nil) != tt.wantErr {
			t.Errorf("%+v: expected error %v, got %v", tt.voxel, tt.wantErr, err)
		}
		if len(warnings) != tt.warnings {
			t.Errorf("%+v: expected %d warnings, got %v", tt.voxel, tt.warnings, warnings)
		}
	}
}
