package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"axonspread/internal/models"
	"axonspread/pkg/config"
	"axonspread/pkg/filter"
	"axonspread/pkg/logging"
	"axonspread/pkg/quantify"
	"axonspread/pkg/report"
	"axonspread/pkg/roi"
	"axonspread/pkg/stack"
	"axonspread/pkg/store"
	"axonspread/pkg/visualization"
)

// AnalyzeCmd runs the spread quantification on one slice directory.
type AnalyzeCmd struct {
	Input string `arg:"" help:"Directory of slice images (TIFF, PNG or JPEG)" type:"existingdir"`

	VoxelX float64 `name:"voxel-x" help:"Voxel size along X in µm (defaults to the configuration)"`
	VoxelY float64 `name:"voxel-y" help:"Voxel size along Y in µm (defaults to the configuration)"`
	VoxelZ float64 `name:"voxel-z" help:"Voxel size along Z in µm (defaults to the configuration)"`

	ZStart int `name:"z-start" help:"First slice to analyze (inclusive)" default:"-1"`
	ZEnd   int `name:"z-end" help:"Last slice to analyze (inclusive)" default:"-1"`

	ROI     string  `name:"roi" help:"Region of interest polygon as x,y;x,y;..." xor:"roi"`
	ROIFile string  `name:"roi-file" help:"YAML file with the region of interest polygon" type:"existingfile" xor:"roi"`
	Area    float64 `name:"area" help:"Region of interest area in pixels² (defaults to the polygon or slice area)"`

	Threshold float64 `name:"threshold" help:"Zero voxels at or below this percentage of the maximum" default:"-1"`
	Median    int     `name:"median" help:"Median filter window size (odd)" default:"-1"`

	FluorescenceDir string `name:"fluorescence-dir" help:"Directory of a second channel used for fluorescence" type:"existingdir"`

	Output        string `name:"output" short:"o" help:"CSV results file (defaults to the configuration)" type:"path"`
	Database      string `name:"db" help:"SQLite results database (defaults to the configuration)" type:"path"`
	JSON          string `name:"json" help:"Also write the result as JSON to this file (- for stdout)"`
	Observation   string `name:"observation" help:"Free text stored with the result"`
	ProjectionDir string `name:"projection-dir" help:"Write depth projections before and after re-alignment here" type:"path"`
	ExportSlices  string `name:"export-slices" help:"Export the analyzed stack as PNG slices along this axis (x, y or z)"`
}

// applyOverrides copies command flags over the configuration
func (c *AnalyzeCmd) applyOverrides(cfg *config.Config) {
	cfg.Voxel = overrideVoxel(cfg.Voxel, c.VoxelX, c.VoxelY, c.VoxelZ)
	if c.Threshold >= 0 {
		cfg.Filters.ThresholdPercent = c.Threshold
	}
	if c.Median >= 0 {
		cfg.Filters.MedianSize = c.Median
	}
	if c.Output != "" {
		cfg.Output.CSVFile = c.Output
	}
	if c.Database != "" {
		cfg.Output.Database = c.Database
	}
	if c.ProjectionDir != "" {
		cfg.Output.ProjectionDir = c.ProjectionDir
	}
}

// polygon returns the region of interest given on the command line, or nil
func (c *AnalyzeCmd) polygon() (roi.Polygon, error) {
	switch {
	case c.ROI != "":
		return roi.ParsePoints(c.ROI)
	case c.ROIFile != "":
		return roi.LoadPolygon(c.ROIFile)
	}
	return nil, nil
}

func (c *AnalyzeCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	c.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	closeLog, err := logging.Setup(cfg.Output.Verbose, cfg.Output.LogFormat, cfg.Output.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := logging.Logger()

	warnings, err := cfg.ValidateVoxelSize(cfg.Voxel)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logger.Warn("implausible voxel size", "detail", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	startTime := time.Now()
	workers := cfg.Processing.NumWorkers

	v, err := c.loadStack(ctx, c.Input, workers, logger)
	if err != nil {
		return err
	}
	v, err = c.applyFilters(ctx, cfg, v, logger)
	if err != nil {
		return err
	}

	polygon, err := c.polygon()
	if err != nil {
		return err
	}
	area := float64(v.Width * v.Height)
	if polygon != nil {
		var inside int
		v, inside = polygon.Apply(v)
		area = polygon.Area()
		logger.Info("applied region of interest", "vertices", len(polygon), "area", area, "pixels", inside)
	}
	if c.Area > 0 {
		area = c.Area
	}

	params := quantify.Params{
		Voxel:      cfg.Voxel,
		NumWorkers: workers,
		Logger:     logger,
	}
	if c.FluorescenceDir != "" {
		channel, err := c.loadStack(ctx, c.FluorescenceDir, workers, logger)
		if err != nil {
			return fmt.Errorf("fluorescence channel: %w", err)
		}
		if polygon != nil {
			channel, _ = polygon.Apply(channel)
		}
		params.FluorescenceChannel = channel
	}

	result, err := quantify.NewProcessor(params).Process(ctx, v, area)
	if err != nil {
		return err
	}

	record := report.NewRecord(filepath.Base(filepath.Clean(c.Input)), c.Observation, result)
	if record.StackDigest, err = stack.Digest(c.Input); err != nil {
		return err
	}
	if err := report.AppendCSV(cfg.Output.CSVFile, record); err != nil {
		return err
	}
	logger.Info("results saved", "file", cfg.Output.CSVFile, "run_id", record.RunID)

	if cfg.Output.Database != "" {
		if err := saveToDatabase(ctx, cfg.Output.Database, record); err != nil {
			return err
		}
		logger.Info("results stored", "database", cfg.Output.Database)
	}

	if err := c.writeJSON(record); err != nil {
		return err
	}
	if err := c.writeImages(cfg, v, result, logger); err != nil {
		return err
	}

	printSummary(record, time.Since(startTime))
	return nil
}

// loadStack loads a slice directory and cuts it to the requested depth range
func (c *AnalyzeCmd) loadStack(ctx context.Context, dir string, workers int, logger *slog.Logger) (*models.Volume, error) {
	v, err := stack.LoadSlices(ctx, dir, workers, logger)
	if err != nil {
		return nil, err
	}
	if c.ZStart < 0 && c.ZEnd < 0 {
		return v, nil
	}

	zStart, zEnd := c.ZStart, c.ZEnd
	if zStart < 0 {
		zStart = 0
	}
	if zEnd < 0 {
		zEnd = v.Depth - 1
	}
	sub, err := stack.SubRange(v, zStart, zEnd)
	if err != nil {
		return nil, err
	}
	logger.Info("selected depth range", "z_start", zStart, "z_end", zEnd, "slices", sub.Depth)
	return sub, nil
}

// applyFilters runs the configured clean-up filters
func (c *AnalyzeCmd) applyFilters(ctx context.Context, cfg *config.Config, v *models.Volume, logger *slog.Logger) (*models.Volume, error) {
	var err error
	if pct := cfg.Filters.ThresholdPercent; pct > 0 {
		if v, err = filter.Threshold(v, pct); err != nil {
			return nil, err
		}
		logger.Info("applied threshold", "percent", pct)
	}
	if size := cfg.Filters.MedianSize; size > 1 {
		if v, err = filter.Median(ctx, v, size, cfg.Processing.NumWorkers); err != nil {
			return nil, err
		}
		logger.Info("applied median filter", "size", size)
	}
	return v, nil
}

func saveToDatabase(ctx context.Context, path string, record report.Record) error {
	db, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Insert(ctx, record)
}

func (c *AnalyzeCmd) writeJSON(record report.Record) error {
	switch c.JSON {
	case "":
		return nil
	case "-":
		return report.WriteJSON(os.Stdout, record)
	}

	file, err := os.Create(c.JSON)
	if err != nil {
		return fmt.Errorf("error creating JSON file: %w", err)
	}
	defer file.Close()
	if err := report.WriteJSON(file, record); err != nil {
		return err
	}
	return file.Close()
}

// writeImages saves the optional inspection images
func (c *AnalyzeCmd) writeImages(cfg *config.Config, v *models.Volume, result *quantify.SpreadResult, logger *slog.Logger) error {
	if dir := cfg.Output.ProjectionDir; dir != "" {
		if err := visualization.NewViewer(v).SaveProjection(filepath.Join(dir, "projection_input.png")); err != nil {
			return fmt.Errorf("error saving projection: %w", err)
		}
		aligned, _, err := quantify.Realign(v, result.Realignment.Angle, cfg.Processing.NumWorkers, logging.Discard())
		if err != nil {
			return err
		}
		if err := visualization.NewViewer(aligned).SaveProjection(filepath.Join(dir, "projection_aligned.png")); err != nil {
			return fmt.Errorf("error saving projection: %w", err)
		}
		logger.Info("projections saved", "dir", dir)
	}

	if c.ExportSlices != "" {
		dir := filepath.Join(cfg.Output.ProjectionDir, "slices_"+c.ExportSlices)
		if err := visualization.NewViewer(v).SaveSliceSequence(c.ExportSlices, dir); err != nil {
			return fmt.Errorf("error exporting slices: %w", err)
		}
		logger.Info("slices exported", "axis", c.ExportSlices, "dir", dir)
	}
	return nil
}

func printSummary(record report.Record, elapsed time.Duration) {
	r := record.Result
	fmt.Println()
	fmt.Printf("=== Spread Analysis: %s (%.1fs) ===\n", record.ImageName, elapsed.Seconds())
	fmt.Printf("  Rotation angle:  %.2f° (+%g°)\n", r.RotationAngle, r.AdditionalRotation)
	fmt.Printf("  Spread x:        %.2f px  %.2f µm\n", r.SpreadXPixel, r.SpreadXUm)
	fmt.Printf("  Spread y:        %.2f px  %.2f µm\n", r.SpreadYPixel, r.SpreadYUm)
	fmt.Printf("  Spread z:        %.2f px  %.2f µm\n", r.SpreadZPixel, r.SpreadZUm)
	fmt.Printf("  Spread x*y*z:    %.2f px³  %.2f µm³\n", r.SpreadXYZPixel, r.SpreadXYZUm)
	fmt.Printf("  Axonal volume:   %.2f\n", r.AxonalVolume)
	fmt.Printf("  Fluorescence:    %.2f /px  %.2f /µm²\n", r.FluorescencePx, r.FluorescenceUm)
	fmt.Println("==============================")
}
