// Package quantify measures the three-dimensional spread of a segmented
// neuronal projection in a volumetric stack.
//
// The pipeline is linear: fluorescence normalization, principal-axis
// estimation on the depth projection, re-alignment of every slice so the
// projection's major axis runs horizontally, a per-column profile of the
// transverse variances, and aggregation into physically scaled metrics.
// Every call is a pure function of its inputs; nothing is cached between
// calls and the input volume is never modified.
package quantify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"axonspread/internal/models"
	"axonspread/pkg/logging"
)

// Params configures a Processor
type Params struct {
	// Voxel is the physical voxel size in µm
	Voxel models.VoxelSize

	// Layout is the axis order of volumes handed to Process. The zero value is
	// the canonical (row, column, depth) order.
	Layout models.Layout

	// NumWorkers bounds the goroutines used to rotate slices.
	// Zero means runtime.NumCPU().
	NumWorkers int

	// FluorescenceChannel, when set, is used instead of the analyzed volume to
	// compute fluorescence. It must have the same layout and shape.
	FluorescenceChannel *models.Volume

	// Logger receives progress and diagnostics. Nil means the global logger.
	Logger *slog.Logger
}

// SpreadResult is the reported outcome of one pipeline run. Scalars are
// rounded to two decimals.
type SpreadResult struct {
	SpreadXPixel   float64 `json:"spread_x_pixel"`
	SpreadYPixel   float64 `json:"spread_y_pixel"`
	SpreadZPixel   float64 `json:"spread_z_pixel"`
	SpreadXYPixel  float64 `json:"spread_xy_pixel"`
	SpreadXYZPixel float64 `json:"spread_xyz_pixel"`

	SpreadXUm   float64 `json:"spread_x_um"`
	SpreadYUm   float64 `json:"spread_y_um"`
	SpreadZUm   float64 `json:"spread_z_um"`
	SpreadXYUm  float64 `json:"spread_xy_um"`
	SpreadXYZUm float64 `json:"spread_xyz_um"`

	AxonalVolume float64 `json:"axonal_volume"`

	FluorescencePx float64 `json:"fluorescence_px"`
	FluorescenceUm float64 `json:"fluorescence_um"`

	// RotationAngle is the principal-axis rotation applied, in degrees
	RotationAngle float64 `json:"rotation_angle"`

	// AdditionalRotation is the fixed standardization turn, always 90
	AdditionalRotation float64 `json:"additional_rotation"`

	// Profile is kept for diagnostic plots
	Profile SpreadProfile `json:"-"`

	// Realignment describes the resampling step
	Realignment RealignStats `json:"-"`
}

// Result rounds the spreads into a reported record. Fluorescence, angle and
// profile are left for the caller to fill in.
func (s Spreads) Result() SpreadResult {
	return SpreadResult{
		SpreadXPixel:       round2(s.XPixel),
		SpreadYPixel:       round2(s.YPixel),
		SpreadZPixel:       round2(s.ZPixel),
		SpreadXYPixel:      round2(s.XYPixel),
		SpreadXYZPixel:     round2(s.XYZPixel),
		SpreadXUm:          round2(s.XUm),
		SpreadYUm:          round2(s.YUm),
		SpreadZUm:          round2(s.ZUm),
		SpreadXYUm:         round2(s.XYUm),
		SpreadXYZUm:        round2(s.XYZUm),
		AxonalVolume:       round2(s.AxonalVolume),
		AdditionalRotation: StandardizationRotation,
	}
}

// Processor runs the spread quantification pipeline
type Processor struct {
	params Params
	logger *slog.Logger
}

// NewProcessor creates a processor. params is copied.
func NewProcessor(params Params) *Processor {
	if params.NumWorkers <= 0 {
		params.NumWorkers = runtime.NumCPU()
	}
	return &Processor{
		params: params,
		logger: logging.OrDefault(params.Logger),
	}
}

// Process runs the complete pipeline on v, whose 2D region of interest covers
// regionArea pixels.
//
// ctx is only consulted between stages; a slice rotation that has started is
// never interrupted. Negative intensities in the input or after resampling
// abort with a *NegativeIntensityError. A volume without signal is not an
// error and produces an all-zero result.
func (p *Processor) Process(ctx context.Context, v *models.Volume, regionArea float64) (*SpreadResult, error) {
	if v == nil || v.Empty() || len(v.Data) != v.Len() {
		return nil, ErrEmptyVolume
	}
	if !p.params.Voxel.Positive() {
		return nil, fmt.Errorf("%w: got %+v", ErrInvalidVoxelSize, p.params.Voxel)
	}
	if !(regionArea > 0) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidRegionArea, regionArea)
	}

	p.logger.Info("starting spread analysis", "shape", v.String(), "layout", p.params.Layout.String())

	// Step 1: bring the volume into (row, column, depth) order
	image, reordered := models.Canonical(v, p.params.Layout)
	if reordered {
		p.logger.Info("reordered axes to (Y, X, Z)", "shape", image.String())
	}

	// Step 2: reject negative input
	if err := checkNonNegative("input", image); err != nil {
		return nil, err
	}

	// Step 3: fluorescence
	p.logger.Info("step 1/4: calculating fluorescence")
	fluorSource, err := p.fluorescenceSource(image)
	if err != nil {
		return nil, err
	}
	fluorPx, fluorUm, err := Fluorescence(fluorSource, regionArea, p.params.Voxel)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate fluorescence: %w", err)
	}
	p.logger.Debug("fluorescence", "per_pixel", fluorPx, "per_um2", fluorUm)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	// Step 4: principal axis
	p.logger.Info("step 2/4: estimating principal axis")
	axis := EstimatePrincipalAxis(image)
	if axis.Empty {
		p.logger.Warn("empty depth projection, using 0° rotation")
	} else {
		p.logger.Info("principal axis", "angle", axis.Angle)
		p.logger.Debug("covariance eigenvalues", "minor", axis.Eigenvalues[0], "major", axis.Eigenvalues[1])
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	// Step 5: realign (rotation, negative check, quarter turn)
	p.logger.Info("step 3/4: realigning volume")
	aligned, stats, err := Realign(image, axis.Angle, p.params.NumWorkers, p.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to realign volume: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	// Step 6: local and global spreads
	p.logger.Info("step 4/4: calculating spread metrics")
	profile := LocalSpreads(aligned, ConventionColumns)
	spreads := GlobalSpreads(profile, p.params.Voxel)
	if spreads.AxonalVolume == 0 {
		p.logger.Warn("volume carries no signal, reporting zero spreads")
	}

	result := spreads.Result()
	result.FluorescencePx = fluorPx
	result.FluorescenceUm = fluorUm
	result.RotationAngle = round2(axis.Angle)
	result.Profile = profile
	result.Realignment = stats

	p.logger.Info("spread analysis complete",
		"spread_x_um", result.SpreadXUm,
		"spread_y_um", result.SpreadYUm,
		"spread_z_um", result.SpreadZUm,
		"spread_xyz_um", result.SpreadXYZUm,
		"axonal_volume", result.AxonalVolume)

	return &result, nil
}

// fluorescenceSource returns the volume fluorescence is measured on
func (p *Processor) fluorescenceSource(image *models.Volume) (*models.Volume, error) {
	channel := p.params.FluorescenceChannel
	if channel == nil {
		return image, nil
	}
	channel, _ = models.Canonical(channel, p.params.Layout)
	if !channel.SameShape(image) {
		return nil, fmt.Errorf("%w: channel %s, volume %s", ErrShapeMismatch, channel, image)
	}
	if err := checkNonNegative("fluorescence channel", channel); err != nil {
		return nil, err
	}
	return channel, nil
}
