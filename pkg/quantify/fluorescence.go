package quantify

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"axonspread/internal/models"
)

// Fluorescence normalizes the total signal of v by the region of interest area.
//
// It returns the intensity per pixel of ROI area and the intensity per µm² of
// ROI area (area scaled by voxel.X*voxel.Y). Both values are rounded to two
// decimals for reporting.
func Fluorescence(v *models.Volume, regionArea float64, voxel models.VoxelSize) (float64, float64, error) {
	if !(regionArea > 0) {
		return 0, 0, fmt.Errorf("%w: got %g", ErrInvalidRegionArea, regionArea)
	}
	if !voxel.Positive() {
		return 0, 0, fmt.Errorf("%w: got %+v", ErrInvalidVoxelSize, voxel)
	}

	total := floats.Sum(v.Data)
	fluorPx := total / regionArea
	fluorUm := total / (regionArea * voxel.X * voxel.Y)

	return round2(fluorPx), round2(fluorUm), nil
}

// round2 rounds to two decimal places
func round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return math.Round(x*100) / 100
}
