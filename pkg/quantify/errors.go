package quantify

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"axonspread/internal/models"
)

var (
	// ErrNegativeIntensity is matched by every NegativeIntensityError
	ErrNegativeIntensity = errors.New("negative intensity")

	// ErrInvalidRegionArea reports a region of interest area that is not positive
	ErrInvalidRegionArea = errors.New("region area must be positive")

	// ErrInvalidVoxelSize reports a voxel size that is not positive
	ErrInvalidVoxelSize = errors.New("voxel sizes must be positive")

	// ErrEmptyVolume reports a volume with a zero-sized dimension
	ErrEmptyVolume = errors.New("volume has a zero-sized dimension")

	// ErrShapeMismatch reports a fluorescence channel whose shape differs from the analyzed volume
	ErrShapeMismatch = errors.New("fluorescence channel shape does not match volume")
)

// NegativeIntensityError is returned when a volume holds negative values.
// Negative intensity means an upstream defect (bad filter, bad resampling),
// so the pipeline aborts instead of clamping.
type NegativeIntensityError struct {
	// Stage is "input" or "rotation"
	Stage string

	// Count is the number of negative voxels
	Count int

	// Min is the most negative value found
	Min float64
}

func (e *NegativeIntensityError) Error() string {
	return fmt.Sprintf("%s volume contains %d negative values (min %g)", e.Stage, e.Count, e.Min)
}

// Is makes errors.Is(err, ErrNegativeIntensity) succeed
func (e *NegativeIntensityError) Is(target error) bool {
	return target == ErrNegativeIntensity
}

// checkNonNegative returns a NegativeIntensityError when any voxel of v is below zero
func checkNonNegative(stage string, v *models.Volume) error {
	if len(v.Data) == 0 {
		return nil
	}
	min := floats.Min(v.Data)
	if min >= 0 {
		return nil
	}
	count := 0
	for _, value := range v.Data {
		if value < 0 {
			count++
		}
	}
	return &NegativeIntensityError{Stage: stage, Count: count, Min: min}
}
