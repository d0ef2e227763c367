package quantify

import (
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"axonspread/internal/models"
	"axonspread/pkg/logging"
)

// StandardizationRotation is the fixed quarter turn applied after alignment
// so that the elongated axis runs along the columns (horizontal)
const StandardizationRotation = 90

// boundsTolerance absorbs floating point error when a sample lands on the source edge
const boundsTolerance = 1e-9

// rotation is the resampling geometry shared by every slice of a volume.
// An output pixel (i, j) samples the source at
//
//	row = c*i - s*j + offRow
//	col = s*i + c*j + offCol
//
// which brings the source direction at the rotation angle (measured from the
// row axis toward the column axis) onto the output row axis.
type rotation struct {
	c, s             float64
	inRows, inCols   int
	outRows, outCols int
	offRow, offCol   float64
}

func newRotation(rows, cols int, angle float64) rotation {
	c, s := cosDeg(angle), sinDeg(angle)

	// Grow the canvas so no corner of the source is clipped
	outRows := int(math.Abs(c)*float64(rows) + math.Abs(s)*float64(cols) + 0.5)
	outCols := int(math.Abs(s)*float64(rows) + math.Abs(c)*float64(cols) + 0.5)

	// Rotate about the centres of both canvases
	outCenterRow := float64(outRows-1) / 2
	outCenterCol := float64(outCols-1) / 2

	return rotation{
		c:       c,
		s:       s,
		inRows:  rows,
		inCols:  cols,
		outRows: outRows,
		outCols: outCols,
		offRow:  float64(rows-1)/2 - (c*outCenterRow - s*outCenterCol),
		offCol:  float64(cols-1)/2 - (s*outCenterRow + c*outCenterCol),
	}
}

// apply resamples one source slice into dst with bilinear interpolation.
// Samples falling outside the source are zero.
func (r rotation) apply(dst, src []float64) {
	for i := 0; i < r.outRows; i++ {
		fi := float64(i)
		for j := 0; j < r.outCols; j++ {
			fj := float64(j)
			row := r.c*fi - r.s*fj + r.offRow
			col := r.s*fi + r.c*fj + r.offCol
			dst[i*r.outCols+j] = r.sample(src, row, col)
		}
	}
}

func (r rotation) sample(src []float64, row, col float64) float64 {
	maxRow := float64(r.inRows - 1)
	maxCol := float64(r.inCols - 1)
	if row < -boundsTolerance || row > maxRow+boundsTolerance ||
		col < -boundsTolerance || col > maxCol+boundsTolerance {
		return 0
	}
	row = math.Min(math.Max(row, 0), maxRow)
	col = math.Min(math.Max(col, 0), maxCol)

	r0 := int(math.Floor(row))
	c0 := int(math.Floor(col))
	fr := row - float64(r0)
	fc := col - float64(c0)
	r1 := r0 + 1
	if r1 >= r.inRows {
		r1 = r.inRows - 1
	}
	c1 := c0 + 1
	if c1 >= r.inCols {
		c1 = r.inCols - 1
	}

	top := (1-fc)*src[r0*r.inCols+c0] + fc*src[r0*r.inCols+c1]
	bottom := (1-fc)*src[r1*r.inCols+c0] + fc*src[r1*r.inCols+c1]
	return (1-fr)*top + fr*bottom
}

// cosDeg and sinDeg are exact at multiples of 90°
func cosDeg(angle float64) float64 {
	return sinDeg(angle + 90)
}

func sinDeg(angle float64) float64 {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	switch a {
	case 0, 180:
		return 0
	case 90:
		return 1
	case 270:
		return -1
	}
	return math.Sin(a * math.Pi / 180)
}

// RotateSlices rotates every depth slice of v by angle degrees in the
// row/column plane and returns a new volume. The canvas grows to hold the
// whole rotated slice; every slice shares the same output shape. Slices are
// independent and are resampled concurrently on up to workers goroutines
// (workers <= 0 means runtime.NumCPU()).
func RotateSlices(v *models.Volume, angle float64, workers int) *models.Volume {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	rot := newRotation(v.Height, v.Width, angle)
	out := models.NewVolume(rot.outRows, rot.outCols, v.Depth)

	var g errgroup.Group
	g.SetLimit(workers)
	for z := 0; z < v.Depth; z++ {
		z := z
		g.Go(func() error {
			// each goroutine owns a disjoint output slice
			rot.apply(out.Slice(z), v.Slice(z))
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// RotateQuarter turns the row/column plane of v by exactly 90° without
// resampling. The source row axis becomes the output column axis:
// out[i, j, z] = in[j, cols-1-i, z].
func RotateQuarter(v *models.Volume) *models.Volume {
	rows, cols := v.Height, v.Width
	out := models.NewVolume(cols, rows, v.Depth)
	for z := 0; z < v.Depth; z++ {
		src := v.Slice(z)
		dst := out.Slice(z)
		for i := 0; i < cols; i++ {
			for j := 0; j < rows; j++ {
				dst[i*rows+j] = src[j*cols+(cols-1-i)]
			}
		}
	}
	return out
}

// RealignStats describes what Realign did to a volume
type RealignStats struct {
	// Angle is the in-plane rotation applied, in degrees
	Angle float64

	// RotatedRows and RotatedCols are the canvas size after the angle rotation
	RotatedRows int
	RotatedCols int

	// IntensityLoss is 1 - sum(rotated)/sum(input). Bilinear resampling makes
	// it small but rarely zero. Zero for an empty input.
	IntensityLoss float64

	// NonZero counts voxels carrying signal after rotation
	NonZero int
}

// Realign rotates v by angle, checks the resampled volume for negative
// values, and applies the fixed quarter turn. The input is not modified.
func Realign(v *models.Volume, angle float64, workers int, logger *slog.Logger) (*models.Volume, RealignStats, error) {
	logger = logging.OrDefault(logger)

	rotated := RotateSlices(v, angle, workers)
	if err := checkNonNegative("rotation", rotated); err != nil {
		return nil, RealignStats{}, err
	}

	stats := RealignStats{
		Angle:       angle,
		RotatedRows: rotated.Height,
		RotatedCols: rotated.Width,
	}
	before := floats.Sum(v.Data)
	after := floats.Sum(rotated.Data)
	if before > 0 {
		stats.IntensityLoss = 1 - after/before
	}
	for _, value := range rotated.Data {
		if value != 0 {
			stats.NonZero++
		}
	}

	logger.Debug("rotation complete",
		"slices", v.Depth,
		"angle", angle,
		"shape", rotated.String(),
		"intensity_loss_pct", stats.IntensityLoss*100,
		"non_zero", stats.NonZero)

	standardized := RotateQuarter(rotated)
	logger.Debug("standardization rotation applied",
		"degrees", StandardizationRotation,
		"shape", standardized.String())

	return standardized, stats, nil
}
