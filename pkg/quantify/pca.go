package quantify

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"axonspread/internal/models"
)

// AxisEstimate is the outcome of the principal-axis analysis of a depth projection
type AxisEstimate struct {
	// Angle is the orientation of the major axis in degrees, measured from the
	// row axis toward the column axis, in (-90, 90]
	Angle float64

	// Eigenvalues of the weighted (row, column) covariance, ascending
	Eigenvalues [2]float64

	// CentroidRow and CentroidCol are the intensity-weighted centre of the projection
	CentroidRow float64
	CentroidCol float64

	// Empty is true when the projection carried no signal
	Empty bool
}

// DepthProjection sums v along depth and returns a rows*cols row-major image
func DepthProjection(v *models.Volume) []float64 {
	projection := make([]float64, v.Width*v.Height)
	for z := 0; z < v.Depth; z++ {
		floats.Add(projection, v.Slice(z))
	}
	return projection
}

// PrincipalAxisAngle returns the rotation angle in degrees that aligns the
// depth projection of v with its axis of maximum extent. An all-zero volume
// yields 0.
func PrincipalAxisAngle(v *models.Volume) float64 {
	return EstimatePrincipalAxis(v).Angle
}

// EstimatePrincipalAxis computes the weighted covariance of the depth
// projection and returns the orientation of its dominant eigenvector.
//
// The angle is atan2 over the raw eigenvector components, so a major axis lying
// exactly along the columns gives 90° without dividing by zero. The eigenvector
// sign is fixed so its row component is non-negative.
func EstimatePrincipalAxis(v *models.Volume) AxisEstimate {
	// Step 1: collapse depth
	projection := DepthProjection(v)

	// Step 2: degenerate projection
	total := floats.Sum(projection)
	if total == 0 {
		return AxisEstimate{Empty: true}
	}

	// Step 3: normalize into weights
	weights := make([]float64, len(projection))
	floats.ScaleTo(weights, 1/total, projection)

	// Step 4: coordinate grids
	rows, cols := v.Height, v.Width
	rowGrid := make([]float64, rows*cols)
	colGrid := make([]float64, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			rowGrid[y*cols+x] = float64(y)
			colGrid[y*cols+x] = float64(x)
		}
	}

	// Step 5: centroid
	meanRow := stat.Mean(rowGrid, weights)
	meanCol := stat.Mean(colGrid, weights)

	// Step 6: covariance around the centroid
	var crr, ccc, crc float64
	for i, w := range weights {
		if w == 0 {
			continue
		}
		dr := rowGrid[i] - meanRow
		dc := colGrid[i] - meanCol
		crr += w * dr * dr
		ccc += w * dc * dc
		crc += w * dr * dc
	}

	// Step 7: eigen-decomposition
	cov := mat.NewSymDense(2, []float64{crr, crc, crc, ccc})
	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return AxisEstimate{CentroidRow: meanRow, CentroidCol: meanCol}
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// EigenSym orders eigenvalues ascending, so column 1 is the major axis
	vr, vc := vectors.At(0, 1), vectors.At(1, 1)
	if vr < 0 || (vr == 0 && vc < 0) {
		vr, vc = -vr, -vc
	}

	return AxisEstimate{
		Angle:       math.Atan2(vc, vr) * 180 / math.Pi,
		Eigenvalues: [2]float64{values[0], values[1]},
		CentroidRow: meanRow,
		CentroidCol: meanCol,
	}
}
