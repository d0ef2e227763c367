package quantify

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"axonspread/internal/models"
)

// Convention selects the axis the profiler walks along
type Convention int

const (
	// ConventionColumns walks the columns of a realigned volume, where the
	// elongation is horizontal. Transverse-1 is the row axis.
	ConventionColumns Convention = iota

	// ConventionRows walks the rows, the convention used before the
	// standardization quarter turn existed. Transverse-1 is the column axis.
	ConventionRows
)

func (c Convention) String() string {
	switch c {
	case ConventionColumns:
		return "columns"
	case ConventionRows:
		return "rows"
	default:
		return "unknown"
	}
}

// SpreadProfile holds the per-position signal along the elongated axis.
// All four sequences have the same length. Positions without signal carry NaN
// in both variance sequences.
type SpreadProfile struct {
	// Positions are the 1-indexed coordinates along the elongated axis
	Positions []float64

	// Sum is the total intensity of the slab at each position
	Sum []float64

	// VarTransverse1 is the weighted variance of the in-plane transverse coordinate
	VarTransverse1 []float64

	// VarTransverse2 is the weighted variance of the depth coordinate
	VarTransverse2 []float64

	// Convention records which axis was walked
	Convention Convention
}

// Len returns the number of positions
func (p SpreadProfile) Len() int {
	return len(p.Positions)
}

// Valid reports whether position i carries signal and therefore defined variances
func (p SpreadProfile) Valid(i int) bool {
	return p.Sum[i] > 0 && !math.IsNaN(p.VarTransverse1[i]) && !math.IsNaN(p.VarTransverse2[i])
}

// Total returns the summed intensity over all positions
func (p SpreadProfile) Total() float64 {
	return floats.Sum(p.Sum)
}

// oneIndexed returns 1, 2, ..., n
func oneIndexed(n int) []float64 {
	coords := make([]float64, n)
	for i := range coords {
		coords[i] = float64(i + 1)
	}
	return coords
}

// weightedVariance returns the population variance of x under weights w that sum to total
func weightedVariance(x, w []float64, total float64) float64 {
	mean := stat.Mean(x, w)
	var ss float64
	for i, xi := range x {
		d := xi - mean
		ss += w[i] * d * d
	}
	return ss / total
}

// LocalSpreads computes, for every position along the axis chosen by
// convention, the slab intensity and the intensity-weighted variances of the
// two transverse coordinates (in-plane and depth).
//
// A position with no signal never gets a spread value: its variances are NaN
// so the aggregator can skip it rather than count a zero spread.
func LocalSpreads(v *models.Volume, convention Convention) SpreadProfile {
	rows, cols, depth := v.Shape()

	positions, transverse := cols, rows
	if convention == ConventionRows {
		positions, transverse = rows, cols
	}

	profile := SpreadProfile{
		Positions:      oneIndexed(positions),
		Sum:            make([]float64, positions),
		VarTransverse1: make([]float64, positions),
		VarTransverse2: make([]float64, positions),
		Convention:     convention,
	}

	transverseCoords := oneIndexed(transverse)
	depthCoords := oneIndexed(depth)

	// Marginals of the slab at one position, reused across positions
	transverseMarginal := make([]float64, transverse)
	depthMarginal := make([]float64, depth)

	for i := 0; i < positions; i++ {
		for k := range transverseMarginal {
			transverseMarginal[k] = 0
		}
		for z := 0; z < depth; z++ {
			plane := v.Slice(z)
			var planeSum float64
			for k := 0; k < transverse; k++ {
				var value float64
				if convention == ConventionRows {
					value = plane[i*cols+k]
				} else {
					value = plane[k*cols+i]
				}
				transverseMarginal[k] += value
				planeSum += value
			}
			depthMarginal[z] = planeSum
		}

		sum := floats.Sum(depthMarginal)
		profile.Sum[i] = sum
		if sum > 0 {
			profile.VarTransverse1[i] = weightedVariance(transverseCoords, transverseMarginal, sum)
			profile.VarTransverse2[i] = weightedVariance(depthCoords, depthMarginal, sum)
		} else {
			profile.VarTransverse1[i] = math.NaN()
			profile.VarTransverse2[i] = math.NaN()
		}
	}

	return profile
}
