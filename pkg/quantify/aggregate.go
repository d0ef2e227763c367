package quantify

import (
	"math"

	"axonspread/internal/models"
)

// Spreads holds the global spread metrics at full precision
type Spreads struct {
	XPixel, YPixel, ZPixel float64
	XYPixel, XYZPixel      float64

	XUm, YUm, ZUm float64
	XYUm, XYZUm   float64

	// AxonalVolume is the integrated intensity, not a geometric volume
	AxonalVolume float64
}

// GlobalSpreads reduces a profile into scalar spreads in pixel and physical
// units.
//
// X is the intensity-weighted standard deviation of position along the
// elongated axis. Y and Z are the square roots of the intensity-weighted mean
// of the local transverse variances; positions with NaN variances add nothing
// to the numerator while the denominator stays the full profile total. An
// empty profile gives all zeros.
func GlobalSpreads(p SpreadProfile, voxel models.VoxelSize) Spreads {
	total := p.Total()
	if total == 0 {
		return Spreads{}
	}

	varX := weightedVariance(p.Positions, p.Sum, total)

	var weightedY, weightedZ float64
	for i, sum := range p.Sum {
		if !math.IsNaN(p.VarTransverse1[i]) {
			weightedY += p.VarTransverse1[i] * sum
		}
		if !math.IsNaN(p.VarTransverse2[i]) {
			weightedZ += p.VarTransverse2[i] * sum
		}
	}

	s := Spreads{
		XPixel:       math.Sqrt(varX),
		YPixel:       math.Sqrt(weightedY / total),
		ZPixel:       math.Sqrt(weightedZ / total),
		AxonalVolume: total,
	}

	s.XUm = s.XPixel * voxel.X
	s.YUm = s.YPixel * voxel.Y
	s.ZUm = s.ZPixel * voxel.Z

	s.XYPixel = s.XPixel * s.YPixel
	s.XYZPixel = s.XPixel * s.YPixel * s.ZPixel
	s.XYUm = s.XUm * s.YUm
	s.XYZUm = s.XUm * s.YUm * s.ZUm

	return s
}
