package quantify

import (
	"math"

	"axonspread/internal/models"
	"axonspread/pkg/logging"
)

// newEllipsoid fills a (rows, cols, depth) volume with a solid ellipsoid of
// semi-axes (a, b, c) µm along (X, Y, Z), rotated by thetaDeg in the XY
// plane, centred in the volume.
func newEllipsoid(rows, cols, depth int, voxel models.VoxelSize, a, b, c, thetaDeg, intensity float64) *models.Volume {
	v := models.NewVolume(rows, cols, depth)
	theta := thetaDeg * math.Pi / 180
	cosT, sinT := math.Cos(theta), math.Sin(theta)
	cy := float64(rows-1) / 2
	cx := float64(cols-1) / 2
	cz := float64(depth-1) / 2

	for z := 0; z < depth; z++ {
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				px := (float64(x) - cx) * voxel.X
				py := (float64(y) - cy) * voxel.Y
				pz := (float64(z) - cz) * voxel.Z

				// coordinates in the ellipsoid's own frame
				u := px*cosT + py*sinT
				w := -px*sinT + py*cosT

				if (u/a)*(u/a)+(w/b)*(w/b)+(pz/c)*(pz/c) <= 1 {
					v.Set(y, x, z, intensity)
				}
			}
		}
	}
	return v
}

// newSphere fills a cube of side size with a solid sphere of the given radius in voxels
func newSphere(size int, radius float64) *models.Volume {
	v := models.NewVolume(size, size, size)
	center := float64(size-1) / 2
	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				dx := float64(x) - center
				dy := float64(y) - center
				dz := float64(z) - center
				if math.Sqrt(dx*dx+dy*dy+dz*dz) <= radius {
					v.Set(y, x, z, 1.0)
				}
			}
		}
	}
	return v
}

// newBar draws a solid box of ones spanning rows [r0, r1) and columns [c0, c1) in every slice
func newBar(rows, cols, depth, r0, r1, c0, c1 int) *models.Volume {
	v := models.NewVolume(rows, cols, depth)
	for z := 0; z < depth; z++ {
		for y := r0; y < r1; y++ {
			for x := c0; x < c1; x++ {
				v.Set(y, x, z, 1.0)
			}
		}
	}
	return v
}

func scaled(v *models.Volume, k float64) *models.Volume {
	out := v.Clone()
	for i := range out.Data {
		out.Data[i] *= k
	}
	return out
}

func testProcessor(voxel models.VoxelSize) *Processor {
	return NewProcessor(Params{Voxel: voxel, NumWorkers: 4, Logger: logging.Discard()})
}

func relDiff(a, b float64) float64 {
	if a == b {
		return 0
	}
	return math.Abs(a-b) / math.Max(math.Abs(a), math.Abs(b))
}

// angleDiff is the distance between two axis orientations, modulo 180°
func angleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 180)
	return math.Min(d, 180-d)
}
