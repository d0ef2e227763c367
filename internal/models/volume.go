package models

import (
	"fmt"
	"strings"
)

// VoxelSize is the physical extent of one voxel in micrometres along each axis
type VoxelSize struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Positive reports whether all three scale factors are strictly positive
func (v VoxelSize) Positive() bool {
	return v.X > 0 && v.Y > 0 && v.Z > 0
}

// Scale returns a copy with each axis multiplied by the matching factor
func (v VoxelSize) Scale(kx, ky, kz float64) VoxelSize {
	return VoxelSize{X: v.X * kx, Y: v.Y * ky, Z: v.Z * kz}
}

// Volume is a 3D intensity stack indexed as (row, column, depth) = (Y, X, Z).
//
// Data is stored slice by slice: the voxel at row y, column x and depth z lives
// at Data[z*Width*Height + y*Width + x]. Each depth slice is therefore a
// contiguous Width*Height block, which keeps per-slice work cache friendly.
type Volume struct {
	// Data holds the intensities in slice-major order
	Data []float64

	// Width is the number of columns (X)
	Width int

	// Height is the number of rows (Y)
	Height int

	// Depth is the number of slices (Z)
	Depth int
}

// NewVolume allocates a zero-filled volume
func NewVolume(height, width, depth int) *Volume {
	return &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// Index returns the position of (y, x, z) in Data
func (v *Volume) Index(y, x, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// At returns the intensity at row y, column x, slice z
func (v *Volume) At(y, x, z int) float64 {
	return v.Data[v.Index(y, x, z)]
}

// Set stores an intensity at row y, column x, slice z
func (v *Volume) Set(y, x, z int, value float64) {
	v.Data[v.Index(y, x, z)] = value
}

// Slice returns the backing storage of depth slice z (rows*cols values, row-major).
// The returned slice aliases the volume.
func (v *Volume) Slice(z int) []float64 {
	n := v.Width * v.Height
	return v.Data[z*n : (z+1)*n]
}

// Shape returns (rows, columns, depth)
func (v *Volume) Shape() (int, int, int) {
	return v.Height, v.Width, v.Depth
}

// Len returns the number of voxels
func (v *Volume) Len() int {
	return v.Width * v.Height * v.Depth
}

// Empty reports whether any dimension is zero
func (v *Volume) Empty() bool {
	return v.Width <= 0 || v.Height <= 0 || v.Depth <= 0
}

// Clone returns a deep copy
func (v *Volume) Clone() *Volume {
	out := &Volume{
		Data:   make([]float64, len(v.Data)),
		Width:  v.Width,
		Height: v.Height,
		Depth:  v.Depth,
	}
	copy(out.Data, v.Data)
	return out
}

// SameShape reports whether two volumes have identical dimensions
func (v *Volume) SameShape(o *Volume) bool {
	return v.Width == o.Width && v.Height == o.Height && v.Depth == o.Depth
}

func (v *Volume) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.Height, v.Width, v.Depth)
}

// Layout names the axis order in which a caller supplied a Volume's dimensions.
type Layout int

const (
	// LayoutYXZ is the canonical (row, column, depth) order. Nothing is reordered.
	LayoutYXZ Layout = iota

	// LayoutZYX means the caller's Height was really depth, Width rows and Depth
	// columns, as produced by loaders that stack slices along the first axis.
	LayoutZYX

	// LayoutAuto guesses: when the first extent (Height) is smaller than the last
	// (Depth) the volume is assumed to be ZYX. This is a heuristic only. A thin
	// field imaged with more slices than rows is silently mis-transposed, so
	// prefer an explicit layout whenever the source is known.
	LayoutAuto
)

func (l Layout) String() string {
	switch l {
	case LayoutYXZ:
		return "yxz"
	case LayoutZYX:
		return "zyx"
	case LayoutAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// ParseLayout converts a layout name ("yxz", "zyx", "auto") to a Layout
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yxz":
		return LayoutYXZ, nil
	case "zyx":
		return LayoutZYX, nil
	case "auto":
		return LayoutAuto, nil
	default:
		return LayoutYXZ, fmt.Errorf("unknown layout %q (must be yxz, zyx or auto)", s)
	}
}

// PermuteZYX reinterprets a volume whose dimensions were given in (Z, Y, X)
// order and returns a new canonical (Y, X, Z) volume. In the input, Height
// counts slices, Width counts rows and Depth counts columns.
func PermuteZYX(in *Volume) *Volume {
	slices, rows, cols := in.Height, in.Width, in.Depth
	out := NewVolume(rows, cols, slices)
	for z := 0; z < slices; z++ {
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				// input index (row=z, col=y, depth=x)
				out.Set(y, x, z, in.At(z, y, x))
			}
		}
	}
	return out
}

// Canonical returns v in (Y, X, Z) order according to layout. The second
// return value reports whether the axes were reordered. The input is never
// modified; when no reordering happens the same pointer is returned.
func Canonical(v *Volume, layout Layout) (*Volume, bool) {
	switch layout {
	case LayoutZYX:
		return PermuteZYX(v), true
	case LayoutAuto:
		if v.Height < v.Depth {
			return PermuteZYX(v), true
		}
		return v, false
	default:
		return v, false
	}
}
