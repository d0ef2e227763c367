// Package visualization renders volumes as grayscale images for visual
// inspection of a stack before and after re-alignment.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"axonspread/internal/models"
	"axonspread/pkg/quantify"
)

// Viewer extracts 2D views from a volume. Intensities are scaled so the
// brightest voxel of the volume maps to full white.
type Viewer struct {
	// volume holds the intensities being viewed
	volume *models.Volume

	// maxValue is the intensity mapped to white
	maxValue float64
}

// NewViewer creates a new viewer over v
func NewViewer(v *models.Volume) *Viewer {
	maxValue := 0.0
	if len(v.Data) > 0 {
		maxValue = floats.Max(v.Data)
	}
	return &Viewer{
		volume:   v,
		maxValue: maxValue,
	}
}

// gray converts an intensity to a 16-bit gray level relative to max
func gray(value, max float64) color.Gray16 {
	if max <= 0 {
		return color.Gray16{}
	}
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, value/max*65535)))}
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis.
// An "x" slice is a (row, depth) image, "y" is (column, depth) and "z" is an
// ordinary (column, row) slice.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	vol := v.volume
	var img *image.Gray16

	switch axis {
	case "x", "X":
		if position >= vol.Width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, vol.Width)
		}
		img = image.NewGray16(image.Rect(0, 0, vol.Depth, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for z := 0; z < vol.Depth; z++ {
				img.SetGray16(z, y, gray(vol.At(y, position, z), v.maxValue))
			}
		}

	case "y", "Y":
		if position >= vol.Height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, vol.Height)
		}
		img = image.NewGray16(image.Rect(0, 0, vol.Width, vol.Depth))
		for z := 0; z < vol.Depth; z++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray16(x, z, gray(vol.At(position, x, z), v.maxValue))
			}
		}

	case "z", "Z":
		if position >= vol.Depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, vol.Depth)
		}
		img = image.NewGray16(image.Rect(0, 0, vol.Width, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray16(x, y, gray(vol.At(y, x, position), v.maxValue))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// Projection renders the depth projection (sum over all slices), scaled to
// its own maximum
func (v *Viewer) Projection() image.Image {
	vol := v.volume
	projection := quantify.DepthProjection(vol)
	maxValue := 0.0
	if len(projection) > 0 {
		maxValue = floats.Max(projection)
	}

	img := image.NewGray16(image.Rect(0, 0, vol.Width, vol.Height))
	for y := 0; y < vol.Height; y++ {
		for x := 0; x < vol.Width; x++ {
			img.SetGray16(x, y, gray(projection[y*vol.Width+x], maxValue))
		}
	}
	return img
}

// SaveSlice saves an image as PNG
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return err
	}
	return file.Close()
}

// SaveProjection writes the depth projection to filename, creating its directory
func (v *Viewer) SaveProjection(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	return v.SaveSlice(v.Projection(), filename)
}

// SaveSliceSequence extracts and saves a sequence of slices along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.volume.Width
	case "y", "Y":
		maxPos = v.volume.Height
	case "z", "Z":
		maxPos = v.volume.Depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
