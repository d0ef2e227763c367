// Package stack assembles a directory of 2D slice images into a volume.
//
// Slices are ordered by the number embedded in their file names, so
// "slice_2.tif" comes before "slice_10.tif". TIFF, PNG and JPEG files are
// recognised by extension; anything else in the directory is ignored.
// Intensities keep the native bit depth of the source: 8-bit images give
// values in [0, 255] and 16-bit images values in [0, 65535].
package stack

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
	_ "golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"

	"axonspread/internal/models"
	"axonspread/pkg/logging"
)

var (
	// ErrNoSlices is returned when a directory holds no supported image
	ErrNoSlices = errors.New("no slice images found")

	// ErrSliceSize is returned when slices do not share the same dimensions
	ErrSliceSize = errors.New("slice dimensions differ")

	// ErrInvalidRange is returned by SubRange for a bad depth range
	ErrInvalidRange = errors.New("invalid depth range")
)

var supportedExt = map[string]bool{
	".tif":  true,
	".tiff": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ListSlices returns the supported image files of dir in slice order
func ListSlices(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if supportedExt[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSlices, dir)
	}

	sort.Slice(files, func(i, j int) bool {
		numI := extractNumber(files[i])
		numJ := extractNumber(files[j])
		if numI != numJ {
			return numI < numJ
		}
		return files[i] < files[j]
	})

	for i := range files {
		files[i] = filepath.Join(dir, files[i])
	}
	return files, nil
}

// LoadSlices decodes every slice of dir into a (rows, columns, slices)
// volume. Files are decoded concurrently on up to workers goroutines
// (workers <= 0 means one per slice).
func LoadSlices(ctx context.Context, dir string, workers int, logger *slog.Logger) (*models.Volume, error) {
	logger = logging.OrDefault(logger)

	files, err := ListSlices(dir)
	if err != nil {
		return nil, err
	}

	images := make([]image.Image, len(files))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := loadImage(path)
			if err != nil {
				return fmt.Errorf("failed to load image %s: %w", filepath.Base(path), err)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bounds := images[0].Bounds()
	v := models.NewVolume(bounds.Dy(), bounds.Dx(), len(images))
	for z, img := range images {
		b := img.Bounds()
		if b.Dx() != v.Width || b.Dy() != v.Height {
			return nil, fmt.Errorf("%w: %s is %dx%d, expected %dx%d",
				ErrSliceSize, filepath.Base(files[z]), b.Dx(), b.Dy(), v.Width, v.Height)
		}
		imageToFloat(v.Slice(z), img)
	}

	logger.Info("loaded slices", "count", v.Depth, "width", v.Width, "height", v.Height, "dir", dir)
	return v, nil
}

// Digest returns the hex BLAKE3 digest of the slice files of dir, hashed
// in slice order. It identifies the exact input of an analysis.
func Digest(dir string) (string, error) {
	files, err := ListSlices(dir)
	if err != nil {
		return "", err
	}

	h := blake3.New()
	for _, path := range files {
		if err := hashFile(h, path); err != nil {
			return "", fmt.Errorf("failed to hash %s: %w", filepath.Base(path), err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// name then content, so slice boundaries are part of the digest
	if _, err := io.WriteString(w, filepath.Base(path)+"\x00"); err != nil {
		return err
	}
	_, err = io.Copy(w, file)
	return err
}

// SubRange returns a copy of slices zStart through zEnd, both inclusive
func SubRange(v *models.Volume, zStart, zEnd int) (*models.Volume, error) {
	if zStart < 0 || zStart >= zEnd || zEnd >= v.Depth {
		return nil, fmt.Errorf("%w: [%d, %d] with %d slices (need 0 <= start < end < %d)",
			ErrInvalidRange, zStart, zEnd, v.Depth, v.Depth)
	}

	out := models.NewVolume(v.Height, v.Width, zEnd-zStart+1)
	for z := zStart; z <= zEnd; z++ {
		copy(out.Slice(z-zStart), v.Slice(z))
	}
	return out, nil
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}

// loadImage decodes an image file with whichever registered decoder matches
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// imageToFloat writes the grey level of img into dst (row-major)
func imageToFloat(dst []float64, img image.Image) {
	bounds := img.Bounds()
	width := bounds.Dx()

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < bounds.Dy(); y++ {
			for x := 0; x < width; x++ {
				dst[y*width+x] = float64(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
	case *image.Gray16:
		for y := 0; y < bounds.Dy(); y++ {
			for x := 0; x < width; x++ {
				dst[y*width+x] = float64(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
	default:
		// colour images are reduced to luminance at their own bit depth
		deep := is16Bit(img)
		for y := 0; y < bounds.Dy(); y++ {
			for x := 0; x < width; x++ {
				g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16).Y
				if deep {
					dst[y*width+x] = float64(g)
				} else {
					dst[y*width+x] = float64(g >> 8)
				}
			}
		}
	}
}

func is16Bit(img image.Image) bool {
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64:
		return true
	}
	return false
}
