// Package filter implements the clean-up filters applied to a stack before
// quantification. Both filters return a new volume and never produce
// negative values from non-negative input.
package filter

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"axonspread/internal/models"
)

// Threshold returns a copy of v where every voxel at or below percent% of the
// volume maximum is set to zero
func Threshold(v *models.Volume, percent float64) (*models.Volume, error) {
	if percent < 0 || percent >= 100 {
		return nil, fmt.Errorf("threshold percent must be in [0, 100), got %g", percent)
	}

	out := v.Clone()
	if len(out.Data) == 0 {
		return out, nil
	}

	cutoff := percent / 100 * floats.Max(out.Data)
	for i, value := range out.Data {
		if value <= cutoff {
			out.Data[i] = 0
		}
	}
	return out, nil
}

// Median returns a copy of v with a size x size median filter applied to
// each depth slice independently. Borders are handled by mirroring about the
// edge (d c b a | a b c d). size must be odd; size 1 is the identity.
// Slices are filtered concurrently on up to workers goroutines.
func Median(ctx context.Context, v *models.Volume, size, workers int) (*models.Volume, error) {
	if size < 1 || size%2 == 0 {
		return nil, fmt.Errorf("median size must be a positive odd number, got %d", size)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := models.NewVolume(v.Height, v.Width, v.Depth)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for z := 0; z < v.Depth; z++ {
		z := z
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			medianSlice(out.Slice(z), v.Slice(z), v.Height, v.Width, size)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func medianSlice(dst, src []float64, rows, cols, size int) {
	half := size / 2
	window := make([]float64, size*size)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			n := 0
			for di := -half; di <= half; di++ {
				r := mirror(i+di, rows)
				for dj := -half; dj <= half; dj++ {
					window[n] = src[r*cols+mirror(j+dj, cols)]
					n++
				}
			}
			sort.Float64s(window)
			dst[i*cols+j] = stat.Quantile(0.5, stat.Empirical, window, nil)
		}
	}
}

// mirror maps an out-of-range index back into [0, n) by mirroring about the edges
func mirror(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
