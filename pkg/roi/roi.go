// Package roi handles the 2D polygonal region of interest drawn on the
// depth projection of a stack.
//
// Vertices are in pixel coordinates with X along columns and Y along rows.
// A pixel belongs to the region when its integer (column, row) position lies
// inside the polygon; the same 2D mask is applied to every depth slice.
package roi

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"axonspread/internal/models"
)

// ErrDegeneratePolygon is returned for polygons with fewer than three
// vertices or no enclosed area
var ErrDegeneratePolygon = errors.New("polygon must have at least three vertices and a non-zero area")

// Point is a polygon vertex in pixel coordinates
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Polygon is a closed polygon; the last vertex connects back to the first
type Polygon []Point

// Area returns the enclosed area in pixels² using the shoelace formula.
// Vertex order does not matter.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	var sum float64
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return math.Abs(sum) / 2
}

// Validate reports whether p can be used as a region of interest
func (p Polygon) Validate() error {
	if len(p) < 3 || p.Area() == 0 {
		return fmt.Errorf("%w: %d vertices, area %g", ErrDegeneratePolygon, len(p), p.Area())
	}
	return nil
}

// Contains reports whether (x, y) lies inside p by the even-odd rule
func (p Polygon) Contains(x, y float64) bool {
	inside := false
	for i, j := 0, len(p)-1; i < len(p); j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a.Y > y) != (b.Y > y) &&
			x < (b.X-a.X)*(y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// Mask returns a row-major width*height mask of the pixels inside p
func (p Polygon) Mask(width, height int) []bool {
	mask := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			mask[y*width+x] = p.Contains(float64(x), float64(y))
		}
	}
	return mask
}

// Apply returns a copy of v with every voxel outside p set to zero, and the
// number of pixels of one slice that lie inside p
func (p Polygon) Apply(v *models.Volume) (*models.Volume, int) {
	mask := p.Mask(v.Width, v.Height)
	inside := 0
	for _, in := range mask {
		if in {
			inside++
		}
	}

	out := v.Clone()
	for z := 0; z < out.Depth; z++ {
		slice := out.Slice(z)
		for i, in := range mask {
			if !in {
				slice[i] = 0
			}
		}
	}
	return out, inside
}

// ParsePoints reads vertices written as "x,y;x,y;..."
func ParsePoints(s string) (Polygon, error) {
	var p Polygon
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid vertex %q: expected x,y", pair)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid x in vertex %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid y in vertex %q: %w", pair, err)
		}
		p = append(p, Point{X: x, Y: y})
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// file is the on-disk form of a region of interest
type file struct {
	Points Polygon `yaml:"points"`
}

// LoadPolygon reads a polygon from a YAML file with a points list
func LoadPolygon(path string) (Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading ROI file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error parsing ROI file: %w", err)
	}
	if err := f.Points.Validate(); err != nil {
		return nil, err
	}
	return f.Points, nil
}

// SavePolygon writes p to path in the format LoadPolygon reads
func SavePolygon(p Polygon, path string) error {
	data, err := yaml.Marshal(file{Points: p})
	if err != nil {
		return fmt.Errorf("error marshaling ROI: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing ROI file: %w", err)
	}
	return nil
}
