package quantify

import (
	"errors"
	"testing"

	"axonspread/internal/models"
)

func TestFluorescence(t *testing.T) {
	v := models.NewVolume(4, 4, 2)
	for i := range v.Data {
		v.Data[i] = 3
	}
	// total = 96
	voxel := models.VoxelSize{X: 0.5, Y: 0.25, Z: 1}

	areas := []float64{1, 7, 12.5, 1000}
	for _, area := range areas {
		px, um, err := Fluorescence(v, area, voxel)
		if err != nil {
			t.Fatalf("Fluorescence(area=%g) returned error: %v", area, err)
		}
		if want := round2(96 / area); px != want {
			t.Errorf("area %g: expected fluorescence per pixel %f, got %f", area, want, px)
		}
		if want := round2(96 / (area * 0.125)); um != want {
			t.Errorf("area %g: expected fluorescence per µm² %f, got %f", area, want, um)
		}
	}
}

func TestFluorescenceInvalidInput(t *testing.T) {
	v := models.NewVolume(2, 2, 1)
	if _, _, err := Fluorescence(v, 0, models.VoxelSize{X: 1, Y: 1, Z: 1}); !errors.Is(err, ErrInvalidRegionArea) {
		t.Errorf("Expected ErrInvalidRegionArea for zero area, got %v", err)
	}
	if _, _, err := Fluorescence(v, -5, models.VoxelSize{X: 1, Y: 1, Z: 1}); !errors.Is(err, ErrInvalidRegionArea) {
		t.Errorf("Expected ErrInvalidRegionArea for negative area, got %v", err)
	}
	if _, _, err := Fluorescence(v, 10, models.VoxelSize{X: 0, Y: 1, Z: 1}); !errors.Is(err, ErrInvalidVoxelSize) {
		t.Errorf("Expected ErrInvalidVoxelSize, got %v", err)
	}
}

func TestRound2(t *testing.T) {
	tests := map[float64]float64{
		1.234:  1.23,
		1.236:  1.24,
		-2.5:   -2.5,
		0:      0,
		99.999: 100,
	}
	for in, want := range tests {
		if got := round2(in); got != want {
			t.Errorf("round2(%v): expected %v, got %v", in, want, got)
		}
	}
}
