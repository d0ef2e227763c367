package filter

import (
	"context"
	"testing"

	"axonspread/internal/models"
)

func volumeOf(rows, cols int, values ...float64) *models.Volume {
	v := models.NewVolume(rows, cols, len(values)/(rows*cols))
	copy(v.Data, values)
	return v
}

func TestThreshold(t *testing.T) {
	v := volumeOf(2, 3, 0, 5, 10, 20, 50, 100)

	out, err := Threshold(v, 10)
	if err != nil {
		t.Fatalf("Threshold failed: %v", err)
	}
	expected := []float64{0, 0, 0, 20, 50, 100}
	for i, want := range expected {
		if out.Data[i] != want {
			t.Errorf("Index %d: expected %v, got %v", i, want, out.Data[i])
		}
	}
	if v.Data[2] != 10 {
		t.Error("Expected Threshold to leave the input untouched")
	}

	zero, err := Threshold(v, 0)
	if err != nil {
		t.Fatalf("Threshold failed: %v", err)
	}
	if zero.Data[1] != 5 || zero.Data[0] != 0 {
		t.Errorf("Expected 0%% to only clear zeros, got %v", zero.Data)
	}

	for _, bad := range []float64{-1, 100, 150} {
		if _, err := Threshold(v, bad); err == nil {
			t.Errorf("Threshold(%v): expected an error", bad)
		}
	}
}

func TestMirror(t *testing.T) {
	tests := []struct {
		i, n, expected int
	}{
		{0, 4, 0},
		{3, 4, 3},
		{-1, 4, 0},
		{-2, 4, 1},
		{4, 4, 3},
		{5, 4, 2},
		{-3, 1, 0},
	}
	for _, tt := range tests {
		if got := mirror(tt.i, tt.n); got != tt.expected {
			t.Errorf("mirror(%d, %d): expected %d, got %d", tt.i, tt.n, tt.expected, got)
		}
	}
}

func TestMedianRemovesSpike(t *testing.T) {
	v := models.NewVolume(5, 5, 2)
	for i := range v.Data {
		v.Data[i] = 3
	}
	v.Set(2, 2, 0, 1000)
	v.Set(0, 0, 1, 1000)

	out, err := Median(context.Background(), v, 3, 2)
	if err != nil {
		t.Fatalf("Median failed: %v", err)
	}
	for i, value := range out.Data {
		if value != 3 {
			t.Fatalf("Index %d: expected spike removed (3), got %v", i, value)
		}
	}
	if v.At(2, 2, 0) != 1000 {
		t.Error("Expected Median to leave the input untouched")
	}
}

func TestMedianKeepsEdges(t *testing.T) {
	// a step edge survives a median filter
	v := volumeOf(3, 4,
		0, 0, 9, 9,
		0, 0, 9, 9,
		0, 0, 9, 9)

	out, err := Median(context.Background(), v, 3, 1)
	if err != nil {
		t.Fatalf("Median failed: %v", err)
	}
	for i := range v.Data {
		if out.Data[i] != v.Data[i] {
			t.Errorf("Index %d: expected %v, got %v", i, v.Data[i], out.Data[i])
		}
	}
}

func TestMedianIdentityAndErrors(t *testing.T) {
	v := volumeOf(2, 2, 4, 1, 3, 2)
	out, err := Median(context.Background(), v, 1, 0)
	if err != nil {
		t.Fatalf("Median failed: %v", err)
	}
	for i := range v.Data {
		if out.Data[i] != v.Data[i] {
			t.Errorf("Expected size 1 to be the identity, got %v", out.Data)
		}
	}

	for _, size := range []int{0, 2, -3} {
		if _, err := Median(context.Background(), v, size, 0); err == nil {
			t.Errorf("Median size %d: expected an error", size)
		}
	}
}

func TestMedianCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Median(ctx, models.NewVolume(4, 4, 3), 3, 1); err == nil {
		t.Error("Expected an error for a cancelled context")
	}
}
