package quantify

import (
	"math"
	"testing"

	"axonspread/internal/models"
)

func TestPrincipalAxisEmpty(t *testing.T) {
	v := models.NewVolume(10, 10, 3)
	est := EstimatePrincipalAxis(v)
	if !est.Empty {
		t.Error("Expected empty estimate for all-zero volume")
	}
	if est.Angle != 0 {
		t.Errorf("Expected 0° for all-zero volume, got %f", est.Angle)
	}
}

func TestPrincipalAxisBars(t *testing.T) {
	tests := []struct {
		name  string
		v     *models.Volume
		angle float64
	}{
		// elongated along columns: major eigenvector is (0, 1) in (row, col)
		{"horizontal bar", newBar(21, 41, 2, 9, 12, 2, 39), 90},
		// elongated along rows: major eigenvector is (1, 0)
		{"vertical bar", newBar(41, 21, 2, 2, 39, 9, 12), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PrincipalAxisAngle(tt.v)
			if angleDiff(got, tt.angle) > 1e-6 {
				t.Errorf("Expected angle %f, got %f", tt.angle, got)
			}
			if got <= -90 || got > 90 {
				t.Errorf("Expected angle in (-90, 90], got %f", got)
			}
		})
	}
}

func TestPrincipalAxisDiagonals(t *testing.T) {
	n := 30
	diag := models.NewVolume(n, n, 1)
	anti := models.NewVolume(n, n, 1)
	for i := 0; i < n; i++ {
		diag.Set(i, i, 0, 1)
		anti.Set(i, n-1-i, 0, 1)
	}

	if got := PrincipalAxisAngle(diag); math.Abs(got-45) > 1e-9 {
		t.Errorf("Expected 45° for the main diagonal, got %f", got)
	}
	if got := PrincipalAxisAngle(anti); math.Abs(got+45) > 1e-9 {
		t.Errorf("Expected -45° for the anti-diagonal, got %f", got)
	}
}

func TestPrincipalAxisEllipsoid(t *testing.T) {
	voxel := models.VoxelSize{X: 0.5, Y: 0.5, Z: 1}
	for _, theta := range []float64{0, 30, 45, 60, 90} {
		v := newEllipsoid(100, 100, 13, voxel, 20, 5, 5, theta, 1)
		est := EstimatePrincipalAxis(v)

		// the ellipsoid's long axis points at theta from the column axis,
		// which is 90-theta from the row axis
		want := 90 - theta
		if d := angleDiff(est.Angle, want); d > 1 {
			t.Errorf("theta=%v: expected angle ~%v, got %f", theta, want, est.Angle)
		}
		if est.Eigenvalues[1] < est.Eigenvalues[0] {
			t.Errorf("theta=%v: expected ascending eigenvalues, got %v", theta, est.Eigenvalues)
		}
	}
}

func TestDepthProjection(t *testing.T) {
	v := models.NewVolume(2, 2, 3)
	for z := 0; z < 3; z++ {
		v.Set(1, 0, z, float64(z+1))
	}
	proj := DepthProjection(v)
	if proj[2] != 6 {
		t.Errorf("Expected projection 6 at (1,0), got %f", proj[2])
	}
	if proj[0] != 0 || proj[1] != 0 || proj[3] != 0 {
		t.Errorf("Expected zeros elsewhere, got %v", proj)
	}
}
