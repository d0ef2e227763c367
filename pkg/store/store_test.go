package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"axonspread/pkg/quantify"
	"axonspread/pkg/report"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(name string, x float64, at time.Time) report.Record {
	r := report.NewRecord(name, "obs "+name, &quantify.SpreadResult{
		SpreadXPixel:       x,
		SpreadYPixel:       2.5,
		SpreadXUm:          x / 2,
		SpreadXYZUm:        12.34,
		AxonalVolume:       1000,
		FluorescencePx:     3.5,
		RotationAngle:      -45,
		AdditionalRotation: 90,
	})
	r.CreatedAt = at
	r.StackDigest = "abc123"
	return r
}

func TestInsertGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC)

	r := record("stack_a", 10.25, at)
	if err := s.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := s.Get(ctx, r.RunID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ImageName != "stack_a" || got.Observation != "obs stack_a" || got.StackDigest != "abc123" {
		t.Errorf("Unexpected metadata: %+v", got)
	}
	if !got.CreatedAt.Equal(at) {
		t.Errorf("Expected created_at %v, got %v", at, got.CreatedAt)
	}
	want, have := r.Row(), got.Row()
	for i := range want {
		if want[i] != have[i] {
			t.Errorf("Column %q: expected %s, got %s", report.Headers[i], want[i], have[i])
		}
	}
	if got.Result.RotationAngle != -45 || got.Result.AdditionalRotation != 90 {
		t.Errorf("Expected rotation angles to round-trip, got %v and %v",
			got.Result.RotationAngle, got.Result.AdditionalRotation)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestInsertDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := record("stack_a", 1, time.Now())
	if err := s.Insert(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(ctx, r); err == nil {
		t.Error("Expected an error when reusing a run ID")
	}
}

func TestInsertIncomplete(t *testing.T) {
	s := openTestStore(t)
	if err := s.Insert(context.Background(), report.Record{ImageName: "x"}); err == nil {
		t.Error("Expected an error for a record without run ID")
	}
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"b", "a", "b"} {
		if err := s.Insert(ctx, record(name, float64(i), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(all))
	}
	for i, r := range all {
		if r.Result.SpreadXPixel != float64(i) {
			t.Errorf("Expected chronological order, position %d has x=%v", i, r.Result.SpreadXPixel)
		}
	}

	onlyB, err := s.List(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(onlyB) != 2 {
		t.Errorf("Expected 2 records for stack b, got %d", len(onlyB))
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	r := record("stack_a", 4, time.Now())
	if err := s.Insert(ctx, r); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(ctx, r.RunID); err != nil {
		t.Errorf("Expected the record to persist: %v", err)
	}
}
