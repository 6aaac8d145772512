package widths_test

import (
	"errors"
	"math"
	"testing"

	"blockgrid/internal/domain"
	"blockgrid/internal/widths"
)

const eps = 1e-4

func sum(ws []float64) float64 {
	s := 0.0
	for _, w := range ws {
		s += w
	}
	return s
}

func assertWidths(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d widths %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > eps {
			t.Fatalf("width[%d] = %.4f, want %.4f (all: %v)", i, got[i], want[i], got)
		}
	}
	if math.Abs(sum(got)-1) > domain.WidthEpsilon {
		t.Fatalf("widths %v sum to %.8f", got, sum(got))
	}
}

func TestInsert_ThirdColumn(t *testing.T) {
	a := widths.New(domain.DefaultLimits())
	got, err := a.Insert([]float64{0.6, 0.4}, 2)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	assertWidths(t, got, []float64{0.4, 0.2667, 0.3333})
}

func TestInsert_Positions(t *testing.T) {
	a := widths.New(domain.DefaultLimits())
	tests := []struct {
		name string
		in   []float64
		at   int
		want []float64
	}{
		{"front", []float64{0.5, 0.5}, 0, []float64{0.3333, 0.3333, 0.3333}},
		{"middle", []float64{0.6, 0.4}, 1, []float64{0.4, 0.3333, 0.2667}},
		{"fifth", []float64{0.25, 0.25, 0.25, 0.25}, 4, []float64{0.2, 0.2, 0.2, 0.2, 0.2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Insert(tt.in, tt.at)
			if err != nil {
				t.Fatalf("Insert: %v", err)
			}
			assertWidths(t, got, tt.want)
		})
	}
}

func TestInsert_LiftsNarrowColumnToMinimum(t *testing.T) {
	a := widths.New(domain.DefaultLimits())
	got, err := a.Insert([]float64{0.88, 0.12}, 2)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	for i, w := range got {
		if w < 0.1-domain.WidthEpsilon {
			t.Errorf("width[%d] = %.4f below minimum", i, w)
		}
	}
	if math.Abs(sum(got)-1) > domain.WidthEpsilon {
		t.Errorf("sum = %.8f", sum(got))
	}
}

func TestInsert_ColumnLimit(t *testing.T) {
	a := widths.New(domain.DefaultLimits())
	_, err := a.Insert([]float64{0.2, 0.2, 0.2, 0.2, 0.2}, 5)
	if !errors.Is(err, domain.ErrColumnLimitExceeded) {
		t.Fatalf("expected ErrColumnLimitExceeded, got %v", err)
	}
}

func TestRemove_Rescales(t *testing.T) {
	a := widths.New(domain.DefaultLimits())
	got, err := a.Remove([]float64{0.4, 0.2667, 0.3333}, 1)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	assertWidths(t, got, []float64{0.5455, 0.4545})
}

func TestRemove_OutOfRange(t *testing.T) {
	a := widths.New(domain.DefaultLimits())
	if _, err := a.Remove([]float64{0.5, 0.5}, 2); err == nil {
		t.Fatal("expected error for out-of-range column")
	}
}

func TestResize(t *testing.T) {
	a := widths.New(domain.DefaultLimits())
	tests := []struct {
		name        string
		in          []float64
		divider     int
		delta       float64
		want        []float64
		wantClamped bool
	}{
		{"grow left", []float64{0.5, 0.5}, 0, 0.1, []float64{0.6, 0.4}, false},
		{"shrink left", []float64{0.5, 0.5}, 0, -0.2, []float64{0.3, 0.7}, false},
		{"clamp low", []float64{0.5, 0.5}, 0, -0.45, []float64{0.1, 0.9}, true},
		{"clamp high", []float64{0.5, 0.5}, 0, 0.45, []float64{0.9, 0.1}, true},
		{"others untouched", []float64{0.2, 0.3, 0.5}, 1, 0.1, []float64{0.2, 0.4, 0.4}, false},
		{"pair clamp", []float64{0.4, 0.3, 0.3}, 1, 0.5, []float64{0.4, 0.5, 0.1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped, err := a.Resize(tt.in, tt.divider, tt.delta)
			if err != nil {
				t.Fatalf("Resize: %v", err)
			}
			if clamped != tt.wantClamped {
				t.Errorf("clamped = %v, want %v", clamped, tt.wantClamped)
			}
			assertWidths(t, got, tt.want)
		})
	}
}

func TestResize_BadDivider(t *testing.T) {
	a := widths.New(domain.DefaultLimits())
	if _, _, err := a.Resize([]float64{0.5, 0.5}, 1, 0.1); err == nil {
		t.Fatal("expected error for divider past the last column")
	}
}

func TestPixelsToRatio(t *testing.T) {
	if got := widths.PixelsToRatio(50, 500); got != 0.1 {
		t.Errorf("PixelsToRatio(50, 500) = %v, want 0.1", got)
	}
	if got := widths.PixelsToRatio(50, 0); got != 0 {
		t.Errorf("PixelsToRatio with zero width = %v, want 0", got)
	}
}
