package roi

import (
	"errors"
	"math"
	"testing"

	"github.com/arsakhar/NeuroFlow/flowerr"
	"github.com/arsakhar/NeuroFlow/phasecontrast"
	"github.com/arsakhar/NeuroFlow/phasecontrast/phasecontrasttest"
)

func ramp(frames, rows, cols int, offset float64) [][][]float64 {
	out := phasecontrasttest.Constant(frames, rows, cols, 0)
	for f := range out {
		for r := range out[f] {
			for c := range out[f][r] {
				out[f][r][c] = offset + float64(f*100+r*10+c)
			}
		}
	}
	return out
}

func seriesOf(recon string, spacing float64, frames [][][]float64) *phasecontrast.Series {
	return phasecontrasttest.Series(phasecontrasttest.SeriesSpec{
		Number:  1,
		Recon:   recon,
		Spacing: [2]float64{spacing, spacing},
		Frames:  frames,
	})
}

func TestStack(t *testing.T) {
	s := seriesOf("M", 1, ramp(3, 2, 4, 0))

	v, err := Stack(s)
	if err != nil {
		t.Fatal(err)
	}
	if v.Frames != 3 || v.Rows != 2 || v.Cols != 4 {
		t.Fatalf("shape %dx%dx%d", v.Frames, v.Rows, v.Cols)
	}
	if got := v.At(2, 1, 3); got != 213 {
		t.Fatalf("At(2,1,3) = %v, expected 213", got)
	}

	s.Images[1].Pixels = s.Images[1].Pixels[:1]
	if _, err := Stack(s); !errors.Is(err, flowerr.ErrUnavailable) {
		t.Fatalf("ragged series: expected unavailable, got %v", err)
	}

	if _, err := Stack(nil); !errors.Is(err, flowerr.ErrUnavailable) {
		t.Fatalf("nil series: expected unavailable, got %v", err)
	}
}

func TestFromMaskKeepsZeroIntensity(t *testing.T) {
	stack, err := Stack(seriesOf("M", 1, phasecontrasttest.Constant(2, 2, 2, 0)))
	if err != nil {
		t.Fatal(err)
	}

	mask := NewMask(2, 2)
	mask.Set(0, 1, true)

	v, err := FromMask(mask, stack)
	if err != nil {
		t.Fatal(err)
	}

	for f := 0; f < v.Frames; f++ {
		if v.At(f, 0, 1) != 0 {
			t.Fatalf("frame %d: masked-in zero became %v", f, v.At(f, 0, 1))
		}
		if !math.IsNaN(v.At(f, 1, 1)) {
			t.Fatalf("frame %d: masked-out cell is %v, expected NaN", f, v.At(f, 1, 1))
		}
		if n := v.Count(f); n != 1 {
			t.Fatalf("frame %d: %d defined cells, expected 1", f, n)
		}
	}

	if _, err := FromMask(NewMask(3, 2), stack); !errors.Is(err, flowerr.ErrUnavailable) {
		t.Fatalf("expected unavailable for a misaligned mask, got %v", err)
	}
}

func TestExclusive(t *testing.T) {
	a, b := NewMask(1, 3), NewMask(1, 3)
	a.Set(0, 0, true)
	a.Set(0, 1, true)
	b.Set(0, 1, true)
	b.Set(0, 2, true)

	m, err := Exclusive(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !m.At(0, 0) || m.At(0, 1) || !m.At(0, 2) {
		t.Fatalf("got %v, expected the overlap to be dropped", m.Data)
	}

	if _, err := Exclusive(a, NewMask(2, 3)); !errors.Is(err, flowerr.ErrInvariant) {
		t.Fatalf("expected invariant error for mismatched masks, got %v", err)
	}
}

func TestPolygonMask(t *testing.T) {
	square := Polygon{{2, 2}, {5, 2}, {5, 5}, {2, 5}}
	m := square.Mask(8, 8)

	if n := m.Count(); n != 16 {
		t.Fatalf("square covers %d pixels, expected 16", n)
	}
	for _, v := range []struct {
		Row, Col int
		In       bool
	}{
		{2, 2, true},
		{3, 4, true},
		{5, 5, true},
		{1, 3, false},
		{6, 6, false},
	} {
		if got := m.At(v.Row, v.Col); got != v.In {
			t.Errorf("(%d,%d): got %v, expected %v", v.Row, v.Col, got, v.In)
		}
	}

	if n := (Polygon{}).Mask(4, 4).Count(); n != 0 {
		t.Fatalf("empty polygon covers %d pixels", n)
	}
}

func TestMapToPhase(t *testing.T) {
	magnitude := seriesOf("M", 0.7, ramp(2, 3, 3, 0))
	phase := seriesOf("P", 0.7, ramp(2, 3, 3, 2000))

	stack, err := Stack(magnitude)
	if err != nil {
		t.Fatal(err)
	}

	mask := NewMask(3, 3)
	mask.Set(1, 1, true)
	mask.Set(1, 2, true)

	imageROI, err := FromMask(mask, stack)
	if err != nil {
		t.Fatal(err)
	}
	before := imageROI.Clone()

	phaseROI, err := MapToPhase(imageROI, magnitude, phase)
	if err != nil {
		t.Fatal(err)
	}

	for f := 0; f < 2; f++ {
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				got := phaseROI.At(f, r, c)
				if mask.At(r, c) {
					if expected := phase.Images[f].Pixels[r][c]; got != expected {
						t.Fatalf("(%d,%d,%d): got %v, expected phase intensity %v", f, r, c, got, expected)
					}
				} else if !math.IsNaN(got) {
					t.Fatalf("(%d,%d,%d): got %v outside the ROI", f, r, c, got)
				}
			}
		}
	}

	for i := range before.Data {
		a, b := before.Data[i], imageROI.Data[i]
		if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
			t.Fatal("MapToPhase modified its input")
		}
	}
}

func TestMapToPhaseRejects(t *testing.T) {
	magnitude := seriesOf("M", 0.7, ramp(2, 3, 3, 0))
	stack, err := Stack(magnitude)
	if err != nil {
		t.Fatal(err)
	}

	for name, phase := range map[string]*phasecontrast.Series{
		"nil phase":      nil,
		"fewer frames":   seriesOf("P", 0.7, ramp(1, 3, 3, 0)),
		"smaller frames": seriesOf("P", 0.7, ramp(2, 2, 3, 0)),
		"pixel spacing":  seriesOf("P", 0.8, ramp(2, 3, 3, 0)),
	} {
		out, err := MapToPhase(stack, magnitude, phase)
		if !errors.Is(err, flowerr.ErrUnavailable) {
			t.Errorf("%s: expected unavailable, got %v", name, err)
		}
		if out.Data != nil {
			t.Errorf("%s: expected no volume", name)
		}
	}
}

func TestMapToPhasePixelAreaRoundOff(t *testing.T) {
	magnitude := seriesOf("M", 0.7, ramp(2, 3, 3, 0))
	stack, err := Stack(magnitude)
	if err != nil {
		t.Fatal(err)
	}

	// Last-bit differences from decimal spacing strings still match
	if _, err := MapToPhase(stack, magnitude, seriesOf("P", 0.7*(1+1e-13), ramp(2, 3, 3, 0))); err != nil {
		t.Fatalf("round off rejected: %v", err)
	}

	if _, err := MapToPhase(stack, magnitude, seriesOf("P", 0.7001, ramp(2, 3, 3, 0))); !errors.Is(err, flowerr.ErrUnavailable) {
		t.Fatalf("expected unavailable for a real spacing difference, got %v", err)
	}
}
