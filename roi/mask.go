package roi

import (
	"math"

	"github.com/arsakhar/NeuroFlow/flowerr"
)

// Mask is a 2D binary region aligned to a series' frame shape, row-major.
type Mask struct {
	Rows, Cols int
	Data       []bool
}

// NewMask allocates an empty mask.
func NewMask(rows, cols int) Mask {
	return Mask{Rows: rows, Cols: cols, Data: make([]bool, rows*cols)}
}

// At reports whether (row, col) is inside the mask. Out-of-range cells are
// outside.
func (m Mask) At(row, col int) bool {
	if row < 0 || row >= m.Rows || col < 0 || col >= m.Cols {
		return false
	}
	return m.Data[row*m.Cols+col]
}

// Set marks (row, col). Out-of-range cells are ignored.
func (m Mask) Set(row, col int, in bool) {
	if row < 0 || row >= m.Rows || col < 0 || col >= m.Cols {
		return
	}
	m.Data[row*m.Cols+col] = in
}

// Count is the number of cells inside the mask.
func (m Mask) Count() int {
	n := 0
	for _, in := range m.Data {
		if in {
			n++
		}
	}
	return n
}

// Exclusive merges masks that share a region ID. A cell covered by more than
// one mask is dropped, so overlapping strokes cancel rather than add.
func Exclusive(masks ...Mask) (Mask, error) {
	if len(masks) == 0 {
		return Mask{}, flowerr.Invariant("Exclusive", "no masks")
	}

	rows, cols := masks[0].Rows, masks[0].Cols
	counts := make([]int, rows*cols)
	for i, m := range masks {
		if m.Rows != rows || m.Cols != cols {
			return Mask{}, flowerr.Invariant("Exclusive", "mask %d is %dx%d, expected %dx%d", i, m.Rows, m.Cols, rows, cols)
		}
		for j, in := range m.Data {
			if in {
				counts[j]++
			}
		}
	}

	out := NewMask(rows, cols)
	for j, n := range counts {
		out.Data[j] = n == 1
	}
	return out, nil
}

// FromMask applies mask to every frame of stack: cells inside keep the stack's
// intensity, cells outside become NaN. A zero intensity inside the mask stays
// zero, distinct from NaN.
func FromMask(mask Mask, stack Volume) (Volume, error) {
	if mask.Rows != stack.Rows || mask.Cols != stack.Cols {
		return Volume{}, flowerr.Unavailable("FromMask", "mask is %dx%d but images are %dx%d", mask.Rows, mask.Cols, stack.Rows, stack.Cols)
	}

	out := stack.Clone()
	for f := 0; f < out.Frames; f++ {
		frame := out.Frame(f)
		for j, in := range mask.Data {
			if !in {
				frame[j] = math.NaN()
			}
		}
	}

	return out, nil
}

// Point is a vertex in pixel coordinates: X is the column, Y the row.
type Point struct {
	X, Y float64
}

// Polygon is a closed vertex list; the last vertex connects to the first.
type Polygon []Point

// Mask rasterizes the polygon onto a rows x cols grid. A pixel is inside when
// its coordinate falls inside the polygon by the even-odd rule or lies within
// half a pixel of an edge, so the outline itself is always filled.
func (p Polygon) Mask(rows, cols int) Mask {
	out := NewMask(rows, cols)
	if len(p) == 0 {
		return out
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x, y := float64(c), float64(r)
			if p.contains(x, y) || p.nearEdge(x, y, 0.5) {
				out.Set(r, c, true)
			}
		}
	}

	return out
}

func (p Polygon) contains(x, y float64) bool {
	inside := false
	for i, j := 0, len(p)-1; i < len(p); j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a.Y > y) != (b.Y > y) && x < (b.X-a.X)*(y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

func (p Polygon) nearEdge(x, y, tol float64) bool {
	for i, j := 0, len(p)-1; i < len(p); j, i = i, i+1 {
		if segmentDistance(x, y, p[j], p[i]) <= tol {
			return true
		}
	}
	return false
}

func segmentDistance(x, y float64, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return math.Hypot(x-a.X, y-a.Y)
	}

	t := ((x-a.X)*dx + (y-a.Y)*dy) / lengthSq
	t = math.Max(0, math.Min(1, t))

	return math.Hypot(x-(a.X+t*dx), y-(a.Y+t*dy))
}
