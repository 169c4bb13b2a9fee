// Package roi holds masked pixel volumes and re-projects a region of interest
// drawn on one reconstruction of an acquisition onto its phase series.
package roi

import (
	"math"

	"github.com/arsakhar/NeuroFlow/flowerr"
	"github.com/arsakhar/NeuroFlow/phasecontrast"
	"gonum.org/v1/gonum/floats"
)

// Volume is a frames x rows x cols grid stored frame-major. NaN cells are
// outside the region.
type Volume struct {
	Frames, Rows, Cols int
	Data               []float64
}

// NewVolume allocates a volume with every cell set to NaN.
func NewVolume(frames, rows, cols int) Volume {
	v := Volume{Frames: frames, Rows: rows, Cols: cols, Data: make([]float64, frames*rows*cols)}
	for i := range v.Data {
		v.Data[i] = math.NaN()
	}
	return v
}

func (v Volume) index(frame, row, col int) int {
	return (frame*v.Rows+row)*v.Cols + col
}

// At returns the value at (frame, row, col).
func (v Volume) At(frame, row, col int) float64 {
	return v.Data[v.index(frame, row, col)]
}

// Set stores x at (frame, row, col).
func (v Volume) Set(frame, row, col int, x float64) {
	v.Data[v.index(frame, row, col)] = x
}

// Frame returns a view of one frame's cells in row-major order.
func (v Volume) Frame(frame int) []float64 {
	n := v.Rows * v.Cols
	return v.Data[frame*n : (frame+1)*n]
}

// SameShape reports whether two volumes have identical dimensions.
func (v Volume) SameShape(o Volume) bool {
	return v.Frames == o.Frames && v.Rows == o.Rows && v.Cols == o.Cols
}

// Clone returns a deep copy.
func (v Volume) Clone() Volume {
	out := v
	out.Data = make([]float64, len(v.Data))
	copy(out.Data, v.Data)
	return out
}

// Count is the number of non-NaN cells in frame.
func (v Volume) Count(frame int) int {
	if frame < 0 || frame >= v.Frames {
		return 0
	}

	n := 0
	for _, x := range v.Frame(frame) {
		if !math.IsNaN(x) {
			n++
		}
	}
	return n
}

// Binarize returns a copy with every defined cell set to 1.
func (v Volume) Binarize() Volume {
	out := v.Clone()
	for i, x := range out.Data {
		if !math.IsNaN(x) {
			out.Data[i] = 1
		}
	}
	return out
}

// Stack copies every image of a series into one volume. All images must share
// the first image's dimensions.
func Stack(series *phasecontrast.Series) (Volume, error) {
	if series == nil || len(series.Images) == 0 {
		return Volume{}, flowerr.Unavailable("Stack", "series has no images")
	}

	rows, cols := series.Images[0].Rows(), series.Images[0].Cols()
	if rows == 0 || cols == 0 {
		return Volume{}, flowerr.Unavailable("Stack", "series %s has no pixel data", series.Number())
	}

	out := Volume{Frames: len(series.Images), Rows: rows, Cols: cols, Data: make([]float64, len(series.Images)*rows*cols)}
	for f, img := range series.Images {
		if img.Rows() != rows || img.Cols() != cols {
			return Volume{}, flowerr.Unavailable("Stack", "image %d is %dx%d, series is %dx%d", f, img.Rows(), img.Cols(), rows, cols)
		}
		for r, row := range img.Pixels {
			if len(row) != cols {
				return Volume{}, flowerr.Unavailable("Stack", "image %d row %d has %d columns, expected %d", f, r, len(row), cols)
			}
			copy(out.Data[out.index(f, r, 0):], row)
		}
	}

	return out, nil
}

// Mul multiplies v by o element-wise into a new volume. NaN propagates. The
// shapes must match.
func (v Volume) Mul(o Volume) Volume {
	out := v.Clone()
	floats.Mul(out.Data, o.Data)
	return out
}
