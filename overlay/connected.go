package overlay

import (
	"image"
	"sort"

	"github.com/arsakhar/NeuroFlow/roi"
	"github.com/theodesp/unionfind"
)

// Following the guide at
// http://aishack.in/tutorials/connected-component-labelling/

// Components splits a mask into its 4-connected pieces, largest first. A
// region drawn as one vessel lumen should have exactly one.
func Components(m roi.Mask) []ConnectedComponent {
	uf := unionfind.New(m.Rows * m.Cols)

	for y := 0; y < m.Rows; y++ {
		for x := 0; x < m.Cols; x++ {
			if !m.At(y, x) {
				continue
			}

			// Join with the labeled pixels above and to the left
			if m.At(y-1, x) {
				uf.Union((y-1)*m.Cols+x, y*m.Cols+x)
			}
			if m.At(y, x-1) {
				uf.Union(y*m.Cols+x-1, y*m.Cols+x)
			}
		}
	}

	byRoot := make(map[int]*ConnectedComponent)
	for y := 0; y < m.Rows; y++ {
		for x := 0; x < m.Cols; x++ {
			if !m.At(y, x) {
				continue
			}

			root := uf.Root(y*m.Cols + x)
			c, exists := byRoot[root]
			if !exists {
				c = &ConnectedComponent{ComponentID: root}
				c.Bounds.TopLeft = Coord{X: x, Y: y}
				c.Bounds.BottomRight = Coord{X: x, Y: y}
				byRoot[root] = c
			}

			c.PixelCount++
			if x < c.Bounds.TopLeft.X {
				c.Bounds.TopLeft.X = x
			}
			if x > c.Bounds.BottomRight.X {
				c.Bounds.BottomRight.X = x
			}
			if y > c.Bounds.BottomRight.Y {
				c.Bounds.BottomRight.Y = y
			}
		}
	}

	out := make([]ConnectedComponent, 0, len(byRoot))
	for _, c := range byRoot {
		out = append(out, *c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].PixelCount != out[j].PixelCount {
			return out[i].PixelCount > out[j].PixelCount
		}
		return out[i].ComponentID < out[j].ComponentID
	})

	return out
}

// CountConnectedRegions reports how many separate pieces each label's mask
// has.
func (l LabelMap) CountConnectedRegions(masks map[string]roi.Mask) map[Label]int {
	out := make(map[Label]int)
	for _, label := range l.Sorted() {
		m, exists := masks[label.Label]
		if !exists {
			continue
		}
		out[label] = len(Components(m))
	}

	return out
}

// MaskBounds is the smallest rectangle, in image coordinates, holding every
// pixel of the mask. It is empty for an empty mask.
func MaskBounds(m roi.Mask) image.Rectangle {
	var out image.Rectangle
	for _, c := range Components(m) {
		out = out.Union(image.Rect(c.Bounds.TopLeft.X, c.Bounds.TopLeft.Y, c.Bounds.BottomRight.X+1, c.Bounds.BottomRight.Y+1))
	}

	return out
}
