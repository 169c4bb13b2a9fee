package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/arsakhar/NeuroFlow/roi"
	"github.com/carbocation/pfx"
	"github.com/tj/go-rle"
)

var errInvalidLabelMap = errors.New("label map must give every label a distinct ID from 0 to 255")

// A Label tracks the region ID a mask uses for a named region (e.g., "Left
// ICA") and the color it is drawn in (RGB hex, e.g., #FF0000 for red).
type Label struct {
	Label     string
	ID        uint   `json:"id"`
	Color     string `json:"color"`
	SortOrder int    `json:"sort_order,omitempty"`
}

// LabelMap ([string label name]Label) keeps track of the relationship between
// region names, their colors and the integer ID stored in encoded masks. ID 0
// is the background.
type LabelMap map[string]Label

// Masks decodes an ID-encoded image (each pixel #010101 for ID 1, #020202 for
// ID 2, etc) into one mask per label. Every label gets a mask, empty if its ID
// never appears. The background (ID 0) is not returned.
func (l LabelMap) Masks(encoded image.Image) (map[string]roi.Mask, error) {
	b := encoded.Bounds()
	rows, cols := b.Dy(), b.Dx()

	byID := make(map[uint32]string)
	out := make(map[string]roi.Mask)
	for _, v := range l.Sorted() {
		if v.ID == 0 {
			continue
		}
		byID[uint32(v.ID)] = v.Label
		out[v.Label] = roi.NewMask(rows, cols)
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			c := encoded.At(b.Min.X+x, b.Min.Y+y)

			id, err := LabeledPixelToID(c)
			if err != nil {
				return nil, pfx.Err(err)
			}
			if id == 0 {
				continue
			}

			name, exists := byID[id]
			if !exists {
				return nil, pfx.Err(fmt.Errorf("Saw ID %d at (%d, %d) but could not find it in the label map", id, x, y))
			}

			out[name].Set(y, x, true)
		}
	}

	return out, nil
}

// MasksFromColors decodes a human-drawn mask, where each region is painted in
// its label's color, into one mask per label.
func (l LabelMap) MasksFromColors(drawn image.Image) (map[string]roi.Mask, error) {
	encoded, err := l.EncodeImageToImageSegment(drawn)
	if err != nil {
		return nil, err
	}

	return l.Masks(encoded)
}

// EncodeImageToImageSegment consumes a multi-color human-visible image into an
// image where each pixel has the same R, G, and B value mapped to the integer
// ID of the Label. For example, if background is transparent (ID 0) and the
// aqueduct is red (ID 1), it will produce an image that is all black, with
// values #000000 for the background and #010101 for the aqueduct.
func (l LabelMap) EncodeImageToImageSegment(bmpImage image.Image) (image.Image, error) {

	// Drawing tools antialias, so we need to map nearby colors
	// Black is always background
	colorPalette := color.Palette{color.NRGBA{A: 255}}
	paletteLabels := []Label{{ID: 0}}
	for _, v := range l.Sorted() {
		if v.ID == 0 {
			continue
		}
		col, err := nrgbaFromColorCode(v.Color)
		if err != nil {
			continue
		}
		colorPalette = append(colorPalette, col)
		paletteLabels = append(paletteLabels, v)
	}

	if len(colorPalette) == 1 {
		return nil, pfx.Err(fmt.Errorf("No label in the label map has a usable color"))
	}

	b := bmpImage.Bounds()
	outputImage := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	// Map from the raw color to the Label it is nearest to
	colorLabels := make(map[color.Color]Label)

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			rawC := bmpImage.At(b.Min.X+x, b.Min.Y+y)

			lab, exists := colorLabels[rawC]
			if !exists {
				if _, _, _, a := rawC.RGBA(); a == 0 {
					// Fully transparent is background whatever its channels
					lab = Label{ID: 0}
				} else {
					lab = paletteLabels[colorPalette.Index(rawC)]
				}
				colorLabels[rawC] = lab
			}

			outputImage.Set(x, y, color.RGBA{
				R: uint8(lab.ID),
				G: uint8(lab.ID),
				B: uint8(lab.ID),
				A: 255,
			})
		}
	}

	return outputImage, nil
}

// Render paints masks in their labels' colors on a transparent background.
// Where masks overlap, the label that sorts last wins.
func (l LabelMap) Render(masks map[string]roi.Mask, rows, cols int) (image.Image, error) {
	outputImage := image.NewRGBA(image.Rect(0, 0, cols, rows))

	for _, lab := range l.Sorted() {
		m, exists := masks[lab.Label]
		if !exists {
			continue
		}
		if m.Rows != rows || m.Cols != cols {
			return nil, pfx.Err(fmt.Errorf("Mask %s is %dx%d but the image is %dx%d", lab.Label, m.Rows, m.Cols, rows, cols))
		}

		humanColor, err := rgbaFromColorCode(lab.Color)
		if err != nil {
			return nil, pfx.Err(err)
		}

		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				if m.At(y, x) {
					outputImage.Set(x, y, humanColor)
				}
			}
		}
	}

	return outputImage, nil
}

// EncodeMasksToRLE run-length encodes masks as one row-major stream of label
// IDs. Cells no mask covers are background (0); overlapping cells take the
// label that sorts last.
func (l LabelMap) EncodeMasksToRLE(masks map[string]roi.Mask, rows, cols int) ([]byte, error) {
	pixelLabels := make([]int64, rows*cols)

	for _, lab := range l.Sorted() {
		m, exists := masks[lab.Label]
		if !exists {
			continue
		}
		if m.Rows != rows || m.Cols != cols {
			return nil, pfx.Err(fmt.Errorf("Mask %s is %dx%d, expected %dx%d", lab.Label, m.Rows, m.Cols, rows, cols))
		}

		for i, in := range m.Data {
			if in {
				pixelLabels[i] = int64(lab.ID)
			}
		}
	}

	return rle.EncodeInt64(pixelLabels), nil
}

// DecodeMasksFromRLE reverses EncodeMasksToRLE.
func (l LabelMap) DecodeMasksFromRLE(rleBytes []byte, rows, cols int) (map[string]roi.Mask, error) {
	slc, err := rle.DecodeInt64(rleBytes)
	if err != nil {
		return nil, pfx.Err(err)
	}

	if len(slc) != rows*cols {
		return nil, pfx.Err(fmt.Errorf("RLE holds %d pixels but a %dx%d mask needs %d", len(slc), rows, cols, rows*cols))
	}

	byID := make(map[int64]string)
	out := make(map[string]roi.Mask)
	for _, v := range l.Sorted() {
		if v.ID == 0 {
			continue
		}
		byID[int64(v.ID)] = v.Label
		out[v.Label] = roi.NewMask(rows, cols)
	}

	for i, id := range slc {
		if id == 0 {
			continue
		}

		name, exists := byID[id]
		if !exists {
			return nil, pfx.Err(fmt.Errorf("RLE pixel %d has ID %d, which is not in the label map", i, id))
		}
		out[name].Data[i] = true
	}

	return out, nil
}

// Valid ensures that the LabelMap is valid by testing that it is bijective
// and that every ID fits in one 8-bit channel of an encoded image.
func (l LabelMap) Valid() bool {
	inverse := make(map[uint]string)
	for k, v := range l {
		if v.ID > math.MaxUint8 {
			return false
		}
		inverse[v.ID] = k
	}

	return len(l) == len(inverse)
}

func (l LabelMap) Sorted() []Label {
	out := make([]Label, 0, len(l))

	for k, v := range l {
		v.Label = k
		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool {
		// If SortOrder is defined and different, use it:
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}

		// If SortOrder is not defined, or is the same for two values, drop down
		// to the ID field for sorting
		return out[i].ID < out[j].ID

	})

	return out
}
