package overlay

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	WhichPointBottomRight = "br"
	WhichPointTopLeft     = "tl"
)

// SubsetAndRescaleImage crops baseImg to bounds grown by dilation pixels on
// every side, then scales it up by an integer factor with nearest-neighbor
// sampling so individual pixels stay visible.
func SubsetAndRescaleImage(baseImg image.Image, bounds image.Rectangle, scale, dilation int) (image.Image, error) {
	if scale < 1 {
		return nil, fmt.Errorf("Scale must be at least 1, got %d", scale)
	}

	imgBounds := baseImg.Bounds()

	// An empty rectangle means the whole image
	if bounds.Empty() {
		bounds = imgBounds
	}

	topLeftX := DilateDimension(bounds.Min.X, imgBounds.Max.X, dilation, WhichPointTopLeft)
	topLeftY := DilateDimension(bounds.Min.Y, imgBounds.Max.Y, dilation, WhichPointTopLeft)
	bottomRightX := DilateDimension(bounds.Max.X, imgBounds.Max.X, dilation, WhichPointBottomRight)
	bottomRightY := DilateDimension(bounds.Max.Y, imgBounds.Max.Y, dilation, WhichPointBottomRight)

	cutImg := imaging.Crop(baseImg, image.Rect(topLeftX, topLeftY, bottomRightX, bottomRightY))

	width := (bottomRightX - topLeftX) * scale
	return imaging.Resize(cutImg, width, 0, imaging.NearestNeighbor), nil
}

// DilateDimension expands an axis by "dilationFactor" pixels (additive). It
// basically adds or subtracts pixels, while paying attention to not allow the
// lower bound of the image to go below 0.
func DilateDimension(pos, max, dilationFactor int, direction string) int {
	out := pos
	if direction == WhichPointBottomRight {
		out = out + dilationFactor
	} else {
		out = out - dilationFactor
	}

	if out < 0 {
		out = 0
	}
	if out > max {
		out = max
	}

	return out
}
