package overlay

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// LabeledPixelToID converts the label-encoded pixel (e.g., #010101) which is
// alpha-premultiplied into an ID in the range of 0-255. Fully transparent
// pixels are background.
func LabeledPixelToID(c color.Color) (uint32, error) {

	// Find the color channel values for this pixel
	pr, pg, pb, a := c.RGBA()
	if a == 0 {
		return 0, nil
	}

	// Confirm that we're mapping ID 1 => #010101, etc
	if pr != pg || pg != pb || pr != pb {
		return 0, fmt.Errorf("Encoding expected to have equal values for R, G, and B. Instead, found %d, %d, %d", pr, pg, pb)
	}

	// Since each color channel is "alpha-premultiplied"
	// (https://golang.org/pkg/image/color/#RGBA), we need to divide by alpha
	// (scaling 0-1), then multiplying by 255, to get what we're actually
	// looking for
	pixelID := uint32(math.Round(255 * float64(pr) / float64(a)))

	return pixelID, nil
}

// parseColorCode reads #rrggbb. Codes shorter than six hex digits are the
// background and report ok == false.
func parseColorCode(colorCode string) (r, g, b uint8, ok bool, err error) {
	colorCode = strings.ReplaceAll(colorCode, "#", "")

	if len(colorCode) < 6 {
		return 0, 0, 0, false, nil
	}

	var channels [3]uint8
	for i := range channels {
		v, err := strconv.ParseUint(colorCode[2*i:2*i+2], 16, 8)
		if err != nil {
			return 0, 0, 0, false, err
		}
		channels[i] = uint8(v)
	}

	return channels[0], channels[1], channels[2], true, nil
}

func rgbaFromColorCode(colorCode string) (color.Color, error) {
	r, g, b, ok, err := parseColorCode(colorCode)
	if err != nil {
		return nil, err
	} else if !ok {
		return color.RGBA{0, 0, 0, 0}, nil
	}

	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

func nrgbaFromColorCode(colorCode string) (color.Color, error) {
	r, g, b, ok, err := parseColorCode(colorCode)
	if err != nil {
		return nil, err
	} else if !ok {
		return color.RGBA{0, 0, 0, 0}, nil
	}

	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
