// Package phasecontrast models a phase-contrast MRI study as loaded from
// DICOM (patient, study, series, image) and reads the scan parameters that
// flow quantification needs from each image's tags.
package phasecontrast

import (
	"strconv"

	"github.com/arsakhar/NeuroFlow/flowerr"
)

// Image is one acquired 2D slice: its tags and its pixel grid (rows x cols).
type Image struct {
	Tags   TagMap
	Pixels [][]float64

	// Path is where the image was read from, if anywhere.
	Path string
}

// NewImage builds an image from already-decoded tags and pixels.
func NewImage(tags TagMap, pixels [][]float64) *Image {
	if tags == nil {
		tags = make(TagMap)
	}
	return &Image{Tags: tags, Pixels: pixels}
}

// Rows is the number of pixel rows.
func (img *Image) Rows() int {
	return len(img.Pixels)
}

// Cols is the number of pixel columns.
func (img *Image) Cols() int {
	if len(img.Pixels) == 0 {
		return 0
	}
	return len(img.Pixels[0])
}

// PixelArea is the physical area of one pixel in mm^2, the product of the two
// pixel spacing components.
func (img *Image) PixelArea() (float64, error) {
	spacing, err := img.Tags.Floats(TagPixelSpacing)
	if err != nil {
		return 0, flowerr.UnavailableCause("PixelArea", err, "pixel spacing missing")
	}
	if len(spacing) < 2 {
		return 0, flowerr.Unavailable("PixelArea", "pixel spacing has %d components, need 2", len(spacing))
	}

	return spacing[0] * spacing[1], nil
}

// ProtocolName identifies the physical acquisition an image belongs to.
func (img *Image) ProtocolName() string {
	s, _ := img.Tags.String(TagProtocolName)
	return s
}

// SeriesNumber is the raw series number string.
func (img *Image) SeriesNumber() string {
	s, _ := img.Tags.String(TagSeriesNumber)
	return s
}

// SeriesDescription is the free-text series description.
func (img *Image) SeriesDescription() string {
	s, _ := img.Tags.String(TagSeriesDescription)
	return s
}

// InstanceNumber returns the instance number, or -1 when absent.
func (img *Image) InstanceNumber() int {
	s, ok := img.Tags.String(TagInstanceNumber)
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// TriggerTime is the cardiac trigger delay of this image in ms.
func (img *Image) TriggerTime() (float64, error) {
	return img.Tags.Float(TagTriggerTime)
}

func (img *Image) StudyID() string {
	s, _ := img.Tags.String(TagStudyID)
	return s
}

func (img *Image) PatientID() string {
	s, _ := img.Tags.String(TagPatientID)
	return s
}
