// Package phasecontrasttest builds in-memory phasecontrast graphs for tests.
package phasecontrasttest

import (
	"strconv"

	"github.com/arsakhar/NeuroFlow/phasecontrast"
)

// SeriesSpec describes a synthetic series. Zero values leave the matching tag
// unset.
type SeriesSpec struct {
	Number      int
	Protocol    string
	Recon       string
	VencTag     string
	Description string
	StudyID     string
	PatientID   string
	StudyDate   string

	// Spacing is the (row, col) pixel spacing in mm.
	Spacing [2]float64

	// TriggerStep is the trigger time increment between images in ms.
	TriggerStep float64

	// Frames holds one rows x cols pixel grid per image.
	Frames [][][]float64
}

// Image builds the i'th image of spec.
func Image(spec SeriesSpec, i int) *phasecontrast.Image {
	tags := make(phasecontrast.TagMap)

	tags.Set(phasecontrast.TagSeriesNumber, strconv.Itoa(spec.Number))
	tags.Set(phasecontrast.TagInstanceNumber, strconv.Itoa(i+1))
	if spec.Protocol != "" {
		tags.Set(phasecontrast.TagProtocolName, spec.Protocol)
	}
	if spec.Recon != "" {
		tags.Set(phasecontrast.TagReconstructionType, spec.Recon)
	}
	if spec.VencTag != "" {
		tags.Set(phasecontrast.TagVencEncoding, spec.VencTag)
	}
	if spec.Description != "" {
		tags.Set(phasecontrast.TagSeriesDescription, spec.Description)
	}
	if spec.StudyID != "" {
		tags.Set(phasecontrast.TagStudyID, spec.StudyID)
	}
	if spec.PatientID != "" {
		tags.Set(phasecontrast.TagPatientID, spec.PatientID)
	}
	if spec.StudyDate != "" {
		tags.Set(phasecontrast.TagStudyDate, spec.StudyDate)
	}
	if spec.Spacing != [2]float64{} {
		tags.Set(phasecontrast.TagPixelSpacing,
			strconv.FormatFloat(spec.Spacing[0], 'f', -1, 64),
			strconv.FormatFloat(spec.Spacing[1], 'f', -1, 64))
	}
	if spec.TriggerStep != 0 {
		tags.Set(phasecontrast.TagTriggerTime, strconv.FormatFloat(float64(i)*spec.TriggerStep, 'f', -1, 64))
	}

	var pixels [][]float64
	if i < len(spec.Frames) {
		pixels = spec.Frames[i]
	}

	return phasecontrast.NewImage(tags, pixels)
}

// Series builds every image of spec, one per frame (at least one).
func Series(spec SeriesSpec) *phasecontrast.Series {
	n := len(spec.Frames)
	if n == 0 {
		n = 1
	}

	images := make([]*phasecontrast.Image, n)
	for i := range images {
		images[i] = Image(spec, i)
	}

	return phasecontrast.NewSeries(images...)
}

// Constant returns frames x rows x cols pixel grids filled with value.
func Constant(frames, rows, cols int, value float64) [][][]float64 {
	out := make([][][]float64, frames)
	for f := range out {
		out[f] = make([][]float64, rows)
		for r := range out[f] {
			out[f][r] = make([]float64, cols)
			for c := range out[f][r] {
				out[f][r][c] = value
			}
		}
	}
	return out
}
