package roi

import (
	"github.com/arsakhar/NeuroFlow/flowerr"
	"github.com/arsakhar/NeuroFlow/phasecontrast"
	"gonum.org/v1/gonum/floats/scalar"
)

// pixelAreaTolerance absorbs decimal-string round off in pixel spacing tags.
const pixelAreaTolerance = 1e-9

// MapToPhase re-projects roi, drawn on source, onto the phase series of the
// same acquisition. The result carries phase intensities wherever roi is
// defined and NaN elsewhere. roi and the series are not modified.
//
// The mapping is Unavailable when phase is nil, when the phase images do not
// stack to roi's shape, or when source and phase pixel areas differ.
func MapToPhase(roi Volume, source, phase *phasecontrast.Series) (Volume, error) {
	if phase == nil {
		return Volume{}, flowerr.Unavailable("MapToPhase", "no phase series in this sequence")
	}

	phaseStack, err := Stack(phase)
	if err != nil {
		return Volume{}, flowerr.UnavailableCause("MapToPhase", err, "phase series %s could not be stacked", phase.Number())
	}

	if !phaseStack.SameShape(roi) {
		return Volume{}, flowerr.Unavailable("MapToPhase", "phase series is %dx%dx%d but ROI is %dx%dx%d",
			phaseStack.Frames, phaseStack.Rows, phaseStack.Cols, roi.Frames, roi.Rows, roi.Cols)
	}

	if source == nil {
		return Volume{}, flowerr.Unavailable("MapToPhase", "no source series")
	}

	sourceArea, err := source.PixelArea()
	if err != nil {
		return Volume{}, err
	}
	phaseArea, err := phase.PixelArea()
	if err != nil {
		return Volume{}, err
	}
	// Spacing is stored as DS strings, so two series with the same spacing
	// can still differ in the last bits of the product.
	if !scalar.EqualWithinAbsOrRel(sourceArea, phaseArea, pixelAreaTolerance, pixelAreaTolerance) {
		return Volume{}, flowerr.Unavailable("MapToPhase", "pixel area %v mm^2 on the source series but %v mm^2 on the phase series", sourceArea, phaseArea)
	}

	return roi.Binarize().Mul(phaseStack), nil
}
