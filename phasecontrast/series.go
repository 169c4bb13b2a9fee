package phasecontrast

import (
	"math"
	"strconv"
	"strings"

	"github.com/arsakhar/NeuroFlow/flowerr"
)

// ReconstructionType is which reconstruction of a phase-contrast
// acquisition a series holds.
type ReconstructionType int

const (
	ReconstructionNone ReconstructionType = iota
	Magnitude
	Phase
	Difference
)

func (r ReconstructionType) String() string {
	switch r {
	case Magnitude:
		return "Magnitude"
	case Phase:
		return "Phase"
	case Difference:
		return "Difference"
	}
	return "None"
}

// ClassifyReconstruction maps the vendor's reconstruction indicator string to
// a type. The checks run in a fixed order: complex-difference images carry a
// string containing both "M" and "MAG", so "MAG" must be tested before "M".
func ClassifyReconstruction(indicator string) ReconstructionType {
	switch {
	case strings.Contains(indicator, "P"):
		return Phase
	case strings.Contains(indicator, "MAG"):
		return Difference
	case strings.Contains(indicator, "M"):
		return Magnitude
	}
	return ReconstructionNone
}

// Series is an ordered run of images sharing a series number, one
// reconstruction and one venc. Everything derived from it is recomputed from
// the image tags on demand.
type Series struct {
	Images []*Image
}

// NewSeries wraps images, which must already be in acquisition order.
func NewSeries(images ...*Image) *Series {
	return &Series{Images: images}
}

// Number is the series number of the first image.
func (s *Series) Number() string {
	if len(s.Images) == 0 {
		return ""
	}
	return s.Images[0].SeriesNumber()
}

// ProtocolName is the protocol name of the first image.
func (s *Series) ProtocolName() string {
	if len(s.Images) == 0 {
		return ""
	}
	return s.Images[0].ProtocolName()
}

// Description is the series description of the first image.
func (s *Series) Description() string {
	if len(s.Images) == 0 {
		return ""
	}
	return s.Images[0].SeriesDescription()
}

// ReconstructionType inspects the first image's reconstruction indicator.
func (s *Series) ReconstructionType() ReconstructionType {
	if len(s.Images) == 0 {
		return ReconstructionNone
	}

	indicator, ok := s.Images[0].Tags.String(TagReconstructionType)
	if !ok {
		return ReconstructionNone
	}

	return ClassifyReconstruction(indicator)
}

// PixelArea is the pixel area of the first image.
func (s *Series) PixelArea() (float64, error) {
	if len(s.Images) == 0 {
		return 0, flowerr.Unavailable("PixelArea", "series has no images")
	}
	return s.Images[0].PixelArea()
}

// RRInterval is the length of one cardiac cycle in ms, taken as the trigger
// time step between the first two images times the number of images.
func (s *Series) RRInterval() (float64, error) {
	if len(s.Images) < 2 {
		return 0, flowerr.Unavailable("RRInterval", "need at least 2 images, have %d", len(s.Images))
	}

	t0, err := s.Images[0].TriggerTime()
	if err != nil {
		return 0, flowerr.UnavailableCause("RRInterval", err, "trigger time missing")
	}
	t1, err := s.Images[1].TriggerTime()
	if err != nil {
		return 0, flowerr.UnavailableCause("RRInterval", err, "trigger time missing")
	}

	return (t1 - t0) * float64(len(s.Images)), nil
}

// BPM is the heart rate implied by the RR interval.
func (s *Series) BPM() (int, error) {
	rr, err := s.RRInterval()
	if err != nil {
		return 0, err
	}
	if rr == 0 {
		return 0, flowerr.Degenerate("BPM", "RR interval is zero")
	}

	return int(math.RoundToEven(60 / (rr * 1e-3))), nil
}

// Venc is the velocity encoding in mm/s. The private venc tag is tried on
// every image first ("v20_..." means 20 cm/s); failing that, the series
// description is searched for the digits between "p2_" and "venc_".
func (s *Series) Venc() (int, error) {
	for _, img := range s.Images {
		if v, ok := vencFromPrivateTag(img); ok {
			return v * 10, nil
		}
	}

	for _, img := range s.Images {
		if v, ok := vencFromDescription(img.SeriesDescription()); ok {
			return v * 10, nil
		}
	}

	return 0, flowerr.Unavailable("Venc", "no venc in private tag or series description")
}

func vencFromPrivateTag(img *Image) (int, bool) {
	raw, ok := img.Tags.String(TagVencEncoding)
	if !ok {
		return 0, false
	}

	token := strings.TrimSpace(strings.Split(raw, "_")[0])
	if len(token) < 2 {
		return 0, false
	}

	v, err := strconv.Atoi(token[1:])
	if err != nil {
		return 0, false
	}

	return v, true
}

func vencFromDescription(desc string) (int, bool) {
	start := strings.Index(desc, "p2_")
	end := strings.Index(desc, "venc_")
	if start < 0 || end < 0 {
		return 0, false
	}

	start += len("p2_")
	if start >= end {
		return 0, false
	}

	digits := desc[start:end]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}

	return v, true
}
