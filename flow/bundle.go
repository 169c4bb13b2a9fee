package flow

import (
	"math"
	"strconv"
	"strings"

	"github.com/arsakhar/NeuroFlow/flowerr"
	"github.com/arsakhar/NeuroFlow/phasecontrast"
	"github.com/arsakhar/NeuroFlow/roi"
	"gopkg.in/guregu/null.v3"
)

// Intermediates are the series every preset derives its measures from. They
// are computed once per region by Prepare.
type Intermediates struct {
	// Area of the ROI in mm^2.
	Area float64

	// PixelArea, Venc (mm/s) and RR (ms) are read from the phase series.
	PixelArea float64
	Venc      int
	RR        float64

	// Per-frame series in acquisition order.
	Time     []float64
	Velocity []float64
	Flow     []float64
}

// Prepare computes the shared series for phaseROI, which must already be
// mapped onto phase. Scan parameters come from the phase series.
func Prepare(phaseROI roi.Volume, phase *phasecontrast.Series) (Intermediates, error) {
	var in Intermediates

	if phase == nil {
		return in, flowerr.Unavailable("Prepare", "no phase series")
	}
	if phaseROI.Frames != len(phase.Images) {
		return in, flowerr.Unavailable("Prepare", "ROI has %d frames but the phase series has %d images", phaseROI.Frames, len(phase.Images))
	}
	if phaseROI.Count(0) == 0 {
		return in, flowerr.Unavailable("Prepare", "ROI is empty")
	}

	var err error
	if in.PixelArea, err = phase.PixelArea(); err != nil {
		return in, err
	}
	if in.Venc, err = phase.Venc(); err != nil {
		return in, err
	}
	if in.RR, err = phase.RRInterval(); err != nil {
		return in, err
	}

	in.Area = Area(phaseROI, in.PixelArea)
	in.Velocity = VelocityPerFrame(phaseROI, float64(in.Venc))
	for f, v := range in.Velocity {
		if math.IsNaN(v) {
			return in, flowerr.Unavailable("Prepare", "ROI frame %d has no pixels", f)
		}
	}

	in.Time = TimeSeries(in.RR, phaseROI.Frames)
	in.Flow = FlowSeries(in.Velocity, in.Area)

	return in, nil
}

// Scalar is one labelled row of a bundle. Value is null when the measure
// could not be computed, and Err says why. The Preset row carries Text
// instead of a number.
type Scalar struct {
	Label string     `json:"label"`
	Value null.Float `json:"value"`
	Text  string     `json:"text,omitempty"`
	Err   error      `json:"-"`
}

// String renders the cell as shown in a table: the text, the number, or
// blank.
func (s Scalar) String() string {
	if s.Text != "" {
		return s.Text
	}
	if !s.Value.Valid {
		return ""
	}
	return strconv.FormatFloat(s.Value.Float64, 'f', -1, 64)
}

// Waveform is a pair of equal-length series. Label is "<time> : <flow>".
type Waveform struct {
	Label string    `json:"label"`
	Time  []float64 `json:"time"`
	Flow  []float64 `json:"flow"`
}

// Axes splits the label into its time and flow parts.
func (w Waveform) Axes() (string, string) {
	parts := strings.SplitN(w.Label, ":", 2)
	if len(parts) != 2 {
		return strings.TrimSpace(w.Label), ""
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// Bundle is the full set of measures for one region under one preset. It is
// always built whole by Measure and never updated in place.
type Bundle struct {
	Preset    Preset     `json:"preset"`
	Scalars   []Scalar   `json:"scalars"`
	Waveforms []Waveform `json:"waveforms"`
}

// Scalar looks up a row by label.
func (b Bundle) Scalar(label string) (Scalar, bool) {
	for _, s := range b.Scalars {
		if s.Label == label {
			return s, true
		}
	}
	return Scalar{}, false
}

// Labels lists the scalar labels in order.
func (b Bundle) Labels() []string {
	out := make([]string, len(b.Scalars))
	for i, s := range b.Scalars {
		out[i] = s.Label
	}
	return out
}

// Errors returns the rows that could not be computed.
func (b Bundle) Errors() []Scalar {
	var out []Scalar
	for _, s := range b.Scalars {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// Measure applies preset p to the shared series. A preset outside the
// enumeration is measured as Default. A measure that is not computable
// keeps its row with a null value.
func Measure(p Preset, in Intermediates) Bundle {
	measures, ok := presetMeasures[p]
	if !ok {
		p = Default
		measures = presetMeasures[Default]
	}

	b := Bundle{
		Preset:  p,
		Scalars: make([]Scalar, 0, 2+len(measures)),
	}

	b.Scalars = append(b.Scalars,
		Scalar{Label: LabelPreset, Text: strings.ToLower(p.String())},
		Scalar{Label: LabelROIArea, Value: null.FloatFrom(in.Area)},
	)

	for _, m := range measures {
		row := Scalar{Label: m.label}
		if v, err := m.compute(in); err != nil {
			row.Err = err
		} else {
			row.Value = null.FloatFrom(v)
		}
		b.Scalars = append(b.Scalars, row)
	}

	b.Waveforms = []Waveform{{
		Label: LabelWaveform,
		Time:  append([]float64(nil), in.Time...),
		Flow:  append([]float64(nil), in.Flow...),
	}}

	return b
}

// Analyze is Prepare followed by Measure.
func Analyze(p Preset, phaseROI roi.Volume, phase *phasecontrast.Series) (Bundle, error) {
	in, err := Prepare(phaseROI, phase)
	if err != nil {
		return Bundle{}, err
	}
	return Measure(p, in), nil
}
