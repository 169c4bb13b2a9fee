package flow

import (
	"fmt"
	"strings"
)

// Preset is an anatomical site. It decides which measures a bundle reports
// and how they are labelled, never the arithmetic behind them.
type Preset int

const (
	Default Preset = iota
	Aqueduct
	CervicalSubarachnoidSpace
	Artery
	Vein
)

var presetNames = [...]string{
	Default:                   "Default",
	Aqueduct:                  "Aqueduct",
	CervicalSubarachnoidSpace: "C2-C3 SS",
	Artery:                    "Artery",
	Vein:                      "Vein",
}

func (p Preset) String() string {
	if p < 0 || int(p) >= len(presetNames) {
		return fmt.Sprintf("Preset(%d)", int(p))
	}
	return presetNames[p]
}

// Presets lists every preset in display order.
func Presets() []Preset {
	return []Preset{Default, Aqueduct, CervicalSubarachnoidSpace, Artery, Vein}
}

// ParsePreset accepts a display name in any case ("C2-C3 SS", "artery").
// An empty string is Default.
func ParsePreset(s string) (Preset, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Default, nil
	}

	for _, p := range Presets() {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}

	if strings.EqualFold(s, "CervicalSubarachnoidSpace") || strings.EqualFold(s, "c2c3") {
		return CervicalSubarachnoidSpace, nil
	}

	return Default, fmt.Errorf("unknown preset %q; choose one of %s", s, presetList())
}

func presetList() string {
	names := make([]string, 0, len(presetNames))
	for _, p := range Presets() {
		names = append(names, p.String())
	}
	return strings.Join(names, ", ")
}

// MarshalText renders the display name.
func (p Preset) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText is ParsePreset.
func (p *Preset) UnmarshalText(text []byte) error {
	parsed, err := ParsePreset(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Bundle labels.
const (
	LabelPreset   = "Preset"
	LabelROIArea  = "ROI Area (mm^2)"
	LabelWaveform = "Time (ms) : Flow (mm^3/s)"

	LabelMinimumFlow     = "Minimum Flow (mm^3/s)"
	LabelMaximumFlow     = "Maximum Flow (mm^3/s)"
	LabelVolumeDisplaced = "Volume Displaced (mm^3)"

	LabelFlushPeak     = "Flush Peak (mm^3/s)"
	LabelTimeFlushPeak = "Time Flush Peak (ms)"
	LabelFillPeak      = "Fill Peak (mm^3/s)"
	LabelTimeFillPeak  = "Time Fill Peak (ms)"
	LabelStrokeVolume  = "Stroke Volume (mm^3)"

	LabelSystolicPeak      = "Systolic Peak Flow (mm^3/s)"
	LabelTimeSystolicPeak  = "Time Systolic Peak (ms)"
	LabelDiastolicPeak     = "Diastolic Peak Flow (mm^3/s)"
	LabelTimeDiastolicPeak = "Time Diastolic Peak (ms)"
	LabelPulseVolume       = "Pulse Volume (mm^3)"
	LabelPulsatility       = "Pulsatility (mm^3/s^2)"
	LabelPulsatilityIndex  = "Pulsatility Index"
	LabelResistivityIndex  = "Resistivity Index"
	LabelAverageFlow       = "Average Flow (mm^3/s)"
)

type measureFunc func(in Intermediates) (float64, error)

type measure struct {
	label   string
	compute measureFunc
}

func minFlow(in Intermediates) (float64, error) { return MinFlow(in.Flow) }
func maxFlow(in Intermediates) (float64, error) { return MaxFlow(in.Flow) }
func avgFlow(in Intermediates) (float64, error) { return AverageFlow(in.Flow) }

func timeOfMin(in Intermediates) (float64, error) { return TimeToMinFlow(in.Time, in.Flow) }
func timeOfMax(in Intermediates) (float64, error) { return TimeToMaxFlow(in.Time, in.Flow) }

func displaced(in Intermediates) (float64, error)   { return VolumeDisplaced(in.Time, in.Flow) }
func pulseVolume(in Intermediates) (float64, error) { return PulseVolume(in.Time, in.Flow) }
func pulsatility(in Intermediates) (float64, error) { return Pulsatility(in.Time, in.Flow) }
func pulsatilityIndex(in Intermediates) (float64, error) {
	return PulsatilityIndex(in.Flow)
}
func resistivityIndex(in Intermediates) (float64, error) {
	return ResistivityIndex(in.Flow, DenominatorMax)
}

// The aqueduct and the cervical subarachnoid space share one measure set.
var csfMeasures = []measure{
	{LabelFlushPeak, minFlow},
	{LabelTimeFlushPeak, timeOfMin},
	{LabelFillPeak, maxFlow},
	{LabelTimeFillPeak, timeOfMax},
	{LabelStrokeVolume, displaced},
}

// presetMeasures lists, per preset, the rows that follow Preset and ROI Area.
// Arteries peak in systole at maximum flow; veins drain in the opposite
// direction, so their systolic peak is the flow minimum.
var presetMeasures = map[Preset][]measure{
	Default: {
		{LabelMinimumFlow, minFlow},
		{LabelMaximumFlow, maxFlow},
		{LabelVolumeDisplaced, displaced},
	},
	Aqueduct:                  csfMeasures,
	CervicalSubarachnoidSpace: csfMeasures,
	Artery: {
		{LabelSystolicPeak, maxFlow},
		{LabelTimeSystolicPeak, timeOfMax},
		{LabelDiastolicPeak, minFlow},
		{LabelTimeDiastolicPeak, timeOfMin},
		{LabelStrokeVolume, displaced},
		{LabelPulseVolume, pulseVolume},
		{LabelPulsatility, pulsatility},
		{LabelPulsatilityIndex, pulsatilityIndex},
		{LabelResistivityIndex, resistivityIndex},
		{LabelAverageFlow, avgFlow},
	},
	Vein: {
		{LabelSystolicPeak, minFlow},
		{LabelTimeSystolicPeak, timeOfMin},
		{LabelDiastolicPeak, maxFlow},
		{LabelTimeDiastolicPeak, timeOfMax},
		{LabelStrokeVolume, displaced},
		{LabelAverageFlow, avgFlow},
	},
}

// Labels is the ordered scalar labels a bundle for p carries, including
// Preset and ROI Area.
func (p Preset) Labels() []string {
	out := []string{LabelPreset, LabelROIArea}
	for _, m := range presetMeasures[p] {
		out = append(out, m.label)
	}
	return out
}
