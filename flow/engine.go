// Package flow converts a phase region of interest into velocity, flow and
// time series and reduces them to hemodynamic measures.
//
// By convention positive flow is caudo-cranial (toward the head) and
// negative flow is cranio-caudal. Every scalar is rounded to 2 decimal places
// when it is returned, and time values to whole milliseconds.
package flow

import (
	"math"
	"sort"
	"strconv"

	"github.com/arsakhar/NeuroFlow/flowerr"
	"github.com/arsakhar/NeuroFlow/roi"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// PhaseCenter is the stored pixel value of zero phase. Phase images span
// [0, 4095] for [-pi, pi] radians.
const PhaseCenter = 4095.0 / 2

// Round2 rounds the exact decimal value of x to 2 places, ties to even. A
// double stored just above a tie, such as 958.085, rounds up.
func Round2(x float64) float64 {
	out, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	if err != nil {
		return x
	}
	return out
}

// PhaseToVelocity converts one phase pixel value to a signed velocity in the
// units of venc.
func PhaseToVelocity(phase, venc float64) float64 {
	return (phase - PhaseCenter) / (PhaseCenter * math.Pi) * venc
}

// Velocity converts every cell of a phase ROI to velocity (mm/s for a venc in
// mm/s). NaN cells stay NaN.
func Velocity(phaseROI roi.Volume, venc float64) roi.Volume {
	out := phaseROI.Clone()
	for i, p := range out.Data {
		out.Data[i] = PhaseToVelocity(p, venc)
	}
	return out
}

// VelocityPerFrame is the mean velocity of the defined cells of each frame.
// A frame with no defined cells yields NaN.
func VelocityPerFrame(phaseROI roi.Volume, venc float64) []float64 {
	v := Velocity(phaseROI, venc)

	out := make([]float64, v.Frames)
	for f := range out {
		defined := make([]float64, 0, v.Rows*v.Cols)
		for _, x := range v.Frame(f) {
			if !math.IsNaN(x) {
				defined = append(defined, x)
			}
		}
		if len(defined) == 0 {
			out[f] = math.NaN()
			continue
		}
		out[f] = stat.Mean(defined, nil)
	}

	return out
}

// Area is the physical area of the ROI in mm^2: the defined cells of the
// first frame times the pixel area. The ROI is assumed to keep its shape
// across frames.
func Area(r roi.Volume, pixelArea float64) float64 {
	return Round2(float64(r.Count(0)) * pixelArea)
}

// TimeSeries spaces n samples evenly over [0, rr) ms, each rounded to the
// nearest millisecond.
func TimeSeries(rr float64, n int) []float64 {
	if n <= 0 {
		return nil
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = math.RoundToEven(float64(i) * rr / float64(n))
	}
	return out
}

// FlowSeries is velocity times area for each frame, in mm^3/s when velocity
// is mm/s and area is mm^2.
func FlowSeries(velocity []float64, area float64) []float64 {
	out := make([]float64, len(velocity))
	for i, v := range velocity {
		out[i] = Round2(v * area)
	}
	return out
}

func checkFlow(op string, flow []float64) error {
	if len(flow) == 0 {
		return flowerr.Invariant(op, "empty flow series")
	}
	return nil
}

func checkPair(op string, time, flow []float64) error {
	if len(time) != len(flow) {
		return flowerr.Invariant(op, "%d time samples but %d flow samples", len(time), len(flow))
	}
	return checkFlow(op, flow)
}

// MinFlow is the smallest flow value.
func MinFlow(flow []float64) (float64, error) {
	if err := checkFlow("MinFlow", flow); err != nil {
		return 0, err
	}
	return floats.Min(flow), nil
}

// MaxFlow is the largest flow value.
func MaxFlow(flow []float64) (float64, error) {
	if err := checkFlow("MaxFlow", flow); err != nil {
		return 0, err
	}
	return floats.Max(flow), nil
}

// AverageFlow is the mean flow.
func AverageFlow(flow []float64) (float64, error) {
	if err := checkFlow("AverageFlow", flow); err != nil {
		return 0, err
	}
	return Round2(stat.Mean(flow, nil)), nil
}

// TimeToMinFlow is the time of the first minimum of flow.
func TimeToMinFlow(time, flow []float64) (float64, error) {
	if err := checkPair("TimeToMinFlow", time, flow); err != nil {
		return 0, err
	}
	return time[floats.MinIdx(flow)], nil
}

// TimeToMaxFlow is the time of the first maximum of flow.
func TimeToMaxFlow(time, flow []float64) (float64, error) {
	if err := checkPair("TimeToMaxFlow", time, flow); err != nil {
		return 0, err
	}
	return time[floats.MaxIdx(flow)], nil
}

// VolumeDisplaced is the fluid moved in either direction over the sampled
// interval, in mm^3 for flow in mm^3/s and time in ms. Positive and negative
// lobes are integrated separately with the trapezoidal rule and their
// magnitudes summed.
func VolumeDisplaced(time, flow []float64) (float64, error) {
	if len(time) != len(flow) {
		return 0, flowerr.Invariant("VolumeDisplaced", "%d time samples but %d flow samples", len(time), len(flow))
	}
	if len(time) < 2 {
		return 0, flowerr.Unavailable("VolumeDisplaced", "need at least 2 time samples, have %d", len(time))
	}

	seconds := make([]float64, len(time))
	floats.ScaleTo(seconds, 1e-3, time)

	pos := make([]float64, len(flow))
	neg := make([]float64, len(flow))
	for i, q := range flow {
		if q > 0 {
			pos[i] = q
		} else {
			neg[i] = q
		}
	}

	displaced := trapezoid(seconds, pos) + math.Abs(trapezoid(seconds, neg))

	return Round2(displaced), nil
}

// trapezoid integrates f over x with the trapezoidal rule. gonum requires x
// sorted; anything else is summed segment by segment.
func trapezoid(x, f []float64) float64 {
	if sort.Float64sAreSorted(x) {
		return integrate.Trapezoidal(x, f)
	}

	var sum float64
	for i := 1; i < len(x); i++ {
		sum += (x[i] - x[i-1]) * (f[i] + f[i-1]) / 2
	}
	return sum
}

// Pulsatility is the slope between the flow extrema,
// |(max - min) / (tMax - tMin)|. It is Degenerate when both extrema fall on
// the same sample time.
func Pulsatility(time, flow []float64) (float64, error) {
	if err := checkPair("Pulsatility", time, flow); err != nil {
		return 0, err
	}

	iMin, iMax := floats.MinIdx(flow), floats.MaxIdx(flow)
	dt := time[iMax] - time[iMin]
	if dt == 0 {
		return 0, flowerr.Degenerate("Pulsatility", "minimum and maximum flow occur at the same time (%v ms)", time[iMax])
	}

	return Round2(math.Abs((flow[iMax] - flow[iMin]) / dt)), nil
}

// PulsatilityIndex is |(min - max) / mean|, using the rounded mean. It is
// Degenerate when the mean flow is zero.
func PulsatilityIndex(flow []float64) (float64, error) {
	avg, err := AverageFlow(flow)
	if err != nil {
		return 0, err
	}
	if avg == 0 {
		return 0, flowerr.Degenerate("PulsatilityIndex", "average flow is zero")
	}

	return Round2(math.Abs((floats.Min(flow) - floats.Max(flow)) / avg)), nil
}

// Denominator selects which extremum a resistivity index is normalized by.
type Denominator int

const (
	DenominatorMax Denominator = iota
	DenominatorMin
)

func (d Denominator) String() string {
	if d == DenominatorMin {
		return "min"
	}
	return "max"
}

// ResistivityIndex is |(min - max) / d| where d is the minimum or maximum
// flow. It is Degenerate when d is zero.
func ResistivityIndex(flow []float64, d Denominator) (float64, error) {
	if err := checkFlow("ResistivityIndex", flow); err != nil {
		return 0, err
	}

	lo, hi := floats.Min(flow), floats.Max(flow)
	den := hi
	if d == DenominatorMin {
		den = lo
	}
	if den == 0 {
		return 0, flowerr.Degenerate("ResistivityIndex", "%s flow is zero", d)
	}

	return Round2(math.Abs((lo - hi) / den)), nil
}

// PulseVolume is the volume displaced between the flow minimum and the
// following flow maximum, both samples included. When the maximum comes
// before the minimum there is no such interval and the result is
// Unavailable, as it is when the interval holds fewer than 2 samples.
func PulseVolume(time, flow []float64) (float64, error) {
	if err := checkPair("PulseVolume", time, flow); err != nil {
		return 0, err
	}

	iMin, iMax := floats.MinIdx(flow), floats.MaxIdx(flow)
	if iMax < iMin {
		return 0, flowerr.Unavailable("PulseVolume", "peak flow (frame %d) precedes minimum flow (frame %d)", iMax, iMin)
	}
	if iMax == iMin {
		return 0, flowerr.Unavailable("PulseVolume", "minimum and peak flow fall on the same frame")
	}

	return VolumeDisplaced(time[iMin:iMax+1], flow[iMin:iMax+1])
}
