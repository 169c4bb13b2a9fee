package export

import (
	"io"
	"math"

	"github.com/arsakhar/NeuroFlow/analysis"
	"github.com/arsakhar/NeuroFlow/flow"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
)

// VelocityRow summarizes the pixel velocities (mm/s) of one frame of one
// region's phase ROI.
type VelocityRow struct {
	Region string  `csv:"region"`
	Frame  int     `csv:"frame"`
	TimeMS float64 `csv:"time_ms"`
	Pixels int     `csv:"pixels"`
	Mean   float64 `csv:"velocity_mean"`
	SD     float64 `csv:"velocity_sd"`
	Min    float64 `csv:"velocity_min"`
	P01    float64 `csv:"velocity_01pct"`
	Median float64 `csv:"velocity_median"`
	P99    float64 `csv:"velocity_99pct"`
	Max    float64 `csv:"velocity_max"`

	// Aliased is set when a pixel comes within 1% of the venc, where phase
	// wrapping becomes likely.
	Aliased bool `csv:"aliasing_risk"`
}

// VelocitySummary describes every frame of every measured region.
func VelocitySummary(regions []*analysis.Region) ([]*VelocityRow, error) {
	out := make([]*VelocityRow, 0)

	for _, r := range regions {
		if r.Measures == nil {
			continue
		}

		in := r.Intermediates
		velocity := flow.Velocity(r.PhaseROI, float64(in.Venc))

		for f := 0; f < velocity.Frames; f++ {
			data := make(stats.Float64Data, 0, velocity.Rows*velocity.Cols)
			for _, v := range velocity.Frame(f) {
				if !math.IsNaN(v) {
					data = append(data, v)
				}
			}

			row, err := describeVelocities(data)
			if err != nil {
				return nil, pfx.Err(err)
			}

			row.Region = r.ID
			row.Frame = f
			if f < len(in.Time) {
				row.TimeMS = in.Time[f]
			}
			row.Aliased = math.Max(math.Abs(row.Min), math.Abs(row.Max)) > 0.99*float64(in.Venc)

			out = append(out, row)
		}
	}

	return out, nil
}

func describeVelocities(data stats.Float64Data) (*VelocityRow, error) {
	out := &VelocityRow{Pixels: data.Len()}
	if data.Len() == 0 {
		nan := math.NaN()
		out.Mean, out.SD, out.Min, out.P01, out.Median, out.P99, out.Max = nan, nan, nan, nan, nan, nan, nan
		return out, nil
	}

	var err error
	if out.Mean, err = data.Mean(); err != nil {
		return nil, err
	}
	if out.SD, err = data.StandardDeviation(); err != nil {
		return nil, err
	}
	if out.Min, err = data.Min(); err != nil {
		return nil, err
	}
	if out.Max, err = data.Max(); err != nil {
		return nil, err
	}
	if out.Median, err = data.Median(); err != nil {
		return nil, err
	}
	// Too few pixels to resolve the tails
	if out.P01, err = data.Percentile(1); err != nil {
		out.P01 = out.Min
	}
	if out.P99, err = data.Percentile(99); err != nil {
		out.P99 = out.Max
	}

	return out, nil
}

// WriteVelocitySummary writes VelocitySummary as CSV with a header.
func WriteVelocitySummary(w io.Writer, regions []*analysis.Region) error {
	rows, err := VelocitySummary(regions)
	if err != nil {
		return err
	}

	return pfx.Err(gocsv.Marshal(rows, w))
}
