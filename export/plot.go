package export

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/arsakhar/NeuroFlow/analysis"
	"github.com/arsakhar/NeuroFlow/flow"
	"github.com/arsakhar/NeuroFlow/roi"
	"github.com/wcharczuk/go-chart/v2"
	"gonum.org/v1/gonum/floats"
)

// WaveformPNG draws every measured region's flow curve on one chart.
func WaveformPNG(w io.Writer, regions []*analysis.Region) error {
	xName, yName := flow.Waveform{Label: flow.LabelWaveform}.Axes()

	series := make([]chart.Series, 0, len(regions))
	for _, r := range regions {
		if r.Measures == nil {
			continue
		}
		for _, wf := range r.Measures.Waveforms {
			if len(wf.Time) < 2 {
				continue
			}
			xName, yName = wf.Axes()
			series = append(series, chart.ContinuousSeries{
				Name:    r.ID,
				XValues: wf.Time,
				YValues: wf.Flow,
			})
		}
	}

	if len(series) == 0 {
		return fmt.Errorf("No region has a flow curve to plot")
	}

	graph := chart.Chart{
		Width:  800,
		Height: 400,
		XAxis: chart.XAxis{
			Name: xName,
		},
		YAxis: chart.YAxis{
			Name: yName,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// ROIImage renders one frame of an ROI as 8-bit grayscale. Cells outside
// the ROI are treated as zero and the frame is stretched to 0-255.
func ROIImage(v roi.Volume, frame int) (*image.Gray, error) {
	if frame < 0 || frame >= v.Frames {
		return nil, fmt.Errorf("Frame %d is out of range for a volume of %d frames", frame, v.Frames)
	}

	data := make([]float64, v.Rows*v.Cols)
	for i, x := range v.Frame(frame) {
		if !math.IsNaN(x) {
			data[i] = x
		}
	}

	out := image.NewGray(image.Rect(0, 0, v.Cols, v.Rows))
	if len(data) == 0 {
		return out, nil
	}

	lo, hi := floats.Min(data), floats.Max(data)
	if hi > lo {
		floats.AddConst(-lo, data)
		floats.Scale(255/(hi-lo), data)
	} else {
		for i := range data {
			data[i] = 0
		}
	}

	for i, x := range data {
		out.Pix[i] = uint8(math.Round(x))
	}

	return out, nil
}
