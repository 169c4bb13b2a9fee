// Package export writes analyzed regions to disk: CSV tables of the measures,
// waveforms and per-frame velocities, and PNG renderings of the flow curves
// and ROI intensities.
package export

import (
	"io"
	"strconv"

	"github.com/arsakhar/NeuroFlow/analysis"
	"github.com/arsakhar/NeuroFlow/flow"
	"github.com/arsakhar/NeuroFlow/flowerr"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"
)

// CSVFloat is a nullable float that gocsv writes as blank when null.
type CSVFloat struct {
	null.Float
}

func (f CSVFloat) MarshalCSV() (string, error) {
	if !f.Valid {
		return "", nil
	}
	return strconv.FormatFloat(f.Float64, 'f', -1, 64), nil
}

// MeasureRow is one scalar of one region, in long format.
type MeasureRow struct {
	Region  string   `csv:"region"`
	Preset  string   `csv:"preset"`
	Measure string   `csv:"measure"`
	Value   CSVFloat `csv:"value"`
	Status  string   `csv:"status"`
}

// WaveformRow is one time point of one region's flow curve.
type WaveformRow struct {
	Region string  `csv:"region"`
	TimeMS float64 `csv:"time_ms"`
	Flow   float64 `csv:"flow_mm3_per_s"`
}

// status describes why a value is missing, blank when it is not.
func status(err error) string {
	switch flowerr.KindOf(err) {
	case flowerr.KindUnavailable:
		return "unavailable"
	case flowerr.KindDegenerate:
		return "degenerate"
	case flowerr.KindInvariant:
		return "invalid"
	}
	if err != nil {
		return "error"
	}
	return ""
}

// MeasureRows flattens every region's scalars, skipping the Preset row. A
// region with no measures contributes one row per label of preset, all
// blank, so every region appears in the table.
func MeasureRows(regions []*analysis.Region, preset flow.Preset) []*MeasureRow {
	out := make([]*MeasureRow, 0)

	for _, r := range regions {
		if r.Measures == nil {
			for _, label := range preset.Labels() {
				if label == flow.LabelPreset {
					continue
				}
				out = append(out, &MeasureRow{
					Region:  r.ID,
					Preset:  preset.String(),
					Measure: label,
					Status:  status(r.Err),
				})
			}
			continue
		}

		for _, s := range r.Measures.Scalars {
			if s.Label == flow.LabelPreset {
				continue
			}
			out = append(out, &MeasureRow{
				Region:  r.ID,
				Preset:  r.Measures.Preset.String(),
				Measure: s.Label,
				Value:   CSVFloat{s.Value},
				Status:  status(s.Err),
			})
		}
	}

	return out
}

// WriteMeasures writes MeasureRows as CSV with a header.
func WriteMeasures(w io.Writer, regions []*analysis.Region, preset flow.Preset) error {
	return pfx.Err(gocsv.Marshal(MeasureRows(regions, preset), w))
}

// WaveformRows flattens every measured region's flow curve.
func WaveformRows(regions []*analysis.Region) []*WaveformRow {
	out := make([]*WaveformRow, 0)

	for _, r := range regions {
		if r.Measures == nil {
			continue
		}
		for _, wf := range r.Measures.Waveforms {
			for i := range wf.Time {
				out = append(out, &WaveformRow{Region: r.ID, TimeMS: wf.Time[i], Flow: wf.Flow[i]})
			}
		}
	}

	return out
}

// WriteWaveforms writes WaveformRows as CSV with a header.
func WriteWaveforms(w io.Writer, regions []*analysis.Region) error {
	return pfx.Err(gocsv.Marshal(WaveformRows(regions), w))
}

// WriteFlowTable writes the side-by-side table the desktop application
// saves: two columns per region holding an "ID" row, every scalar but the
// preset, a blank row, the waveform's axis names and then its points.
// Unmeasured regions keep their column pair with blank values.
func WriteFlowTable(w io.Writer, regions []*analysis.Region, preset flow.Preset) error {
	blocks := make([][][2]string, 0, len(regions))
	height := 0

	for _, r := range regions {
		block := [][2]string{{"ID", r.ID}}

		timeLabel, flowLabel := flow.Waveform{Label: flow.LabelWaveform}.Axes()
		var wf flow.Waveform

		if r.Measures != nil {
			for _, s := range r.Measures.Scalars {
				if s.Label == flow.LabelPreset {
					continue
				}
				block = append(block, [2]string{s.Label, s.String()})
			}
			if len(r.Measures.Waveforms) > 0 {
				wf = r.Measures.Waveforms[0]
				timeLabel, flowLabel = wf.Axes()
			}
		} else {
			for _, label := range preset.Labels() {
				if label == flow.LabelPreset {
					continue
				}
				block = append(block, [2]string{label, ""})
			}
		}

		block = append(block, [2]string{}, [2]string{timeLabel, flowLabel})
		for i := range wf.Time {
			block = append(block, [2]string{formatFloat(wf.Time[i]), formatFloat(wf.Flow[i])})
		}

		if len(block) > height {
			height = len(block)
		}
		blocks = append(blocks, block)
	}

	csvWriter := gocsv.DefaultCSVWriter(w)
	for i := 0; i < height; i++ {
		row := make([]string, 0, 2*len(blocks))
		for _, block := range blocks {
			if i < len(block) {
				row = append(row, block[i][0], block[i][1])
			} else {
				row = append(row, "", "")
			}
		}
		if err := csvWriter.Write(row); err != nil {
			return pfx.Err(err)
		}
	}
	csvWriter.Flush()

	return pfx.Err(csvWriter.Error())
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
