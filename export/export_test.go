package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/arsakhar/NeuroFlow/analysis"
	"github.com/arsakhar/NeuroFlow/flow"
	"github.com/arsakhar/NeuroFlow/phasecontrast"
	"github.com/arsakhar/NeuroFlow/phasecontrast/phasecontrasttest"
	"github.com/arsakhar/NeuroFlow/roi"
	"github.com/arsakhar/NeuroFlow/sequence"
	"github.com/sirupsen/logrus/hooks/test"
)

// analyzed returns one measured region over a 2x2 phase series whose frames
// give flows of 0, 31.83, -31.83 and 15.92 mm^3/s, and one region over a
// magnitude-only series that cannot be measured.
func analyzed(t *testing.T, preset flow.Preset) []*analysis.Region {
	t.Helper()

	base := phasecontrasttest.SeriesSpec{
		Protocol:    "flow",
		VencTag:     "v10_fh",
		Spacing:     [2]float64{0.5, 0.5},
		TriggerStep: 200,
	}

	magnitude := base
	magnitude.Number = 1
	magnitude.Recon = "M"
	magnitude.Frames = phasecontrasttest.Constant(4, 2, 2, 100)

	phase := base
	phase.Number = 2
	phase.Recon = "P"
	for _, v := range []float64{2047.5, 4095, 0, 3071.25} {
		phase.Frames = append(phase.Frames, phasecontrasttest.Constant(1, 2, 2, v)[0])
	}

	anat := base
	anat.Number = 3
	anat.Protocol = "anat"
	anat.Recon = "M"
	anat.Frames = phasecontrasttest.Constant(4, 2, 2, 100)

	study := &phasecontrast.Study{Series: []*phasecontrast.Series{
		phasecontrasttest.Series(magnitude),
		phasecontrasttest.Series(phase),
		phasecontrasttest.Series(anat),
	}}

	mask := roi.NewMask(2, 2)
	for i := range mask.Data {
		mask.Data[i] = true
	}

	ok, err := analysis.NewRegion("ICA", mask, study.Series[0])
	if err != nil {
		t.Fatal(err)
	}
	missing, err := analysis.NewRegion("Sinus", mask, study.Series[2])
	if err != nil {
		t.Fatal(err)
	}

	log, _ := test.NewNullLogger()
	a := analysis.Analyzer{Index: sequence.Build(study), Preset: preset, Log: log}
	out, err := a.AnalyzeAll(context.Background(), []*analysis.Region{ok, missing})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestWriteMeasures(t *testing.T) {
	regions := analyzed(t, flow.Default)

	var buf bytes.Buffer
	if err := WriteMeasures(&buf, regions, flow.Default); err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, buf.Bytes())
	if strings.Join(rows[0], ",") != "region,preset,measure,value,status" {
		t.Fatalf("header %v", rows[0])
	}

	// Four scalars besides the preset, for each of two regions
	if len(rows) != 1+2*4 {
		t.Fatalf("%d rows", len(rows))
	}

	found := false
	for _, row := range rows[1:] {
		if row[0] == "ICA" && row[2] == flow.LabelMaximumFlow {
			found = true
			if row[3] != "31.83" || row[4] != "" {
				t.Errorf("maximum flow row %v", row)
			}
		}
		if row[0] == "Sinus" && (row[3] != "" || row[4] != "unavailable") {
			t.Errorf("unmeasured row %v", row)
		}
	}
	if !found {
		t.Fatal("no maximum flow row for ICA")
	}
}

func TestWriteWaveforms(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWaveforms(&buf, analyzed(t, flow.Artery)); err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, buf.Bytes())
	if len(rows) != 5 {
		t.Fatalf("%d rows, expected a header and four points", len(rows))
	}
	if rows[2][0] != "ICA" || rows[2][1] != "200" || rows[2][2] != "31.83" {
		t.Fatalf("second point %v", rows[2])
	}
}

func TestWriteFlowTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFlowTable(&buf, analyzed(t, flow.Aqueduct), flow.Aqueduct); err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, buf.Bytes())

	// ID, 6 scalars, blank, axis names, 4 points
	if len(rows) != 1+6+1+1+4 {
		t.Fatalf("%d rows", len(rows))
	}
	for _, row := range rows {
		if len(row) != 4 {
			t.Fatalf("row %v is not two column pairs", row)
		}
	}

	if rows[0][0] != "ID" || rows[0][1] != "ICA" || rows[0][3] != "Sinus" {
		t.Fatalf("id row %v", rows[0])
	}
	if rows[1][0] != flow.LabelROIArea || rows[1][1] != "1" {
		t.Fatalf("area row %v", rows[1])
	}
	if rows[8][0] != "Time (ms)" || rows[8][1] != "Flow (mm^3/s)" {
		t.Fatalf("axis row %v", rows[8])
	}
	if rows[10][1] != "31.83" || rows[10][2] != "" {
		t.Fatalf("point row %v", rows[10])
	}
}

func TestVelocitySummary(t *testing.T) {
	rows, err := VelocitySummary(analyzed(t, flow.Default))
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 4 {
		t.Fatalf("%d rows, expected one per frame of the measured region", len(rows))
	}

	peak := rows[1]
	expected := flow.PhaseToVelocity(4095, 100)
	if peak.Pixels != 4 || peak.TimeMS != 200 {
		t.Fatalf("row %+v", peak)
	}
	if math.Abs(peak.Mean-expected) > 1e-9 || peak.Min != peak.Max || peak.SD > 1e-9 {
		t.Fatalf("row %+v, expected every pixel at %v", peak, expected)
	}
	if peak.Aliased {
		t.Fatal("31.8 mm/s against a 100 mm/s venc is not near aliasing")
	}

	var buf bytes.Buffer
	if err := WriteVelocitySummary(&buf, analyzed(t, flow.Default)); err != nil {
		t.Fatal(err)
	}
	if got := readCSV(t, buf.Bytes()); len(got) != 5 || got[0][0] != "region" {
		t.Fatalf("csv %v", got)
	}
}

func TestWaveformPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WaveformPNG(&buf, analyzed(t, flow.Vein)); err != nil {
		t.Fatal(err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 400 {
		t.Fatalf("bounds %v", b)
	}

	if err := WaveformPNG(&bytes.Buffer{}, nil); err == nil {
		t.Fatal("expected an error with nothing to plot")
	}
}

func TestROIImage(t *testing.T) {
	v := roi.NewVolume(1, 2, 2)
	v.Set(0, 0, 0, 10)
	v.Set(0, 0, 1, 20)
	v.Set(0, 1, 1, 5)

	img, err := ROIImage(v, 0)
	if err != nil {
		t.Fatal(err)
	}

	// NaN counts as 0, so the range is 0..20
	for _, c := range []struct {
		X, Y     int
		Expected uint8
	}{
		{0, 0, 128},
		{1, 0, 255},
		{0, 1, 0},
		{1, 1, 64},
	} {
		if got := img.GrayAt(c.X, c.Y).Y; got != c.Expected {
			t.Errorf("(%d, %d) = %d, expected %d", c.X, c.Y, got, c.Expected)
		}
	}

	if _, err := ROIImage(v, 1); err == nil {
		t.Fatal("expected an out-of-range error")
	}
}
