package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/arsakhar/NeuroFlow/flow"
	"github.com/arsakhar/NeuroFlow/flowerr"
	"github.com/arsakhar/NeuroFlow/phasecontrast"
	"github.com/arsakhar/NeuroFlow/phasecontrast/phasecontrasttest"
	"github.com/arsakhar/NeuroFlow/roi"
	"github.com/arsakhar/NeuroFlow/sequence"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// flowStudy builds one acquisition ("flow") exported as magnitude and phase,
// plus an unrelated magnitude-only series ("anat"). Phase frames hold
// 2047.5, 4095, 0, 3071.25 so flow through the whole 2x2 frame is
// 0, 31.83, -31.83, 15.92 mm^3/s.
func flowStudy() *phasecontrast.Study {
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

	return &phasecontrast.Study{Series: []*phasecontrast.Series{
		phasecontrasttest.Series(magnitude),
		phasecontrasttest.Series(phase),
		phasecontrasttest.Series(anat),
	}}
}

func fullMask() roi.Mask {
	m := roi.NewMask(2, 2)
	for i := range m.Data {
		m.Data[i] = true
	}
	return m
}

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func TestAnalyzeMapsToPhase(t *testing.T) {
	study := flowStudy()
	a := Analyzer{Index: sequence.Build(study), Preset: flow.Default, Log: quietLogger()}

	r, err := NewRegion("", fullMask(), study.Series[0])
	if err != nil {
		t.Fatal(err)
	}
	if r.ID != DefaultRegionID {
		t.Fatalf("region id %q", r.ID)
	}

	got, err := a.Analyze(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	if got == r {
		t.Fatal("Analyze returned its input instead of a new region")
	}
	if r.Measures != nil || r.Phase != nil {
		t.Fatal("Analyze modified its input")
	}
	if got.Phase != study.Series[1] {
		t.Fatalf("measured against series %s", got.Phase.Number())
	}

	for label, expected := range map[string]float64{
		flow.LabelROIArea:     1,
		flow.LabelMinimumFlow: -31.83,
		flow.LabelMaximumFlow: 31.83,
	} {
		s, ok := got.Measures.Scalar(label)
		if !ok || !s.Value.Valid || s.Value.Float64 != expected {
			t.Errorf("%s: got %v (%v), expected %v", label, s.Value, s.Err, expected)
		}
	}
}

func TestAnalyzeUnavailable(t *testing.T) {
	study := flowStudy()
	a := Analyzer{Index: sequence.Build(study), Preset: flow.Artery, Log: quietLogger()}

	anat, err := NewRegion("ICA", fullMask(), study.Series[2])
	if err != nil {
		t.Fatal(err)
	}

	got, err := a.Analyze(context.Background(), anat)
	if !errors.Is(err, flowerr.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if got == nil || got.Measures != nil || !errors.Is(got.Err, flowerr.ErrUnavailable) {
		t.Fatalf("result %+v", got)
	}

	stray := phasecontrasttest.Series(phasecontrasttest.SeriesSpec{Number: 9, Frames: phasecontrasttest.Constant(4, 2, 2, 1)})
	r, err := NewRegion("VA", fullMask(), stray)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Analyze(context.Background(), r); !errors.Is(err, flowerr.ErrUnavailable) {
		t.Fatalf("unindexed series: expected unavailable, got %v", err)
	}

	if _, err := (Analyzer{}).Analyze(context.Background(), r); !errors.Is(err, flowerr.ErrInvariant) {
		t.Fatalf("no index: expected invariant violation, got %v", err)
	}
}

func TestAnalyzeWarnsOnDuplicatePhase(t *testing.T) {
	study := flowStudy()
	dup := phasecontrasttest.Series(phasecontrasttest.SeriesSpec{
		Number:   4,
		Protocol: "flow",
		Recon:    "P",
		Frames:   phasecontrasttest.Constant(4, 2, 2, 0),
	})
	study.Series = append(study.Series, dup)

	log, hook := test.NewNullLogger()
	a := Analyzer{Index: sequence.Build(study), Log: log}

	r, err := NewRegion("CA", fullMask(), study.Series[0])
	if err != nil {
		t.Fatal(err)
	}

	got, err := a.Analyze(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	if got.Phase != study.Series[1] {
		t.Fatalf("expected the first phase series, got %s", got.Phase.Number())
	}

	warned := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected a warning about duplicate phase series")
	}
}

func TestAnalyzeAll(t *testing.T) {
	study := flowStudy()
	a := Analyzer{Index: sequence.Build(study), Preset: flow.Vein, Log: quietLogger()}

	ok, err := NewRegion("IJV", fullMask(), study.Series[0])
	if err != nil {
		t.Fatal(err)
	}
	missing, err := NewRegion("anat", fullMask(), study.Series[2])
	if err != nil {
		t.Fatal(err)
	}

	got, err := a.AnalyzeAll(context.Background(), []*Region{ok, missing})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "IJV" || got[1].ID != "anat" {
		t.Fatalf("results out of order: %v", got)
	}
	if got[0].Measures == nil || got[0].Measures.Preset != flow.Vein {
		t.Fatalf("first region: %+v", got[0])
	}
	if got[1].Measures != nil || !errors.Is(got[1].Err, flowerr.ErrUnavailable) {
		t.Fatalf("second region: %+v", got[1])
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.AnalyzeAll(ctx, []*Region{ok}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestRegionsFromMasks(t *testing.T) {
	source := flowStudy().Series[0]

	left, right, centre := roi.NewMask(2, 2), roi.NewMask(2, 2), roi.NewMask(2, 2)
	left.Set(0, 0, true)
	left.Set(1, 0, true)
	right.Set(0, 1, true)
	right.Set(1, 0, true)
	centre.Set(1, 1, true)

	regions, err := RegionsFromMasks([]string{"CA", "SS", "CA"}, []roi.Mask{left, centre, right}, source)
	if err != nil {
		t.Fatal(err)
	}
	if len(regions) != 2 || regions[0].ID != "CA" || regions[1].ID != "SS" {
		t.Fatalf("regions %v", regions)
	}

	// (1,0) is in both CA masks and cancels out
	ca := regions[0].Mask
	if !ca.At(0, 0) || !ca.At(0, 1) || ca.At(1, 0) || ca.At(1, 1) {
		t.Fatalf("merged CA mask %v", ca.Data)
	}
	if n := regions[0].ImageROI.Count(3); n != 2 {
		t.Fatalf("CA covers %d pixels in the last frame", n)
	}

	if _, err := RegionsFromMasks([]string{"CA"}, nil, source); !errors.Is(err, flowerr.ErrInvariant) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}

func TestNewPolygonRegion(t *testing.T) {
	source := flowStudy().Series[0]

	r, err := NewPolygonRegion("VA", roi.Polygon{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0}}, source)
	if err != nil {
		t.Fatal(err)
	}
	if n := r.Mask.Count(); n != 2 {
		t.Fatalf("polygon covers %d pixels, expected the 2 on its top edge", n)
	}
	if len(r.Vertices) != 3 {
		t.Fatal("vertices not kept")
	}
}

func TestRecomputerKeepsLatest(t *testing.T) {
	study := flowStudy()

	var published int32
	rc := NewRecomputer(
		Analyzer{Index: sequence.Build(study), Preset: flow.Aqueduct, Log: quietLogger()},
		func(*Region, error) { atomic.AddInt32(&published, 1) },
	)

	if r, _ := rc.Latest(); r != nil {
		t.Fatal("result before any submission")
	}

	first, err := NewRegion("first", fullMask(), study.Series[0])
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewRegion("second", fullMask(), study.Series[0])
	if err != nil {
		t.Fatal(err)
	}

	rc.Submit(context.Background(), first)
	rc.Submit(context.Background(), second)
	rc.Wait()

	got, err := rc.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != "second" {
		t.Fatalf("latest is %v, expected the second submission", got)
	}
	if got.Measures == nil || got.Measures.Preset != flow.Aqueduct {
		t.Fatalf("latest measures %+v", got.Measures)
	}
	if n := atomic.LoadInt32(&published); n < 1 || n > 2 {
		t.Fatalf("published %d times", n)
	}

	rc.Close()
}

func TestRecomputerSubmitDuringClose(t *testing.T) {
	study := flowStudy()
	rc := NewRecomputer(Analyzer{Index: sequence.Build(study), Preset: flow.Default, Log: quietLogger()}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		r, err := NewRegion("region", fullMask(), study.Series[0])
		if err != nil {
			t.Fatal(err)
		}

		wg.Add(2)
		go func() {
			defer wg.Done()
			rc.Submit(context.Background(), r)
		}()
		go func() {
			defer wg.Done()
			rc.Wait()
		}()
	}
	wg.Wait()

	rc.Close()

	// Every goroutine has returned, so a fresh submission still publishes
	last, err := NewRegion("last", fullMask(), study.Series[0])
	if err != nil {
		t.Fatal(err)
	}
	rc.Submit(context.Background(), last)
	rc.Wait()

	if got, err := rc.Latest(); err != nil || got == nil || got.ID != "last" {
		t.Fatalf("latest %v, %v", got, err)
	}
}
