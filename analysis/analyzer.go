package analysis

import (
	"context"
	"errors"
	"runtime"

	"github.com/arsakhar/NeuroFlow/flow"
	"github.com/arsakhar/NeuroFlow/flowerr"
	"github.com/arsakhar/NeuroFlow/phasecontrast"
	"github.com/arsakhar/NeuroFlow/roi"
	"github.com/arsakhar/NeuroFlow/sequence"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Analyzer measures regions under one preset.
type Analyzer struct {
	Index  *sequence.Index
	Preset flow.Preset

	// Log defaults to the logrus standard logger.
	Log logrus.FieldLogger
}

func (a Analyzer) logger() logrus.FieldLogger {
	if a.Log == nil {
		return logrus.StandardLogger()
	}
	return a.Log
}

// Analyze returns a copy of r measured under a.Preset. When the measures are
// not computable (no phase series, geometry mismatch, missing venc or RR) the
// copy carries the reason in Err and the error is also returned; callers
// showing a table should render the region blank rather than abort. Only
// context cancellation and invariant violations are real failures.
func (a Analyzer) Analyze(ctx context.Context, r *Region) (*Region, error) {
	out := *r
	out.Phase, out.PhaseROI, out.Intermediates, out.Measures, out.Err = nil, roi.Volume{}, flow.Intermediates{}, nil, nil

	log := a.logger().WithField("region", r.ID).WithField("preset", a.Preset)

	fail := func(err error) (*Region, error) {
		out.Err = err
		if flowerr.KindOf(err) == flowerr.KindUnavailable {
			log.WithError(err).Infoln("Measures unavailable")
		} else {
			log.WithError(err).Warnln("Measures failed")
		}
		return &out, err
	}

	if a.Index == nil {
		return fail(flowerr.Invariant("Analyze", "analyzer has no sequence index"))
	}

	if r.Source == nil {
		return fail(flowerr.Unavailable("Analyze", "region has no source series"))
	}

	seq := a.Index.SequenceOf(r.Source)
	if seq == nil {
		return fail(flowerr.Unavailable("Analyze", "series %s is not part of a loaded sequence", r.Source.Number()))
	}
	if counts := seq.CountByType(); counts[phasecontrast.Phase] > 1 {
		log.WithField("sequence", seq.Name).Warnln("Sequence has", counts[phasecontrast.Phase], "phase series; using the first")
	}

	out.Phase = seq.SeriesByType(phasecontrast.Phase)
	if out.Phase == nil {
		return fail(flowerr.Unavailable("Analyze", "sequence %q has no phase series", seq.Name))
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	phaseROI, err := roi.MapToPhase(r.ImageROI, r.Source, out.Phase)
	if err != nil {
		return fail(err)
	}
	out.PhaseROI = phaseROI

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	in, err := flow.Prepare(phaseROI, out.Phase)
	if err != nil {
		return fail(err)
	}
	out.Intermediates = in

	bundle := flow.Measure(a.Preset, in)
	out.Measures = &bundle

	for _, s := range bundle.Errors() {
		log.WithField("measure", s.Label).WithError(s.Err).Debugln("Measure not computable")
	}
	log.WithField("phase_series", out.Phase.Number()).Debugln("Measured region")

	return &out, nil
}

// AnalyzeAll measures every region concurrently. Each result's Err holds its
// own unavailability; the returned error is non-nil only for cancellation or
// an invariant violation.
func (a Analyzer) AnalyzeAll(ctx context.Context, regions []*Region) ([]*Region, error) {
	out := make([]*Region, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, r := range regions {
		i, r := i, r
		g.Go(func() error {
			res, err := a.Analyze(gctx, r)
			out[i] = res
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || flowerr.KindOf(err) == flowerr.KindInvariant {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
