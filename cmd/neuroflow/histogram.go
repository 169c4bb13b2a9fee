package main

import (
	"fmt"
	"io"
	"math"

	"github.com/arsakhar/NeuroFlow/analysis"
	"github.com/arsakhar/NeuroFlow/flow"
	"github.com/aybabtme/uniplot/histogram"
)

// printHistograms draws each measured region's pixel velocities, pooled over
// every frame, as a text histogram. Velocities piled against +/- venc point
// to aliasing.
func printHistograms(w io.Writer, results []*analysis.Region) error {
	for _, r := range results {
		if r.Measures == nil {
			continue
		}

		velocity := flow.Velocity(r.PhaseROI, float64(r.Intermediates.Venc))

		data := make([]float64, 0, len(velocity.Data))
		for _, v := range velocity.Data {
			if !math.IsNaN(v) {
				data = append(data, v)
			}
		}
		if len(data) == 0 {
			continue
		}

		fmt.Fprintf(w, "%s: %d pixel velocities (mm/s), venc %d mm/s\n", r.ID, len(data), r.Intermediates.Venc)

		// The number of buckets is arbitrary
		hist := histogram.Hist(25, data)
		if err := histogram.Fprint(w, hist, histogram.Linear(5)); err != nil {
			return err
		}
	}

	return nil
}
