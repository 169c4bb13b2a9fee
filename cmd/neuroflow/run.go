package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/arsakhar/NeuroFlow/analysis"
	"github.com/arsakhar/NeuroFlow/export"
	"github.com/arsakhar/NeuroFlow/overlay"
	"github.com/arsakhar/NeuroFlow/phasecontrast"
	"github.com/arsakhar/NeuroFlow/roi"
	"github.com/arsakhar/NeuroFlow/sequence"
	"github.com/carbocation/pfx"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

func run(ctx context.Context, cfg runConfig, client *storage.Client, log logrus.FieldLogger, stdout io.Writer) error {
	loader := phasecontrast.Loader{Log: log, Storage: client}

	var patient *phasecontrast.Patient
	var err error
	if cfg.DicomDir != "" {
		patient, err = loader.Open(cfg.DicomDir)
	} else {
		patient, err = loader.Zip(cfg.ZipPath)
	}
	if err != nil {
		return err
	}

	index := sequence.BuildPatient(patient)

	source, err := chooseSource(patient, index, cfg.SeriesNumber)
	if err != nil {
		return err
	}
	rows, cols := source.Images[0].Rows(), source.Images[0].Cols()

	log.WithFields(logrus.Fields{
		"patient": patient.ID(),
		"series":  source.Number(),
		"type":    source.ReconstructionType(),
		"images":  len(source.Images),
	}).Infoln("Drawing regions on series")

	masks, err := overlay.OpenMasks(cfg.MaskPath, cfg.Labels, rows, cols, client)
	if err != nil {
		return err
	}

	regions, err := buildRegions(cfg.Labels, masks, source, log)
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		return fmt.Errorf("The mask %s does not cover any labelled pixels", cfg.MaskPath)
	}

	analyzer := analysis.Analyzer{Index: index, Preset: cfg.Preset, Log: log}
	results, err := analyzer.AnalyzeAll(ctx, regions)
	if err != nil {
		return err
	}

	if err := writeOutputs(cfg, results, masks, rows, cols, log); err != nil {
		return err
	}

	printSummary(stdout, results, cfg)

	if cfg.Histogram {
		return printHistograms(os.Stderr, results)
	}

	return nil
}

// chooseSource finds the series the mask was drawn on. Without a series
// number it takes the first magnitude series, in study order, whose sequence
// also has a phase series, and failing that the first phase series.
func chooseSource(patient *phasecontrast.Patient, index *sequence.Index, number string) (*phasecontrast.Series, error) {
	all := patient.AllSeries()

	if number != "" {
		for _, s := range all {
			if s.Number() == number && len(s.Images) > 0 {
				return s, nil
			}
		}
		return nil, fmt.Errorf("Series %s was not found among %d loaded series", number, len(all))
	}

	for _, s := range all {
		if len(s.Images) > 0 && s.ReconstructionType() == phasecontrast.Magnitude && index.PhaseFor(s) != nil {
			return s, nil
		}
	}
	for _, s := range all {
		if len(s.Images) > 0 && s.ReconstructionType() == phasecontrast.Phase {
			return s, nil
		}
	}

	return nil, fmt.Errorf("None of the %d loaded series is a magnitude series with a matching phase series", len(all))
}

// buildRegions makes one region per label that the mask uses, in label
// order. Labels with an empty mask are skipped. A mask in several pieces is
// still measured as one region, with a warning.
func buildRegions(labels overlay.LabelMap, masks map[string]roi.Mask, source *phasecontrast.Series, log logrus.FieldLogger) ([]*analysis.Region, error) {
	var ids []string
	var ms []roi.Mask

	pieces := labels.CountConnectedRegions(masks)

	for _, label := range labels.Sorted() {
		m, exists := masks[label.Label]
		if !exists || m.Count() == 0 {
			continue
		}

		if n := pieces[label]; n > 1 {
			log.WithField("region", label.Label).Warnln("Mask has", n, "separate pieces; measuring them together")
		}

		ids = append(ids, label.Label)
		ms = append(ms, m)
	}

	regions, err := analysis.RegionsFromMasks(ids, ms, source)
	if err != nil {
		return nil, err
	}

	for _, r := range regions {
		r.Color = labels[r.ID].Color
	}

	return regions, nil
}

func outputName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

// fileSafe makes a region ID usable in a file name.
func fileSafe(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':':
			return '_'
		}
		return r
	}, id)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	if err := write(f); err != nil {
		f.Close()
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return pfx.Err(f.Close())
}

// writeOutputs saves the tables, the flow plot, the mask rendering and one
// cropped intensity image per region.
func writeOutputs(cfg runConfig, results []*analysis.Region, masks map[string]roi.Mask, rows, cols int, log logrus.FieldLogger) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return pfx.Err(err)
	}

	path := func(name string) string {
		return filepath.Join(cfg.OutputDir, outputName(cfg.FilePrefix, name))
	}

	tables := []struct {
		Name  string
		Write func(io.Writer) error
	}{
		{"flow_table.csv", func(w io.Writer) error { return export.WriteFlowTable(w, results, cfg.Preset) }},
		{"flow_measures.csv", func(w io.Writer) error { return export.WriteMeasures(w, results, cfg.Preset) }},
		{"flow_waveform.csv", func(w io.Writer) error { return export.WriteWaveforms(w, results) }},
		{"velocity_summary.csv", func(w io.Writer) error { return export.WriteVelocitySummary(w, results) }},
	}
	for _, t := range tables {
		if err := writeFile(path(t.Name), t.Write); err != nil {
			return err
		}
	}

	if err := writeFile(path("flow_plot.png"), func(w io.Writer) error { return export.WaveformPNG(w, results) }); err != nil {
		// Nothing measurable is not fatal; the tables already say why
		log.WithError(err).Warnln("Skipping flow plot")
		os.Remove(path("flow_plot.png"))
	}

	maskImage, err := cfg.Labels.Render(masks, rows, cols)
	if err != nil {
		return err
	}
	if err := imaging.Save(maskImage, path("mask_image.png")); err != nil {
		return pfx.Err(err)
	}

	if cfg.SaveRLE {
		rleBytes, err := cfg.Labels.EncodeMasksToRLE(masks, rows, cols)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path("mask.rle"), rleBytes, 0o644); err != nil {
			return pfx.Err(err)
		}
	}

	for _, r := range results {
		roiImage, err := export.ROIImage(r.ImageROI, 0)
		if err != nil {
			return err
		}

		cropped, err := overlay.SubsetAndRescaleImage(roiImage, overlay.MaskBounds(r.Mask), 8, 2)
		if err != nil {
			return err
		}

		if err := imaging.Save(cropped, path(fileSafe(r.ID)+"_roi_image.png")); err != nil {
			return pfx.Err(err)
		}
	}

	log.WithField("dir", cfg.OutputDir).Infoln("Wrote outputs for", len(results), "regions")

	return nil
}

// printSummary prints one tab-delimited row per region and measure.
func printSummary(w io.Writer, results []*analysis.Region, cfg runConfig) {
	fmt.Fprintln(w, strings.Join([]string{
		"region",
		"preset",
		"measure",
		"value",
		"status",
	}, "\t"))

	for _, row := range export.MeasureRows(results, cfg.Preset) {
		value, _ := row.Value.MarshalCSV()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			strings.ReplaceAll(row.Region, " ", "_"),
			row.Preset,
			row.Measure,
			value,
			row.Status,
		)
	}
}
