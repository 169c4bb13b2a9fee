// neuroflow measures cerebrospinal fluid and blood flow through regions drawn
// on a phase-contrast MRI study. It loads a DICOM directory or zip, applies a
// label mask to one series, maps each region onto the matching phase series
// and writes the measures for the chosen preset.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/arsakhar/NeuroFlow/analysis"
	_ "github.com/arsakhar/NeuroFlow/compileinfoprint"
	"github.com/arsakhar/NeuroFlow/flow"
	"github.com/arsakhar/NeuroFlow/overlay"
	"github.com/sirupsen/logrus"
)

// runConfig is the merged result of the JSON config and the flags.
type runConfig struct {
	DicomDir     string
	ZipPath      string
	SeriesNumber string
	MaskPath     string
	Labels       overlay.LabelMap
	Preset       flow.Preset
	OutputDir    string
	FilePrefix   string
	Histogram    bool
	SaveRLE      bool
}

func main() {
	var dicomDir, zipPath, seriesNumber, maskPath, configPath, presetName, outDir, prefix, logLevel string
	var histogram, saveRLE bool

	flag.StringVar(&dicomDir, "dicomdir", "", "Path to a DICOMDIR index, or a folder of DICOM files (read through its DICOMDIR if it has one, else searched recursively). Exactly one of --dicomdir or --zip is required.")
	flag.StringVar(&zipPath, "zip", "", "Path to a zip of DICOM files. May be a gs://bucket/object path.")
	flag.StringVar(&seriesNumber, "series", "", "(Optional) Series number the mask was drawn on. Defaults to the first magnitude series that has a matching phase series.")
	flag.StringVar(&maskPath, "mask", "", "Path to the mask: a label-encoded or label-colored image, or a .rle file. May be a gs:// path.")
	flag.StringVar(&configPath, "config", "", "(Optional) Path to the config.json file with the labels, preset and output settings.")
	flag.StringVar(&presetName, "preset", "", fmt.Sprintf("(Optional) Measurement preset, overriding the config. One of: %v", flow.Presets()))
	flag.StringVar(&outDir, "out", "", "(Optional) Folder for the output files, overriding the config. Defaults to the current folder.")
	flag.StringVar(&prefix, "prefix", "", "(Optional) Prefix for the output file names, overriding the config.")
	flag.BoolVar(&histogram, "histogram", false, "(Optional) Print a histogram of each region's pixel velocities to stderr.")
	flag.BoolVar(&saveRLE, "saverle", false, "(Optional) Also save the decoded mask as a .rle file.")
	flag.StringVar(&logLevel, "loglevel", "", "(Optional) Log level (debug, info, warn, error). Defaults to $NEUROFLOW_LOG_LEVEL, then info.")

	flag.Parse()

	if err := configureLogging(logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.PrintDefaults()
		os.Exit(1)
	}
	log := logrus.StandardLogger()

	log.Debugln(strings.Join(os.Args, " "))

	// Exactly one input
	if (dicomDir == "") == (zipPath == "") {
		flag.PrintDefaults()
		os.Exit(1)
	}

	config := overlay.JSONConfig{}
	if configPath != "" {
		var err error
		config, err = overlay.ParseJSONConfigFromPath(configPath)
		if err != nil {
			log.Fatalln(err)
		}
	}

	cfg, err := mergeConfig(config, runConfig{
		DicomDir:     dicomDir,
		ZipPath:      zipPath,
		SeriesNumber: seriesNumber,
		MaskPath:     maskPath,
		OutputDir:    outDir,
		FilePrefix:   prefix,
		Histogram:    histogram,
		SaveRLE:      saveRLE,
	}, presetName)
	if err != nil {
		log.Errorln(err)
		flag.PrintDefaults()
		os.Exit(1)
	}

	var client *storage.Client
	if strings.HasPrefix(cfg.ZipPath, "gs://") || strings.HasPrefix(cfg.MaskPath, "gs://") {
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	if err := run(context.Background(), cfg, client, log, os.Stdout); err != nil {
		log.Fatalln(err)
	}
}

// mergeConfig lets flags override the JSON config. A config without labels
// gets a single region, analysis.DefaultRegionID, drawn as ID 1.
func mergeConfig(config overlay.JSONConfig, flags runConfig, presetName string) (runConfig, error) {
	out := flags

	if out.MaskPath == "" {
		out.MaskPath = config.MaskPath
	}
	if out.MaskPath == "" {
		return out, fmt.Errorf("A mask is required, via --mask or the config's mask field")
	}

	if out.OutputDir == "" {
		out.OutputDir = config.OutputDir
	}
	if out.OutputDir == "" {
		out.OutputDir = "."
	}
	if out.FilePrefix == "" {
		out.FilePrefix = config.FilePrefix
	}

	if presetName != "" {
		config.Preset = presetName
	}
	preset, err := config.FlowPreset()
	if err != nil {
		return out, err
	}
	out.Preset = preset

	out.Labels = config.Labels
	if len(out.Labels) == 0 {
		out.Labels = overlay.LabelMap{
			"Background":             {ID: 0},
			analysis.DefaultRegionID: {ID: 1, Color: "#ff0000"},
		}
	}

	return out, nil
}
