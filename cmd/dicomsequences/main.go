// dicomsequences lists every series of a phase-contrast study with the
// metadata flow quantification depends on, so a mask can be drawn on the
// right series.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	_ "github.com/arsakhar/NeuroFlow/compileinfoprint"
	"github.com/arsakhar/NeuroFlow/phasecontrast"
	"github.com/arsakhar/NeuroFlow/sequence"
	"github.com/sirupsen/logrus"
)

func main() {
	var dicomDir, zipPath, logLevel string

	flag.StringVar(&dicomDir, "dicomdir", "", "Path to a DICOMDIR index, or a folder of DICOM files (read through its DICOMDIR if it has one, else searched recursively). Exactly one of --dicomdir or --zip is required.")
	flag.StringVar(&zipPath, "zip", "", "Path to a zip of DICOM files. May be a gs://bucket/object path.")
	flag.StringVar(&logLevel, "loglevel", "", "(Optional) Log level (debug, info, warn, error). Defaults to $NEUROFLOW_LOG_LEVEL, then info.")
	flag.Parse()

	if logLevel == "" {
		logLevel = os.Getenv("NEUROFLOW_LOG_LEVEL")
	}
	if logLevel != "" {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			flag.PrintDefaults()
			os.Exit(1)
		}
		logrus.SetLevel(level)
	}
	logrus.SetOutput(os.Stderr)

	if (dicomDir == "") == (zipPath == "") {
		flag.PrintDefaults()
		os.Exit(1)
	}

	loader := phasecontrast.Loader{Log: logrus.StandardLogger()}

	var patient *phasecontrast.Patient
	var err error
	if dicomDir != "" {
		patient, err = loader.Open(dicomDir)
	} else {
		if strings.HasPrefix(zipPath, "gs://") {
			loader.Storage, err = storage.NewClient(context.Background())
			if err != nil {
				logrus.Fatalln(err)
			}
			defer loader.Storage.Close()
		}
		patient, err = loader.Zip(zipPath)
	}
	if err != nil {
		logrus.Fatalln(err)
	}

	printInventory(os.Stdout, patient)
}

// printInventory writes one tab-delimited row per series. Values that cannot
// be read from the tags are "NA".
func printInventory(w io.Writer, patient *phasecontrast.Patient) {
	fmt.Fprintln(w, strings.Join([]string{
		"patient_id",
		"study_id",
		"study_date",
		"series_number",
		"protocol",
		"description",
		"type",
		"venc_mm_sec",
		"rr_ms",
		"bpm",
		"images",
		"rows",
		"cols",
		"has_phase",
	}, "\t"))

	for _, study := range patient.Studies {
		index := sequence.Build(study)

		date := "NA"
		if d, err := study.Date(); err == nil {
			date = d.Format("2006-01-02")
		}

		for _, s := range study.Series {
			venc, rr, bpm := "NA", "NA", "NA"
			if v, err := s.Venc(); err == nil {
				venc = strconv.Itoa(v)
			}
			if v, err := s.RRInterval(); err == nil {
				rr = strconv.FormatFloat(v, 'f', -1, 64)
			}
			if v, err := s.BPM(); err == nil {
				bpm = strconv.Itoa(v)
			}

			rows, cols := 0, 0
			if len(s.Images) > 0 {
				rows, cols = s.Images[0].Rows(), s.Images[0].Cols()
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%t\n",
				patient.ID(),
				study.ID(),
				date,
				s.Number(),
				s.ProtocolName(),
				strings.ReplaceAll(s.Description(), "\t", " "),
				s.ReconstructionType(),
				venc,
				rr,
				bpm,
				len(s.Images),
				rows,
				cols,
				index.PhaseFor(s) != nil,
			)
		}
	}
}
