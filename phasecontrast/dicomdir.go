package phasecontrast

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/carbocation/pfx"
	"github.com/sirupsen/logrus"
	"github.com/suyashkumar/dicom"
)

// DICOMDIRName is the file name of a media directory index.
const DICOMDIRName = "DICOMDIR"

// Open loads a study from path. A DICOMDIR file, or a folder holding one at
// its top level, is read through its index; if the index in a folder cannot
// be used the folder is walked instead. Any other folder is walked.
func (l Loader) Open(path string) (*Patient, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	if !info.IsDir() {
		return l.DICOMDIR(path)
	}

	index := filepath.Join(path, DICOMDIRName)
	if _, err := os.Stat(index); err != nil {
		return l.Directory(path)
	}

	patient, err := l.DICOMDIR(index)
	if err != nil {
		l.logger().WithField("dicomdir", index).WithError(err).Warnln("Falling back to walking the folder")
		return l.Directory(path)
	}

	return patient, nil
}

// DICOMDIR loads every image referenced by the index at path. Referenced
// files are resolved relative to the folder holding the index. Files that
// are missing or unreadable are skipped with a warning.
func (l Loader) DICOMDIR(path string) (*Patient, error) {
	log := l.logger()

	files, err := DICOMDIRFiles(path)
	if err != nil {
		return nil, err
	}

	var images []*Image
	for _, file := range files {
		img, err := l.loadFile(file)
		if err != nil {
			log.WithField("file", file).WithError(err).Warnln("Skipping DICOMDIR entry that is not a readable DICOM")
			continue
		}
		images = append(images, img)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no DICOM images found through %s (%d entries)", path, len(files))
	}

	log.WithFields(logrus.Fields{
		"entries": len(files),
		"images":  len(images),
	}).Debugln("Loaded DICOMDIR", path)

	return Group(images, log), nil
}

// DICOMDIRFiles lists the files an index references, as paths relative to
// the folder holding it.
func DICOMDIRFiles(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	records, err := safelyParseDICOMDIR(f)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	root := filepath.Dir(path)
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, filepath.Join(root, filepath.FromSlash(rec.Path)))
	}

	return out, nil
}

func safelyParseDICOMDIR(f *os.File) (records []dicom.DirectoryRecord, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	return dicom.ParseDICOMDIR(f)
}
