package phasecontrast

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/sirupsen/logrus"
)

// Loader reads DICOM studies from disk, zip archives, or Google Storage.
type Loader struct {
	// Log receives warnings about files that could not be read. Defaults to
	// the logrus standard logger.
	Log logrus.FieldLogger

	// Storage is used for gs:// paths. May be nil for local files.
	Storage *storage.Client
}

func (l Loader) logger() logrus.FieldLogger {
	if l.Log == nil {
		return logrus.StandardLogger()
	}
	return l.Log
}

// LoadDirectory is Loader{}.Directory.
func LoadDirectory(root string) (*Patient, error) {
	return Loader{}.Directory(root)
}

// Directory walks root and loads every file whose name looks like a DICOM
// export ("IMA" or "dcm" in the name). Unreadable files are skipped with a
// warning.
func (l Loader) Directory(root string) (*Patient, error) {
	log := l.logger()

	var images []*Image
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !looksLikeDicom(info.Name()) {
			return nil
		}

		img, err := l.loadFile(path)
		if err != nil {
			log.WithField("file", path).WithError(err).Warnln("Skipping file that is not a readable DICOM")
			return nil
		}

		images = append(images, img)
		return nil
	})
	if err != nil {
		return nil, pfx.Err(err)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no DICOM images found under %s", root)
	}

	log.WithField("images", len(images)).Debugln("Loaded directory", root)

	return Group(images, log), nil
}

func (l Loader) loadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := LoadImage(f)
	if err != nil {
		return nil, err
	}
	img.Path = path

	return img, nil
}

func looksLikeDicom(name string) bool {
	return strings.Contains(name, "IMA") || strings.Contains(name, "dcm")
}
