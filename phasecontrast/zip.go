package phasecontrast

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/carbocation/pfx"
)

// LoadZip is Loader{}.Zip for local archives.
func LoadZip(zipPath string) (*Patient, error) {
	return Loader{}.Zip(zipPath)
}

// Zip loads every DICOM inside a zip archive, which may be a local file or a
// gs://bucket/object path. Manifest files and directories are skipped, as are
// members that fail to parse.
func (l Loader) Zip(zipPath string) (*Patient, error) {
	log := l.logger()

	f, nBytes, err := MaybeOpenFromGoogleStorage(zipPath, l.Storage)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	rc, err := zip.NewReader(f, nBytes)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var images []*Image
	for _, v := range rc.File {
		if v.FileInfo().IsDir() || strings.HasPrefix(v.Name, "manifest") {
			continue
		}

		img, err := loadZipMember(v)
		if err != nil {
			// Non-i/o errors usually mean a member that will never be
			// readable. An unreliable filesystem should stop the load instead.
			if strings.Contains(err.Error(), "input/output error") {
				return nil, fmt.Errorf("fatal error reading %s in zip %s: %v", v.Name, zipPath, err)
			}
			log.WithField("zip", zipPath).WithField("member", v.Name).WithError(err).Warnln("Skipping zip member")
			continue
		}
		img.Path = zipPath + "/" + v.Name

		images = append(images, img)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no DICOM images found in %s", zipPath)
	}

	return Group(images, log), nil
}

func loadZipMember(v *zip.File) (*Image, error) {
	dcmReadCloser, err := v.Open()
	if err != nil {
		return nil, err
	}
	defer dcmReadCloser.Close()

	dcmBytes, err := ioutil.ReadAll(dcmReadCloser)
	if err != nil {
		return nil, err
	}

	return LoadImage(bytes.NewReader(dcmBytes))
}
