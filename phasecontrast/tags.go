package phasecontrast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom/dicomtag"
)

// Tags read by the accessors. The two Siemens private tags carry the
// reconstruction indicator and the venc string on the vendor's exports.
var (
	TagPixelSpacing       = dicomtag.PixelSpacing
	TagProtocolName       = dicomtag.Tag{Group: 0x0018, Element: 0x1030}
	TagTriggerTime        = dicomtag.TriggerTime
	TagSeriesNumber       = dicomtag.SeriesNumber
	TagSeriesDescription  = dicomtag.SeriesDescription
	TagInstanceNumber     = dicomtag.InstanceNumber
	TagStudyID            = dicomtag.Tag{Group: 0x0020, Element: 0x0010}
	TagStudyDate          = dicomtag.Tag{Group: 0x0008, Element: 0x0020}
	TagPatientID          = dicomtag.Tag{Group: 0x0010, Element: 0x0020}
	TagReconstructionType = dicomtag.Tag{Group: 0x0051, Element: 0x1016}
	TagVencEncoding       = dicomtag.Tag{Group: 0x0051, Element: 0x1014}
)

// TagMap holds every element of a DICOM file, keyed by tag, in the form the
// parser emits them.
type TagMap map[dicomtag.Tag][]interface{}

// Set replaces the values stored under tag.
func (m TagMap) Set(tag dicomtag.Tag, values ...interface{}) {
	m[tag] = values
}

// Strings returns the values under tag as strings. Byte payloads (private
// tags read with an unknown VR) are decoded and stripped of DICOM padding.
func (m TagMap) Strings(tag dicomtag.Tag) ([]string, bool) {
	vals, exists := m[tag]
	if !exists || len(vals) == 0 {
		return nil, false
	}

	out := make([]string, 0, len(vals))
	for _, v := range vals {
		switch x := v.(type) {
		case string:
			out = append(out, strings.TrimRight(x, "\x00 "))
		case []byte:
			out = append(out, strings.TrimRight(string(x), "\x00 "))
		default:
			out = append(out, fmt.Sprint(x))
		}
	}

	return out, true
}

// String joins a multi-valued element with the DICOM value delimiter, so
// "M" and "MAG" come back as `M\MAG`.
func (m TagMap) String(tag dicomtag.Tag) (string, bool) {
	vals, ok := m.Strings(tag)
	if !ok {
		return "", false
	}
	return strings.Join(vals, `\`), true
}

// Floats parses every value under tag as a decimal string. A single value
// holding backslash-delimited numbers is split first.
func (m TagMap) Floats(tag dicomtag.Tag) ([]float64, error) {
	vals, ok := m.Strings(tag)
	if !ok {
		return nil, fmt.Errorf("tag %v not found", tag)
	}

	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		for _, part := range strings.Split(v, `\`) {
			f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, fmt.Errorf("tag %v: %w", tag, err)
			}
			out = append(out, f)
		}
	}

	return out, nil
}

// Float returns the first numeric value under tag.
func (m TagMap) Float(tag dicomtag.Tag) (float64, error) {
	vals, err := m.Floats(tag)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("tag %v is empty", tag)
	}
	return vals[0], nil
}
