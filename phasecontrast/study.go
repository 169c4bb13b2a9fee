package phasecontrast

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// Study is the set of series acquired in one imaging session.
type Study struct {
	Series []*Series
}

// ID is the study ID of the first image of the first series.
func (s *Study) ID() string {
	for _, series := range s.Series {
		if len(series.Images) > 0 {
			return series.Images[0].StudyID()
		}
	}
	return ""
}

// Date parses the study date. DICOM stores YYYYMMDD, but exports seen in the
// wild also carry free-form dates.
func (s *Study) Date() (time.Time, error) {
	for _, series := range s.Series {
		if len(series.Images) == 0 {
			continue
		}

		raw, ok := series.Images[0].Tags.String(TagStudyDate)
		if !ok || raw == "" {
			continue
		}

		if t, err := time.Parse("20060102", raw); err == nil {
			return t, nil
		}

		return dateparse.ParseAny(raw)
	}

	return time.Time{}, fmt.Errorf("study date not found")
}

// Patient holds every study loaded for one person.
type Patient struct {
	Studies []*Study
}

// ID is the patient ID of the first image found.
func (p *Patient) ID() string {
	for _, study := range p.Studies {
		for _, series := range study.Series {
			if len(series.Images) > 0 {
				return series.Images[0].PatientID()
			}
		}
	}
	return ""
}

// AllSeries flattens every study's series, in study order.
func (p *Patient) AllSeries() []*Series {
	var out []*Series
	for _, study := range p.Studies {
		out = append(out, study.Series...)
	}
	return out
}
