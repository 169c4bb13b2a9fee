package phasecontrast

import (
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Group assembles loose images into the patient -> study -> series graph.
// Images are grouped into series by patient, study ID and series number, and
// series into studies by patient and study ID. Only the first patient (by ID) is
// returned; others are reported through log.
func Group(images []*Image, log logrus.FieldLogger) *Patient {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(images) == 0 {
		return nil
	}

	bySeries := make(map[string][]*Image)
	for _, img := range images {
		key := img.PatientID() + "\x00" + img.StudyID() + "\x00" + img.SeriesNumber()
		bySeries[key] = append(bySeries[key], img)
	}

	allSeries := make([]*Series, 0, len(bySeries))
	for _, imgs := range bySeries {
		sortImages(imgs)
		allSeries = append(allSeries, NewSeries(imgs...))
	}
	sort.SliceStable(allSeries, func(i, j int) bool {
		return lessNumeric(allSeries[i].Number(), allSeries[j].Number())
	})

	byStudy := make(map[string]*Study)
	studyOrder := make([]string, 0)
	for _, s := range allSeries {
		id := s.Images[0].PatientID() + "\x00" + s.Images[0].StudyID()
		st, exists := byStudy[id]
		if !exists {
			st = &Study{}
			byStudy[id] = st
			studyOrder = append(studyOrder, id)
		}
		st.Series = append(st.Series, s)
	}
	sort.Strings(studyOrder)

	byPatient := make(map[string]*Patient)
	patientOrder := make([]string, 0)
	for _, id := range studyOrder {
		st := byStudy[id]
		pid := st.Series[0].Images[0].PatientID()
		p, exists := byPatient[pid]
		if !exists {
			p = &Patient{}
			byPatient[pid] = p
			patientOrder = append(patientOrder, pid)
		}
		p.Studies = append(p.Studies, st)
	}
	sort.Strings(patientOrder)

	if len(patientOrder) > 1 {
		log.WithField("patients", len(patientOrder)).Warnln("More than one patient found; keeping", patientOrder[0])
	}

	return byPatient[patientOrder[0]]
}

// sortImages orders a series by instance number, falling back to trigger
// time and then path so the order is deterministic.
func sortImages(imgs []*Image) {
	sort.SliceStable(imgs, func(i, j int) bool {
		a, b := imgs[i], imgs[j]
		if ai, bi := a.InstanceNumber(), b.InstanceNumber(); ai != bi {
			return ai < bi
		}

		at, aerr := a.TriggerTime()
		bt, berr := b.TriggerTime()
		if aerr == nil && berr == nil && at != bt {
			return at < bt
		}

		return a.Path < b.Path
	})
}

func lessNumeric(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
