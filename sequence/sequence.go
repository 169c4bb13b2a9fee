// Package sequence groups the series of a study into sequences: the
// magnitude, phase and difference reconstructions that a scanner exports
// from one phase-contrast acquisition share a protocol name.
package sequence

import (
	"github.com/arsakhar/NeuroFlow/phasecontrast"
)

// Sequence is the set of series sharing one protocol name, in study order.
type Sequence struct {
	Name   string
	Series []*phasecontrast.Series
}

// SeriesByType returns the first member series whose reconstruction type is
// t, or nil. If more than one member has type t the earliest in study order
// wins; CountByType reveals such duplicates.
func (s *Sequence) SeriesByType(t phasecontrast.ReconstructionType) *phasecontrast.Series {
	for _, series := range s.Series {
		if series.ReconstructionType() == t {
			return series
		}
	}
	return nil
}

// CountByType is the number of member series of each reconstruction type.
func (s *Sequence) CountByType() map[phasecontrast.ReconstructionType]int {
	out := make(map[phasecontrast.ReconstructionType]int)
	for _, series := range s.Series {
		out[series.ReconstructionType()]++
	}
	return out
}

// Index holds the sequences built from one or more studies and the
// series -> sequence relation. Series carry no pointer to their sequence.
type Index struct {
	Sequences []*Sequence

	bySeries map[*phasecontrast.Series]*Sequence
	byName   map[string]*Sequence
}

func newIndex() *Index {
	return &Index{
		bySeries: make(map[*phasecontrast.Series]*Sequence),
		byName:   make(map[string]*Sequence),
	}
}

// Build groups the series of study by the protocol name of their first image.
// Sequences appear in the order their first member appears.
func Build(study *phasecontrast.Study) *Index {
	idx := newIndex()
	if study != nil {
		idx.add(study)
	}
	return idx
}

// BuildPatient is Build over every study of a patient. Protocol names are
// scoped to their study, so the same protocol acquired in two sessions makes
// two sequences.
func BuildPatient(patient *phasecontrast.Patient) *Index {
	idx := newIndex()
	if patient == nil {
		return idx
	}
	for _, study := range patient.Studies {
		idx.add(study)
	}
	return idx
}

func (idx *Index) add(study *phasecontrast.Study) {
	local := make(map[string]*Sequence)

	for _, series := range study.Series {
		name := series.ProtocolName()

		seq, exists := local[name]
		if !exists {
			seq = &Sequence{Name: name}
			local[name] = seq
			idx.Sequences = append(idx.Sequences, seq)
			if _, taken := idx.byName[name]; !taken {
				idx.byName[name] = seq
			}
		}

		seq.Series = append(seq.Series, series)
		idx.bySeries[series] = seq
	}
}

// SequenceOf returns the sequence series was grouped into, or nil if the
// series was not part of the indexed studies.
func (idx *Index) SequenceOf(series *phasecontrast.Series) *Sequence {
	return idx.bySeries[series]
}

// ByName returns the first sequence with the given protocol name.
func (idx *Index) ByName(name string) *Sequence {
	return idx.byName[name]
}

// PhaseFor returns the phase series acquired alongside series, or nil when
// series is unknown or its sequence has no phase reconstruction.
func (idx *Index) PhaseFor(series *phasecontrast.Series) *phasecontrast.Series {
	seq := idx.SequenceOf(series)
	if seq == nil {
		return nil
	}
	return seq.SeriesByType(phasecontrast.Phase)
}
