// Package analysis ties regions of interest to the flow pipeline: it finds
// the phase series for a region's source series, maps the region onto it and
// measures it under a preset.
package analysis

import (
	"github.com/arsakhar/NeuroFlow/flow"
	"github.com/arsakhar/NeuroFlow/flowerr"
	"github.com/arsakhar/NeuroFlow/phasecontrast"
	"github.com/arsakhar/NeuroFlow/roi"
)

// DefaultRegionID names a region drawn without choosing a label.
const DefaultRegionID = "Default"

// Region is a labelled ROI over one series. Analysis never mutates a Region;
// it returns a new one with the measurement fields filled in.
type Region struct {
	ID    string
	Color string

	// Vertices is set for contour-drawn regions.
	Vertices roi.Polygon
	Mask     roi.Mask

	// Source is the series the region was drawn on and ImageROI its
	// intensities there, NaN outside the mask.
	Source   *phasecontrast.Series
	ImageROI roi.Volume

	// Filled in by Analyzer.Analyze.
	Phase         *phasecontrast.Series
	PhaseROI      roi.Volume
	Intermediates flow.Intermediates
	Measures      *flow.Bundle

	// Err says why Measures is nil.
	Err error
}

// NewRegion applies mask to every image of source.
func NewRegion(id string, mask roi.Mask, source *phasecontrast.Series) (*Region, error) {
	if id == "" {
		id = DefaultRegionID
	}

	stack, err := roi.Stack(source)
	if err != nil {
		return nil, err
	}

	imageROI, err := roi.FromMask(mask, stack)
	if err != nil {
		return nil, err
	}

	return &Region{
		ID:       id,
		Mask:     mask,
		Source:   source,
		ImageROI: imageROI,
	}, nil
}

// NewPolygonRegion rasterizes vertices onto source's frame shape and builds
// the region from the resulting mask.
func NewPolygonRegion(id string, vertices roi.Polygon, source *phasecontrast.Series) (*Region, error) {
	if source == nil || len(source.Images) == 0 {
		return nil, flowerr.Unavailable("NewPolygonRegion", "no source series")
	}

	img := source.Images[0]
	r, err := NewRegion(id, vertices.Mask(img.Rows(), img.Cols()), source)
	if err != nil {
		return nil, err
	}
	r.Vertices = vertices

	return r, nil
}

// RegionsFromMasks builds one region per ID. Masks sharing an ID are merged
// and cells covered more than once are dropped. IDs keep their first-seen
// order.
func RegionsFromMasks(ids []string, masks []roi.Mask, source *phasecontrast.Series) ([]*Region, error) {
	if len(ids) != len(masks) {
		return nil, flowerr.Invariant("RegionsFromMasks", "%d ids for %d masks", len(ids), len(masks))
	}

	order := make([]string, 0, len(ids))
	grouped := make(map[string][]roi.Mask)
	for i, id := range ids {
		if id == "" {
			id = DefaultRegionID
		}
		if _, seen := grouped[id]; !seen {
			order = append(order, id)
		}
		grouped[id] = append(grouped[id], masks[i])
	}

	out := make([]*Region, 0, len(order))
	for _, id := range order {
		merged, err := roi.Exclusive(grouped[id]...)
		if err != nil {
			return nil, err
		}

		r, err := NewRegion(id, merged, source)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	return out, nil
}
