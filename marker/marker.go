// Package marker turns map fragments into flat cylinder markers for
// visualization: one disk per reliable surfel, oriented by its normal and
// sized by its radius.
package marker

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/vbillys/robrex-mapping/mapper"
	"github.com/vbillys/robrex-mapping/spatialmath"
)

// MaxMarkers is the upper limit for the number of markers in a single
// displayed map fragment.
const MaxMarkers = 100000

// Marker is one display cylinder: a disk at the surfel position whose +Z
// axis is rotated onto the surfel normal.
type Marker struct {
	ID          int
	Position    r3.Vector
	Orientation quat.Number
	Diameter    float64
	R, G, B     uint8
}

// Options tune marker generation.
type Options struct {
	// Stride emits every Stride-th candidate surfel; display throttling
	// only, it does not affect the map.
	Stride int
	// MaxMarkers caps the emitted markers; 0 means the package limit.
	MaxMarkers int
}

// DefaultOptions matches the publisher's behavior: every other candidate,
// capped at MaxMarkers.
func DefaultOptions() Options {
	return Options{Stride: 2, MaxMarkers: MaxMarkers}
}

// FromBoundingBox builds markers for the reliable surfels inside the given
// box of the map.
func FromBoundingBox(sm *mapper.SurfelMapper, minPt, maxPt r3.Vector, opts Options) []Marker {
	if opts.Stride <= 0 {
		opts.Stride = 1
	}
	if opts.MaxMarkers <= 0 || opts.MaxMarkers > MaxMarkers {
		opts.MaxMarkers = MaxMarkers
	}

	indices := sm.GetBoundingBoxIndices(minPt, maxPt)
	zaxis := r3.Vector{Z: 1}
	markers := make([]Marker, 0, len(indices)/opts.Stride+1)
	for i, idx := range indices {
		if len(markers) >= opts.MaxMarkers {
			break
		}
		if i%opts.Stride != 0 {
			continue
		}
		s := sm.SurfelAt(idx)
		if !s.Valid() {
			continue
		}
		markers = append(markers, Marker{
			ID:          i,
			Position:    s.Position,
			Orientation: spatialmath.QuatBetweenVecs(zaxis, s.Normal),
			Diameter:    s.Radius * 2,
			R:           s.R,
			G:           s.G,
			B:           s.B,
		})
	}
	return markers
}
