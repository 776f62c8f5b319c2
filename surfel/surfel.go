// Package surfel contains the surfel map storage: the surfel record, a
// pre-allocated store addressed by integer handles, and the octree index
// that makes surfels discoverable by position. The store and index never own
// points; the index holds handles into the store only.
package surfel

import (
	"math"

	"github.com/golang/geo/r3"
)

// Surfel is an oriented disk: position and unit normal in the map frame,
// 8-bit color, disk radius in meters, and a confidence count incremented on
// every supporting observation.
type Surfel struct {
	Position   r3.Vector
	Normal     r3.Vector
	R, G, B    uint8
	Radius     float64
	Confidence int
}

// Reliable reports whether the surfel has accumulated enough observations to
// be returned to external consumers.
func (s *Surfel) Reliable(confidenceThreshold int) bool {
	return s.Confidence >= confidenceThreshold
}

// Valid reports whether the surfel holds a finite position. Records marked
// invalid carry a NaN sentinel position.
func (s *Surfel) Valid() bool {
	return !math.IsNaN(s.Position.X) && !math.IsInf(s.Position.X, 0) &&
		!math.IsNaN(s.Position.Y) && !math.IsInf(s.Position.Y, 0) &&
		!math.IsNaN(s.Position.Z) && !math.IsInf(s.Position.Z, 0)
}
