// Package pointcloud holds the point cloud containers exchanged with the
// surfel mapper: the organized W×H RGB-D keyframe grid consumed by fusion and
// the flat colored cloud produced for previews and saving, along with PCD
// serialization for the latter.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// PointXYZRGB is a single colored point. A non-finite position denotes a
// missing measurement.
type PointXYZRGB struct {
	Position r3.Vector
	R, G, B  uint8
}

// Finite reports whether all three coordinates of v are finite numbers.
func Finite(v r3.Vector) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// NaNVector returns the sentinel position marking a missing measurement.
func NaNVector() r3.Vector {
	nan := math.NaN()
	return r3.Vector{X: nan, Y: nan, Z: nan}
}
