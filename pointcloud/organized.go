package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Organized is a dense W×H grid of colored points in the sensor frame, one
// per pixel of the RGB-D frame that produced it. Pixels with missing depth
// hold a non-finite position. Keeping the grid organized preserves pixel
// adjacency, which normal estimation needs.
type Organized struct {
	width, height int
	points        []PointXYZRGB
}

// NewOrganized returns a W×H cloud with every pixel marked missing.
func NewOrganized(width, height int) (*Organized, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid organized cloud dimensions (%d, %d)", width, height)
	}
	points := make([]PointXYZRGB, width*height)
	nan := NaNVector()
	for i := range points {
		points[i].Position = nan
	}
	return &Organized{width: width, height: height, points: points}, nil
}

// Width returns the number of pixel columns.
func (oc *Organized) Width() int {
	return oc.width
}

// Height returns the number of pixel rows.
func (oc *Organized) Height() int {
	return oc.height
}

// At returns a reference to the point at pixel (u, v). The caller must stay
// within bounds.
func (oc *Organized) At(u, v int) *PointXYZRGB {
	return &oc.points[v*oc.width+u]
}

// Contains reports whether pixel (u, v) is inside the grid.
func (oc *Organized) Contains(u, v int) bool {
	return u >= 0 && u < oc.width && v >= 0 && v < oc.height
}

// Set places a point at pixel (u, v).
func (oc *Organized) Set(u, v int, pt PointXYZRGB) {
	oc.points[v*oc.width+u] = pt
}

// SetPosition places a position at pixel (u, v), keeping its color.
func (oc *Organized) SetPosition(u, v int, pos r3.Vector) {
	oc.points[v*oc.width+u].Position = pos
}

// ValidCount returns the number of pixels carrying a finite position.
func (oc *Organized) ValidCount() int {
	count := 0
	for i := range oc.points {
		if Finite(oc.points[i].Position) {
			count++
		}
	}
	return count
}
