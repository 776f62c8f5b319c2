package mapper

import (
	"github.com/golang/geo/r3"

	"github.com/vbillys/robrex-mapping/pointcloud"
	"github.com/vbillys/robrex-mapping/surfel"
)

type previewAccum struct {
	pos     r3.Vector
	r, g, b float64
	n       int
}

// PreviewCloud produces the downsampled colored cloud for visualization:
// one point per preview voxel at the mean position and color of the first
// PreviewColorSamplesInVoxel reliable surfels encountered in it. Output
// order is unspecified; the cloud is meant for coarse display, not
// measurement.
func (sm *SurfelMapper) PreviewCloud() []pointcloud.PointXYZRGB {
	maxSamples := sm.opts.PreviewColorSamplesInVoxel
	voxels := map[surfel.LeafCoords]*previewAccum{}

	for _, i := range sm.index.AllIndices() {
		s := sm.store.At(i)
		if !s.Reliable(sm.opts.ConfidenceThreshold) {
			continue
		}
		c := surfel.CoordsAt(s.Position, sm.opts.PreviewResolution)
		a := voxels[c]
		if a == nil {
			a = &previewAccum{}
			voxels[c] = a
		}
		if a.n >= maxSamples {
			continue
		}
		a.pos = a.pos.Add(s.Position)
		a.r += float64(s.R)
		a.g += float64(s.G)
		a.b += float64(s.B)
		a.n++
	}

	out := make([]pointcloud.PointXYZRGB, 0, len(voxels))
	for _, a := range voxels {
		inv := 1 / float64(a.n)
		out = append(out, pointcloud.PointXYZRGB{
			Position: a.pos.Mul(inv),
			R:        uint8(a.r*inv + 0.5),
			G:        uint8(a.g*inv + 0.5),
			B:        uint8(a.b*inv + 0.5),
		})
	}
	return out
}
