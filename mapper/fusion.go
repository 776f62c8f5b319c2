package mapper

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vbillys/robrex-mapping/pointcloud"
	"github.com/vbillys/robrex-mapping/spatialmath"
	"github.com/vbillys/robrex-mapping/surfel"
)

// scanPoint is one pixel that survived preprocessing, carrying everything
// the association step needs.
type scanPoint struct {
	u, v      int
	camPos    r3.Vector
	mapPos    r3.Vector
	mapNormal r3.Vector
	radius    float64
	r, g, b   uint8
}

// ingestCounters are the per-frame counters written to the frame log.
type ingestCounters struct {
	validPixels    int
	acceptedPixels int
	candidates     int
	updated        int
	added          int
	capacityDrops  int
}

// IngestKeyframe integrates one registered keyframe into the map: the scan
// is preprocessed (normals, radii, filters), each surviving pixel is
// associated against indexed surfels along its camera ray, and matches are
// blended while misses insert new surfels.
//
// The keyframe cloud is in the sensor frame; pose places it in the map
// frame. On store exhaustion the keyframe is left partially integrated and
// the error wraps surfel.ErrOutOfCapacity.
func (sm *SurfelMapper) IngestKeyframe(cloud *pointcloud.Organized, pose spatialmath.SensorPose) error {
	if sm.intrinsics == nil {
		return ErrNotReady
	}
	if err := pose.CheckValid(); err != nil {
		return errors.Wrap(ErrInvalidInput, err.Error())
	}

	var counters ingestCounters
	start := sm.clk.Now()

	pts := sm.preprocessScan(cloud, pose, &counters)
	preprocessDone := sm.clk.Now()

	// The pre-pass marks map surfels visible in this keyframe's frustum;
	// surfels added by this very keyframe (handle >= prepassLen) are
	// trivially visible.
	var visible []bool
	prepassLen := sm.store.Len()
	if sm.opts.UseFrustum {
		visible = sm.frustumVisible(pose, &counters)
	}
	prepassDone := sm.clk.Now()

	capacityHit := false
	for i := range pts {
		sp := &pts[i]
		match := -1
		if sm.opts.UseUpdate {
			match = sm.associate(sp, pose, visible, prepassLen)
		}
		if match >= 0 {
			sm.updateSurfel(match, sp)
			counters.updated++
			continue
		}
		idx, err := sm.store.Allocate()
		if err != nil {
			capacityHit = true
			counters.capacityDrops++
			continue
		}
		sm.insertSurfel(idx, sp)
		counters.added++
	}
	integrateDone := sm.clk.Now()

	if counters.acceptedPixels == 0 {
		sm.logger.Debug("degenerate scan, nothing to integrate")
	}
	sm.frameLog.Record(
		zap.Int("pixels_valid", counters.validPixels),
		zap.Int("pixels_accepted", counters.acceptedPixels),
		zap.Int("frustum_candidates", counters.candidates),
		zap.Int("surfels_updated", counters.updated),
		zap.Int("surfels_added", counters.added),
		zap.Int("capacity_drops", counters.capacityDrops),
		zap.Int("map_size", sm.index.Len()),
		zap.Duration("t_preprocess", preprocessDone.Sub(start)),
		zap.Duration("t_prepass", prepassDone.Sub(preprocessDone)),
		zap.Duration("t_integrate", integrateDone.Sub(prepassDone)),
	)

	if capacityHit {
		return errors.Wrapf(surfel.ErrOutOfCapacity,
			"keyframe partially integrated, %d pixels dropped", counters.capacityDrops)
	}
	return nil
}

// preprocessScan walks the keyframe row-major and emits the pixels that
// survive normal estimation, grazing-angle rejection and the depth filter.
func (sm *SurfelMapper) preprocessScan(
	cloud *pointcloud.Organized,
	pose spatialmath.SensorPose,
	counters *ingestCounters,
) []scanPoint {
	var pts []scanPoint
	for v := 0; v < cloud.Height(); v++ {
		for u := 0; u < cloud.Width(); u++ {
			px := cloud.At(u, v)
			if !pointcloud.Finite(px.Position) {
				continue
			}
			counters.validPixels++

			n, ok := scanNormal(cloud, u, v)
			if !ok {
				continue
			}
			// flip toward the sensor
			if n.Z > 0 {
				n = n.Mul(-1)
			}
			if math.Abs(n.Z) < sm.opts.MinScanZNormal {
				continue
			}
			z := px.Position.Z
			if z < sm.opts.MinKinectDist || z > sm.opts.MaxKinectDist {
				continue
			}
			counters.acceptedPixels++

			pts = append(pts, scanPoint{
				u:         u,
				v:         v,
				camPos:    px.Position,
				mapPos:    pose.TransformPoint(px.Position),
				mapNormal: spatialmath.RotateVec(pose.Orientation, n),
				radius:    z * math.Sqrt2 / (sm.intrinsics.Fx * math.Abs(n.Z)),
				r:         px.R,
				g:         px.G,
				b:         px.B,
			})
		}
	}
	return pts
}

// scanNormal estimates the surface normal at pixel (u, v) from the cross
// product of the vectors to the right and down neighbors. At the last
// column or row the opposite neighbor is used with the difference negated.
// Both neighbors must carry finite positions.
func scanNormal(cloud *pointcloud.Organized, u, v int) (r3.Vector, bool) {
	p := cloud.At(u, v).Position

	ur, signU := u+1, 1.0
	if ur >= cloud.Width() {
		ur, signU = u-1, -1.0
	}
	vd, signV := v+1, 1.0
	if vd >= cloud.Height() {
		vd, signV = v-1, -1.0
	}
	if ur < 0 || vd < 0 {
		// degenerate single-row or single-column cloud
		return r3.Vector{}, false
	}

	pu := cloud.At(ur, v).Position
	pv := cloud.At(u, vd).Position
	if !pointcloud.Finite(pu) || !pointcloud.Finite(pv) {
		return r3.Vector{}, false
	}
	du := pu.Sub(p).Mul(signU)
	dv := pv.Sub(p).Mul(signV)
	n := du.Cross(dv)
	if n.Norm2() == 0 || !pointcloud.Finite(n) {
		return r3.Vector{}, false
	}
	return n.Normalize(), true
}

// frustumVisible tests every indexed surfel whose leaf overlaps the frustum
// bounding box and marks those inside the camera frustum.
func (sm *SurfelMapper) frustumVisible(pose spatialmath.SensorPose, counters *ingestCounters) []bool {
	visible := make([]bool, sm.store.Len())

	bbMin := r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	bbMax := r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, c := range sm.intrinsics.FrustumCorners(sm.opts.MinKinectDist, sm.opts.MaxKinectDist) {
		m := pose.TransformPoint(c)
		bbMin.X = math.Min(bbMin.X, m.X)
		bbMin.Y = math.Min(bbMin.Y, m.Y)
		bbMin.Z = math.Min(bbMin.Z, m.Z)
		bbMax.X = math.Max(bbMax.X, m.X)
		bbMax.Y = math.Max(bbMax.Y, m.Y)
		bbMax.Z = math.Max(bbMax.Z, m.Z)
	}
	cmin := sm.index.CoordsAt(bbMin)
	cmax := sm.index.CoordsAt(bbMax)

	sm.index.ForEachLeaf(func(c surfel.LeafCoords, bucket []int) bool {
		if c.I < cmin.I || c.I > cmax.I ||
			c.J < cmin.J || c.J > cmax.J ||
			c.K < cmin.K || c.K > cmax.K {
			return true
		}
		for _, i := range bucket {
			camPt := pose.InverseTransformPoint(sm.store.At(i).Position)
			if sm.intrinsics.InFrustum(camPt, sm.opts.MinKinectDist, sm.opts.MaxKinectDist) {
				visible[i] = true
				counters.candidates++
			}
		}
		return true
	})
	return visible
}

// associate finds the indexed surfel matching the scan point: a candidate
// from the leaf bucket at the point's position that reprojects onto the same
// pixel, closest in depth and within the DMax tolerance. Candidates are
// tried in insertion order and ties keep the earlier surfel.
func (sm *SurfelMapper) associate(sp *scanPoint, pose spatialmath.SensorPose, visible []bool, prepassLen int) int {
	best := -1
	bestGap := math.Inf(1)
	for _, ci := range sm.index.LeafBucket(sp.mapPos) {
		if visible != nil && ci < prepassLen && !visible[ci] {
			continue
		}
		s := sm.store.At(ci)
		camPt := pose.InverseTransformPoint(s.Position)
		px, py, z, ok := sm.intrinsics.ProjectPixel(camPt)
		if !ok || px != sp.u || py != sp.v {
			continue
		}
		gap := math.Abs(z - sp.camPos.Z)
		if gap < bestGap {
			bestGap = gap
			best = ci
		}
	}
	if best >= 0 && bestGap < sm.opts.DMax {
		return best
	}
	return -1
}

// updateSurfel blends the scan point into surfel i with a confidence-
// weighted running average. The blended position is clamped to the surfel's
// current octree voxel so the index stays consistent; when clamping would
// displace the blend by more than half a leaf the positional update is
// skipped entirely.
func (sm *SurfelMapper) updateSurfel(i int, sp *scanPoint) {
	s := sm.store.At(i)
	k := float64(s.Confidence)

	blended := s.Position.Mul(k).Add(sp.mapPos).Mul(1 / (k + 1))
	leaf := sm.index.CoordsAt(s.Position)
	clamped := sm.index.ClampToLeaf(leaf, blended)
	if clamped.Sub(blended).Norm() <= sm.index.Resolution()/2 {
		s.Position = clamped
	}

	n := s.Normal.Mul(k).Add(sp.mapNormal)
	if n.Norm2() > 0 {
		s.Normal = n.Normalize()
	}

	s.R = blendChannel(k, s.R, sp.r)
	s.G = blendChannel(k, s.G, sp.g)
	s.B = blendChannel(k, s.B, sp.b)

	if sp.radius < s.Radius {
		s.Radius = sp.radius
	}
	s.Confidence++
}

func blendChannel(k float64, prev, next uint8) uint8 {
	return uint8(math.Round((k*float64(prev) + float64(next)) / (k + 1)))
}

// insertSurfel fills the freshly allocated record i from the scan point and
// makes it discoverable through the index.
func (sm *SurfelMapper) insertSurfel(i int, sp *scanPoint) {
	s := sm.store.At(i)
	s.Position = sp.mapPos
	s.Normal = sp.mapNormal
	s.R, s.G, s.B = sp.r, sp.g, sp.b
	s.Radius = sp.radius
	s.Confidence = 1
	sm.index.Insert(i, sp.mapPos)
}
