package marker

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/vbillys/robrex-mapping/camera"
	"github.com/vbillys/robrex-mapping/mapper"
	"github.com/vbillys/robrex-mapping/pointcloud"
	"github.com/vbillys/robrex-mapping/spatialmath"
)

var testIntrinsics = &camera.PinholeCameraIntrinsics{
	Width:  640,
	Height: 480,
	Fx:     500,
	Fy:     500,
	Ppx:    320,
	Ppy:    240,
}

// patchMapper ingests a frontal plane patch so a block of reliable surfels
// exists around (0, 0, 1).
func patchMapper(t *testing.T) *mapper.SurfelMapper {
	t.Helper()
	opts := mapper.DefaultOptions()
	opts.SceneSize = 1000
	opts.ConfidenceThreshold = 1
	sm, err := mapper.NewSurfelMapper(opts, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sm.SetCameraInfo(testIntrinsics), test.ShouldBeNil)

	oc, err := pointcloud.NewOrganized(testIntrinsics.Width, testIntrinsics.Height)
	test.That(t, err, test.ShouldBeNil)
	for v := 238; v <= 242; v++ {
		for u := 318; u <= 322; u++ {
			pos := testIntrinsics.PixelToPoint(float64(u), float64(v), 1.0)
			oc.Set(u, v, pointcloud.PointXYZRGB{Position: pos, R: 10, G: 20, B: 30})
		}
	}
	test.That(t, sm.IngestKeyframe(oc, spatialmath.NewZeroPose()), test.ShouldBeNil)
	test.That(t, sm.PointCount(), test.ShouldEqual, 16)
	return sm
}

func TestFromBoundingBox(t *testing.T) {
	sm := patchMapper(t)
	minPt := r3.Vector{X: -1, Y: -1, Z: 0}
	maxPt := r3.Vector{X: 1, Y: 1, Z: 2}

	markers := FromBoundingBox(sm, minPt, maxPt, Options{Stride: 1})
	test.That(t, len(markers), test.ShouldEqual, 16)

	m := markers[0]
	test.That(t, m.Diameter, test.ShouldAlmostEqual, 2*math.Sqrt2/500, 1e-9)
	test.That(t, m.R, test.ShouldEqual, uint8(10))

	// the marker orientation carries +Z onto the surfel normal
	n := spatialmath.RotateVec(m.Orientation, r3.Vector{Z: 1})
	test.That(t, n.Z, test.ShouldAlmostEqual, -1, 1e-9)
}

func TestStrideThrottle(t *testing.T) {
	sm := patchMapper(t)
	minPt := r3.Vector{X: -1, Y: -1, Z: 0}
	maxPt := r3.Vector{X: 1, Y: 1, Z: 2}

	markers := FromBoundingBox(sm, minPt, maxPt, DefaultOptions())
	test.That(t, len(markers), test.ShouldEqual, 8)
}

func TestMaxMarkersCap(t *testing.T) {
	sm := patchMapper(t)
	minPt := r3.Vector{X: -1, Y: -1, Z: 0}
	maxPt := r3.Vector{X: 1, Y: 1, Z: 2}

	markers := FromBoundingBox(sm, minPt, maxPt, Options{Stride: 1, MaxMarkers: 5})
	test.That(t, len(markers), test.ShouldEqual, 5)
}

func TestEmptyBox(t *testing.T) {
	sm := patchMapper(t)
	markers := FromBoundingBox(sm, r3.Vector{X: 5, Y: 5, Z: 5}, r3.Vector{X: 6, Y: 6, Z: 6}, DefaultOptions())
	test.That(t, len(markers), test.ShouldEqual, 0)
}
