package surfel

import (
	"math"
	"sort"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestCoordsAt(t *testing.T) {
	c := CoordsAt(r3.Vector{X: 0.05, Y: 0.25, Z: -0.05}, 0.2)
	test.That(t, c, test.ShouldResemble, LeafCoords{I: 0, J: 1, K: -1})

	// boundary belongs to the upper leaf
	c = CoordsAt(r3.Vector{X: 0.2}, 0.2)
	test.That(t, c.I, test.ShouldEqual, int64(1))
}

func TestIndexInsertBucketOrder(t *testing.T) {
	idx, err := NewIndex(0.2)
	test.That(t, err, test.ShouldBeNil)

	p := r3.Vector{X: 0.1, Y: 0.1, Z: 0.1}
	idx.Insert(5, p)
	idx.Insert(2, p)
	idx.Insert(9, r3.Vector{X: 0.15, Y: 0.05, Z: 0.19})

	// same leaf, insertion order preserved
	test.That(t, idx.LeafBucket(p), test.ShouldResemble, []int{5, 2, 9})
	test.That(t, idx.Len(), test.ShouldEqual, 3)
	test.That(t, idx.LeafCount(), test.ShouldEqual, 1)

	idx.Insert(1, r3.Vector{X: 0.9, Y: 0.1, Z: 0.1})
	test.That(t, idx.LeafCount(), test.ShouldEqual, 2)
	test.That(t, idx.LeafBucket(p), test.ShouldResemble, []int{5, 2, 9})
}

func TestRangeIndices(t *testing.T) {
	idx, err := NewIndex(0.2)
	test.That(t, err, test.ShouldBeNil)

	idx.Insert(0, r3.Vector{X: 0.1, Y: 0.1, Z: 0.1})
	idx.Insert(1, r3.Vector{X: 0.5, Y: 0.1, Z: 0.1})
	idx.Insert(2, r3.Vector{X: 2.1, Y: 2.1, Z: 2.1})

	got := idx.RangeIndices(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1})
	sort.Ints(got)
	test.That(t, got, test.ShouldResemble, []int{0, 1})

	got = idx.RangeIndices(r3.Vector{X: 2, Y: 2, Z: 2}, r3.Vector{X: 3, Y: 3, Z: 3})
	test.That(t, got, test.ShouldResemble, []int{2})

	got = idx.RangeIndices(r3.Vector{X: 5, Y: 5, Z: 5}, r3.Vector{X: 6, Y: 6, Z: 6})
	test.That(t, len(got), test.ShouldEqual, 0)
}

func TestAllIndices(t *testing.T) {
	idx, err := NewIndex(0.2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(idx.AllIndices()), test.ShouldEqual, 0)

	idx.Insert(3, r3.Vector{X: 0.1})
	idx.Insert(7, r3.Vector{X: 10})
	got := idx.AllIndices()
	sort.Ints(got)
	test.That(t, got, test.ShouldResemble, []int{3, 7})
}

func TestReset(t *testing.T) {
	idx, err := NewIndex(0.2)
	test.That(t, err, test.ShouldBeNil)
	idx.Insert(0, r3.Vector{X: 0.1})
	idx.Reset()
	test.That(t, idx.Len(), test.ShouldEqual, 0)
	test.That(t, idx.LeafCount(), test.ShouldEqual, 0)
	// idempotent
	idx.Reset()
	test.That(t, idx.Len(), test.ShouldEqual, 0)
}

func TestLeafBoundsAndClamp(t *testing.T) {
	idx, err := NewIndex(0.2)
	test.That(t, err, test.ShouldBeNil)

	c := LeafCoords{I: 1, J: -1, K: 0}
	minPt, maxPt := idx.LeafBounds(c)
	test.That(t, minPt.X, test.ShouldAlmostEqual, 0.2)
	test.That(t, minPt.Y, test.ShouldAlmostEqual, -0.2)
	test.That(t, maxPt.X, test.ShouldAlmostEqual, 0.4)
	test.That(t, maxPt.Z, test.ShouldAlmostEqual, 0.2)

	// a point already inside is untouched
	in := r3.Vector{X: 0.3, Y: -0.1, Z: 0.1}
	test.That(t, idx.ClampToLeaf(c, in), test.ShouldResemble, in)

	// a point outside is clamped back into the half-open voxel
	out := r3.Vector{X: 0.5, Y: -0.3, Z: 0.2}
	clamped := idx.ClampToLeaf(c, out)
	test.That(t, CoordsAt(clamped, 0.2), test.ShouldResemble, c)
	test.That(t, clamped.X < 0.4, test.ShouldBeTrue)
	test.That(t, clamped.Y, test.ShouldAlmostEqual, -0.2)
	test.That(t, math.Abs(clamped.Z-0.2) < 1e-12, test.ShouldBeTrue)
}
