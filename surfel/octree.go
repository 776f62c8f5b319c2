package surfel

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// LeafCoords are the integer coordinates of an octree leaf voxel.
type LeafCoords struct {
	I, J, K int64
}

// CoordsAt returns the coordinates of the leaf containing pt at the given
// resolution.
func CoordsAt(pt r3.Vector, resolution float64) LeafCoords {
	return LeafCoords{
		I: int64(math.Floor(pt.X / resolution)),
		J: int64(math.Floor(pt.Y / resolution)),
		K: int64(math.Floor(pt.Z / resolution)),
	}
}

// Index maps 3D positions at a fixed leaf resolution to buckets of surfel
// handles. Leaves are created lazily on first insertion and enumerate their
// handles in insertion order.
type Index struct {
	resolution float64
	leaves     map[LeafCoords][]int
	count      int
}

// NewIndex returns an empty index with the given leaf resolution.
func NewIndex(resolution float64) (*Index, error) {
	if resolution <= 0 {
		return nil, errors.Errorf("invalid octree resolution %f", resolution)
	}
	return &Index{resolution: resolution, leaves: map[LeafCoords][]int{}}, nil
}

// Resolution returns the leaf side length.
func (idx *Index) Resolution() float64 {
	return idx.resolution
}

// CoordsAt returns the coordinates of the leaf containing pt.
func (idx *Index) CoordsAt(pt r3.Vector) LeafCoords {
	return CoordsAt(pt, idx.resolution)
}

// LeafBounds returns the half-open axis-aligned bounds [min, max) of a leaf
// voxel.
func (idx *Index) LeafBounds(c LeafCoords) (r3.Vector, r3.Vector) {
	minPt := r3.Vector{
		X: float64(c.I) * idx.resolution,
		Y: float64(c.J) * idx.resolution,
		Z: float64(c.K) * idx.resolution,
	}
	maxPt := r3.Vector{
		X: minPt.X + idx.resolution,
		Y: minPt.Y + idx.resolution,
		Z: minPt.Z + idx.resolution,
	}
	return minPt, maxPt
}

// ClampToLeaf returns pt moved to the closest point inside the leaf voxel c.
func (idx *Index) ClampToLeaf(c LeafCoords, pt r3.Vector) r3.Vector {
	minPt, maxPt := idx.LeafBounds(c)
	return r3.Vector{
		X: clampHalfOpen(pt.X, minPt.X, maxPt.X),
		Y: clampHalfOpen(pt.Y, minPt.Y, maxPt.Y),
		Z: clampHalfOpen(pt.Z, minPt.Z, maxPt.Z),
	}
}

func clampHalfOpen(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v >= hi {
		return math.Nextafter(hi, lo)
	}
	return v
}

// Insert adds handle i to the leaf containing pt.
func (idx *Index) Insert(i int, pt r3.Vector) {
	c := idx.CoordsAt(pt)
	idx.leaves[c] = append(idx.leaves[c], i)
	idx.count++
}

// LeafBucket enumerates the handles stored in the leaf containing pt, in
// insertion order. The returned slice is the live bucket; callers must not
// mutate it.
func (idx *Index) LeafBucket(pt r3.Vector) []int {
	return idx.leaves[idx.CoordsAt(pt)]
}

// RangeIndices enumerates all handles held by leaves intersecting the
// axis-aligned box [minPt, maxPt]. Order across leaves is unspecified.
func (idx *Index) RangeIndices(minPt, maxPt r3.Vector) []int {
	cmin := idx.CoordsAt(minPt)
	cmax := idx.CoordsAt(maxPt)
	var out []int
	for c, bucket := range idx.leaves {
		if c.I < cmin.I || c.I > cmax.I ||
			c.J < cmin.J || c.J > cmax.J ||
			c.K < cmin.K || c.K > cmax.K {
			continue
		}
		out = append(out, bucket...)
	}
	return out
}

// ForEachLeaf calls fn for every non-empty leaf until fn returns false.
// Iteration order is unspecified.
func (idx *Index) ForEachLeaf(fn func(c LeafCoords, bucket []int) bool) {
	for c, bucket := range idx.leaves {
		if !fn(c, bucket) {
			return
		}
	}
}

// AllIndices enumerates every handle stored in the index. Order is
// unspecified.
func (idx *Index) AllIndices() []int {
	out := make([]int, 0, idx.count)
	for _, bucket := range idx.leaves {
		out = append(out, bucket...)
	}
	return out
}

// Len returns the number of handles stored.
func (idx *Index) Len() int {
	return idx.count
}

// LeafCount returns the number of non-empty leaves.
func (idx *Index) LeafCount() int {
	return len(idx.leaves)
}

// Reset drops every leaf and releases the index memory.
func (idx *Index) Reset() {
	idx.leaves = map[LeafCoords][]int{}
	idx.count = 0
}
