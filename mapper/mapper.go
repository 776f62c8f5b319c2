// Package mapper implements the online surfel fusion engine: registered
// RGB-D keyframes are integrated one at a time into a persistent map of
// oriented disks held in a pre-allocated store and discoverable through an
// octree index.
//
// The engine is single-threaded: public calls assume exclusive access, and
// external callers must serialize queries and resets against ingestion.
package mapper

import (
	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/vbillys/robrex-mapping/camera"
	"github.com/vbillys/robrex-mapping/pointcloud"
	"github.com/vbillys/robrex-mapping/surfel"
)

var (
	// ErrNotReady is returned when a keyframe arrives before camera
	// intrinsics. The caller should buffer the keyframe and retry.
	ErrNotReady = errors.New("keyframe arrived before camera intrinsics")
	// ErrInvalidInput is returned for inputs refused without mutating the
	// map, such as a non-unit pose quaternion or invalid intrinsics.
	ErrInvalidInput = errors.New("invalid input")
)

// SurfelMapper fuses registered keyframes into the surfel map and answers
// spatial queries over it.
type SurfelMapper struct {
	opts       Options
	intrinsics *camera.PinholeCameraIntrinsics
	store      *surfel.Store
	index      *surfel.Index
	logger     golog.Logger
	frameLog   *FrameLog
	clk        clock.Clock
}

// NewSurfelMapper returns a mapper with the store pre-allocated to
// opts.SceneSize. Intrinsics arrive separately through SetCameraInfo.
func NewSurfelMapper(opts Options, logger golog.Logger) (*SurfelMapper, error) {
	return newSurfelMapper(opts, logger, clock.New())
}

func newSurfelMapper(opts Options, logger golog.Logger, clk clock.Clock) (*SurfelMapper, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	store, err := surfel.NewStore(opts.SceneSize)
	if err != nil {
		return nil, err
	}
	index, err := surfel.NewIndex(opts.OctreeResolution)
	if err != nil {
		return nil, err
	}
	frameLog := NewFrameLog(nil, logger, clk)
	frameLog.SetEnabled(opts.Logging)
	return &SurfelMapper{
		opts:     opts,
		store:    store,
		index:    index,
		logger:   logger,
		frameLog: frameLog,
		clk:      clk,
	}, nil
}

// Options returns the mapper configuration.
func (sm *SurfelMapper) Options() Options {
	return sm.opts
}

// FrameLog returns the per-frame structured log.
func (sm *SurfelMapper) FrameLog() *FrameLog {
	return sm.frameLog
}

// SetCameraInfo installs the pinhole intrinsics. The first valid message
// wins; later calls are ignored, matching the camera info stream contract.
func (sm *SurfelMapper) SetCameraInfo(intrinsics *camera.PinholeCameraIntrinsics) error {
	if sm.intrinsics != nil {
		sm.logger.Debug("camera intrinsics already set, ignoring")
		return nil
	}
	if err := intrinsics.CheckValid(); err != nil {
		return errors.Wrap(ErrInvalidInput, err.Error())
	}
	cp := *intrinsics
	sm.intrinsics = &cp
	sm.logger.Infow("camera intrinsics set",
		"fx", cp.Fx, "fy", cp.Fy, "ppx", cp.Ppx, "ppy", cp.Ppy,
		"width", cp.Width, "height", cp.Height)
	return nil
}

// Intrinsics returns the installed intrinsics, or nil before SetCameraInfo.
func (sm *SurfelMapper) Intrinsics() *camera.PinholeCameraIntrinsics {
	return sm.intrinsics
}

// PointCount returns the number of surfels currently in the map.
func (sm *SurfelMapper) PointCount() int {
	return sm.index.Len()
}

// SurfelAt returns the surfel record at handle i. Handles come from the
// query methods and stay valid until ResetMap.
func (sm *SurfelMapper) SurfelAt(i int) *surfel.Surfel {
	return sm.store.At(i)
}

// GetAllIndices enumerates every valid surfel handle, the set referenced by
// the spatial index. Used by external savers.
func (sm *SurfelMapper) GetAllIndices() []int {
	return sm.index.AllIndices()
}

// GetBoundingBoxIndices returns the handles of reliable surfels whose
// positions lie within the axis-aligned box [minPt, maxPt].
func (sm *SurfelMapper) GetBoundingBoxIndices(minPt, maxPt r3.Vector) []int {
	candidates := sm.index.RangeIndices(minPt, maxPt)
	out := make([]int, 0, len(candidates))
	for _, i := range candidates {
		s := sm.store.At(i)
		if !s.Reliable(sm.opts.ConfidenceThreshold) {
			continue
		}
		p := s.Position
		if p.X < minPt.X || p.X > maxPt.X ||
			p.Y < minPt.Y || p.Y > maxPt.Y ||
			p.Z < minPt.Z || p.Z > maxPt.Z {
			continue
		}
		out = append(out, i)
	}
	return out
}

// ResetMap removes every surfel, clears the spatial index and releases its
// dynamic memory. Idempotent.
func (sm *SurfelMapper) ResetMap() {
	sm.store.Reset()
	sm.index.Reset()
	sm.logger.Info("map reset")
}

// ExtractMapCloud assembles the XYZRGB cloud of all valid surfels for
// saving. Coordinates are the map frame.
func (sm *SurfelMapper) ExtractMapCloud() []pointcloud.PointXYZRGB {
	indices := sm.GetAllIndices()
	out := make([]pointcloud.PointXYZRGB, 0, len(indices))
	for _, i := range indices {
		s := sm.store.At(i)
		if !s.Valid() {
			continue
		}
		out = append(out, pointcloud.PointXYZRGB{Position: s.Position, R: s.R, G: s.G, B: s.B})
	}
	return out
}
