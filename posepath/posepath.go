// Package posepath aligns incoming keyframes with sensor poses by
// timestamp. Odometry paths are stamped independently of the camera frames
// that produced them, often a few microseconds apart, so both sides are
// rounded to the millisecond before comparison and the nearest path pose
// wins.
package posepath

import (
	"time"

	"github.com/pkg/errors"

	"github.com/vbillys/robrex-mapping/spatialmath"
)

var (
	// ErrNoPath means no odometry path has been received yet.
	ErrNoPath = errors.New("no odometry path available")
	// ErrEmptyPath means the received path carries no poses.
	ErrEmptyPath = errors.New("odometry path has no poses")
	// ErrStampOutOfRange means the keyframe timestamp falls outside the
	// path's stamped interval.
	ErrStampOutOfRange = errors.New("keyframe timestamp outside odometry path range")
)

// StampedPose is one entry of an odometry path.
type StampedPose struct {
	Stamp time.Time
	Pose  spatialmath.SensorPose
}

// Path is an odometry path with poses in ascending stamp order.
type Path struct {
	poses []StampedPose
}

// NewPath wraps a pose sequence. The caller provides poses already sorted
// by stamp, as published.
func NewPath(poses []StampedPose) *Path {
	return &Path{poses: poses}
}

// RoundStamp rounds ts to the millisecond: the sub-millisecond remainder is
// dropped, and a remainder above half a millisecond rounds upward, carrying
// into seconds when it crosses one.
func RoundStamp(ts time.Time) time.Time {
	rem := time.Duration(ts.Nanosecond()) % time.Millisecond
	rounded := ts.Add(-rem)
	if rem > 500*time.Microsecond {
		rounded = rounded.Add(time.Millisecond)
	}
	return rounded
}

// Lookup finds the path pose nearest to stamp, comparing millisecond-rounded
// timestamps by bisection.
func (p *Path) Lookup(stamp time.Time) (spatialmath.SensorPose, error) {
	if p == nil {
		return spatialmath.SensorPose{}, ErrNoPath
	}
	if len(p.poses) == 0 {
		return spatialmath.SensorPose{}, ErrEmptyPath
	}
	ts := RoundStamp(stamp)
	first := RoundStamp(p.poses[0].Stamp)
	last := RoundStamp(p.poses[len(p.poses)-1].Stamp)
	if first.After(ts) || last.Before(ts) {
		return spatialmath.SensorPose{}, errors.Wrapf(ErrStampOutOfRange,
			"stamp %s not in [%s, %s]", ts.Format(time.RFC3339Nano),
			first.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano))
	}

	i, j := 0, len(p.poses)-1
	for i+1 < j {
		k := (i + j) / 2
		if !RoundStamp(p.poses[k].Stamp).After(ts) {
			i = k
		} else {
			j = k
		}
	}

	duri := ts.Sub(RoundStamp(p.poses[i].Stamp))
	durj := RoundStamp(p.poses[j].Stamp).Sub(ts)
	k := j
	if duri < durj {
		k = i
	}
	return p.poses[k].Pose, nil
}
