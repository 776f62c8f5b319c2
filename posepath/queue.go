package posepath

import (
	"time"

	"github.com/edaniels/golog"

	"github.com/vbillys/robrex-mapping/pointcloud"
	"github.com/vbillys/robrex-mapping/spatialmath"
)

// Keyframe is a stamped organized cloud waiting for pose alignment.
type Keyframe struct {
	Stamp time.Time
	Cloud *pointcloud.Organized
}

// Queue buffers keyframes whose poses are not yet available. Keyframes are
// integrated strictly in arrival order: draining stops at the first frame
// that cannot be aligned and retries it on the next drain, once a newer path
// has arrived.
type Queue struct {
	frames []Keyframe
	logger golog.Logger
}

// NewQueue returns an empty keyframe queue.
func NewQueue(logger golog.Logger) *Queue {
	return &Queue{logger: logger}
}

// Push appends a keyframe to the queue.
func (q *Queue) Push(kf Keyframe) {
	q.frames = append(q.frames, kf)
}

// Len returns the number of buffered keyframes.
func (q *Queue) Len() int {
	return len(q.frames)
}

// Drain resolves poses for queued keyframes against path and hands each
// aligned frame to integrate. An unalignable frame stays queued and ends the
// drain without error; an integrate error aborts the drain and keeps the
// failed frame queued.
func (q *Queue) Drain(path *Path, integrate func(Keyframe, spatialmath.SensorPose) error) error {
	for len(q.frames) > 0 {
		kf := q.frames[0]
		pose, err := path.Lookup(kf.Stamp)
		if err != nil {
			q.logger.Debugw("keyframe not alignable yet, keeping buffered",
				"stamp", kf.Stamp, "error", err)
			return nil
		}
		if err := integrate(kf, pose); err != nil {
			return err
		}
		q.frames = q.frames[1:]
	}
	return nil
}
