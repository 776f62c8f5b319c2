// Package spatialmath defines the pose representation used by the surfel
// mapper and the quaternion operations needed to move points between the
// sensor frame and the map frame.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// unitNormTolerance is how far a quaternion norm may stray from 1 before the
// pose is rejected as invalid.
const unitNormTolerance = 1e-6

// SensorPose is the pose of the RGB-D sensor in the map frame: the sensor
// origin and a unit quaternion rotating sensor-frame vectors into the map
// frame.
type SensorPose struct {
	Origin      r3.Vector
	Orientation quat.Number
}

// NewZeroPose returns a pose at the map origin with identity orientation.
func NewZeroPose() SensorPose {
	return SensorPose{Orientation: quat.Number{Real: 1}}
}

// NewPose returns a pose from an origin and an orientation quaternion.
func NewPose(origin r3.Vector, orientation quat.Number) SensorPose {
	return SensorPose{Origin: origin, Orientation: orientation}
}

// CheckValid returns an error if the pose orientation is not a unit
// quaternion.
func (sp SensorPose) CheckValid() error {
	n := quat.Abs(sp.Orientation)
	if math.IsNaN(n) || math.Abs(n-1) > unitNormTolerance {
		return errors.Errorf("pose orientation is not a unit quaternion (norm %f)", n)
	}
	return nil
}

// TransformPoint takes a point in the sensor frame and returns it in the map
// frame.
func (sp SensorPose) TransformPoint(pt r3.Vector) r3.Vector {
	return RotateVec(sp.Orientation, pt).Add(sp.Origin)
}

// InverseTransformPoint takes a point in the map frame and returns it in the
// sensor frame.
func (sp SensorPose) InverseTransformPoint(pt r3.Vector) r3.Vector {
	return RotateVec(quat.Conj(sp.Orientation), pt.Sub(sp.Origin))
}

// RotateVec rotates v by the unit quaternion q using the standard q*v*q^-1
// sandwich.
func RotateVec(q quat.Number, v r3.Vector) r3.Vector {
	qv := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, qv), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// QuatBetweenVecs returns the quaternion rotating unit vector a onto unit
// vector b. The antiparallel case picks an arbitrary perpendicular axis.
func QuatBetweenVecs(a, b r3.Vector) quat.Number {
	dot := a.Dot(b)
	if dot < -1+1e-9 {
		// 180 degree turn about any axis perpendicular to a
		axis := a.Cross(r3.Vector{X: 1})
		if axis.Norm2() < 1e-12 {
			axis = a.Cross(r3.Vector{Y: 1})
		}
		axis = axis.Normalize()
		return quat.Number{Imag: axis.X, Jmag: axis.Y, Kmag: axis.Z}
	}
	cross := a.Cross(b)
	q := quat.Number{Real: 1 + dot, Imag: cross.X, Jmag: cross.Y, Kmag: cross.Z}
	return Normalize(q)
}

// Normalize returns the unit quaternion parallel to q.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// QuaternionAlmostEqual checks two quaternions for approximate equality up to
// sign, which represents the same rotation.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	return quat.Abs(quat.Sub(a, b)) < tol || quat.Abs(quat.Add(a, b)) < tol
}
