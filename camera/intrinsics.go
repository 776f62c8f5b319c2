// Package camera models the pinhole RGB-D sensor: perspective projection,
// inverse projection and the view frustum test used for visibility culling.
package camera

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intrinsics are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrapf(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective
// projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px" mapstructure:"width_px"`
	Height int     `json:"height_px" mapstructure:"height_px"`
	Fx     float64 `json:"fx" mapstructure:"fx"`
	Fy     float64 `json:"fy" mapstructure:"fy"`
	Ppx    float64 `json:"ppx" mapstructure:"ppx"`
	Ppy    float64 `json:"ppy" mapstructure:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// PixelToPoint transforms a pixel with depth to a 3D point in the camera frame.
func (params *PinholeCameraIntrinsics) PixelToPoint(u, v, z float64) r3.Vector {
	xOverZ := (u - params.Ppx) / params.Fx
	yOverZ := (v - params.Ppy) / params.Fy
	return r3.Vector{X: xOverZ * z, Y: yOverZ * z, Z: z}
}

// ProjectPoint projects a camera-frame point to continuous pixel coordinates
// and depth. ok is false when the point is behind the camera or projects
// outside the image.
func (params *PinholeCameraIntrinsics) ProjectPoint(pt r3.Vector) (u, v, z float64, ok bool) {
	if pt.Z <= 0 {
		return 0, 0, 0, false
	}
	u = (pt.X/pt.Z)*params.Fx + params.Ppx
	v = (pt.Y/pt.Z)*params.Fy + params.Ppy
	if u < 0 || u >= float64(params.Width) || v < 0 || v >= float64(params.Height) {
		return u, v, pt.Z, false
	}
	return u, v, pt.Z, true
}

// ProjectPixel is ProjectPoint with the coordinates rounded to the nearest
// pixel. The rounded pixel is checked against the image bounds again since
// rounding can push a borderline projection out of frame.
func (params *PinholeCameraIntrinsics) ProjectPixel(pt r3.Vector) (px, py int, z float64, ok bool) {
	u, v, z, ok := params.ProjectPoint(pt)
	if !ok {
		return 0, 0, 0, false
	}
	px = int(math.Round(u))
	py = int(math.Round(v))
	if px < 0 || px >= params.Width || py < 0 || py >= params.Height {
		return px, py, z, false
	}
	return px, py, z, true
}

// InFrustum reports whether a camera-frame point is visible: it projects
// into the image and its depth lies within [minDist, maxDist].
func (params *PinholeCameraIntrinsics) InFrustum(pt r3.Vector, minDist, maxDist float64) bool {
	_, _, z, ok := params.ProjectPoint(pt)
	return ok && z >= minDist && z <= maxDist
}

// FrustumCorners returns the eight camera-frame corner points of the view
// frustum clipped to the depth range [minDist, maxDist].
func (params *PinholeCameraIntrinsics) FrustumCorners(minDist, maxDist float64) []r3.Vector {
	w, h := float64(params.Width), float64(params.Height)
	corners := make([]r3.Vector, 0, 8)
	for _, z := range []float64{minDist, maxDist} {
		corners = append(corners,
			params.PixelToPoint(0, 0, z),
			params.PixelToPoint(w, 0, z),
			params.PixelToPoint(0, h, z),
			params.PixelToPoint(w, h, z),
		)
	}
	return corners
}

// GetCameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx 0 ppx],
//
//	[0 fy ppy],
//	[0 0  1]]
func (params *PinholeCameraIntrinsics) GetCameraMatrix() *mat.Dense {
	if params == nil {
		return nil
	}
	cameraMatrix := mat.NewDense(3, 3, nil)
	cameraMatrix.Set(0, 0, params.Fx)
	cameraMatrix.Set(1, 1, params.Fy)
	cameraMatrix.Set(0, 2, params.Ppx)
	cameraMatrix.Set(1, 2, params.Ppy)
	cameraMatrix.Set(2, 2, 1)
	return cameraMatrix
}
