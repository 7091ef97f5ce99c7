// Package weccapgo implements the real-time multi-view motion-capture core:
// epipolar correspondence, DLT triangulation, bundle adjustment, world
// alignment, rigid-object location, and Kalman tracking over synchronized
// frames from N calibrated cameras.
//
// - weccapgo is a golang port of paddyobrien/weccap's geometric core
// - This project is in **no** way associated with the original
//
// Camera device I/O, the front-end UI, the transport layer, checkerboard
// intrinsic calibration, and video persistence live outside this package;
// see Pipeline for the boundary these collaborators cross.
package weccapgo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// CameraIntrinsics holds the pinhole camera matrix K and distortion
// coefficients for one camera. Immutable once calibrated; replace the
// whole value via a control message rather than mutating fields in place.
type CameraIntrinsics struct {
	// K is the 3x3 pinhole matrix: fx, fy, cx, cy.
	K *mat.Dense

	// Dist holds (k1, k2, p1, p2, k3).
	Dist [5]float64
}

// NewCameraIntrinsics builds intrinsics from focal lengths and principal point.
func NewCameraIntrinsics(fx, fy, cx, cy float64, dist [5]float64) *CameraIntrinsics {
	k := mat.NewDense(3, 3, []float64{
		fx, 0, cx,
		0, fy, cy,
		0, 0, 1,
	})
	return &CameraIntrinsics{K: k, Dist: dist}
}

// CameraPose is the rigid transform from world to camera frame: x_cam = R*x_world + t.
// R must be a proper rotation (R*R^T = I, det = 1). Camera 0's pose is always identity.
type CameraPose struct {
	R *mat.Dense // 3x3
	T *mat.Dense // 3x1
}

// IdentityPose returns the canonical pose for camera 0.
func IdentityPose() CameraPose {
	r := mat.NewDense(3, 3, nil)
	r.Set(0, 0, 1)
	r.Set(1, 1, 1)
	r.Set(2, 2, 1)
	return CameraPose{R: r, T: mat.NewDense(3, 1, nil)}
}

// ProjectionMatrix computes P = K * [R | t], 3x4.
//
// Invariant (§3): P must always equal this expression for the camera's
// current K, R, t — callers that cache P are responsible for invalidating
// the cache whenever either input changes. There is no stored cache here:
// recomputing a 3x3 * 3x4 product is cheap relative to everything
// downstream of it.
func ProjectionMatrix(intr *CameraIntrinsics, pose CameraPose) *mat.Dense {
	rt := mat.NewDense(3, 4, nil)
	rt.Slice(0, 3, 0, 3).(*mat.Dense).Copy(pose.R)
	for i := 0; i < 3; i++ {
		rt.Set(i, 3, pose.T.At(i, 0))
	}
	p := mat.NewDense(3, 4, nil)
	p.Mul(intr.K, rt)
	return p
}

// ImagePoint is a 2D pixel coordinate, or the "missing" sentinel when a
// camera did not observe the point this frame. Per-camera point lists are
// NOT aligned by index across cameras — correspondence is the problem to
// solve (§4.4).
type ImagePoint struct {
	X, Y    float64
	Missing bool
}

// MissingPoint is the sentinel for an absent observation.
func MissingPoint() ImagePoint { return ImagePoint{Missing: true} }

// Pt constructs a present image point.
func Pt(x, y float64) ImagePoint { return ImagePoint{X: x, Y: y} }

// ObjectPoint is a triangulated 3D point with its mean reprojection error
// across contributing views (squared pixels).
type ObjectPoint struct {
	X, Y, Z float64
	Error   float64
}

// Vec3 returns the point as a 3-vector.
func (p ObjectPoint) Vec3() *mat.VecDense {
	return mat.NewVecDense(3, []float64{p.X, p.Y, p.Z})
}

// Sub returns p - q as a plain vector (not wrapped in ObjectPoint, since
// the difference of two points is a displacement, not a point).
func (p ObjectPoint) Sub(q ObjectPoint) [3]float64 {
	return [3]float64{p.X - q.X, p.Y - q.Y, p.Z - q.Z}
}

// Dist returns the Euclidean distance between two object points.
func (p ObjectPoint) Dist(q ObjectPoint) float64 {
	d := p.Sub(q)
	return math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
}

// DetectedObject is a rigid body located from a pair (or triple) of
// ObjectPoints whose mutual distance matches a known physical separation
// (§4.8). Not yet smoothed by the Kalman tracker — see TrackedObject.
type DetectedObject struct {
	Pos        [3]float64
	Heading    float64
	Error      float64
	DroneIndex int
}

// TrackedObject is a DetectedObject after Kalman smoothing (§4.9): a
// per-drone constant-velocity state estimate, with heading carried through
// unfiltered from the most recent association (the tracker only smooths
// position/velocity, per spec).
type TrackedObject struct {
	Pos        [3]float64
	Vel        [3]float64
	Heading    float64
	Error      float64
	DroneIndex int
}

// KalmanState is the per-track state: position, velocity, and covariance.
// Track lifetime begins when a DetectedObject can't be associated with any
// existing track, and ends when unassociated for more than MaxMissedFrames
// in a row.
type KalmanState struct {
	Pos          [3]float64
	Vel          [3]float64
	Cov          *mat.Dense // 6x6
	MissedFrames int
	DroneIndex   int
}

// ToWorldMatrix is the 4x4 homogeneous transform applied to camera-frame
// triangulated points to obtain world coordinates. Updated by floor
// alignment and set-origin (§4.7).
type ToWorldMatrix struct {
	M *mat.Dense // 4x4
}

// IdentityToWorld returns the to-world matrix before any alignment.
func IdentityToWorld() ToWorldMatrix {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return ToWorldMatrix{M: m}
}

// Apply transforms a camera-frame point into world coordinates.
func (w ToWorldMatrix) Apply(p ObjectPoint) ObjectPoint {
	h := mat.NewVecDense(4, []float64{p.X, p.Y, p.Z, 1})
	var out mat.VecDense
	out.MulVec(w.M, h)
	scale := out.AtVec(3)
	return ObjectPoint{X: out.AtVec(0) / scale, Y: out.AtVec(1) / scale, Z: out.AtVec(2) / scale, Error: p.Error}
}

// WorldAxisConvention selects the handedness/axis convention applied to a
// triangulated camera-frame point on its way into world coordinates
// (SPEC_FULL.md supplemented feature 3).
type WorldAxisConvention int

const (
	// WorldAxisMirrorSwap mirrors the point by diag(-1,-1,1), applies the
	// to-world transform, then swaps the resulting y and z components —
	// the convention observed in original_source's _triangulation. Default.
	WorldAxisMirrorSwap WorldAxisConvention = iota
	// WorldAxisIdentity applies the to-world transform alone.
	WorldAxisIdentity
)

var triangulationMirror = mat.NewDense(3, 3, []float64{
	-1, 0, 0,
	0, -1, 0,
	0, 0, 1,
})

// ApplyWorldAxisConvention transforms a triangulated camera-frame point into
// world coordinates under conv. Under WorldAxisMirrorSwap the point is first
// mirrored by diag(-1,-1,1), then passed through Apply, then has its y and z
// components swapped; WorldAxisIdentity is a bare Apply.
func (w ToWorldMatrix) ApplyWorldAxisConvention(p ObjectPoint, conv WorldAxisConvention) ObjectPoint {
	if conv == WorldAxisIdentity {
		return w.Apply(p)
	}

	var mirrored mat.VecDense
	mirrored.MulVec(triangulationMirror, mat.NewVecDense(3, []float64{p.X, p.Y, p.Z}))
	out := w.Apply(ObjectPoint{X: mirrored.AtVec(0), Y: mirrored.AtVec(1), Z: mirrored.AtVec(2), Error: p.Error})
	out.Y, out.Z = out.Z, out.Y
	return out
}
