package weccapgo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Axis names accepted by AlignFloorToAxis.
const (
	AxisX = "x"
	AxisY = "y"
	AxisZ = "z"
)

func axisVector(axis string) [3]float64 {
	switch axis {
	case AxisX:
		return [3]float64{1, 0, 0}
	case AxisY:
		return [3]float64{0, 1, 0}
	default:
		return [3]float64{0, 0, 1}
	}
}

// AlignFloorToAxis fits a plane through worldPoints by SVD of their
// centered coordinates and returns a new to-world matrix that rotates the
// plane's normal onto the given world axis (default +z) and then shifts
// along that axis so the fitted plane passes through the origin, composed
// with the current to-world matrix: new = A_align * current (§4.7).
func AlignFloorToAxis(worldPoints []ObjectPoint, current ToWorldMatrix, axis string) (ToWorldMatrix, error) {
	n := len(worldPoints)
	if n < 3 {
		return current, fmt.Errorf("%w: floor fit needs at least 3 points, got %d", ErrDegenerateGeometry, n)
	}

	var cx, cy, cz float64
	for _, p := range worldPoints {
		cx += p.X
		cy += p.Y
		cz += p.Z
	}
	cx, cy, cz = cx/float64(n), cy/float64(n), cz/float64(n)

	centered := mat.NewDense(n, 3, nil)
	for i, p := range worldPoints {
		centered.Set(i, 0, p.X-cx)
		centered.Set(i, 1, p.Y-cy)
		centered.Set(i, 2, p.Z-cz)
	}

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDFull); !ok {
		return current, fmt.Errorf("%w: floor-plane SVD did not converge", ErrNumericFailure)
	}
	var v mat.Dense
	svd.VTo(&v)
	normal := [3]float64{v.At(0, 2), v.At(1, 2), v.At(2, 2)}
	norm := Norm3(normal)
	if norm < 1e-15 {
		return current, fmt.Errorf("%w: degenerate plane normal", ErrNumericFailure)
	}
	for i := range normal {
		normal[i] /= norm
	}

	target := axisVector(axis)
	if Dot3(normal, target) < 0 {
		normal = [3]float64{-normal[0], -normal[1], -normal[2]}
	}

	rotAxis := Cross3(normal, target)
	rotAxisNorm := Norm3(rotAxis)
	cosAngle := Dot3(normal, target)

	var rotation *mat.Dense
	switch {
	case rotAxisNorm < 1e-9 && cosAngle < 0:
		// Anti-parallel (180-degree) case: the cross product vanishes too,
		// so pick an arbitrary perpendicular axis to rotate about.
		perp := [3]float64{0, 0, 1}
		if math.Abs(normal[2]) > 1-1e-6 {
			perp = [3]float64{0, 1, 0}
		}
		axis180 := Cross3(normal, perp)
		axis180Norm := Norm3(axis180)
		for i := range axis180 {
			axis180[i] = axis180[i] / axis180Norm * math.Pi
		}
		rotation = RodriguesToRotation(axis180)
	case rotAxisNorm < 1e-9:
		rotation = eye3()
	default:
		for i := range rotAxis {
			rotAxis[i] /= rotAxisNorm
		}
		angle := math.Acos(math.Max(-1, math.Min(1, cosAngle)))
		for i := range rotAxis {
			rotAxis[i] *= angle
		}
		rotation = RodriguesToRotation(rotAxis)
	}

	alignment := eye4()
	alignment.Slice(0, 3, 0, 3).(*mat.Dense).Copy(rotation)

	// Shift along the target axis so the fitted plane passes through the origin.
	var rotatedCentroid mat.VecDense
	rotatedCentroid.MulVec(rotation, mat.NewVecDense(3, []float64{cx, cy, cz}))
	offset := Dot3([3]float64{rotatedCentroid.AtVec(0), rotatedCentroid.AtVec(1), rotatedCentroid.AtVec(2)}, target)
	for i := 0; i < 3; i++ {
		alignment.Set(i, 3, -offset*target[i])
	}

	var newM mat.Dense
	newM.Mul(alignment, current.M)
	return ToWorldMatrix{M: mat.DenseCopyOf(&newM)}, nil
}

// SetOrigin translates the to-world matrix so that the given world point
// maps to the world origin (§4.7). swapYZ reproduces the reference's
// undocumented y/z swap of the input point (§9 open question); it is off
// by default (PipelineConfig.SetOriginSwapYZ).
func SetOrigin(point ObjectPoint, current ToWorldMatrix, swapYZ bool) ToWorldMatrix {
	p := point
	if swapYZ {
		p.Y, p.Z = p.Z, p.Y
	}

	transform := eye4()
	transform.Set(0, 3, -p.X)
	transform.Set(1, 3, -p.Y)
	transform.Set(2, 3, -p.Z)

	var newM mat.Dense
	newM.Mul(transform, current.M)
	return ToWorldMatrix{M: mat.DenseCopyOf(&newM)}
}

// MarkerPair is one (point, point) observation used to recover
// metric scale — two markers with a known physical separation.
type MarkerPair struct {
	A, B ObjectPoint
}

// DetermineScale recovers the metric scale factor from observed marker-pair
// distances and a known physical separation, and applies it multiplicatively
// to every pose's translation (rotations are unchanged, §4.7, §8 property 6).
func DetermineScale(pairs []MarkerPair, poses []CameraPose, realDistance float64) (float64, []CameraPose, error) {
	if len(pairs) == 0 {
		return 0, nil, fmt.Errorf("%w: no valid marker-pair observations", ErrDegenerateGeometry)
	}

	var sum float64
	for _, pair := range pairs {
		sum += pair.A.Dist(pair.B)
	}
	meanObserved := sum / float64(len(pairs))
	if meanObserved == 0 {
		return 0, nil, fmt.Errorf("%w: observed marker distance is zero", ErrNumericFailure)
	}

	scale := realDistance / meanObserved

	scaled := make([]CameraPose, len(poses))
	for i, pose := range poses {
		var t mat.Dense
		t.Scale(scale, pose.T)
		scaled[i] = CameraPose{R: pose.R, T: mat.DenseCopyOf(&t)}
	}
	return scale, scaled, nil
}
