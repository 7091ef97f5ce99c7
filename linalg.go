package weccapgo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SkewSymmetric returns the 3x3 cross-product matrix [v]_x such that
// [v]_x * w == v cross w for any w.
func SkewSymmetric(v [3]float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v[2], v[1],
		v[2], 0, -v[0],
		-v[1], v[0], 0,
	})
}

// RotationToRodrigues converts a proper 3x3 rotation matrix to its axis-angle
// (Rodrigues) vector, whose direction is the rotation axis and magnitude the
// rotation angle in radians.
func RotationToRodrigues(R *mat.Dense) ([3]float64, error) {
	r, c := R.Dims()
	if r != 3 || c != 3 {
		return [3]float64{}, fmt.Errorf("%w: rodrigues expects 3x3, got %dx%d", ErrInputShape, r, c)
	}

	trace := R.At(0, 0) + R.At(1, 1) + R.At(2, 2)
	cosTheta := (trace - 1) / 2
	cosTheta = math.Max(-1, math.Min(1, cosTheta))
	theta := math.Acos(cosTheta)

	if theta < 1e-12 {
		return [3]float64{0, 0, 0}, nil
	}

	if math.Pi-theta < 1e-6 {
		// Near-180-degree rotation: the (R - R^T) formula below is degenerate
		// since R - R^T -> 0. Recover the axis from the symmetric part
		// rrt = (R+I)/2 ~= n*n^T instead: diagonal entries give |n_i|, and
		// off-diagonal entries against the largest-magnitude component give
		// the relative signs (diagonal square roots alone lose them).
		rrt := mat.NewDense(3, 3, nil)
		rrt.Add(R, eye3())
		rrt.Scale(0.5, rrt)

		maxIdx := 0
		maxVal := rrt.At(0, 0)
		for i := 1; i < 3; i++ {
			if v := rrt.At(i, i); v > maxVal {
				maxVal = v
				maxIdx = i
			}
		}

		var axis [3]float64
		axis[maxIdx] = math.Sqrt(math.Max(0, rrt.At(maxIdx, maxIdx)))
		for i := 0; i < 3; i++ {
			if i == maxIdx {
				continue
			}
			magnitude := math.Sqrt(math.Max(0, rrt.At(i, i)))
			if rrt.At(maxIdx, i) < 0 {
				magnitude = -magnitude
			}
			axis[i] = magnitude
		}

		norm := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
		if norm < 1e-12 {
			return [3]float64{}, fmt.Errorf("%w: degenerate 180-degree rotation axis", ErrNumericFailure)
		}
		for i := range axis {
			axis[i] = axis[i] / norm * theta
		}
		return axis, nil
	}

	factor := theta / (2 * math.Sin(theta))
	rv := [3]float64{
		(R.At(2, 1) - R.At(1, 2)) * factor,
		(R.At(0, 2) - R.At(2, 0)) * factor,
		(R.At(1, 0) - R.At(0, 1)) * factor,
	}
	return rv, nil
}

// RodriguesToRotation converts an axis-angle vector back to a proper
// rotation matrix via the Rodrigues rotation formula:
// R = I + sin(theta) K + (1 - cos(theta)) K^2.
func RodriguesToRotation(rv [3]float64) *mat.Dense {
	theta := math.Sqrt(rv[0]*rv[0] + rv[1]*rv[1] + rv[2]*rv[2])
	if theta < 1e-12 {
		return eye3()
	}
	axis := [3]float64{rv[0] / theta, rv[1] / theta, rv[2] / theta}
	K := SkewSymmetric(axis)

	var k2 mat.Dense
	k2.Mul(K, K)

	R := eye3()
	var sinTerm mat.Dense
	sinTerm.Scale(math.Sin(theta), K)
	var cosTerm mat.Dense
	cosTerm.Scale(1-math.Cos(theta), &k2)

	R.Add(R, &sinTerm)
	R.Add(R, &cosTerm)
	return R
}

func eye3() *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	m.Set(0, 0, 1)
	m.Set(1, 1, 1)
	m.Set(2, 2, 1)
	return m
}

func eye4() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Norm3 returns the Euclidean length of a 3-vector.
func Norm3(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Cross3 returns the cross product of two 3-vectors.
func Cross3(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Dot3 returns the dot product of two 3-vectors.
func Dot3(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
