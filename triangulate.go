package weccapgo

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DLT triangulates a single 3D point from N≥2 views via the Direct Linear
// Transform (§4.3): each view contributes two rows to A, `y*P[2] - P[1]`
// and `P[0] - x*P[2]`; B = A^T*A; the homogeneous point is the
// right-singular vector of B's smallest singular value, dehomogenized.
func DLT(Ps []*mat.Dense, points []ImagePoint) (ObjectPoint, error) {
	n := len(Ps)
	if n != len(points) {
		return ObjectPoint{}, fmt.Errorf("%w: %d projection matrices, %d points", ErrInputShape, n, len(points))
	}
	if n < 2 {
		return ObjectPoint{}, fmt.Errorf("%w: DLT needs at least 2 views, got %d", ErrDegenerateGeometry, n)
	}

	A := mat.NewDense(2*n, 4, nil)
	for i, P := range Ps {
		x, y := points[i].X, points[i].Y
		for c := 0; c < 4; c++ {
			A.Set(2*i, c, y*P.At(2, c)-P.At(1, c))
			A.Set(2*i+1, c, P.At(0, c)-x*P.At(2, c))
		}
	}

	var B mat.Dense
	B.Mul(A.T(), A)

	var svd mat.SVD
	if ok := svd.Factorize(&B, mat.SVDFull); !ok {
		return ObjectPoint{}, fmt.Errorf("%w: SVD in DLT did not converge", ErrNumericFailure)
	}
	var v mat.Dense
	svd.VTo(&v)

	// Smallest singular value corresponds to the last column of V (gonum
	// orders singular values descending).
	w := v.At(3, 3)
	if w == 0 {
		return ObjectPoint{}, fmt.Errorf("%w: degenerate homogeneous point", ErrNumericFailure)
	}
	return ObjectPoint{
		X: v.At(0, 3) / w,
		Y: v.At(1, 3) / w,
		Z: v.At(2, 3) / w,
	}, nil
}

// TriangulatePoint filters out missing observations and their matching
// projection matrices, then runs DLT on what remains. Returns
// ErrDegenerateGeometry if fewer than 2 views remain (§4.3).
func TriangulatePoint(Ps []*mat.Dense, points []ImagePoint) (ObjectPoint, error) {
	var filteredPs []*mat.Dense
	var filteredPoints []ImagePoint
	for i, p := range points {
		if p.Missing {
			continue
		}
		filteredPs = append(filteredPs, Ps[i])
		filteredPoints = append(filteredPoints, p)
	}
	if len(filteredPoints) < 2 {
		return ObjectPoint{}, fmt.Errorf("%w: only %d views observed this point", ErrDegenerateGeometry, len(filteredPoints))
	}
	return DLT(filteredPs, filteredPoints)
}

// TriangulatePoints triangulates a batch of samples (one point per sample,
// one observation per camera per sample). Samples that fail triangulation
// are omitted from the result along with their index, so callers can align
// errors and successful points.
func TriangulatePoints(Ps []*mat.Dense, samples [][]ImagePoint) ([]ObjectPoint, []int) {
	var points []ObjectPoint
	var indices []int
	for i, sample := range samples {
		p, err := TriangulatePoint(Ps, sample)
		if err != nil {
			continue
		}
		points = append(points, p)
		indices = append(indices, i)
	}
	return points, indices
}
