package weccapgo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// rowPair holds two rows of a 3x4 projection matrix, picked by the cyclic
// rule used by FundamentalFromProjections: pair index k selects the two
// rows of P other than row k, in the order (k+1, k+2) mod 3.
func rowPair(P *mat.Dense, k int) [2][4]float64 {
	r1 := (k + 1) % 3
	r2 := (k + 2) % 3
	var out [2][4]float64
	for c := 0; c < 4; c++ {
		out[0][c] = P.At(r1, c)
		out[1][c] = P.At(r2, c)
	}
	return out
}

func det4(rows [4][4]float64) float64 {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			m.Set(i, j, rows[i][j])
		}
	}
	return mat.Det(m)
}

// FundamentalFromProjections computes the fundamental matrix F relating two
// views given their projection matrices, by the cofactor construction
// (§4.2): F[i,j] is the determinant of the 4x4 matrix stacking the two rows
// of P1 other than row j with the two rows of P2 other than row i.
func FundamentalFromProjections(P1, P2 *mat.Dense) (*mat.Dense, error) {
	if r, c := P1.Dims(); r != 3 || c != 4 {
		return nil, fmt.Errorf("%w: P1 must be 3x4, got %dx%d", ErrInputShape, r, c)
	}
	if r, c := P2.Dims(); r != 3 || c != 4 {
		return nil, fmt.Errorf("%w: P2 must be 3x4, got %dx%d", ErrInputShape, r, c)
	}

	X := [3][2][4]float64{rowPair(P1, 0), rowPair(P1, 1), rowPair(P1, 2)}
	Y := [3][2][4]float64{rowPair(P2, 0), rowPair(P2, 1), rowPair(P2, 2)}

	F := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var rows [4][4]float64
			rows[0] = X[j][0]
			rows[1] = X[j][1]
			rows[2] = Y[i][0]
			rows[3] = Y[i][1]
			F.Set(i, j, det4(rows))
		}
	}
	return F, nil
}

// EssentialFromFundamental computes E = K2^T * F * K1.
func EssentialFromFundamental(F, K1, K2 *mat.Dense) (*mat.Dense, error) {
	if r, c := F.Dims(); r != 3 || c != 3 {
		return nil, fmt.Errorf("%w: F must be 3x3, got %dx%d", ErrInputShape, r, c)
	}

	var fk1, e mat.Dense
	fk1.Mul(F, K1)
	e.Mul(K2.T(), &fk1)
	return &e, nil
}

// MotionFromEssential decomposes the essential matrix into the four
// candidate (R, t) solutions via SVD, matching OpenCV's
// decomposeEssentialMat: {(R1,t), (R1,-t), (R2,t), (R2,-t)}.
func MotionFromEssential(E *mat.Dense) ([]*mat.Dense, []*mat.Dense, error) {
	if r, c := E.Dims(); r != 3 || c != 3 {
		return nil, nil, fmt.Errorf("%w: E must be 3x3, got %dx%d", ErrInputShape, r, c)
	}

	var svd mat.SVD
	if ok := svd.Factorize(E, mat.SVDFull); !ok {
		return nil, nil, fmt.Errorf("%w: SVD of essential matrix did not converge", ErrNumericFailure)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// Enforce det(U) = det(V) = +1 so the recovered rotations are proper.
	if mat.Det(&u) < 0 {
		negateColumn(&u, 2)
	}
	if mat.Det(&v) < 0 {
		negateColumn(&v, 2)
	}

	w := mat.NewDense(3, 3, []float64{
		0, -1, 0,
		1, 0, 0,
		0, 0, 1,
	})

	var r1, r2 mat.Dense
	r1.Mul(&u, w)
	r1.Mul(&r1, v.T())
	r2.Mul(&u, w.T())
	r2.Mul(&r2, v.T())

	t := mat.NewDense(3, 1, []float64{u.At(0, 2), u.At(1, 2), u.At(2, 2)})
	var negT mat.Dense
	negT.Scale(-1, t)

	r1c := mat.DenseCopyOf(&r1)
	r2c := mat.DenseCopyOf(&r2)

	rotations := []*mat.Dense{r1c, r1c, r2c, r2c}
	translations := []*mat.Dense{t, mat.DenseCopyOf(&negT), t, mat.DenseCopyOf(&negT)}
	return rotations, translations, nil
}

func negateColumn(m *mat.Dense, col int) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		m.Set(i, col, -m.At(i, col))
	}
}

// EpilineDistance returns the perpendicular distance from (x,y) to the line
// a*x + b*y + c = 0 (§4.2).
func EpilineDistance(a, b, c, x, y float64) float64 {
	return math.Abs(a*x+b*y+c) / math.Sqrt(a*a+b*b)
}

// EpilineInOther computes the epipolar line in the other view corresponding
// to a point in this view, given the fundamental matrix F relating the two
// (line = F * [x,y,1]^T, normalized as OpenCV's computeCorrespondEpilines
// does), returning coefficients (a,b,c).
func EpilineInOther(F *mat.Dense, x, y float64) (a, b, c float64) {
	p := mat.NewVecDense(3, []float64{x, y, 1})
	var line mat.VecDense
	line.MulVec(F, p)
	a, b, c = line.AtVec(0), line.AtVec(1), line.AtVec(2)
	norm := math.Sqrt(a*a + b*b)
	if norm < 1e-15 {
		return 0, 0, 0
	}
	return a / norm, b / norm, c / norm
}
