package weccapgo

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func syntheticTwoView() (*CameraIntrinsics, *CameraIntrinsics, CameraPose, CameraPose) {
	intr := NewCameraIntrinsics(800, 800, 320, 240, [5]float64{})
	pose1 := IdentityPose()
	pose2 := CameraPose{
		R: RodriguesToRotation([3]float64{0, 0.2, 0}),
		T: mat.NewDense(3, 1, []float64{0.5, 0, 0}),
	}
	return intr, intr, pose1, pose2
}

func TestFundamentalSatisfiesEpipolarConstraint(t *testing.T) {
	intr1, intr2, pose1, pose2 := syntheticTwoView()
	P1 := ProjectionMatrix(intr1, pose1)
	P2 := ProjectionMatrix(intr2, pose2)

	F, err := FundamentalFromProjections(P1, P2)
	if err != nil {
		t.Fatalf("FundamentalFromProjections: %v", err)
	}

	worldPoints := []ObjectPoint{
		{X: 0, Y: 0, Z: 5},
		{X: 1, Y: -1, Z: 6},
		{X: -0.5, Y: 0.5, Z: 4},
		{X: 2, Y: 1, Z: 8},
	}

	for _, wp := range worldPoints {
		x1 := ProjectPoint(intr1, pose1, wp)
		x2 := ProjectPoint(intr2, pose2, wp)

		v1 := mat.NewVecDense(3, []float64{x1.X, x1.Y, 1})
		v2 := mat.NewVecDense(3, []float64{x2.X, x2.Y, 1})

		var Fv1 mat.VecDense
		Fv1.MulVec(F, v1)
		residual := mat.Dot(v2, &Fv1)

		if math.Abs(residual) > 1e-2 {
			t.Errorf("x2^T F x1 = %g for point %+v, want ~0", residual, wp)
		}
	}
}

func TestMotionFromEssentialRecoversRotation(t *testing.T) {
	intr1, intr2, pose1, pose2 := syntheticTwoView()
	P1 := ProjectionMatrix(intr1, pose1)
	P2 := ProjectionMatrix(intr2, pose2)

	F, err := FundamentalFromProjections(P1, P2)
	if err != nil {
		t.Fatalf("FundamentalFromProjections: %v", err)
	}
	E, err := EssentialFromFundamental(F, intr1.K, intr2.K)
	if err != nil {
		t.Fatalf("EssentialFromFundamental: %v", err)
	}
	rotations, _, err := MotionFromEssential(E)
	if err != nil {
		t.Fatalf("MotionFromEssential: %v", err)
	}

	best := math.Inf(1)
	for _, R := range rotations {
		var diff mat.Dense
		diff.Sub(R, pose2.R)
		var sq float64
		r, c := diff.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				sq += diff.At(i, j) * diff.At(i, j)
			}
		}
		if sq < best {
			best = sq
		}
	}
	if best > 1e-6 {
		t.Errorf("no candidate rotation matched true R within tolerance, best sq error %g", best)
	}
}

func TestEpilineDistanceZeroOnLine(t *testing.T) {
	// line x - 2y + 1 = 0, point (1, 1) lies on it.
	d := EpilineDistance(1, -2, 1, 1, 1)
	if math.Abs(d) > 1e-12 {
		t.Errorf("expected 0 distance, got %g", d)
	}
}
