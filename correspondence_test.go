package weccapgo

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestResolveCorrespondenceUnderAmbiguity(t *testing.T) {
	intr := NewCameraIntrinsics(1000, 1000, 500, 500, [5]float64{})
	pose1 := IdentityPose()
	pose2 := CameraPose{
		R: RodriguesToRotation([3]float64{0, 0.3, 0}),
		T: mat.NewDense(3, 1, []float64{1, 0, 0}),
	}
	intrinsics := []*CameraIntrinsics{intr, intr}
	poses := []CameraPose{pose1, pose2}
	Ps := []*mat.Dense{ProjectionMatrix(intr, pose1), ProjectionMatrix(intr, pose2)}

	a := ObjectPoint{X: 0, Y: 0.02, Z: 6}
	b := ObjectPoint{X: 0.5, Y: -0.02, Z: 6}

	cam0 := []ImagePoint{ProjectPoint(intr, pose1, a), ProjectPoint(intr, pose1, b)}
	cam1 := []ImagePoint{ProjectPoint(intr, pose2, a), ProjectPoint(intr, pose2, b)}

	cfg := &CorrespondenceConfig{EpilineThreshold: 50}
	points, errs := ResolveCorrespondence(cfg, [][]ImagePoint{cam0, cam1}, Ps, intrinsics, poses)

	if len(points) != 2 || len(errs) != 2 {
		t.Fatalf("expected 2 resolved points, got %d (errs=%v)", len(points), errs)
	}

	closest := func(p ObjectPoint) ObjectPoint {
		da := p.Dist(a)
		db := p.Dist(b)
		if da < db {
			return a
		}
		return b
	}

	for _, p := range points {
		truth := closest(p)
		if d := p.Dist(truth); d > 1e-3 {
			t.Errorf("resolved point %+v is %g from nearest ground truth %+v, want near-exact match", p, d, truth)
		}
	}

	if math.Abs(points[0].Dist(points[1])-a.Dist(b)) > 1e-3 {
		t.Errorf("resolved pair separation %g does not match ground truth separation %g", points[0].Dist(points[1]), a.Dist(b))
	}
}
