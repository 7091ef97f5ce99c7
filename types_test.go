package weccapgo

import (
	"testing"

	"github.com/paddyobrien/weccap-go/internal/testutil"
	"gonum.org/v1/gonum/mat"
)

func TestProjectionMatrixInvariant(t *testing.T) {
	intr := NewCameraIntrinsics(800, 800, 320, 240, [5]float64{})
	pose := CameraPose{
		R: mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
		T: mat.NewDense(3, 1, []float64{0.1, 0.2, 0.3}),
	}

	P := ProjectionMatrix(intr, pose)

	rt := mat.NewDense(3, 4, nil)
	rt.Slice(0, 3, 0, 3).(*mat.Dense).Copy(pose.R)
	for i := 0; i < 3; i++ {
		rt.Set(i, 3, pose.T.At(i, 0))
	}
	var want mat.Dense
	want.Mul(intr.K, rt)

	testutil.AssertMatrixAlmostEqual(t, P, &want, 1e-12, "P = K[R|t]")
}

func TestToWorldMatrixIdentityApply(t *testing.T) {
	w := IdentityToWorld()
	p := ObjectPoint{X: 1, Y: 2, Z: 3}
	got := w.Apply(p)
	if got.X != p.X || got.Y != p.Y || got.Z != p.Z {
		t.Errorf("identity to-world matrix changed point: got %+v, want %+v", got, p)
	}
}

func TestApplyWorldAxisConventionMirrorsAndSwaps(t *testing.T) {
	w := IdentityToWorld()
	p := ObjectPoint{X: 1, Y: 2, Z: 3}

	got := w.ApplyWorldAxisConvention(p, WorldAxisMirrorSwap)
	// mirror: (1,2,3) -> (-1,-2,3); identity to-world leaves it unchanged;
	// swap y/z: (-1,-2,3) -> (-1,3,-2).
	testutil.AssertAlmostEqual(t, got.X, -1, 1e-12, "mirrored/swapped X")
	testutil.AssertAlmostEqual(t, got.Y, 3, 1e-12, "mirrored/swapped Y")
	testutil.AssertAlmostEqual(t, got.Z, -2, 1e-12, "mirrored/swapped Z")
}

func TestApplyWorldAxisConventionIdentityMatchesApply(t *testing.T) {
	w := IdentityToWorld()
	p := ObjectPoint{X: 1, Y: 2, Z: 3}

	got := w.ApplyWorldAxisConvention(p, WorldAxisIdentity)
	want := w.Apply(p)
	if got.X != want.X || got.Y != want.Y || got.Z != want.Z {
		t.Errorf("WorldAxisIdentity diverged from Apply: got %+v, want %+v", got, want)
	}
}

func TestObjectPointDist(t *testing.T) {
	a := ObjectPoint{X: 0, Y: 0, Z: 0}
	b := ObjectPoint{X: 3, Y: 4, Z: 0}
	testutil.AssertAlmostEqual(t, a.Dist(b), 5, 1e-12, "3-4-5 triangle distance")
}
