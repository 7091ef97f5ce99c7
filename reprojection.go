package weccapgo

import "gonum.org/v1/gonum/mat"

// ProjectPoint projects a 3D point through a camera's (K, R, t) via the
// pinhole model with no distortion applied (§4.10 — inputs are assumed
// pre-undistorted).
func ProjectPoint(intr *CameraIntrinsics, pose CameraPose, p ObjectPoint) ImagePoint {
	world := mat.NewVecDense(3, []float64{p.X, p.Y, p.Z})

	var cam mat.VecDense
	cam.MulVec(pose.R, world)
	cam.AddVec(&cam, pose.T.ColView(0))

	var pixel mat.VecDense
	pixel.MulVec(intr.K, &cam)

	w := pixel.AtVec(2)
	if w == 0 {
		return MissingPoint()
	}
	return Pt(pixel.AtVec(0)/w, pixel.AtVec(1)/w)
}

// ReprojectionError projects an object point through every camera that
// observed it (views flagged "missing" are skipped) and returns the mean
// squared pixel residual, flattened across the dx/dy components of every
// valid view (matching calculate_reprojection_error's flatten-then-mean over
// [dx, dy] pairs, i.e. dividing by 2*n rather than n). A sample with ≤1 valid
// view contributes no error (§4.10).
func ReprojectionError(intrinsics []*CameraIntrinsics, poses []CameraPose, observations []ImagePoint, point ObjectPoint) (float64, bool) {
	var sumSq float64
	var n int
	for i, obs := range observations {
		if obs.Missing {
			continue
		}
		projected := ProjectPoint(intrinsics[i], poses[i], point)
		dx := obs.X - projected.X
		dy := obs.Y - projected.Y
		sumSq += dx*dx + dy*dy
		n++
	}
	if n <= 1 {
		return 0, false
	}
	return sumSq / float64(2*n), true
}

// ReprojectionErrors runs ReprojectionError across a batch of samples,
// returning one error per sample (samples that contribute no error are
// omitted, matching the reference's behavior of dropping them from the
// mean rather than counting them as zero).
func ReprojectionErrors(intrinsics []*CameraIntrinsics, poses []CameraPose, observations [][]ImagePoint, points []ObjectPoint) []float64 {
	n := len(observations)
	if len(points) < n {
		n = len(points)
	}
	errs := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		e, ok := ReprojectionError(intrinsics, poses, observations[i], points[i])
		if !ok {
			continue
		}
		errs = append(errs, e)
	}
	return errs
}

// ReprojectAll projects a single object point through every camera. Pipeline
// does not call it, so camera-pose events carry no reprojected points.
func ReprojectAll(intrinsics []*CameraIntrinsics, poses []CameraPose, point ObjectPoint) []ImagePoint {
	out := make([]ImagePoint, len(intrinsics))
	for i := range intrinsics {
		out[i] = ProjectPoint(intrinsics[i], poses[i], point)
	}
	return out
}

func meanFloat(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
