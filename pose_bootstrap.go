package weccapgo

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// PoseBootstrapConfig tunes the incremental pairwise pose recovery (§4.5).
type PoseBootstrapConfig struct {
	// RansacThreshold is the inlier distance threshold (pixels) passed to
	// the RANSAC fundamental-matrix estimator. Default 3.0.
	RansacThreshold float64
	// RansacConfidence is the RANSAC confidence level. Default 0.99999.
	RansacConfidence float64
}

// DefaultPoseBootstrapConfig matches the reference implementation's constants.
func DefaultPoseBootstrapConfig() *PoseBootstrapConfig {
	return &PoseBootstrapConfig{RansacThreshold: 3.0, RansacConfidence: 0.99999}
}

// BootstrapPoses recovers an initial pose for every camera from a buffer of
// corresponded calibration samples (§4.5). samples[s][c] is the observation
// of calibration sample s in camera c (possibly Missing). Camera 0 is fixed
// at identity; every other camera's pose is chained from its predecessor.
// The returned poses carry an arbitrary global scale — §4.7's
// DetermineScale resolves it.
func BootstrapPoses(cfg *PoseBootstrapConfig, intrinsics []*CameraIntrinsics, samples [][]ImagePoint) ([]CameraPose, error) {
	if cfg == nil {
		cfg = DefaultPoseBootstrapConfig()
	}
	numCams := len(intrinsics)
	if numCams < 2 {
		return nil, fmt.Errorf("%w: need at least 2 cameras, got %d", ErrInputShape, numCams)
	}

	poses := make([]CameraPose, numCams)
	poses[0] = IdentityPose()

	for i := 0; i < numCams-1; i++ {
		var pts1, pts2 []ImagePoint
		for _, sample := range samples {
			if i >= len(sample) || i+1 >= len(sample) {
				continue
			}
			if sample[i].Missing || sample[i+1].Missing {
				continue
			}
			pts1 = append(pts1, sample[i])
			pts2 = append(pts2, sample[i+1])
		}
		if len(pts1) < 8 {
			return nil, fmt.Errorf("%w: only %d joint observations between cameras %d and %d", ErrDegenerateGeometry, len(pts1), i, i+1)
		}

		F, err := findFundamentalMatRANSAC(pts1, pts2, cfg.RansacThreshold, cfg.RansacConfidence)
		if err != nil {
			return nil, err
		}

		E, err := EssentialFromFundamental(F, intrinsics[i].K, intrinsics[i+1].K)
		if err != nil {
			return nil, err
		}
		rotations, translations, err := MotionFromEssential(E)
		if err != nil {
			return nil, err
		}

		relR, relT, err := selectChirality(intrinsics[i], intrinsics[i+1], poses[i], rotations, translations, pts1, pts2)
		if err != nil {
			return nil, err
		}

		var composedR mat.Dense
		composedR.Mul(relR, poses[i].R)

		var rt mat.Dense
		rt.Mul(poses[i].R, relT)
		composedT := mat.NewDense(3, 1, nil)
		composedT.Add(poses[i].T, &rt)

		poses[i+1] = CameraPose{R: mat.DenseCopyOf(&composedR), T: composedT}
	}

	return poses, nil
}

// selectChirality picks the (R,t) candidate maximizing the count of
// triangulated points lying in front of both cameras (§4.5 step 4).
func selectChirality(intr1, intr2 *CameraIntrinsics, basePose CameraPose, rotations, translations []*mat.Dense, pts1, pts2 []ImagePoint) (*mat.Dense, *mat.Dense, error) {
	var bestR, bestT *mat.Dense
	bestCount := -1

	for k := 0; k < len(rotations); k++ {
		candidatePose := CameraPose{R: rotations[k], T: translations[k]}
		Ps := []*mat.Dense{
			ProjectionMatrix(intr1, basePose),
			ProjectionMatrix(intr2, candidatePose),
		}

		count := 0
		for s := range pts1 {
			point, err := DLT(Ps, []ImagePoint{pts1[s], pts2[s]})
			if err != nil {
				continue
			}
			if cameraFrameCoordinate(basePose, point)[2] > 0 && cameraFrameCoordinate(candidatePose, point)[2] > 0 {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestR, bestT = rotations[k], translations[k]
		}
	}
	if bestR == nil {
		return nil, nil, fmt.Errorf("%w: no chirality-consistent pose found", ErrDegenerateGeometry)
	}
	return bestR, bestT, nil
}

func cameraFrameCoordinate(pose CameraPose, p ObjectPoint) [3]float64 {
	var out mat.VecDense
	out.MulVec(pose.R, p.Vec3())
	out.AddVec(&out, pose.T.ColView(0))
	return [3]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}

// findFundamentalMatRANSAC estimates F between two point sets via OpenCV's
// RANSAC fundamental-matrix estimator.
func findFundamentalMatRANSAC(pts1, pts2 []ImagePoint, threshold, confidence float64) (*mat.Dense, error) {
	m1 := imagePointsToGocvMat(pts1)
	m2 := imagePointsToGocvMat(pts2)
	defer m1.Close()
	defer m2.Close()

	fMat := gocv.FindFundamentalMat(m1, m2, gocv.FmRansac, threshold, confidence)
	defer fMat.Close()

	if fMat.Empty() || fMat.Rows() < 3 || fMat.Cols() < 3 {
		return nil, fmt.Errorf("%w: RANSAC fundamental matrix estimation failed", ErrDegenerateGeometry)
	}

	// A degenerate point configuration can make OpenCV stack several 3x3
	// candidates; only the first is used, matching the single-F contract of
	// the reference implementation.
	data := make([]float64, 9)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			data[r*3+c] = fMat.GetDoubleAt(r, c)
		}
	}
	return mat.NewDense(3, 3, data), nil
}

func imagePointsToGocvMat(points []ImagePoint) gocv.Mat {
	data := make([]float32, len(points)*2)
	for i, p := range points {
		data[i*2] = float32(p.X)
		data[i*2+1] = float32(p.Y)
	}
	m, err := gocv.NewMatFromBytes(len(points), 1, gocv.MatTypeCV32FC2, float32SliceToBytes(data))
	if err != nil {
		return gocv.NewMat()
	}
	return m
}

func float32SliceToBytes(data []float32) []byte {
	out := make([]byte, len(data)*4)
	for i, v := range data {
		bits := math.Float32bits(v)
		out[i*4] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}
