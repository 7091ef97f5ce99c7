package weccapgo

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// BundleAdjustmentConfig tunes the nonlinear-least-squares refinement (§4.6).
type BundleAdjustmentConfig struct {
	// MaxFuncEvaluations caps the optimizer's function evaluations. Default
	// 1000. The objective evaluations made inside the finite-difference
	// gradient are not counted against it.
	MaxFuncEvaluations int
	// FTol is the function-value convergence tolerance. Default 1e-15.
	FTol float64
	// ShowProgress renders a terminal progress bar across function
	// evaluations, its width set from GetTerminalSize. Off by default; the
	// pipeline's calculate-camera-pose path never sets it.
	ShowProgress bool
}

// DefaultBundleAdjustmentConfig matches the reference's scipy.optimize.least_squares call.
func DefaultBundleAdjustmentConfig() *BundleAdjustmentConfig {
	return &BundleAdjustmentConfig{MaxFuncEvaluations: 1000, FTol: 1e-15}
}

const paramsPerCamera = 6

// BundleAdjustmentResult carries the refined poses and the resulting mean
// reprojection error, matching the diagnostics the original's
// calculate-camera-pose/calculate-bundle-adjustment handlers emit.
type BundleAdjustmentResult struct {
	Poses                  []CameraPose
	MeanReprojectionError  float64
	ReprojectionErrorBefore float64
}

// BundleAdjustment jointly refines every camera's rotation and translation
// by nonlinear least squares over reprojection error (§4.6). Camera
// intrinsics and distortion are held fixed — bundle_adjustment2's joint
// intrinsics refinement is out of scope (§9).
//
// The parameter vector is, per camera, 3 Rodrigues components followed by 3
// translation components. The residual is, per sample, the mean squared
// reprojection error of the point triangulated from the current parameters
// — a nested triangulation recomputed at every evaluation (§9's documented
// inefficiency, carried over unchanged since the external contract doesn't
// depend on it).
//
// gonum/optimize minimizes a scalar, not scipy's residual vector, so the
// objective here is the sum of per-sample squared errors; CG with a
// finite-difference gradient (gonum/diff/fd) stands in for scipy's dogbox
// trust-region solver, since no pack dependency exposes one by name.
func BundleAdjustment(cfg *BundleAdjustmentConfig, intrinsics []*CameraIntrinsics, initialPoses []CameraPose, samples [][]ImagePoint) (*BundleAdjustmentResult, error) {
	if cfg == nil {
		cfg = DefaultBundleAdjustmentConfig()
	}
	numCams := len(intrinsics)
	if numCams != len(initialPoses) {
		return nil, fmt.Errorf("%w: %d intrinsics but %d initial poses", ErrInputShape, numCams, len(initialPoses))
	}

	x0, err := posesToParams(initialPoses)
	if err != nil {
		return nil, err
	}

	objective := func(params []float64) float64 {
		poses := paramsToPoses(params, numCams)
		Ps := make([]*mat.Dense, numCams)
		for i := range poses {
			Ps[i] = ProjectionMatrix(intrinsics[i], poses[i])
		}
		var sum float64
		for _, sample := range samples {
			point, err := TriangulatePoint(Ps, sample)
			if err != nil {
				continue
			}
			e, ok := ReprojectionError(intrinsics, poses, sample, point)
			if !ok {
				continue
			}
			sum += e
		}
		return sum
	}

	before := objective(x0) / float64(max1(len(samples)))

	problem := optimize.Problem{
		Func: objective,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, objective, x, &fd.Settings{Formula: fd.Central})
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: cfg.MaxFuncEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   cfg.FTol,
			Iterations: 50,
		},
	}
	var bar *progressbar.ProgressBar
	if cfg.ShowProgress {
		cols, _ := GetTerminalSize(80, 24)
		bar = progressbar.NewOptions(cfg.MaxFuncEvaluations,
			progressbar.OptionSetDescription("bundle adjustment"),
			progressbar.OptionSetWidth(cols),
		)
		settings.Recorder = &progressRecorder{bar: bar}
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.CG{})
	if bar != nil {
		bar.Finish()
	}
	if err != nil && result == nil {
		return nil, fmt.Errorf("%w: bundle adjustment optimizer failed: %v", ErrNumericFailure, err)
	}

	finalPoses := paramsToPoses(result.X, numCams)
	after := objective(result.X) / float64(max1(len(samples)))

	return &BundleAdjustmentResult{
		Poses:                   finalPoses,
		MeanReprojectionError:   after,
		ReprojectionErrorBefore: before,
	}, nil
}

// progressRecorder advances a terminal progress bar on every function
// evaluation the optimizer performs.
type progressRecorder struct {
	bar *progressbar.ProgressBar
}

func (r *progressRecorder) Init() error { return nil }

func (r *progressRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if op&optimize.FuncEvaluation != 0 {
		r.bar.Add(1)
	}
	return nil
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func posesToParams(poses []CameraPose) ([]float64, error) {
	params := make([]float64, 0, len(poses)*paramsPerCamera)
	for _, p := range poses {
		rv, err := RotationToRodrigues(p.R)
		if err != nil {
			return nil, err
		}
		params = append(params, rv[0], rv[1], rv[2], p.T.At(0, 0), p.T.At(1, 0), p.T.At(2, 0))
	}
	return params, nil
}

func paramsToPoses(params []float64, numCams int) []CameraPose {
	poses := make([]CameraPose, numCams)
	for i := 0; i < numCams; i++ {
		base := i * paramsPerCamera
		rv := [3]float64{params[base], params[base+1], params[base+2]}
		t := mat.NewDense(3, 1, []float64{params[base+3], params[base+4], params[base+5]})
		poses[i] = CameraPose{R: RodriguesToRotation(rv), T: t}
	}
	return poses
}
