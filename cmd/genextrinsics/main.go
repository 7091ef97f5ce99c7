// Command genextrinsics synthesizes a starting camera-pose set for a
// canonical 4-camera square rig and prints it as the JSON shape consumed by
// the core's set-camera-poses control message (§6).
//
// It does not calibrate anything: it assumes four cameras mounted at the
// corners of a square looking inward and downward at a shared capture
// volume, and computes each one's pose from the rig geometry alone. Treat
// the output as a bootstrap starting point for calculate-camera-pose, not a
// calibrated result.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/ini.v1"
)

// poseJSON matches the {R: 3x3, t: 3} wire shape spec.md §6 documents for
// camera extrinsics supplied by the supervisor.
type poseJSON struct {
	R [][]float64 `json:"R"`
	T []float64   `json:"t"`
}

func eulerXYZ(xDeg, yDeg, zDeg float64) *mat.Dense {
	x, y, z := radians(xDeg), radians(yDeg), radians(zDeg)

	rx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, math.Cos(x), -math.Sin(x),
		0, math.Sin(x), math.Cos(x),
	})
	ry := mat.NewDense(3, 3, []float64{
		math.Cos(y), 0, math.Sin(y),
		0, 1, 0,
		-math.Sin(y), 0, math.Cos(y),
	})
	rz := mat.NewDense(3, 3, []float64{
		math.Cos(z), -math.Sin(z), 0,
		math.Sin(z), math.Cos(z), 0,
		0, 0, 1,
	})

	var xy mat.Dense
	xy.Mul(rx, ry)
	var xyz mat.Dense
	xyz.Mul(&xy, rz)
	return &xyz
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func denseToRows(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

// squareRigPoses builds the four corner-camera poses for a square rig of
// the given side length and camera depth below the capture plane, matching
// the original calibration script's geometry.
func squareRigPoses(side, depth float64) []poseJSON {
	half := side / 2
	yAngle := 45.0
	xAngle := math.Atan(depth/half) * 180 / math.Pi * -1

	specs := []struct {
		x, y float64
		t    []float64
	}{
		{xAngle, yAngle, []float64{-half, -side, -half}},
		{xAngle, -yAngle, []float64{half, -side, -half}},
		{xAngle, yAngle - 180, []float64{half, -side, half}},
		{xAngle, -yAngle - 180, []float64{-half, -side, half}},
	}

	poses := make([]poseJSON, len(specs))
	for i, s := range specs {
		poses[i] = poseJSON{R: denseToRows(eulerXYZ(s.x, s.y, 0)), T: s.t}
	}
	return poses
}

// loadRigConfig reads [rig] side/depth overrides from an ini file, leaving
// the flag defaults untouched for any key the file omits.
func loadRigConfig(path string, side, depth *float64) error {
	cfg, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("loading rig config: %w", err)
	}
	section := cfg.Section("rig")
	if key, err := section.GetKey("side"); err == nil {
		if v, err := key.Float64(); err == nil {
			*side = v
		}
	}
	if key, err := section.GetKey("depth"); err == nil {
		if v, err := key.Float64(); err == nil {
			*depth = v
		}
	}
	return nil
}

func main() {
	side := flag.Float64("side", 0.31, "square rig side length, meters")
	depth := flag.Float64("depth", 0.27, "camera depth below the capture plane, meters")
	configPath := flag.String("config", "", "optional ini file with a [rig] section overriding -side/-depth")
	flag.Parse()

	if *configPath != "" {
		if err := loadRigConfig(*configPath, side, depth); err != nil {
			log.Fatalf("genextrinsics: %v", err)
		}
	}

	poses := squareRigPoses(*side, *depth)
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(poses); err != nil {
		log.Fatalf("genextrinsics: encoding poses: %v", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %d camera poses (side=%.3f depth=%.3f)\n", len(poses), *side, *depth)
}
