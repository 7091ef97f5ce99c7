package weccapgo

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// BlobExtractorConfig tunes frame preprocessing and thresholding (§4.1).
type BlobExtractorConfig struct {
	// ContourThreshold is the fraction of 255 used as the binary threshold.
	// Default 0.4, configurable.
	ContourThreshold float64
	// SquarePad letterboxes non-square frames before undistortion
	// (supplemented feature 1).
	SquarePad bool
	// Sharpen applies a 5x5 sharpening kernel before thresholding
	// (supplemented feature 2).
	Sharpen bool
}

// DefaultBlobExtractorConfig matches spec.md's documented default threshold.
func DefaultBlobExtractorConfig() *BlobExtractorConfig {
	return &BlobExtractorConfig{ContourThreshold: 0.4}
}

var sharpenKernel = []float32{
	-2, -1, -1, -1, -2,
	-1, 1, 3, 1, -1,
	-1, 3, 4, 3, -1,
	-1, 1, 3, 1, -1,
	-2, -1, -1, -1, -2,
}

// SquareLetterbox centers frame in a square canvas sized to its longer
// side (supplemented feature 1, grounded on the reference's make_square).
// Only the frame's own pixels are copied; the padding is left as
// allocated and the border is not feathered.
func SquareLetterbox(frame gocv.Mat) gocv.Mat {
	rows, cols := frame.Rows(), frame.Cols()
	size := rows
	if cols > size {
		size = cols
	}
	square := gocv.NewMatWithSize(size, size, frame.Type())
	ax := (size - cols) / 2
	ay := (size - rows) / 2

	roi := square.Region(image.Rect(ax, ay, ax+cols, ay+rows))
	frame.CopyTo(&roi)
	roi.Close()
	return square
}

// Sharpen convolves frame with the reference's 5x5 sharpening kernel
// (supplemented feature 2).
func Sharpen(frame gocv.Mat) gocv.Mat {
	kernel, err := gocv.NewMatFromBytes(5, 5, gocv.MatTypeCV32F, float32SliceToBytes(sharpenKernel))
	if err != nil {
		return frame.Clone()
	}
	defer kernel.Close()

	dst := gocv.NewMat()
	gocv.Filter2D(frame, &dst, -1, kernel, image.Pt(-1, -1), 0, gocv.BorderDefault)
	return dst
}

// PreprocessFrame runs the configured chain ahead of undistortion:
// optional square letterboxing, undistortion against the camera's
// intrinsics, and optional sharpening — mirroring the reference's
// _image_processing (§4.1 data flow, supplemented features 1-2).
func PreprocessFrame(cfg *BlobExtractorConfig, frame gocv.Mat, intr *CameraIntrinsics) gocv.Mat {
	if cfg == nil {
		cfg = DefaultBlobExtractorConfig()
	}

	working := frame
	owned := false
	if cfg.SquarePad {
		working = SquareLetterbox(frame)
		owned = true
	}

	K := gocvMatFromDense3x3(intr.K)
	defer K.Close()
	dist, err := gocv.NewMatFromBytes(1, 5, gocv.MatTypeCV64F, float64SliceToBytes(intr.Dist[:]))
	if err != nil {
		dist = gocv.NewMat()
	}
	defer dist.Close()

	undistorted := gocv.NewMat()
	gocv.Undistort(working, &undistorted, K, dist, K)
	if owned {
		working.Close()
	}

	if cfg.Sharpen {
		sharpened := Sharpen(undistorted)
		undistorted.Close()
		return sharpened
	}
	return undistorted
}

// ExtractBlobs finds retroreflective-marker centroids in a preprocessed
// frame (§4.1): grayscale, binary threshold at ContourThreshold*255,
// external contours, image moments. If no contour produces a valid
// centroid, the returned slice contains a single Missing sentinel.
func ExtractBlobs(cfg *BlobExtractorConfig, frame gocv.Mat) []ImagePoint {
	if cfg == nil {
		cfg = DefaultBlobExtractorConfig()
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorRGBToGray)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(gray, &thresh, float32(cfg.ContourThreshold*255), 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var points []ImagePoint
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		m := gocv.Moments(contour, false)
		if m.M00 == 0 {
			continue
		}
		points = append(points, Pt(m.M10/m.M00, m.M01/m.M00))
	}
	if len(points) == 0 {
		return []ImagePoint{MissingPoint()}
	}
	return points
}

func gocvMatFromDense3x3(k interface{ At(i, j int) float64 }) gocv.Mat {
	data := make([]float64, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			data[i*3+j] = k.At(i, j)
		}
	}
	m, err := gocv.NewMatFromBytes(3, 3, gocv.MatTypeCV64F, float64SliceToBytes(data))
	if err != nil {
		return gocv.NewMat()
	}
	return m
}

func float64SliceToBytes(data []float64) []byte {
	out := make([]byte, len(data)*8)
	for i, v := range data {
		bits := math.Float64bits(v)
		for b := 0; b < 8; b++ {
			out[i*8+b] = byte(bits >> (8 * b))
		}
	}
	return out
}
