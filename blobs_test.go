package weccapgo

import (
	"image"
	"image/color"
	"testing"

	"github.com/paddyobrien/weccap-go/internal/testutil"
	"gocv.io/x/gocv"
)

func TestExtractBlobsFindsCentroid(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	gocv.Circle(&frame, image.Pt(320, 240), 10, color.RGBA{R: 255, G: 255, B: 255}, -1)

	points := ExtractBlobs(nil, frame)
	if len(points) != 1 {
		t.Fatalf("expected exactly 1 blob, got %d: %+v", len(points), points)
	}
	if points[0].Missing {
		t.Fatal("expected a real centroid, got the missing sentinel")
	}
	testutil.AssertAlmostEqual(t, points[0].X, 320, 2, "blob centroid X")
	testutil.AssertAlmostEqual(t, points[0].Y, 240, 2, "blob centroid Y")
}

func TestExtractBlobsReturnsMissingSentinelWhenEmpty(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	points := ExtractBlobs(nil, frame)
	if len(points) != 1 || !points[0].Missing {
		t.Fatalf("expected a single missing sentinel for a blank frame, got %+v", points)
	}
}

func TestSquareLetterboxPadsToSquare(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	square := SquareLetterbox(frame)
	defer square.Close()

	if square.Rows() != 640 || square.Cols() != 640 {
		t.Errorf("expected a 640x640 canvas, got %dx%d", square.Rows(), square.Cols())
	}
}
