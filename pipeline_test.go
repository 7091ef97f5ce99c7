package weccapgo

import (
	"testing"
)

func testCameras() []CameraSetup {
	intr := NewCameraIntrinsics(1000, 1000, 500, 500, [5]float64{})
	return []CameraSetup{
		{Intrinsics: intr, Pose: IdentityPose()},
		{Intrinsics: intr, Pose: IdentityPose()},
	}
}

func TestNewPipelineRejectsFewerThanTwoCameras(t *testing.T) {
	_, err := NewPipeline(&PipelineConfig{Cameras: testCameras()[:1]})
	if err == nil {
		t.Fatal("expected error for fewer than 2 cameras")
	}
}

func TestNewPipelineStartsInCamerasFound(t *testing.T) {
	p, err := NewPipeline(&PipelineConfig{Cameras: testCameras()})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if p.mode != ModeCamerasFound {
		t.Errorf("expected initial mode CamerasFound, got %s", p.mode)
	}
}

func TestChangeModeAllowedTransitionAdvancesMode(t *testing.T) {
	p, _ := NewPipeline(&PipelineConfig{Cameras: testCameras()})
	p.ChangeMode(ModeImageProcessing)
	if p.mode != ModeImageProcessing {
		t.Fatalf("expected mode ImageProcessing, got %s", p.mode)
	}

	select {
	case e := <-p.Outbound:
		if _, ok := e.(ModeChangeEvent); !ok {
			t.Errorf("expected ModeChangeEvent, got %T", e)
		}
	default:
		t.Fatal("expected a ModeChangeEvent to be emitted")
	}
}

// TestChangeModeForbiddenTransitionLeavesStateUnchanged covers §8 invariant 5:
// a transition the table forbids must not mutate the pipeline's mode.
func TestChangeModeForbiddenTransitionLeavesStateUnchanged(t *testing.T) {
	p, _ := NewPipeline(&PipelineConfig{Cameras: testCameras()})
	// CamerasFound -> ObjectDetection skips every intermediate stage and is
	// not in Transitions[ObjectDetection]'s allow-list.
	p.ChangeMode(ModeObjectDetection)

	if p.mode != ModeCamerasFound {
		t.Fatalf("forbidden transition mutated mode to %s", p.mode)
	}

	select {
	case e := <-p.Outbound:
		if _, ok := e.(ModeChangeFailureEvent); !ok {
			t.Errorf("expected ModeChangeFailureEvent, got %T", e)
		}
	default:
		t.Fatal("expected a ModeChangeFailureEvent to be emitted")
	}
}

func TestTransitionAllowedMatchesTable(t *testing.T) {
	cases := []struct {
		from, to Mode
		want     bool
	}{
		{ModeCamerasFound, ModeImageProcessing, true},
		{ModeCamerasFound, ModeSaveImage, true},
		{ModeImageProcessing, ModeCamerasFound, true},
		{ModeImageProcessing, ModePointCapture, true},
		{ModePointCapture, ModeTriangulation, true},
		{ModeTriangulation, ModeObjectDetection, true},
		{ModeObjectDetection, ModeTriangulation, true},
		{ModeCamerasFound, ModeObjectDetection, false},
		{ModeCamerasFound, ModeTriangulation, false},
		{ModeSaveImage, ModeImageProcessing, false},
	}
	for _, c := range cases {
		if got := transitionAllowed(c.from, c.to); got != c.want {
			t.Errorf("transitionAllowed(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestHandleControlSetCameraPosesRequiresMatchingCount(t *testing.T) {
	p, _ := NewPipeline(&PipelineConfig{Cameras: testCameras()})
	original := p.poses

	// Wrong count: must be ignored rather than applied partially.
	p.handleControl(ControlMessage{
		Type:          ControlSetCameraPoses,
		SetCameraPoses: &SetCameraPoses{Poses: []CameraPose{IdentityPose()}},
	})

	if len(p.poses) != len(original) {
		t.Fatalf("expected poses unchanged on count mismatch, got %d poses", len(p.poses))
	}
}

func TestHandleControlSetCameraPosesApplies(t *testing.T) {
	p, _ := NewPipeline(&PipelineConfig{Cameras: testCameras()})
	newPose := CameraPose{R: RodriguesToRotation([3]float64{0, 0.1, 0}), T: p.poses[0].T}

	p.handleControl(ControlMessage{
		Type:           ControlSetCameraPoses,
		SetCameraPoses: &SetCameraPoses{Poses: []CameraPose{newPose, newPose}},
	})

	if p.poses[0].R.At(0, 0) != newPose.R.At(0, 0) {
		t.Error("expected camera poses to be replaced")
	}
}
