package weccapgo

// ControlMessage is a command sent from the supervisor into the pipeline's
// single inbound queue (§5, §6). Exactly one of the typed payload fields is
// populated, selected by Type.
type ControlMessage struct {
	Type ControlType

	UpdateCameraSettings      *UpdateCameraSettings
	UpdatePointCaptureSettings *UpdatePointCaptureSettings
	CalculateCameraPose       *CalculateCameraPose
	CalculateBundleAdjustment *CalculateBundleAdjustment
	SetCameraPoses            *SetCameraPoses
	SetIntrinsicMatrices      *SetIntrinsicMatrices
	SetDistortionCoefs        *SetDistortionCoefs
	SetToWorldMatrix          *SetToWorldMatrix
	AcquireFloor              *AcquireFloor
	SetOrigin                 *SetOriginMsg
	DetermineScale            *DetermineScaleMsg
	ChangeMocapMode           *ChangeMocapMode
	StartRecording            *StartRecording
	StopRecording             *StopRecording
}

// ControlType names the control messages listed in §6.
type ControlType int

const (
	ControlUpdateCameraSettings ControlType = iota
	ControlUpdatePointCaptureSettings
	ControlCalculateCameraPose
	ControlCalculateBundleAdjustment
	ControlSetCameraPoses
	ControlSetIntrinsicMatrices
	ControlSetDistortionCoefs
	ControlSetToWorldMatrix
	ControlAcquireFloor
	ControlSetOrigin
	ControlDetermineScale
	ControlChangeMocapMode
	ControlStartRecording
	ControlStopRecording
)

// UpdateCameraSettings carries device exposure/gain/sharpness/contrast
// settings for the (external) camera-device collaborator. Pipeline's
// control handler does not act on it.
type UpdateCameraSettings struct {
	Exposure, Gain, Sharpness, Contrast float64
}

// UpdatePointCaptureSettings adjusts the blob extractor's threshold (§4.1).
type UpdatePointCaptureSettings struct {
	ContourThreshold float64
}

// CalculateCameraPose carries a buffer of corresponded calibration samples
// through pose bootstrap (§4.5) followed by bundle adjustment (§4.6).
type CalculateCameraPose struct {
	CameraPoints [][]ImagePoint // [sample][camera]
}

// CalculateBundleAdjustment runs bundle adjustment only (§4.6), starting
// from the pipeline's current poses.
type CalculateBundleAdjustment struct {
	CameraPoints [][]ImagePoint
}

// SetCameraPoses, SetIntrinsicMatrices, SetDistortionCoefs, and
// SetToWorldMatrix replace stored pipeline parameters wholesale.
type SetCameraPoses struct{ Poses []CameraPose }
type SetIntrinsicMatrices struct{ Intrinsics []*CameraIntrinsics }
type SetDistortionCoefs struct{ Distortion [][5]float64 }
type SetToWorldMatrix struct{ Matrix ToWorldMatrix }

// AcquireFloor fits the floor plane from observed world points (§4.7).
type AcquireFloor struct{ WorldPoints []ObjectPoint }

// SetOriginMsg translates the world origin to the given point (§4.7).
type SetOriginMsg struct{ Point ObjectPoint }

// DetermineScaleMsg recovers metric scale from marker-pair observations (§4.7).
type DetermineScaleMsg struct {
	Pairs         []MarkerPair
	RealDistance  float64
}

// ChangeMocapMode requests a mode transition (§4.11).
type ChangeMocapMode struct{ Target Mode }

// StartRecording/StopRecording open and close the CSV recorder (§6,
// supplemented feature 7). Pipeline does not act on RecordVideo; no video
// is recorded.
type StartRecording struct {
	Name        string
	RecordVideo bool
}
type StopRecording struct{}

// Event is emitted from the pipeline's single outbound channel (§6).
type Event interface{ eventMarker() }

type baseEvent struct{}

func (baseEvent) eventMarker() {}

// ImagePointsEvent mirrors the "image-points" event, emitted in PointCapture mode.
type ImagePointsEvent struct {
	baseEvent
	ImagePoints [][]ImagePoint
}

// ObjectPointsEvent mirrors the "object-points" event payload (§6).
type ObjectPointsEvent struct {
	baseEvent
	ObjectPoints    []ObjectPoint
	TimeMs          float64
	ImagePoints     [][]ImagePoint
	Errors          []float64
	Objects         []DetectedObject
	FilteredObjects []TrackedObject
}

// CameraPoseEvent mirrors the "camera-pose" event, emitted after pose
// bootstrap/bundle adjustment (§6, supplemented feature 5). Pipeline fills
// CameraPoses, Intrinsics and Error; it leaves Reprojected empty.
type CameraPoseEvent struct {
	baseEvent
	CameraPoses    []CameraPose
	Intrinsics     []*CameraIntrinsics
	Error          float64
	Reprojected    [][]ImagePoint // [objectPoint][camera]
}

// ToWorldCoordsMatrixEvent mirrors "to-world-coords-matrix".
type ToWorldCoordsMatrixEvent struct {
	baseEvent
	Matrix     ToWorldMatrix
	NewPoints  []ObjectPoint
}

// ModeChangeEvent mirrors "mode-change".
type ModeChangeEvent struct {
	baseEvent
	Mode Mode
}

// ModeChangeFailureEvent mirrors "mode-change-failure".
type ModeChangeFailureEvent struct {
	baseEvent
	Reason string
}

// FPSEvent mirrors "fps", emitted every PipelineConfig.FPSInterval frames.
type FPSEvent struct {
	baseEvent
	FPS float64
}

// ScaledEvent mirrors "scaled".
type ScaledEvent struct {
	baseEvent
	ScaleFactor float64
	CameraPoses []CameraPose
}

// ErrorEvent mirrors "error": a control-message or per-frame failure that
// does not interrupt the frame loop (§7).
type ErrorEvent struct {
	baseEvent
	Err error
}
