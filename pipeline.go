package weccapgo

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// Mode is a pipeline stage in the §4.11 state machine. Values increase with
// stage depth: a frame processed in mode M also runs every stage belonging
// to a mode below it (ImageProcessing implies blob extraction;
// ObjectDetection implies blob extraction through Kalman tracking).
type Mode int

const (
	ModeInitializing Mode = iota - 1
	ModeCamerasNotFound
	ModeCamerasFound
	ModeSaveImage
	ModeImageProcessing
	ModePointCapture
	ModeTriangulation
	ModeObjectDetection
)

func (m Mode) String() string {
	switch m {
	case ModeInitializing:
		return "Initializing"
	case ModeCamerasNotFound:
		return "CamerasNotFound"
	case ModeCamerasFound:
		return "CamerasFound"
	case ModeSaveImage:
		return "SaveImage"
	case ModeImageProcessing:
		return "ImageProcessing"
	case ModePointCapture:
		return "PointCapture"
	case ModeTriangulation:
		return "Triangulation"
	case ModeObjectDetection:
		return "ObjectDetection"
	default:
		return "Unknown"
	}
}

// Transitions lists, for each target mode, the modes a transition into it is
// allowed from (§4.11). A target absent from this table (Initializing,
// CamerasNotFound) is always permitted.
var Transitions = map[Mode][]Mode{
	ModeSaveImage:       {ModeCamerasFound},
	ModeCamerasFound:    {ModeImageProcessing, ModeSaveImage},
	ModeImageProcessing: {ModeCamerasFound, ModePointCapture},
	ModePointCapture:    {ModeImageProcessing, ModeTriangulation},
	ModeTriangulation:   {ModePointCapture, ModeObjectDetection},
	ModeObjectDetection: {ModeTriangulation},
}

func transitionAllowed(from, to Mode) bool {
	allowed, gated := Transitions[to]
	if !gated {
		return true
	}
	for _, f := range allowed {
		if f == from {
			return true
		}
	}
	return false
}

// CameraSetup is one camera's calibration as supplied to NewPipeline.
type CameraSetup struct {
	Intrinsics *CameraIntrinsics
	Pose       CameraPose
}

// PipelineConfig collects every stage's tuning knobs plus the camera rig.
// A nil sub-config falls back to that stage's documented default.
type PipelineConfig struct {
	Cameras []CameraSetup

	BlobConfig             *BlobExtractorConfig
	CorrespondenceConfig   *CorrespondenceConfig
	PoseBootstrapConfig    *PoseBootstrapConfig
	BundleAdjustmentConfig *BundleAdjustmentConfig
	LocatorConfig          *ObjectLocatorConfig
	TrackerConfig          *ObjectTrackerConfig

	// SetOriginSwapYZ reproduces the reference's undocumented y/z swap on
	// set-origin (§9 open question). Off by default.
	SetOriginSwapYZ bool
	// WorldAxisConvention selects the mirror-and-swap applied to triangulated
	// points on their way into world coordinates (supplemented feature 3).
	// Defaults to WorldAxisMirrorSwap.
	WorldAxisConvention WorldAxisConvention
	// FloorAxis is the target axis for acquire-floor (§4.7). Default AxisZ.
	FloorAxis string
	// FPSInterval is how many processed frames elapse between "fps" events.
	// Default 20 (supplemented feature 4).
	FPSInterval int
	// OutboundBuffer sizes the pipeline's event channel. Default 256.
	OutboundBuffer int
}

// Pipeline is the single-threaded orchestrator described in §5: one frame
// driver loop owns all mutable state (mode, poses, intrinsics, to-world
// matrix) and processes control messages only between frames, so no
// internal locking is needed. Construct with NewPipeline, then run Drive in
// whatever goroutine owns the camera acquisition loop.
type Pipeline struct {
	blobCfg          *BlobExtractorConfig
	correspondenceCfg *CorrespondenceConfig
	poseCfg          *PoseBootstrapConfig
	baCfg            *BundleAdjustmentConfig
	locatorCfg       *ObjectLocatorConfig
	setOriginSwapYZ  bool
	floorAxis        string
	worldAxisConvention WorldAxisConvention

	intrinsics []*CameraIntrinsics
	poses      []CameraPose
	toWorld    ToWorldMatrix
	mode       Mode

	tracker  *ObjectTracker
	fps      *fpsMeter
	recorder *Recorder

	Inbound  chan ControlMessage
	Outbound chan Event
}

// NewPipeline builds a pipeline over the given camera rig, starting in
// CamerasFound mode (the rig is assumed already enumerated by the
// supervisor's device layer; DeviceFailure transitions to CamerasNotFound
// from there).
func NewPipeline(cfg *PipelineConfig) (*Pipeline, error) {
	if cfg == nil || len(cfg.Cameras) < 2 {
		return nil, fmt.Errorf("%w: pipeline needs at least 2 cameras", ErrInputShape)
	}

	intrinsics := make([]*CameraIntrinsics, len(cfg.Cameras))
	poses := make([]CameraPose, len(cfg.Cameras))
	for i, c := range cfg.Cameras {
		intrinsics[i] = c.Intrinsics
		poses[i] = c.Pose
	}

	floorAxis := cfg.FloorAxis
	if floorAxis == "" {
		floorAxis = AxisZ
	}
	fpsInterval := cfg.FPSInterval
	if fpsInterval <= 0 {
		fpsInterval = 20
	}
	outboundBuffer := cfg.OutboundBuffer
	if outboundBuffer <= 0 {
		outboundBuffer = 256
	}

	return &Pipeline{
		blobCfg:           cfg.BlobConfig,
		correspondenceCfg: cfg.CorrespondenceConfig,
		poseCfg:           cfg.PoseBootstrapConfig,
		baCfg:             cfg.BundleAdjustmentConfig,
		locatorCfg:        cfg.LocatorConfig,
		setOriginSwapYZ:   cfg.SetOriginSwapYZ,
		floorAxis:         floorAxis,
		// WorldAxisConvention's zero value is WorldAxisMirrorSwap, the
		// documented default, so no fallback is needed here.
		worldAxisConvention: cfg.WorldAxisConvention,

		intrinsics: intrinsics,
		poses:      poses,
		toWorld:    IdentityToWorld(),
		mode:       ModeCamerasFound,

		tracker: NewObjectTracker(cfg.TrackerConfig),
		fps:     newFPSMeter(fpsInterval),

		Inbound:  make(chan ControlMessage, 16),
		Outbound: make(chan Event, outboundBuffer),
	}, nil
}

func (p *Pipeline) emit(e Event) {
	select {
	case p.Outbound <- e:
	default:
		WarnOnce("pipeline: outbound event dropped, consumer not keeping up")
	}
}

// FrameSet is one synchronized capture from every camera, as delivered by
// the acquisition device collaborator (§5).
type FrameSet struct {
	Images    []gocv.Mat
	Timestamp float64
}

// Drive runs the frame loop until ctx is cancelled or frames closes,
// processing queued control messages between frame reads (§5's single
// inbound queue discipline).
func (p *Pipeline) Drive(ctx context.Context, frames <-chan FrameSet) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-p.Inbound:
			p.handleControl(msg)
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			p.processFrame(frame)
		}
	}
}

// ChangeMode attempts a §4.11 transition, emitting ModeChangeEvent on
// success or ModeChangeFailureEvent (without mutating state) otherwise.
func (p *Pipeline) ChangeMode(target Mode) {
	if !transitionAllowed(p.mode, target) {
		err := fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, p.mode, target)
		p.emit(ModeChangeFailureEvent{Reason: err.Error()})
		return
	}
	p.mode = target
	p.emit(ModeChangeEvent{Mode: p.mode})
}

// processFrame runs the stage chain gated by the current mode (§4.11): each
// mode enables every earlier-numbered stage. The FPS meter ticks regardless
// of mode, matching the reference's unconditional frame counter.
func (p *Pipeline) processFrame(frame FrameSet) {
	if fps, ready := p.fps.tick(); ready {
		p.emit(FPSEvent{FPS: fps})
	}

	if p.mode < ModeImageProcessing {
		return
	}

	numCams := len(p.intrinsics)
	blobs := make([][]ImagePoint, numCams)
	for i := 0; i < numCams && i < len(frame.Images); i++ {
		pre := PreprocessFrame(p.blobCfg, frame.Images[i], p.intrinsics[i])
		blobs[i] = ExtractBlobs(p.blobCfg, pre)
		pre.Close()
	}

	if p.mode < ModePointCapture {
		return
	}
	p.emit(ImagePointsEvent{ImagePoints: blobs})

	if p.mode < ModeTriangulation {
		return
	}

	Ps := make([]*mat.Dense, numCams)
	for i := range p.intrinsics {
		Ps[i] = ProjectionMatrix(p.intrinsics[i], p.poses[i])
	}
	objectPoints, errs := ResolveCorrespondence(p.correspondenceCfg, blobs, Ps, p.intrinsics, p.poses)

	worldPoints := make([]ObjectPoint, len(objectPoints))
	for i, op := range objectPoints {
		wp := p.toWorld.ApplyWorldAxisConvention(op, p.worldAxisConvention)
		wp.Error = op.Error
		worldPoints[i] = wp
	}

	var objects []DetectedObject
	var filtered []TrackedObject
	if p.mode >= ModeObjectDetection {
		if p.locatorCfg != nil && p.locatorCfg.ThreeMarkerMode {
			objects = LocateObjectsThreeMarker(p.locatorCfg, worldPoints, errs)
		} else {
			objects = LocateObjects(p.locatorCfg, worldPoints, errs)
		}
		filtered = p.tracker.Update(objects)
		if p.recorder != nil {
			if err := p.recorder.WriteRow(frame.Timestamp, filtered); err != nil {
				p.emit(ErrorEvent{Err: err})
			}
		}
	}

	p.emit(ObjectPointsEvent{
		ObjectPoints:    worldPoints,
		TimeMs:          frame.Timestamp,
		ImagePoints:     blobs,
		Errors:          errs,
		Objects:         objects,
		FilteredObjects: filtered,
	})
}

func (p *Pipeline) handleControl(msg ControlMessage) {
	switch msg.Type {
	case ControlUpdatePointCaptureSettings:
		if s := msg.UpdatePointCaptureSettings; s != nil {
			if p.blobCfg == nil {
				p.blobCfg = DefaultBlobExtractorConfig()
			}
			p.blobCfg.ContourThreshold = s.ContourThreshold
		}

	case ControlCalculateCameraPose:
		s := msg.CalculateCameraPose
		poses, err := BootstrapPoses(p.poseCfg, p.intrinsics, s.CameraPoints)
		if err != nil {
			p.emit(ErrorEvent{Err: err})
			return
		}
		result, err := BundleAdjustment(p.baCfg, p.intrinsics, poses, s.CameraPoints)
		if err != nil {
			p.emit(ErrorEvent{Err: err})
			return
		}
		p.poses = result.Poses
		p.emit(CameraPoseEvent{CameraPoses: p.poses, Intrinsics: p.intrinsics, Error: result.MeanReprojectionError})

	case ControlCalculateBundleAdjustment:
		s := msg.CalculateBundleAdjustment
		result, err := BundleAdjustment(p.baCfg, p.intrinsics, p.poses, s.CameraPoints)
		if err != nil {
			p.emit(ErrorEvent{Err: err})
			return
		}
		p.poses = result.Poses
		p.emit(CameraPoseEvent{CameraPoses: p.poses, Intrinsics: p.intrinsics, Error: result.MeanReprojectionError})

	case ControlSetCameraPoses:
		if s := msg.SetCameraPoses; s != nil && len(s.Poses) == len(p.intrinsics) {
			p.poses = s.Poses
		}

	case ControlSetIntrinsicMatrices:
		if s := msg.SetIntrinsicMatrices; s != nil && len(s.Intrinsics) == len(p.intrinsics) {
			p.intrinsics = s.Intrinsics
		}

	case ControlSetDistortionCoefs:
		if s := msg.SetDistortionCoefs; s != nil && len(s.Distortion) == len(p.intrinsics) {
			next := make([]*CameraIntrinsics, len(p.intrinsics))
			for i, d := range s.Distortion {
				replaced := *p.intrinsics[i]
				replaced.Dist = d
				next[i] = &replaced
			}
			p.intrinsics = next
		}

	case ControlSetToWorldMatrix:
		if s := msg.SetToWorldMatrix; s != nil {
			p.toWorld = s.Matrix
		}

	case ControlAcquireFloor:
		s := msg.AcquireFloor
		next, err := AlignFloorToAxis(s.WorldPoints, p.toWorld, p.floorAxis)
		if err != nil {
			p.emit(ErrorEvent{Err: err})
			return
		}
		p.toWorld = next
		p.emit(ToWorldCoordsMatrixEvent{Matrix: p.toWorld})

	case ControlSetOrigin:
		s := msg.SetOrigin
		p.toWorld = SetOrigin(s.Point, p.toWorld, p.setOriginSwapYZ)
		p.emit(ToWorldCoordsMatrixEvent{Matrix: p.toWorld})

	case ControlDetermineScale:
		s := msg.DetermineScale
		scale, scaled, err := DetermineScale(s.Pairs, p.poses, s.RealDistance)
		if err != nil {
			p.emit(ErrorEvent{Err: err})
			return
		}
		p.poses = scaled
		p.emit(ScaledEvent{ScaleFactor: scale, CameraPoses: p.poses})

	case ControlChangeMocapMode:
		p.ChangeMode(msg.ChangeMocapMode.Target)

	case ControlStartRecording:
		s := msg.StartRecording
		rec, err := NewRecorder(s.Name)
		if err != nil {
			p.emit(ErrorEvent{Err: err})
			return
		}
		p.recorder = rec

	case ControlStopRecording:
		if p.recorder != nil {
			if err := p.recorder.Close(); err != nil {
				p.emit(ErrorEvent{Err: err})
			}
			p.recorder = nil
		}
	}
}

// fpsMeter averages frame throughput over Interval frames, matching the
// reference's rolling FPS counter (supplemented feature 4).
type fpsMeter struct {
	interval int
	count    int
	last     time.Time
}

func newFPSMeter(interval int) *fpsMeter {
	return &fpsMeter{interval: interval, last: time.Now()}
}

func (m *fpsMeter) tick() (float64, bool) {
	m.count++
	if m.count < m.interval {
		return 0, false
	}
	elapsed := time.Since(m.last).Seconds()
	m.last = time.Now()
	n := m.count
	m.count = 0
	if elapsed <= 0 {
		return 0, false
	}
	return float64(n) / elapsed, true
}

// Recorder writes one CSV row per processed frame: timestamp followed by
// x,y,z per tracked object, in track order (§6, supplemented feature 7).
type Recorder struct {
	f *os.File
	w *csv.Writer
}

// NewRecorder opens path for writing and emits a header row.
func NewRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening recorder file: %v", ErrDeviceFailure, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp"}); err != nil {
		f.Close()
		return nil, err
	}
	return &Recorder{f: f, w: w}, nil
}

// WriteRow appends one frame's tracked-object positions.
func (r *Recorder) WriteRow(timestamp float64, objects []TrackedObject) error {
	row := make([]string, 0, 1+3*len(objects))
	row = append(row, fmt.Sprintf("%f", timestamp))
	for _, o := range objects {
		row = append(row, fmt.Sprintf("%f", o.Pos[0]), fmt.Sprintf("%f", o.Pos[1]), fmt.Sprintf("%f", o.Pos[2]))
	}
	if err := r.w.Write(row); err != nil {
		return err
	}
	r.w.Flush()
	return r.w.Error()
}

// Close flushes and closes the underlying file.
func (r *Recorder) Close() error {
	r.w.Flush()
	return r.f.Close()
}

// VideoSink is the boundary for optional synchronized video recording
// alongside a Recorder (§6). No implementation ships in this package; a
// supervisor wires a concrete sink (e.g. a gocv.VideoWriter) per camera.
type VideoSink interface {
	WriteFrame(frame gocv.Mat) error
	Close() error
}
