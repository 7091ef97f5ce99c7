package weccapgo

import (
	"math"

	"github.com/paddyobrien/weccap-go/internal/filterpy"
	"github.com/paddyobrien/weccap-go/internal/scipy"
	"gonum.org/v1/gonum/mat"
)

// ObjectTrackerConfig tunes the constant-velocity Kalman tracker (§4.9).
type ObjectTrackerConfig struct {
	// DT is the time step between frames used in the constant-velocity
	// state transition (position += velocity * DT).
	DT float64
	// ProcessNoise and MeasurementNoise are the (scalar, isotropic) process
	// and measurement noise variances.
	ProcessNoise     float64
	MeasurementNoise float64
	// MaxAssociationDistance gates nearest-neighbour association: a
	// prediction/detection pair farther apart than this is never matched.
	MaxAssociationDistance float64
	// MaxMissedFrames is how many consecutive unassociated frames a track
	// survives before being dropped (§3 KalmanState lifetime).
	MaxMissedFrames int
}

// DefaultObjectTrackerConfig returns reasonable defaults for a 125fps rig
// tracking markers a few centimeters apart.
func DefaultObjectTrackerConfig() *ObjectTrackerConfig {
	return &ObjectTrackerConfig{
		DT:                     1.0 / 125.0,
		ProcessNoise:           1e-3,
		MeasurementNoise:       1e-2,
		MaxAssociationDistance: 0.5,
		MaxMissedFrames:        10,
	}
}

type track struct {
	kf         *filterpy.KalmanFilter
	droneIndex int
	missed     int
	heading    float64
}

// ObjectTracker assigns a persistent Kalman-filtered track to each detected
// rigid body across frames (§4.9). One instance tracks every drone; tracks
// are created on first sight of an unassociated detection and dropped once
// they have gone unmatched for more than MaxMissedFrames consecutive frames.
type ObjectTracker struct {
	cfg       *ObjectTrackerConfig
	tracks    []*track
	nextIndex int
}

// NewObjectTracker constructs a tracker with the given configuration,
// filling in DefaultObjectTrackerConfig for a nil config.
func NewObjectTracker(cfg *ObjectTrackerConfig) *ObjectTracker {
	if cfg == nil {
		cfg = DefaultObjectTrackerConfig()
	}
	return &ObjectTracker{cfg: cfg}
}

func newTrack(cfg *ObjectTrackerConfig, droneIndex int, pos [3]float64) *track {
	kf := filterpy.NewKalmanFilter(6, 3)
	for i := 0; i < 3; i++ {
		kf.GetF().Set(i, i+3, cfg.DT)
	}
	for i := 0; i < 6; i++ {
		kf.GetQ().Set(i, i, cfg.ProcessNoise)
	}
	for i := 0; i < 3; i++ {
		kf.GetR().Set(i, i, cfg.MeasurementNoise)
	}
	x := mat.NewDense(6, 1, []float64{pos[0], pos[1], pos[2], 0, 0, 0})
	kf.SetState(x)
	return &track{kf: kf, droneIndex: droneIndex}
}

func (t *track) predictedPosition() [3]float64 {
	x := t.kf.GetState()
	return [3]float64{x.At(0, 0), x.At(1, 0), x.At(2, 0)}
}

// Update advances every existing track's prediction, associates it against
// this frame's detections by nearest-neighbour Euclidean distance (gated by
// MaxAssociationDistance), spawns a new track for every unmatched
// detection, and drops tracks unmatched for more than MaxMissedFrames in a
// row.
// Output headings are carried through unsmoothed from the most recent
// association, rounded to 4 decimals as the reference does.
func (o *ObjectTracker) Update(detections []DetectedObject) []TrackedObject {
	for _, tr := range o.tracks {
		tr.kf.Predict()
	}

	var assignments []scipy.Assignment
	var unmatchedTracks, unmatchedDetections []int
	if len(o.tracks) > 0 && len(detections) > 0 {
		predicted := mat.NewDense(len(o.tracks), 3, nil)
		for i, tr := range o.tracks {
			p := tr.predictedPosition()
			predicted.SetRow(i, p[:])
		}
		observed := mat.NewDense(len(detections), 3, nil)
		for i, d := range detections {
			observed.SetRow(i, d.Pos[:])
		}
		cost := scipy.Cdist(predicted, observed, "euclidean")
		costRows := make([][]float64, len(o.tracks))
		for i := range costRows {
			costRows[i] = cost.RawRowView(i)
		}
		assignments, unmatchedTracks, unmatchedDetections = scipy.LinearSumAssignment(costRows, o.cfg.MaxAssociationDistance)
	} else {
		for i := range o.tracks {
			unmatchedTracks = append(unmatchedTracks, i)
		}
		for i := range detections {
			unmatchedDetections = append(unmatchedDetections, i)
		}
	}

	matchedDetection := make(map[int]bool, len(detections))
	for _, a := range assignments {
		tr := o.tracks[a.RowIdx]
		det := detections[a.ColIdx]
		z := mat.NewDense(3, 1, []float64{det.Pos[0], det.Pos[1], det.Pos[2]})
		tr.kf.Update(z, nil, nil)
		tr.missed = 0
		tr.heading = det.Heading
		matchedDetection[a.ColIdx] = true
	}
	for _, idx := range unmatchedTracks {
		o.tracks[idx].missed++
	}
	for _, idx := range unmatchedDetections {
		matchedDetection[idx] = true
		d := detections[idx]
		tr := newTrack(o.cfg, o.nextIndex, d.Pos)
		tr.heading = d.Heading
		o.nextIndex++
		o.tracks = append(o.tracks, tr)
	}

	var surviving []*track
	var out []TrackedObject
	for _, tr := range o.tracks {
		if tr.missed > o.cfg.MaxMissedFrames {
			continue
		}
		surviving = append(surviving, tr)

		x := tr.kf.GetState()
		out = append(out, TrackedObject{
			Pos:        [3]float64{x.At(0, 0), x.At(1, 0), x.At(2, 0)},
			Vel:        [3]float64{x.At(3, 0), x.At(4, 0), x.At(5, 0)},
			Heading:    math.Round(tr.heading*1e4) / 1e4,
			DroneIndex: tr.droneIndex,
		})
	}
	o.tracks = surviving
	return out
}
