package weccapgo

import (
	"testing"
)

func TestObjectTrackerAssignsPersistentIndex(t *testing.T) {
	tr := NewObjectTracker(nil)

	first := tr.Update([]DetectedObject{{Pos: [3]float64{0, 0, 0}, Heading: 0.5}})
	if len(first) != 1 {
		t.Fatalf("expected 1 tracked object after first detection, got %d", len(first))
	}
	idx := first[0].DroneIndex

	// A detection near the previous position on the next frame should
	// associate with the same track rather than spawning a new one.
	second := tr.Update([]DetectedObject{{Pos: [3]float64{0.001, 0, 0}, Heading: 0.5}})
	if len(second) != 1 {
		t.Fatalf("expected 1 tracked object after second detection, got %d", len(second))
	}
	if second[0].DroneIndex != idx {
		t.Errorf("expected persistent droneIndex %d, got %d", idx, second[0].DroneIndex)
	}
}

func TestObjectTrackerSpawnsSeparateTracksWhenFarApart(t *testing.T) {
	cfg := DefaultObjectTrackerConfig()
	cfg.MaxAssociationDistance = 0.1
	tr := NewObjectTracker(cfg)

	tr.Update([]DetectedObject{{Pos: [3]float64{0, 0, 0}}})
	out := tr.Update([]DetectedObject{{Pos: [3]float64{10, 10, 10}}})

	if len(out) != 2 {
		t.Fatalf("expected a new track for a far-away detection, got %d tracks", len(out))
	}
	if out[0].DroneIndex == out[1].DroneIndex {
		t.Errorf("expected distinct droneIndex values, got %d and %d", out[0].DroneIndex, out[1].DroneIndex)
	}
}

func TestObjectTrackerDropsTrackAfterMaxMissedFrames(t *testing.T) {
	cfg := DefaultObjectTrackerConfig()
	cfg.MaxMissedFrames = 2
	tr := NewObjectTracker(cfg)

	tr.Update([]DetectedObject{{Pos: [3]float64{0, 0, 0}}})
	for i := 0; i < cfg.MaxMissedFrames; i++ {
		out := tr.Update(nil)
		if len(out) != 1 {
			t.Fatalf("track dropped too early at miss %d: got %d tracks", i, len(out))
		}
	}
	out := tr.Update(nil)
	if len(out) != 0 {
		t.Fatalf("expected track dropped after %d consecutive misses, got %d tracks", cfg.MaxMissedFrames+1, len(out))
	}
}

func TestObjectTrackerCarriesHeadingUnsmoothed(t *testing.T) {
	tr := NewObjectTracker(nil)
	tr.Update([]DetectedObject{{Pos: [3]float64{0, 0, 0}, Heading: 0.12345}})
	out := tr.Update([]DetectedObject{{Pos: [3]float64{0, 0, 0}, Heading: 0.54321}})

	if out[0].Heading != 0.5432 {
		t.Errorf("expected heading rounded to 4 decimals from most recent association, got %g", out[0].Heading)
	}
}
