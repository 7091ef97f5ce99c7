package weccapgo

import "math"

// ObjectLocatorConfig tunes rigid-body detection from triangulated points (§4.8).
type ObjectLocatorConfig struct {
	// Distance is the known marker separation for the two-marker body, in meters.
	Distance float64
	// Tolerance is the allowed deviation from Distance (and D1/D2 in
	// three-marker mode), in meters.
	Tolerance float64
	// ThreeMarkerMode enables the heading-disambiguation extension (§9,
	// SPEC_FULL supplemented feature 8) instead of the two-marker body.
	// Off by default, matching the reference.
	ThreeMarkerMode bool
	// D1 is the short leg of the three-marker body.
	D1 float64
	// D2 is the long leg (between the two "wingtip" markers) of the
	// three-marker body.
	D2 float64
}

// DefaultObjectLocatorConfig matches the reference's constants.
func DefaultObjectLocatorConfig() *ObjectLocatorConfig {
	return &ObjectLocatorConfig{
		Distance: 0.131,
		Tolerance: 0.025,
		D1:        0.089,
		D2:        0.133,
	}
}

func foldHeading(h float64) float64 {
	if h > math.Pi/2 {
		h -= math.Pi
	} else if h < -math.Pi/2 {
		h += math.Pi
	}
	return h
}

func pairwiseDistances(points []ObjectPoint) [][]float64 {
	n := len(points)
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		for j := range d[i] {
			d[i][j] = points[i].Dist(points[j])
		}
	}
	return d
}

// LocateObjects finds two-marker rigid bodies among triangulated points
// (§4.8): points whose mutual distance is within Tolerance of Distance are
// paired; position is their midpoint, heading is atan2 of the pair
// direction folded into [-pi/2, pi/2].
//
// Matches the reference literally: a point already claimed as a "best
// match" target is not excluded from matching again as a different root's
// partner (only the outer index is checked); this can attribute one point
// to two different pairs on ambiguous input.
func LocateObjects(cfg *ObjectLocatorConfig, points []ObjectPoint, errs []float64) []DetectedObject {
	if cfg == nil {
		cfg = DefaultObjectLocatorConfig()
	}
	n := len(points)
	d := pairwiseDistances(points)
	claimed := make(map[int]bool, n)

	var objects []DetectedObject
	for i := 0; i < n; i++ {
		if claimed[i] {
			continue
		}
		best := -1
		for j := 0; j < n; j++ {
			if math.Abs(d[i][j]-cfg.Distance) < cfg.Tolerance {
				best = j
				break
			}
		}
		if best < 0 {
			continue
		}
		claimed[i] = true
		claimed[best] = true

		pos := midpoint(points[i], points[best])
		err := meanFloat([]float64{safeErr(errs, i), safeErr(errs, best)})

		dx := points[best].X - points[i].X
		dy := points[best].Y - points[i].Y
		norm := math.Hypot(dx, dy)
		if norm > 0 {
			dx, dy = dx/norm, dy/norm
		}
		heading := foldHeading(math.Atan2(dy, dx))

		objects = append(objects, DetectedObject{
			Pos:        pos,
			Heading:    heading,
			Error:      err,
			DroneIndex: 0,
		})
	}
	return objects
}

// LocateObjectsThreeMarker implements the heading-disambiguation extension
// (§9, supplemented feature 8): a rigid body of three markers, two at
// distance D1 from a "hub" marker and D2 from each other. It distinguishes
// two drones by which side (in Y) of the wingtip midpoint the hub sits on
// (DroneIndex 0 or 1). Heading is still folded into [-pi/2, pi/2] as in
// LocateObjects, so the forward/backward ambiguity remains.
func LocateObjectsThreeMarker(cfg *ObjectLocatorConfig, points []ObjectPoint, errs []float64) []DetectedObject {
	if cfg == nil {
		cfg = DefaultObjectLocatorConfig()
	}
	n := len(points)
	d := pairwiseDistances(points)
	claimed := make(map[int]bool, n)

	var objects []DetectedObject
	for i := 0; i < n; i++ {
		if claimed[i] {
			continue
		}
		var candidates []int
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			if math.Abs(d[i][j]-cfg.D1) < cfg.Tolerance {
				candidates = append(candidates, j)
			}
		}
		if len(candidates) < 2 {
			continue
		}

		matched := false
		for _, a := range candidates {
			for _, b := range candidates {
				if a == b {
					continue
				}
				if math.Abs(d[a][b]-cfg.D2) > cfg.Tolerance {
					continue
				}
				claimed[i] = true
				claimed[a] = true
				claimed[b] = true

				pos := midpoint(points[a], points[b])
				err := meanFloat([]float64{safeErr(errs, i), safeErr(errs, a), safeErr(errs, b)})

				dx := points[a].X - points[b].X
				dy := points[a].Y - points[b].Y
				norm := math.Hypot(dx, dy)
				if norm > 0 {
					dx, dy = dx/norm, dy/norm
				}
				heading := foldHeading(math.Atan2(dy, dx))

				droneIndex := 0
				if points[i].Y-pos[1] <= 0 {
					droneIndex = 1
				}

				objects = append(objects, DetectedObject{
					Pos:        pos,
					Heading:    -heading,
					Error:      err,
					DroneIndex: droneIndex,
				})
				matched = true
				break
			}
			if matched {
				break
			}
		}
	}
	return objects
}

func midpoint(a, b ObjectPoint) [3]float64 {
	return [3]float64{(a.X + b.X) / 2, (a.Y + b.Y) / 2, (a.Z + b.Z) / 2}
}

func safeErr(errs []float64, i int) float64 {
	if i < 0 || i >= len(errs) {
		return 0
	}
	return errs[i]
}
