package weccapgo

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// CorrespondenceConfig tunes the epipolar correspondence resolver (§4.4).
type CorrespondenceConfig struct {
	// EpilineThreshold is the maximum perpendicular pixel distance from a
	// candidate blob to the epipolar line for it to be considered a match.
	// Default 5.0, matching the reference.
	EpilineThreshold float64
}

// DefaultCorrespondenceConfig returns the reference's threshold.
func DefaultCorrespondenceConfig() *CorrespondenceConfig {
	return &CorrespondenceConfig{EpilineThreshold: 5.0}
}

func nonMissing(points []ImagePoint) []ImagePoint {
	out := make([]ImagePoint, 0, len(points))
	for _, p := range points {
		if !p.Missing {
			out = append(out, p)
		}
	}
	return out
}

// group is one candidate assignment of blobs across cameras for a single
// root blob in camera 0; groups[cam] is that candidate's observation in
// camera cam (possibly Missing).
type group []ImagePoint

// ResolveCorrespondence solves the multi-view correspondence problem
// (§4.4): for each blob observed by the reference camera (index 0), find
// the candidate assignment of blobs in every other camera that minimizes
// the mean reprojection error of the resulting triangulated point.
//
// Blobs visible only outside camera 0 are lost — a documented limitation
// (§4.4, §9).
func ResolveCorrespondence(cfg *CorrespondenceConfig, imagePointsPerCamera [][]ImagePoint, Ps []*mat.Dense, intrinsics []*CameraIntrinsics, poses []CameraPose) ([]ObjectPoint, []float64) {
	if cfg == nil {
		cfg = DefaultCorrespondenceConfig()
	}
	numCams := len(imagePointsPerCamera)
	const rootCamera = 0

	rootBlobs := nonMissing(imagePointsPerCamera[rootCamera])

	// One group list per root blob; each group list starts with a single
	// candidate whose only populated slot is the root blob itself.
	candidatesPerRoot := make([][]group, len(rootBlobs))
	for r, blob := range rootBlobs {
		g := make(group, numCams)
		for c := range g {
			g[c] = MissingPoint()
		}
		g[rootCamera] = blob
		candidatesPerRoot[r] = []group{g}
	}

	for offset := 0; offset < numCams-1; offset++ {
		cam := (rootCamera + 1 + offset) % numCams
		F, err := FundamentalFromProjections(Ps[rootCamera], Ps[cam])
		if err != nil {
			continue
		}
		camBlobs := nonMissing(imagePointsPerCamera[cam])

		for r, blob := range rootBlobs {
			a, b, c := EpilineInOther(F, blob.X, blob.Y)

			type match struct {
				point ImagePoint
				dist  float64
			}
			var matches []match
			for _, candidate := range camBlobs {
				d := EpilineDistance(a, b, c, candidate.X, candidate.Y)
				if d < cfg.EpilineThreshold {
					matches = append(matches, match{candidate, d})
				}
			}
			sort.Slice(matches, func(i, j int) bool { return matches[i].dist < matches[j].dist })

			existing := candidatesPerRoot[r]
			if len(matches) == 0 {
				for i := range existing {
					existing[i][cam] = MissingPoint()
				}
				candidatesPerRoot[r] = existing
				continue
			}

			forked := make([]group, 0, len(existing)*len(matches))
			for _, g := range existing {
				for _, m := range matches {
					ng := make(group, len(g))
					copy(ng, g)
					ng[cam] = m.point
					forked = append(forked, ng)
				}
			}
			candidatesPerRoot[r] = forked
		}
	}

	var objectPoints []ObjectPoint
	var errs []float64
	for _, candidates := range candidatesPerRoot {
		bestErr := -1.0
		var best ObjectPoint
		found := false
		for _, g := range candidates {
			p, err := TriangulatePoint(Ps, []ImagePoint(g))
			if err != nil {
				continue
			}
			e, ok := ReprojectionError(intrinsics, poses, []ImagePoint(g), p)
			if !ok {
				continue
			}
			if !found || e < bestErr {
				found = true
				bestErr = e
				best = p
				best.Error = e
			}
		}
		if found {
			objectPoints = append(objectPoints, best)
			errs = append(errs, bestErr)
		}
	}
	return objectPoints, errs
}
