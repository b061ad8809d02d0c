package flood

// Compositing constants. EdgeSoftness widens the waterline into a small
// height band so discretized terrain sampling does not produce a jagged
// flood boundary; the renderer owns the actual colors.
const (
	EdgeSoftness      = 1.0 / 3.0 // meters of soft edge either side of the flood surface
	ActiveAlphaTarget = 0.55
	ComparisonOpacity = 0.45

	maskEpsilon = 0.001
)

// Point is one per-fragment query from the render collaborator: normalized
// surface coordinates, terrain height in meters, and whether the point is
// pre-existing open water.
type Point struct {
	U             float64 `json:"u"`
	V             float64 `json:"v"`
	TerrainHeight float64 `json:"terrain_height"`
	Wet           bool    `json:"wet"`
}

// Decision is the compositor's answer for one point. The renderer owns
// color choice; this carries only membership and opacity.
type Decision struct {
	Flooded           bool    `json:"flooded"`
	FloodOpacity      float64 `json:"flood_opacity"`
	ComparisonBand    bool    `json:"comparison_band"`
	ComparisonOpacity float64 `json:"comparison_opacity"`
}

// Evaluate computes the flood decision for one point given the current and
// optional previous snapshots, the comparison toggle, the animated alpha,
// and the geoid undulation at the point.
//
// Pre-existing open water never floods: it is already water. The comparison
// band is the half-open height interval between the two flood surfaces, so
// two runs with equal sea-level rise produce an empty band everywhere.
func Evaluate(current, previous *Snapshot, comparison bool, alpha, undulation float64, p Point) Decision {
	if current == nil || p.Wet {
		return Decision{}
	}

	floodSurface := undulation + current.SeaLevelRise
	mask := 1 - smoothstep(floodSurface-EdgeSoftness, floodSurface+EdgeSoftness, p.TerrainHeight)

	d := Decision{
		Flooded:      mask > maskEpsilon,
		FloodOpacity: alpha * mask,
	}

	if comparison && previous != nil {
		compSurface := undulation + previous.SeaLevelRise
		lower, upper := floodSurface, compSurface
		if lower > upper {
			lower, upper = upper, lower
		}
		if p.TerrainHeight >= lower && p.TerrainHeight < upper {
			d.ComparisonBand = true
			d.ComparisonOpacity = ComparisonOpacity
		}
	}

	return d
}

// smoothstep is the standard clamped Hermite interpolation between edge0 and
// edge1: 0 below, 1 above, 3t²−2t³ in between.
func smoothstep(edge0, edge1, x float64) float64 {
	t := (x - edge0) / (edge1 - edge0)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return t * t * (3 - 2*t)
}
