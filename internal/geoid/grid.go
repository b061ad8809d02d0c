// Package geoid adapts the external geoid collaborator: a raster of
// undulation values (the local offset between the reference ellipsoid and
// mean sea level) sampled by normalized surface coordinates. How the raster
// is decoded upstream is not this service's concern; it consumes the decoded
// grid as a black box and degrades to an ellipsoid-only zero lookup when the
// collaborator is unavailable.
package geoid

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Undulation values outside this range indicate a corrupt grid. The bounds
// come from the EGM96 model extremes (−107 m near India, +86 m near New
// Guinea) plus a little slack for coarser rasters.
const (
	MinUndulation = -110.0
	MaxUndulation = 90.0
)

// Lookup maps normalized surface coordinates (u, v) in [0,1]×[0,1] to geoid
// undulation in meters. The coordinate convention matches the terrain's own
// texture parameterization.
type Lookup interface {
	Undulation(u, v float64) float64
}

// Zero is the ellipsoid-only fallback lookup used when no grid is available.
type Zero struct{}

func (Zero) Undulation(_, _ float64) float64 { return 0 }

// Grid is a row-major undulation raster with bilinear sampling.
type Grid struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Values []float64 `json:"values"`
}

// Validate checks raster dimensions and value range.
func (g *Grid) Validate() error {
	if g.Width < 2 || g.Height < 2 {
		return fmt.Errorf("grid too small: %dx%d", g.Width, g.Height)
	}
	if len(g.Values) != g.Width*g.Height {
		return fmt.Errorf("grid has %d values, want %d", len(g.Values), g.Width*g.Height)
	}
	for i, v := range g.Values {
		if v < MinUndulation || v > MaxUndulation || math.IsNaN(v) {
			return fmt.Errorf("undulation %g at index %d outside [%g, %g]", v, i, MinUndulation, MaxUndulation)
		}
	}
	return nil
}

// Undulation samples the raster bilinearly. Coordinates outside [0,1] clamp
// to the edge rather than wrapping; the terrain parameterization never wraps
// either.
func (g *Grid) Undulation(u, v float64) float64 {
	u = clamp01(u)
	v = clamp01(v)

	x := u * float64(g.Width-1)
	y := v * float64(g.Height-1)

	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > g.Width-1 {
		x1 = g.Width - 1
	}
	if y1 > g.Height-1 {
		y1 = g.Height - 1
	}

	fx := x - float64(x0)
	fy := y - float64(y0)

	top := lerp(g.at(x0, y0), g.at(x1, y0), fx)
	bottom := lerp(g.at(x0, y1), g.at(x1, y1), fx)
	return lerp(top, bottom, fy)
}

func (g *Grid) at(x, y int) float64 {
	return g.Values[y*g.Width+x]
}

// LoadFile reads a JSON grid produced by the collaborator (or by the
// gengeoid fixture tool) from disk.
func LoadFile(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geoid grid: %w", err)
	}

	var g Grid
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse geoid grid: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geoid grid: %w", err)
	}
	return &g, nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
