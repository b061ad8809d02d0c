// Package scenario maps (emissions scenario, year) pairs to projected
// warming. The tables are static configuration: three IPCC-style pathways
// with three anchor years each, linearly interpolated in between and clamped
// outside the anchored range.
package scenario

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownScenario reports a scenario id outside the fixed set. Callers
// must treat this as fatal for the request; there is no default pathway.
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenario is one emissions pathway with its anchored temperature
// projections in degrees of warming relative to pre-industrial.
type Scenario struct {
	ID                 string          `json:"id"`
	Label              string          `json:"label"`
	TemperaturesByYear map[int]float64 `json:"temperatures_by_year"`
}

var scenarios = []Scenario{
	{
		ID:    "ssp126",
		Label: "SSP1-2.6 (low emissions)",
		TemperaturesByYear: map[int]float64{
			2030: 1.5,
			2050: 1.7,
			2100: 1.8,
		},
	},
	{
		ID:    "ssp245",
		Label: "SSP2-4.5 (intermediate emissions)",
		TemperaturesByYear: map[int]float64{
			2030: 1.6,
			2050: 2.2,
			2100: 2.9,
		},
	},
	{
		ID:    "ssp585",
		Label: "SSP5-8.5 (very high emissions)",
		TemperaturesByYear: map[int]float64{
			2030: 1.9,
			2050: 2.4,
			2100: 4.4,
		},
	},
}

// All returns the fixed scenario set in display order.
func All() []Scenario {
	out := make([]Scenario, len(scenarios))
	copy(out, scenarios)
	return out
}

// Lookup finds a scenario by id.
func Lookup(id string) (Scenario, error) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
}

// ProjectedTemperature resolves the warming for a scenario at a year.
//
// An exact anchor year returns the anchored value. Years before the first or
// after the last anchor clamp to the nearest anchor; there is no
// extrapolation. Years strictly between two anchors interpolate linearly.
// Anchor years are sorted here rather than trusting map iteration order.
func ProjectedTemperature(scenarioID string, year int) (float64, error) {
	s, err := Lookup(scenarioID)
	if err != nil {
		return 0, err
	}

	years := make([]int, 0, len(s.TemperaturesByYear))
	for y := range s.TemperaturesByYear {
		years = append(years, y)
	}
	sort.Ints(years)

	if t, ok := s.TemperaturesByYear[year]; ok {
		return t, nil
	}
	if year < years[0] {
		return s.TemperaturesByYear[years[0]], nil
	}
	if year > years[len(years)-1] {
		return s.TemperaturesByYear[years[len(years)-1]], nil
	}

	// Find the bracketing anchors.
	hi := sort.SearchInts(years, year)
	y0, y1 := years[hi-1], years[hi]
	t0, t1 := s.TemperaturesByYear[y0], s.TemperaturesByYear[y1]

	return t0 + (t1-t0)*float64(year-y0)/float64(y1-y0), nil
}
