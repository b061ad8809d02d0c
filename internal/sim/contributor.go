package sim

// Contributor is one physical source of sea-level rise. MeanPerDegree and
// StdPerDegree are meters of rise per degree of warming; Exponent captures
// non-linear response to temperature. The values are fixed physical
// constants, not runtime tunables.
type Contributor struct {
	Name          string  `json:"name"`
	MeanPerDegree float64 `json:"mean_per_degree"`
	StdPerDegree  float64 `json:"std_per_degree"`
	Exponent      float64 `json:"exponent"`
}

// contributors is the fixed model table, in sampling order. The Antarctic
// entry carries the largest spread (0.08) and the steepest exponent (1.8) to
// reflect marine ice cliff instability risk.
var contributors = [...]Contributor{
	{Name: "thermal_expansion", MeanPerDegree: 0.20, StdPerDegree: 0.030, Exponent: 1.1},
	{Name: "mountain_glaciers", MeanPerDegree: 0.12, StdPerDegree: 0.025, Exponent: 1.0},
	{Name: "greenland", MeanPerDegree: 0.08, StdPerDegree: 0.040, Exponent: 1.3},
	{Name: "antarctic", MeanPerDegree: 0.10, StdPerDegree: 0.080, Exponent: 1.8},
	{Name: "land_water_storage", MeanPerDegree: 0.03, StdPerDegree: 0.010, Exponent: 1.0},
}

// NumContributors is the size of the fixed contributor table.
const NumContributors = len(contributors)

// Contributors returns a copy of the contributor table in sampling order.
func Contributors() []Contributor {
	out := make([]Contributor, NumContributors)
	copy(out, contributors[:])
	return out
}
