package sim

// Summary holds distribution statistics for one sorted sample, all in meters.
type Summary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P5     float64 `json:"p5"`
	P95    float64 `json:"p95"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Stat returns the named statistic. The false return reports a name outside
// the selectable set (mean, median, p5, p95).
func (s Summary) Stat(name string) (float64, bool) {
	switch name {
	case "mean":
		return s.Mean, true
	case "median":
		return s.Median, true
	case "p5":
		return s.P5, true
	case "p95":
		return s.P95, true
	}
	return 0, false
}

// Summarize reduces a sorted ascending sample to a Summary.
//
// Percentiles use nearest-rank indexing without interpolation:
// sorted[floor(n*p)]. Downstream consumers compare runs bit-for-bit, so a
// smoother percentile method is not an acceptable substitute here.
// An empty sample yields the zero Summary.
func Summarize(sorted []float64) Summary {
	n := len(sorted)
	if n == 0 {
		return Summary{}
	}

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	return Summary{
		Mean:   sum / float64(n),
		Median: sorted[int(float64(n)*0.5)],
		P5:     sorted[int(float64(n)*0.05)],
		P95:    sorted[int(float64(n)*0.95)],
		Min:    sorted[0],
		Max:    sorted[n-1],
	}
}
