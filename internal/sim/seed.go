package sim

import (
	"hash/fnv"
	"math"
)

// Seed derivation policy lives with the caller, not the engine. The two
// derivations below make the service's own calls reproducible: the same
// slider position or the same (scenario, year) pair always replays the same
// sample.

const manualSeedBase = 1337

// ManualSeed derives the seed for a user-chosen temperature:
// 1337 + round(temperature * 1000). Temperatures arrive in 0.05-degree
// steps, so distinct slider positions map to distinct seeds.
func ManualSeed(temperature float64) uint32 {
	return uint32(manualSeedBase + int64(math.Round(temperature*1000)))
}

// ProjectionSeed combines a hash of the scenario identifier, the projection
// year, and a base seed into one 32-bit engine seed. The final avalanche
// rounds spread single-year differences across all seed bits.
func ProjectionSeed(scenarioID string, year int, base uint32) uint32 {
	h := fnv.New32a()
	h.Write([]byte(scenarioID))

	seed := h.Sum32() ^ (uint32(year) * 2654435761) ^ base
	seed = (seed ^ (seed >> 16)) * 0x85ebca6b
	seed = (seed ^ (seed >> 13)) * 0xc2b2ae35
	return seed ^ (seed >> 16)
}
