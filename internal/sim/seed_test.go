package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualSeed(t *testing.T) {
	assert.Equal(t, uint32(1337), ManualSeed(0))
	assert.Equal(t, uint32(3337), ManualSeed(2.0))
	assert.Equal(t, uint32(1387), ManualSeed(0.05))
	assert.Equal(t, uint32(11337), ManualSeed(10.0))
}

func TestManualSeed_RoundsToNearestStep(t *testing.T) {
	// Float noise below the 0.001-degree resolution must not change the seed.
	assert.Equal(t, ManualSeed(2.0), ManualSeed(2.0000001))
}

func TestProjectionSeed_Deterministic(t *testing.T) {
	a := ProjectionSeed("ssp245", 2050, 1337)
	b := ProjectionSeed("ssp245", 2050, 1337)

	assert.Equal(t, a, b)
}

func TestProjectionSeed_DistinguishesInputs(t *testing.T) {
	base := ProjectionSeed("ssp245", 2050, 1337)

	assert.NotEqual(t, base, ProjectionSeed("ssp585", 2050, 1337), "scenario must affect seed")
	assert.NotEqual(t, base, ProjectionSeed("ssp245", 2051, 1337), "year must affect seed")
	assert.NotEqual(t, base, ProjectionSeed("ssp245", 2050, 1338), "base seed must affect seed")
}
