package flood

import "math"

const (
	approachRate    = 0.08
	settleTolerance = 0.001
)

// Fader eases the flood overlay alpha toward its target at a fixed approach
// rate per tick, producing a fade transition instead of a discrete jump. It
// holds no clock of its own: whoever owns the animation loop calls Tick.
type Fader struct {
	alpha  float64
	target float64
}

// SetTarget changes the value alpha converges toward.
func (f *Fader) SetTarget(target float64) {
	f.target = target
}

// Tick advances the easing by one step and returns the new alpha. Once
// within the settle tolerance, alpha snaps to the target exactly so steady
// state is stable rather than asymptotic.
func (f *Fader) Tick() float64 {
	f.alpha += (f.target - f.alpha) * approachRate
	if math.Abs(f.target-f.alpha) < settleTolerance {
		f.alpha = f.target
	}
	return f.alpha
}

// Alpha returns the current eased value.
func (f *Fader) Alpha() float64 { return f.alpha }

// Target returns the value alpha is converging toward.
func (f *Fader) Target() float64 { return f.target }

// Settled reports whether alpha has reached the target.
func (f *Fader) Settled() bool { return f.alpha == f.target }
