package flood

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/oceanbound/floodline/internal/geoid"
)

// ErrNoComparison reports a comparison toggle without two live snapshots.
var ErrNoComparison = errors.New("comparison requires both a current and a previous snapshot")

// Phase is the flood display state.
type Phase string

const (
	PhaseIdle     Phase = "idle"     // no active snapshot
	PhaseFlooding Phase = "flooding" // snapshot set, alpha ramping up
	PhaseSteady   Phase = "steady"   // alpha settled at the active target
	PhaseFading   Phase = "fading"   // clear requested, alpha ramping down
)

// ClearPolicy controls when a cleared flood surface is detached. The two
// observed behaviors in this design's lineage differ here, so it is a
// configuration knob rather than a fixed contract.
type ClearPolicy string

const (
	DetachAfterFade   ClearPolicy = "after-fade" // detach once the fade-out settles
	DetachImmediately ClearPolicy = "immediate"  // detach at clear time, fade alpha out after
)

// State is one observable snapshot of the session, pushed to stream
// subscribers on every tick and returned by State().
type State struct {
	Phase      Phase     `json:"phase"`
	Alpha      float64   `json:"alpha"`
	Comparison bool      `json:"comparison"`
	Current    *Snapshot `json:"current,omitempty"`
	Previous   *Snapshot `json:"previous,omitempty"`
}

// Session owns the mutable flood display state for one viewer: the snapshot
// history, the fade animation, and the comparison toggle. The simulation
// engine itself stays pure; everything time-dependent lives here.
type Session struct {
	lookup geoid.Lookup
	policy ClearPolicy
	clock  clockwork.Clock
	logger *slog.Logger

	mu          sync.Mutex
	history     History
	fader       Fader
	comparison  bool
	phase       Phase
	subscribers map[chan State]struct{}
}

// NewSession creates an idle session.
func NewSession(lookup geoid.Lookup, policy ClearPolicy, clock clockwork.Clock, logger *slog.Logger) *Session {
	return &Session{
		lookup:      lookup,
		policy:      policy,
		clock:       clock,
		logger:      logger,
		phase:       PhaseIdle,
		subscribers: make(map[chan State]struct{}),
	}
}

// Run drives the fade animation at a fixed tick rate until the context is
// cancelled. Cancellation is simply not ticking again; no state is torn down.
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Tick()
		}
	}
}

// Tick advances the fade by one step and applies any resulting phase
// transition, then notifies stream subscribers.
func (s *Session) Tick() {
	s.mu.Lock()

	s.fader.Tick()
	switch s.phase {
	case PhaseFlooding:
		if s.fader.Settled() {
			s.phase = PhaseSteady
		}
	case PhaseFading:
		if s.fader.Settled() {
			if s.policy == DetachAfterFade {
				s.history.Detach()
			}
			s.comparison = false
			s.phase = PhaseIdle
		}
	}
	state := s.stateLocked()

	s.mu.Unlock()
	s.broadcast(state)
}

// SetFloodLevel installs a new current snapshot, demoting the old current to
// previous, and starts the fade-in.
func (s *Session) SetFloodLevel(seaLevelRise float64, runID, stat string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history.Push(Snapshot{
		SeaLevelRise: seaLevelRise,
		RunID:        runID,
		Stat:         stat,
		TakenAt:      s.clock.Now(),
	})
	s.fader.SetTarget(ActiveAlphaTarget)
	s.phase = PhaseFlooding

	s.logger.Info("flood level set",
		"sea_level_rise", seaLevelRise,
		"run_id", runID,
		"stat", stat,
		"has_previous", s.history.Previous != nil,
	)
	return s.stateLocked()
}

// ClearFlood starts the fade-out. Depending on policy the surface detaches
// now or when the fade settles. Clearing an idle session is a no-op.
func (s *Session) ClearFlood() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.history.Current == nil {
		return s.stateLocked()
	}

	s.fader.SetTarget(0)
	s.phase = PhaseFading
	if s.policy == DetachImmediately {
		s.history.Detach()
		s.comparison = false
	}

	s.logger.Info("flood cleared", "policy", s.policy)
	return s.stateLocked()
}

// SetComparison toggles the comparison overlay. Enabling requires both a
// current and a previous snapshot; disabling always succeeds. The toggle is
// independent of the fade phase.
func (s *Session) SetComparison(enabled bool) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if enabled && !s.history.Comparable() {
		return s.stateLocked(), ErrNoComparison
	}
	s.comparison = enabled
	return s.stateLocked(), nil
}

// Evaluate answers a batch of per-point queries against the current state.
func (s *Session) Evaluate(points []Point) []Decision {
	s.mu.Lock()
	current := s.history.Current
	previous := s.history.Previous
	comparison := s.comparison
	alpha := s.fader.Alpha()
	s.mu.Unlock()

	decisions := make([]Decision, len(points))
	for i, p := range points {
		und := s.lookup.Undulation(p.U, p.V)
		decisions[i] = Evaluate(current, previous, comparison, alpha, und, p)
	}
	return decisions
}

// State returns the current observable state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Subscribe registers a stream consumer. Slow consumers miss ticks rather
// than blocking the animation loop.
func (s *Session) Subscribe() chan State {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 8)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Subscribers reports the number of registered stream consumers.
func (s *Session) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Unsubscribe removes a stream consumer and closes its channel.
func (s *Session) Unsubscribe(ch chan State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) stateLocked() State {
	return State{
		Phase:      s.phase,
		Alpha:      s.fader.Alpha(),
		Comparison: s.comparison,
		Current:    s.history.Current,
		Previous:   s.history.Previous,
	}
}

func (s *Session) broadcast(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subscribers {
		select {
		case ch <- state:
		default:
		}
	}
}
