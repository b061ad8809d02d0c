// Package service orchestrates simulation runs: temperature resolution, seed
// derivation, engine execution, persistence, metrics, and optional downstream
// event publishing.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/oceanbound/floodline/internal/observability"
	"github.com/oceanbound/floodline/internal/scenario"
	"github.com/oceanbound/floodline/internal/sim"
	"github.com/oceanbound/floodline/internal/store"
)

// ErrBadRequest marks run requests that name neither a temperature nor a
// scenario.
var ErrBadRequest = errors.New("either temperature or scenario must be supplied")

// Publisher delivers completed-run events to downstream consumers. A nil
// Publisher disables publishing.
type Publisher interface {
	PublishRun(ctx context.Context, run store.Run) error
}

// Service wires the simulation engine to persistence and observability.
type Service struct {
	db        *store.DB
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock

	defaultIterations int
	baseSeed          uint32
}

// New creates a Service. Pass a nil publisher to disable run-event
// publishing.
func New(db *store.DB, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, defaultIterations int, baseSeed uint32) *Service {
	return &Service{
		db:                db,
		publisher:         publisher,
		logger:            logger,
		metrics:           metrics,
		clock:             clock,
		defaultIterations: defaultIterations,
		baseSeed:          baseSeed,
	}
}

// RunRequest selects either a direct temperature (manual mode) or a
// (scenario, year) pair resolved to one (projection mode). Iterations of
// zero means the service default; a nil Seed means the service derives one
// per the mode's policy.
type RunRequest struct {
	Temperature *float64
	ScenarioID  string
	Year        int
	Iterations  int
	Seed        *uint32
}

// RunSimulation executes one complete simulation: resolve, derive, run,
// persist, publish. The returned Run is the persisted record; the Result
// carries the full sorted sample for histogram consumers.
func (s *Service) RunSimulation(ctx context.Context, req RunRequest) (store.Run, sim.Result, error) {
	mode := "manual"
	if req.ScenarioID != "" {
		mode = "projection"
	}

	temperature, err := s.resolveTemperature(req, mode)
	if err != nil {
		s.metrics.SimulationsRun.WithLabelValues(mode, "error").Inc()
		return store.Run{}, sim.Result{}, err
	}

	iterations := req.Iterations
	if iterations == 0 {
		iterations = s.defaultIterations
	}

	seed := s.deriveSeed(req, mode, temperature)

	start := time.Now()
	result, err := sim.Run(sim.Input{
		TemperatureIncrease: temperature,
		Iterations:          iterations,
		Seed:                seed,
	})
	if err != nil {
		s.metrics.SimulationsRun.WithLabelValues(mode, "error").Inc()
		return store.Run{}, sim.Result{}, err
	}
	s.metrics.SimulationDuration.Observe(time.Since(start).Seconds())
	s.metrics.SimulationSLRMean.Observe(result.Stats.Mean)

	run := store.Run{
		ID:               uuid.NewString(),
		Mode:             mode,
		ScenarioID:       req.ScenarioID,
		Year:             req.Year,
		Temperature:      temperature,
		Iterations:       result.Iterations,
		Seed:             seed,
		Stats:            result.Stats,
		ContributorStats: result.ContributorStats,
		CreatedAt:        s.clock.Now().UTC(),
	}

	if err := s.db.SaveRun(ctx, run); err != nil {
		s.metrics.SimulationsRun.WithLabelValues(mode, "error").Inc()
		return store.Run{}, sim.Result{}, fmt.Errorf("persist run: %w", err)
	}

	// Publishing is best-effort: a broker outage must not fail the run.
	if s.publisher != nil {
		if err := s.publisher.PublishRun(ctx, run); err != nil {
			s.logger.Error("publish run event failed", "run_id", run.ID, "error", err)
		} else {
			s.metrics.RunsPublished.Inc()
		}
	}

	s.metrics.SimulationsRun.WithLabelValues(mode, "ok").Inc()
	s.logger.Info("simulation complete",
		"run_id", run.ID,
		"mode", mode,
		"temperature", temperature,
		"iterations", result.Iterations,
		"seed", seed,
		"slr_mean", result.Stats.Mean,
		"slr_p95", result.Stats.P95,
		"duration", time.Since(start),
	)

	return run, result, nil
}

func (s *Service) resolveTemperature(req RunRequest, mode string) (float64, error) {
	if mode == "projection" {
		return scenario.ProjectedTemperature(req.ScenarioID, req.Year)
	}
	if req.Temperature == nil {
		return 0, ErrBadRequest
	}
	return *req.Temperature, nil
}

func (s *Service) deriveSeed(req RunRequest, mode string, temperature float64) uint32 {
	if req.Seed != nil {
		return *req.Seed
	}
	if mode == "projection" {
		return sim.ProjectionSeed(req.ScenarioID, req.Year, s.baseSeed)
	}
	return sim.ManualSeed(temperature)
}

// GetRun fetches a persisted run by id.
func (s *Service) GetRun(ctx context.Context, id string) (store.Run, error) {
	return s.db.GetRun(ctx, id)
}

// ListRuns returns recent runs, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	return s.db.ListRuns(ctx, limit)
}

// PruneRuns removes runs older than maxAge and records the count.
func (s *Service) PruneRuns(ctx context.Context, maxAge time.Duration) error {
	if maxAge <= 0 {
		return nil
	}
	pruned, err := s.db.Prune(ctx, s.clock.Now().UTC().Add(-maxAge))
	if err != nil {
		return err
	}
	if pruned > 0 {
		s.metrics.RunsPruned.Add(float64(pruned))
		s.logger.Info("run history pruned", "removed", pruned, "max_age", maxAge)
	}
	return nil
}

// CheckReadiness reports whether the service can serve traffic.
func (s *Service) CheckReadiness(ctx context.Context) error {
	return s.db.Ping(ctx)
}
