package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/oceanbound/floodline/internal/flood"
	"github.com/oceanbound/floodline/internal/scenario"
	"github.com/oceanbound/floodline/internal/service"
	"github.com/oceanbound/floodline/internal/sim"
	"github.com/oceanbound/floodline/internal/store"
)

const defaultListLimit = 50

// simulateRequest is the wire form of a simulation request. Exactly one of
// temperature or (scenario_id, year) drives the run.
type simulateRequest struct {
	Temperature *float64 `json:"temperature" validate:"omitempty"`
	ScenarioID  string   `json:"scenario_id" validate:"omitempty,oneof=ssp126 ssp245 ssp585"`
	Year        int      `json:"year" validate:"omitempty,gte=1900,lte=2500"`
	Iterations  int      `json:"iterations" validate:"omitempty,gte=1,lte=1000000"`
	Seed        *uint32  `json:"seed"`
}

// simulateResponse carries the persisted run record plus the full sorted
// sample, which histogram consumers bin client-side.
type simulateResponse struct {
	Run          store.Run `json:"run"`
	SortedTotals []float64 `json:"sorted_totals"`
}

// floodLevelRequest selects the flood surface height. Naming a run_id
// resolves the chosen statistic from the persisted run server-side;
// otherwise sea_level_rise supplies the value directly.
type floodLevelRequest struct {
	SeaLevelRise *float64 `json:"sea_level_rise" validate:"omitempty,gte=0"`
	RunID        string   `json:"run_id"`
	Stat         string   `json:"stat" validate:"omitempty,oneof=mean median p5 p95"`
}

type floodComparisonRequest struct {
	Enabled bool `json:"enabled"`
}

type floodEvaluateRequest struct {
	Points []flood.Point `json:"points" validate:"required,min=1,max=65536"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	run, result, err := s.svc.RunSimulation(r.Context(), service.RunRequest{
		Temperature: req.Temperature,
		ScenarioID:  req.ScenarioID,
		Year:        req.Year,
		Iterations:  req.Iterations,
		Seed:        req.Seed,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, simulateResponse{
		Run:          run,
		SortedTotals: result.SortedTotals,
	})
}

func (s *Server) handleScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": scenario.All()})
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	scenarioID := r.URL.Query().Get("scenario")
	yearStr := r.URL.Query().Get("year")
	year, err := strconv.Atoi(yearStr)
	if scenarioID == "" || err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("scenario and numeric year query parameters are required"))
		return
	}

	temp, err := scenario.ProjectedTemperature(scenarioID, year)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scenario_id": scenarioID,
		"year":        year,
		"temperature": temp,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := s.svc.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleFloodLevel(w http.ResponseWriter, r *http.Request) {
	var req floodLevelRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	var seaLevelRise float64
	stat := req.Stat
	switch {
	case req.RunID != "":
		if stat == "" {
			stat = "median"
		}
		run, err := s.svc.GetRun(r.Context(), req.RunID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		v, ok := run.Stats.Stat(stat)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Errorf("unknown statistic %q", stat))
			return
		}
		seaLevelRise = v
	case req.SeaLevelRise != nil:
		seaLevelRise = *req.SeaLevelRise
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("either run_id or sea_level_rise is required"))
		return
	}

	state := s.session.SetFloodLevel(seaLevelRise, req.RunID, stat)
	s.metrics.SnapshotsActive.Set(countSnapshots(state))
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleFloodClear(w http.ResponseWriter, _ *http.Request) {
	state := s.session.ClearFlood()
	s.metrics.SnapshotsActive.Set(countSnapshots(state))
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleFloodComparison(w http.ResponseWriter, r *http.Request) {
	var req floodComparisonRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	state, err := s.session.SetComparison(req.Enabled)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleFloodEvaluate(w http.ResponseWriter, r *http.Request) {
	var req floodEvaluateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	decisions := s.session.Evaluate(req.Points)
	s.metrics.FloodEvaluations.Add(float64(len(decisions)))
	writeJSON(w, http.StatusOK, map[string]any{"decisions": decisions})
}

func (s *Server) handleFloodState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.State())
}

func countSnapshots(state flood.State) float64 {
	n := 0.0
	if state.Current != nil {
		n++
	}
	if state.Previous != nil {
		n++
	}
	return n
}

// decodeAndValidate parses the JSON body into dst and runs struct
// validation, writing a 400 response on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return false
	}
	return true
}

// writeServiceError maps domain errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scenario.ErrUnknownScenario), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, flood.ErrNoComparison):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, sim.ErrInvalidInput), errors.Is(err, service.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}
