// LOCATION: internal/server/metrics.go
//
// Analytics endpoints. Each one resolves the window via metricWindow,
// consults the optional cache, and delegates to the engine. A missing
// sensor (no tracked thermostat yet) returns the endpoint's empty
// shape with 200.

package server

import (
	"net/http"
	"time"

	"github.com/77degrees/climate-analyzer/internal/cache"
	"github.com/77degrees/climate-analyzer/internal/engine"
)

// cacheDayKey buckets cache keys by window so entries from different
// day spans never collide.
func cacheDayKey(endpoint string, sensorID int64, start, end time.Time) string {
	return cache.Key(endpoint, sensorID, start.Format("2006-01-02T15"), end.Format("2006-01-02T15"))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sensorID, start, end, err := s.metricWindow(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if sensorID == 0 {
		respondJSON(w, http.StatusOK, engine.Summary{})
		return
	}

	key := cacheDayKey("summary", sensorID, start, end)
	var cached engine.Summary
	if s.cache.Get(r.Context(), key, &cached) {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := s.engine.ComputeSummary(r.Context(), sensorID, start, end)
	if err != nil {
		respondError(w, err)
		return
	}
	s.cache.Set(r.Context(), key, summary)
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRecovery(w http.ResponseWriter, r *http.Request) {
	sensorID, start, end, err := s.metricWindow(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if sensorID == 0 {
		respondJSON(w, http.StatusOK, []engine.RecoveryEvent{})
		return
	}

	events, err := s.engine.RecoveryEvents(r.Context(), sensorID, start, end)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (s *Server) handleDutyCycle(w http.ResponseWriter, r *http.Request) {
	sensorID, start, end, err := s.metricWindow(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if sensorID == 0 {
		respondJSON(w, http.StatusOK, []engine.DutyCycleDay{})
		return
	}

	key := cacheDayKey("duty-cycle", sensorID, start, end)
	var cached []engine.DutyCycleDay
	if s.cache.Get(r.Context(), key, &cached) {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	days, err := s.engine.DutyCycle(r.Context(), sensorID, start, end)
	if err != nil {
		respondError(w, err)
		return
	}
	s.cache.Set(r.Context(), key, days)
	respondJSON(w, http.StatusOK, days)
}

func (s *Server) handleHoldEfficiency(w http.ResponseWriter, r *http.Request) {
	sensorID, start, end, err := s.metricWindow(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if sensorID == 0 {
		respondJSON(w, http.StatusOK, map[string]float64{"hold_efficiency": 0})
		return
	}

	eff, err := s.engine.HoldEfficiency(r.Context(), sensorID, start, end)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]float64{"hold_efficiency": eff})
}

func (s *Server) handleEnergyProfile(w http.ResponseWriter, r *http.Request) {
	sensorID, start, end, err := s.metricWindow(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if sensorID == 0 {
		respondJSON(w, http.StatusOK, []engine.EnergyDay{})
		return
	}

	key := cacheDayKey("energy-profile", sensorID, start, end)
	var cached []engine.EnergyDay
	if s.cache.Get(r.Context(), key, &cached) {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	days, err := s.engine.EnergyProfile(r.Context(), sensorID, start, end)
	if err != nil {
		respondError(w, err)
		return
	}
	s.cache.Set(r.Context(), key, days)
	respondJSON(w, http.StatusOK, days)
}

func (s *Server) handleMonthlyTrends(w http.ResponseWriter, r *http.Request) {
	sensorID, start, end, err := s.metricWindow(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if sensorID == 0 {
		respondJSON(w, http.StatusOK, []engine.MonthlyTrend{})
		return
	}

	key := cacheDayKey("monthly-trends", sensorID, start, end)
	var cached []engine.MonthlyTrend
	if s.cache.Get(r.Context(), key, &cached) {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	trends, err := s.engine.MonthlyTrends(r.Context(), sensorID, start, end)
	if err != nil {
		respondError(w, err)
		return
	}
	s.cache.Set(r.Context(), key, trends)
	respondJSON(w, http.StatusOK, trends)
}

func (s *Server) handleTempBins(w http.ResponseWriter, r *http.Request) {
	sensorID, start, end, err := s.metricWindow(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if sensorID == 0 {
		respondJSON(w, http.StatusOK, []engine.TempBin{})
		return
	}

	binSize := queryFloat(r, "bin_size", s.engine.Params().TempBinSize)

	bins, err := s.engine.TempBins(r.Context(), sensorID, start, end, binSize)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bins)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	sensorID, start, end, err := s.metricWindow(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if sensorID == 0 {
		respondJSON(w, http.StatusOK, []engine.HeatmapCell{})
		return
	}

	key := cacheDayKey("heatmap", sensorID, start, end)
	var cached []engine.HeatmapCell
	if s.cache.Get(r.Context(), key, &cached) {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	cells, err := s.engine.ActivityHeatmap(r.Context(), sensorID, start, end)
	if err != nil {
		respondError(w, err)
		return
	}
	s.cache.Set(r.Context(), key, cells)
	respondJSON(w, http.StatusOK, cells)
}

func (s *Server) handleSetpointHistory(w http.ResponseWriter, r *http.Request) {
	sensorID, start, end, err := s.metricWindow(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if sensorID == 0 {
		respondJSON(w, http.StatusOK, []engine.SetpointPoint{})
		return
	}

	points, err := s.engine.SetpointHistory(r.Context(), sensorID, start, end)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, points)
}

func (s *Server) handleACStruggle(w http.ResponseWriter, r *http.Request) {
	sensorID, start, end, err := s.metricWindow(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if sensorID == 0 {
		respondJSON(w, http.StatusOK, []engine.StruggleDay{})
		return
	}

	key := cacheDayKey("ac-struggle", sensorID, start, end)
	var cached []engine.StruggleDay
	if s.cache.Get(r.Context(), key, &cached) {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	days, err := s.engine.ACStruggle(r.Context(), sensorID, start, end)
	if err != nil {
		respondError(w, err)
		return
	}
	s.cache.Set(r.Context(), key, days)
	respondJSON(w, http.StatusOK, days)
}
