// LOCATION: internal/server/ops.go
//
// Operational endpoints: health probe and the combined stats view
// (database counts + per-source collection health).

package server

import (
	"net/http"

	"github.com/77degrees/climate-analyzer/internal/collector"
	"github.com/77degrees/climate-analyzer/internal/store"
)

// StatsResponse combines database and collection statistics.
type StatsResponse struct {
	Database      *store.Stats            `json:"database"`
	Sources       []collector.SourceStats `json:"sources"`
	Backpressure  int64                   `json:"backpressure"`
	UptimeSeconds float64                 `json:"uptime_seconds"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	dbStats, err := s.store.GetStats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	resp := StatsResponse{
		Database:      dbStats,
		Sources:       []collector.SourceStats{},
		UptimeSeconds: s.uptime().Seconds(),
	}
	if s.stats != nil {
		resp.Sources = s.stats.Stats()
		resp.Backpressure = s.stats.Backpressure()
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
