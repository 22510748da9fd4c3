// LOCATION: internal/server/settings.go
//
// Runtime settings live in the database so the UI can reconfigure the
// providers without a restart. The token is never echoed back; GET only
// reports whether one is set.

package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/77degrees/climate-analyzer/config"
	"github.com/77degrees/climate-analyzer/internal/errors"
	"github.com/77degrees/climate-analyzer/internal/source/homeassistant"
	"github.com/77degrees/climate-analyzer/internal/source/nws"
	"github.com/77degrees/climate-analyzer/internal/store"
)

// SettingsOut is the settings response.
type SettingsOut struct {
	HAURL        string  `json:"ha_url"`
	HATokenSet   bool    `json:"ha_token_set"`
	NWSLat       float64 `json:"nws_lat"`
	NWSLon       float64 `json:"nws_lon"`
	NWSStationID string  `json:"nws_station_id"`
}

// settingsUpdate is the partial-update body.
type settingsUpdate struct {
	HAURL        *string  `json:"ha_url"`
	HAToken      *string  `json:"ha_token"`
	NWSLat       *float64 `json:"nws_lat"`
	NWSLon       *float64 `json:"nws_lon"`
	NWSStationID *string  `json:"nws_station_id"`
}

// ConnectionTest is the result of a provider connectivity check.
type ConnectionTest struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	EntitiesFound int    `json:"entities_found,omitempty"`
}

func (s *Server) settingsOut(r *http.Request) SettingsOut {
	ctx := r.Context()
	lat, _ := strconv.ParseFloat(s.store.GetSettingOr(ctx, store.SettingNWSLat, ""), 64)
	if lat == 0 {
		lat = config.DefaultNWSLat
	}
	lon, _ := strconv.ParseFloat(s.store.GetSettingOr(ctx, store.SettingNWSLon, ""), 64)
	if lon == 0 {
		lon = config.DefaultNWSLon
	}
	return SettingsOut{
		HAURL:        s.store.GetSettingOr(ctx, store.SettingHAURL, ""),
		HATokenSet:   s.store.GetSettingOr(ctx, store.SettingHAToken, "") != "",
		NWSLat:       lat,
		NWSLon:       lon,
		NWSStationID: s.store.GetSettingOr(ctx, store.SettingNWSStationID, ""),
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.settingsOut(r))
}

// handlePutSettings applies a partial settings update. Changing the
// coordinates clears the pinned station so the next weather poll
// re-resolves it.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var upd settingsUpdate
	if err := decodeJSON(r, &upd); err != nil {
		respondError(w, err)
		return
	}

	set := func(key, value string) bool {
		if err := s.store.SetSetting(ctx, key, value); err != nil {
			respondError(w, err)
			return false
		}
		return true
	}

	if upd.HAURL != nil && !set(store.SettingHAURL, *upd.HAURL) {
		return
	}
	if upd.HAToken != nil && !set(store.SettingHAToken, *upd.HAToken) {
		return
	}

	coordsChanged := false
	if upd.NWSLat != nil {
		if *upd.NWSLat < -90 || *upd.NWSLat > 90 {
			respondError(w, errors.NewValidation("nws_lat", "must be between -90 and 90"))
			return
		}
		if !set(store.SettingNWSLat, strconv.FormatFloat(*upd.NWSLat, 'f', -1, 64)) {
			return
		}
		coordsChanged = true
	}
	if upd.NWSLon != nil {
		if *upd.NWSLon < -180 || *upd.NWSLon > 180 {
			respondError(w, errors.NewValidation("nws_lon", "must be between -180 and 180"))
			return
		}
		if !set(store.SettingNWSLon, strconv.FormatFloat(*upd.NWSLon, 'f', -1, 64)) {
			return
		}
		coordsChanged = true
	}

	switch {
	case upd.NWSStationID != nil:
		if !set(store.SettingNWSStationID, *upd.NWSStationID) {
			return
		}
	case coordsChanged:
		if !set(store.SettingNWSStationID, "") {
			return
		}
	}

	s.cache.Invalidate(ctx)
	respondJSON(w, http.StatusOK, s.settingsOut(r))
}

// handleTestHA checks Home Assistant connectivity with the stored
// credentials and reports how many climate-relevant entities exist.
func (s *Server) handleTestHA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	url := s.store.GetSettingOr(ctx, store.SettingHAURL, "")
	token := s.store.GetSettingOr(ctx, store.SettingHAToken, "")
	if url == "" || token == "" {
		respondJSON(w, http.StatusOK, ConnectionTest{Success: false, Message: "URL or token not set"})
		return
	}

	client := homeassistant.NewClient(url, token, s.cfg.HATimeout)
	if err := client.TestConnection(ctx); err != nil {
		respondJSON(w, http.StatusOK, ConnectionTest{Success: false, Message: err.Error()})
		return
	}

	states, err := client.GetStates(ctx)
	if err != nil {
		respondJSON(w, http.StatusOK, ConnectionTest{Success: false, Message: err.Error()})
		return
	}

	respondJSON(w, http.StatusOK, ConnectionTest{
		Success:       true,
		Message:       "Connected to Home Assistant",
		EntitiesFound: len(homeassistant.ClimateEntities(states)),
	})
}

// handleTestNWS resolves a station from the stored coordinates and
// fetches its latest observation.
func (s *Server) handleTestNWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lat, _ := strconv.ParseFloat(s.store.GetSettingOr(ctx, store.SettingNWSLat, ""), 64)
	if lat == 0 {
		lat = config.DefaultNWSLat
	}
	lon, _ := strconv.ParseFloat(s.store.GetSettingOr(ctx, store.SettingNWSLon, ""), 64)
	if lon == 0 {
		lon = config.DefaultNWSLon
	}

	client := nws.NewClient("", s.cfg.NWSTimeout)
	station, err := client.ResolveStation(ctx, lat, lon)
	if err != nil {
		respondJSON(w, http.StatusOK, ConnectionTest{Success: false, Message: err.Error()})
		return
	}

	obs, err := client.LatestObservation(ctx, station)
	if err != nil {
		respondJSON(w, http.StatusOK, ConnectionTest{Success: false, Message: err.Error()})
		return
	}

	msg := fmt.Sprintf("Station %s: no recent observation", station)
	if obs != nil && obs.Temperature != nil {
		msg = fmt.Sprintf("Station %s: %.1f°F", station, *obs.Temperature)
	}
	respondJSON(w, http.StatusOK, ConnectionTest{Success: true, Message: msg, EntitiesFound: 1})
}

// handleDiscoverSensors triggers one on-demand discovery scan.
func (s *Server) handleDiscoverSensors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	url := s.store.GetSettingOr(ctx, store.SettingHAURL, "")
	token := s.store.GetSettingOr(ctx, store.SettingHAToken, "")
	if url == "" || token == "" {
		respondError(w, errors.NewValidation("home_assistant", "not configured"))
		return
	}

	src := homeassistant.NewDiscoverySource(s.store, 0, s.cfg.HATimeout)
	count, err := src.Poll(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"discovered": count})
}
