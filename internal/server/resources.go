// LOCATION: internal/server/resources.go
//
// Sensor and zone CRUD. Patch bodies use pointer fields so absent keys
// leave the stored value alone; zone_id 0 detaches a sensor from its
// zone.

package server

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/77degrees/climate-analyzer/internal/engine"
	"github.com/77degrees/climate-analyzer/internal/errors"
	"github.com/77degrees/climate-analyzer/internal/model"
)

// pathID extracts the numeric {id} route variable.
func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.NewValidation("id", "must be a positive integer")
	}
	return id, nil
}

// =============================================================================
// Sensors
// =============================================================================

func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	sensors, err := s.store.ListSensors(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if sensors == nil {
		sensors = []model.Sensor{}
	}
	respondJSON(w, http.StatusOK, sensors)
}

func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	sensor, err := s.store.GetSensor(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sensor)
}

// sensorPatch is the partial-update body for a sensor.
type sensorPatch struct {
	FriendlyName *string `json:"friendly_name"`
	DeviceClass  *string `json:"device_class"`
	Unit         *string `json:"unit"`
	ZoneID       *int64  `json:"zone_id"`
	IsOutdoor    *bool   `json:"is_outdoor"`
	IsTracked    *bool   `json:"is_tracked"`
}

func (s *Server) handlePatchSensor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var patch sensorPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, err)
		return
	}

	sensor, err := s.store.GetSensor(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}

	if patch.FriendlyName != nil {
		sensor.FriendlyName = *patch.FriendlyName
	}
	if patch.DeviceClass != nil {
		sensor.DeviceClass = patch.DeviceClass
	}
	if patch.Unit != nil {
		sensor.Unit = patch.Unit
	}
	if patch.ZoneID != nil {
		if *patch.ZoneID == 0 {
			sensor.ZoneID = nil
		} else {
			if _, err := s.store.GetZone(ctx, *patch.ZoneID); err != nil {
				respondError(w, err)
				return
			}
			sensor.ZoneID = patch.ZoneID
		}
	}
	if patch.IsOutdoor != nil {
		sensor.IsOutdoor = *patch.IsOutdoor
	}
	if patch.IsTracked != nil {
		sensor.IsTracked = *patch.IsTracked
	}

	if err := s.store.UpdateSensor(ctx, sensor); err != nil {
		respondError(w, err)
		return
	}

	s.cache.Invalidate(ctx)
	respondJSON(w, http.StatusOK, sensor)
}

// =============================================================================
// Zones
// =============================================================================

func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	zones, err := s.store.ListZones(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if zones == nil {
		zones = []model.Zone{}
	}
	respondJSON(w, http.StatusOK, zones)
}

// zoneBody is the create body and patch body for a zone.
type zoneBody struct {
	Name      *string `json:"name"`
	Color     *string `json:"color"`
	SortOrder *int    `json:"sort_order"`
}

func (s *Server) handleCreateZone(w http.ResponseWriter, r *http.Request) {
	var body zoneBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, err)
		return
	}
	if body.Name == nil || *body.Name == "" {
		respondError(w, errors.NewMissingField("name"))
		return
	}

	zone := model.Zone{Name: *body.Name}
	if body.Color != nil {
		zone.Color = *body.Color
	}
	if body.SortOrder != nil {
		zone.SortOrder = *body.SortOrder
	}

	if err := s.store.CreateZone(r.Context(), &zone); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, zone)
}

func (s *Server) handlePatchZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var body zoneBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, err)
		return
	}

	zone, err := s.store.GetZone(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}

	if body.Name != nil {
		if *body.Name == "" {
			respondError(w, errors.NewValidation("name", "must not be empty"))
			return
		}
		zone.Name = *body.Name
	}
	if body.Color != nil {
		zone.Color = *body.Color
	}
	if body.SortOrder != nil {
		zone.SortOrder = *body.SortOrder
	}

	if err := s.store.UpdateZone(ctx, zone); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, zone)
}

func (s *Server) handleDeleteZone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := s.store.DeleteZone(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	s.cache.Invalidate(r.Context())
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleZoneCurrent returns the zone's live rollup: mean temperature
// and humidity across members plus the thermostat's mode/action.
func (s *Server) handleZoneCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if _, err := s.store.GetZone(ctx, id); err != nil {
		respondError(w, err)
		return
	}

	members, err := s.store.SensorsInZone(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}

	snapshot, err := engine.ZoneCurrent(ctx, s.store, members)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}
