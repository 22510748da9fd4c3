// LOCATION: internal/server/respond.go
//
// JSON response helpers and shared query-parameter parsing.

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/77degrees/climate-analyzer/internal/errors"
)

// respondJSON writes data as JSON with the given status.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error("encode response", "error", err)
		}
	}
}

// respondError maps the error to an HTTP status and writes a JSON body.
func respondError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= 500 {
		log.Error("request failed", "error", err)
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeJSON parses the request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewValidation("body", "malformed JSON")
	}
	return nil
}

// queryInt returns an integer query parameter or the fallback when
// absent. A malformed value also falls back.
func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// queryFloat returns a float query parameter or the fallback.
func queryFloat(r *http.Request, key string, fallback float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

// timeWindow resolves a request's time range. Explicit start/end (RFC
// 3339) win; otherwise the range is the trailing `hours` (default 24,
// capped at three years).
func timeWindow(r *http.Request) (start, end time.Time, err error) {
	q := r.URL.Query()
	if rawStart, rawEnd := q.Get("start"), q.Get("end"); rawStart != "" && rawEnd != "" {
		start, err = time.Parse(time.RFC3339, rawStart)
		if err != nil {
			return start, end, errors.NewValidation("start", "must be RFC 3339")
		}
		end, err = time.Parse(time.RFC3339, rawEnd)
		if err != nil {
			return start, end, errors.NewValidation("end", "must be RFC 3339")
		}
		return start.UTC(), end.UTC(), nil
	}

	hours := queryInt(r, "hours", 24)
	if hours < 1 || hours > 26280 {
		return start, end, errors.NewValidation("hours", "must be between 1 and 26280")
	}
	end = time.Now().UTC()
	return end.Add(-time.Duration(hours) * time.Hour), end, nil
}

// metricWindow resolves a metrics request: the trailing `days` window
// (1-365, default 7) and the target sensor. sensorID is 0 when no
// tracked thermostat exists; callers respond with the empty shape.
func (s *Server) metricWindow(r *http.Request) (sensorID int64, start, end time.Time, err error) {
	days := queryInt(r, "days", 7)
	if days < 1 || days > 365 {
		return 0, start, end, errors.NewValidation("days", "must be between 1 and 365")
	}
	end = time.Now().UTC()
	start = end.AddDate(0, 0, -days)

	if raw := r.URL.Query().Get("sensor_id"); raw != "" {
		sensorID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || sensorID < 1 {
			return 0, start, end, errors.NewValidation("sensor_id", "must be a positive integer")
		}
		return sensorID, start, end, nil
	}

	sensor, err := s.store.FirstTrackedClimateSensor(r.Context())
	if err != nil {
		if errors.IsNotFound(err) {
			return 0, start, end, nil
		}
		return 0, start, end, err
	}
	return sensor.ID, start, end, nil
}
