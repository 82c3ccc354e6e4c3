package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"weatheralert/internal/types"
)

// Upstream sources reported to the metrics collector and in response warnings.
const (
	sourceWeather      = "weather"
	sourceDisasterFeed = "disaster_feed"
)

// parseLocation reads the required lat and lon query parameters.
func parseLocation(r *http.Request) (types.Location, error) {
	lat, err := parseCoordinate(r, "lat")
	if err != nil {
		return types.Location{}, err
	}
	lon, err := parseCoordinate(r, "lon")
	if err != nil {
		return types.Location{}, err
	}

	loc := types.Location{Lat: lat, Lon: lon}
	if !loc.Valid() {
		return types.Location{}, types.MalformedInput("lat", "lat must be between -90 and 90 and lon between -180 and 180")
	}
	return loc, nil
}

func parseCoordinate(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, types.NewAppError(types.ErrCodeValidationMissingField, name+" query parameter is required", nil)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, types.MalformedInput(name, name+" must be a valid number")
	}
	return v, nil
}

// parseOptionalFloat returns 0 when the parameter is absent.
func parseOptionalFloat(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, types.MalformedInput(name, name+" must be a valid number")
	}
	return v, nil
}

// parseOptionalInt returns def when the parameter is absent.
func parseOptionalInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, types.MalformedInput(name, name+" must be a whole number")
	}
	return v, nil
}

func requireUserID(r *http.Request) (string, error) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		return "", types.NewAppError(types.ErrCodeValidationMissingField, "user_id query parameter is required", nil)
	}
	return userID, nil
}
