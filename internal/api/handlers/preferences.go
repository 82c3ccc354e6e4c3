package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"weatheralert/internal/core"
	"weatheralert/internal/types"
)

// PreferencesStore is satisfied by *db.PreferencesRepository.
type PreferencesStore interface {
	Upsert(ctx context.Context, p types.UserPreferences) (*types.UserPreferences, error)
	Get(ctx context.Context, userID string) (*types.UserPreferences, error)
	Delete(ctx context.Context, userID string) error
}

// PreferencesRequest is the body of PUT /v1/preferences/{userID}.
// NotificationEnabled defaults to true and TemperatureUnit to celsius.
type PreferencesRequest struct {
	UserType            string          `json:"user_type" validate:"required,user_type"`
	CustomThresholds    map[string]any  `json:"custom_thresholds,omitempty"`
	NotificationEnabled *bool           `json:"notification_enabled,omitempty"`
	TemperatureUnit     string          `json:"temperature_unit,omitempty" validate:"temperature_unit"`
	HomeLocation        *types.Location `json:"home_location,omitempty"`
}

// ValidationWarnings reports custom threshold entries that will not be stored.
func (r *PreferencesRequest) ValidationWarnings() []string {
	return ignoredThresholdWarnings(r.CustomThresholds)
}

// PreferencesHandler serves the user preference endpoints.
type PreferencesHandler struct {
	store     PreferencesStore
	validator *core.Validator
	logger    *slog.Logger
}

// NewPreferencesHandler creates a PreferencesHandler.
func NewPreferencesHandler(store PreferencesStore, val *core.Validator, logger *slog.Logger) *PreferencesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferencesHandler{store: store, validator: val, logger: logger}
}

// RegisterRoutes mounts the preference endpoints onto r.
func (h *PreferencesHandler) RegisterRoutes(r chi.Router) {
	r.Put("/{userID}", h.HandlePut)
	r.Get("/{userID}", h.HandleGet)
	r.Delete("/{userID}", h.HandleDelete)
}

// HandlePut handles PUT /v1/preferences/{userID}. The stored record is
// replaced, not merged.
func (h *PreferencesHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req PreferencesRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	result := h.validator.ValidateStructWithWarnings(&req)
	if err := result.Err(); err != nil {
		core.Error(w, r, err)
		return
	}
	if req.HomeLocation != nil && !req.HomeLocation.Valid() {
		core.Error(w, r, types.MalformedInput("home_location", "home_location must hold a valid lat and lon"))
		return
	}

	// Validated by the user_type tag above.
	userType, _ := types.ParseUserType(req.UserType)
	overrides, _ := types.ParseThresholdOverrides(req.CustomThresholds)

	prefs := types.UserPreferences{
		UserID:              userID,
		UserType:            userType,
		CustomThresholds:    overrides,
		NotificationEnabled: true,
		TemperatureUnit:     types.UnitCelsius,
		HomeLocation:        req.HomeLocation,
	}
	if req.NotificationEnabled != nil {
		prefs.NotificationEnabled = *req.NotificationEnabled
	}
	if req.TemperatureUnit != "" {
		prefs.TemperatureUnit = types.TemperatureUnit(req.TemperatureUnit)
	}

	saved, err := h.store.Upsert(r.Context(), prefs)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "preferences saved",
		"user_id", userID,
		"user_type", saved.UserType,
		"notifications", saved.NotificationEnabled,
	)

	body := core.APIResponse{Data: saved}
	if len(result.Warnings) > 0 {
		body.Meta = &types.ResponseMeta{Warnings: result.Warnings}
	}
	core.JSON(w, r, http.StatusOK, body)
}

// HandleGet handles GET /v1/preferences/{userID}. A user without stored
// preferences is a 404.
func (h *PreferencesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	prefs, err := h.store.Get(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: prefs})
}

// HandleDelete handles DELETE /v1/preferences/{userID}.
func (h *PreferencesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.store.Delete(r.Context(), userID); err != nil {
		core.Error(w, r, err)
		return
	}
	core.NoContent(w)
}

func userIDParam(r *http.Request) (string, error) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" || len(userID) > 128 {
		return "", types.MalformedInput("user_id", "user_id must be between 1 and 128 characters")
	}
	return userID, nil
}
