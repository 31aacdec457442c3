package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hushwa3/WeatherAppSIA/internal/fetcher"
	"github.com/hushwa3/WeatherAppSIA/internal/geocode"
	"github.com/hushwa3/WeatherAppSIA/internal/lifecycle"
	"github.com/hushwa3/WeatherAppSIA/internal/validation"
	"github.com/hushwa3/WeatherAppSIA/internal/weather"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weather *weather.Service
	logger  *zap.Logger
	// StorePing, when set, is called by the health handler to check the
	// store backend. Used when the backend is memcached.
	storePing func() error
}

// NewHandler returns a new Handler. storePing may be nil.
func NewHandler(weatherService *weather.Service, logger *zap.Logger, storePing func() error) *Handler {
	return &Handler{
		weather:   weatherService,
		logger:    logger,
		storePing: storePing,
	}
}

// coords extracts and validates lat/lon query parameters, writing the 400
// response itself on failure.
func (h *Handler) coords(w http.ResponseWriter, r *http.Request) (lat, lon float64, ok bool) {
	lat, lon, err := validation.ParseCoordinates(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
		return 0, 0, false
	}
	return lat, lon, true
}

// GetCurrentWeather handles GET /weather/current?lat=&lon=.
func (h *Handler) GetCurrentWeather(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := h.coords(w, r)
	if !ok {
		return
	}
	raw, err := h.weather.CurrentWeather(r.Context(), lat, lon)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, raw)
}

// GetVisibility handles GET /weather/visibility?lat=&lon=.
func (h *Handler) GetVisibility(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := h.coords(w, r)
	if !ok {
		return
	}
	raw, err := h.weather.VisibilityData(r.Context(), lat, lon)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, raw)
}

// GetWeekly handles GET /weather/weekly?lat=&lon=.
func (h *Handler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := h.coords(w, r)
	if !ok {
		return
	}
	raw, err := h.weather.WeeklyWeather(r.Context(), lat, lon)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, raw)
}

// GetHourly handles GET /weather/hourly?lat=&lon=.
func (h *Handler) GetHourly(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := h.coords(w, r)
	if !ok {
		return
	}
	raw, err := h.weather.HourlyWeather(r.Context(), lat, lon)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, raw)
}

// GetHighLow handles GET /weather/highlow?lat=&lon=.
func (h *Handler) GetHighLow(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := h.coords(w, r)
	if !ok {
		return
	}
	highLow, err := h.weather.HighLowTemperature(r.Context(), lat, lon)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, highLow)
}

// GetCurrentLocation handles GET /location/current.
func (h *Handler) GetCurrentLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := h.weather.CurrentLocation(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// GetSelectedLocation handles GET /location/selected.
func (h *Handler) GetSelectedLocation(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.weather.SelectedLocation(r.Context())
	if !ok {
		writeError(w, r, http.StatusNotFound, "NO_SELECTED_LOCATION", "no location has been selected")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

type selectedLocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	City      string   `json:"city"`
}

// PostSelectedLocation handles POST /location/selected.
func (h *Handler) PostSelectedLocation(w http.ResponseWriter, r *http.Request) {
	var req selectedLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "body must be JSON with latitude and longitude")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "latitude and longitude are required")
		return
	}
	if *req.Latitude < -90 || *req.Latitude > 90 {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", validation.ErrLatitudeInvalid.Error())
		return
	}
	if *req.Longitude < -180 || *req.Longitude > 180 {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", validation.ErrLongitudeInvalid.Error())
		return
	}

	loc := h.weather.SetSelectedLocation(*req.Latitude, *req.Longitude, req.City)
	writeJSON(w, http.StatusOK, loc)
}

// DeleteCache handles DELETE /cache: wipes the whole local store.
func (h *Handler) DeleteCache(w http.ResponseWriter, r *http.Request) {
	if err := h.weather.ClearCache(r.Context()); err != nil {
		writeError(w, r, http.StatusInternalServerError, "CLEAR_FAILED", "failed to clear cache")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	statusCode := http.StatusOK
	if lifecycle.IsShuttingDown() {
		status = "shutting-down"
		statusCode = http.StatusServiceUnavailable
	}

	checks := map[string]string{}
	if h.storePing != nil {
		if h.storePing() == nil {
			checks["store"] = "healthy"
		} else {
			checks["store"] = "unhealthy"
			if statusCode == http.StatusOK {
				status = "degraded"
			}
		}
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status":    status,
		"service":   "weatherapp-data-service",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps domain sentinel errors onto HTTP responses. The
// response body carries the same fixed message the error does.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, fetcher.ErrNoCachedData), errors.Is(err, weather.ErrNoCachedLocation):
		writeError(w, r, http.StatusServiceUnavailable, "OFFLINE_NO_DATA", rootMessage(err))
	case errors.Is(err, weather.ErrInvalidForecast):
		writeError(w, r, http.StatusBadGateway, "INVALID_UPSTREAM_DATA", rootMessage(err))
	case errors.Is(err, geocode.ErrCityLookup):
		writeError(w, r, http.StatusBadGateway, "GEOCODE_FAILED", rootMessage(err))
	case errors.Is(err, fetcher.ErrFetchFailed),
		errors.Is(err, weather.ErrWeatherFetch),
		errors.Is(err, weather.ErrHighLowFetch):
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_FAILURE", rootMessage(err))
	default:
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

// rootMessage picks the sentinel's fixed message out of a wrapped error chain.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		fetcher.ErrNoCachedData,
		fetcher.ErrFetchFailed,
		weather.ErrNoCachedLocation,
		weather.ErrWeatherFetch,
		weather.ErrInvalidForecast,
		weather.ErrHighLowFetch,
		geocode.ErrCityLookup,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, statusCode int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(raw)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		if s, ok := v.(string); ok {
			corrID = s
		}
	}
	writeJSON(w, statusCode, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
