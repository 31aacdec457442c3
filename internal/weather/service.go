package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hushwa3/WeatherAppSIA/internal/alert"
	"github.com/hushwa3/WeatherAppSIA/internal/fetcher"
	"github.com/hushwa3/WeatherAppSIA/internal/geocode"
	"github.com/hushwa3/WeatherAppSIA/internal/geolocation"
	"github.com/hushwa3/WeatherAppSIA/internal/models"
	"github.com/hushwa3/WeatherAppSIA/internal/netstatus"
	"github.com/hushwa3/WeatherAppSIA/internal/selected"
	"github.com/hushwa3/WeatherAppSIA/internal/store"
)

var (
	// ErrNoCachedLocation is returned when offline with no stored location.
	ErrNoCachedLocation = errors.New("no cached location available")
	// ErrWeatherFetch is returned when a weather payload cannot be obtained.
	ErrWeatherFetch = errors.New("failed to fetch weather data")
	// ErrInvalidForecast is returned when the forecast payload lacks the entry list.
	ErrInvalidForecast = errors.New("forecast data is invalid")
	// ErrHighLowFetch wraps any fetch-level failure during high/low derivation.
	ErrHighLowFetch = errors.New("failed to fetch high/low temperatures")
)

// Config holds the upstream endpoints and cache policy. The API key is
// injected here at construction; nothing reads it from the environment at
// call time.
type Config struct {
	APIKey      string
	WeatherURL  string
	ForecastURL string
	Units       string
	CacheMaxAge time.Duration
	// TimeZone localizes sunrise/sunset strings. Nil means the process-local zone.
	TimeZone *time.Location
}

// Deps are the collaborators the service orchestrates.
type Deps struct {
	Fetcher  *fetcher.Fetcher
	Probe    netstatus.Probe
	Store    store.Store
	Position geolocation.Provider
	Geocoder geocode.Client
	Stream   *selected.Stream
	Notifier alert.Notifier
	Logger   *zap.Logger
}

// Service is the data-access layer behind the weather screen: location
// resolution, endpoint-specific accessors over the cache-aware fetcher, and
// the selected-location stream.
type Service struct {
	cfg  Config
	deps Deps
	tz   *time.Location
}

// New validates cfg and creates a Service.
func New(cfg Config, deps Deps) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("weather: API key is required")
	}
	if cfg.WeatherURL == "" {
		cfg.WeatherURL = "https://api.openweathermap.org/data/2.5/weather"
	}
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = "https://api.openweathermap.org/data/2.5/forecast"
	}
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	if cfg.CacheMaxAge <= 0 {
		cfg.CacheMaxAge = fetcher.DefaultMaxAge
	}
	for _, base := range []string{cfg.WeatherURL, cfg.ForecastURL} {
		if _, err := url.Parse(base); err != nil {
			return nil, fmt.Errorf("weather: invalid endpoint URL %q: %w", base, err)
		}
	}
	tz := cfg.TimeZone
	if tz == nil {
		tz = time.Local
	}
	return &Service{cfg: cfg, deps: deps, tz: tz}, nil
}

// CurrentLocation resolves the device location. Offline it falls back to the
// stored value; online it takes a fresh fix, reverse-geocodes the city, and
// persists the result. Every failure is surfaced as a user alert before the
// error is returned.
func (s *Service) CurrentLocation(ctx context.Context) (models.Location, error) {
	online, err := s.deps.Probe.Status(ctx)
	if err != nil {
		s.deps.Notifier.Notify(ctx, "Unable to determine network status.")
		return models.Location{}, fmt.Errorf("connectivity check: %w", err)
	}

	if !online {
		return s.storedLocation(ctx)
	}

	coords, err := s.deps.Position.CurrentPosition(ctx, geolocation.DefaultOptions)
	if err != nil {
		s.deps.Notifier.Notify(ctx, "Unable to determine your location.")
		return models.Location{}, fmt.Errorf("position: %w", err)
	}

	place, err := s.deps.Geocoder.ReverseGeocode(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		s.deps.Notifier.Notify(ctx, "Failed to get city name.")
		return models.Location{}, err
	}

	loc := models.Location{
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		City:      place.Name,
	}
	if err := s.saveLocation(ctx, models.KeyCurrentLocation, loc); err != nil {
		s.deps.Notifier.Notify(ctx, "Failed to save your location.")
		return models.Location{}, fmt.Errorf("persist current location: %w", err)
	}
	return loc, nil
}

// storedLocation serves the offline path of CurrentLocation.
func (s *Service) storedLocation(ctx context.Context) (models.Location, error) {
	raw, ok, err := s.deps.Store.Get(ctx, models.KeyCurrentLocation)
	if err != nil {
		s.deps.Logger.Warn("location read failed", zap.Error(err))
		ok = false
	}
	if ok {
		var loc models.Location
		if err := json.Unmarshal(raw, &loc); err != nil {
			s.deps.Logger.Warn("stored location undecodable", zap.Error(err))
		} else {
			return loc, nil
		}
	}
	s.deps.Notifier.Notify(ctx, "You are offline and no saved location is available.")
	return models.Location{}, ErrNoCachedLocation
}

// SetSelectedLocation publishes the location the user is viewing to the
// stream synchronously and persists it in the background. The write is
// fire-and-forget; a failure is logged, never returned.
func (s *Service) SetSelectedLocation(lat, lon float64, city string) models.Location {
	loc := models.Location{Latitude: lat, Longitude: lon, City: city}
	s.deps.Stream.Publish(loc)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.saveLocation(ctx, models.KeySelectedLocation, loc); err != nil {
			s.deps.Logger.Warn("selected location write failed", zap.Error(err))
		}
	}()
	return loc
}

// SelectedLocation returns the location the user is currently viewing: the
// latest streamed value, or the persisted one from a previous run.
func (s *Service) SelectedLocation(ctx context.Context) (models.Location, bool) {
	if loc, ok := s.deps.Stream.Latest(); ok {
		return loc, true
	}
	raw, ok, err := s.deps.Store.Get(ctx, models.KeySelectedLocation)
	if err != nil || !ok {
		return models.Location{}, false
	}
	var loc models.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return models.Location{}, false
	}
	return loc, true
}

func (s *Service) saveLocation(ctx context.Context, key string, loc models.Location) error {
	raw, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	return s.deps.Store.Set(ctx, key, raw)
}

// CurrentWeather returns the current-conditions payload with sys.sunrise and
// sys.sunset converted to localized 12-hour clock strings under top-level
// "sunrise"/"sunset" keys (null when the response has no sys block). All
// other fields pass through untouched.
func (s *Service) CurrentWeather(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	raw, err := s.deps.Fetcher.FetchWithCache(ctx, s.endpoint(s.cfg.WeatherURL, lat, lon), weatherKey(lat, lon), s.cfg.CacheMaxAge)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWeatherFetch, err)
	}
	return s.annotateSunTimes(raw)
}

// VisibilityData returns the same current-conditions payload; the visibility
// card reads its field from there.
func (s *Service) VisibilityData(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	return s.CurrentWeather(ctx, lat, lon)
}

// WeeklyWeather returns the raw forecast payload.
func (s *Service) WeeklyWeather(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	raw, err := s.deps.Fetcher.FetchWithCache(ctx, s.endpoint(s.cfg.ForecastURL, lat, lon), weeklyKey(lat, lon), s.cfg.CacheMaxAge)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWeatherFetch, err)
	}
	return raw, nil
}

// HourlyWeather returns the raw forecast payload under the hourly cache key.
func (s *Service) HourlyWeather(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	raw, err := s.deps.Fetcher.FetchWithCache(ctx, s.endpoint(s.cfg.ForecastURL, lat, lon), hourlyKey(lat, lon), s.cfg.CacheMaxAge)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWeatherFetch, err)
	}
	return raw, nil
}

type forecastEnvelope struct {
	List []struct {
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
	} `json:"list"`
}

// HighLowTemperature derives the min and max of every forecast entry's
// main.temp, each rounded to the nearest integer.
func (s *Service) HighLowTemperature(ctx context.Context, lat, lon float64) (models.HighLow, error) {
	raw, err := s.WeeklyWeather(ctx, lat, lon)
	if err != nil {
		return models.HighLow{}, fmt.Errorf("%w: %w", ErrHighLowFetch, err)
	}

	var env forecastEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.List) == 0 {
		s.deps.Notifier.Notify(ctx, "Forecast data is invalid.")
		return models.HighLow{}, ErrInvalidForecast
	}

	high := env.List[0].Main.Temp
	low := high
	for _, entry := range env.List[1:] {
		if entry.Main.Temp > high {
			high = entry.Main.Temp
		}
		if entry.Main.Temp < low {
			low = entry.Main.Temp
		}
	}
	return models.HighLow{
		High: int(math.Round(high)),
		Low:  int(math.Round(low)),
	}, nil
}

// ClearCache wipes the entire local store, locations included.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.deps.Store.Clear(ctx)
}

// Close tears down the selected-location stream. Subscribers receive nothing
// after this.
func (s *Service) Close() {
	s.deps.Stream.Close()
}

// annotateSunTimes injects top-level sunrise/sunset clock strings into the
// payload, leaving every other field as the API returned it.
func (s *Service) annotateSunTimes(raw json.RawMessage) (json.RawMessage, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWeatherFetch, err)
	}

	payload["sunrise"] = nil
	payload["sunset"] = nil
	if sys, ok := payload["sys"].(map[string]interface{}); ok {
		if v, ok := sys["sunrise"].(float64); ok {
			payload["sunrise"] = s.clockTime(int64(v))
		}
		if v, ok := sys["sunset"].(float64); ok {
			payload["sunset"] = s.clockTime(int64(v))
		}
	}

	out, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWeatherFetch, err)
	}
	return out, nil
}

// clockTime formats a Unix-seconds timestamp as a 12-hour clock string in the
// configured timezone.
func (s *Service) clockTime(unixSec int64) string {
	return time.Unix(unixSec, 0).In(s.tz).Format("3:04 PM")
}

// endpoint builds the upstream URL for lat/lon against base.
func (s *Service) endpoint(base string, lat, lon float64) string {
	u, err := url.Parse(base)
	if err != nil {
		// Bases are validated in New; an unparsable one cannot reach here.
		return base
	}
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("units", s.cfg.Units)
	q.Set("appid", s.cfg.APIKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// Cache keys. The weekly key keeps unrounded coordinates while weather and
// hourly round to 6 decimals; existing caches depend on both formats, so
// neither side gets "fixed".
func weatherKey(lat, lon float64) string {
	return fmt.Sprintf("weather_%.6f_%.6f", lat, lon)
}

func weeklyKey(lat, lon float64) string {
	return fmt.Sprintf("weekly_%v_%v", lat, lon)
}

func hourlyKey(lat, lon float64) string {
	return fmt.Sprintf("hourly_%.6f_%.6f", lat, lon)
}
