package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrPositionUnavailable is returned when the provider cannot produce a fix.
var ErrPositionUnavailable = errors.New("position unavailable")

// Coordinates is a raw geolocation fix, before reverse geocoding.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Options control a single position request. Timeout bounds the whole call;
// HighAccuracy asks the provider for its best fix where it distinguishes
// accuracy levels.
type Options struct {
	Timeout      time.Duration
	HighAccuracy bool
}

// DefaultOptions is the position request the location resolver issues.
var DefaultOptions = Options{
	Timeout:      10 * time.Second,
	HighAccuracy: true,
}

// Provider obtains the device's current coordinates.
type Provider interface {
	CurrentPosition(ctx context.Context, opts Options) (Coordinates, error)
}

// DefaultResolveURL is the IP-geolocation endpoint used when none is configured.
const DefaultResolveURL = "http://ip-api.com/json"

// RestProvider resolves the host position from its public IP via an
// ip-api style JSON endpoint. It has a single accuracy level, so
// Options.HighAccuracy is accepted but has no effect here.
type RestProvider struct {
	resolveURL string
	client     *http.Client
}

// NewRestProvider creates a provider against resolveURL (DefaultResolveURL
// when empty).
func NewRestProvider(resolveURL string) *RestProvider {
	if resolveURL == "" {
		resolveURL = DefaultResolveURL
	}
	return &RestProvider{
		resolveURL: resolveURL,
		client:     &http.Client{},
	}
}

type positionResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// CurrentPosition issues one GET against the resolve endpoint. The request is
// bounded by opts.Timeout (DefaultOptions.Timeout when zero).
func (p *RestProvider) CurrentPosition(ctx context.Context, opts Options) (Coordinates, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultOptions.Timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.resolveURL+"?fields=status,message,lat,lon", nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("build position request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("%w: HTTP %d", ErrPositionUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Coordinates{}, fmt.Errorf("read position response: %w", err)
	}

	var pos positionResponse
	if err := json.Unmarshal(body, &pos); err != nil {
		return Coordinates{}, fmt.Errorf("parse position response: %w", err)
	}
	if pos.Status != "" && pos.Status != "success" {
		return Coordinates{}, fmt.Errorf("%w: %s", ErrPositionUnavailable, pos.Message)
	}

	return Coordinates{Latitude: pos.Lat, Longitude: pos.Lon}, nil
}
