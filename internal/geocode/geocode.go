package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrCityLookup is the single failure mode callers see: any HTTP-layer or
// decoding problem during reverse geocoding maps onto it.
var ErrCityLookup = errors.New("failed to get city name")

// Place is a reverse-geocoded location name.
type Place struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	State   string `json:"state,omitempty"`
}

// Client resolves coordinates into a place name.
type Client interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
}

// HTTPClient calls an OpenWeather-compatible reverse-geocoding endpoint.
// One GET per lookup, no retry, no caching.
type HTTPClient struct {
	apiKey string
	apiURL string
	client *http.Client
}

// NewHTTPClient creates a reverse-geocoding client.
func NewHTTPClient(apiKey, apiURL string, timeout time.Duration) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("geocode: API key is required")
	}
	return &HTTPClient{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// ReverseGeocode looks up the place name for lat/lon. Any failure is reported
// as ErrCityLookup with the cause attached.
func (c *HTTPClient) ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error) {
	req, err := c.buildRequest(ctx, lat, lon)
	if err != nil {
		return Place{}, fmt.Errorf("%w: %v", ErrCityLookup, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("%w: %v", ErrCityLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Place{}, fmt.Errorf("%w: HTTP %d", ErrCityLookup, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Place{}, fmt.Errorf("%w: %v", ErrCityLookup, err)
	}

	var places []Place
	if err := json.Unmarshal(body, &places); err != nil {
		return Place{}, fmt.Errorf("%w: %v", ErrCityLookup, err)
	}
	if len(places) == 0 {
		return Place{}, fmt.Errorf("%w: no match for coordinates", ErrCityLookup)
	}

	return places[0], nil
}

func (c *HTTPClient) buildRequest(ctx context.Context, lat, lon float64) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("limit", "1")
	params.Set("appid", c.apiKey)
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}
