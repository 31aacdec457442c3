package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hushwa3/WeatherAppSIA/internal/alert"
	"github.com/hushwa3/WeatherAppSIA/internal/models"
	"github.com/hushwa3/WeatherAppSIA/internal/netstatus"
	"github.com/hushwa3/WeatherAppSIA/internal/observability"
	"github.com/hushwa3/WeatherAppSIA/internal/store"
)

var (
	// ErrNoCachedData is returned when offline and no fresh cache entry exists.
	ErrNoCachedData = errors.New("no valid cached data available")
	// ErrFetchFailed is returned when the online fetch fails.
	ErrFetchFailed = errors.New("failed to fetch data")
)

// DefaultMaxAge is the freshness window applied when a caller passes zero.
const DefaultMaxAge = 10 * time.Minute

// Fetcher resolves an endpoint either from the network or, when offline, from
// the local store. Online responses are written back to the store best-effort:
// a write failure is counted and logged but never fails the fetch. There is no
// stale fallback, no retry, and no deduplication of concurrent same-key
// fetches; two simultaneous callers can both go upstream and both write the
// same key.
type Fetcher struct {
	probe    netstatus.Probe
	store    store.Store
	client   *http.Client
	notifier alert.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a Fetcher. timeout bounds each upstream GET; zero means no
// client-level timeout (the request context still applies).
func New(probe netstatus.Probe, st store.Store, notifier alert.Notifier, logger *zap.Logger, timeout time.Duration) *Fetcher {
	return &Fetcher{
		probe:    probe,
		store:    st,
		client:   &http.Client{Timeout: timeout},
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// FetchWithCache returns the JSON payload for endpoint. Connectivity decides
// the path: offline reads the store and only serves an entry younger than
// maxAge; online issues one GET, stores {data, now} under cacheKey and returns
// the body. A probe failure propagates untouched.
func (f *Fetcher) FetchWithCache(ctx context.Context, endpoint, cacheKey string, maxAge time.Duration) (json.RawMessage, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	online, err := f.probe.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("connectivity check: %w", err)
	}

	if !online {
		return f.fromCache(ctx, cacheKey, maxAge)
	}

	data, err := f.fetch(ctx, endpoint)
	if err != nil {
		f.notifier.Notify(ctx, "Failed to fetch data. Please try again.")
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	f.writeBack(ctx, cacheKey, data)
	return data, nil
}

// fromCache serves the offline path. Anything short of a fresh, decodable
// entry is a miss; stale data is never returned.
func (f *Fetcher) fromCache(ctx context.Context, cacheKey string, maxAge time.Duration) (json.RawMessage, error) {
	raw, ok, err := f.store.Get(ctx, cacheKey)
	if err != nil {
		f.logger.Warn("cache read failed", zap.String("key", cacheKey), zap.Error(err))
		ok = false
	}
	if ok {
		var entry models.CacheEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			f.logger.Warn("cache entry undecodable", zap.String("key", cacheKey), zap.Error(err))
		} else if f.fresh(entry, maxAge) {
			observability.CacheHitsTotal.Inc()
			f.logger.Debug("offline cache hit", zap.String("key", cacheKey))
			return entry.Data, nil
		}
	}

	observability.CacheMissesTotal.Inc()
	f.notifier.Notify(ctx, "You are offline and no cached data is available.")
	return nil, fmt.Errorf("%w (key %s)", ErrNoCachedData, cacheKey)
}

func (f *Fetcher) fresh(entry models.CacheEntry, maxAge time.Duration) bool {
	age := f.now().UnixMilli() - entry.Timestamp
	return age < maxAge.Milliseconds()
}

// fetch issues a single GET and returns the body, which must be valid JSON.
func (f *Fetcher) fetch(ctx context.Context, endpoint string) (json.RawMessage, error) {
	start := f.now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues("fetch", "error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues("fetch", "error").Inc()
		observability.UpstreamDuration.WithLabelValues("fetch", "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	status := observability.StatusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues("fetch", status).Inc()
	observability.UpstreamDuration.WithLabelValues("fetch", status).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	return body, nil
}

// writeBack stores {data, now} under cacheKey. Best-effort: failures are
// swallowed after being counted and logged.
func (f *Fetcher) writeBack(ctx context.Context, cacheKey string, data json.RawMessage) {
	entry := models.CacheEntry{
		Data:      data,
		Timestamp: f.now().UnixMilli(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		observability.CacheWriteFailuresTotal.Inc()
		f.logger.Warn("cache entry encode failed", zap.String("key", cacheKey), zap.Error(err))
		return
	}
	if err := f.store.Set(ctx, cacheKey, raw); err != nil {
		observability.CacheWriteFailuresTotal.Inc()
		f.logger.Warn("cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}
}
