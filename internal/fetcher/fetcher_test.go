package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hushwa3/WeatherAppSIA/internal/alert"
	"github.com/hushwa3/WeatherAppSIA/internal/models"
	"github.com/hushwa3/WeatherAppSIA/internal/store"
)

type mockProbe struct {
	online bool
	err    error
}

func (m *mockProbe) Status(ctx context.Context) (bool, error) {
	return m.online, m.err
}

type failingStore struct {
	*store.InMemoryStore
	setErr error
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.InMemoryStore.Set(ctx, key, value)
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Notify(ctx context.Context, message string) {
	r.messages = append(r.messages, message)
}

func newFetcher(probe *mockProbe, st store.Store) *Fetcher {
	return New(probe, st, alert.NopNotifier{}, zap.NewNop(), time.Second)
}

func putEntry(t *testing.T, st store.Store, key string, data string, ts int64) {
	t.Helper()
	raw, err := json.Marshal(models.CacheEntry{Data: json.RawMessage(data), Timestamp: ts})
	if err != nil {
		t.Fatalf("marshal entry: %v", err)
	}
	if err := st.Set(context.Background(), key, raw); err != nil {
		t.Fatalf("seed store: %v", err)
	}
}

// TestFetchWithCache_OnlineFetchesAndStores verifies the online path: the
// response body is returned and written under the cache key with a timestamp
// no later than call completion.
func TestFetchWithCache_OnlineFetchesAndStores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"temp":21.5}`))
	}))
	defer srv.Close()

	st := store.NewInMemoryStore()
	f := newFetcher(&mockProbe{online: true}, st)

	got, err := f.FetchWithCache(context.Background(), srv.URL, "k", 0)
	if err != nil {
		t.Fatalf("FetchWithCache: %v", err)
	}
	if string(got) != `{"temp":21.5}` {
		t.Errorf("data = %s, want original body", got)
	}
	done := time.Now().UnixMilli()

	raw, ok, err := st.Get(context.Background(), "k")
	if err != nil || !ok {
		t.Fatalf("entry not stored: ok=%v err=%v", ok, err)
	}
	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if string(entry.Data) != `{"temp":21.5}` {
		t.Errorf("stored data = %s, want original body", entry.Data)
	}
	if entry.Timestamp > done {
		t.Errorf("stored timestamp %d after completion %d", entry.Timestamp, done)
	}
}

// TestFetchWithCache_OfflineFreshEntry verifies cached data is served iff
// offline, present, and younger than maxAge.
func TestFetchWithCache_OfflineFreshEntry(t *testing.T) {
	st := store.NewInMemoryStore()
	putEntry(t, st, "k", `{"temp":10}`, time.Now().UnixMilli()-5_000)

	f := newFetcher(&mockProbe{online: false}, st)
	got, err := f.FetchWithCache(context.Background(), "http://unused", "k", 10*time.Minute)
	if err != nil {
		t.Fatalf("FetchWithCache: %v", err)
	}
	if string(got) != `{"temp":10}` {
		t.Errorf("data = %s, want cached payload", got)
	}
}

// TestFetchWithCache_OfflineStaleEntry verifies there is no fallback to stale
// data: an entry older than maxAge fails the offline read.
func TestFetchWithCache_OfflineStaleEntry(t *testing.T) {
	st := store.NewInMemoryStore()
	putEntry(t, st, "k", `{"temp":10}`, time.Now().UnixMilli()-11*60*1000)

	f := newFetcher(&mockProbe{online: false}, st)
	_, err := f.FetchWithCache(context.Background(), "http://unused", "k", 10*time.Minute)
	if !errors.Is(err, ErrNoCachedData) {
		t.Fatalf("error = %v, want ErrNoCachedData", err)
	}
}

func TestFetchWithCache_OfflineNoEntry(t *testing.T) {
	f := newFetcher(&mockProbe{online: false}, store.NewInMemoryStore())
	_, err := f.FetchWithCache(context.Background(), "http://unused", "k", 0)
	if !errors.Is(err, ErrNoCachedData) {
		t.Fatalf("error = %v, want ErrNoCachedData", err)
	}
}

func TestFetchWithCache_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	notifier := &recordingNotifier{}
	f := New(&mockProbe{online: true}, store.NewInMemoryStore(), notifier, zap.NewNop(), time.Second)

	_, err := f.FetchWithCache(context.Background(), srv.URL, "k", 0)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("error = %v, want ErrFetchFailed", err)
	}
	if len(notifier.messages) != 1 {
		t.Errorf("alerts = %d, want 1 (failure must be surfaced to the user)", len(notifier.messages))
	}
}

// TestFetchWithCache_ProbeFailurePropagates verifies a connectivity-probe
// failure is returned untouched rather than mapped to a fetch error.
func TestFetchWithCache_ProbeFailurePropagates(t *testing.T) {
	probeErr := errors.New("probe broken")
	f := newFetcher(&mockProbe{err: probeErr}, store.NewInMemoryStore())

	_, err := f.FetchWithCache(context.Background(), "http://unused", "k", 0)
	if !errors.Is(err, probeErr) {
		t.Fatalf("error = %v, want wrapped probe error", err)
	}
}

// TestFetchWithCache_WriteFailureSwallowed verifies a cache write failure does
// not fail the fetch.
func TestFetchWithCache_WriteFailureSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	st := &failingStore{InMemoryStore: store.NewInMemoryStore(), setErr: errors.New("disk full")}
	f := New(&mockProbe{online: true}, st, alert.NopNotifier{}, zap.NewNop(), time.Second)

	got, err := f.FetchWithCache(context.Background(), srv.URL, "k", 0)
	if err != nil {
		t.Fatalf("FetchWithCache: %v", err)
	}
	if string(got) != `{"ok":true}` {
		t.Errorf("data = %s, want body despite write failure", got)
	}
}

func TestFetchWithCache_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	f := newFetcher(&mockProbe{online: true}, store.NewInMemoryStore())
	_, err := f.FetchWithCache(context.Background(), srv.URL, "k", 0)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("error = %v, want ErrFetchFailed for non-JSON body", err)
	}
}
