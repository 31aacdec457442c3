package geolocation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestProvider_CurrentPosition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","lat":14.676,"lon":121.0437}`))
	}))
	defer srv.Close()

	p := NewRestProvider(srv.URL)
	got, err := p.CurrentPosition(context.Background(), DefaultOptions)
	require.NoError(t, err)
	assert.InDelta(t, 14.676, got.Latitude, 1e-9)
	assert.InDelta(t, 121.0437, got.Longitude, 1e-9)
}

func TestRestProvider_FailStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"private range"}`))
	}))
	defer srv.Close()

	p := NewRestProvider(srv.URL)
	_, err := p.CurrentPosition(context.Background(), DefaultOptions)
	assert.ErrorIs(t, err, ErrPositionUnavailable)
}

func TestRestProvider_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	p := NewRestProvider(srv.URL)
	_, err := p.CurrentPosition(context.Background(), Options{Timeout: 50 * time.Millisecond})
	assert.ErrorIs(t, err, ErrPositionUnavailable)
}

func TestRestProvider_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewRestProvider(srv.URL)
	_, err := p.CurrentPosition(context.Background(), DefaultOptions)
	assert.ErrorIs(t, err, ErrPositionUnavailable)
}
