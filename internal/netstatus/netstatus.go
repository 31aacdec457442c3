package netstatus

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Probe reports whether the host currently has connectivity. One check per
// call, no retries.
type Probe interface {
	Status(ctx context.Context) (bool, error)
}

const (
	// DefaultCheckURL is a generate_204 style endpoint: reachable and cheap.
	DefaultCheckURL = "http://connectivitycheck.gstatic.com/generate_204"

	defaultProbeTimeout = 3 * time.Second
)

// HTTPProbe determines connectivity by issuing a GET against a generate_204
// endpoint. A transport failure is the offline signal, not an error; only a
// failure to build the request propagates.
type HTTPProbe struct {
	checkURL string
	client   *http.Client
}

// NewHTTPProbe creates a probe against checkURL. Empty checkURL uses
// DefaultCheckURL; zero timeout uses a 3 second default.
func NewHTTPProbe(checkURL string, timeout time.Duration) *HTTPProbe {
	if checkURL == "" {
		checkURL = DefaultCheckURL
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &HTTPProbe{
		checkURL: checkURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Status returns true when the check endpoint answers with a success status.
func (p *HTTPProbe) Status(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.checkURL, nil)
	if err != nil {
		return false, fmt.Errorf("build connectivity request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, nil
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
