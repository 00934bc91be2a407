package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTP fetches locators over HTTP(S) with a shared, pooled client.
type HTTP struct {
	Client *http.Client
}

// NewHTTPClient returns the client used for resource fetches. timeout bounds
// a single request at the transport level; the Loader's own timeout is
// separate and does not cancel requests.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// NewHTTP returns an HTTP fetcher with its own client.
func NewHTTP(timeout time.Duration) *HTTP {
	return &HTTP{Client: NewHTTPClient(timeout)}
}

// Fetch implements Fetcher.
func (h *HTTP) Fetch(ctx context.Context, locator string) ([]byte, error) {
	u := locator
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s for %s", resp.Status, u)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// CloseIdleConnections releases pooled connections.
func (h *HTTP) CloseIdleConnections() {
	h.client().CloseIdleConnections()
}

func (h *HTTP) client() *http.Client {
	if h.Client == nil {
		return http.DefaultClient
	}
	return h.Client
}
