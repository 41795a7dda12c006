package transit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"transittracker.app/internal/metrics"
)

// latencyTrackingRoundTripper wraps another RoundTripper and records the
// latency of every attempt in metrics.OutgoingLatency.
type latencyTrackingRoundTripper struct {
	next http.RoundTripper
}

func (rt *latencyTrackingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(start).Seconds()

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	// scheme + host + path only; the query carries the API key
	safeURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	metrics.OutgoingLatency.WithLabelValues(
		safeURL,
		req.Method,
		status,
	).Observe(duration)

	return resp, err
}

// NewPooledClient returns an HTTP client with a keep-alive connection pool
// and a per-attempt timeout. A nil transport uses a tuned *http.Transport.
//
// The transport is wrapped with latencyTrackingRoundTripper so every attempt,
// including retried ones, is observed.
func NewPooledClient(timeout time.Duration, transport http.RoundTripper) *http.Client {
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 5 * time.Second,
		}
	}
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}

	return &http.Client{
		Transport: &latencyTrackingRoundTripper{next: transport},
		Timeout:   timeout,
	}
}

// Client issues GET requests against the transit API with the retry policy applied.
// It is built once at startup and shared by every caller.
type Client struct {
	HTTP   Doer
	Policy RetryPolicy
	Logger *slog.Logger
}

// NewClient creates a Client using DefaultRetryPolicy.
func NewClient(httpClient Doer, logger *slog.Logger) *Client {
	return &Client{
		HTTP:   httpClient,
		Policy: DefaultRetryPolicy(),
		Logger: logger,
	}
}

// Get fetches url. The returned response may carry a non-2xx status; use
// CheckStatus for strict checking. The caller must close the body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml")

	start := time.Now()
	resp, err := DoWithBackoff(ctx, c.HTTP, req, c.Policy)
	if err != nil {
		c.Logger.Error("transit request failed", "url", redactURL(req.URL), "error", err)
		return nil, err
	}
	c.Logger.Debug("transit request done",
		"url", redactURL(req.URL),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, nil
}
