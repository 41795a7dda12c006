package transit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"transittracker.app/internal/metrics"
)

const (
	DEFAULT_TOTAL_RETRIES   = 3
	DEFAULT_CONNECT_RETRIES = 3
	DEFAULT_READ_RETRIES    = 3
	DEFAULT_BACKOFF_FACTOR  = 500 * time.Millisecond
	DEFAULT_MAX_BACKOFF     = 2 * time.Minute
	DEFAULT_TIMEOUT         = 10 * time.Second
)

// RetryPolicy describes how failed attempts against the transit API are retried.
type RetryPolicy struct {
	Total   int // retries across all causes
	Connect int // retries after a connection could not be established
	Read    int // retries after a connection failed mid-request

	// BackoffFactor is the wait before the first retry; each later retry doubles it.
	BackoffFactor time.Duration
	MaxBackoff    time.Duration

	StatusForcelist map[int]bool
	AllowedMethods  map[string]bool

	// RaiseOnStatus turns an exhausted status retry into a *MaxRetryError
	// instead of handing back the last response.
	RaiseOnStatus     bool
	RespectRetryAfter bool
}

// DefaultRetryPolicy returns the fixed policy used for every transit API call.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Total:         DEFAULT_TOTAL_RETRIES,
		Connect:       DEFAULT_CONNECT_RETRIES,
		Read:          DEFAULT_READ_RETRIES,
		BackoffFactor: DEFAULT_BACKOFF_FACTOR,
		MaxBackoff:    DEFAULT_MAX_BACKOFF,
		StatusForcelist: map[int]bool{
			http.StatusTooManyRequests:     true,
			http.StatusInternalServerError: true,
			http.StatusBadGateway:          true,
			http.StatusServiceUnavailable:  true,
			http.StatusGatewayTimeout:      true,
		},
		AllowedMethods: map[string]bool{
			http.MethodGet:  true,
			http.MethodPost: true,
		},
		RaiseOnStatus:     false,
		RespectRetryAfter: true,
	}
}

// Backoff returns the wait before retry number n (starting at 1).
func (p RetryPolicy) Backoff(n int) time.Duration {
	if n < 1 || p.BackoffFactor <= 0 {
		return 0
	}
	d := p.BackoffFactor
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// sleepFunc waits for d or until ctx is done. Tests replace it.
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DoWithBackoff sends req through doer, retrying according to policy.
//
// Transport errors are retried until the matching budget runs out, then
// returned as *MaxRetryError. Responses whose status is in the forcelist are
// retried the same way; once the budget is spent the last response is
// returned unless policy.RaiseOnStatus is set. Any other response is
// returned as soon as it arrives.
func DoWithBackoff(ctx context.Context, doer Doer, req *http.Request, policy RetryPolicy) (*http.Response, error) {
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed for retries")
	}

	total, connect, read := policy.Total, policy.Connect, policy.Read
	retries := 0

	for {
		attempt, err := newAttempt(ctx, req)
		if err != nil {
			return nil, err
		}

		resp, err := doer.Do(attempt)
		var wait time.Duration
		waitFromServer := false

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var urlErr *url.Error
			if errors.As(err, &urlErr) {
				urlErr.URL = redactURL(req.URL)
			}
			reason := "read"
			if isConnectError(err) {
				reason = "connect"
			}
			if !policy.AllowedMethods[req.Method] && reason == "read" {
				return nil, err
			}
			total--
			if reason == "connect" {
				connect--
			} else {
				read--
			}
			if total < 0 || connect < 0 || read < 0 {
				metrics.RetriesExhausted.Inc()
				return nil, &MaxRetryError{URL: redactURL(req.URL), Attempts: retries + 1, Reason: err}
			}
			metrics.RetryAttempts.WithLabelValues(reason).Inc()
		} else {
			if !policy.StatusForcelist[resp.StatusCode] || !policy.AllowedMethods[req.Method] {
				return resp, nil
			}
			total--
			if total < 0 {
				metrics.RetriesExhausted.Inc()
				if policy.RaiseOnStatus {
					drain(resp)
					return nil, &MaxRetryError{
						URL:      redactURL(req.URL),
						Attempts: retries + 1,
						Reason:   fmt.Errorf("too many %d error responses", resp.StatusCode),
					}
				}
				return resp, nil
			}
			metrics.RetryAttempts.WithLabelValues("status").Inc()
			if policy.RespectRetryAfter {
				wait, waitFromServer = retryAfter(resp, time.Now())
			}
			drain(resp)
		}

		retries++
		if !waitFromServer {
			wait = policy.Backoff(retries)
		}
		if policy.MaxBackoff > 0 && wait > policy.MaxBackoff {
			wait = policy.MaxBackoff
		}
		if err := sleepFunc(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func newAttempt(ctx context.Context, req *http.Request) (*http.Request, error) {
	attempt := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		attempt.Body = body
	}
	return attempt, nil
}

// isConnectError reports whether err happened before the request reached the server.
func isConnectError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}

// retryAfter parses a Retry-After header given as seconds or an HTTP date.
func retryAfter(resp *http.Response, now time.Time) (time.Duration, bool) {
	switch resp.StatusCode {
	case http.StatusRequestEntityTooLarge, http.StatusTooManyRequests, http.StatusServiceUnavailable:
	default:
		return 0, false
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// drain discards the rest of a response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}
