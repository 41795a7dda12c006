package transit

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

type mockRoundTripper struct {
	mu      sync.Mutex
	calls   int
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.handler(req)
}

func (m *mockRoundTripper) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// statusSequence answers with the given status codes in order, repeating the last one.
func statusSequence(codes ...int) func(req *http.Request) (*http.Response, error) {
	var mu sync.Mutex
	i := 0
	return func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		code := codes[len(codes)-1]
		if i < len(codes) {
			code = codes[i]
		}
		i++
		mu.Unlock()
		return newResponse(req, code, http.StatusText(code)), nil
	}
}

func newResponse(req *http.Request, code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

// recordSleeps replaces the backoff sleep for the duration of the test and
// returns the waits that would have happened.
func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()

	var waits []time.Duration
	original := sleepFunc
	sleepFunc = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	t.Cleanup(func() { sleepFunc = original })
	return &waits
}
