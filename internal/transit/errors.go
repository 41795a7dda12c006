package transit

import (
	"fmt"
	"net/http"
	"net/url"
)

// HTTPError is returned by CheckStatus for a final response outside the 2xx range.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %s for url: %s", e.Status, e.URL)
}

// MaxRetryError is returned when the retry budget ran out.
type MaxRetryError struct {
	URL      string
	Attempts int
	Reason   error
}

func (e *MaxRetryError) Error() string {
	return fmt.Sprintf("max retries exceeded with url: %s after %d attempts: %v", e.URL, e.Attempts, e.Reason)
}

func (e *MaxRetryError) Unwrap() error { return e.Reason }

// CheckStatus returns an *HTTPError when resp does not carry a 2xx status.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	target := ""
	if resp.Request != nil {
		target = redactURL(resp.Request.URL)
	}
	return &HTTPError{StatusCode: resp.StatusCode, Status: status, URL: target}
}

// redactURL hides the API key so URLs can be logged and reported.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	if q.Has("api-key") {
		q.Set("api-key", "REDACTED")
	}
	c := *u
	c.RawQuery = q.Encode()
	return c.String()
}
