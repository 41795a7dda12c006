package transit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/getsentry/sentry-go"
	"transittracker.app/internal/extract"
	"transittracker.app/internal/models"
	"transittracker.app/internal/report"
	"transittracker.app/internal/utils"
)

const DefaultBaseURL = "https://api.winnipegtransit.com/v4"

// maxBodySize bounds how much of a response is read into memory.
const maxBodySize = 8 << 20

// API is the Winnipeg Transit v4 XML API.
type API struct {
	client  *Client
	baseURL string
	apiKey  string
}

// NewAPI creates an API bound to baseURL. An empty baseURL selects DefaultBaseURL.
func NewAPI(client *Client, baseURL, apiKey string) *API {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &API{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Name identifies the provider in logs and reports.
func (a *API) Name() string { return "winnipeg" }

// StopSearchURL returns the stop search endpoint for query.
func (a *API) StopSearchURL(query string) string {
	return fmt.Sprintf("%s/stops:%s?api-key=%s", a.baseURL, url.PathEscape(query), url.QueryEscape(a.apiKey))
}

// StopScheduleURL returns the schedule endpoint for stopID.
func (a *API) StopScheduleURL(stopID string) string {
	return fmt.Sprintf("%s/stops/%s/schedule?api-key=%s", a.baseURL, url.PathEscape(stopID), url.QueryEscape(a.apiKey))
}

// RawStopSearch returns the stop search document as sent by the API.
func (a *API) RawStopSearch(ctx context.Context, query string) ([]byte, error) {
	return a.fetch(ctx, a.StopSearchURL(query))
}

// RawStopSchedule returns the schedule document as sent by the API.
func (a *API) RawStopSchedule(ctx context.Context, stopID string) ([]byte, error) {
	return a.fetch(ctx, a.StopScheduleURL(stopID))
}

// SearchStops runs a stop search and extracts the matching stops.
func (a *API) SearchStops(ctx context.Context, query string) ([]models.Stop, error) {
	stops, _, err := a.SearchStopsRaw(ctx, query)
	return stops, err
}

// SearchStopsRaw runs a stop search and returns the extracted stops along
// with the document they were extracted from.
func (a *API) SearchStopsRaw(ctx context.Context, query string) ([]models.Stop, []byte, error) {
	body, err := a.RawStopSearch(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("stop search %q: %w", query, err)
	}
	stops, err := extract.Stops(body)
	if err != nil {
		a.report(err, "query", query)
		return nil, nil, fmt.Errorf("stop search %q: %w", query, err)
	}
	return stops, body, nil
}

// StopSchedule fetches and extracts the schedule of stopID.
// It returns extract.ErrNoStop when the response names no stop.
func (a *API) StopSchedule(ctx context.Context, stopID string) (*models.StopSchedule, error) {
	body, err := a.RawStopSchedule(ctx, stopID)
	if err != nil {
		return nil, fmt.Errorf("schedule for stop %s: %w", stopID, err)
	}
	schedule, err := extract.Schedule(body)
	if err != nil {
		if !errors.Is(err, extract.ErrNoStop) {
			a.report(err, "stop_id", stopID)
		}
		return nil, fmt.Errorf("schedule for stop %s: %w", stopID, err)
	}
	return schedule, nil
}

func (a *API) fetch(ctx context.Context, target string) ([]byte, error) {
	resp, err := a.client.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := CheckStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func (a *API) report(err error, key, value string) {
	report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
		Tags: utils.MakeMap(key, value),
		ExtraContext: map[string]interface{}{
			"base_url": a.baseURL,
		},
		Level: sentry.LevelWarning,
	})
}
