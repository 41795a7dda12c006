// Package oba serves stop lookups and schedules from a OneBusAway server.
package oba

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	onebusaway "github.com/OneBusAway/go-sdk"
	"github.com/OneBusAway/go-sdk/option"
	"github.com/getsentry/sentry-go"
	"transittracker.app/internal/extract"
	"transittracker.app/internal/models"
	"transittracker.app/internal/report"
	"transittracker.app/internal/transit"
	"transittracker.app/internal/utils"
)

// timeLayout matches the timestamps the Winnipeg API sends, so both
// providers render the same way.
const timeLayout = "2006-01-02T15:04:05"

// Source answers lookups from the OneBusAway REST API.
//
// OneBusAway has no free-text stop search; SearchStops treats the query as
// a stop id and returns at most one stop.
type Source struct {
	client   *onebusaway.Client
	baseURL  string
	location *time.Location
	logger   *slog.Logger
}

// NewSource creates a Source. httpClient is shared with the rest of the
// process so attempts show up in the outgoing latency metric. A nil loc
// renders times in the local zone.
func NewSource(baseURL, apiKey string, httpClient *http.Client, loc *time.Location, logger *slog.Logger) *Source {
	if loc == nil {
		loc = time.Local
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(transit.DEFAULT_TOTAL_RETRIES),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &Source{
		client:   onebusaway.NewClient(opts...),
		baseURL:  baseURL,
		location: loc,
		logger:   logger,
	}
}

func (s *Source) Name() string { return "oba" }

// SearchStops looks the query up as a stop id. An unknown id yields no stops.
func (s *Source) SearchStops(ctx context.Context, query string) ([]models.Stop, error) {
	response, err := s.client.Stop.Get(ctx, query)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		s.report(err, "query", query)
		return nil, fmt.Errorf("stop lookup %q: %w", query, err)
	}
	if response == nil {
		return nil, nil
	}

	entry := response.Data.Entry
	if entry.ID == "" {
		return nil, nil
	}
	stop := models.Stop{
		Key:    models.NewText(entry.ID),
		Number: models.NewText(entry.Code),
		Name:   models.NewText(entry.Name),
	}
	if entry.Lat != 0 || entry.Lon != 0 {
		stop.Latitude = models.NewText(fmt.Sprintf("%.6f", entry.Lat))
		stop.Longitude = models.NewText(fmt.Sprintf("%.6f", entry.Lon))
	}
	return []models.Stop{stop}, nil
}

// StopSchedule combines the stop entry with its schedule-for-stop response.
// OneBusAway schedules carry no estimates, so estimated times are missing.
func (s *Source) StopSchedule(ctx context.Context, stopID string) (*models.StopSchedule, error) {
	stopResp, err := s.client.Stop.Get(ctx, stopID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("schedule for stop %s: %w: %w", stopID, extract.ErrNoStop, err)
		}
		s.report(err, "stop_id", stopID)
		return nil, fmt.Errorf("schedule for stop %s: %w", stopID, err)
	}

	schedule := &models.StopSchedule{}
	if stopResp != nil {
		schedule.Stop = models.StopHeader{
			Name:      models.NewText(stopResp.Data.Entry.Name),
			Direction: models.NewText(stopResp.Data.Entry.Direction),
		}
	}

	response, err := s.client.ScheduleForStop.Get(ctx, stopID, onebusaway.ScheduleForStopGetParams{})
	if err != nil {
		s.report(err, "stop_id", stopID)
		return nil, fmt.Errorf("schedule for stop %s: %w", stopID, err)
	}
	if response == nil {
		return schedule, nil
	}

	routeSchedules := response.Data.Entry.StopRouteSchedules
	if routeSchedules == nil {
		return schedule, nil
	}
	schedule.HasRouteSchedules = true

	for _, rs := range routeSchedules {
		route := models.RouteSchedule{
			HasRoute:          true,
			Key:               models.NewText(rs.RouteID),
			HasScheduledStops: true,
		}
		for _, direction := range rs.StopRouteDirectionSchedules {
			if !route.Name.Valid {
				route.Name = models.NewText(direction.TripHeadsign)
			}
			for _, st := range direction.ScheduleStopTimes {
				route.Stops = append(route.Stops, models.ScheduledStop{
					Key:                models.NewText(stopID),
					TripKey:            models.NewText(st.TripID),
					HasTimes:           true,
					ArrivalScheduled:   s.formatTime(st.ArrivalTime),
					DepartureScheduled: s.formatTime(st.DepartureTime),
				})
			}
		}
		schedule.Routes = append(schedule.Routes, route)
	}
	return schedule, nil
}

// formatTime renders epoch milliseconds; zero means the time was not sent.
func (s *Source) formatTime(ms int64) models.Text {
	if ms == 0 {
		return models.Text{}
	}
	return models.NewText(time.UnixMilli(ms).In(s.location).Format(timeLayout))
}

func isNotFound(err error) bool {
	var apiErr *onebusaway.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func (s *Source) report(err error, key, value string) {
	s.logger.Error("OneBusAway request failed", key, value, "error", err)
	report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
		Tags: utils.MakeMap(key, value),
		ExtraContext: map[string]interface{}{
			"oba_base_url": s.baseURL,
		},
		Level: sentry.LevelWarning,
	})
}
