package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/julienschmidt/httprouter"
	"transittracker.app/internal/extract"
	"transittracker.app/internal/geo"
	"transittracker.app/internal/metrics"
	"transittracker.app/internal/models"
	"transittracker.app/internal/report"
	"transittracker.app/internal/stops"
	"transittracker.app/internal/transit"
	"transittracker.app/internal/utils"
)

// HealthStatus is the JSON body of /v1/healthcheck.
//
// Ready is false while the provider cannot answer yet, for example a GTFS
// source whose bundle has not loaded. Providers without such a state are
// always ready.
type HealthStatus struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	Provider    string `json:"provider"`
	Ready       bool   `json:"ready"`
}

type readinessReporter interface {
	Ready() bool
}

// healthcheckHandler responds with the board's health. It answers 500 when
// the provider is not ready.
func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	ready := true
	if rr, ok := app.Source.(readinessReporter); ok {
		ready = rr.Ready()
	}

	status := HealthStatus{
		Status:      "available",
		Environment: app.Config.Env,
		Version:     app.Version,
		Provider:    app.Source.Name(),
		Ready:       ready,
	}

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(status)
}

type pageData struct {
	Title    string
	Version  string
	Provider string

	Stops []stopRow
	Raw   string

	Schedule *models.StopSchedule
	HasNow   bool
	NowRoute models.RouteSchedule
	NowVisit models.ScheduledStop

	Message string
}

type stopRow struct {
	Stop     models.Stop
	Link     string
	Distance string
}

func (app *Application) page(title string) pageData {
	return pageData{Title: title, Version: app.Version, Provider: app.Source.Name()}
}

func (app *Application) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := app.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		app.Logger.Error("Failed to render page", "page", name, "error", err)
		report.ReportError(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (app *Application) homeHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, http.StatusOK, "home", app.page("Main Menu"))
}

func (app *Application) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	data := app.page("Not Found")
	data.Message = "The page you asked for does not exist."
	app.render(w, http.StatusNotFound, "error", data)
}

// stopSearchHandler lists the stops matching ?q=. When nothing matches and
// the provider returned its raw response, that response is shown instead.
func (app *Application) stopSearchHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if app.coolingDown(w, "search") {
		return
	}

	found, body, err := stops.Search(r.Context(), app.Source, query)
	if err != nil {
		app.lookupFailed(w, r, "search", query, err)
		return
	}
	app.upstreamOK()
	metrics.BoardLookups.WithLabelValues("search", "ok").Inc()

	data := app.page("Stops matching " + query)
	for _, stop := range found {
		row := stopRow{Stop: stop}
		if stop.Key.Valid {
			row.Link = "/stops/" + url.PathEscape(stop.Key.Value) + "/schedule"
		}
		if app.Near != nil {
			row.Distance = geo.DistanceToStop(*app.Near, stop)
		}
		data.Stops = append(data.Stops, row)
	}

	if len(found) == 0 {
		data.Raw = string(body)
	}

	app.render(w, http.StatusOK, "stops", data)
}

// scheduleFormHandler turns the home page's ?stop= form into a schedule URL.
func (app *Application) scheduleFormHandler(w http.ResponseWriter, r *http.Request) {
	stopID := strings.TrimSpace(r.URL.Query().Get("stop"))
	if stopID == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/stops/"+url.PathEscape(stopID)+"/schedule", http.StatusSeeOther)
}

// scheduleHandler shows the schedule of one stop. The panel at the top holds
// the last visit in document order, the rest lists every route.
func (app *Application) scheduleHandler(w http.ResponseWriter, r *http.Request) {
	stopID := httprouter.ParamsFromContext(r.Context()).ByName("id")
	if app.coolingDown(w, "schedule") {
		return
	}

	schedule, err := app.Source.StopSchedule(r.Context(), stopID)
	if err != nil {
		app.lookupFailed(w, r, "schedule", stopID, err)
		return
	}
	app.upstreamOK()
	metrics.BoardLookups.WithLabelValues("schedule", "ok").Inc()

	data := app.page("Stop " + stopID)
	data.Schedule = schedule
	data.NowRoute, data.NowVisit, data.HasNow = schedule.LastVisit()
	app.render(w, http.StatusOK, "schedule", data)
}

// coolingDown answers 503 while the provider is in its cooldown window.
func (app *Application) coolingDown(w http.ResponseWriter, kind string) bool {
	wait, blocked := app.Backoffs.Blocked(app.Source.Name())
	if !blocked {
		return false
	}
	metrics.BoardLookups.WithLabelValues(kind, "cooldown").Inc()
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	data := app.page("Unavailable")
	data.Message = "The transit provider is not responding. Try again shortly."
	app.render(w, http.StatusServiceUnavailable, "error", data)
	return true
}

// lookupFailed maps a source error to a response. Exhausted retries and 5xx
// answers start or extend the provider's cooldown.
func (app *Application) lookupFailed(w http.ResponseWriter, r *http.Request, kind, subject string, err error) {
	metrics.BoardLookups.WithLabelValues(kind, "error").Inc()
	provider := app.Source.Name()

	data := app.page("Error")
	status := http.StatusBadGateway
	data.Message = "The transit provider could not be reached."

	var httpErr *transit.HTTPError
	var retryErr *transit.MaxRetryError
	var parseErr *extract.ParseError
	switch {
	case errors.Is(err, extract.ErrNoStop):
		app.render(w, http.StatusNotFound, "error", withMessage(data, "No stop found"))
		return
	case errors.Is(err, stops.ErrUnsupported):
		app.render(w, http.StatusNotImplemented, "error", withMessage(data, "The "+provider+" provider does not offer this lookup."))
		return
	case errors.As(err, &retryErr):
		app.upstreamDown()
	case errors.As(err, &httpErr):
		if httpErr.StatusCode >= 500 {
			app.upstreamDown()
		}
		data.Message = "The transit provider answered " + httpErr.Status + "."
	case errors.As(err, &parseErr):
		data.Message = "The transit provider sent a response that could not be read."
	case r.Context().Err() != nil:
		app.Logger.Info("Lookup canceled", "kind", kind, "subject", subject)
		return
	}

	app.Logger.Error("Lookup failed",
		"kind", kind,
		"subject", subject,
		"provider", provider,
		"error", err,
	)
	report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
		Tags: utils.MakeMap("provider", provider),
		ExtraContext: map[string]interface{}{
			"kind":    kind,
			"subject": subject,
		},
		Level: sentry.LevelError,
	})
	app.render(w, status, "error", data)
}

func (app *Application) upstreamOK() {
	app.Backoffs.ResetBackoff(app.Source.Name())
	metrics.ProviderStatus.WithLabelValues(app.Source.Name()).Set(1)
}

// upstreamDown starts or extends the provider's cooldown.
func (app *Application) upstreamDown() {
	app.Backoffs.UpdateBackoff(app.Source.Name())
	metrics.ProviderStatus.WithLabelValues(app.Source.Name()).Set(0)
}

func withMessage(data pageData, msg string) pageData {
	data.Message = msg
	return data
}
