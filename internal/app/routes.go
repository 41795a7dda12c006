package app

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"transittracker.app/internal/middleware"
)

// Routes registers the board pages, the health check and /metrics, wrapped
// with Sentry, request logging and security headers. ctx stops the metrics
// cache refresher.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/", app.homeHandler)
	router.HandlerFunc(http.MethodGet, "/stops", app.stopSearchHandler)
	router.HandlerFunc(http.MethodGet, "/schedule", app.scheduleFormHandler)
	router.HandlerFunc(http.MethodGet, "/stops/:id/schedule", app.scheduleHandler)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second))

	router.NotFound = http.HandlerFunc(app.notFoundHandler)

	handler := middleware.SentryMiddleware(router)
	handler = middleware.RequestLogger(app.Logger)(handler)
	return middleware.SecurityHeaders(handler)
}
