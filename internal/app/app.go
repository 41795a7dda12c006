package app

import (
	"html/template"
	"log/slog"

	"transittracker.app/internal/config"
	"transittracker.app/internal/geo"
	"transittracker.app/internal/stops"
)

// Application is the web board: the browser counterpart of the console,
// serving stop searches and stop schedules from one stops.Source.
type Application struct {
	Config   *config.Config
	Source   stops.Source
	Logger   *slog.Logger
	Version  string
	Backoffs *BackoffStore

	// Near, when set, adds the distance from this point to listed stops.
	Near *geo.Point

	pages map[string]*template.Template
}

// New wires the board around source.
func New(cfg *config.Config, source stops.Source, logger *slog.Logger, version string) *Application {
	return &Application{
		Config:   cfg,
		Source:   source,
		Logger:   logger,
		Version:  version,
		Backoffs: NewBackoffStore(),
		pages:    parsePages(),
	}
}
