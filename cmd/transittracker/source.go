package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"transittracker.app/internal/config"
	"transittracker.app/internal/console"
	"transittracker.app/internal/geo"
	"transittracker.app/internal/gtfs"
	"transittracker.app/internal/oba"
	"transittracker.app/internal/stops"
	"transittracker.app/internal/transit"
)

// defaultBundleRefresh applies when gtfs.refresh_interval is unset.
const defaultBundleRefresh = 24 * time.Hour

// newSource builds the stops.Source for cfg.Provider. term is nil when the
// web board runs; it is used to tell the user about a missing API key.
func newSource(ctx context.Context, cfg *config.Config, logger *slog.Logger, term *console.Console, serving bool) (stops.Source, error) {
	httpClient := transit.NewPooledClient(cfg.Timeout, nil)

	switch cfg.Provider {
	case config.ProviderWinnipeg:
		key, err := config.LoadAPIKey(cfg.Winnipeg.APIKeyFile, os.Getenv)
		if err != nil {
			if !errors.Is(err, config.ErrAPIKeyFileMissing) {
				return nil, err
			}
			logger.Warn("API key file not found, requests will be rejected", "path", cfg.Winnipeg.APIKeyFile)
			if term != nil {
				term.WarnMissingKey(cfg.Winnipeg.APIKeyFile)
			}
		}
		cfg.APIKey = key
		return transit.NewAPI(transit.NewClient(httpClient, logger), cfg.Winnipeg.BaseURL, key), nil

	case config.ProviderOBA:
		loc, err := time.LoadLocation(cfg.OBA.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid oba.timezone %q: %w", cfg.OBA.Timezone, err)
		}
		return oba.NewSource(cfg.OBA.BaseURL, cfg.OBA.APIKey, httpClient, loc, logger), nil

	case config.ProviderGTFS:
		source := gtfs.NewSource(transit.NewClient(httpClient, logger), cfg.GTFS.Bundle, logger)
		source.CacheDir = cfg.GTFS.CacheDir
		if err := source.Load(ctx); err != nil {
			return nil, fmt.Errorf("failed to load GTFS bundle: %w", err)
		}
		if serving {
			interval := cfg.GTFS.RefreshInterval
			if interval <= 0 {
				interval = defaultBundleRefresh
			}
			go source.Refresh(ctx, interval)
		}
		return source, nil
	}

	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

// coverageReporter is implemented by sources that know the area they serve.
type coverageReporter interface {
	Covers(p geo.Point) (covered, known bool)
}

// warnOutsideCoverage logs a warning when near lies outside the area served
// by source. It reports whether the warning was given.
func warnOutsideCoverage(source stops.Source, near *geo.Point, logger *slog.Logger) bool {
	if near == nil {
		return false
	}
	cr, ok := source.(coverageReporter)
	if !ok {
		return false
	}
	if covered, known := cr.Covers(*near); !known || covered {
		return false
	}
	logger.Warn("Reference point is outside the area served by the provider, distances may be meaningless",
		"provider", source.Name(),
		"lat", near.Lat,
		"lon", near.Lon,
	)
	return true
}
