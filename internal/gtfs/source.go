package gtfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"transittracker.app/internal/geo"
	"transittracker.app/internal/models"
	"transittracker.app/internal/stops"
	"transittracker.app/internal/transit"
)

// ErrNotLoaded is returned by searches made before any bundle was loaded.
var ErrNotLoaded = errors.New("GTFS bundle not loaded")

// Source searches the stops of a static GTFS bundle. It works offline once
// the bundle is loaded and has no schedule lookup.
type Source struct {
	Store    *StaticStore
	Client   *transit.Client
	Location string
	Logger   *slog.Logger

	// CacheDir, when set, keeps a copy of each downloaded bundle so a failed
	// download can fall back to the last good one.
	CacheDir string
}

// NewSource creates a Source for the bundle at location (URL or file path).
func NewSource(client *transit.Client, location string, logger *slog.Logger) *Source {
	return &Source{
		Store:    NewStaticStore(),
		Client:   client,
		Location: location,
		Logger:   logger,
	}
}

func (s *Source) Name() string { return "gtfs" }

// Ready reports whether a bundle has been loaded.
func (s *Source) Ready() bool {
	_, ok := s.Store.Get()
	return ok
}

// Covers reports whether p lies inside the bounding box of the loaded
// bundle's stops. known is false before a bundle with located stops loads.
func (s *Source) Covers(p geo.Point) (covered, known bool) {
	bundle, ok := s.Store.Get()
	if !ok || bundle.BoundingBox == nil {
		return false, false
	}
	return bundle.BoundingBox.Contains(p.Lat, p.Lon), true
}

// Load reads the bundle once. It must succeed before the first search.
func (s *Source) Load(ctx context.Context) error {
	start := time.Now()
	if err := s.loadAndStoreBundle(ctx); err != nil {
		return err
	}
	bundle, _ := s.Store.Get()
	s.Logger.Info("Loaded GTFS bundle",
		"location", s.Location,
		"stops", len(bundle.Stops),
		"duration", time.Since(start),
	)
	return nil
}

// Refresh reloads the bundle every interval until ctx is done. A failed
// reload keeps serving the previous bundle.
func (s *Source) Refresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("Stopping GTFS bundle refresh routine")
			return
		case <-ticker.C:
			s.Logger.Info("Refreshing GTFS bundle", "location", s.Location)
			if err := s.loadAndStoreBundle(ctx); err != nil {
				s.Logger.Error("Failed to refresh GTFS bundle", "location", s.Location, "error", err)
			}
		}
	}
}

// SearchStops returns the stops whose name contains query (case-insensitive)
// or whose id or code equals it, in bundle order.
func (s *Source) SearchStops(ctx context.Context, query string) ([]models.Stop, error) {
	bundle, ok := s.Store.Get()
	if !ok {
		return nil, ErrNotLoaded
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	var found []models.Stop
	for _, stop := range bundle.Stops {
		if strings.Contains(strings.ToLower(stop.Name.Value), q) ||
			strings.ToLower(stop.Key.Value) == q ||
			strings.ToLower(stop.Number.Value) == q {
			found = append(found, stop)
		}
	}
	return found, nil
}

// StopSchedule is not available from a static bundle.
func (s *Source) StopSchedule(ctx context.Context, stopID string) (*models.StopSchedule, error) {
	return nil, fmt.Errorf("schedule for stop %s: %w", stopID, stops.ErrUnsupported)
}
