package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	remoteGtfs "github.com/jamespfennell/gtfs"
	"transittracker.app/internal/geo"
	"transittracker.app/internal/models"
	"transittracker.app/internal/report"
	"transittracker.app/internal/transit"
	"transittracker.app/internal/utils"
)

// maxBundleSize bounds a downloaded bundle.
const maxBundleSize = 256 << 20

// isRemote reports whether location names an HTTP(S) URL rather than a file.
func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// readBundle returns the raw zip bytes of a bundle from a URL or a local path.
// Downloads go through client and share the transit API retry policy.
func readBundle(ctx context.Context, client *transit.Client, location string) ([]byte, error) {
	if !isRemote(location) {
		// #nosec G304 -- path comes from operator configuration
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("failed to read GTFS bundle %s: %w", location, err)
		}
		return data, nil
	}

	if client == nil {
		return nil, fmt.Errorf("no HTTP client configured to download %s", location)
	}
	resp, err := client.Get(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to download GTFS bundle %s: %w", location, err)
	}
	defer resp.Body.Close()

	if err := transit.CheckStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBundleSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read GTFS bundle response body from %s: %w", location, err)
	}
	return data, nil
}

// parseBundle parses zip bytes and keeps the boarding stops.
func parseBundle(data []byte, now time.Time) (*Bundle, error) {
	staticBundle, err := remoteGtfs.ParseStatic(data, remoteGtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse GTFS static data: %w", err)
	}

	bundle := &Bundle{LoadedAt: now}
	for _, stop := range staticBundle.Stops {
		// location_type 0 is a stop or platform; stations and entrances are not searchable
		if stop.Type != 0 {
			continue
		}
		bundle.Stops = append(bundle.Stops, stopRecord(stop))
	}
	if len(bundle.Stops) == 0 {
		return nil, fmt.Errorf("GTFS bundle has no stops")
	}

	if bbox, err := geo.ComputeBoundingBox(bundle.Stops); err == nil {
		bundle.BoundingBox = &bbox
	}
	bundle.EarliestServiceEnd, bundle.LatestServiceEnd = serviceEndDates(staticBundle.Services)
	return bundle, nil
}

func stopRecord(stop remoteGtfs.Stop) models.Stop {
	record := models.Stop{
		Key:    models.NewText(stop.Id),
		Number: models.NewText(stop.Code),
		Name:   models.NewText(stop.Name),
	}
	if stop.Latitude != nil && stop.Longitude != nil {
		record.Latitude = models.NewText(strconv.FormatFloat(float64(*stop.Latitude), 'f', -1, 64))
		record.Longitude = models.NewText(strconv.FormatFloat(float64(*stop.Longitude), 'f', -1, 64))
	}
	return record
}

// cachePrefix starts the name of every cached bundle.
const cachePrefix = "gtfs"

// fetchBundle reads the bundle at location. A downloaded bundle is copied to
// cacheDir; when the download fails, the newest cached copy is used instead.
func fetchBundle(ctx context.Context, client *transit.Client, location, cacheDir string, logger *slog.Logger) ([]byte, error) {
	data, err := readBundle(ctx, client, location)
	if !isRemote(location) || cacheDir == "" {
		return data, err
	}

	if err == nil {
		name := utils.CacheFileName(cachePrefix, location, ".zip")
		if cacheErr := utils.WriteCacheFile(cacheDir, name, data); cacheErr != nil {
			logger.Warn("Failed to cache GTFS bundle", "cache_dir", cacheDir, "error", cacheErr)
		}
		return data, nil
	}

	cached, cacheErr := utils.GetLastCachedFile(cacheDir, utils.CacheFileName(cachePrefix, location, ""))
	if cacheErr != nil {
		return nil, err
	}
	// #nosec G304 -- path is inside the configured cache directory
	data, cacheErr = os.ReadFile(cached)
	if cacheErr != nil {
		return nil, err
	}
	logger.Warn("Using cached GTFS bundle", "location", location, "path", cached, "error", err)
	return data, nil
}

// loadAndStoreBundle reads, parses and stores the bundle of s.
func (s *Source) loadAndStoreBundle(ctx context.Context) error {
	data, err := fetchBundle(ctx, s.Client, s.Location, s.CacheDir, s.Logger)
	if err == nil {
		var bundle *Bundle
		bundle, err = parseBundle(data, time.Now())
		if err == nil {
			s.Store.Set(bundle)
			recordBundleExpiration(bundle, time.Now())
			return nil
		}
	}
	report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
		Tags: utils.MakeMap("provider", "gtfs"),
		ExtraContext: map[string]interface{}{
			"location":  s.Location,
			"cache_dir": s.CacheDir,
		},
		Level: sentry.LevelError,
	})
	return err
}
