package gtfs

import (
	"time"

	remoteGtfs "github.com/jamespfennell/gtfs"
	"transittracker.app/internal/metrics"
)

// serviceEndDates returns the earliest and latest calendar end dates.
// The GTFS library does not expose feed_info.txt, so the calendar stands in
// for the feed validity window.
func serviceEndDates(services []remoteGtfs.Service) (earliest, latest time.Time) {
	for i, service := range services {
		if i == 0 || service.EndDate.Before(earliest) {
			earliest = service.EndDate
		}
		if i == 0 || service.EndDate.After(latest) {
			latest = service.EndDate
		}
	}
	return earliest, latest
}

// daysUntil counts whole days from now to t; negative once t has passed.
func daysUntil(t, now time.Time) int {
	return int(t.Sub(now).Hours() / 24)
}

// recordBundleExpiration publishes how many days the loaded bundle stays valid.
func recordBundleExpiration(bundle *Bundle, now time.Time) {
	if bundle.LatestServiceEnd.IsZero() {
		return
	}
	metrics.BundleEarliestExpiration.Set(float64(daysUntil(bundle.EarliestServiceEnd, now)))
	metrics.BundleLatestExpiration.Set(float64(daysUntil(bundle.LatestServiceEnd, now)))
}
