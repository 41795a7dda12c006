// Package stops defines the provider-neutral view of a transit data source
// used by the console and the web board.
package stops

import (
	"context"
	"errors"

	"transittracker.app/internal/models"
)

// ErrUnsupported is returned by a Source that cannot serve an operation.
var ErrUnsupported = errors.New("operation not supported by this provider")

// Source answers stop searches and stop-schedule lookups.
type Source interface {
	// Name identifies the provider in logs and reports.
	Name() string
	SearchStops(ctx context.Context, query string) ([]models.Stop, error)
	StopSchedule(ctx context.Context, stopID string) (*models.StopSchedule, error)
}

// RawSearcher is implemented by sources that can hand back the unparsed
// search response together with the stops extracted from it, used to show
// what the provider said when nothing matched.
type RawSearcher interface {
	SearchStopsRaw(ctx context.Context, query string) ([]models.Stop, []byte, error)
}

// Search runs one stop search against source. body is the response the
// stops were extracted from, or nil when source is not a RawSearcher.
func Search(ctx context.Context, source Source, query string) (found []models.Stop, body []byte, err error) {
	if raw, ok := source.(RawSearcher); ok {
		return raw.SearchStopsRaw(ctx, query)
	}
	found, err = source.SearchStops(ctx, query)
	return found, nil, err
}
