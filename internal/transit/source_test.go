package transit

import "transittracker.app/internal/stops"

var (
	_ stops.Source      = (*API)(nil)
	_ stops.RawSearcher = (*API)(nil)
)
