package models

import (
	"strconv"
	"strings"
)

// NA is the display placeholder for any value the transit API did not send.
const NA = "N/A"

// Text is an optional string value taken from an API response.
// The zero value means the field was absent from the source document.
type Text struct {
	Value string
	Valid bool
}

// NewText returns a present Text. Whitespace-only input is treated as absent.
func NewText(s string) Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return Text{}
	}
	return Text{Value: s, Valid: true}
}

// TextFrom converts an optional element value into a Text.
func TextFrom(s *string) Text {
	if s == nil {
		return Text{}
	}
	return NewText(*s)
}

// Or returns the value, or fallback when the field is missing.
func (t Text) Or(fallback string) string {
	if !t.Valid {
		return fallback
	}
	return t.Value
}

// String formats the value for display, using NA for missing fields.
func (t Text) String() string {
	return t.Or(NA)
}

// Stop is one result of a stop search.
type Stop struct {
	Key       Text
	Number    Text
	Name      Text
	Street    Text
	Latitude  Text
	Longitude Text
}

// Coordinates parses the stop's latitude and longitude.
// ok is false when either value is missing or not a decimal number.
func (s Stop) Coordinates() (lat, lon float64, ok bool) {
	if !s.Latitude.Valid || !s.Longitude.Valid {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(s.Latitude.Value, 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(s.Longitude.Value, 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// StopHeader describes the stop a schedule belongs to.
type StopHeader struct {
	Name        Text
	Direction   Text
	Street      Text
	CrossStreet Text
}

// StopSchedule is the extracted content of a stop-schedule response.
//
// HasRouteSchedules is false when the response carried no route-schedules
// element at all, which is distinct from an empty one.
type StopSchedule struct {
	Stop              StopHeader
	HasRouteSchedules bool
	Routes            []RouteSchedule
}

// RouteSchedule groups the scheduled visits of one route at the stop.
type RouteSchedule struct {
	HasRoute          bool
	Key               Text
	Name              Text
	HasScheduledStops bool
	Stops             []ScheduledStop
}

// ScheduledStop is one scheduled visit of a trip at the stop.
type ScheduledStop struct {
	Key                Text
	TripKey            Text
	HasTimes           bool
	ArrivalScheduled   Text
	ArrivalEstimated   Text
	DepartureScheduled Text
	DepartureEstimated Text
}

// LastVisit returns the route and visit that were extracted last, in
// document order. ok is false when the schedule has no visit with times.
func (s *StopSchedule) LastVisit() (route RouteSchedule, visit ScheduledStop, ok bool) {
	for _, r := range s.Routes {
		if !r.HasRoute {
			continue
		}
		for _, v := range r.Stops {
			if v.HasTimes {
				route, visit, ok = r, v, true
			}
		}
	}
	return route, visit, ok
}

// VisitCount returns the total number of scheduled visits across all routes.
func (s *StopSchedule) VisitCount() int {
	n := 0
	for _, r := range s.Routes {
		n += len(r.Stops)
	}
	return n
}
