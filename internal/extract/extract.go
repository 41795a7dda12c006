// Package extract turns transit API XML documents into typed records.
//
// Extraction is tolerant: any element missing at any depth leaves the
// corresponding field empty (models.Text{}) instead of failing. Only a
// document that is not well-formed XML is rejected.
package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"transittracker.app/internal/metrics"
	"transittracker.app/internal/models"
)

// ErrNoStop is returned by Schedule when the document has no stop element.
var ErrNoStop = errors.New("no stop found")

// ParseError reports a document that is not well-formed XML.
type ParseError struct {
	Document string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed %s document: %v", e.Document, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseError(document string, err error) error {
	metrics.ExtractionFailures.WithLabelValues(document).Inc()
	return &ParseError{Document: document, Err: err}
}

// newDecoder reads data, converting documents declared in a non-UTF-8
// encoding such as ISO-8859-1.
func newDecoder(data []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

type namedElement struct {
	Name *string `xml:"name"`
}

func (n *namedElement) text() models.Text {
	if n == nil {
		return models.Text{}
	}
	return models.TextFrom(n.Name)
}

type geographicElement struct {
	Latitude  *string `xml:"latitude"`
	Longitude *string `xml:"longitude"`
}

type stopElement struct {
	Key        *string            `xml:"key"`
	Number     *string            `xml:"number"`
	Name       *string            `xml:"name"`
	Street     *namedElement      `xml:"street"`
	Geographic *geographicElement `xml:"geographic"`
}

func (s *stopElement) record() models.Stop {
	stop := models.Stop{
		Key:    models.TextFrom(s.Key),
		Number: models.TextFrom(s.Number),
		Name:   models.TextFrom(s.Name),
		Street: s.Street.text(),
	}
	if g := s.Geographic; g != nil {
		stop.Latitude = models.TextFrom(g.Latitude)
		stop.Longitude = models.TextFrom(g.Longitude)
	}
	return stop
}

// Stops extracts every stop element below the document root, in document order.
func Stops(data []byte) ([]models.Stop, error) {
	dec := newDecoder(data)

	var stops []models.Stop
	depth := 0
	sawRoot := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseError("stops", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if sawRoot {
					return nil, parseError("stops", errors.New("junk after document element"))
				}
				sawRoot = true
				depth++
				continue
			}
			if t.Name.Local != "stop" {
				depth++
				continue
			}
			var el stopElement
			if err := dec.DecodeElement(&el, &t); err != nil {
				return nil, parseError("stops", err)
			}
			stops = append(stops, el.record())
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, parseError("stops", errors.New("text outside document element"))
			}
		}
	}

	if !sawRoot {
		return nil, parseError("stops", errors.New("no element found"))
	}

	metrics.RecordsExtracted.WithLabelValues("stop").Add(float64(len(stops)))
	return stops, nil
}

type timePairElement struct {
	Scheduled *string `xml:"scheduled"`
	Estimated *string `xml:"estimated"`
}

type scheduledStopElement struct {
	Key     *string `xml:"key"`
	TripKey *string `xml:"trip-key"`
	Times   *struct {
		Arrival   *timePairElement `xml:"arrival"`
		Departure *timePairElement `xml:"departure"`
	} `xml:"times"`
}

type routeScheduleElement struct {
	Route *struct {
		Key  *string `xml:"key"`
		Name *string `xml:"name"`
	} `xml:"route"`
	ScheduledStops *struct {
		Stops []scheduledStopElement `xml:"scheduled-stop"`
	} `xml:"scheduled-stops"`
}

type scheduleDocument struct {
	Stops []struct {
		Name        *string       `xml:"name"`
		Direction   *string       `xml:"direction"`
		Street      *namedElement `xml:"street"`
		CrossStreet *namedElement `xml:"cross-street"`
	} `xml:"stop"`
	RouteSchedules []struct {
		Routes []routeScheduleElement `xml:"route-schedule"`
	} `xml:"route-schedules"`
}

// Schedule extracts a stop-schedule document.
//
// It returns ErrNoStop when the root has no stop child. A document without a
// route-schedules element yields the stop header with HasRouteSchedules unset.
func Schedule(data []byte) (*models.StopSchedule, error) {
	dec := newDecoder(data)

	var doc scheduleDocument
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			err = errors.New("no element found")
		}
		return nil, parseError("schedule", err)
	}
	if err := expectEnd(dec); err != nil {
		return nil, parseError("schedule", err)
	}

	if len(doc.Stops) == 0 {
		return nil, ErrNoStop
	}

	header := doc.Stops[0]
	schedule := &models.StopSchedule{
		Stop: models.StopHeader{
			Name:        models.TextFrom(header.Name),
			Direction:   models.TextFrom(header.Direction),
			Street:      header.Street.text(),
			CrossStreet: header.CrossStreet.text(),
		},
	}

	if len(doc.RouteSchedules) == 0 {
		return schedule, nil
	}
	schedule.HasRouteSchedules = true

	visits := 0
	for _, rs := range doc.RouteSchedules[0].Routes {
		schedule.Routes = append(schedule.Routes, routeRecord(rs))
		visits += len(schedule.Routes[len(schedule.Routes)-1].Stops)
	}

	metrics.RecordsExtracted.WithLabelValues("route").Add(float64(len(schedule.Routes)))
	metrics.RecordsExtracted.WithLabelValues("visit").Add(float64(visits))
	return schedule, nil
}

func routeRecord(rs routeScheduleElement) models.RouteSchedule {
	var route models.RouteSchedule
	if rs.Route == nil {
		return route
	}
	route.HasRoute = true
	route.Key = models.TextFrom(rs.Route.Key)
	route.Name = models.TextFrom(rs.Route.Name)

	if rs.ScheduledStops == nil {
		return route
	}
	route.HasScheduledStops = true

	for _, s := range rs.ScheduledStops.Stops {
		visit := models.ScheduledStop{
			Key:     models.TextFrom(s.Key),
			TripKey: models.TextFrom(s.TripKey),
		}
		if s.Times != nil {
			visit.HasTimes = true
			if a := s.Times.Arrival; a != nil {
				visit.ArrivalScheduled = models.TextFrom(a.Scheduled)
				visit.ArrivalEstimated = models.TextFrom(a.Estimated)
			}
			if d := s.Times.Departure; d != nil {
				visit.DepartureScheduled = models.TextFrom(d.Scheduled)
				visit.DepartureEstimated = models.TextFrom(d.Estimated)
			}
		}
		route.Stops = append(route.Stops, visit)
	}
	return route
}

// expectEnd consumes the rest of the document and fails if anything other
// than whitespace, comments or processing instructions follows the root.
func expectEnd(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return errors.New("junk after document element")
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return errors.New("text outside document element")
			}
		}
	}
}
