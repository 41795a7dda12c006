package extract

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"transittracker.app/internal/metrics"
	"transittracker.app/internal/models"
)

func TestStops(t *testing.T) {
	stops, err := Stops(readFixture(t, "stops_search.xml"))
	if err != nil {
		t.Fatalf("Stops failed: %v", err)
	}

	if len(stops) != 3 {
		t.Fatalf("Expected 3 stops, got %d", len(stops))
	}

	wantNames := []string{
		"Eastbound Graham at Vaughan",
		"Eastbound Graham at Carlton",
		"Eastbound Graham at Edmonton",
	}
	for i, want := range wantNames {
		if got := stops[i].Name.String(); got != want {
			t.Errorf("stop %d: expected name %q, got %q", i, want, got)
		}
	}

	first := stops[0]
	if first.Street.String() != "Graham Avenue" {
		t.Errorf("Expected street Graham Avenue, got %q", first.Street)
	}
	if first.Latitude.String() != "49.89369" || first.Longitude.String() != "-97.14422" {
		t.Errorf("Unexpected coordinates %s, %s", first.Latitude, first.Longitude)
	}
	if first.Key.String() != "10064" || first.Number.String() != "10064" {
		t.Errorf("Unexpected key/number %s/%s", first.Key, first.Number)
	}

	t.Run("missing geographic", func(t *testing.T) {
		s := stops[1]
		if s.Latitude.Valid || s.Longitude.Valid {
			t.Fatalf("Expected coordinates to be missing, got %+v", s)
		}
		if s.Latitude.String() != models.NA || s.Longitude.String() != models.NA {
			t.Errorf("Expected N/A coordinates, got %s, %s", s.Latitude, s.Longitude)
		}
	})

	t.Run("geographic only below centre", func(t *testing.T) {
		s := stops[2]
		if s.Latitude.String() != models.NA || s.Longitude.String() != models.NA {
			t.Errorf("Expected N/A coordinates, got %s, %s", s.Latitude, s.Longitude)
		}
		if _, _, ok := s.Coordinates(); ok {
			t.Error("Expected no usable coordinates")
		}
	})
}

func TestStopsMainStreetFixture(t *testing.T) {
	stops, err := Stops(readFixture(t, "stops_main_st.xml"))
	if err != nil {
		t.Fatalf("Stops failed: %v", err)
	}
	if len(stops) != 1 {
		t.Fatalf("Expected 1 stop, got %d", len(stops))
	}

	s := stops[0]
	if s.Name.String() != "Main St" {
		t.Errorf("Expected name Main St, got %q", s.Name)
	}
	if s.Street.String() != "N/A" {
		t.Errorf("Expected street N/A, got %q", s.Street)
	}
	if s.Latitude.String() != "49.89861" {
		t.Errorf("Expected latitude 49.89861, got %q", s.Latitude)
	}
	if s.Longitude.String() != "N/A" {
		t.Errorf("Expected longitude N/A, got %q", s.Longitude)
	}
}

func TestStopsCountAndOrder(t *testing.T) {
	for _, n := range []int{0, 1, 5, 40} {
		t.Run(fmt.Sprintf("%d stops", n), func(t *testing.T) {
			var b strings.Builder
			b.WriteString("<stops>")
			for i := 0; i < n; i++ {
				fmt.Fprintf(&b, "<stop><key>%d</key><name>Stop %d</name></stop>", i, i)
			}
			b.WriteString("</stops>")

			stops, err := Stops([]byte(b.String()))
			if err != nil {
				t.Fatalf("Stops failed: %v", err)
			}
			if len(stops) != n {
				t.Fatalf("Expected %d stops, got %d", n, len(stops))
			}
			for i, s := range stops {
				if want := fmt.Sprintf("Stop %d", i); s.Name.String() != want {
					t.Errorf("position %d: expected %q, got %q", i, want, s.Name)
				}
			}
		})
	}
}

func TestStopsFindsNestedStops(t *testing.T) {
	doc := `<response><page><stop><name>A</name></stop></page><stop><name>B</name></stop></response>`

	stops, err := Stops([]byte(doc))
	if err != nil {
		t.Fatalf("Stops failed: %v", err)
	}
	if len(stops) != 2 || stops[0].Name.String() != "A" || stops[1].Name.String() != "B" {
		t.Errorf("Unexpected stops: %+v", stops)
	}
}

func TestLatin1Documents(t *testing.T) {
	// "Pembina at Chévrier" with é as the single ISO-8859-1 byte 0xE9
	name := []byte("Pembina at Ch\xe9vrier")
	prolog := `<?xml version="1.0" encoding="ISO-8859-1"?>`

	stopsDoc := append([]byte(prolog+"<stops><stop><name>"), name...)
	stopsDoc = append(stopsDoc, "</name></stop></stops>"...)
	stops, err := Stops(stopsDoc)
	if err != nil {
		t.Fatalf("Stops failed: %v", err)
	}
	if len(stops) != 1 || stops[0].Name.String() != "Pembina at Chévrier" {
		t.Errorf("unexpected stops %+v", stops)
	}

	scheduleDoc := append([]byte(prolog+"<stop-schedule><stop><name>"), name...)
	scheduleDoc = append(scheduleDoc, "</name></stop></stop-schedule>"...)
	schedule, err := Schedule(scheduleDoc)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if schedule.Stop.Name.String() != "Pembina at Chévrier" {
		t.Errorf("unexpected stop name %q", schedule.Stop.Name)
	}
}

func TestStopsMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"whitespace only", "  \n "},
		{"unclosed root", "<stops><stop><name>A</name></stop>"},
		{"mismatched tags", "<stops><stop><name>A</stop></name></stops>"},
		{"two roots", "<stops></stops><stops></stops>"},
		{"text after root", "<stops></stops>trailing"},
		{"not xml", `{"stops": []}`},
	}

	failuresBefore := metrics.CounterValue(metrics.ExtractionFailures.WithLabelValues("stops"))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Stops([]byte(tt.doc))
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Expected *ParseError, got %v", err)
			}
			if perr.Document != "stops" {
				t.Errorf("Expected document stops, got %q", perr.Document)
			}
		})
	}

	failures := metrics.CounterValue(metrics.ExtractionFailures.WithLabelValues("stops")) - failuresBefore
	if int(failures) != len(tests) {
		t.Errorf("Expected %d extraction failures recorded, got %v", len(tests), failures)
	}
}

func TestSchedule(t *testing.T) {
	schedule, err := Schedule(readFixture(t, "stop_schedule.xml"))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	stop := schedule.Stop
	if stop.Name.String() != "Northbound Main at William" {
		t.Errorf("Unexpected stop name %q", stop.Name)
	}
	if stop.Direction.String() != "Northbound" {
		t.Errorf("Unexpected direction %q", stop.Direction)
	}
	if stop.Street.String() != "Main Street" || stop.CrossStreet.String() != "William Avenue" {
		t.Errorf("Unexpected streets %q / %q", stop.Street, stop.CrossStreet)
	}

	if !schedule.HasRouteSchedules {
		t.Fatal("Expected route schedules")
	}
	if len(schedule.Routes) != 4 {
		t.Fatalf("Expected 4 route schedules, got %d", len(schedule.Routes))
	}

	route := schedule.Routes[0]
	if !route.HasRoute || route.Key.String() != "18" || route.Name.String() != "Route 18 North Main-Corydon" {
		t.Errorf("Unexpected first route %+v", route)
	}
	if !route.HasScheduledStops || len(route.Stops) != 2 {
		t.Fatalf("Expected 2 scheduled stops, got %+v", route.Stops)
	}

	visit := route.Stops[0]
	want := models.ScheduledStop{
		Key:                models.NewText("20587813-34"),
		TripKey:            models.NewText("20587813"),
		HasTimes:           true,
		ArrivalScheduled:   models.NewText("2026-10-18T14:02:00"),
		ArrivalEstimated:   models.NewText("2026-10-18T14:04:12"),
		DepartureScheduled: models.NewText("2026-10-18T14:02:00"),
		DepartureEstimated: models.NewText("2026-10-18T14:04:12"),
	}
	if visit != want {
		t.Errorf("Expected visit %+v, got %+v", want, visit)
	}

	partial := route.Stops[1]
	if partial.ArrivalScheduled.String() != "2026-10-18T14:17:00" {
		t.Errorf("Unexpected arrival %q", partial.ArrivalScheduled)
	}
	if partial.ArrivalEstimated.Valid || partial.DepartureScheduled.Valid || partial.DepartureEstimated.Valid {
		t.Errorf("Expected missing estimate and departure, got %+v", partial)
	}

	noTimes := schedule.Routes[1].Stops[0]
	if noTimes.HasTimes {
		t.Errorf("Expected visit without times, got %+v", noTimes)
	}

	if r := schedule.Routes[2]; !r.HasRoute || r.HasScheduledStops {
		t.Errorf("Expected route without scheduled-stops, got %+v", r)
	}
	if r := schedule.Routes[3]; r.HasRoute {
		t.Errorf("Expected route-schedule without route, got %+v", r)
	}
}

func TestScheduleWithoutRouteSchedules(t *testing.T) {
	schedule, err := Schedule(readFixture(t, "stop_schedule_no_routes.xml"))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	if schedule.HasRouteSchedules {
		t.Error("Expected HasRouteSchedules to be false")
	}
	if len(schedule.Routes) != 0 {
		t.Errorf("Expected no routes, got %d", len(schedule.Routes))
	}
	if schedule.Stop.Name.String() != "Main St" {
		t.Errorf("Unexpected stop name %q", schedule.Stop.Name)
	}
	if schedule.Stop.Street.String() != "N/A" || schedule.Stop.CrossStreet.String() != "N/A" {
		t.Errorf("Expected N/A streets, got %q / %q", schedule.Stop.Street, schedule.Stop.CrossStreet)
	}
}

func TestScheduleNoStop(t *testing.T) {
	_, err := Schedule(readFixture(t, "stop_schedule_no_stop.xml"))
	if !errors.Is(err, ErrNoStop) {
		t.Fatalf("Expected ErrNoStop, got %v", err)
	}
}

func TestScheduleUsesFirstStop(t *testing.T) {
	doc := `<stop-schedule><stop><name>First</name></stop><stop><name>Second</name></stop></stop-schedule>`

	schedule, err := Schedule([]byte(doc))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if schedule.Stop.Name.String() != "First" {
		t.Errorf("Expected first stop, got %q", schedule.Stop.Name)
	}
}

func TestScheduleMalformed(t *testing.T) {
	for _, doc := range []string{
		"",
		"<stop-schedule><stop>",
		"<stop-schedule></stop-schedule><extra/>",
		"stop-schedule",
	} {
		_, err := Schedule([]byte(doc))
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("doc %q: expected *ParseError, got %v", doc, err)
		}
	}
}
