// Package console is the interactive terminal front end: it prompts for an
// action and a search term, then prints stops or a stop schedule.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"transittracker.app/internal/extract"
	"transittracker.app/internal/geo"
	"transittracker.app/internal/models"
	"transittracker.app/internal/stops"
)

const (
	ActionSearch   = "1"
	ActionSchedule = "2"
)

const (
	actionPrompt   = "1 for stop search, 2 for bus schedule: "
	searchPrompt   = "Search for stop: "
	schedulePrompt = "Stop number (ex. 10758)? "
	pagerPrompt    = "Press Enter to list next stop... "
	continuePrompt = "Press Enter to continue..."
)

// Console reads answers from In and writes results to Out.
type Console struct {
	in     *bufio.Reader
	out    io.Writer
	source stops.Source
	logger *slog.Logger

	// Near, when set, adds the distance from this point to every listed stop.
	Near *geo.Point
	// Paged waits for Enter after each listed stop.
	Paged bool
}

// New creates an interactive Console over source.
func New(in io.Reader, out io.Writer, source stops.Source, logger *slog.Logger) *Console {
	return &Console{
		in:     bufio.NewReader(in),
		out:    out,
		source: source,
		logger: logger,
		Paged:  true,
	}
}

// SetSource replaces the source the console queries.
func (c *Console) SetSource(source stops.Source) {
	c.source = source
}

// Run performs one action. Empty action or term are asked for on the terminal.
func (c *Console) Run(ctx context.Context, action, term string) error {
	if action == "" {
		answer, err := c.prompt(actionPrompt)
		if err != nil {
			return err
		}
		action = answer
	}

	switch action {
	case ActionSearch:
		if term == "" {
			answer, err := c.prompt(searchPrompt)
			if err != nil {
				return err
			}
			term = answer
		}
		return c.StopSearch(ctx, term)
	case ActionSchedule:
		if term == "" {
			answer, err := c.prompt(schedulePrompt)
			if err != nil {
				return err
			}
			term = answer
		}
		return c.BusTimer(ctx, term)
	default:
		c.logger.Warn("Unknown action, nothing to do", "action", action)
		return nil
	}
}

// StopSearch lists the stops matching query.
func (c *Console) StopSearch(ctx context.Context, query string) error {
	found, body, err := stops.Search(ctx, c.source, query)
	if err != nil {
		return err
	}

	if len(found) == 0 {
		c.println("No stops found")
		if body != nil {
			c.println("Raw XML response:")
			c.println(string(body))
		}
		return nil
	}

	for _, stop := range found {
		c.printf("Name: %s\n", stop.Name)
		c.printf("Street: %s\n", stop.Street)
		c.printf("Lat: %s Long: %s\n", stop.Latitude, stop.Longitude)
		if c.Near != nil {
			c.printf("Distance: %s\n", geo.DistanceToStop(*c.Near, stop))
		}
		if c.Paged {
			if _, err := c.prompt(pagerPrompt); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}
	}
	return nil
}

// BusTimer prints the schedule of stopID.
func (c *Console) BusTimer(ctx context.Context, stopID string) error {
	schedule, err := c.source.StopSchedule(ctx, stopID)
	if errors.Is(err, extract.ErrNoStop) {
		c.println("No stop found")
		return nil
	}
	if err != nil {
		return err
	}
	PrintSchedule(c.out, schedule)
	return nil
}

// PrintSchedule writes the stop header followed by every route and visit.
func PrintSchedule(w io.Writer, schedule *models.StopSchedule) {
	fmt.Fprintf(w, "Stop: %s\n", schedule.Stop.Name)
	fmt.Fprintf(w, "Direction: %s\n", schedule.Stop.Direction)
	fmt.Fprintf(w, "Street: %s\n", schedule.Stop.Street)
	fmt.Fprintf(w, "Cross Street: %s\n", schedule.Stop.CrossStreet)
	fmt.Fprintln(w, strings.Repeat("-", 50))

	if !schedule.HasRouteSchedules {
		fmt.Fprintln(w, "No route schedules found")
		return
	}

	for _, route := range schedule.Routes {
		if !route.HasRoute {
			fmt.Fprintln(w, "No route information found")
			continue
		}
		fmt.Fprintf(w, "Route: %s - %s\n", route.Key, route.Name)

		if !route.HasScheduledStops {
			fmt.Fprintln(w, "  No scheduled stops found")
			continue
		}
		for _, visit := range route.Stops {
			if !visit.HasTimes {
				fmt.Fprintf(w, "  Stop: %s (Trip: %s) - no times\n", visit.Key, visit.TripKey)
				continue
			}
			fmt.Fprintf(w, "  Stop: %s (Trip: %s)\n", visit.Key, visit.TripKey)
			fmt.Fprintf(w, "    Arrival: %s (est: %s)\n", visit.ArrivalScheduled, visit.ArrivalEstimated)
			fmt.Fprintf(w, "    Departure: %s (est: %s)\n", visit.DepartureScheduled, visit.DepartureEstimated)
		}
		fmt.Fprintln(w)
	}
}

// WarnMissingKey tells the user the API key file is missing and waits for Enter.
func (c *Console) WarnMissingKey(path string) {
	c.printf("[WARN] %s not found!\n", path)
	c.printf("You need a file called %s with an API key in it\n", path)
	_, _ = c.prompt(continuePrompt)
}

// prompt writes label and returns the trimmed line typed by the user.
// A final line without newline is accepted; io.EOF is returned only when
// nothing was typed.
func (c *Console) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}
