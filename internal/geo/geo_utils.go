package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
	"transittracker.app/internal/models"
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// ParsePoint parses a "lat,lon" pair such as the value of the -near flag.
func ParsePoint(s string) (Point, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("invalid point %q: expected lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}
	if !IsValidLatLon(lat, lon) {
		return Point{}, fmt.Errorf("point %q is outside valid coordinate bounds", s)
	}
	return Point{Lat: lat, Lon: lon}, nil
}

// StopPoint returns the location of a stop, if it has a usable one.
func StopPoint(stop models.Stop) (Point, bool) {
	lat, lon, ok := stop.Coordinates()
	if !ok || !IsValidLatLon(lat, lon) {
		return Point{}, false
	}
	return Point{Lat: lat, Lon: lon}, true
}

// BoundingBox defines the corners of a lat/lon box
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains checks whether the given latitude and longitude are within the bounding box
func (b *BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// ComputeBoundingBox computes the bounding box of every stop that has coordinates.
func ComputeBoundingBox(stops []models.Stop) (BoundingBox, error) {
	if len(stops) == 0 {
		return BoundingBox{}, fmt.Errorf("no stops to compute bounding box")
	}

	minLat := math.MaxFloat64
	maxLat := -math.MaxFloat64
	minLon := math.MaxFloat64
	maxLon := -math.MaxFloat64

	for _, stop := range stops {
		p, ok := StopPoint(stop)
		if !ok {
			continue
		}
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}

	if minLat == math.MaxFloat64 {
		return BoundingBox{}, fmt.Errorf("no valid latitude/longitude found in stops")
	}

	return BoundingBox{
		MinLat: minLat,
		MaxLat: maxLat,
		MinLon: minLon,
		MaxLon: maxLon,
	}, nil
}

// IsValidLatLon returns true if the given latitude and longitude values
// fall within the valid geographic coordinate bounds.
//
// Note: (0,0) is treated as invalid. Feeds use it as a placeholder for
// unknown locations far more often than for the Gulf of Guinea.
func IsValidLatLon(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}

// earthRadiusInMeters is the Earth's volumetric mean radius.
//
// Reference: NASA Planetary Fact Sheet – Earth
// https://nssdc.gsfc.nasa.gov/planetary/factsheet/earthfact.html
const earthRadiusInMeters = 6371000

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * earthRadiusInMeters
}

// DistanceToStop returns the distance from ref to stop, or "N/A" when the
// stop has no location.
func DistanceToStop(ref Point, stop models.Stop) string {
	p, ok := StopPoint(stop)
	if !ok {
		return models.NA
	}
	return FormatDistance(Distance(ref, p))
}

// FormatDistance renders meters as "350 m" or "1.2 km".
func FormatDistance(m float64) string {
	if m < 1000 {
		return fmt.Sprintf("%.0f m", m)
	}
	return fmt.Sprintf("%.1f km", m/1000)
}
