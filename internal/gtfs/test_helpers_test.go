package gtfs

import (
	"archive/zip"
	"bytes"
	"testing"
)

// winnipegFeed is a minimal static feed: two boarding stops, one station and
// one stop without a location.
var winnipegFeed = map[string]string{
	"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
		"WT,Winnipeg Transit,https://winnipegtransit.com,America/Winnipeg\n",
	"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
		"18,WT,18,North Main-Corydon,3\n",
	"stops.txt": "stop_id,stop_code,stop_name,stop_lat,stop_lon,location_type\n" +
		"10758,10758,Northbound Main at William,49.90211,-97.13782,0\n" +
		"10542,10542,Southbound Main at Higgins,49.90344,-97.13497,0\n" +
		"S1,,Union Station,49.88965,-97.13372,1\n" +
		"10999,10999,Eastbound Graham at Vaughan,,,0\n",
	"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
		"WKDY,1,1,1,1,1,0,0,20260901,20261231\n",
	"trips.txt": "route_id,service_id,trip_id\n" +
		"18,WKDY,20587813\n",
	"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"20587813,14:02:00,14:02:00,10758,1\n" +
		"20587813,14:05:00,14:05:00,10542,2\n",
}

// buildBundle zips the given files into an in-memory GTFS bundle.
func buildBundle(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to add %s to bundle: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close bundle: %v", err)
	}
	return buf.Bytes()
}
