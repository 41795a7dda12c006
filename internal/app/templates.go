package app

import "html/template"

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} - TransitTracker</title>
<style>
  body { background: #000; color: #0ff; font-family: Courier, monospace; margin: 1.5rem; }
  a { color: #fff; }
  h1 { font-size: 1.25rem; }
  form { margin: 0.75rem 0; }
  input, button { font-family: inherit; font-size: 1rem; }
  .stop { border-bottom: 1px solid #055; padding: 0.5rem 0; }
  .now { border: 1px solid #0ff; padding: 0.5rem 1rem; margin: 1rem 0; }
  .visit { margin-left: 1.5rem; }
  .error { color: #f66; }
  pre { color: #aaa; white-space: pre-wrap; }
  footer { margin-top: 2rem; color: #077; font-size: 0.8rem; }
</style>
</head>
<body>
<h1><a href="/">TransitTracker</a> · {{.Title}}</h1>
{{template "content" .}}
<footer>TransitTracker {{.Version}} · {{.Provider}}</footer>
</body>
</html>{{end}}`

const homeTemplate = `{{define "content"}}
<form action="/stops" method="get">
  <label for="q">Stop Search</label>
  <input id="q" name="q" placeholder="Enter stop number or query" required>
  <button type="submit">Search</button>
</form>
<form action="/schedule" method="get">
  <label for="stop">Bus Schedule</label>
  <input id="stop" name="stop" placeholder="Stop number (ex. 10758)" required>
  <button type="submit">Show</button>
</form>
{{end}}`

const stopsTemplate = `{{define "content"}}
{{if .Stops}}
{{range .Stops}}
<div class="stop">
  <div>Name: {{if .Link}}<a href="{{.Link}}">{{.Stop.Name}}</a>{{else}}{{.Stop.Name}}{{end}}</div>
  <div>Street: {{.Stop.Street}}</div>
  <div>Lat: {{.Stop.Latitude}} Long: {{.Stop.Longitude}}</div>
  {{if .Distance}}<div>Distance: {{.Distance}}</div>{{end}}
</div>
{{end}}
{{else}}
<p>No stops found</p>
{{if .Raw}}<p>Raw XML response:</p>
<pre>{{.Raw}}</pre>{{end}}
{{end}}
{{end}}`

const scheduleTemplate = `{{define "content"}}
{{with .Schedule}}
<div>Stop: {{.Stop.Name}}</div>
<div>Direction: {{.Stop.Direction}}</div>
<div>Street: {{.Stop.Street}}</div>
<div>Cross Street: {{.Stop.CrossStreet}}</div>
{{end}}
{{if .HasNow}}
<div class="now">
  <div>Route: {{.NowRoute.Name}}</div>
  <div>Stop: {{.NowVisit.Key}}</div>
  <div>Arrival: {{.NowVisit.ArrivalScheduled}} (est: {{.NowVisit.ArrivalEstimated}})</div>
  <div>Departure: {{.NowVisit.DepartureScheduled}} (est: {{.NowVisit.DepartureEstimated}})</div>
</div>
{{end}}
{{with .Schedule}}
{{if not .HasRouteSchedules}}<p>No route schedules found</p>{{end}}
{{range .Routes}}
{{if .HasRoute}}
<h2>Route: {{.Key}} - {{.Name}}</h2>
{{if .HasScheduledStops}}
{{range .Stops}}
<div class="visit">
{{if .HasTimes}}
  <div>Stop: {{.Key}} (Trip: {{.TripKey}})</div>
  <div>Arrival: {{.ArrivalScheduled}} (est: {{.ArrivalEstimated}})</div>
  <div>Departure: {{.DepartureScheduled}} (est: {{.DepartureEstimated}})</div>
{{else}}
  <div>Stop: {{.Key}} (Trip: {{.TripKey}}) - no times</div>
{{end}}
</div>
{{end}}
{{else}}
<p class="visit">No scheduled stops found</p>
{{end}}
{{else}}
<p>No route information found</p>
{{end}}
{{end}}
{{end}}
{{end}}`

const errorTemplate = `{{define "content"}}
<p class="error">{{.Message}}</p>
{{end}}`

// parsePages builds one template per page, each sharing the layout.
func parsePages() map[string]*template.Template {
	layout := template.Must(template.New("layout").Parse(layoutTemplate))
	pages := make(map[string]*template.Template)
	for name, body := range map[string]string{
		"home":     homeTemplate,
		"stops":    stopsTemplate,
		"schedule": scheduleTemplate,
		"error":    errorTemplate,
	} {
		pages[name] = template.Must(template.Must(layout.Clone()).Parse(body))
	}
	return pages
}
