package analytics

import (
	"html/template"
	"io"
)

var pageTemplate = template.Must(template.New("analytics").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Analytics</title>
</head>
<body>
<div class="mb-6 flex justify-between items-baseline">
  <h1 class="text-3xl font-semibold">Analytics</h1>
  {{- if .CanAccessAnalytics}}
  <nav class="flex gap-2">
    {{template "dropdown" .Intervals}}
    {{template "dropdown" .Products}}
    {{template "dropdown" .Timezones}}
  </nav>
  {{- end}}
</div>
{{- if .CanAccessAnalytics}}
<div class="flex flex-col gap-8">
  <section class="card" data-chart="views-by-day">
    <h2>Visitors Per Day</h2>
    <table>
      <thead><tr><th>Date</th><th>Visitors</th></tr></thead>
      <tbody>{{range .Charts.ViewsByDay}}<tr><td>{{.Date}}</td><td>{{.Views}}</td></tr>{{end}}</tbody>
    </table>
  </section>
  <section class="card" data-chart="views-by-ppp">
    <h2>Visitors Per PPP Group</h2>
    <table>
      <thead><tr><th>PPP Group</th><th>Visitors</th></tr></thead>
      <tbody>{{range .Charts.ViewsByPPP}}<tr><td>{{.PPPName}}</td><td>{{.Views}}</td></tr>{{end}}</tbody>
    </table>
  </section>
  <section class="card" data-chart="views-by-country">
    <h2>Visitors Per Country</h2>
    {{- if .Charts.ViewsByCountry}}
    <table>
      <thead><tr><th>Country</th><th>Visitors</th></tr></thead>
      <tbody>{{range .Charts.ViewsByCountry}}<tr><td title="{{.CountryCode}}">{{.CountryName}}</td><td>{{.Views}}</td></tr>{{end}}</tbody>
    </table>
    {{- else}}
    <p>No Data Available</p>
    {{- end}}
  </section>
</div>
{{- else}}
<p class="fallback">{{.FallbackText}}</p>
{{- end}}
</body>
</html>
{{define "dropdown"}}
    <details class="dropdown">
      <summary>{{.Label}}</summary>
      <ul>{{range .Options}}
        <li><a href="{{.URL}}"{{if .Selected}} aria-current="true"{{end}}>{{.Label}}</a></li>{{end}}
      </ul>
    </details>
{{- end}}
`))

// Render writes the page as HTML.
func Render(w io.Writer, p *Page) error {
	return pageTemplate.Execute(w, p)
}
