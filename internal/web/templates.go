package web

import (
	"html/template"

	"github.com/example/wordpusher/pkg/models"
)

type pageData struct {
	Flash string
}

type statsData struct {
	Total     int
	New       int
	Reviewed  int
	AvgStage  float64
	Malformed int
	Recent    []models.WordRecord
}

var loginTmpl = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Login</title></head>
<body>
<h1>Word Pusher</h1>
{{if .Flash}}<p><em>{{.Flash}}</em></p>{{end}}
<form method="post" action="/login">
  <input type="password" name="password" placeholder="Password" autofocus>
  <button type="submit">Log in</button>
</form>
</body></html>`))

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Add word</title></head>
<body>
<h1>Add a word</h1>
{{if .Flash}}<p><em>{{.Flash}}</em></p>{{end}}
<form method="post" action="/">
  <input type="text" name="word" placeholder="word" autofocus>
  <input type="text" name="definition" placeholder="definition">
  <button type="submit">Add</button>
</form>
<p><a href="/stats">Stats</a> | <a href="/logout">Log out</a></p>
</body></html>`))

var statsTmpl = template.Must(template.New("stats").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Stats</title></head>
<body>
<h1>Stats</h1>
<ul>
  <li>Total words: {{.Total}}</li>
  <li>New: {{.New}}</li>
  <li>Reviewed: {{.Reviewed}}</li>
  <li>Average stage: {{printf "%.1f" .AvgStage}}</li>
  {{if .Malformed}}<li>Malformed rows: {{.Malformed}}</li>{{end}}
</ul>
<h2>Recently added</h2>
<ul>
{{range .Recent}}<li>{{.Term}}: {{.Definition}} ({{.AddedDate.Format "2006-01-02"}})</li>
{{end}}
</ul>
<p><a href="/">Back</a></p>
</body></html>`))
