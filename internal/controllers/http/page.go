package httpctrl

import (
	"html/template"
	"net/http"
	"net/url"

	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Parametric Tool{{if .Project}} - {{.Project}}{{end}}</title>
{{if eq .Progress.State "running"}}<meta http-equiv="refresh" content="5">{{end}}
</head>
<body>
<h1>Parametric Tool</h1>
{{if .Error}}<p class="error" role="alert">{{.Error}}</p>{{end}}
<form method="post" action="/run">
<table>
<tr><th>Parameter</th><th>Base value</th><th>Max value</th><th>Jump by</th></tr>
{{range .Rows}}<tr>
<td>{{.Label}}</td>
<td><input name="{{.Key}}_start" value="{{.Input.Start}}"></td>
<td><input name="{{.Key}}_end" value="{{.Input.End}}"></td>
<td><input name="{{.Key}}_step" value="{{.Input.Step}}"></td>
</tr>
{{end}}</table>
<button type="submit">Run</button>
</form>
<h2>Progress</h2>
<p>State: {{.Progress.State}}{{if .Progress.Total}}, run {{.Progress.Current}} of {{.Progress.Total}} ({{.Progress.Succeeded}} ok, {{.Progress.Failed}} failed){{end}}</p>
{{if .Progress.OutputFile}}<p>Output: {{.Progress.OutputFile}}</p>{{end}}
{{if .Progress.LastError}}<p>Last error: {{.Progress.LastError}}</p>{{end}}
</body>
</html>
`))

type formRow struct {
	Key   string
	Label string
	Input sweep.FieldInput
}

type pageData struct {
	Project  string
	Rows     []formRow
	Progress progressDTO
	Error    string
}

func formRows(f sweep.Form) []formRow {
	return []formRow{
		{Key: "wall", Label: "Wall U-value", Input: f.Wall},
		{Key: "window", Label: "Window U-value", Input: f.Window},
		{Key: "roof", Label: "Roof U-value", Input: f.Roof},
		{Key: "floor", Label: "Floor U-value", Input: f.Floor},
	}
}

func formFromValues(v url.Values) sweep.Form {
	field := func(key string) sweep.FieldInput {
		return sweep.FieldInput{
			Start: v.Get(key + "_start"),
			End:   v.Get(key + "_end"),
			Step:  v.Get(key + "_step"),
		}
	}
	return sweep.Form{
		Wall:   field("wall"),
		Window: field("window"),
		Roof:   field("roof"),
		Floor:  field("floor"),
	}
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	s.renderPage(w, http.StatusOK, s.defaults, nil)
}

func (s *Server) renderPage(w http.ResponseWriter, code int, f sweep.Form, err error) {
	data := pageData{
		Project:  s.project,
		Rows:     formRows(f),
		Progress: toDTO(s.svc.Get()),
	}
	if err != nil {
		data.Error = err.Error()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := pageTmpl.Execute(w, data); err != nil {
		s.log.Error("render page", "err", err)
	}
}
