package export

import (
	"bytes"
	"html/template"
	"time"

	"easel/plugin/internal/canvas"
	"easel/plugin/internal/model"
)

var documentTemplate = template.Must(template.New("decisions").Funcs(template.FuncMap{
	"formatDate": func(t time.Time) string {
		return t.Format("Jan 2, 2006")
	},
}).Parse(documentTemplateText))

// templateData holds data for the PDF rendering template.
type templateData struct {
	DocumentName string
	GeneratedAt  time.Time
	Decisions    []decisionView
}

type decisionView struct {
	model.Decision
	ElementURL string
}

// RenderHTML renders the decision list as a printable HTML page, used as the
// input to PDF generation.
func RenderHTML(baseURL string, doc canvas.Document, decisions []model.Decision) (string, error) {
	data := templateData{
		DocumentName: doc.Name,
		GeneratedAt:  time.Now().UTC(),
		Decisions:    make([]decisionView, 0, len(decisions)),
	}
	for _, d := range decisions {
		view := decisionView{Decision: d}
		if d.NodeID != "" {
			view.ElementURL = ElementURL(baseURL, doc, d.NodeID)
		}
		data.Decisions = append(data.Decisions, view)
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const documentTemplateText = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Design Decisions — {{.DocumentName}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .decision { padding: 1rem 0; border-bottom: 1px solid #ddd; page-break-inside: avoid; }
    .status { display: inline-block; padding: 0.1rem 0.5rem; border-radius: 3px; color: #fff; font-size: 0.8em; }
    .status-proposed { background: #2196F3; }
    .status-accepted { background: #4CAF50; }
    .status-rejected { background: #F44336; }
    .status-deprecated { background: #795548; }
    .status-superseded { background: #9C27B0; }
    ul { margin: 0.25rem 0; }
  </style>
</head>
<body>
  <h1>Design Decisions — {{.DocumentName}}</h1>
  <div class="meta">Generated {{formatDate .GeneratedAt}}</div>
  {{range .Decisions}}
  <div class="decision">
    <h2>{{.Title}} <span class="status status-{{.Status}}">{{.Status}}</span></h2>
    <div class="meta">{{.Author}} | {{formatDate .Timestamp}}</div>
    {{if .Context}}<p><strong>Context:</strong> {{.Context}}</p>{{end}}
    {{if .Rationale}}<p><strong>Rationale:</strong> {{.Rationale}}</p>{{end}}
    {{if .Pros}}<strong>Pros</strong><ul>{{range .Pros}}<li>{{.}}</li>{{end}}</ul>{{end}}
    {{if .Cons}}<strong>Cons</strong><ul>{{range .Cons}}<li>{{.}}</li>{{end}}</ul>{{end}}
    {{if .Links}}<strong>Links</strong><ul>{{range .Links}}<li><a href="{{.URL}}">{{.Title}}</a></li>{{end}}</ul>{{end}}
    {{if .ElementURL}}<p><a href="{{.ElementURL}}">{{if .NodeName}}{{.NodeName}}{{else}}{{.NodeID}}{{end}}</a></p>{{end}}
  </div>
  {{end}}
</body>
</html>`
