package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"

	"storefront/cms/internal/presets"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
	}

	templateContent, err := templateFS.ReadFile("templates/page.html")
	if err != nil {
		pageTemplate = template.Must(template.New("page").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	pageTemplate = template.Must(template.New("page").Funcs(funcMap).Parse(string(templateContent)))
}

// PageData is the view model for the page template.
type PageData struct {
	Title         string
	Description   string
	OGTitle       string
	OGDescription string
	OGImage       string
	Robots        string
	ThemePackID   string
	ThemeCSS      template.CSS
	Variants      []Variant
	Nav           *presets.NavPreset
	Footer        *presets.FooterPreset
	Body          template.HTML
	Preview       bool
	PresetName    string
}

type Variant struct {
	Component string
	Value     string
}

func RenderPageHTML(data PageData) (string, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const fallbackTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  {{if .Description}}<meta name="description" content="{{.Description}}">{{end}}
  <style>:root { {{.ThemeCSS}} }</style>
</head>
<body data-theme="{{.ThemePackID}}">
  {{if .Preview}}<div class="preview-banner">Previewing {{.PresetName}}</div>{{end}}
  <main>{{.Body}}</main>
</body>
</html>`
