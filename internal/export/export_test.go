package export

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storefront/cms/internal/content"
	"storefront/cms/internal/presets"
)

func samplePage() Page {
	return Page{
		Title:           "Spring Sale",
		Slug:            "spring-sale",
		MetaDescription: "Everything 20% off",
		Content: content.Document{
			Version: content.CurrentVersion,
			Blocks: []content.Block{
				{ID: "hero_1", Type: "hero", Data: map[string]any{"headline": "Spring <Sale>"}, Settings: map[string]any{}},
				{ID: "x_1", Type: "carousel", Data: map[string]any{}, Settings: map[string]any{}},
			},
			ThemeOverride: map[string]any{"--color-accent": "#00ff00"},
		},
		Settings: presets.Settings{
			PresetName:  "Classic",
			ThemePackID: "classic",
			ThemeTokens: map[string]string{"--color-primary": "#7a4b2a", "--color-accent": "#d9a441"},
			NavPreset: &presets.NavPreset{
				Layout: "centered",
				Items:  []presets.Link{{Label: "Shop", Href: "/shop"}},
			},
			FooterPreset: &presets.FooterPreset{Layout: "three-column", Copyright: "© Classic"},
			SEODefaults:  &presets.SEODefaults{TitleTemplate: "%s | Classic Boutique", Robots: "index,follow"},
		},
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := NewService(nil).RenderHTML(samplePage())
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}

	checks := []string{
		"<title>Spring Sale | Classic Boutique</title>",
		"--color-primary: #7a4b2a;",
		"--color-accent: #00ff00;",
		`data-theme="classic"`,
		`href="/shop"`,
		"© Classic",
		`data-block-type="carousel"`,
		"Spring &lt;Sale&gt;",
	}
	for _, want := range checks {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	if strings.Contains(html, "#d9a441") {
		t.Error("page override should replace the site accent token")
	}
	if strings.Contains(html, "preview-banner\">") {
		t.Error("preview banner rendered outside preview")
	}
}

func TestRenderHTMLWithoutPresetHasNoShell(t *testing.T) {
	p := samplePage()
	p.Settings = presets.Settings{}
	html, err := NewService(nil).RenderHTML(p)
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	if strings.Contains(html, "site-nav site-nav--") || strings.Contains(html, "site-footer site-footer--") {
		t.Error("expected no nav or footer without settings")
	}
	if !strings.Contains(html, "<title>Spring Sale</title>") {
		t.Error("expected bare title")
	}
}

func TestRenderHTMLPreviewBanner(t *testing.T) {
	p := samplePage()
	p.Preview = true
	html, err := NewService(nil).RenderHTML(p)
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	if !strings.Contains(html, "Previewing preset: Classic") {
		t.Error("expected preview banner")
	}
}

func TestExportFormats(t *testing.T) {
	var printed string
	svc := NewService(nil).WithPDF(func(_ context.Context, html, title string) (*Result, error) {
		printed = title
		return &Result{Data: []byte("%PDF"), Filename: title + ".pdf", MimeType: "application/pdf"}, nil
	})

	res, err := svc.Export(context.Background(), samplePage(), FormatHTML)
	if err != nil {
		t.Fatalf("Export(html) error = %v", err)
	}
	if res.Filename != "spring-sale.html" || !strings.HasPrefix(res.MimeType, "text/html") {
		t.Fatalf("unexpected html result %+v", res)
	}

	res, err = svc.Export(context.Background(), samplePage(), FormatPDF)
	if err != nil {
		t.Fatalf("Export(pdf) error = %v", err)
	}
	if printed != "spring-sale" || res.MimeType != "application/pdf" {
		t.Fatalf("unexpected pdf result %+v", res)
	}

	if _, err := svc.Export(context.Background(), samplePage(), Format("docx")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
		err   bool
	}{
		{"", FormatHTML, false},
		{"html", FormatHTML, false},
		{"pdf", FormatPDF, false},
		{"docx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.input, got, err)
		}
	}
}

func TestPageTitle(t *testing.T) {
	tests := []struct {
		name     string
		meta     string
		title    string
		seo      *presets.SEODefaults
		expected string
	}{
		{"no defaults", "", "Home", nil, "Home"},
		{"template", "", "Home", &presets.SEODefaults{TitleTemplate: "%s - Bold"}, "Home - Bold"},
		{"meta title wins", "Welcome", "Home", &presets.SEODefaults{TitleTemplate: "%s - Bold"}, "Welcome - Bold"},
		{"suffix template", "", "Home", &presets.SEODefaults{TitleTemplate: "| Quiet"}, "Home | Quiet"},
		{"stray verbs are not formatted", "", "Home", &presets.SEODefaults{TitleTemplate: "%s %d"}, "Home %s %d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PageTitle(tt.meta, tt.title, tt.seo); got != tt.expected {
				t.Errorf("PageTitle() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestThemeCSSDropsUnsafeTokens(t *testing.T) {
	css := string(ThemeCSS(map[string]string{
		"--ok":    "#fff",
		"color":   "red",
		"--evil":  "red; } body { display:none",
		"--empty": "  ",
	}, map[string]any{"--num": 3}))
	if css != "--ok: #fff;" {
		t.Fatalf("ThemeCSS() = %q", css)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"spring-sale", "spring-sale"},
		{"Spring Sale!", "spring-sale"},
		{"  Summer -- Launch_2025 ", "summer-launch-2025"},
		{"!!!", "page"},
		{"", "page"},
		{strings.Repeat("a", 70), strings.Repeat("a", 60)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
