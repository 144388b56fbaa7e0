package export

import (
	"context"
	"fmt"
	"html/template"
	"regexp"
	"sort"
	"strings"

	"storefront/cms/internal/blocks"
	"storefront/cms/internal/presets"
)

// PDFFunc prints a rendered HTML document.
type PDFFunc func(ctx context.Context, html, title string) (*Result, error)

type Service struct {
	registry *blocks.Registry
	pdf      PDFFunc
}

func NewService(registry *blocks.Registry) *Service {
	if registry == nil {
		registry = blocks.Default()
	}
	return &Service{registry: registry, pdf: exportPDF}
}

// WithPDF swaps the PDF printer, mainly for tests.
func (s *Service) WithPDF(fn PDFFunc) *Service {
	s.pdf = fn
	return s
}

// Export renders p in the requested format.
func (s *Service) Export(ctx context.Context, p Page, format Format) (*Result, error) {
	html, err := s.RenderHTML(p)
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}

	switch format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(fileBase(p)) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return s.pdf(ctx, html, fileBase(p))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// RenderHTML renders every block in order and wraps them in the page shell
// driven by the effective site settings.
func (s *Service) RenderHTML(p Page) (string, error) {
	body, err := s.RenderBlocks(p)
	if err != nil {
		return "", err
	}

	settings := p.Settings
	data := PageData{
		Title:         PageTitle(p.MetaTitle, p.Title, settings.SEODefaults),
		Description:   firstNonBlank(p.MetaDescription, seoDescription(settings.SEODefaults)),
		OGTitle:       firstNonBlank(p.OGTitle, p.MetaTitle, p.Title),
		OGDescription: firstNonBlank(p.OGDescription, p.MetaDescription, seoDescription(settings.SEODefaults)),
		ThemePackID:   settings.ThemePackID,
		ThemeCSS:      ThemeCSS(settings.ThemeTokens, p.Content.ThemeOverride),
		Variants:      variants(settings.ComponentVariants),
		Nav:           settings.NavPreset,
		Footer:        settings.FooterPreset,
		Body:          body,
		Preview:       p.Preview,
		PresetName:    settings.PresetName,
	}
	if seo := settings.SEODefaults; seo != nil {
		data.OGImage = seo.OGImage
		data.Robots = seo.Robots
	}
	return RenderPageHTML(data)
}

// RenderBlocks renders only the block markup, without the page shell.
func (s *Service) RenderBlocks(p Page) (template.HTML, error) {
	var b strings.Builder
	for _, block := range p.Content.Blocks {
		out, err := s.registry.Render(block.Type, block.Data, block.Settings)
		if err != nil {
			return "", fmt.Errorf("block %s: %w", block.ID, err)
		}
		b.WriteString(string(out))
	}
	return template.HTML(b.String()), nil
}

// PageTitle applies the preset title template ("%s | Store") to the page
// title. Templates without a %s verb are used as a suffix.
func PageTitle(metaTitle, title string, seo *presets.SEODefaults) string {
	base := firstNonBlank(metaTitle, title)
	if seo == nil || strings.TrimSpace(seo.TitleTemplate) == "" {
		return base
	}
	tpl := seo.TitleTemplate
	if strings.Count(tpl, "%s") == 1 && !strings.Contains(strings.ReplaceAll(tpl, "%s", ""), "%") {
		return fmt.Sprintf(tpl, base)
	}
	if base == "" {
		return tpl
	}
	return base + " " + tpl
}

var (
	tokenNamePattern  = regexp.MustCompile(`^--[a-zA-Z0-9_-]+$`)
	tokenValueDeniedR = regexp.MustCompile(`[;{}<>\\]`)
)

// ThemeCSS renders theme tokens as custom property declarations. Page-level
// overrides win over the site tokens. Names must be custom properties and
// values may not break out of the declaration; anything else is dropped.
func ThemeCSS(tokens map[string]string, override map[string]any) template.CSS {
	merged := make(map[string]string, len(tokens)+len(override))
	for k, v := range tokens {
		merged[k] = v
	}
	for k, v := range override {
		if s, ok := v.(string); ok {
			merged[k] = s
		}
	}

	names := make([]string, 0, len(merged))
	for k := range merged {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		value := strings.TrimSpace(merged[name])
		if !tokenNamePattern.MatchString(name) || value == "" || tokenValueDeniedR.MatchString(value) {
			continue
		}
		fmt.Fprintf(&b, "%s: %s; ", name, value)
	}
	return template.CSS(strings.TrimSpace(b.String()))
}

func variants(in map[string]string) []Variant {
	out := make([]Variant, 0, len(in))
	for k, v := range in {
		out = append(out, Variant{Component: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Component < out[j].Component })
	return out
}

func seoDescription(seo *presets.SEODefaults) string {
	if seo == nil {
		return ""
	}
	return seo.DefaultDescription
}

func fileBase(p Page) string {
	return firstNonBlank(p.Slug, p.Title)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
