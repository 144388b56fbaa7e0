package blocks

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
)

var markdown = goldmark.New()

// cssURLEscaper keeps a URL inside a quoted CSS url() token.
var cssURLEscaper = strings.NewReplacer(
	"'", "%27", "\"", "%22", "(", "%28", ")", "%29", "\\", "%5C",
	" ", "%20", "\t", "%09", "\n", "%0A", "\r", "%0D", "<", "%3C", ">", "%3E",
)

// Render dispatches on blockType. Unregistered types, and registered types
// without a renderer, produce the unknown-block placeholder.
func (r *Registry) Render(blockType string, data, settings map[string]any) (template.HTML, error) {
	if data == nil {
		data = map[string]any{}
	}
	if settings == nil {
		settings = map[string]any{}
	}
	entry, ok := r.Get(blockType)
	if !ok || entry.Render == nil {
		return RenderUnknown(blockType), nil
	}
	out, err := entry.Render(data, settings)
	if err != nil {
		return "", fmt.Errorf("render %s block: %w", blockType, err)
	}
	return out, nil
}

func RenderUnknown(blockType string) template.HTML {
	return template.HTML(fmt.Sprintf(
		"<div class=\"block block--unknown\" data-block-type=\"%s\"><p>Unsupported block: %s</p></div>\n",
		html.EscapeString(blockType), html.EscapeString(blockType),
	))
}

// open writes the wrapper element shared by every block. settings may carry
// "className" and "anchor".
func open(b *strings.Builder, tag, kind string, settings map[string]any) {
	classes := "block block--" + kind
	if extra := strings.TrimSpace(Str(settings, "className")); extra != "" {
		classes += " " + extra
	}
	fmt.Fprintf(b, "<%s class=\"%s\"", tag, html.EscapeString(classes))
	if anchor := Str(settings, "anchor"); anchor != "" {
		fmt.Fprintf(b, " id=\"%s\"", html.EscapeString(anchor))
	}
	b.WriteString(">\n")
}

func heading(b *strings.Builder, level int, text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(b, "<h%d>%s</h%d>\n", level, html.EscapeString(text), level)
}

func renderHero(data, settings map[string]any) (template.HTML, error) {
	var b strings.Builder
	open(&b, "section", "hero", settings)
	if bg := SafeURL(Str(data, "backgroundImage")); bg != "#" {
		fmt.Fprintf(&b, "<div class=\"hero__bg\" style=\"background-image:url('%s')\"></div>\n", html.EscapeString(cssURLEscaper.Replace(bg)))
	}
	fmt.Fprintf(&b, "<div class=\"hero__inner hero__inner--%s\">\n", html.EscapeString(StrOr(data, "alignment", "center")))
	heading(&b, 1, Str(data, "headline"))
	if sub := Str(data, "subheadline"); sub != "" {
		fmt.Fprintf(&b, "<p class=\"hero__sub\">%s</p>\n", html.EscapeString(sub))
	}
	if text := Str(data, "ctaText"); text != "" {
		fmt.Fprintf(&b, "<a class=\"button\" href=\"%s\">%s</a>\n", html.EscapeString(SafeURL(StrOr(data, "ctaLink", "#"))), html.EscapeString(text))
	}
	b.WriteString("</div>\n</section>\n")
	return template.HTML(b.String()), nil
}

func renderRichText(data, settings map[string]any) (template.HTML, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Str(data, "markdown")), &body); err != nil {
		return "", err
	}
	var b strings.Builder
	open(&b, "div", "rich-text", settings)
	b.Write(body.Bytes())
	b.WriteString("</div>\n")
	return template.HTML(b.String()), nil
}

func renderImage(data, settings map[string]any) (template.HTML, error) {
	var b strings.Builder
	open(&b, "figure", "image", settings)
	if src := SafeURL(Str(data, "src")); src != "#" {
		fmt.Fprintf(&b, "<img src=\"%s\" alt=\"%s\">\n", html.EscapeString(src), html.EscapeString(Str(data, "alt")))
	}
	if caption := Str(data, "caption"); caption != "" {
		fmt.Fprintf(&b, "<figcaption>%s</figcaption>\n", html.EscapeString(caption))
	}
	b.WriteString("</figure>\n")
	return template.HTML(b.String()), nil
}

func renderFeatures(data, settings map[string]any) (template.HTML, error) {
	var b strings.Builder
	open(&b, "section", "features", settings)
	heading(&b, 2, Str(data, "heading"))
	fmt.Fprintf(&b, "<ul class=\"features features--cols-%d\">\n", IntOr(data, "columns", 3))
	for _, item := range Items(data, "items") {
		b.WriteString("<li>")
		if icon := Str(item, "icon"); icon != "" {
			fmt.Fprintf(&b, "<span class=\"icon icon--%s\"></span>", html.EscapeString(icon))
		}
		fmt.Fprintf(&b, "<h3>%s</h3><p>%s</p></li>\n", html.EscapeString(Str(item, "title")), html.EscapeString(Str(item, "description")))
	}
	b.WriteString("</ul>\n</section>\n")
	return template.HTML(b.String()), nil
}

// Product blocks render hydration placeholders; the storefront fills in
// pricing and imagery client-side.
func renderProductHighlight(data, settings map[string]any) (template.HTML, error) {
	var b strings.Builder
	open(&b, "section", "product-highlight", settings)
	heading(&b, 2, Str(data, "headline"))
	fmt.Fprintf(&b, "<div class=\"product\" data-product-id=\"%s\" data-show-price=\"%t\"></div>\n",
		html.EscapeString(Str(data, "productId")), BoolOr(data, "showPrice", true))
	b.WriteString("</section>\n")
	return template.HTML(b.String()), nil
}

func renderProductGrid(data, settings map[string]any) (template.HTML, error) {
	var b strings.Builder
	open(&b, "section", "product-grid", settings)
	heading(&b, 2, Str(data, "heading"))
	ids := Strings(data, "productIds")
	limit := IntOr(data, "limit", 6)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	fmt.Fprintf(&b, "<div class=\"product-grid product-grid--cols-%d\">\n", IntOr(data, "columns", 3))
	for _, id := range ids {
		fmt.Fprintf(&b, "<div class=\"product\" data-product-id=\"%s\"></div>\n", html.EscapeString(id))
	}
	b.WriteString("</div>\n</section>\n")
	return template.HTML(b.String()), nil
}

func renderTestimonials(data, settings map[string]any) (template.HTML, error) {
	var b strings.Builder
	open(&b, "section", "testimonials", settings)
	heading(&b, 2, Str(data, "heading"))
	for _, item := range Items(data, "items") {
		fmt.Fprintf(&b, "<blockquote><p>%s</p>", html.EscapeString(Str(item, "quote")))
		if author := Str(item, "author"); author != "" {
			fmt.Fprintf(&b, "<cite>%s", html.EscapeString(author))
			if role := Str(item, "role"); role != "" {
				fmt.Fprintf(&b, ", %s", html.EscapeString(role))
			}
			b.WriteString("</cite>")
		}
		b.WriteString("</blockquote>\n")
	}
	b.WriteString("</section>\n")
	return template.HTML(b.String()), nil
}

func renderFAQ(data, settings map[string]any) (template.HTML, error) {
	var b strings.Builder
	open(&b, "section", "faq", settings)
	heading(&b, 2, Str(data, "heading"))
	for _, item := range Items(data, "items") {
		fmt.Fprintf(&b, "<details><summary>%s</summary><p>%s</p></details>\n",
			html.EscapeString(Str(item, "question")), html.EscapeString(Str(item, "answer")))
	}
	b.WriteString("</section>\n")
	return template.HTML(b.String()), nil
}

func renderCTA(data, settings map[string]any) (template.HTML, error) {
	var b strings.Builder
	open(&b, "section", "cta", settings)
	heading(&b, 2, Str(data, "headline"))
	fmt.Fprintf(&b, "<a class=\"button button--%s\" href=\"%s\">%s</a>\n",
		html.EscapeString(StrOr(data, "style", "primary")),
		html.EscapeString(SafeURL(StrOr(data, "buttonLink", "/shop"))),
		html.EscapeString(Str(data, "buttonText")))
	b.WriteString("</section>\n")
	return template.HTML(b.String()), nil
}

func renderNewsletter(data, settings map[string]any) (template.HTML, error) {
	var b strings.Builder
	open(&b, "section", "newsletter", settings)
	heading(&b, 2, Str(data, "heading"))
	fmt.Fprintf(&b, "<form class=\"newsletter\" method=\"post\" action=\"/newsletter\"><input type=\"email\" name=\"email\" placeholder=\"%s\"><button type=\"submit\">%s</button></form>\n",
		html.EscapeString(Str(data, "placeholder")), html.EscapeString(StrOr(data, "buttonText", "Subscribe")))
	b.WriteString("</section>\n")
	return template.HTML(b.String()), nil
}

// renderSectionPlaceholder is reached only when a reference could not be
// resolved before rendering.
func renderSectionPlaceholder(data, settings map[string]any) (template.HTML, error) {
	var b strings.Builder
	open(&b, "div", "section-missing", settings)
	name := StrOr(data, "sectionName", Str(data, "sectionId"))
	fmt.Fprintf(&b, "<p>Section unavailable: %s</p>\n</div>\n", html.EscapeString(name))
	return template.HTML(b.String()), nil
}
