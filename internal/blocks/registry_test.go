package blocks

import (
	"html/template"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := map[string]Kind{
		"hero":             KindHero,
		"productGrid":      KindProductGrid,
		"sectionRef":       KindSectionRef,
		"Hero":             KindUnknown,
		"notRealType":      KindUnknown,
		"":                 KindUnknown,
		"productHighlight": KindProductHighlight,
	}
	for raw, want := range cases {
		assert.Equal(t, want, KindOf(raw), raw)
	}
	assert.Equal(t, "cta", KindCTA.String())
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.False(t, KindUnknown.Known())
}

func TestRegisterLastWins(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Entry{Type: "hero", Label: "First", Category: CategoryLayout}))
	require.NoError(t, reg.Register(Entry{Type: "hero", Label: "Second", Category: CategoryLayout}))

	entry, ok := reg.Get("hero")
	require.True(t, ok)
	assert.Equal(t, "Second", entry.Label)
	assert.Equal(t, KindHero, entry.Kind)
	assert.Len(t, reg.List(), 1)
}

func TestRegisterRejectsEmptyType(t *testing.T) {
	reg := NewRegistry()
	assert.ErrorIs(t, reg.Register(Entry{Type: "  "}), ErrEmptyType)
}

func TestListByCategory(t *testing.T) {
	reg := NewRegistry()
	RegisterDefaults(reg)

	commerce := reg.ListByCategory(CategoryCommerce)
	require.Len(t, commerce, 2)
	assert.Equal(t, TypeProductGrid, commerce[0].Type)
	assert.Equal(t, TypeProductHighlight, commerce[1].Type)
	assert.Empty(t, reg.ListByCategory("nope"))
	assert.Contains(t, reg.Categories(), CategoryLibrary)
}

func TestDefaultsAreCopies(t *testing.T) {
	reg := Default()
	first := reg.Defaults(TypeProductGrid)
	first["productIds"] = append(first["productIds"].([]any), "p1")
	first["heading"] = "changed"

	second := reg.Defaults(TypeProductGrid)
	assert.Equal(t, "Featured products", second["heading"])
	assert.Empty(t, second["productIds"])
	assert.Empty(t, reg.Defaults("notRealType"))
}

func TestEveryKnownKindIsRegistered(t *testing.T) {
	reg := Default()
	for kind := KindHero; kind <= KindSectionRef; kind++ {
		entry, ok := reg.Get(kind.String())
		require.True(t, ok, kind.String())
		assert.NotNil(t, entry.Render, kind.String())
	}
}

func TestRenderEscapesAndAppliesSettings(t *testing.T) {
	out, err := Default().Render(TypeHero, map[string]any{
		"headline": "<script>x</script>",
		"ctaText":  "Go",
		"ctaLink":  "/shop",
	}, map[string]any{"className": "dark", "anchor": "top"})
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, `class="block block--hero dark"`)
	assert.Contains(t, html, `id="top"`)
}

func TestRenderRichTextMarkdown(t *testing.T) {
	out, err := Default().Render(TypeRichText, map[string]any{"markdown": "# Title\n\nsome *text*"}, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<h1>Title</h1>")
	assert.Contains(t, string(out), "<em>text</em>")
}

func TestRenderProductGridRespectsLimit(t *testing.T) {
	out, err := Default().Render(TypeProductGrid, map[string]any{
		"productIds": []any{"a", "b", "c"},
		"limit":      float64(2),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(out), "data-product-id="))
}

func TestRenderUnknownFallsBack(t *testing.T) {
	out, err := Default().Render("notRealType", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, RenderUnknown("notRealType"), out)
	assert.Contains(t, string(out), `data-block-type="notRealType"`)
}

func TestRenderWithoutRendererFallsBack(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Entry{Type: "custom"}))
	out, err := reg.Render("custom", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, template.HTML(RenderUnknown("custom")), out)
}

func TestPropsAccessors(t *testing.T) {
	props := map[string]any{
		"n":     float64(4),
		"s":     "x",
		"list":  []any{"a", 1.0, "", "b"},
		"items": []any{map[string]any{"k": "v"}, "skip"},
	}
	assert.Equal(t, 4, IntOr(props, "n", 1))
	assert.Equal(t, 1, IntOr(props, "missing", 1))
	assert.Equal(t, "4", Str(props, "n"))
	assert.Equal(t, "fb", StrOr(props, "missing", "fb"))
	assert.Equal(t, []string{"a", "b"}, Strings(props, "list"))
	assert.Len(t, Items(props, "items"), 1)
}

func TestSafeURL(t *testing.T) {
	cases := map[string]string{
		"/shop":                       "/shop",
		"#faq":                        "#faq",
		"https://example.com/a?b=1":   "https://example.com/a?b=1",
		"HTTP://example.com":          "HTTP://example.com",
		"mailto:hi@example.com":       "mailto:hi@example.com",
		"":                            "#",
		"javascript:alert(1)":         "#",
		" JavaScript:alert(1)":        "#",
		"java\tscript:alert(1)":       "#",
		"data:text/html,<b>x</b>":     "#",
		"vbscript:msgbox(1)":          "#",
		"products/spring?tag=new#top": "products/spring?tag=new#top",
	}
	for raw, want := range cases {
		assert.Equal(t, want, SafeURL(raw), raw)
	}
}

func TestRenderDropsScriptURLs(t *testing.T) {
	reg := Default()

	cta, err := reg.Render(TypeCTA, map[string]any{"buttonText": "Buy", "buttonLink": "javascript:alert(document.cookie)"}, nil)
	require.NoError(t, err)
	assert.NotContains(t, string(cta), "javascript:")
	assert.Contains(t, string(cta), `href="#"`)

	hero, err := reg.Render(TypeHero, map[string]any{
		"headline":        "Hi",
		"ctaText":         "Go",
		"ctaLink":         "javascript:alert(1)",
		"backgroundImage": "javascript:alert(2)",
	}, nil)
	require.NoError(t, err)
	assert.NotContains(t, string(hero), "javascript:")
	assert.NotContains(t, string(hero), "background-image")
	assert.Contains(t, string(hero), `href="#"`)

	img, err := reg.Render(TypeImage, map[string]any{"src": "javascript:alert(3)", "caption": "c"}, nil)
	require.NoError(t, err)
	assert.NotContains(t, string(img), "<img")
}

func TestRenderHeroBackgroundStaysInsideURLToken(t *testing.T) {
	out, err := Default().Render(TypeHero, map[string]any{
		"backgroundImage": "/img/a.jpg');background:url('https://evil.example/x",
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "url('/img/a.jpg%27%29;background:url%28%27https://evil.example/x')")
	assert.Equal(t, 2, strings.Count(string(out), "'"))
}

func TestRenderKeepsSafeLinks(t *testing.T) {
	out, err := Default().Render(TypeCTA, map[string]any{"buttonText": "Shop", "buttonLink": "/products/p1"}, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), `href="/products/p1"`)

	out, err = Default().Render(TypeImage, map[string]any{"src": "https://cdn.example.com/a.png", "alt": "A"}, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<img src="https://cdn.example.com/a.png" alt="A">`)
}

func TestClonePropsKeepsSliceTypes(t *testing.T) {
	src := map[string]any{
		"items": []map[string]any{{"title": "a"}},
		"tags":  []string{"x"},
		"list":  []any{map[string]any{"k": "v"}},
	}
	out := CloneProps(src)

	items, ok := out["items"].([]map[string]any)
	require.True(t, ok, "items should stay []map[string]any")
	assert.Equal(t, src, out)

	items[0]["title"] = "changed"
	assert.Equal(t, "a", src["items"].([]map[string]any)[0]["title"])
}
