package landing

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"storefront/cms/internal/blocks"
	"storefront/cms/internal/content"
	"storefront/cms/internal/sections"
)

const (
	MaxSecondaryProducts = 5

	ShopPath    = "/shop"
	ContactPath = "/contact"
)

var (
	ErrTooManyProducts       = fmt.Errorf("at most %d secondary products", MaxSecondaryProducts)
	ErrInvalidSectionMode    = errors.New("sectionMode must be sectionRef or detach")
	ErrInvalidCTADestination = errors.New("ctaDestination must be shop, product or quote")
	ErrTitleRequired         = errors.New("title is required")
)

type SectionMode string

const (
	ModeSectionRef SectionMode = "sectionRef"
	ModeDetach     SectionMode = "detach"
)

type CTADestination string

const (
	CTAShop    CTADestination = "shop"
	CTAProduct CTADestination = "product"
	CTAQuote   CTADestination = "quote"
)

type Input struct {
	Template            Template          `json:"-"`
	PrimaryProductID    string            `json:"primaryProductId"`
	SecondaryProductIDs []string          `json:"secondaryProductIds"`
	Sections            []content.Section `json:"-"`
	SectionMode         SectionMode       `json:"sectionMode"`
	CTADestination      CTADestination    `json:"ctaDestination"`
	ThemeOverride       map[string]any    `json:"themeOverride,omitempty"`
	Title               string            `json:"title"`
	Slug                string            `json:"slug"`
	MetaTitle           string            `json:"metaTitle"`
	MetaDescription     string            `json:"metaDescription"`
}

type SEO struct {
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
	OGTitle         string `json:"ogTitle"`
	OGDescription   string `json:"ogDescription"`
}

type Result struct {
	Content  content.Document  `json:"contentJson"`
	SEO      SEO               `json:"seo"`
	Slug     string            `json:"slug"`
	Warnings []content.Warning `json:"warnings"`
}

// Generator is stateless; the same Input always yields the same block
// types and data, only ids differ.
type Generator struct {
	registry *blocks.Registry
	newID    content.IDFunc
}

func NewGenerator(reg *blocks.Registry, newID content.IDFunc) *Generator {
	if newID == nil {
		newID = content.NewBlockID
	}
	return &Generator{registry: reg, newID: newID}
}

func (g *Generator) Assemble(in Input) (Result, error) {
	if err := in.check(); err != nil {
		return Result{}, err
	}
	mode := in.SectionMode
	if mode == "" {
		mode = ModeSectionRef
	}

	list := make([]content.Block, 0, len(in.Template.Blocks)+len(in.Sections))
	for _, tb := range in.Template.Blocks {
		b := content.NewBlock(g.registry, tb.Type, tb.Data, g.newID)
		injectProducts(&b, in.PrimaryProductID, in.SecondaryProductIDs)
		rewriteCTA(&b, in.CTADestination, in.PrimaryProductID)
		list = append(list, b)
	}

	for _, section := range in.Sections {
		switch mode {
		case ModeSectionRef:
			list = append(list, sections.NewReference(section, g.newID))
		case ModeDetach:
			list = append(list, sections.Copy(section, g.newID)...)
		}
	}

	doc := content.Document{Version: content.CurrentVersion, Blocks: list}
	if len(in.ThemeOverride) > 0 {
		doc.ThemeOverride = blocks.CloneProps(in.ThemeOverride)
	}

	warnings := content.Validate(doc, g.registry)
	warnings = append(warnings, DuplicateWarnings(in.Template, in.Sections)...)

	return Result{
		Content:  doc,
		SEO:      deriveSEO(in),
		Slug:     resolveSlug(in.Slug, in.Title),
		Warnings: warnings,
	}, nil
}

func (in Input) check() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrTitleRequired
	}
	if len(in.SecondaryProductIDs) > MaxSecondaryProducts {
		return ErrTooManyProducts
	}
	switch in.SectionMode {
	case "", ModeSectionRef, ModeDetach:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSectionMode, in.SectionMode)
	}
	switch in.CTADestination {
	case "", CTAShop, CTAProduct, CTAQuote:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCTADestination, in.CTADestination)
	}
	return nil
}

// injectProducts fills product blocks by naming convention: a highlight takes
// the primary product, a grid takes the secondary list, or the primary alone
// when there is no secondary list.
func injectProducts(b *content.Block, primary string, secondary []string) {
	switch b.Kind() {
	case blocks.KindProductHighlight:
		if primary != "" {
			b.Data["productId"] = primary
		}
	case blocks.KindProductGrid:
		ids := make([]any, 0, len(secondary))
		for _, id := range secondary {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 && primary != "" {
			ids = append(ids, primary)
		}
		if len(ids) > 0 {
			b.Data["productIds"] = ids
		}
	}
}

func rewriteCTA(b *content.Block, dest CTADestination, primary string) {
	if b.Kind() != blocks.KindCTA || dest == "" {
		return
	}
	b.Data["buttonLink"] = CTALink(dest, primary)
}

// CTALink maps a destination to a storefront path. A product destination
// without a product falls back to the shop.
func CTALink(dest CTADestination, primary string) string {
	switch dest {
	case CTAProduct:
		if primary != "" {
			return "/products/" + url.PathEscape(primary)
		}
		return ShopPath
	case CTAQuote:
		return ContactPath
	default:
		return ShopPath
	}
}

func deriveSEO(in Input) SEO {
	title := strings.TrimSpace(in.MetaTitle)
	if title == "" {
		title = strings.TrimSpace(in.Title)
	}
	desc := strings.TrimSpace(in.MetaDescription)
	return SEO{
		MetaTitle:       title,
		MetaDescription: desc,
		OGTitle:         title,
		OGDescription:   desc,
	}
}

// DuplicateWarnings reports, once per section, the block types that section
// shares with the template. It never blocks assembly.
func DuplicateWarnings(tpl Template, candidates []content.Section) []content.Warning {
	have := map[string]struct{}{}
	for _, typ := range tpl.BlockTypes() {
		have[typ] = struct{}{}
	}
	var out []content.Warning
	for _, section := range candidates {
		var shared []string
		for _, typ := range section.BlockTypes() {
			if _, ok := have[typ]; ok {
				shared = append(shared, typ)
			}
		}
		if len(shared) > 0 {
			out = append(out, content.DuplicateBlockTypes(section.ID, section.Name, shared))
		}
	}
	return out
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses everything but letters and digits into
// single dashes.
func Slugify(s string) string {
	s = nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(s, "-")
}

func resolveSlug(slug, title string) string {
	if s := Slugify(slug); s != "" {
		return s
	}
	if s := Slugify(title); s != "" {
		return s
	}
	return "page"
}
