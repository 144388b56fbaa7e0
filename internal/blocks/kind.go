// Package blocks is the catalog of block types a page can be assembled from:
// their kinds, default props, editor field schemas and renderers.
package blocks

const (
	TypeHero             = "hero"
	TypeRichText         = "richText"
	TypeImage            = "image"
	TypeFeatures         = "features"
	TypeProductHighlight = "productHighlight"
	TypeProductGrid      = "productGrid"
	TypeTestimonials     = "testimonials"
	TypeFAQ              = "faq"
	TypeCTA              = "cta"
	TypeNewsletter       = "newsletter"
	TypeSectionRef       = "sectionRef"
)

// Kind is the closed set of block kinds the system knows how to handle.
// Anything else classifies as KindUnknown and must be passed through untouched.
type Kind int

const (
	KindUnknown Kind = iota
	KindHero
	KindRichText
	KindImage
	KindFeatures
	KindProductHighlight
	KindProductGrid
	KindTestimonials
	KindFAQ
	KindCTA
	KindNewsletter
	KindSectionRef
)

var kindTypes = map[Kind]string{
	KindHero:             TypeHero,
	KindRichText:         TypeRichText,
	KindImage:            TypeImage,
	KindFeatures:         TypeFeatures,
	KindProductHighlight: TypeProductHighlight,
	KindProductGrid:      TypeProductGrid,
	KindTestimonials:     TypeTestimonials,
	KindFAQ:              TypeFAQ,
	KindCTA:              TypeCTA,
	KindNewsletter:       TypeNewsletter,
	KindSectionRef:       TypeSectionRef,
}

var typeKinds = func() map[string]Kind {
	out := make(map[string]Kind, len(kindTypes))
	for kind, name := range kindTypes {
		out[name] = kind
	}
	return out
}()

// KindOf classifies a raw block type string. Matching is exact; type strings
// are wire identifiers and round-trip unchanged.
func KindOf(blockType string) Kind {
	if kind, ok := typeKinds[blockType]; ok {
		return kind
	}
	return KindUnknown
}

func (k Kind) String() string {
	if name, ok := kindTypes[k]; ok {
		return name
	}
	return "unknown"
}

// Known reports whether k is one of the built-in kinds.
func (k Kind) Known() bool {
	return k != KindUnknown
}
