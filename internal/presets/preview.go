package presets

import (
	"context"
	"time"
)

// Preview stages a preset for one editor session without touching live
// settings. Every field is optional; absent fields fall back to live values.
type Preview struct {
	Active            bool              `json:"active"`
	PresetID          string            `json:"presetId"`
	PresetName        string            `json:"presetName"`
	ThemePackID       string            `json:"themePackId,omitempty"`
	ThemeTokens       map[string]string `json:"themeTokens,omitempty"`
	ComponentVariants map[string]string `json:"componentVariants,omitempty"`
	NavPreset         *NavPreset        `json:"navPreset,omitempty"`
	FooterPreset      *FooterPreset     `json:"footerPreset,omitempty"`
	SEODefaults       *SEODefaults      `json:"seoDefaults,omitempty"`
	GlobalCTADefaults *CTADefaults      `json:"globalCtaDefaults,omitempty"`
	HomePageSeedMode  SeedMode          `json:"homePageSeedMode,omitempty"`
	StartedAt         time.Time         `json:"startedAt"`
}

func StartPreview(p Preset, at time.Time) Preview {
	return Preview{
		Active:            true,
		PresetID:          p.ID,
		PresetName:        p.Name,
		ThemePackID:       p.ThemePackID,
		ThemeTokens:       cloneStrings(p.ThemeTokens),
		ComponentVariants: cloneStrings(p.ComponentVariants),
		NavPreset:         p.NavPreset.clone(),
		FooterPreset:      p.FooterPreset.clone(),
		SEODefaults:       cloneSEO(p.SEODefaults),
		GlobalCTADefaults: cloneCTA(p.GlobalCTADefaults),
		HomePageSeedMode:  p.HomePageSeedMode,
		StartedAt:         at.UTC(),
	}
}

func (p *Preview) on() bool {
	return p != nil && p.Active
}

// Resolve returns preview when it is set, live otherwise.
func Resolve[T comparable](preview, live T) T {
	var zero T
	if preview != zero {
		return preview
	}
	return live
}

func (p *Preview) ThemePack(live string) string {
	if !p.on() {
		return live
	}
	return Resolve(p.ThemePackID, live)
}

func (p *Preview) Nav(live *NavPreset) *NavPreset {
	if !p.on() {
		return live
	}
	return Resolve(p.NavPreset, live)
}

func (p *Preview) Footer(live *FooterPreset) *FooterPreset {
	if !p.on() {
		return live
	}
	return Resolve(p.FooterPreset, live)
}

func (p *Preview) SEO(live *SEODefaults) *SEODefaults {
	if !p.on() {
		return live
	}
	return Resolve(p.SEODefaults, live)
}

func (p *Preview) CTA(live *CTADefaults) *CTADefaults {
	if !p.on() {
		return live
	}
	return Resolve(p.GlobalCTADefaults, live)
}

func (p *Preview) SeedMode(live SeedMode) SeedMode {
	if !p.on() {
		return live
	}
	return Resolve(p.HomePageSeedMode, live)
}

func (p *Preview) Tokens(live map[string]string) map[string]string {
	if !p.on() || len(p.ThemeTokens) == 0 {
		return live
	}
	return p.ThemeTokens
}

func (p *Preview) Variants(live map[string]string) map[string]string {
	if !p.on() || len(p.ComponentVariants) == 0 {
		return live
	}
	return p.ComponentVariants
}

// Effective overlays p on live field by field. A nil or inactive preview
// returns live unchanged.
func Effective(p *Preview, live Settings) Settings {
	if !p.on() {
		return live
	}
	out := live
	out.PresetID = Resolve(p.PresetID, live.PresetID)
	out.PresetName = Resolve(p.PresetName, live.PresetName)
	out.ThemePackID = p.ThemePack(live.ThemePackID)
	out.ThemeTokens = p.Tokens(live.ThemeTokens)
	out.ComponentVariants = p.Variants(live.ComponentVariants)
	out.NavPreset = p.Nav(live.NavPreset)
	out.FooterPreset = p.Footer(live.FooterPreset)
	out.SEODefaults = p.SEO(live.SEODefaults)
	out.GlobalCTADefaults = p.CTA(live.GlobalCTADefaults)
	out.HomePageSeedMode = p.SeedMode(live.HomePageSeedMode)
	return out
}

type previewKey struct{}

// WithPreview carries a session's preview down render paths.
func WithPreview(ctx context.Context, p *Preview) context.Context {
	return context.WithValue(ctx, previewKey{}, p)
}

func PreviewFrom(ctx context.Context) *Preview {
	p, _ := ctx.Value(previewKey{}).(*Preview)
	return p
}
