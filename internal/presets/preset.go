// Package presets holds the site preset catalog and the live/preview/rollback
// model for the settings a preset applies across the whole storefront.
package presets

import (
	"errors"
	"time"
)

var (
	ErrUnknownPreset     = errors.New("unknown preset")
	ErrNothingToRollback = errors.New("no activation to roll back")
)

type SeedMode string

const (
	SeedNone    SeedMode = "none"
	SeedIfEmpty SeedMode = "ifEmpty"
	SeedReplace SeedMode = "replace"
)

func (m SeedMode) Valid() bool {
	switch m {
	case SeedNone, SeedIfEmpty, SeedReplace:
		return true
	}
	return false
}

type Link struct {
	Label string `yaml:"label" json:"label"`
	Href  string `yaml:"href" json:"href"`
}

type NavPreset struct {
	ID         string `yaml:"id" json:"id"`
	Layout     string `yaml:"layout" json:"layout"`
	Items      []Link `yaml:"items" json:"items"`
	ShowSearch bool   `yaml:"showSearch" json:"showSearch"`
	Sticky     bool   `yaml:"sticky" json:"sticky"`
}

type FooterColumn struct {
	Title string `yaml:"title" json:"title"`
	Links []Link `yaml:"links" json:"links"`
}

type FooterPreset struct {
	ID             string         `yaml:"id" json:"id"`
	Layout         string         `yaml:"layout" json:"layout"`
	Columns        []FooterColumn `yaml:"columns" json:"columns"`
	ShowNewsletter bool           `yaml:"showNewsletter" json:"showNewsletter"`
	Copyright      string         `yaml:"copyright" json:"copyright"`
}

type SEODefaults struct {
	TitleTemplate      string `yaml:"titleTemplate" json:"titleTemplate"`
	DefaultDescription string `yaml:"defaultDescription" json:"defaultDescription"`
	OGImage            string `yaml:"ogImage" json:"ogImage"`
	Robots             string `yaml:"robots" json:"robots"`
}

type CTADefaults struct {
	Text        string `yaml:"text" json:"text"`
	Destination string `yaml:"destination" json:"destination"`
	Style       string `yaml:"style" json:"style"`
}

// Preset is immutable catalog data.
type Preset struct {
	ID                string            `yaml:"id" json:"id"`
	Name              string            `yaml:"name" json:"name"`
	Description       string            `yaml:"description" json:"description"`
	ThemePackID       string            `yaml:"themePackId" json:"themePackId"`
	ThemeTokens       map[string]string `yaml:"themeTokens" json:"themeTokens"`
	ComponentVariants map[string]string `yaml:"componentVariants" json:"componentVariants"`
	NavPreset         *NavPreset        `yaml:"navPreset" json:"navPreset,omitempty"`
	FooterPreset      *FooterPreset     `yaml:"footerPreset" json:"footerPreset,omitempty"`
	SEODefaults       *SEODefaults      `yaml:"seoDefaults" json:"seoDefaults,omitempty"`
	GlobalCTADefaults *CTADefaults      `yaml:"globalCtaDefaults" json:"globalCtaDefaults,omitempty"`
	HomePageSeedMode  SeedMode          `yaml:"homePageSeedMode" json:"homePageSeedMode"`
	HomeTemplateID    string            `yaml:"homeTemplateId" json:"homeTemplateId,omitempty"`
}

// Settings is the live, persisted site configuration. The zero value is a
// site that has never had a preset applied.
type Settings struct {
	PresetID          string            `json:"presetId"`
	PresetName        string            `json:"presetName"`
	ThemePackID       string            `json:"themePackId"`
	ThemeTokens       map[string]string `json:"themeTokens"`
	ComponentVariants map[string]string `json:"componentVariants"`
	NavPreset         *NavPreset        `json:"navPreset,omitempty"`
	FooterPreset      *FooterPreset     `json:"footerPreset,omitempty"`
	SEODefaults       *SEODefaults      `json:"seoDefaults,omitempty"`
	GlobalCTADefaults *CTADefaults      `json:"globalCtaDefaults,omitempty"`
	HomePageSeedMode  SeedMode          `json:"homePageSeedMode"`
	ActivatedAt       *time.Time        `json:"activatedAt,omitempty"`
}

// Settings returns the live settings p applies when activated at at.
func (p Preset) Settings(at time.Time) Settings {
	at = at.UTC()
	return Settings{
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
		ActivatedAt:       &at,
	}
}

func (n *NavPreset) clone() *NavPreset {
	if n == nil {
		return nil
	}
	out := *n
	out.Items = append([]Link(nil), n.Items...)
	return &out
}

func (f *FooterPreset) clone() *FooterPreset {
	if f == nil {
		return nil
	}
	out := *f
	out.Columns = make([]FooterColumn, len(f.Columns))
	for i, col := range f.Columns {
		out.Columns[i] = FooterColumn{Title: col.Title, Links: append([]Link(nil), col.Links...)}
	}
	return &out
}

func cloneSEO(s *SEODefaults) *SEODefaults {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}

func cloneCTA(c *CTADefaults) *CTADefaults {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
