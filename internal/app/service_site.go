package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storefront/cms/internal/blocks"
	"storefront/cms/internal/content"
	"storefront/cms/internal/events"
	"storefront/cms/internal/landing"
	"storefront/cms/internal/logfields"
	"storefront/cms/internal/metrics"
	"storefront/cms/internal/presets"
	"storefront/cms/internal/search"
	"storefront/cms/internal/sections"
	"storefront/cms/internal/store"
	"storefront/cms/internal/util"
)

// =============================================================================
// Section library
// =============================================================================

type SectionInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Blocks      []byte `json:"-"`
}

type SectionResult struct {
	Section  content.Section   `json:"section"`
	Warnings []content.Warning `json:"warnings"`
}

func (s *Service) ListSections(ctx context.Context, category string) ([]content.Section, error) {
	return s.store.ListSections(ctx, strings.TrimSpace(category))
}

func (s *Service) GetSection(ctx context.Context, sectionID string) (content.Section, error) {
	return s.store.GetSection(ctx, sectionID)
}

func (s *Service) CreateSection(ctx context.Context, session Session, input SectionInput) (SectionResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return SectionResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	list, warnings, err := s.decodeSectionBlocks(input.Blocks)
	if err != nil {
		return SectionResult{}, err
	}
	section, err := s.store.CreateSection(ctx, content.Section{
		ID:          util.NewID("sec"),
		Name:        name,
		Description: input.Description,
		Category:    strings.TrimSpace(input.Category),
		Blocks:      list,
	})
	if err != nil {
		return SectionResult{}, err
	}
	s.recordSectionSave(ctx, session, section)
	s.countWarnings(warnings)
	return SectionResult{Section: section, Warnings: nonNilWarnings(warnings)}, nil
}

func (s *Service) UpdateSection(ctx context.Context, session Session, sectionID string, meta store.SectionMeta) (content.Section, error) {
	meta.Name = strings.TrimSpace(meta.Name)
	if meta.Name == "" {
		return content.Section{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	section, err := s.store.UpdateSectionMeta(ctx, sectionID, meta)
	if err != nil {
		return content.Section{}, err
	}
	s.recordSectionSave(ctx, session, section)
	return section, nil
}

// ReplaceSectionBlocks is the only way a section's blocks change. Pages that
// reference the section pick the new blocks up on their next render.
func (s *Service) ReplaceSectionBlocks(ctx context.Context, session Session, sectionID string, raw []byte) (SectionResult, error) {
	list, warnings, err := s.decodeSectionBlocks(raw)
	if err != nil {
		return SectionResult{}, err
	}
	section, err := s.store.ReplaceSectionBlocks(ctx, sectionID, list)
	if err != nil {
		return SectionResult{}, err
	}
	s.recordSectionSave(ctx, session, section)
	s.countWarnings(warnings)
	return SectionResult{Section: section, Warnings: nonNilWarnings(warnings)}, nil
}

// DeleteSection leaves references on pages in place; they render as missing.
func (s *Service) DeleteSection(ctx context.Context, sectionID string) error {
	if err := s.store.DeleteSection(ctx, sectionID); err != nil {
		return err
	}
	s.search.DeleteSection(sectionID)
	return nil
}

func (s *Service) decodeSectionBlocks(raw []byte) ([]content.Block, []content.Warning, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		raw = []byte("[]")
	}
	wrapped := make([]byte, 0, len(raw)+24)
	wrapped = append(wrapped, `{"version":1,"blocks":`...)
	wrapped = append(wrapped, raw...)
	wrapped = append(wrapped, '}')

	doc, warnings, err := content.Decode(wrapped, s.registry)
	if err != nil {
		return nil, nil, err
	}
	if err := sections.CheckBlocks(doc.Blocks); err != nil {
		return nil, nil, &content.ValidationError{Problems: []content.Problem{{Path: "$.blocks", Message: err.Error()}}}
	}
	return doc.Blocks, warnings, nil
}

func (s *Service) recordSectionSave(ctx context.Context, session Session, section content.Section) {
	s.search.IndexSection(search.NewSectionRecord(section))
	s.publish(ctx, events.Event{Subject: events.SubjectSectionSaved, Actor: session.UserName, SectionID: section.ID})
}

// =============================================================================
// Landing pages
// =============================================================================

// LandingRequest names the template and sections by id; the service resolves
// them before assembly.
type LandingRequest struct {
	TemplateID          string                 `json:"templateId"`
	PrimaryProductID    string                 `json:"primaryProductId"`
	SecondaryProductIDs []string               `json:"secondaryProductIds"`
	SectionIDs          []string               `json:"sectionIds"`
	SectionMode         landing.SectionMode    `json:"sectionMode"`
	CTADestination      landing.CTADestination `json:"ctaDestination"`
	ThemeOverride       map[string]any         `json:"themeOverride"`
	Title               string                 `json:"title"`
	Slug                string                 `json:"slug"`
	MetaTitle           string                 `json:"metaTitle"`
	MetaDescription     string                 `json:"metaDescription"`
}

// AssembleLanding builds a landing document without storing anything.
func (s *Service) AssembleLanding(ctx context.Context, req LandingRequest) (landing.Result, error) {
	input, warnings, err := s.landingInput(ctx, req)
	if err != nil {
		return landing.Result{}, err
	}
	started := s.now()
	res, err := s.generator.Assemble(input)
	if err != nil {
		return landing.Result{}, err
	}
	s.metrics.ObserveLandingAssembly(input.Template.ID, s.now().Sub(started))
	res.Warnings = nonNilWarnings(append(warnings, res.Warnings...))
	return res, nil
}

// CreateLanding assembles a landing document and stores it as a new page.
func (s *Service) CreateLanding(ctx context.Context, session Session, req LandingRequest) (PageResult, error) {
	res, err := s.AssembleLanding(ctx, req)
	if err != nil {
		return PageResult{}, err
	}
	page, err := s.store.CreatePage(ctx, store.Page{
		ID:              util.NewID("pg"),
		Slug:            slugFor(res.Slug, req.Title),
		Title:           strings.TrimSpace(req.Title),
		MetaTitle:       res.SEO.MetaTitle,
		MetaDescription: res.SEO.MetaDescription,
		OGTitle:         res.SEO.OGTitle,
		OGDescription:   res.SEO.OGDescription,
		Content:         res.Content,
	})
	if err != nil {
		return PageResult{}, err
	}
	rev := s.recordPageSave(ctx, session, page, fmt.Sprintf("Assemble landing page from template %s", req.TemplateID))
	s.countWarnings(res.Warnings)
	s.logger.InfoContext(ctx, "landing page created", logfields.PageID(page.ID), logfields.TemplateID(req.TemplateID), logfields.Warnings(len(res.Warnings)))
	return PageResult{Page: page, Warnings: res.Warnings, Revision: rev}, nil
}

// LandingDuplicates reports which candidate sections repeat block types the
// template already has.
func (s *Service) LandingDuplicates(ctx context.Context, templateID string, sectionIDs []string) ([]content.Warning, error) {
	tpl, err := landing.TemplateByID(templateID)
	if err != nil {
		return nil, err
	}
	candidates, warnings, err := s.resolveSections(ctx, sectionIDs)
	if err != nil {
		return nil, err
	}
	return nonNilWarnings(append(warnings, landing.DuplicateWarnings(tpl, candidates)...)), nil
}

func (s *Service) landingInput(ctx context.Context, req LandingRequest) (landing.Input, []content.Warning, error) {
	tpl, err := landing.TemplateByID(req.TemplateID)
	if err != nil {
		return landing.Input{}, nil, err
	}
	list, warnings, err := s.resolveSections(ctx, req.SectionIDs)
	if err != nil {
		return landing.Input{}, nil, err
	}
	return landing.Input{
		Template:            tpl,
		PrimaryProductID:    req.PrimaryProductID,
		SecondaryProductIDs: req.SecondaryProductIDs,
		Sections:            list,
		SectionMode:         req.SectionMode,
		CTADestination:      req.CTADestination,
		ThemeOverride:       req.ThemeOverride,
		Title:               req.Title,
		Slug:                req.Slug,
		MetaTitle:           req.MetaTitle,
		MetaDescription:     req.MetaDescription,
	}, warnings, nil
}

// resolveSections loads sections in the requested order. Missing sections are
// skipped with a warning.
func (s *Service) resolveSections(ctx context.Context, ids []string) ([]content.Section, []content.Warning, error) {
	list := make([]content.Section, 0, len(ids))
	var warnings []content.Warning
	for _, id := range ids {
		section, err := s.store.GetSection(ctx, id)
		if isNotFound(err) {
			ref := content.Block{Type: blocks.TypeSectionRef, Data: map[string]any{"sectionId": id}}
			warnings = append(warnings, content.SectionUnresolved(ref, id, errors.New("section not found")))
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("load section %s: %w", id, err)
		}
		list = append(list, section)
	}
	return list, warnings, nil
}

// =============================================================================
// Presets and site settings
// =============================================================================

type SiteState struct {
	Current     presets.Settings  `json:"current"`
	Previous    *presets.Settings `json:"previous,omitempty"`
	Revision    int64             `json:"revision"`
	CanRollback bool              `json:"canRollback"`
}

type EffectiveView struct {
	Settings   presets.Settings `json:"settings"`
	Previewing bool             `json:"previewing"`
	Preview    *presets.Preview `json:"preview,omitempty"`
}

type ActivationResult struct {
	presets.Activation
	HomePageID string            `json:"homePageId,omitempty"`
	Warnings   []content.Warning `json:"warnings"`
}

func (s *Service) ListPresets() []presets.Preset {
	return s.engine.Catalog().List()
}

// PreviewPreset stages a preset for this session only. Live settings are
// untouched and nothing is published.
func (s *Service) PreviewPreset(ctx context.Context, session Session, presetID string) (presets.Preview, error) {
	preview, err := s.engine.Preview(presetID)
	if err != nil {
		return presets.Preview{}, err
	}
	if err := s.previews.SavePreview(ctx, session.SessionID, preview); err != nil {
		return presets.Preview{}, fmt.Errorf("save preview: %w", err)
	}
	return preview, nil
}

func (s *Service) CurrentPreview(ctx context.Context, session Session) (*presets.Preview, error) {
	return s.previews.LoadPreview(ctx, session.SessionID)
}

func (s *Service) ClearPreview(ctx context.Context, session Session) error {
	return s.previews.ClearPreview(ctx, session.SessionID)
}

func (s *Service) SiteState(ctx context.Context) (SiteState, error) {
	slots, err := s.engine.State(ctx)
	if err != nil {
		return SiteState{}, err
	}
	return SiteState{
		Current:     slots.Current,
		Previous:    slots.Previous,
		Revision:    slots.Revision,
		CanRollback: slots.CanRollback(),
	}, nil
}

// EffectiveSettings resolves live settings under the session's preview.
func (s *Service) EffectiveSettings(ctx context.Context, session Session) (EffectiveView, error) {
	preview, err := s.previews.LoadPreview(ctx, session.SessionID)
	if err != nil {
		return EffectiveView{}, err
	}
	settings, err := s.engine.Effective(ctx, preview)
	if err != nil {
		return EffectiveView{}, err
	}
	return EffectiveView{Settings: settings, Previewing: preview != nil && preview.Active, Preview: preview}, nil
}

// ActivatePreset swaps the live settings, drops the caller's preview and
// seeds the home page according to the preset. Seeding failures come back as
// warnings; the activation itself stands.
func (s *Service) ActivatePreset(ctx context.Context, session Session, presetID string) (ActivationResult, error) {
	activation, err := s.engine.Activate(ctx, presetID)
	s.metrics.IncPresetActivation(presetID, metrics.ResultOf(err))
	if err != nil {
		return ActivationResult{}, err
	}
	s.logger.InfoContext(ctx, "preset activated", logfields.PresetID(presetID), logfields.SessionID(session.SessionID))

	if err := s.previews.ClearPreview(ctx, session.SessionID); err != nil {
		s.logger.WarnContext(ctx, "clear preview after activation", logfields.SessionID(session.SessionID), logfields.Error(err))
	}

	result := ActivationResult{Activation: activation, Warnings: []content.Warning{}}
	homeID, err := s.seedHome(ctx, session, activation.Preset)
	if err != nil {
		s.logger.WarnContext(ctx, "home seeding failed", logfields.PresetID(presetID), logfields.Error(err))
		result.Warnings = append(result.Warnings, content.HomeSeedFailed(err))
	}
	result.HomePageID = homeID

	s.publish(ctx, events.Event{
		Subject:  events.SubjectPresetActivated,
		Actor:    session.UserName,
		PresetID: presetID,
		Revision: activation.Revision,
		Attributes: map[string]any{
			"previousPresetId": activation.Previous.PresetID,
			"homePageId":       homeID,
		},
	})
	return result, nil
}

// RollbackSite restores the settings live before the last activation. Home
// page content is not touched; earlier content is in the page's revisions.
func (s *Service) RollbackSite(ctx context.Context, session Session) (SiteState, error) {
	_, err := s.engine.Rollback(ctx)
	s.metrics.IncRollback(metrics.ResultOf(err))
	if errors.Is(err, presets.ErrNothingToRollback) {
		return SiteState{}, domainError(http.StatusConflict, "ACTIVATION_CONFLICT", "No activation to roll back", nil)
	}
	if err != nil {
		return SiteState{}, err
	}
	state, err := s.SiteState(ctx)
	if err != nil {
		return SiteState{}, err
	}
	s.logger.InfoContext(ctx, "site settings rolled back", logfields.PresetID(state.Current.PresetID))
	s.publish(ctx, events.Event{
		Subject:  events.SubjectPresetRolledBack,
		Actor:    session.UserName,
		PresetID: state.Current.PresetID,
		Revision: state.Revision,
	})
	return state, nil
}

// seedHome applies the preset's home seeding mode to the page flagged as
// home, creating one when the site has none.
func (s *Service) seedHome(ctx context.Context, session Session, preset presets.Preset) (homeID string, err error) {
	mode := preset.HomePageSeedMode
	if mode == "" || mode == presets.SeedNone {
		return "", nil
	}
	defer func() { s.metrics.IncHomeSeed(string(mode), metrics.ResultOf(err)) }()

	if preset.HomeTemplateID == "" {
		return "", fmt.Errorf("preset %s has no home template", preset.ID)
	}
	tpl, err := landing.TemplateByID(preset.HomeTemplateID)
	if err != nil {
		return "", err
	}

	home, err := s.store.GetHomePage(ctx)
	created := false
	switch {
	case isNotFound(err):
		created = true
		home = store.Page{ID: util.NewID("pg"), Slug: "home", Title: "Home", Content: content.Empty()}
	case err != nil:
		return "", fmt.Errorf("load home page: %w", err)
	}
	if mode == presets.SeedIfEmpty && !created && len(home.Content.Blocks) > 0 {
		return home.ID, nil
	}

	res, err := s.generator.Assemble(landing.Input{
		Template:       tpl,
		Title:          home.Title,
		CTADestination: ctaDestination(preset.GlobalCTADefaults),
	})
	if err != nil {
		return "", err
	}

	message := fmt.Sprintf("Seed home page from preset %s", preset.ID)
	if created {
		home.Content = res.Content
		if home, err = s.store.CreatePage(ctx, home); err != nil {
			return "", fmt.Errorf("create home page: %w", err)
		}
		if home, err = s.markHome(ctx, home.ID); err != nil {
			return "", err
		}
	} else if home, err = s.store.SavePageContent(ctx, home.ID, res.Content); err != nil {
		return "", fmt.Errorf("save home page: %w", err)
	}
	s.recordPageSave(ctx, session, home, message)
	return home.ID, nil
}

func ctaDestination(cta *presets.CTADefaults) landing.CTADestination {
	if cta == nil {
		return landing.CTAShop
	}
	switch dest := landing.CTADestination(cta.Destination); dest {
	case landing.CTAShop, landing.CTAProduct, landing.CTAQuote:
		return dest
	}
	return landing.CTAShop
}
