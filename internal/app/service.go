package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storefront/cms/internal/auth"
	"storefront/cms/internal/authpw"
	"storefront/cms/internal/blocks"
	"storefront/cms/internal/config"
	"storefront/cms/internal/content"
	"storefront/cms/internal/editor"
	"storefront/cms/internal/events"
	"storefront/cms/internal/export"
	"storefront/cms/internal/gitrepo"
	"storefront/cms/internal/landing"
	"storefront/cms/internal/logfields"
	"storefront/cms/internal/metrics"
	"storefront/cms/internal/presets"
	"storefront/cms/internal/rbac"
	"storefront/cms/internal/search"
	"storefront/cms/internal/sections"
	"storefront/cms/internal/session"
	"storefront/cms/internal/store"
	"storefront/cms/internal/util"
)

type Session struct {
	Token     string
	SessionID string
	UserName  string
	Role      string
	ExpiresAt time.Time
}

type dataStore interface {
	CreatePage(context.Context, store.Page) (store.Page, error)
	GetPage(context.Context, string) (store.Page, error)
	GetPageBySlug(context.Context, string) (store.Page, error)
	GetHomePage(context.Context) (store.Page, error)
	ListPages(context.Context) ([]store.PageSummary, error)
	UpdatePageMeta(context.Context, string, store.PageMeta) (store.Page, error)
	SavePageContent(context.Context, string, content.Document) (store.Page, error)
	SetHomePage(context.Context, string) error
	DeletePage(context.Context, string) error
	CreateSection(context.Context, content.Section) (content.Section, error)
	GetSection(context.Context, string) (content.Section, error)
	ListSections(context.Context, string) ([]content.Section, error)
	UpdateSectionMeta(context.Context, string, store.SectionMeta) (content.Section, error)
	ReplaceSectionBlocks(context.Context, string, []content.Block) (content.Section, error)
	DeleteSection(context.Context, string) error
	GetSiteSettings(context.Context) (presets.Slots, error)
	UpdateSiteSettings(context.Context, func(presets.Slots) (presets.Slots, error)) (presets.Slots, error)
	Ping(context.Context) error
}

type revisionArchive interface {
	CommitContent(pageID string, doc content.Document, author, message string) (gitrepo.Revision, bool, error)
	History(pageID string, limit int) ([]gitrepo.Revision, error)
	ContentAt(pageID, hash string) (content.Document, gitrepo.Revision, error)
	Remove(pageID string) error
}

type previewStore interface {
	SavePreview(ctx context.Context, sessionID string, preview presets.Preview) error
	LoadPreview(ctx context.Context, sessionID string) (*presets.Preview, error)
	ClearPreview(ctx context.Context, sessionID string) error
	RevokeSession(ctx context.Context, sessionID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
	Ping(ctx context.Context) error
}

type searchIndex interface {
	Search(q search.Query) search.Response
	IndexPage(r search.PageRecord)
	IndexSection(r search.SectionRecord)
	DeletePage(id string)
	DeleteSection(id string)
}

type pageRenderer interface {
	Export(ctx context.Context, p export.Page, format export.Format) (*export.Result, error)
}

// Deps are the collaborators behind a Service. Store is required; the rest
// fall back to in-process implementations.
type Deps struct {
	Store     dataStore
	Revisions revisionArchive
	Previews  previewStore
	Search    searchIndex
	Renderer  pageRenderer
	Events    events.Publisher
	Metrics   metrics.Recorder
	Logger    *slog.Logger
}

type Service struct {
	cfg       config.Config
	store     dataStore
	revisions revisionArchive
	previews  previewStore
	search    searchIndex
	renderer  pageRenderer
	events    events.Publisher
	metrics   metrics.Recorder
	logger    *slog.Logger

	registry  *blocks.Registry
	linker    *sections.Linker
	generator *landing.Generator
	engine    *presets.Engine
	accounts  *authpw.Service
	newID     content.IDFunc
	now       func() time.Time
}

func New(cfg config.Config, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		cfg:       cfg,
		store:     deps.Store,
		revisions: deps.Revisions,
		previews:  deps.Previews,
		search:    deps.Search,
		renderer:  deps.Renderer,
		events:    deps.Events,
		metrics:   deps.Metrics,
		logger:    logger,
		registry:  blocks.Default(),
		newID:     content.NewBlockID,
		now:       time.Now,
	}
	if s.revisions == nil {
		s.revisions = gitrepo.New(cfg.ReposDir)
	}
	if s.previews == nil {
		s.previews = session.NewMemoryStore()
	}
	if s.search == nil {
		s.search = search.NewService(nil, nil, nil, logger)
	}
	if s.renderer == nil {
		s.renderer = export.NewService(s.registry)
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.NoopRecorder{}
	}

	s.linker = sections.NewLinker(s.store, s.newID)
	s.generator = landing.NewGenerator(s.registry, s.newID)
	s.engine = presets.NewEngine(presets.Builtin(), s.store)
	s.accounts = authpw.NewService(
		authpw.Account{Username: "admin", Role: rbac.RoleAdmin, PasswordHash: cfg.AdminPasswordHash},
		authpw.Account{Username: "editor", Role: rbac.RoleEditor, PasswordHash: cfg.EditorPasswordHash},
	)
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PingPreviews(ctx context.Context) error {
	return s.previews.Ping(ctx)
}

// SignInEnabled reports whether any operator password is configured.
func (s *Service) SignInEnabled() bool {
	return s.accounts.Enabled()
}

func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	account, err := s.accounts.SignIn(username, password)
	if err != nil {
		return Session{}, err
	}

	expiresAt := s.now().Add(s.cfg.AccessTTL)
	sid := util.NewID("ses")
	token, err := auth.IssueToken([]byte(s.cfg.SessionSecret), auth.Claims{
		Sub:  account.Username,
		Role: string(account.Role),
		SID:  sid,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}
	s.logger.InfoContext(ctx, "session started", logfields.SessionID(sid), slog.String("user", account.Username))
	return Session{
		Token:     token,
		SessionID: sid,
		UserName:  account.Username,
		Role:      string(account.Role),
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.SessionSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.previews.IsRevoked(ctx, claims.SID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}
	return Session{
		Token:     token,
		SessionID: claims.SID,
		UserName:  claims.Sub,
		Role:      string(rbac.Normalize(claims.Role)),
		ExpiresAt: claims.ExpiresAt(),
	}, nil
}

// Logout drops the session's preview and revokes its token.
func (s *Service) Logout(ctx context.Context, session Session) error {
	if err := s.previews.ClearPreview(ctx, session.SessionID); err != nil {
		return fmt.Errorf("clear preview: %w", err)
	}
	return s.previews.RevokeSession(ctx, session.SessionID, session.ExpiresAt)
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) Blocks(category string) []blocks.Entry {
	if category == "" {
		return s.registry.List()
	}
	return s.registry.ListByCategory(category)
}

func (s *Service) Templates() []landing.Template {
	return landing.Templates()
}

// ValidateContent is a dry run; nothing is stored.
func (s *Service) ValidateContent(raw []byte) content.Report {
	return content.Check(raw, s.registry)
}

func (s *Service) EditorTree(raw []byte, title string) (editor.Tree, []content.Warning, error) {
	doc, warnings, err := content.Decode(raw, s.registry)
	if err != nil {
		return editor.Tree{}, nil, err
	}
	return editor.ToTree(doc, title, s.newID), nonNilWarnings(warnings), nil
}

func (s *Service) EditorDocument(tree editor.Tree) (content.Document, []content.Warning, error) {
	doc := editor.FromTree(tree)
	if err := content.CheckStructure(doc); err != nil {
		return content.Document{}, nil, err
	}
	return doc, nonNilWarnings(content.Validate(doc, s.registry)), nil
}

type CreatePageInput struct {
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	TemplateID      string `json:"templateId"`
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
	IsHome          bool   `json:"isHome"`
}

type UpdatePageInput struct {
	store.PageMeta
	IsHome bool `json:"isHome"`
}

// PageResult is a stored page plus whatever the save had to report.
type PageResult struct {
	Page     store.Page        `json:"page"`
	Warnings []content.Warning `json:"warnings"`
	Revision *gitrepo.Revision `json:"revision,omitempty"`
}

func (s *Service) ListPages(ctx context.Context) ([]store.PageSummary, error) {
	return s.store.ListPages(ctx)
}

func (s *Service) GetPage(ctx context.Context, pageID string) (store.Page, error) {
	return s.store.GetPage(ctx, pageID)
}

func (s *Service) GetPageBySlug(ctx context.Context, slug string) (store.Page, error) {
	return s.store.GetPageBySlug(ctx, landing.Slugify(slug))
}

func (s *Service) CreatePage(ctx context.Context, session Session, input CreatePageInput) (PageResult, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return PageResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}

	doc := content.Empty()
	var warnings []content.Warning
	message := "Create page"
	if input.TemplateID != "" {
		tpl, err := landing.TemplateByID(input.TemplateID)
		if err != nil {
			return PageResult{}, err
		}
		res, err := s.generator.Assemble(landing.Input{Template: tpl, Title: title, CTADestination: landing.CTAShop})
		if err != nil {
			return PageResult{}, err
		}
		doc = res.Content
		warnings = res.Warnings
		message = fmt.Sprintf("Create page from template %s", tpl.ID)
	}

	page, err := s.store.CreatePage(ctx, store.Page{
		ID:              util.NewID("pg"),
		Slug:            slugFor(input.Slug, title),
		Title:           title,
		MetaTitle:       input.MetaTitle,
		MetaDescription: input.MetaDescription,
		Content:         doc,
	})
	if err != nil {
		return PageResult{}, err
	}
	if input.IsHome {
		if page, err = s.markHome(ctx, page.ID); err != nil {
			return PageResult{}, err
		}
	}

	rev := s.recordPageSave(ctx, session, page, message)
	s.countWarnings(warnings)
	return PageResult{Page: page, Warnings: nonNilWarnings(warnings), Revision: rev}, nil
}

func (s *Service) UpdatePage(ctx context.Context, session Session, pageID string, input UpdatePageInput) (store.Page, error) {
	current, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return store.Page{}, err
	}
	meta := input.PageMeta
	meta.Title = firstNonBlank(strings.TrimSpace(meta.Title), current.Title)
	if strings.TrimSpace(meta.Slug) == "" {
		meta.Slug = current.Slug
	} else {
		meta.Slug = landing.Slugify(meta.Slug)
	}
	if meta.Slug == "" {
		return store.Page{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "slug must contain letters or digits", nil)
	}

	page, err := s.store.UpdatePageMeta(ctx, pageID, meta)
	if err != nil {
		return store.Page{}, err
	}
	if input.IsHome && !page.IsHome {
		if page, err = s.markHome(ctx, pageID); err != nil {
			return store.Page{}, err
		}
	}
	s.search.IndexPage(search.NewPageRecord(page))
	s.publish(ctx, events.Event{Subject: events.SubjectPageSaved, Actor: session.UserName, PageID: page.ID})
	return page, nil
}

// SavePageContent overwrites a page's content with either a content document
// or an editor tree. Trees take block settings from the stored document.
func (s *Service) SavePageContent(ctx context.Context, session Session, pageID string, raw []byte) (PageResult, error) {
	current, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return PageResult{}, err
	}
	doc, warnings, err := s.decodeContent(raw, current.Content)
	if err != nil {
		return PageResult{}, err
	}
	return s.savePage(ctx, session, pageID, doc, warnings, "Save content")
}

func (s *Service) DeletePage(ctx context.Context, session Session, pageID string) error {
	if err := s.store.DeletePage(ctx, pageID); err != nil {
		return err
	}
	if err := s.revisions.Remove(pageID); err != nil {
		s.logger.WarnContext(ctx, "remove page revisions", logfields.PageID(pageID), logfields.Error(err))
	}
	s.search.DeletePage(pageID)
	s.publish(ctx, events.Event{Subject: events.SubjectPageDeleted, Actor: session.UserName, PageID: pageID})
	return nil
}

// InsertSection appends a linked reference to sectionID and saves the page.
func (s *Service) InsertSection(ctx context.Context, session Session, pageID, sectionID string) (PageResult, error) {
	page, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return PageResult{}, err
	}
	section, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return PageResult{}, err
	}
	doc := sections.Insert(page.Content, section, s.newID)
	warnings := content.Validate(doc, s.registry)
	return s.savePage(ctx, session, pageID, doc, warnings, fmt.Sprintf("Insert section %s", section.Name))
}

// DetachPage inlines every resolvable section reference on the page.
func (s *Service) DetachPage(ctx context.Context, session Session, pageID string) (PageResult, error) {
	page, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return PageResult{}, err
	}
	doc, warnings, err := s.linker.Detach(ctx, page.Content)
	if err != nil {
		return PageResult{}, err
	}
	warnings = append(warnings, content.Validate(doc, s.registry)...)
	return s.savePage(ctx, session, pageID, doc, warnings, "Detach sections")
}

func (s *Service) Revisions(ctx context.Context, pageID string, limit int) ([]gitrepo.Revision, error) {
	if _, err := s.store.GetPage(ctx, pageID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.revisions.History(pageID, limit)
}

// RestoreRevision saves an archived document as the page's newest content.
func (s *Service) RestoreRevision(ctx context.Context, session Session, pageID, hash string) (PageResult, error) {
	if _, err := s.store.GetPage(ctx, pageID); err != nil {
		return PageResult{}, err
	}
	doc, rev, err := s.revisions.ContentAt(pageID, hash)
	if err != nil {
		return PageResult{}, err
	}
	if err := content.CheckStructure(doc); err != nil {
		return PageResult{}, err
	}
	warnings := content.Validate(doc, s.registry)
	return s.savePage(ctx, session, pageID, doc, warnings, fmt.Sprintf("Restore revision %s", rev.Hash))
}

// RenderPage renders a stored page under the caller's effective settings.
// Section references are expanded for the render only.
func (s *Service) RenderPage(ctx context.Context, session Session, pageID, format string) (*export.Result, []content.Warning, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, nil, err
	}
	page, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return nil, nil, err
	}
	expanded, warnings, err := s.linker.Detach(ctx, page.Content)
	if err != nil {
		return nil, nil, err
	}
	preview, err := s.previews.LoadPreview(ctx, session.SessionID)
	if err != nil {
		return nil, nil, err
	}
	settings, err := s.engine.Effective(ctx, preview)
	if err != nil {
		return nil, nil, err
	}

	res, err := s.renderer.Export(ctx, export.Page{
		Title:           page.Title,
		Slug:            page.Slug,
		MetaTitle:       page.MetaTitle,
		MetaDescription: page.MetaDescription,
		OGTitle:         page.OGTitle,
		OGDescription:   page.OGDescription,
		Content:         expanded,
		Settings:        settings,
		Preview:         preview != nil && preview.Active,
	}, f)
	if err != nil {
		return nil, nil, err
	}
	return res, nonNilWarnings(warnings), nil
}

func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}

func (s *Service) savePage(ctx context.Context, session Session, pageID string, doc content.Document, warnings []content.Warning, message string) (PageResult, error) {
	page, err := s.store.SavePageContent(ctx, pageID, doc)
	if err != nil {
		return PageResult{}, err
	}
	rev := s.recordPageSave(ctx, session, page, message)
	s.countWarnings(warnings)
	if len(warnings) > 0 {
		s.logger.WarnContext(ctx, "page saved with warnings", logfields.PageID(pageID), logfields.Warnings(len(warnings)))
	}
	return PageResult{Page: page, Warnings: nonNilWarnings(warnings), Revision: rev}, nil
}

// recordPageSave archives, indexes and announces a saved page. The content is
// already stored, so archive failures are logged rather than returned.
func (s *Service) recordPageSave(ctx context.Context, session Session, page store.Page, message string) *gitrepo.Revision {
	evt := events.Event{Subject: events.SubjectPageSaved, Actor: session.UserName, PageID: page.ID}
	var out *gitrepo.Revision
	rev, changed, err := s.revisions.CommitContent(page.ID, page.Content, firstNonBlank(session.UserName, "system"), message)
	if err != nil {
		s.logger.ErrorContext(ctx, "archive page revision", logfields.PageID(page.ID), logfields.Error(err))
	} else {
		out = &rev
		evt.Attributes = map[string]any{"revision": rev.Hash, "changed": changed}
	}
	s.search.IndexPage(search.NewPageRecord(page))
	s.publish(ctx, evt)
	return out
}

func (s *Service) markHome(ctx context.Context, pageID string) (store.Page, error) {
	if err := s.store.SetHomePage(ctx, pageID); err != nil {
		return store.Page{}, err
	}
	return s.store.GetPage(ctx, pageID)
}

// decodeContent accepts a content document, or an editor tree when the body
// has a root node and no blocks array.
func (s *Service) decodeContent(raw []byte, previous content.Document) (content.Document, []content.Warning, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err == nil {
		_, hasRoot := probe["root"]
		_, hasBlocks := probe["blocks"]
		if hasRoot && !hasBlocks {
			var tree editor.Tree
			if err := json.Unmarshal(raw, &tree); err != nil {
				return content.Document{}, nil, &content.ValidationError{Problems: []content.Problem{{Path: "$", Message: "malformed editor tree: " + err.Error()}}}
			}
			doc := editor.FromTreeWithSettings(tree, previous)
			if err := content.CheckStructure(doc); err != nil {
				return content.Document{}, nil, err
			}
			return doc, content.Validate(doc, s.registry), nil
		}
	}
	return content.Decode(raw, s.registry)
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "publish event", slog.String("subject", evt.Subject), logfields.Error(err))
	}
}

func (s *Service) countWarnings(warnings []content.Warning) {
	counts := map[string]int{}
	for _, w := range warnings {
		counts[w.Code]++
	}
	for code, n := range counts {
		s.metrics.AddContentWarnings(code, n)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func slugFor(slug, title string) string {
	if s := landing.Slugify(slug); s != "" {
		return s
	}
	if s := landing.Slugify(title); s != "" {
		return s
	}
	return strings.ToLower(util.NewID("page"))
}

func nonNilWarnings(in []content.Warning) []content.Warning {
	if in == nil {
		return []content.Warning{}
	}
	return in
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
