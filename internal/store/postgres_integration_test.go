package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"storefront/cms/internal/content"
	"storefront/cms/internal/presets"
)

func openTestStore(t *testing.T) (*PostgresStore, context.Context) {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("STOREFRONT_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("STOREFRONT_TEST_DATABASE_URL is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db), ctx
}

func TestPageLifecyclePostgres(t *testing.T) {
	s, ctx := openTestStore(t)

	doc := content.Document{Version: 1, Blocks: []content.Block{
		{ID: "hero_1", Type: "hero", Data: map[string]any{"headline": "Hello"}},
		{ID: "x_1", Type: "legacyWidget", Data: map[string]any{"k": "v"}},
	}}
	page, err := s.CreatePage(ctx, Page{ID: "pg_1", Slug: "home", Title: "Home", Content: doc, IsHome: true})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if page.CreatedAt.IsZero() || len(page.Content.Blocks) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Content.Blocks[1].Type != "legacyWidget" {
		t.Fatalf("unknown type did not round-trip: %+v", page.Content.Blocks[1])
	}

	if _, err := s.CreatePage(ctx, Page{ID: "pg_2", Slug: "home", Title: "Dup", Content: content.Empty()}); !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}

	doc.Blocks = doc.Blocks[:1]
	saved, err := s.SavePageContent(ctx, "pg_1", doc)
	if err != nil {
		t.Fatalf("SavePageContent: %v", err)
	}
	if len(saved.Content.Blocks) != 1 || saved.Content.Blocks[0].Settings == nil {
		t.Fatalf("unexpected saved content %+v", saved.Content)
	}

	home, err := s.GetHomePage(ctx)
	if err != nil || home.ID != "pg_1" {
		t.Fatalf("GetHomePage: %v %+v", err, home)
	}

	list, err := s.ListPages(ctx)
	if err != nil || len(list) != 1 || list[0].BlockCount != 1 {
		t.Fatalf("ListPages: %v %+v", err, list)
	}

	if err := s.DeletePage(ctx, "pg_1"); err != nil {
		t.Fatalf("DeletePage: %v", err)
	}
	if _, err := s.GetPage(ctx, "pg_1"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
	if err := s.DeletePage(ctx, "pg_1"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows on second delete, got %v", err)
	}
}

func TestSectionLifecyclePostgres(t *testing.T) {
	s, ctx := openTestStore(t)

	section, err := s.CreateSection(ctx, content.Section{ID: "sec_1", Name: "Promo", Category: "marketing"})
	if err != nil {
		t.Fatalf("CreateSection: %v", err)
	}
	if section.Blocks == nil {
		t.Fatal("blocks should be an empty list, not nil")
	}

	updated, err := s.ReplaceSectionBlocks(ctx, "sec_1", []content.Block{{ID: "c1", Type: "cta", Data: map[string]any{"buttonText": "Go"}}})
	if err != nil || len(updated.Blocks) != 1 {
		t.Fatalf("ReplaceSectionBlocks: %v %+v", err, updated)
	}

	renamed, err := s.UpdateSectionMeta(ctx, "sec_1", SectionMeta{Name: "Promo 2", Category: "marketing"})
	if err != nil || renamed.Name != "Promo 2" || len(renamed.Blocks) != 1 {
		t.Fatalf("UpdateSectionMeta: %v %+v", err, renamed)
	}

	filtered, err := s.ListSections(ctx, "other")
	if err != nil || len(filtered) != 0 {
		t.Fatalf("ListSections filter: %v %+v", err, filtered)
	}
	all, err := s.ListSections(ctx, "")
	if err != nil || len(all) != 1 {
		t.Fatalf("ListSections: %v %+v", err, all)
	}
}

func TestSiteSettingsSlotsPostgres(t *testing.T) {
	s, ctx := openTestStore(t)

	slots, err := s.GetSiteSettings(ctx)
	if err != nil {
		t.Fatalf("GetSiteSettings: %v", err)
	}
	if slots.CanRollback() {
		t.Fatal("fresh site should have nothing to roll back")
	}

	e := presets.NewEngine(presets.Builtin(), s)
	if _, err := e.Activate(ctx, "classic"); err != nil {
		t.Fatalf("activate classic: %v", err)
	}
	before, _ := e.Live(ctx)
	if _, err := e.Activate(ctx, "bold"); err != nil {
		t.Fatalf("activate bold: %v", err)
	}
	restored, err := e.Rollback(ctx)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if restored.PresetID != before.PresetID || !restored.ActivatedAt.Equal(*before.ActivatedAt) {
		t.Fatalf("rollback restored %+v, want %+v", restored, before)
	}
	if _, err := e.Rollback(ctx); !errors.Is(err, presets.ErrNothingToRollback) {
		t.Fatalf("expected ErrNothingToRollback, got %v", err)
	}

	failure := errors.New("boom")
	if _, err := s.UpdateSiteSettings(ctx, func(presets.Slots) (presets.Slots, error) { return presets.Slots{}, failure }); !errors.Is(err, failure) {
		t.Fatalf("expected fn error, got %v", err)
	}
	after, _ := s.GetSiteSettings(ctx)
	if after.Current.PresetID != "classic" {
		t.Fatalf("failed update changed settings: %+v", after.Current)
	}
}
