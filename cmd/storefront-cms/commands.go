package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"storefront/cms/internal/authpw"
	"storefront/cms/internal/blocks"
	"storefront/cms/internal/content"
	"storefront/cms/internal/export"
	"storefront/cms/internal/landing"
	"storefront/cms/internal/presets"
	"storefront/cms/internal/search"
	"storefront/cms/internal/store"
)

type MigrateCmd struct {
	DryRun bool `name:"dry-run" help:"List pending migrations without applying them"`
}

func (c *MigrateCmd) Run(g *Global) error {
	ctx := context.Background()
	db, err := store.Open(ctx, g.Config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	pending, err := store.PendingMigrations(ctx, db, g.Config.MigrationsDir)
	if err != nil {
		return err
	}
	if c.DryRun {
		for _, name := range pending {
			fmt.Println(name)
		}
		return nil
	}
	if err := store.ApplyMigrations(ctx, db, g.Config.MigrationsDir); err != nil {
		return err
	}
	g.Logger.Info("migrations applied", slog.Int("count", len(pending)))
	return nil
}

type ReindexCmd struct{}

func (c *ReindexCmd) Run(g *Global) error {
	if strings.TrimSpace(g.Config.MeiliURL) == "" {
		return errors.New("MEILI_URL is not set; nothing to reindex")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := store.Open(ctx, g.Config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	meili := search.NewMeili(g.Config.MeiliURL, g.Config.MeiliMasterKey, g.Logger)
	defer meili.Close()
	if !meili.Healthy() {
		return fmt.Errorf("meilisearch at %s is unreachable", g.Config.MeiliURL)
	}
	pgfts := search.NewPgFTS(db)

	pages, sections, err := search.NewService(meili, pgfts, pgfts, g.Logger).ReindexAll(ctx)
	if err != nil {
		return err
	}
	g.Logger.Info("search reindexed", slog.Int("pages", pages), slog.Int("sections", sections))
	return nil
}

type PresetsCmd struct {
	JSON bool `help:"Print the full preset definitions as JSON"`
}

func (c *PresetsCmd) Run(*Global) error {
	list := presets.Builtin().List()
	if c.JSON {
		return printJSON(list)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTHEME\tHOME SEED\tHOME TEMPLATE")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.ThemePackID, p.HomePageSeedMode, dash(p.HomeTemplateID))
	}
	return w.Flush()
}

type TemplatesCmd struct {
	JSON bool `help:"Print the full templates as JSON"`
}

func (c *TemplatesCmd) Run(*Global) error {
	list := landing.Templates()
	if c.JSON {
		return printJSON(list)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBLOCKS")
	for _, t := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, strings.Join(t.BlockTypes(), ", "))
	}
	return w.Flush()
}

// AssembleCmd runs the generator offline. Sections are not available here, so
// only template blocks, products and the CTA are applied.
type AssembleCmd struct {
	Template  string   `arg:"" help:"Template id"`
	Title     string   `required:"" help:"Page title"`
	Slug      string   `help:"Page slug (derived from the title when empty)"`
	Product   string   `help:"Primary product id"`
	Secondary []string `help:"Secondary product ids"`
	CTA       string   `name:"cta" default:"shop" enum:"shop,product,quote" help:"CTA destination"`
	Preset    string   `help:"Render under this preset's settings (html output only)"`
	Format    string   `default:"json" enum:"json,html" help:"Output format"`
}

func (c *AssembleCmd) Run(*Global) error {
	tpl, err := landing.TemplateByID(c.Template)
	if err != nil {
		return err
	}
	registry := blocks.Default()
	res, err := landing.NewGenerator(registry, content.NewBlockID).Assemble(landing.Input{
		Template:            tpl,
		PrimaryProductID:    c.Product,
		SecondaryProductIDs: c.Secondary,
		CTADestination:      landing.CTADestination(c.CTA),
		Title:               c.Title,
		Slug:                c.Slug,
	})
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", w.Code, w.Message)
	}
	if c.Format == "json" {
		return printJSON(res)
	}

	page := export.Page{
		Title:           c.Title,
		Slug:            res.Slug,
		MetaTitle:       res.SEO.MetaTitle,
		MetaDescription: res.SEO.MetaDescription,
		OGTitle:         res.SEO.OGTitle,
		OGDescription:   res.SEO.OGDescription,
		Content:         res.Content,
	}
	if c.Preset != "" {
		p, err := presets.Builtin().Get(c.Preset)
		if err != nil {
			return err
		}
		page.Settings = p.Settings(time.Now())
	}
	html, err := export.NewService(registry).RenderHTML(page)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(os.Stdout, html)
	return err
}

type HashPasswordCmd struct {
	Password string `arg:"" help:"Password to hash"`
}

func (c *HashPasswordCmd) Run(*Global) error {
	hash, err := authpw.HashPassword(c.Password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
