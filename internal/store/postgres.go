package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"storefront/cms/internal/content"
	"storefront/cms/internal/presets"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrSlugTaken
	}
	return err
}

func encodeDoc(doc content.Document) ([]byte, error) {
	raw, err := doc.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return raw, nil
}

func encodeBlocks(list []content.Block) ([]byte, error) {
	doc := content.Document{Blocks: list}.Normalized()
	if doc.Blocks == nil {
		doc.Blocks = []content.Block{}
	}
	raw, err := json.Marshal(doc.Blocks)
	if err != nil {
		return nil, fmt.Errorf("encode blocks: %w", err)
	}
	return raw, nil
}

const pageColumns = `id, slug, title, meta_title, meta_description, og_title, og_description, content, is_home, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (Page, error) {
	var page Page
	var raw []byte
	if err := row.Scan(&page.ID, &page.Slug, &page.Title, &page.MetaTitle, &page.MetaDescription,
		&page.OGTitle, &page.OGDescription, &raw, &page.IsHome, &page.CreatedAt, &page.UpdatedAt); err != nil {
		return Page{}, err
	}
	if err := json.Unmarshal(raw, &page.Content); err != nil {
		return Page{}, fmt.Errorf("decode content for page %s: %w", page.ID, err)
	}
	page.Content = page.Content.Normalized()
	return page, nil
}

func (s *PostgresStore) CreatePage(ctx context.Context, page Page) (Page, error) {
	raw, err := encodeDoc(page.Content)
	if err != nil {
		return Page{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO pages (id, slug, title, meta_title, meta_description, og_title, og_description, content, is_home)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+pageColumns,
		page.ID, page.Slug, page.Title, page.MetaTitle, page.MetaDescription, page.OGTitle, page.OGDescription, raw, page.IsHome)
	created, err := scanPage(row)
	if err != nil {
		return Page{}, fmt.Errorf("insert page: %w", mapUnique(err))
	}
	return created, nil
}

func (s *PostgresStore) GetPage(ctx context.Context, pageID string) (Page, error) {
	return scanPage(s.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id=$1`, pageID))
}

func (s *PostgresStore) GetPageBySlug(ctx context.Context, slug string) (Page, error) {
	return scanPage(s.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE slug=$1`, slug))
}

// GetHomePage returns sql.ErrNoRows when no page is flagged as home.
func (s *PostgresStore) GetHomePage(ctx context.Context) (Page, error) {
	return scanPage(s.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE is_home LIMIT 1`))
}

func (s *PostgresStore) ListPages(ctx context.Context) ([]PageSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, title, is_home, COALESCE(jsonb_array_length(content->'blocks'), 0), updated_at
		FROM pages
		ORDER BY is_home DESC, updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	items := make([]PageSummary, 0)
	for rows.Next() {
		var item PageSummary
		if err := rows.Scan(&item.ID, &item.Slug, &item.Title, &item.IsHome, &item.BlockCount, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdatePageMeta(ctx context.Context, pageID string, meta PageMeta) (Page, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE pages
		SET slug=$2, title=$3, meta_title=$4, meta_description=$5, og_title=$6, og_description=$7, updated_at=NOW()
		WHERE id=$1
		RETURNING `+pageColumns,
		pageID, meta.Slug, meta.Title, meta.MetaTitle, meta.MetaDescription, meta.OGTitle, meta.OGDescription)
	page, err := scanPage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Page{}, err
		}
		return Page{}, fmt.Errorf("update page meta: %w", mapUnique(err))
	}
	return page, nil
}

// SavePageContent overwrites the whole document. Concurrent saves are last
// writer wins.
func (s *PostgresStore) SavePageContent(ctx context.Context, pageID string, doc content.Document) (Page, error) {
	raw, err := encodeDoc(doc)
	if err != nil {
		return Page{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE pages SET content=$2, updated_at=NOW()
		WHERE id=$1
		RETURNING `+pageColumns, pageID, raw)
	page, err := scanPage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Page{}, err
		}
		return Page{}, fmt.Errorf("save page content: %w", err)
	}
	return page, nil
}

// SetHomePage flags pageID as the home page and clears the flag elsewhere.
func (s *PostgresStore) SetHomePage(ctx context.Context, pageID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set home tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE pages SET is_home=FALSE WHERE is_home AND id<>$1`, pageID); err != nil {
		return fmt.Errorf("clear home flag: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE pages SET is_home=TRUE, updated_at=NOW() WHERE id=$1`, pageID)
	if err != nil {
		return fmt.Errorf("set home flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

func (s *PostgresStore) DeletePage(ctx context.Context, pageID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id=$1`, pageID)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const sectionColumns = `id, name, description, category, blocks, created_at, updated_at`

func scanSection(row rowScanner) (content.Section, error) {
	var section content.Section
	var raw []byte
	if err := row.Scan(&section.ID, &section.Name, &section.Description, &section.Category, &raw, &section.CreatedAt, &section.UpdatedAt); err != nil {
		return content.Section{}, err
	}
	if err := json.Unmarshal(raw, &section.Blocks); err != nil {
		return content.Section{}, fmt.Errorf("decode blocks for section %s: %w", section.ID, err)
	}
	if section.Blocks == nil {
		section.Blocks = []content.Block{}
	}
	return section, nil
}

func (s *PostgresStore) CreateSection(ctx context.Context, section content.Section) (content.Section, error) {
	raw, err := encodeBlocks(section.Blocks)
	if err != nil {
		return content.Section{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO sections (id, name, description, category, blocks)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+sectionColumns,
		section.ID, section.Name, section.Description, section.Category, raw)
	created, err := scanSection(row)
	if err != nil {
		return content.Section{}, fmt.Errorf("insert section: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetSection(ctx context.Context, sectionID string) (content.Section, error) {
	return scanSection(s.db.QueryRowContext(ctx, `SELECT `+sectionColumns+` FROM sections WHERE id=$1`, sectionID))
}

// ListSections filters by category when category is non-empty.
func (s *PostgresStore) ListSections(ctx context.Context, category string) ([]content.Section, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sectionColumns+`
		FROM sections
		WHERE $1 = '' OR category = $1
		ORDER BY name ASC
	`, category)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	items := make([]content.Section, 0)
	for rows.Next() {
		item, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return items, nil
}

// UpdateSectionMeta never touches blocks, and never touches any page that
// holds a detached copy.
func (s *PostgresStore) UpdateSectionMeta(ctx context.Context, sectionID string, meta SectionMeta) (content.Section, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE sections SET name=$2, description=$3, category=$4, updated_at=NOW()
		WHERE id=$1
		RETURNING `+sectionColumns, sectionID, meta.Name, meta.Description, meta.Category)
	section, err := scanSection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return content.Section{}, err
		}
		return content.Section{}, fmt.Errorf("update section: %w", err)
	}
	return section, nil
}

func (s *PostgresStore) ReplaceSectionBlocks(ctx context.Context, sectionID string, list []content.Block) (content.Section, error) {
	raw, err := encodeBlocks(list)
	if err != nil {
		return content.Section{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE sections SET blocks=$2, updated_at=NOW()
		WHERE id=$1
		RETURNING `+sectionColumns, sectionID, raw)
	section, err := scanSection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return content.Section{}, err
		}
		return content.Section{}, fmt.Errorf("replace section blocks: %w", err)
	}
	return section, nil
}

// DeleteSection leaves referencing pages alone; their references degrade to
// placeholders.
func (s *PostgresStore) DeleteSection(ctx context.Context, sectionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sections WHERE id=$1`, sectionID)
	if err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetSiteSettings returns empty slots when no preset was ever activated.
func (s *PostgresStore) GetSiteSettings(ctx context.Context) (presets.Slots, error) {
	var current []byte
	var previous []byte
	var slots presets.Slots
	err := s.db.QueryRowContext(ctx, `SELECT current, previous, revision FROM site_settings WHERE id=1`).Scan(&current, &previous, &slots.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return presets.Slots{}, nil
	}
	if err != nil {
		return presets.Slots{}, fmt.Errorf("read site settings: %w", err)
	}
	return decodeSlots(current, previous, slots.Revision)
}

func decodeSlots(current, previous []byte, revision int64) (presets.Slots, error) {
	slots := presets.Slots{Revision: revision}
	if err := json.Unmarshal(current, &slots.Current); err != nil {
		return presets.Slots{}, fmt.Errorf("decode current settings: %w", err)
	}
	if len(previous) > 0 {
		var prior presets.Settings
		if err := json.Unmarshal(previous, &prior); err != nil {
			return presets.Slots{}, fmt.Errorf("decode previous settings: %w", err)
		}
		slots.Previous = &prior
	}
	return slots, nil
}

// UpdateSiteSettings locks the single settings row, applies fn and writes
// both slots in one statement. If fn or the commit fails the row is left as
// it was.
func (s *PostgresStore) UpdateSiteSettings(ctx context.Context, fn func(presets.Slots) (presets.Slots, error)) (presets.Slots, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return presets.Slots{}, fmt.Errorf("begin settings tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO site_settings (id, current) VALUES (1, '{}'::jsonb) ON CONFLICT (id) DO NOTHING`); err != nil {
		return presets.Slots{}, fmt.Errorf("ensure settings row: %w", err)
	}

	var current, previous []byte
	var revision int64
	if err := tx.QueryRowContext(ctx, `SELECT current, previous, revision FROM site_settings WHERE id=1 FOR UPDATE`).Scan(&current, &previous, &revision); err != nil {
		return presets.Slots{}, fmt.Errorf("lock site settings: %w", err)
	}
	slots, err := decodeSlots(current, previous, revision)
	if err != nil {
		return presets.Slots{}, err
	}

	next, err := fn(slots)
	if err != nil {
		return slots, err
	}

	nextCurrent, err := json.Marshal(next.Current)
	if err != nil {
		return presets.Slots{}, fmt.Errorf("encode current settings: %w", err)
	}
	var nextPrevious []byte
	if next.Previous != nil {
		if nextPrevious, err = json.Marshal(next.Previous); err != nil {
			return presets.Slots{}, fmt.Errorf("encode previous settings: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE site_settings SET current=$1, previous=$2, revision=$3, updated_at=NOW()
		WHERE id=1
	`, nextCurrent, nextPrevious, next.Revision); err != nil {
		return presets.Slots{}, fmt.Errorf("write site settings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return presets.Slots{}, fmt.Errorf("commit site settings: %w", err)
	}
	return next, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
