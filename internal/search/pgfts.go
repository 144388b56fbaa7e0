package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"storefront/cms/internal/content"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across pages and sections using
// plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultPage {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'page'::text AS type, pg.id, pg.title,
				ts_headline('english', coalesce(pg.meta_description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				pg.slug, ''::text AS category,
				ts_rank(pg.fts, %s) AS rank
			FROM pages pg
			WHERE pg.fts @@ %s`, tsQuery, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultSection {
		secWhere := "s.fts @@ " + tsQuery
		if q.Category != "" {
			secWhere += fmt.Sprintf(" AND s.category = $%d", len(args)+1)
			args = append(args, q.Category)
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'section'::text AS type, s.id, s.name AS title,
				ts_headline('english', coalesce(s.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				''::text AS slug, s.category,
				ts_rank(s.fts, %s) AS rank
			FROM sections s
			WHERE %s`, tsQuery, tsQuery, secWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	union := strings.Join(subQueries, " UNION ALL ")
	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub", union)
	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, slug, category
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, union, limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.Slug, &r.Category); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]PageRecord, []SectionRecord, error) {
	pageRows, err := p.db.QueryContext(ctx, `SELECT id, slug, title, meta_description, is_home, content FROM pages`)
	if err != nil {
		return nil, nil, fmt.Errorf("load pages: %w", err)
	}
	defer pageRows.Close()

	pages := make([]PageRecord, 0)
	for pageRows.Next() {
		var r PageRecord
		var raw []byte
		if err := pageRows.Scan(&r.ID, &r.Slug, &r.Title, &r.MetaDescription, &r.IsHome, &raw); err != nil {
			return nil, nil, fmt.Errorf("scan page: %w", err)
		}
		var doc content.Document
		if err := json.Unmarshal(raw, &doc); err == nil {
			r.Body = BlockText(doc.Blocks)
		}
		pages = append(pages, r)
	}
	if err := pageRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate pages: %w", err)
	}

	sectionRows, err := p.db.QueryContext(ctx, `SELECT id, name, description, category, blocks FROM sections`)
	if err != nil {
		return nil, nil, fmt.Errorf("load sections: %w", err)
	}
	defer sectionRows.Close()

	sections := make([]SectionRecord, 0)
	for sectionRows.Next() {
		var r SectionRecord
		var raw []byte
		if err := sectionRows.Scan(&r.ID, &r.Name, &r.Description, &r.Category, &raw); err != nil {
			return nil, nil, fmt.Errorf("scan section: %w", err)
		}
		var list []content.Block
		if err := json.Unmarshal(raw, &list); err == nil {
			r.Body = BlockText(list)
		}
		sections = append(sections, r)
	}
	if err := sectionRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate sections: %w", err)
	}

	return pages, sections, nil
}
