// Package search indexes pages and library sections for the admin search box.
package search

import (
	"sort"
	"strings"

	"storefront/cms/internal/content"
	"storefront/cms/internal/store"
)

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultPage    ResultType = "page"
	ResultSection ResultType = "section"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	Slug     string     `json:"slug,omitempty"`
	Category string     `json:"category,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Category   string
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Backend string   `json:"backend"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexPages(pages []PageRecord) error
	IndexSections(sections []SectionRecord) error
	DeletePage(id string) error
	DeleteSection(id string) error
}

// Backend is a search engine that is both queried and fed.
type Backend interface {
	Searcher
	Indexer
}

// PageRecord is the data we index for a page.
type PageRecord struct {
	ID              string `json:"id"`
	Slug            string `json:"slug"`
	Title           string `json:"title"`
	MetaDescription string `json:"metaDescription"`
	Body            string `json:"body"`
	IsHome          bool   `json:"isHome"`
}

// SectionRecord is the data we index for a section.
type SectionRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Body        string `json:"body"`
}

func NewPageRecord(p store.Page) PageRecord {
	return PageRecord{
		ID:              p.ID,
		Slug:            p.Slug,
		Title:           p.Title,
		MetaDescription: p.MetaDescription,
		Body:            BlockText(p.Content.Blocks),
		IsHome:          p.IsHome,
	}
}

func NewSectionRecord(s content.Section) SectionRecord {
	return SectionRecord{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Category:    s.Category,
		Body:        BlockText(s.Blocks),
	}
}

// BlockText flattens the string values of every block's data into one
// searchable body. Map keys are visited in sorted order so the output is
// stable.
func BlockText(list []content.Block) string {
	var parts []string
	for _, b := range list {
		parts = collectStrings(b.Data, parts)
	}
	return strings.Join(parts, " ")
}

func collectStrings(v any, out []string) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" && !looksLikePath(s) {
			out = append(out, s)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = collectStrings(t[k], out)
		}
	case []any:
		for _, item := range t {
			out = collectStrings(item, out)
		}
	}
	return out
}

func looksLikePath(s string) bool {
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
