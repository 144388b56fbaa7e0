package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/cms/internal/content"
	"storefront/cms/internal/store"
)

type fakeBackend struct {
	mu       sync.Mutex
	healthy  bool
	results  []Result
	err      error
	pages    []PageRecord
	sections []SectionRecord
	deleted  []string
}

func (f *fakeBackend) Healthy() bool { return f.healthy }

func (f *fakeBackend) Search(Query) ([]Result, int, error) {
	return f.results, len(f.results), f.err
}

func (f *fakeBackend) IndexPages(p []PageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, p...)
	return nil
}

func (f *fakeBackend) IndexSections(s []SectionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sections = append(f.sections, s...)
	return nil
}

func (f *fakeBackend) DeletePage(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) DeleteSection(id string) error { return f.DeletePage(id) }

func (f *fakeBackend) indexedPages() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pages)
}

type fakeLoader struct {
	pages    []PageRecord
	sections []SectionRecord
}

func (l fakeLoader) LoadAllRecords(context.Context) ([]PageRecord, []SectionRecord, error) {
	return l.pages, l.sections, nil
}

func TestSearchUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &fakeBackend{healthy: true, results: []Result{{Type: ResultPage, ID: "pg_1"}}}
	fallback := &fakeBackend{healthy: true, results: []Result{{Type: ResultPage, ID: "pg_fallback"}}}
	svc := NewService(primary, fallback, nil, nil)

	resp := svc.Search(Query{Text: "hello"})
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "pg_1", resp.Results[0].ID)
	assert.Equal(t, "meilisearch", resp.Backend)
}

func TestSearchFallsBackOnPrimaryError(t *testing.T) {
	primary := &fakeBackend{healthy: true, err: errors.New("down")}
	fallback := &fakeBackend{healthy: true, results: []Result{{Type: ResultSection, ID: "sec_1"}}}
	resp := NewService(primary, fallback, nil, nil).Search(Query{Text: "hello"})
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "pgfts", resp.Backend)
}

func TestSearchWithoutBackendsReturnsEmptyList(t *testing.T) {
	resp := NewService(nil, nil, nil, nil).Search(Query{Text: "hello"})
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestIndexingSkipsUnhealthyPrimary(t *testing.T) {
	primary := &fakeBackend{healthy: false}
	svc := NewService(primary, nil, nil, nil)
	svc.IndexPage(PageRecord{ID: "pg_1"})
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, primary.indexedPages())
}

func TestIndexPageIsAsync(t *testing.T) {
	primary := &fakeBackend{healthy: true}
	svc := NewService(primary, nil, nil, nil)
	svc.IndexPage(PageRecord{ID: "pg_1"})
	assert.Eventually(t, func() bool { return primary.indexedPages() == 1 }, time.Second, 5*time.Millisecond)
}

func TestReindexAll(t *testing.T) {
	primary := &fakeBackend{healthy: true}
	loader := fakeLoader{pages: []PageRecord{{ID: "a"}, {ID: "b"}}, sections: []SectionRecord{{ID: "s"}}}
	pages, sections, err := NewService(primary, nil, loader, nil).ReindexAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	assert.Equal(t, 1, sections)
}

func TestBlockTextSkipsLinksAndIsStable(t *testing.T) {
	list := []content.Block{
		{Type: "hero", Data: map[string]any{"headline": "Spring", "ctaLink": "/shop", "subheadline": "Sale"}},
		{Type: "faq", Data: map[string]any{"items": []any{map[string]any{"question": "Ship?", "answer": "Yes"}}}},
	}
	assert.Equal(t, "Spring Sale Yes Ship?", BlockText(list))
}

func TestNewPageRecord(t *testing.T) {
	r := NewPageRecord(store.Page{ID: "pg_1", Slug: "home", Title: "Home", IsHome: true, Content: content.Document{
		Blocks: []content.Block{{Type: "richText", Data: map[string]any{"markdown": "hello world"}}},
	}})
	assert.Equal(t, "hello world", r.Body)
	assert.True(t, r.IsHome)
}
