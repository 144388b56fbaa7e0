package search

import (
	"context"
	"log/slog"

	"storefront/cms/internal/logfields"
)

// RecordLoader reads every searchable record for a full reindex.
type RecordLoader interface {
	LoadAllRecords(ctx context.Context) ([]PageRecord, []SectionRecord, error)
}

// Service is the facade that tries the primary engine first and falls back
// to Postgres FTS.
type Service struct {
	primary  Backend
	fallback Searcher
	loader   RecordLoader
	logger   *slog.Logger
}

// NewService creates a search service. primary may be nil if Meilisearch is
// not configured; fallback may be nil when there is no database.
func NewService(primary Backend, fallback Searcher, loader RecordLoader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{primary: primary, fallback: fallback, loader: loader, logger: logger.With(slog.String("component", "search"))}
}

func (s *Service) primaryUp() bool {
	return s.primary != nil && s.primary.Healthy()
}

// Search tries the primary engine if healthy, otherwise falls back.
func (s *Service) Search(q Query) Response {
	if s.primaryUp() {
		results, total, err := s.primary.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: "meilisearch"}
		}
		s.logger.Warn("meilisearch error, falling back to pgfts", logfields.Error(err))
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text, Backend: "none"}
	}
	results, total, err := s.fallback.Search(q)
	if err != nil {
		s.logger.Error("pgfts error", logfields.Error(err))
		return Response{Results: []Result{}, Total: 0, Query: q.Text, Backend: "pgfts"}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: "pgfts"}
}

// IndexPage indexes a page (fire-and-forget).
func (s *Service) IndexPage(r PageRecord) {
	if !s.primaryUp() {
		return
	}
	go func() {
		if err := s.primary.IndexPages([]PageRecord{r}); err != nil {
			s.logger.Warn("index page", logfields.PageID(r.ID), logfields.Error(err))
		}
	}()
}

// IndexSection indexes a section (fire-and-forget).
func (s *Service) IndexSection(r SectionRecord) {
	if !s.primaryUp() {
		return
	}
	go func() {
		if err := s.primary.IndexSections([]SectionRecord{r}); err != nil {
			s.logger.Warn("index section", logfields.SectionID(r.ID), logfields.Error(err))
		}
	}()
}

// DeletePage removes a page from the search index (fire-and-forget).
func (s *Service) DeletePage(id string) {
	if !s.primaryUp() {
		return
	}
	go func() {
		if err := s.primary.DeletePage(id); err != nil {
			s.logger.Warn("delete page from index", logfields.PageID(id), logfields.Error(err))
		}
	}()
}

// DeleteSection removes a section from the search index (fire-and-forget).
func (s *Service) DeleteSection(id string) {
	if !s.primaryUp() {
		return
	}
	go func() {
		if err := s.primary.DeleteSection(id); err != nil {
			s.logger.Warn("delete section from index", logfields.SectionID(id), logfields.Error(err))
		}
	}()
}

// ReindexAll loads every page and section and pushes them to the primary
// engine synchronously. It returns the counts pushed.
func (s *Service) ReindexAll(ctx context.Context) (pages int, sections int, err error) {
	if !s.primaryUp() || s.loader == nil {
		return 0, 0, nil
	}
	pageRecords, sectionRecords, err := s.loader.LoadAllRecords(ctx)
	if err != nil {
		return 0, 0, err
	}
	if err := s.primary.IndexPages(pageRecords); err != nil {
		return 0, 0, err
	}
	if err := s.primary.IndexSections(sectionRecords); err != nil {
		return len(pageRecords), 0, err
	}
	return len(pageRecords), len(sectionRecords), nil
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
