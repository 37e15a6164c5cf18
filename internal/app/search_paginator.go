package app

import (
	"context"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/yourusername/tubequeue/internal/domain"
)

// SearchSource runs ranked queries off the consumer thread. The fetch
// coordinator implements it with its bounded pool and session cache.
type SearchSource interface {
	SearchPage(ctx context.Context, query string, limit int) ([]domain.SearchResultEntry, error)
}

// SearchPaginator retrieves ranked results incrementally. The service
// only supports "give me the top N", so loading more re-queries with a
// larger N and returns the set difference against the ids already
// seen. Running out of results yields an empty delta, never an error.
type SearchPaginator struct {
	source SearchSource
	cfg    domain.SearchConfig

	mu      sync.Mutex
	query   string
	seen    map[string]bool
	results []domain.SearchResultEntry
}

// NewSearchPaginator creates a paginator with no active query
func NewSearchPaginator(source SearchSource, cfg domain.SearchConfig) *SearchPaginator {
	return &SearchPaginator{
		source: source,
		cfg:    cfg,
	}
}

// Start begins a fresh result set for a query, discarding any prior
// session, and returns the initial page.
func (sp *SearchPaginator) Start(ctx context.Context, query string) ([]domain.SearchResultEntry, error) {
	entries, err := sp.source.SearchPage(ctx, query, sp.cfg.InitialResults)
	if err != nil {
		return nil, err
	}

	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.query = query
	sp.seen = make(map[string]bool, len(entries))
	sp.results = nil
	fresh := sp.absorb(entries, len(entries))
	return fresh, nil
}

// LoadMore fetches the next page of previously unseen entries, capped
// at one page's worth.
func (sp *SearchPaginator) LoadMore(ctx context.Context) ([]domain.SearchResultEntry, error) {
	sp.mu.Lock()
	query := sp.query
	want := len(sp.seen) + sp.cfg.PageSize
	sp.mu.Unlock()

	if query == "" {
		return nil, nil
	}

	entries, err := sp.source.SearchPage(ctx, query, want)
	if err != nil {
		return nil, err
	}

	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.absorb(entries, sp.cfg.PageSize), nil
}

// absorb records unseen entries into the session and returns them, at
// most cap many. Caller holds the lock.
func (sp *SearchPaginator) absorb(entries []domain.SearchResultEntry, limit int) []domain.SearchResultEntry {
	fresh := make([]domain.SearchResultEntry, 0, limit)
	for _, e := range entries {
		if len(fresh) >= limit {
			break
		}
		if e.ID == "" || sp.seen[e.ID] {
			continue
		}
		sp.seen[e.ID] = true
		sp.results = append(sp.results, e)
		fresh = append(fresh, e)
	}
	return fresh
}

// Results returns everything accumulated so far, in rank order
func (sp *SearchPaginator) Results() []domain.SearchResultEntry {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	out := make([]domain.SearchResultEntry, len(sp.results))
	copy(out, sp.results)
	return out
}

// Refine filters the accumulated results by a case-insensitive
// substring over title and uploader. Purely local, no fetch.
func (sp *SearchPaginator) Refine(substr string) []domain.SearchResultEntry {
	needle := strings.ToLower(strings.TrimSpace(substr))
	all := sp.Results()
	if needle == "" {
		return all
	}
	return lo.Filter(all, func(e domain.SearchResultEntry, _ int) bool {
		return strings.Contains(strings.ToLower(e.Title), needle) ||
			strings.Contains(strings.ToLower(e.Uploader), needle)
	})
}

// Query returns the active query, empty when no session started
func (sp *SearchPaginator) Query() string {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.query
}
