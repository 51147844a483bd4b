package search

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/michaekong/memocloud/pkg/memoire"
	"github.com/michaekong/memocloud/pkg/pagination"
)

func jsonUnmarshal(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}

// fakeSource serves records in pages of pageSize and fails on failAt (0 = never).
type fakeSource struct {
	mu        sync.Mutex
	records   []memoire.Memoire
	pageSize  int
	failAt    int
	calls     int
	orderings []string
	// afterPage runs once a page has been served.
	afterPage func(page int)
}

func newFakeSource(n, pageSize int, mut func(i int, m *memoire.Memoire)) *fakeSource {
	src := &fakeSource{pageSize: pageSize}
	for i := 1; i <= n; i++ {
		m := memoire.Memoire{ID: i, Title: "Memoire"}
		if mut != nil {
			mut(i, &m)
		}
		src.records = append(src.records, m)
	}
	return src
}

func (s *fakeSource) Listing(ordering string) pagination.PageFetcher[memoire.Memoire] {
	s.mu.Lock()
	s.orderings = append(s.orderings, ordering)
	s.mu.Unlock()

	return pagination.PageFetcherFunc[memoire.Memoire](func(ctx context.Context, page int) ([]memoire.Memoire, bool, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls++
		if page == s.failAt {
			return nil, false, errors.New("boom")
		}
		start := (page - 1) * s.pageSize
		if start >= len(s.records) {
			return nil, false, nil
		}
		end := start + s.pageSize
		if end > len(s.records) {
			end = len(s.records)
		}
		if s.afterPage != nil {
			s.afterPage(page)
		}
		return s.records[start:end], end < len(s.records), nil
	})
}

func (s *fakeSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
