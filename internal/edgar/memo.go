package edgar

import (
	"context"
	"sync"

	"github.com/sells-group/edgar-recon/internal/model"
)

type memoKey struct {
	cik     int64
	concept model.Concept
}

// Memo caches Filings results per (entity, concept) pair so repeated
// lookups across metrics, years, and alternative concepts hit the
// network at most once. Errors are not cached. Safe for concurrent use.
type Memo struct {
	next Provider

	mu    sync.Mutex
	cache map[memoKey][]model.FilingRecord
}

// NewMemo wraps a Provider with a per-pair cache.
func NewMemo(next Provider) *Memo {
	return &Memo{next: next, cache: make(map[memoKey][]model.FilingRecord)}
}

// Filings implements Provider.
func (m *Memo) Filings(ctx context.Context, cik int64, concept model.Concept) ([]model.FilingRecord, error) {
	key := memoKey{cik: cik, concept: concept}

	m.mu.Lock()
	if recs, ok := m.cache[key]; ok {
		m.mu.Unlock()
		return recs, nil
	}
	m.mu.Unlock()

	recs, err := m.next.Filings(ctx, cik, concept)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[key] = recs
	m.mu.Unlock()
	return recs, nil
}

// Len reports the number of cached pairs.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}
