// Package store holds the process-lifetime cache of the normalized table and
// its derived aggregates. Slots populate lazily on first request and are
// never individually invalidated; a new process (or Reset in tests) is the
// only refresh path.
package store

import (
	"sync"

	"github.com/couchcryptid/covid-data-service/internal/domain"
)

// Kind names a cache slot, used as the metrics label.
type Kind string

const (
	KindRaw       Kind = "raw"
	KindByCountry Kind = "by_country"
	KindByDate    Kind = "by_date"
)

// Store is the pipeline-owned cache. Each getter takes a build function that
// runs only on a miss; the result is built fully and then published under the
// slot's lock, so readers never observe partial state. Build errors are not
// cached: a failed load leaves the slot empty and the next request retries.
//
// Each slot has its own lock because aggregate builds call back into the raw
// slot.
type Store struct {
	rawMu sync.Mutex
	raw   *domain.Table

	byCountryMu sync.Mutex
	byCountry   []domain.CountrySummary

	byDateMu sync.Mutex
	byDate   []domain.DatePoint
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// Raw returns the cached normalized table, building it on first request.
// The second return reports whether this call was served from cache.
func (s *Store) Raw(build func() (domain.Table, error)) (domain.Table, bool, error) {
	s.rawMu.Lock()
	defer s.rawMu.Unlock()

	if s.raw != nil {
		return *s.raw, true, nil
	}
	tbl, err := build()
	if err != nil {
		return domain.Table{}, false, err
	}
	s.raw = &tbl
	return tbl, false, nil
}

// ByCountry returns the cached snapshot aggregate, building it on first request.
func (s *Store) ByCountry(build func() ([]domain.CountrySummary, error)) ([]domain.CountrySummary, bool, error) {
	s.byCountryMu.Lock()
	defer s.byCountryMu.Unlock()

	if s.byCountry != nil {
		return s.byCountry, true, nil
	}
	summaries, err := build()
	if err != nil {
		return nil, false, err
	}
	s.byCountry = summaries
	return summaries, false, nil
}

// ByDate returns the cached global time series, building it on first request.
func (s *Store) ByDate(build func() ([]domain.DatePoint, error)) ([]domain.DatePoint, bool, error) {
	s.byDateMu.Lock()
	defer s.byDateMu.Unlock()

	if s.byDate != nil {
		return s.byDate, true, nil
	}
	series, err := build()
	if err != nil {
		return nil, false, err
	}
	s.byDate = series
	return series, false, nil
}

// Loaded reports whether the raw table has been populated.
func (s *Store) Loaded() bool {
	s.rawMu.Lock()
	defer s.rawMu.Unlock()
	return s.raw != nil
}

// Reset clears every slot. Exists for tests; production code relies on
// process restart to pick up new source data.
func (s *Store) Reset() {
	s.rawMu.Lock()
	s.raw = nil
	s.rawMu.Unlock()

	s.byCountryMu.Lock()
	s.byCountry = nil
	s.byCountryMu.Unlock()

	s.byDateMu.Lock()
	s.byDate = nil
	s.byDateMu.Unlock()
}
