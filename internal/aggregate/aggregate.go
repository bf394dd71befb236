// Package aggregate computes the derived views served to the presentation
// layer: latest-snapshot-by-country, global time series, per-country detail,
// and top-N rankings.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/covid-data-service/internal/domain"
)

// DefaultTopN is the ranking size when the caller does not specify one.
const DefaultTopN = 10

type counts struct {
	confirmed int64
	deaths    int64
	recovered int64
}

func (c *counts) add(o domain.Observation) {
	c.confirmed += o.Confirmed
	c.deaths += o.Deaths
	c.recovered += o.Recovered
}

// BySnapshot aggregates the table into one row per country at the most
// recent date present anywhere in the dataset, sorted by confirmed
// descending (country ascending on ties).
//
// The filter uses the single global maximum date, not each country's own
// maximum: a country whose feed lags the others under-reports in the
// snapshot. Known limitation, kept to match the source data's semantics.
// When no row has a parsed date the filter is skipped and the whole table
// aggregates.
func BySnapshot(t domain.Table) []domain.CountrySummary {
	latest := maxDate(t)

	byCountry := make(map[string]*counts)
	for _, o := range t.Observations {
		if !latest.IsZero() && !o.Date.Equal(latest) {
			continue
		}
		c := byCountry[o.Country]
		if c == nil {
			c = &counts{}
			byCountry[o.Country] = c
		}
		c.add(o)
	}

	out := make([]domain.CountrySummary, 0, len(byCountry))
	for country, c := range byCountry {
		out = append(out, domain.CountrySummary{
			Country:   country,
			Confirmed: c.confirmed,
			Deaths:    c.deaths,
			Recovered: c.recovered,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confirmed != out[j].Confirmed {
			return out[i].Confirmed > out[j].Confirmed
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// ByDate aggregates all observations into the global time series, summing
// across every country and province per date, sorted ascending. Rows whose
// date failed to parse carry no position on the time axis and are excluded.
// Returns an empty (non-nil) slice when no row has a date.
func ByDate(t domain.Table) []domain.DatePoint {
	byDate := make(map[time.Time]*counts)
	for _, o := range t.Observations {
		if !o.HasDate() {
			continue
		}
		c := byDate[o.Date]
		if c == nil {
			c = &counts{}
			byDate[o.Date] = c
		}
		c.add(o)
	}

	out := make([]domain.DatePoint, 0, len(byDate))
	for date, c := range byDate {
		out = append(out, domain.DatePoint{
			Date:      date,
			Confirmed: c.confirmed,
			Deaths:    c.deaths,
			Recovered: c.recovered,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ByCountryDetail aggregates one country's observations by (date,
// province/state), matching the country case-insensitively, sorted by date
// ascending then confirmed descending within each date. An unknown country
// yields an empty slice, not an error: callers distinguish not-found from
// failure by emptiness.
func ByCountryDetail(t domain.Table, country string) []domain.CountryDetailRow {
	type key struct {
		date     time.Time
		province string
	}

	byKey := make(map[key]*counts)
	for _, o := range t.Observations {
		if !strings.EqualFold(o.Country, country) {
			continue
		}
		if !o.HasDate() {
			continue
		}
		k := key{date: o.Date, province: o.ProvinceState}
		c := byKey[k]
		if c == nil {
			c = &counts{}
			byKey[k] = c
		}
		c.add(o)
	}

	out := make([]domain.CountryDetailRow, 0, len(byKey))
	for k, c := range byKey {
		out = append(out, domain.CountryDetailRow{
			Date:          k.date,
			ProvinceState: k.province,
			Confirmed:     c.confirmed,
			Deaths:        c.deaths,
			Recovered:     c.recovered,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Confirmed != out[j].Confirmed {
			return out[i].Confirmed > out[j].Confirmed
		}
		return out[i].ProvinceState < out[j].ProvinceState
	})
	return out
}

// maxDate returns the latest parsed date in the table, or the zero time when
// no row has one.
func maxDate(t domain.Table) time.Time {
	var latest time.Time
	for _, o := range t.Observations {
		if o.Date.After(latest) {
			latest = o.Date
		}
	}
	return latest
}

// GrandTotals sums a snapshot into the dashboard header totals.
func GrandTotals(summaries []domain.CountrySummary) domain.Totals {
	var t domain.Totals
	for _, s := range summaries {
		t.Confirmed += s.Confirmed
		t.Deaths += s.Deaths
		t.Recovered += s.Recovered
	}
	return t
}

// Ranker memoizes top-N slices per (summary-slice identity, n). Callers must
// treat cached summaries as immutable: memo entries are never invalidated on
// mutation, only evicted by LRU pressure.
type Ranker struct {
	memo *lruCache
}

// NewRanker creates a Ranker with a small memo.
func NewRanker(maxEntries int) *Ranker {
	if maxEntries <= 0 {
		maxEntries = 8
	}
	return &Ranker{memo: newLRUCache(maxEntries)}
}

// TopN returns the first n summaries in snapshot order (confirmed
// descending). n <= 0 falls back to DefaultTopN.
func (r *Ranker) TopN(summaries []domain.CountrySummary, n int) []domain.CountrySummary {
	if n <= 0 {
		n = DefaultTopN
	}

	// %p on a slice identifies its backing array, so a fresh snapshot from a
	// reloaded table never aliases a stale memo entry.
	memoKey := fmt.Sprintf("%p|confirmed|%d", summaries, n)
	if top, ok := r.memo.get(memoKey); ok {
		return top
	}

	if n > len(summaries) {
		n = len(summaries)
	}
	top := make([]domain.CountrySummary, n)
	copy(top, summaries[:n])

	r.memo.put(memoKey, top)
	return top
}
