// Package pipeline orchestrates the dataset flow: fetch the CSV corpus into
// the working directory, read and normalize it, cache the table and its
// aggregates, and expose the read operations consumed by the presentation
// layer.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/covid-data-service/internal/aggregate"
	"github.com/couchcryptid/covid-data-service/internal/dataset"
	"github.com/couchcryptid/covid-data-service/internal/domain"
	"github.com/couchcryptid/covid-data-service/internal/observability"
	"github.com/couchcryptid/covid-data-service/internal/store"
)

// DataEnsurer materializes the dataset in the working directory.
type DataEnsurer interface {
	EnsureData(ctx context.Context, dataDir string) error
}

// TableReader reads the CSV corpus back as one raw table.
type TableReader interface {
	ReadAll(dataDir string) (domain.RawTable, dataset.ReadStats, error)
}

// Exporter publishes normalized observations to an external sink. Optional.
type Exporter interface {
	ExportObservations(ctx context.Context, obs []domain.Observation) error
}

// Options configure a Pipeline.
type Options struct {
	DataDir       string
	TopN          int // default ranking size, DefaultTopN when <= 0
	GeoPointLimit int // map feed safety cap, 5000 when <= 0
}

// Pipeline owns the cache and serves the aggregated views. All population is
// lazy: the first request (or an explicit Warm) triggers fetch, read, and
// normalize.
type Pipeline struct {
	fetcher  DataEnsurer
	reader   TableReader
	store    *store.Store
	ranker   *aggregate.Ranker
	exporter Exporter
	logger   *slog.Logger
	metrics  *observability.Metrics
	opts     Options
	ready    atomic.Bool
}

// New creates a Pipeline. Pass a nil exporter to disable observation export.
func New(fetcher DataEnsurer, reader TableReader, st *store.Store, exporter Exporter, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.TopN <= 0 {
		opts.TopN = aggregate.DefaultTopN
	}
	if opts.GeoPointLimit <= 0 {
		opts.GeoPointLimit = 5000
	}
	return &Pipeline{
		fetcher:  fetcher,
		reader:   reader,
		store:    st,
		ranker:   aggregate.NewRanker(8),
		exporter: exporter,
		logger:   logger,
		metrics:  metrics,
		opts:     opts,
	}
}

// Raw returns the full normalized table, loading the dataset on first call.
// The map-rendering collaborator consumes this for row-level lat/lon/date.
func (p *Pipeline) Raw(ctx context.Context) (domain.Table, error) {
	tbl, hit, err := p.store.Raw(func() (domain.Table, error) {
		return p.loadTable(ctx)
	})
	p.recordCacheLoad(store.KindRaw, hit, err)
	return tbl, err
}

// Summary returns the by-country snapshot and the global time series.
func (p *Pipeline) Summary(ctx context.Context) ([]domain.CountrySummary, []domain.DatePoint, error) {
	summaries, err := p.byCountry(ctx)
	if err != nil {
		return nil, nil, err
	}

	series, hit, err := p.store.ByDate(func() ([]domain.DatePoint, error) {
		tbl, err := p.Raw(ctx)
		if err != nil {
			return nil, err
		}
		return timeAggregate(p.metrics, func() []domain.DatePoint { return aggregate.ByDate(tbl) }), nil
	})
	p.recordCacheLoad(store.KindByDate, hit, err)
	if err != nil {
		return nil, nil, err
	}

	return summaries, series, nil
}

// CountryDetail returns one country's per-date, per-province aggregation.
// An unknown country yields an empty slice, never an error.
func (p *Pipeline) CountryDetail(ctx context.Context, country string) ([]domain.CountryDetailRow, error) {
	tbl, err := p.Raw(ctx)
	if err != nil {
		return nil, err
	}
	return aggregate.ByCountryDetail(tbl, country), nil
}

// TopN returns the n highest-confirmed countries of the snapshot. n <= 0
// falls back to the configured default.
func (p *Pipeline) TopN(ctx context.Context, n int) ([]domain.CountrySummary, error) {
	if n <= 0 {
		n = p.opts.TopN
	}
	summaries, err := p.byCountry(ctx)
	if err != nil {
		return nil, err
	}
	return p.ranker.TopN(summaries, n), nil
}

// GeoPoints returns observations at the latest date that carry both
// coordinates, capped at the configured limit. This is the map widget's feed.
func (p *Pipeline) GeoPoints(ctx context.Context) ([]domain.Observation, error) {
	tbl, err := p.Raw(ctx)
	if err != nil {
		return nil, err
	}

	var latest time.Time
	for _, o := range tbl.Observations {
		if o.Date.After(latest) {
			latest = o.Date
		}
	}

	points := make([]domain.Observation, 0)
	for _, o := range tbl.Observations {
		if !latest.IsZero() && !o.Date.Equal(latest) {
			continue
		}
		if !o.HasGeo() {
			continue
		}
		points = append(points, o)
		if len(points) >= p.opts.GeoPointLimit {
			break
		}
	}
	return points, nil
}

// Warm loads the dataset and both aggregates up front, then exports the
// observations when an exporter is configured. Lazy loads triggered by
// requests never export; only Warm does.
func (p *Pipeline) Warm(ctx context.Context) error {
	if _, _, err := p.Summary(ctx); err != nil {
		return err
	}

	if p.exporter != nil {
		tbl, err := p.Raw(ctx)
		if err != nil {
			return err
		}
		if err := p.exporter.ExportObservations(ctx, tbl.Observations); err != nil {
			// Export is best-effort enrichment of downstream consumers; the
			// dataset itself is served regardless.
			p.logger.Error("observation export failed", "error", err)
		} else {
			p.metrics.ObservationsExported.Add(float64(len(tbl.Observations)))
			p.logger.Info("observations exported", "count", len(tbl.Observations))
		}
	}
	return nil
}

// CheckReadiness returns nil once the dataset has loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

// Reset clears every cached view. Exists for tests.
func (p *Pipeline) Reset() {
	p.store.Reset()
	p.ready.Store(false)
	p.metrics.DatasetReady.Set(0)
}

// loadTable runs the full fetch-read-normalize sequence. Called only on a
// raw-slot miss; the store guarantees the result publishes atomically.
func (p *Pipeline) loadTable(ctx context.Context) (domain.Table, error) {
	start := time.Now()
	if err := p.fetcher.EnsureData(ctx, p.opts.DataDir); err != nil {
		p.metrics.FetchRequests.WithLabelValues("error").Inc()
		return domain.Table{}, err
	}
	p.metrics.FetchRequests.WithLabelValues("success").Inc()
	p.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	raw, readStats, err := p.reader.ReadAll(p.opts.DataDir)
	if err != nil {
		return domain.Table{}, err
	}
	p.metrics.FilesParsed.Add(float64(readStats.FilesParsed))
	p.metrics.FilesSkipped.Add(float64(readStats.FilesSkipped))
	p.metrics.RowsIngested.Add(float64(readStats.Rows))

	tbl, normStats := domain.Normalize(raw)
	p.metrics.CountDefaults.Add(float64(normStats.CountDefaults))
	p.metrics.DateFallbacks.Add(float64(normStats.DateFallbacks))
	p.metrics.GeoDropped.Add(float64(normStats.GeoDropped))

	p.ready.Store(true)
	p.metrics.DatasetReady.Set(1)
	p.logger.Info("dataset loaded",
		"rows", len(tbl.Observations),
		"files_parsed", readStats.FilesParsed,
		"files_skipped", readStats.FilesSkipped,
		"count_defaults", normStats.CountDefaults,
		"date_fallbacks", normStats.DateFallbacks,
		"geo_dropped", normStats.GeoDropped,
	)
	return tbl, nil
}

func (p *Pipeline) byCountry(ctx context.Context) ([]domain.CountrySummary, error) {
	summaries, hit, err := p.store.ByCountry(func() ([]domain.CountrySummary, error) {
		tbl, err := p.Raw(ctx)
		if err != nil {
			return nil, err
		}
		return timeAggregate(p.metrics, func() []domain.CountrySummary { return aggregate.BySnapshot(tbl) }), nil
	})
	p.recordCacheLoad(store.KindByCountry, hit, err)
	return summaries, err
}

// timeAggregate runs an aggregate computation under the duration histogram.
func timeAggregate[T any](m *observability.Metrics, compute func() T) T {
	start := time.Now()
	out := compute()
	m.AggregateDuration.Observe(time.Since(start).Seconds())
	return out
}

func (p *Pipeline) recordCacheLoad(kind store.Kind, hit bool, err error) {
	if err != nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	p.metrics.CacheLoads.WithLabelValues(string(kind), result).Inc()
}
