package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/covid-data-service/internal/adapter/httpadapter"
	"github.com/couchcryptid/covid-data-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fake service ---

type fakeService struct {
	summaries []domain.CountrySummary
	series    []domain.DatePoint
	detail    map[string][]domain.CountryDetailRow
	geo       []domain.Observation
	err       error
	ready     bool
}

func (f *fakeService) Summary(context.Context) ([]domain.CountrySummary, []domain.DatePoint, error) {
	return f.summaries, f.series, f.err
}

func (f *fakeService) CountryDetail(_ context.Context, country string) ([]domain.CountryDetailRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detail[country], nil
}

func (f *fakeService) TopN(_ context.Context, n int) ([]domain.CountrySummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	if n <= 0 || n > len(f.summaries) {
		n = len(f.summaries)
	}
	return f.summaries[:n], nil
}

func (f *fakeService) GeoPoints(context.Context) ([]domain.Observation, error) {
	return f.geo, f.err
}

func (f *fakeService) CheckReadiness(context.Context) error {
	if !f.ready {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

func newTestServer(svc *fakeService) *httpadapter.Server {
	return httpadapter.NewServer(":0", svc, slog.Default())
}

func get(t *testing.T, srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func day(d int) time.Time {
	return time.Date(2020, time.March, d, 0, 0, 0, 0, time.UTC)
}

// --- tests ---

func TestSummaryEndpoint(t *testing.T) {
	svc := &fakeService{
		summaries: []domain.CountrySummary{
			{Country: "France", Confirmed: 300, Deaths: 10, Recovered: 20},
			{Country: "Italy", Confirmed: 150, Deaths: 7, Recovered: 13},
		},
		series: []domain.DatePoint{{Date: day(1), Confirmed: 450, Deaths: 17, Recovered: 33}},
	}

	rec := get(t, newTestServer(svc), "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		ByCountry  []domain.CountrySummary `json:"by_country"`
		Timeseries []domain.DatePoint      `json:"timeseries"`
		Totals     domain.Totals           `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.ByCountry, 2)
	assert.Len(t, body.Timeseries, 1)
	assert.Equal(t, domain.Totals{Confirmed: 450, Deaths: 17, Recovered: 33}, body.Totals)
}

func TestSummaryEndpoint_LoadFailureIs500(t *testing.T) {
	svc := &fakeService{err: errors.New("fetch failed")}

	rec := get(t, newTestServer(svc), "/api/summary")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCountryDetailEndpoint(t *testing.T) {
	svc := &fakeService{
		detail: map[string][]domain.CountryDetailRow{
			"italy": {
				{Date: day(1), ProvinceState: "Lombardy", Confirmed: 90, Deaths: 3, Recovered: 2},
				{Date: day(1), ProvinceState: "Veneto", Confirmed: 40, Deaths: 1, Recovered: 1},
			},
		},
	}

	rec := get(t, newTestServer(svc), "/api/countries/italy")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Country string                    `json:"country"`
		Rows    []domain.CountryDetailRow `json:"rows"`
		Totals  domain.Totals             `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "italy", body.Country)
	assert.Len(t, body.Rows, 2)
	assert.Equal(t, int64(130), body.Totals.Confirmed)
}

func TestCountryDetailEndpoint_EmptyIs404(t *testing.T) {
	rec := get(t, newTestServer(&fakeService{}), "/api/countries/atlantis")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "country not found")
}

func TestTopNEndpoint(t *testing.T) {
	svc := &fakeService{
		summaries: []domain.CountrySummary{
			{Country: "France", Confirmed: 300},
			{Country: "Italy", Confirmed: 150},
		},
	}
	srv := newTestServer(svc)

	rec := get(t, srv, "/api/top?n=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var top []domain.CountrySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &top))
	require.Len(t, top, 1)
	assert.Equal(t, "France", top[0].Country)
}

func TestTopNEndpoint_BadNIs400(t *testing.T) {
	srv := newTestServer(&fakeService{})
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/top?n=zero").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/top?n=-3").Code)
}

func TestGeoEndpoint(t *testing.T) {
	lat, lon := 45.47, 9.19
	svc := &fakeService{
		geo: []domain.Observation{{Country: "Italy", ProvinceState: "Lombardy", Date: day(1), Confirmed: 90, Lat: &lat, Lon: &lon}},
	}

	rec := get(t, newTestServer(svc), "/api/geo")
	require.Equal(t, http.StatusOK, rec.Code)

	var points []domain.Observation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 1)
	require.NotNil(t, points[0].Lat)
	assert.InEpsilon(t, 45.47, *points[0].Lat, 0.0001)
}

func TestHealthAndReadiness(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(svc)

	assert.Equal(t, http.StatusOK, get(t, srv, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/readyz").Code)

	svc.ready = true
	assert.Equal(t, http.StatusOK, get(t, srv, "/readyz").Code)
}
