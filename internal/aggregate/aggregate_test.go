package aggregate_test

import (
	"testing"
	"time"

	"github.com/couchcryptid/covid-data-service/internal/aggregate"
	"github.com/couchcryptid/covid-data-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2020, time.March, d, 0, 0, 0, 0, time.UTC)
}

func obs(country, province string, d time.Time, confirmed, deaths, recovered int64) domain.Observation {
	return domain.Observation{
		Country:       country,
		ProvinceState: province,
		Date:          d,
		Confirmed:     confirmed,
		Deaths:        deaths,
		Recovered:     recovered,
	}
}

func table(observations ...domain.Observation) domain.Table {
	return domain.Table{Observations: observations}
}

func TestBySnapshot_SumsProvincesOfOneCountry(t *testing.T) {
	tbl := table(
		obs("Italy", "", day(1), 100, 5, 10),
		obs("Italy", "Lombardy", day(1), 50, 2, 3),
	)

	got := aggregate.BySnapshot(tbl)

	want := []domain.CountrySummary{{Country: "Italy", Confirmed: 150, Deaths: 7, Recovered: 13}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestBySnapshot_FiltersToGlobalLatestDate(t *testing.T) {
	tbl := table(
		obs("Italy", "", day(1), 100, 0, 0),
		obs("Italy", "", day(2), 300, 0, 0),
		// France's feed lags: its day-1 row is excluded by the global max
		// date, so the country disappears from the snapshot entirely.
		obs("France", "", day(1), 999, 0, 0),
	)

	got := aggregate.BySnapshot(tbl)

	require.Len(t, got, 1)
	assert.Equal(t, "Italy", got[0].Country)
	assert.Equal(t, int64(300), got[0].Confirmed)
}

func TestBySnapshot_SortedByConfirmedDescending(t *testing.T) {
	tbl := table(
		obs("Italy", "", day(1), 150, 0, 0),
		obs("France", "", day(1), 300, 0, 0),
		obs("Spain", "", day(1), 220, 0, 0),
	)

	got := aggregate.BySnapshot(tbl)

	require.Len(t, got, 3)
	for i := 0; i < len(got)-1; i++ {
		assert.GreaterOrEqual(t, got[i].Confirmed, got[i+1].Confirmed)
	}
	assert.Equal(t, "France", got[0].Country)
}

func TestBySnapshot_NoDatesAggregatesWholeTable(t *testing.T) {
	tbl := table(
		obs("Italy", "", time.Time{}, 100, 1, 2),
		obs("Italy", "", time.Time{}, 50, 1, 2),
	)

	got := aggregate.BySnapshot(tbl)

	require.Len(t, got, 1)
	assert.Equal(t, int64(150), got[0].Confirmed)
}

func TestByDate_GlobalSeriesSortedAscending(t *testing.T) {
	tbl := table(
		obs("France", "", day(2), 30, 1, 0),
		obs("Italy", "", day(1), 100, 5, 10),
		obs("Italy", "Lombardy", day(2), 70, 2, 1),
		obs("France", "", day(1), 20, 0, 0),
	)

	got := aggregate.ByDate(tbl)

	want := []domain.DatePoint{
		{Date: day(1), Confirmed: 120, Deaths: 5, Recovered: 10},
		{Date: day(2), Confirmed: 100, Deaths: 3, Recovered: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestByDate_NoDatesYieldsEmptySeries(t *testing.T) {
	tbl := table(obs("Italy", "", time.Time{}, 100, 0, 0))

	got := aggregate.ByDate(tbl)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestByCountryDetail_CaseInsensitive(t *testing.T) {
	tbl := table(
		obs("Italy", "Lombardy", day(1), 100, 5, 10),
		obs("France", "", day(1), 20, 0, 0),
	)

	lower := aggregate.ByCountryDetail(tbl, "italy")
	upper := aggregate.ByCountryDetail(tbl, "ITALY")

	require.NotEmpty(t, lower)
	if diff := cmp.Diff(lower, upper); diff != "" {
		t.Fatalf("case sensitivity leak (-lower +upper):\n%s", diff)
	}
}

func TestByCountryDetail_OrderedByDateThenConfirmedDesc(t *testing.T) {
	tbl := table(
		obs("Italy", "Veneto", day(2), 40, 0, 0),
		obs("Italy", "Lombardy", day(2), 90, 0, 0),
		obs("Italy", "Lombardy", day(1), 50, 0, 0),
	)

	got := aggregate.ByCountryDetail(tbl, "Italy")

	require.Len(t, got, 3)
	assert.Equal(t, day(1), got[0].Date)
	assert.Equal(t, "Lombardy", got[1].ProvinceState)
	assert.Equal(t, "Veneto", got[2].ProvinceState)
}

func TestByCountryDetail_GroupsByDateAndProvince(t *testing.T) {
	tbl := table(
		obs("Italy", "Lombardy", day(1), 30, 1, 0),
		obs("Italy", "Lombardy", day(1), 20, 1, 2),
	)

	got := aggregate.ByCountryDetail(tbl, "Italy")

	require.Len(t, got, 1)
	assert.Equal(t, int64(50), got[0].Confirmed)
	assert.Equal(t, int64(2), got[0].Deaths)
}

func TestByCountryDetail_UnknownCountryIsEmptyNotError(t *testing.T) {
	tbl := table(obs("Italy", "", day(1), 100, 0, 0))

	got := aggregate.ByCountryDetail(tbl, "Nonexistent-Country-Xyz")

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGrandTotals(t *testing.T) {
	totals := aggregate.GrandTotals([]domain.CountrySummary{
		{Country: "France", Confirmed: 300, Deaths: 10, Recovered: 20},
		{Country: "Italy", Confirmed: 150, Deaths: 7, Recovered: 13},
	})

	assert.Equal(t, domain.Totals{Confirmed: 450, Deaths: 17, Recovered: 33}, totals)
}

func TestRanker_TopNTakesHeadOfSnapshotOrder(t *testing.T) {
	summaries := []domain.CountrySummary{
		{Country: "France", Confirmed: 300},
		{Country: "Italy", Confirmed: 150},
	}

	got := aggregate.NewRanker(8).TopN(summaries, 1)

	want := []domain.CountrySummary{{Country: "France", Confirmed: 300}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("top-n mismatch (-want +got):\n%s", diff)
	}
}

func TestRanker_DefaultsToTen(t *testing.T) {
	summaries := make([]domain.CountrySummary, 25)
	for i := range summaries {
		summaries[i] = domain.CountrySummary{Country: string(rune('A' + i)), Confirmed: int64(1000 - i)}
	}

	got := aggregate.NewRanker(8).TopN(summaries, 0)
	assert.Len(t, got, aggregate.DefaultTopN)
}

func TestRanker_NLargerThanSliceReturnsAll(t *testing.T) {
	summaries := []domain.CountrySummary{{Country: "Italy", Confirmed: 1}}
	got := aggregate.NewRanker(8).TopN(summaries, 10)
	assert.Len(t, got, 1)
}

func TestRanker_MemoizesPerSliceIdentity(t *testing.T) {
	r := aggregate.NewRanker(8)
	summaries := []domain.CountrySummary{
		{Country: "France", Confirmed: 300},
		{Country: "Italy", Confirmed: 150},
	}

	first := r.TopN(summaries, 2)
	second := r.TopN(summaries, 2)

	// Same backing array and n hit the memo: identical slice comes back.
	assert.Equal(t, &first[0], &second[0])

	// A different n is a distinct memo entry.
	assert.Len(t, r.TopN(summaries, 1), 1)
}
