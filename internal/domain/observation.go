package domain

import "time"

// Canonical column names of the normalized table. Source files use a mix of
// historical spellings (see the rename map in normalize.go); everything
// downstream of the Normalizer speaks only these names.
const (
	ColCountry       = "country"
	ColProvinceState = "province_state"
	ColDate          = "date"
	ColLastUpdate    = "last_update"
	ColConfirmed     = "confirmed"
	ColDeaths        = "deaths"
	ColRecovered     = "recovered"
	ColLat           = "lat"
	ColLon           = "lon"
)

// CanonicalColumns lists the normalized schema in stable order.
var CanonicalColumns = []string{
	ColCountry, ColProvinceState, ColDate, ColLastUpdate,
	ColConfirmed, ColDeaths, ColRecovered, ColLat, ColLon,
}

// RawTable is the concatenated, un-normalized CSV corpus. Rows keep their
// source header names; a key absent from a row's map means the value was
// missing in that file, which is distinct from an empty string.
type RawTable struct {
	Columns []string
	Rows    []map[string]string
}

// Observation is one normalized row of the dataset.
//
// The three count fields are always defined: missing or non-numeric source
// values become 0 by policy, never a sentinel. Dates use the zero time.Time
// as the "unparseable" sentinel. Coordinates are pointers because absence
// must stay distinguishable from the legitimate coordinate 0.
type Observation struct {
	Country       string    `json:"country"`
	ProvinceState string    `json:"province_state"`
	Date          time.Time `json:"date"`
	LastUpdate    time.Time `json:"last_update"`
	Confirmed     int64     `json:"confirmed"`
	Deaths        int64     `json:"deaths"`
	Recovered     int64     `json:"recovered"`
	Lat           *float64  `json:"lat,omitempty"`
	Lon           *float64  `json:"lon,omitempty"`
}

// HasDate reports whether the observation date parsed successfully.
func (o Observation) HasDate() bool { return !o.Date.IsZero() }

// HasGeo reports whether both coordinates are present.
func (o Observation) HasGeo() bool { return o.Lat != nil && o.Lon != nil }

// Table is the normalized dataset held in memory for the process lifetime.
type Table struct {
	Observations []Observation
	LoadedAt     time.Time
}

// CountrySummary aggregates all observations of one country at the latest
// date present in the dataset.
type CountrySummary struct {
	Country   string `json:"country"`
	Confirmed int64  `json:"confirmed"`
	Deaths    int64  `json:"deaths"`
	Recovered int64  `json:"recovered"`
}

// DatePoint is one step of the global time series: counts summed over every
// country and province on that date.
type DatePoint struct {
	Date      time.Time `json:"date"`
	Confirmed int64     `json:"confirmed"`
	Deaths    int64     `json:"deaths"`
	Recovered int64     `json:"recovered"`
}

// CountryDetailRow aggregates one country's observations by date and
// province/state.
type CountryDetailRow struct {
	Date          time.Time `json:"date"`
	ProvinceState string    `json:"province_state"`
	Confirmed     int64     `json:"confirmed"`
	Deaths        int64     `json:"deaths"`
	Recovered     int64     `json:"recovered"`
}

// Totals are the dataset-wide grand totals shown on the dashboard header.
type Totals struct {
	Confirmed int64 `json:"confirmed"`
	Deaths    int64 `json:"deaths"`
	Recovered int64 `json:"recovered"`
}
