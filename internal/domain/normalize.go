package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// renameMap translates the column spellings seen across dataset mirrors to
// the canonical schema. Already-canonical (lowercase) names map to themselves
// via canonicalColumn, so normalization is stable under repetition.
var renameMap = map[string]string{
	"Province/State": ColProvinceState,
	"Country/Region": ColCountry,
	"ObservationDate": ColDate,
	"Last Update":    ColLastUpdate,
	"Confirmed":      ColConfirmed,
	"Deaths":         ColDeaths,
	"Recovered":      ColRecovered,
	"Latitude":       ColLat,
	"Longitude":      ColLon,
}

var canonicalSet = func() map[string]bool {
	s := make(map[string]bool, len(CanonicalColumns))
	for _, c := range CanonicalColumns {
		s[c] = true
	}
	return s
}()

// whitespaceRe collapses internal whitespace runs in country names,
// e.g. "Korea,  South" -> "Korea, South".
var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeStats counts the lossy fallbacks applied during normalization.
// These are policy, not errors, but they are worth surfacing as metrics.
type NormalizeStats struct {
	CountDefaults int // count values that fell back to 0
	DateFallbacks int // date/last_update values that became the sentinel
	GeoDropped    int // lat/lon values dropped as unparseable
}

// Normalize converts the raw table to the canonical schema: header trim and
// rename, lenient date parsing, count coercion with default 0, country text
// cleanup, province default, and coordinate parsing with absent-on-failure.
//
// Renaming runs before any value coercion because coercion is keyed on
// canonical names. Every per-value failure takes the documented fallback;
// Normalize itself never fails.
func Normalize(raw RawTable) (Table, NormalizeStats) {
	var stats NormalizeStats

	// Map each raw column to its canonical name once. Unrecognized columns
	// carry no canonical meaning and are ignored.
	colMap := make(map[string]string, len(raw.Columns))
	for _, col := range raw.Columns {
		if canon := canonicalColumn(col); canon != "" {
			colMap[col] = canon
		}
	}

	obs := make([]Observation, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		// Re-key the row by canonical name. Absent keys stay absent.
		canonRow := make(map[string]string, len(row))
		for col, val := range row {
			if canon, ok := colMap[col]; ok {
				canonRow[canon] = val
			} else if canon := canonicalColumn(col); canon != "" {
				canonRow[canon] = val
			}
		}

		o := Observation{
			Country:       cleanCountry(canonRow[ColCountry]),
			ProvinceState: strings.TrimSpace(canonRow[ColProvinceState]),
			Date:          parseDateOrZero(canonRow[ColDate], &stats),
			LastUpdate:    parseDateOrZero(canonRow[ColLastUpdate], &stats),
			Confirmed:     parseCountOrZero(canonRow, ColConfirmed, &stats),
			Deaths:        parseCountOrZero(canonRow, ColDeaths, &stats),
			Recovered:     parseCountOrZero(canonRow, ColRecovered, &stats),
			Lat:           parseGeo(canonRow, ColLat, &stats),
			Lon:           parseGeo(canonRow, ColLon, &stats),
		}
		obs = append(obs, o)
	}

	return Table{Observations: obs, LoadedAt: clock.Now()}, stats
}

// canonicalColumn maps a raw header to its canonical name, or "" when the
// column is not part of the logical schema.
func canonicalColumn(col string) string {
	col = strings.TrimSpace(col)
	if canon, ok := renameMap[col]; ok {
		return canon
	}
	if canonicalSet[strings.ToLower(col)] {
		return strings.ToLower(col)
	}
	return ""
}

func cleanCountry(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// parseDateOrZero parses heterogeneous date spellings ("01/22/2020",
// "2020-02-01 23:43:02", RFC3339, ...) into UTC. Unparseable or missing
// values become the zero-time sentinel, never an error.
func parseDateOrZero(s string, stats *NormalizeStats) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		stats.DateFallbacks++
		return time.Time{}
	}
	return t.UTC()
}

// parseCountOrZero coerces a count column to an integer. Missing keys,
// empty strings, and non-numeric values all default to 0; downstream
// aggregation depends on this lossy-fill policy. Columns absent from
// the source entirely are synthesized as all-zero by the same path.
func parseCountOrZero(row map[string]string, col string, stats *NormalizeStats) int64 {
	s, ok := row[col]
	if !ok {
		return 0
	}
	s = strings.TrimSpace(s)
	if s == "" {
		stats.CountDefaults++
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	// Some mirrors write counts as floats ("100.0").
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	stats.CountDefaults++
	return 0
}

// parseGeo coerces a coordinate to a float pointer. Failure means absent,
// never 0: zero is a legitimate coordinate.
func parseGeo(row map[string]string, col string, stats *NormalizeStats) *float64 {
	s, ok := row[col]
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		stats.GeoDropped++
		return nil
	}
	return &f
}

// ToRaw renders the table back into canonical-schema raw rows. Used by the
// export tooling and by tests asserting that normalization is a no-op over
// already-normalized data.
func (t Table) ToRaw() RawTable {
	rows := make([]map[string]string, 0, len(t.Observations))
	for _, o := range t.Observations {
		row := map[string]string{
			ColCountry:       o.Country,
			ColProvinceState: o.ProvinceState,
			ColConfirmed:     strconv.FormatInt(o.Confirmed, 10),
			ColDeaths:        strconv.FormatInt(o.Deaths, 10),
			ColRecovered:     strconv.FormatInt(o.Recovered, 10),
		}
		if o.HasDate() {
			row[ColDate] = o.Date.UTC().Format("2006-01-02 15:04:05")
		}
		if !o.LastUpdate.IsZero() {
			row[ColLastUpdate] = o.LastUpdate.UTC().Format("2006-01-02 15:04:05")
		}
		if o.Lat != nil {
			row[ColLat] = strconv.FormatFloat(*o.Lat, 'f', -1, 64)
		}
		if o.Lon != nil {
			row[ColLon] = strconv.FormatFloat(*o.Lon, 'f', -1, 64)
		}
		rows = append(rows, row)
	}
	return RawTable{Columns: append([]string(nil), CanonicalColumns...), Rows: rows}
}
