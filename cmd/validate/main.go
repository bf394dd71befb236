// Command validate performs data integrity checks over a directory of
// COVID-19 daily report CSVs. It runs the same read and normalization path
// as the service and verifies parse rates, count sanity, snapshot ordering,
// and geographic completeness.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/covid-data-service/internal/aggregate"
	"github.com/couchcryptid/covid-data-service/internal/dataset"
	"github.com/couchcryptid/covid-data-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", "", "directory containing dataset CSV files")
	flag.Parse()

	if *dataDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dataDir); code != 0 {
		os.Exit(code)
	}
}

func run(dataDir string) int {
	fmt.Println("=== COVID Dataset Integrity Validation ===")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	raw, stats, err := dataset.NewReader(logger).ReadAll(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read data dir: %v\n", err)
		return 1
	}

	table, normStats := domain.Normalize(raw)

	phases := []*phase{
		validateParseRate(stats, normStats, len(table.Observations)),
		validateCounts(table),
		validateSnapshotOrdering(table),
		validateGeoCompleteness(table, normStats),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d CSV, %d observations (%d files parsed, %d skipped)\n",
		stats.Rows, len(table.Observations), stats.FilesParsed, stats.FilesSkipped)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Parse Rate ──
// Every CSV row must survive normalization, and fallback rates must stay low.

func validateParseRate(stats dataset.ReadStats, norm domain.NormalizeStats, observations int) *phase {
	p := &phase{name: "Phase 1: Parse Rate (CSV vs normalized)"}

	if stats.FilesSkipped > 0 {
		p.errorf("%d file(s) skipped as unreadable", stats.FilesSkipped)
	}
	if observations != stats.Rows {
		p.errorf("row count: read %d CSV rows, normalized %d observations", stats.Rows, observations)
	}
	if observations == 0 {
		p.errorf("no observations after normalization")
		return p
	}

	// More than 5% unparseable dates usually means a new source format.
	if rate := float64(norm.DateFallbacks) / float64(observations); rate > 0.05 {
		p.errorf("date fallback rate %.1f%% exceeds 5%% (%d of %d rows)", rate*100, norm.DateFallbacks, observations)
	}
	return p
}

// ── Phase 2: Count Sanity ──
// Cumulative counts are non-negative and deaths never exceed confirmed.

func validateCounts(table domain.Table) *phase {
	p := &phase{name: "Phase 2: Count Sanity (non-negative)"}

	for i, o := range table.Observations {
		if o.Confirmed < 0 || o.Deaths < 0 || o.Recovered < 0 {
			p.errorf("row %d (%s): negative count: confirmed=%d deaths=%d recovered=%d",
				i, o.Country, o.Confirmed, o.Deaths, o.Recovered)
		}
		if o.Deaths > o.Confirmed {
			p.errorf("row %d (%s, %s): deaths %d exceed confirmed %d",
				i, o.Country, o.Date.Format("2006-01-02"), o.Deaths, o.Confirmed)
		}
		if strings.TrimSpace(o.Country) == "" {
			p.errorf("row %d: empty country name", i)
		}
	}
	return p
}

// ── Phase 3: Snapshot Ordering ──
// The latest-date country snapshot must be sorted by confirmed descending.

func validateSnapshotOrdering(table domain.Table) *phase {
	p := &phase{name: "Phase 3: Snapshot Ordering (confirmed desc)"}

	snapshot := aggregate.BySnapshot(table)
	for i := 1; i < len(snapshot); i++ {
		if snapshot[i].Confirmed > snapshot[i-1].Confirmed {
			p.errorf("position %d: %s (%d confirmed) ranked below %s (%d confirmed)",
				i, snapshot[i].Country, snapshot[i].Confirmed, snapshot[i-1].Country, snapshot[i-1].Confirmed)
		}
	}

	seen := map[string]bool{}
	for _, s := range snapshot {
		if seen[s.Country] {
			p.errorf("country %q appears twice in snapshot", s.Country)
		}
		seen[s.Country] = true
	}
	return p
}

// ── Phase 4: Geo Completeness ──
// Coordinates, when present, must be paired and within valid ranges.

func validateGeoCompleteness(table domain.Table, norm domain.NormalizeStats) *phase {
	p := &phase{name: "Phase 4: Geo Completeness (coordinates)"}

	var withGeo int
	for i, o := range table.Observations {
		if (o.Lat == nil) != (o.Lon == nil) {
			p.errorf("row %d (%s): unpaired coordinate: lat=%v lon=%v", i, o.Country, o.Lat != nil, o.Lon != nil)
			continue
		}
		if !o.HasGeo() {
			continue
		}
		withGeo++
		if *o.Lat < -90 || *o.Lat > 90 {
			p.errorf("row %d (%s): latitude %g out of range", i, o.Country, *o.Lat)
		}
		if *o.Lon < -180 || *o.Lon > 180 {
			p.errorf("row %d (%s): longitude %g out of range", i, o.Country, *o.Lon)
		}
	}

	if withGeo > 0 || norm.GeoDropped > 0 {
		fmt.Printf("  Note: %d row(s) carry coordinates, %d dropped during normalization\n", withGeo, norm.GeoDropped)
	}
	return p
}
