// Package dataset acquires the raw CSV corpus: downloading it into the
// working directory and reading it back as one concatenated table.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/covid-data-service/internal/domain"
)

// ErrNoData means zero CSV files in the working directory could be parsed.
// This is one of the two fatal pipeline conditions.
var ErrNoData = errors.New("no readable csv files in data directory")

// ReadStats counts per-file outcomes of one ReadAll pass.
type ReadStats struct {
	FilesParsed  int
	FilesSkipped int
	Rows         int
}

// Reader discovers and parses every CSV file in a working directory.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a Reader.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{logger: logger}
}

// ReadAll parses each *.csv independently and concatenates the results,
// preserving the union of columns across files: a column absent from one
// file is simply missing for that file's rows, not zero. A file that fails
// to parse is logged and skipped; only a total absence of parsable files is
// an error.
func (r *Reader) ReadAll(dataDir string) (domain.RawTable, ReadStats, error) {
	var stats ReadStats

	paths, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return domain.RawTable{}, stats, fmt.Errorf("scan data dir: %w", err)
	}
	sort.Strings(paths) // deterministic concatenation order

	var table domain.RawTable
	seen := make(map[string]bool)

	for _, path := range paths {
		cols, rows, err := readCSVFile(path)
		if err != nil {
			r.logger.Warn("skipping unreadable csv file", "path", path, "error", err)
			stats.FilesSkipped++
			continue
		}
		stats.FilesParsed++
		stats.Rows += len(rows)

		for _, c := range cols {
			if !seen[c] {
				seen[c] = true
				table.Columns = append(table.Columns, c)
			}
		}
		table.Rows = append(table.Rows, rows...)
	}

	if stats.FilesParsed == 0 {
		return domain.RawTable{}, stats, fmt.Errorf("%w: %s", ErrNoData, dataDir)
	}
	return table, stats, nil
}

// readCSVFile parses one file into header-keyed rows. Any structural error
// (bad quoting, inconsistent field counts, missing header) fails the whole
// file so the caller can skip it.
func readCSVFile(path string) ([]string, []map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.New("empty file")
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}
