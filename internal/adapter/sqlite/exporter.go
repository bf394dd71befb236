// Package sqlite writes the normalized table into a SQLite file for ad-hoc
// analysis outside the service.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/covid-data-service/internal/domain"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS observations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	country TEXT NOT NULL,
	province_state TEXT NOT NULL DEFAULT '',
	date TEXT,
	last_update TEXT,
	confirmed INTEGER NOT NULL DEFAULT 0,
	deaths INTEGER NOT NULL DEFAULT 0,
	recovered INTEGER NOT NULL DEFAULT 0,
	lat REAL,
	lon REAL
);
CREATE INDEX IF NOT EXISTS idx_observations_country ON observations(country);
CREATE INDEX IF NOT EXISTS idx_observations_date ON observations(date);
`

const timeLayout = "2006-01-02 15:04:05"

// Exporter writes tables into a SQLite database.
type Exporter struct {
	db *sql.DB
}

// Open creates (or opens) the database at path and ensures the schema.
func Open(path string) (*Exporter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Exporter{db: db}, nil
}

func initSchema(db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// WriteTable replaces the stored observations with the given table's rows in
// one transaction. Absent dates and coordinates become SQL NULLs.
func (e *Exporter) WriteTable(ctx context.Context, t domain.Table) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM observations`); err != nil {
		return fmt.Errorf("clear observations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations
			(country, province_state, date, last_update, confirmed, deaths, recovered, lat, lon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range t.Observations {
		if _, err := stmt.ExecContext(ctx,
			o.Country,
			o.ProvinceState,
			nullTime(o.Date),
			nullTime(o.LastUpdate),
			o.Confirmed,
			o.Deaths,
			o.Recovered,
			nullFloat(o.Lat),
			nullFloat(o.Lon),
		); err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
	}

	return tx.Commit()
}

// Count returns the number of stored observations.
func (e *Exporter) Count(ctx context.Context) (int, error) {
	var n int
	err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations`).Scan(&n)
	return n, err
}

func (e *Exporter) Close() error {
	return e.db.Close()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
