package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iti/epiworld"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS total_hist (
		replicate INTEGER NOT NULL,
		day INTEGER NOT NULL,
		status TEXT NOT NULL,
		count INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS virus_hist (
		replicate INTEGER NOT NULL,
		day INTEGER NOT NULL,
		virus_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		count INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tool_hist (
		replicate INTEGER NOT NULL,
		day INTEGER NOT NULL,
		tool_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		count INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transmissions (
		replicate INTEGER NOT NULL,
		day INTEGER NOT NULL,
		virus_id INTEGER NOT NULL,
		source INTEGER NOT NULL,
		target INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS registry (
		kind TEXT NOT NULL,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (kind, id)
	)`,
}

// SQLiteWriter appends the history of replicates to an SQLite database
type SQLiteWriter struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens, creating if needed, the database at path
func OpenSQLite(path string) (*SQLiteWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &SQLiteWriter{db: db, path: path}, nil
}

// DB exposes the underlying handle for queries
func (sw *SQLiteWriter) DB() *sql.DB {
	return sw.db
}

func (sw *SQLiteWriter) Close() error {
	return sw.db.Close()
}

// WriteReplicate stores the history currently held by m under the replicate number
func (sw *SQLiteWriter) WriteReplicate(ctx context.Context, m *epiworld.Model, replicate int) (err error) {
	tx, err := sw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	db := m.Database()
	for _, ri := range db.VirusInfo() {
		if _, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO registry (kind, id, name) VALUES ('virus', ?, ?)`,
			ri.ID, ri.Name); err != nil {
			return fmt.Errorf("insert registry: %w", err)
		}
	}
	for _, ri := range db.ToolInfo() {
		if _, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO registry (kind, id, name) VALUES ('tool', ?, ?)`,
			ri.ID, ri.Name); err != nil {
			return fmt.Errorf("insert registry: %w", err)
		}
	}

	dates, labels, counts := db.HistTotal()
	for idx := range dates {
		if _, err = tx.ExecContext(ctx, `INSERT INTO total_hist (replicate, day, status, count) VALUES (?, ?, ?, ?)`,
			replicate, dates[idx], labels[idx], counts[idx]); err != nil {
			return fmt.Errorf("insert total_hist: %w", err)
		}
	}
	for _, hr := range db.HistVirus() {
		if _, err = tx.ExecContext(ctx, `INSERT INTO virus_hist (replicate, day, virus_id, status, count) VALUES (?, ?, ?, ?, ?)`,
			replicate, hr.Day, hr.ID, hr.Status, hr.Count); err != nil {
			return fmt.Errorf("insert virus_hist: %w", err)
		}
	}
	for _, hr := range db.HistTool() {
		if _, err = tx.ExecContext(ctx, `INSERT INTO tool_hist (replicate, day, tool_id, status, count) VALUES (?, ?, ?, ?, ?)`,
			replicate, hr.Day, hr.ID, hr.Status, hr.Count); err != nil {
			return fmt.Errorf("insert tool_hist: %w", err)
		}
	}
	for _, tr := range db.Transmissions() {
		if _, err = tx.ExecContext(ctx, `INSERT INTO transmissions (replicate, day, virus_id, source, target) VALUES (?, ?, ?, ?, ?)`,
			replicate, tr.Day, tr.VirusID, tr.Source, tr.Target); err != nil {
			return fmt.Errorf("insert transmissions: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// TotalHist reads back the total history of a replicate as counts per day and status label
func (sw *SQLiteWriter) TotalHist(ctx context.Context, replicate int) (map[int]map[string]int, error) {
	rows, err := sw.db.QueryContext(ctx, `SELECT day, status, count FROM total_hist WHERE replicate = ?`, replicate)
	if err != nil {
		return nil, fmt.Errorf("select total_hist: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hist := make(map[int]map[string]int)
	for rows.Next() {
		var day, count int
		var status string
		if err := rows.Scan(&day, &status, &count); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		_, present := hist[day]
		if !present {
			hist[day] = make(map[string]int)
		}
		hist[day][status] = count
	}
	return hist, rows.Err()
}
