// Package readlog is an append-only SQLite history of meter readings.
package readlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"ambient-light-meter/internal/model"
	_ "github.com/mattn/go-sqlite3"
)

// Log wraps the readings database.
type Log struct {
	db *sql.DB
}

// Open opens the database and initializes the schema
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open readings database: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Log{db: db}, nil
}

func initSchema(db *sql.DB) error {
	// Indexed columns are copied out of the payload for range queries; the
	// payload stays the source of truth.
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS readings (
			id TEXT PRIMARY KEY,
			taken_at INTEGER NOT NULL,
			source TEXT NOT NULL,
			range_index INTEGER NOT NULL,
			illuminance REAL,
			color_temperature_k REAL,
			saturated INTEGER NOT NULL,
			payload TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_readings_taken_at ON readings(taken_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create readings table: %w", err)
	}
	return nil
}

// Append stores one reading.
func (l *Log) Append(ctx context.Context, r model.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO readings (id, taken_at, source, range_index, illuminance, color_temperature_k, saturated, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.TakenAtUnixMS, r.Source, r.Attributes.RangeIndex,
		nullFloat(r.Attributes.Illuminance), nullFloat(r.Attributes.ColorTemperatureK),
		r.Attributes.IsSaturated, string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert reading %s: %w", r.ID, err)
	}
	return nil
}

// Recent returns up to limit readings, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]model.Reading, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT payload FROM readings
		ORDER BY taken_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reading{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r model.Reading
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("failed to decode reading: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored readings.
func (l *Log) Count(ctx context.Context) (int64, error) {
	var n int64
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&n)
	return n, err
}

// Prune deletes readings taken before the cutoff and returns how many went.
func (l *Log) Prune(ctx context.Context, beforeUnixMS int64) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM readings WHERE taken_at < ?`, beforeUnixMS)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (l *Log) Close() error {
	return l.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
