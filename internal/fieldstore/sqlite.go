package fieldstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLite is a Store backed by a single SQLite file.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = "fields.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS field_values (
		field_id   TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create field_values table: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) Load(ctx context.Context, fieldID string) (string, bool, error) {
	if err := ValidateFieldID(fieldID); err != nil {
		return "", false, err
	}
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM field_values WHERE field_id = ?`, fieldID,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load field %s: %w", fieldID, err)
	}
	return value, true, nil
}

func (s *SQLite) Save(ctx context.Context, fieldID, value string) error {
	if err := ValidateFieldID(fieldID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO field_values(field_id, value, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(field_id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		fieldID, value, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("save field %s: %w", fieldID, err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]Field, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field_id, length(CAST(value AS BLOB)), updated_at FROM field_values ORDER BY field_id`)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Field
	for rows.Next() {
		var (
			f       Field
			updated int64
		)
		if err := rows.Scan(&f.ID, &f.Bytes, &updated); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		f.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
