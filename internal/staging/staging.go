// Package staging holds per-item classification results on disk between the
// inventory pass and the render pass, so a large library never has to fit in
// memory as one slice.
package staging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"

	"github.com/pixelfin/pixelfin/internal/artwork"
)

// Record is one staged item: its identity, its disambiguated display name
// and the artwork report built for it.
type Record struct {
	ItemID string         `json:"item_id"`
	Name   string         `json:"name"`
	Title  string         `json:"title"`
	Year   int            `json:"year"`
	Report artwork.Report `json:"report"`
}

// Store is an append-then-read staging area backed by a throwaway SQLite
// file. The inventory pass writes records in catalog order; the render pass
// walks them sorted by display name. Nothing concurrent touches it.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the staging database at path, replacing any stale file from
// an interrupted earlier run.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create staging directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("could not remove stale staging file: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("could not open staging database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE records (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id  TEXT NOT NULL,
			name     TEXT NOT NULL,
			sort_key TEXT NOT NULL,
			data     TEXT NOT NULL
		);
		CREATE INDEX records_sort ON records (sort_key, id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create staging schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Add appends one record. The sort key is a case-folded copy of the display
// name so the render pass gets a case-insensitive alphabetical order.
func (s *Store) Add(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("could not encode staging record: %w", err)
	}

	sortKey := cases.Fold().String(rec.Name)
	_, err = s.db.Exec(
		`INSERT INTO records (item_id, name, sort_key, data) VALUES (?, ?, ?, ?)`,
		rec.ItemID, rec.Name, sortKey, string(data),
	)
	if err != nil {
		return fmt.Errorf("could not insert staging record: %w", err)
	}
	return nil
}

// Count returns the number of staged records.
func (s *Store) Count() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("could not count staging records: %w", err)
	}
	return count, nil
}

// Walk streams every record sorted by display name (case-insensitive, ties
// broken by insertion order) to fn. A non-nil error from fn stops the walk.
func (s *Store) Walk(fn func(rec Record) error) error {
	rows, err := s.db.Query(`SELECT data FROM records ORDER BY sort_key, id`)
	if err != nil {
		return fmt.Errorf("could not query staging records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return fmt.Errorf("could not scan staging record: %w", err)
		}

		var rec Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return fmt.Errorf("could not decode staging record: %w", err)
		}

		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the database without removing the file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Destroy closes the database and deletes the staging file. Safe to call
// after Close.
func (s *Store) Destroy() error {
	s.db.Close()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not remove staging file: %w", err)
	}
	return nil
}
