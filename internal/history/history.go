// Package history persists the web form's memory of past runs: known
// servers, known libraries, per-library settings and the last used settings.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Settings captures one run configuration as entered in the web form.
type Settings struct {
	Server       string            `json:"server"`
	APIKey       string            `json:"apikey"`
	Images       string            `json:"images"`
	MinRes       string            `json:"minres"`
	ZipNames     map[string]string `json:"zipnames,omitempty"`
	BGColor      string            `json:"bgcolor"`
	TextColor    string            `json:"textcolor"`
	TableBGColor string            `json:"tablebgcolor"`
}

// Store is a SQLite-backed history database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("could not open history database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS servers (
			url        TEXT PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS libraries (
			name       TEXT PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS library_settings (
			library    TEXT PRIMARY KEY,
			data       TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS last_used (
			id   INTEGER PRIMARY KEY CHECK (id = 1),
			data TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Save records a finished run: the server and library become known, the
// library keeps its settings and the settings become the new last-used
// defaults.
func (s *Store) Save(server, library string, settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("could not encode settings: %w", err)
	}

	if _, err := s.db.Exec(`INSERT OR IGNORE INTO servers (url) VALUES (?)`, server); err != nil {
		return fmt.Errorf("could not save server: %w", err)
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO libraries (name) VALUES (?)`, library); err != nil {
		return fmt.Errorf("could not save library: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO library_settings (library, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(library) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP
	`, library, string(data))
	if err != nil {
		return fmt.Errorf("could not save library settings: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO last_used (id, data) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, string(data))
	if err != nil {
		return fmt.Errorf("could not save last-used settings: %w", err)
	}
	return nil
}

// Servers returns every server seen so far, oldest first.
func (s *Store) Servers() ([]string, error) {
	return s.stringColumn(`SELECT url FROM servers ORDER BY created_at, url`)
}

// Libraries returns every library seen so far, oldest first.
func (s *Store) Libraries() ([]string, error) {
	return s.stringColumn(`SELECT name FROM libraries ORDER BY created_at, name`)
}

func (s *Store) stringColumn(query string) ([]string, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("could not query history: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("could not scan history row: %w", err)
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

// LibrarySettings returns the stored settings of a library. The second
// return value is false when the library has no stored settings.
func (s *Store) LibrarySettings(library string) (Settings, bool, error) {
	return s.settingsRow(`SELECT data FROM library_settings WHERE library = ?`, library)
}

// LastUsed returns the settings of the most recent run.
func (s *Store) LastUsed() (Settings, bool, error) {
	return s.settingsRow(`SELECT data FROM last_used WHERE id = 1`)
}

func (s *Store) settingsRow(query string, args ...any) (Settings, bool, error) {
	var data string
	err := s.db.QueryRow(query, args...).Scan(&data)
	if err == sql.ErrNoRows {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, fmt.Errorf("could not load settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return Settings{}, false, fmt.Errorf("could not decode settings: %w", err)
	}
	return settings, true, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
