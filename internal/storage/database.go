package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
// The special DSN ":memory:" opens a private in-memory database.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each pooled connection to an in-memory database would see its own
	// empty database.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Get returns the blob stored under key, or nil if there is none.
func (db *DB) Get(key string) ([]byte, error) {
	var value []byte
	err := db.conn.QueryRow(`SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Nothing stored yet
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return value, nil
}

// Put replaces the blob stored under key.
func (db *DB) Put(key string, value []byte) error {
	_, err := db.conn.Exec(`
		INSERT INTO blobs (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	return nil
}

// Source types.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// Source represents a vocabulary source, either a local path or a Git URL,
// and the deck its entries are imported into.
type Source struct {
	ID             int64        `json:"id"`
	Path           string       `json:"path"`
	Type           string       `json:"type"`
	DeckID         string       `json:"deckId"`
	TargetLanguage string       `json:"targetLanguage"`
	NativeLanguage string       `json:"nativeLanguage"`
	LastScanned    sql.NullTime `json:"-"`
}

// InsertSource inserts a new source into the database and returns its ID.
func (db *DB) InsertSource(s Source) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type, deck_id, target_language, native_language)
		VALUES (?, ?, ?, ?, ?)
	`, s.Path, s.Type, s.DeckID, s.TargetLanguage, s.NativeLanguage)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", s.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", s.Path, err)
	}
	return id, nil
}

const sourceColumns = `id, path, type, deck_id, target_language, native_language, last_scanned`

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (Source, error) {
	var s Source
	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.DeckID, &s.TargetLanguage, &s.NativeLanguage, &s.LastScanned)
	return s, err
}

// FindSourceByPath retrieves a source from the database by its path.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	row := db.conn.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE path = ?`, path)
	s, err := scanSource(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Source not found
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`SELECT ` + sourceColumns + ` FROM sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}
	return sources, nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(sourceID int64) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, time.Now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source by ID. Cards already imported stay in their deck.
func (db *DB) DeleteSource(sourceID int64) error {
	_, err := db.conn.Exec(`DELETE FROM sources WHERE id = ?`, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete source ID %d: %w", sourceID, err)
	}
	return nil
}
