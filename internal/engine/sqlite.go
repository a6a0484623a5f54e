package engine

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLitePersistence keeps dataset snapshots in a single SQLite database.
type SQLitePersistence struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and applies the schema.
//
// The database runs in WAL mode with a 5-second busy timeout and a single
// connection, since SQLite allows one writer at a time.
func OpenSQLite(path string) (*SQLitePersistence, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &SQLitePersistence{db: db}, nil
}

// Close closes the database connection.
func (s *SQLitePersistence) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLitePersistence) Save(dataset string, payload []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO datasets (name, payload, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		dataset, payload)
	if err != nil {
		return fmt.Errorf("save %s: %w", dataset, err)
	}
	return nil
}

func (s *SQLitePersistence) Load(dataset string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM datasets WHERE name = ?`, dataset).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", dataset, ErrNoSnapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dataset, err)
	}
	return payload, nil
}

// Datasets returns the stored dataset names in order.
func (s *SQLitePersistence) Datasets() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM datasets ORDER BY name COLLATE BINARY`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
