package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yourorg/apiscout/pkg/types"
)

// ErrSpecNotFound reports a registry lookup for an unknown document name.
var ErrSpecNotFound = errors.New("spec not found")

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS specs (
		name TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		version TEXT NOT NULL,
		operations INTEGER NOT NULL DEFAULT 0,
		raw TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`)
	return err
}

// SaveSpec inserts the document or replaces an existing one with the same
// name, keeping the original created_at.
func (s *SQLiteStore) SaveSpec(doc *types.SpecDocument) error {
	if doc == nil {
		return errors.New("spec is nil")
	}
	if doc.Name == "" {
		return errors.New("spec name cannot be empty")
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	_, err := s.db.Exec(`INSERT INTO specs(name,title,version,operations,raw,created_at,updated_at)
	VALUES(?,?,?,?,?,?,?)
	ON CONFLICT(name) DO UPDATE SET title=excluded.title,version=excluded.version,operations=excluded.operations,raw=excluded.raw,updated_at=excluded.updated_at`,
		doc.Name, doc.Title, doc.Version, doc.Operations, doc.Raw, doc.CreatedAt, doc.UpdatedAt)
	return err
}

func (s *SQLiteStore) GetSpec(name string) (*types.SpecDocument, error) {
	row := s.db.QueryRow(`SELECT name,title,version,operations,raw,created_at,updated_at FROM specs WHERE name=?`, name)
	var out types.SpecDocument
	if err := row.Scan(&out.Name, &out.Title, &out.Version, &out.Operations, &out.Raw, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSpecNotFound, name)
		}
		return nil, err
	}
	return &out, nil
}

func (s *SQLiteStore) ListSpecs() ([]types.SpecDocument, error) {
	rows, err := s.db.Query(`SELECT name,title,version,operations,created_at,updated_at FROM specs ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]types.SpecDocument, 0)
	for rows.Next() {
		var d types.SpecDocument
		if err := rows.Scan(&d.Name, &d.Title, &d.Version, &d.Operations, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteSpec(name string) error {
	res, err := s.db.Exec(`DELETE FROM specs WHERE name=?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSpecNotFound, name)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return errors.New("store is nil")
	}
	return s.db.Close()
}
