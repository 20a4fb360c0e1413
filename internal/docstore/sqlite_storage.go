package docstore

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/slate/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStorage keeps the snapshot in a SQLite file, one row per record.
// Every Write replaces the whole snapshot in one transaction.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens the database file at path. The file must exist unless
// create is set.
func OpenSQLite(path string, create bool) (*SQLiteStorage, error) {
	if err := ensureFile(path, create); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", types.ErrStorage, path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initializing schema: %v", types.ErrStorage, err)
	}
	return &SQLiteStorage{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string { return s.path }

// Read loads every record.
func (s *SQLiteStorage) Read() (Data, error) {
	data := Data{}

	names, err := s.db.Query(`SELECT table_name FROM snapshot_tables`)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}
	for names.Next() {
		var name string
		if err := names.Scan(&name); err != nil {
			names.Close()
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		data[name] = Table{}
	}
	if err := names.Close(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT table_name, doc_id, body FROM documents ORDER BY table_name, doc_id`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name string
			id   int
			body string
		)
		if err := rows.Scan(&name, &id, &body); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		r, err := DecodeRecord([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("decoding %s/%d: %w", name, id, err)
		}
		t, ok := data[name]
		if !ok {
			t = Table{}
			data[name] = t
		}
		t[id] = r
	}
	return data, rows.Err()
}

// Write replaces the stored snapshot.
func (s *SQLiteStorage) Write(data Data) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM documents`); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM snapshot_tables`); err != nil {
		return fmt.Errorf("clearing tables: %w", err)
	}

	tableStmt, err := tx.Prepare(`INSERT INTO snapshot_tables (table_name) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("preparing table insert: %w", err)
	}
	defer tableStmt.Close()
	docStmt, err := tx.Prepare(`INSERT INTO documents (table_name, doc_id, body) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing document insert: %w", err)
	}
	defer docStmt.Close()

	for name, table := range data {
		if _, err := tableStmt.Exec(name); err != nil {
			return fmt.Errorf("inserting table %s: %w", name, err)
		}
		for _, id := range sortedIDs(table) {
			body, err := EncodeRecord(table[id])
			if err != nil {
				return fmt.Errorf("encoding %s/%d: %w", name, id, err)
			}
			if _, err := docStmt.Exec(name, id, string(body)); err != nil {
				return fmt.Errorf("inserting %s/%d: %w", name, id, err)
			}
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
