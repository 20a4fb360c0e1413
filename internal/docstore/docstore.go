// Package docstore is the document store under the entity store: named
// tables mapping integer ids to flat records, read once into a cache and
// written back as a whole snapshot.
package docstore

import (
	"fmt"
	"sort"

	"github.com/mesh-intelligence/slate/pkg/types"
)

// Table maps record ids to records.
type Table map[int]types.Record

// Data is a whole snapshot: table name to table.
type Data map[string]Table

// Storage persists whole snapshots. Read returns an empty Data when nothing
// has been written yet.
type Storage interface {
	Read() (Data, error)
	Write(data Data) error
	Close() error
}

// DB caches a snapshot in memory. Mutations touch the cache only; Flush
// writes the cache through the storage and reads it back.
type DB struct {
	storage Storage
	cache   Data
}

// Open reads the current snapshot from storage.
func Open(storage Storage) (*DB, error) {
	db := &DB{storage: storage}
	if err := db.read(); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *DB) read() error {
	data, err := db.storage.Read()
	if err != nil {
		return fmt.Errorf("%w: reading snapshot: %v", types.ErrStorage, err)
	}
	if data == nil {
		data = Data{}
	}
	db.cache = data
	return nil
}

// Flush writes the cache through the storage and replaces it with what the
// storage reads back.
func (db *DB) Flush() error {
	if err := db.storage.Write(db.cache); err != nil {
		return fmt.Errorf("%w: writing snapshot: %v", types.ErrStorage, err)
	}
	return db.read()
}

// Reload discards the cache and reads the last written snapshot.
func (db *DB) Reload() error {
	return db.read()
}

// Close closes the storage without flushing.
func (db *DB) Close() error {
	return db.storage.Close()
}

// Tables returns the names of the cached tables, sorted.
func (db *DB) Tables() []string {
	names := make([]string, 0, len(db.cache))
	for name := range db.cache {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table returns the named table, creating it if absent.
func (db *DB) Table(name string) Table {
	t, ok := db.cache[name]
	if !ok {
		t = Table{}
		db.cache[name] = t
	}
	return t
}

// NextID returns one more than the highest id in the named tables.
func (db *DB) NextID(tables ...string) int {
	max := 0
	for _, name := range tables {
		for id := range db.cache[name] {
			if id > max {
				max = id
			}
		}
	}
	return max + 1
}

// Get returns the cached record, or nil. The record is shared with the cache.
func (db *DB) Get(table string, id int) types.Record {
	return db.cache[table][id]
}

// Insert stores a record under id. It fails if the id is taken.
func (db *DB) Insert(table string, id int, record types.Record) error {
	t := db.Table(table)
	if _, ok := t[id]; ok {
		return fmt.Errorf("%w: record %d already exists in table '%s'", types.ErrStorage, id, table)
	}
	t[id] = record
	return nil
}

// Update applies fn to the cached record in place.
func (db *DB) Update(table string, id int, fn func(types.Record)) error {
	r := db.cache[table][id]
	if r == nil {
		return fmt.Errorf("%w: no record %d in table '%s'", types.ErrEntityNotFound, id, table)
	}
	fn(r)
	return nil
}

// UpdateAll applies fn to every record of the table.
func (db *DB) UpdateAll(table string, fn func(types.Record)) {
	for _, r := range db.cache[table] {
		fn(r)
	}
}

// Remove deletes a record and returns it.
func (db *DB) Remove(table string, id int) (types.Record, error) {
	r := db.cache[table][id]
	if r == nil {
		return nil, fmt.Errorf("%w: no record %d in table '%s'", types.ErrEntityNotFound, id, table)
	}
	delete(db.cache[table], id)
	return r, nil
}

// All returns every record of the table ordered by id.
func (db *DB) All(table string) []types.Record {
	t := db.cache[table]
	ids := sortedIDs(t)
	out := make([]types.Record, len(ids))
	for i, id := range ids {
		out[i] = t[id]
	}
	return out
}

// Search returns the records of the table accepted by pred, ordered by id.
func (db *DB) Search(table string, pred func(types.Record) (bool, error)) ([]types.Record, error) {
	var out []types.Record
	for _, r := range db.All(table) {
		ok, err := pred(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}
