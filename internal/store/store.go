// Package store implements the entity store: schema registry, typed create,
// read, update, delete and revive of entities, and the link bookkeeping that
// keeps both sides of every relationship in step.
//
// All state lives in one cached snapshot owned by the Store. Every mutating
// call validates fully, applies its changes to the cache, then commits:
// the snapshot is written through the pivot storage and read back, which
// recomputes every link field from the relation tables.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/slate/internal/docstore"
	"github.com/mesh-intelligence/slate/internal/metrics"
	"github.com/mesh-intelligence/slate/internal/pivot"
	"github.com/mesh-intelligence/slate/pkg/types"
)

// Store is an entity store over a document storage. It is safe for use by
// multiple goroutines; calls are serialized.
type Store struct {
	mu      sync.Mutex
	db      *docstore.DB
	schema  *registry
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards all output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Open wraps storage with link normalization and loads the current snapshot.
func Open(storage docstore.Storage, opts ...Option) (*Store, error) {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	db, err := docstore.Open(pivot.Wrap(storage, s.logger.Named("pivot")))
	if err != nil {
		return nil, err
	}
	s.db = db
	if err := s.rebuildSchema(); err != nil {
		db.Close()
		return nil, err
	}
	s.updateCounts()
	return s, nil
}

// Close closes the underlying storage.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Revision returns the id stamped by the last commit, or "" if the snapshot
// was never written by a Store.
func (s *Store) Revision() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rev, _ := s.db.Get(types.MetaTable, 1)["revision"].(string)
	return rev
}

// commit runs a durability cycle. On failure the cache is reloaded from the
// last written snapshot so no partial change stays visible.
func (s *Store) commit() error {
	start := time.Now()

	rev, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("%w: generating revision: %v", types.ErrStorage, err)
	}
	meta := s.db.Table(types.MetaTable)
	meta[1] = types.Record{
		"revision":   rev.String(),
		"written_at": start.UTC().Format(time.RFC3339Nano),
	}

	if err := s.db.Flush(); err != nil {
		s.logger.Error("commit failed, reloading snapshot", zap.Error(err))
		if rerr := s.db.Reload(); rerr != nil {
			s.logger.Error("reload failed", zap.Error(rerr))
		}
		if rerr := s.rebuildSchema(); rerr != nil {
			s.logger.Error("schema rebuild failed", zap.Error(rerr))
		}
		return err
	}

	elapsed := time.Since(start)
	s.metrics.RecordCommit(elapsed)
	s.updateCounts()
	s.logger.Debug("commit",
		zap.String("revision", rev.String()),
		zap.Duration("elapsed", elapsed))
	return nil
}

func (s *Store) updateCounts() {
	if s.metrics == nil {
		return
	}
	for _, et := range s.schema.entityTypes() {
		s.metrics.SetEntityCounts(et,
			len(s.db.All(types.TableName(et, false))),
			len(s.db.All(types.TableName(et, true))))
	}
}

// observe records an operation's outcome.
func (s *Store) observe(op, entityType string, start time.Time, err error) {
	s.metrics.RecordOperation(op, entityType, err, time.Since(start))
	if err != nil {
		s.logger.Debug(op+" failed", zap.String("entity_type", entityType), zap.Error(err))
	}
}

func entityNotFound(entityType string, id int) error {
	return fmt.Errorf("%w: A(n) '%s' entity for id %d does not exist", types.ErrEntityNotFound, entityType, id)
}
