// Package slate is the public entry point for opening an entity store.
//
// Example:
//
//	s, err := slate.Open(types.Config{
//	    Backend: types.BackendJSON,
//	    DataDir: ".slate",
//	    Create:  true,
//	})
//	defer s.Close()
package slate

import (
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesh-intelligence/slate/internal/docstore"
	"github.com/mesh-intelligence/slate/internal/metrics"
	"github.com/mesh-intelligence/slate/internal/store"
	"github.com/mesh-intelligence/slate/pkg/types"
)

// Version is the slate release.
const Version = "0.1.0"

// Store is an open entity store.
type Store = store.Store

// Option configures a Store.
type Option = store.Option

// Metrics holds the store's Prometheus collectors.
type Metrics = metrics.Metrics

// WithLogger and WithMetrics configure logging and instrumentation.
var (
	WithLogger  = store.WithLogger
	WithMetrics = store.WithMetrics
)

// NewMetrics creates store collectors registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return metrics.New(reg)
}

// Open validates cfg, opens its storage backend and loads the store.
func Open(cfg types.Config, opts ...Option) (*Store, error) {
	storage, err := OpenStorage(cfg)
	if err != nil {
		return nil, err
	}
	s, err := store.Open(storage, opts...)
	if err != nil {
		storage.Close()
		return nil, err
	}
	return s, nil
}

// OpenStorage returns the document storage selected by cfg.
func OpenStorage(cfg types.Config) (docstore.Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Backend == types.BackendMemory {
		return docstore.NewMemory(), nil
	}

	if cfg.DataDir == "" {
		return nil, fmt.Errorf("invalid config: %s backend needs a data directory", cfg.Backend)
	}
	switch cfg.Backend {
	case types.BackendSQLite:
		return docstore.OpenSQLite(filepath.Join(cfg.DataDir, types.SQLiteFileName), cfg.Create)
	default:
		return docstore.OpenJSON(filepath.Join(cfg.DataDir, types.JSONFileName), cfg.Create)
	}
}
