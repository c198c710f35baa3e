// Package store persists datasets. Two backends exist: Files, which keeps
// the historical ingredients.json / recipes.json / data.js layout, and
// SQLite. Both commit a whole dataset in one atomic step.
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"potiondb/internal/model"
)

// Store loads and commits complete datasets.
type Store interface {
	// Load reads the current dataset. Missing data loads as empty.
	Load(ctx context.Context) (*model.Dataset, error)
	// Commit replaces the stored dataset with ds. Either every part of ds
	// is written or none is.
	Commit(ctx context.Context, ds *model.Dataset) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFiles  = "files"
	BackendSQLite = "sqlite"
)

// Options selects and locates a backend.
type Options struct {
	Backend         string
	IngredientsPath string
	RecipesPath     string
	DataJSPath      string
	SQLitePath      string
	Logger          *zap.Logger
}

// Open returns the store named by opts.Backend. An empty backend means
// files.
func Open(opts Options) (Store, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	switch opts.Backend {
	case "", BackendFiles:
		return NewFiles(opts.IngredientsPath, opts.RecipesPath, opts.DataJSPath, log), nil
	case BackendSQLite:
		return OpenSQLite(opts.SQLitePath, log)
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", opts.Backend, BackendFiles, BackendSQLite)
	}
}

// Copy loads the dataset from src and commits it to dst.
func Copy(ctx context.Context, dst, src Store) (*model.Dataset, error) {
	ds, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	if err := dst.Commit(ctx, ds); err != nil {
		return nil, fmt.Errorf("commit destination: %w", err)
	}
	return ds, nil
}
