// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package permitsearch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/permitsearch/api"
	"github.com/poiesic/permitsearch/config"
	"github.com/poiesic/permitsearch/ingestion"
	"github.com/poiesic/permitsearch/search"
	"github.com/poiesic/permitsearch/storage"
	"github.com/poiesic/permitsearch/storage/badger"
	"github.com/poiesic/permitsearch/storage/sqlite"
)

// Database ties a permit store to the components that read and write it.
type Database struct {
	repo    storage.PermitRepository
	backend *badger.Backend
	cfg     *config.Config
	logger  *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger handed to every component the Database creates.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewDatabase opens the store selected by cfg. A nil cfg means config.DefaultConfig().
func NewDatabase(cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db := &Database{cfg: cfg, logger: options.logger}
	switch cfg.Store {
	case config.StoreSQLite:
		if cfg.DataPath != sqlite.MemoryPath {
			if err := os.MkdirAll(filepath.Dir(cfg.DataPath), 0755); err != nil {
				return nil, err
			}
		}
		store, err := sqlite.Open(cfg.DataPath, sqlite.WithLogger(options.logger))
		if err != nil {
			return nil, err
		}
		db.repo = store
	default:
		backend, err := badger.OpenBackend(cfg.DataPath, false)
		if err != nil {
			return nil, err
		}
		repo, err := badger.NewPermitRepository(backend)
		if err != nil {
			backend.Close()
			return nil, err
		}
		db.backend = backend
		db.repo = repo
	}

	options.logger.Debug("opened permit store", "store", cfg.Store, "path", cfg.DataPath)
	return db, nil
}

func (db *Database) Close() error {
	if err := db.repo.Close(); err != nil {
		db.logger.Error("error closing permit repository", "err", err)
		return err
	}
	if db.backend == nil {
		return nil
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) Config() *config.Config {
	return db.cfg
}

func (db *Database) PermitRepository() storage.PermitRepository {
	return db.repo
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{search.WithLogger(db.logger)}, opts...)
	return search.NewSearcher(db.repo, opts...)
}

// NewImporter creates an importer using the configured batch size and worker count.
// The caller must Release it.
func (db *Database) NewImporter(opts ...ingestion.Option) (*ingestion.Importer, error) {
	opts = append([]ingestion.Option{
		ingestion.WithLogger(db.logger),
		ingestion.WithBatchSize(db.cfg.ImportBatchSize),
		ingestion.WithPoolSize(db.cfg.ImportWorkers),
	}, opts...)
	return ingestion.NewImporter(db.repo, opts...)
}

// Seed imports the configured seed file when the store is empty.
// It reports whether an import ran. Without a seed file it does nothing.
func (db *Database) Seed(ctx context.Context, opts ...ingestion.Option) (bool, error) {
	if db.cfg.SeedPath == "" {
		return false, nil
	}
	importer, err := db.NewImporter(opts...)
	if err != nil {
		return false, err
	}
	defer importer.Release()

	seeded, err := importer.Seed(ctx, db.cfg.SeedPath, db.cfg.SeedSheet)
	if err != nil {
		return seeded, fmt.Errorf("seed from %s: %w", db.cfg.SeedPath, err)
	}
	return seeded, nil
}

// NewServer creates an HTTP server over a new searcher, configured from the
// Database's config. opts are applied after the configured ones.
func (db *Database) NewServer(opts ...api.Option) (*api.Server, error) {
	searcher, err := db.NewSearcher()
	if err != nil {
		return nil, err
	}
	opts = append([]api.Option{
		api.WithLogger(db.logger),
		api.WithDefaultStatus(db.cfg.DefaultStatus),
		api.WithLimits(db.cfg.DefaultLimit, db.cfg.MaxLimit),
		api.WithCORSOrigin(db.cfg.CORSOrigin),
		api.WithRateLimit(db.cfg.RateLimit, db.cfg.RateBurst),
		api.WithCounter(db.repo),
	}, opts...)
	return api.NewServer(searcher, opts...)
}
