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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/permitsearch/core"
	"github.com/poiesic/permitsearch/storage"
)

const (
	// DefaultBatchSize is the number of permits written per transaction.
	DefaultBatchSize = 500

	defaultMaxAttempts = 3
	defaultRetryDelay  = 50 * time.Millisecond
)

// Importer writes permits to a repository in batches on a worker pool.
type Importer struct {
	repository  storage.PermitRepository
	pool        *ants.Pool
	batchSize   int
	maxAttempts int
	retryDelay  time.Duration
	progress    io.Writer
	logger      *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer) error

// WithPoolSize sets the number of concurrent batch writers.
func WithPoolSize(size int) Option {
	return func(im *Importer) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if im.pool != nil {
			im.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		im.pool = pool
		return nil
	}
}

// WithBatchSize sets the number of permits written per transaction.
func WithBatchSize(size int) Option {
	return func(im *Importer) error {
		if size < 1 {
			size = DefaultBatchSize
		}
		im.batchSize = size
		return nil
	}
}

// WithRetry sets how often a failed batch is attempted and the initial backoff.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(im *Importer) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		im.maxAttempts = maxAttempts
		im.retryDelay = baseDelay
		return nil
	}
}

// WithProgress reports progress lines to w.
func WithProgress(w io.Writer) Option {
	return func(im *Importer) error {
		im.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) error {
		if logger == nil {
			logger = slog.Default()
		}
		im.logger = logger
		return nil
	}
}

// NewImporter creates an importer writing to repository.
// Call Release when done.
func NewImporter(repository storage.PermitRepository, opts ...Option) (*Importer, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	im := &Importer{
		repository:  repository,
		pool:        pool,
		batchSize:   DefaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		logger:      slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(im); optErr != nil {
			im.Release()
			return nil, optErr
		}
	}

	return im, nil
}

// ImportResult summarizes one import.
type ImportResult struct {
	DecodeStats
	Written int
	Failed  int
	Elapsed time.Duration
}

// Import upserts permits in batches and waits for every batch to finish.
// Failed batches are counted and their errors joined into the returned error.
func (im *Importer) Import(ctx context.Context, permits []*core.Permit) (ImportResult, error) {
	tracker := NewProgressTracker(im.progress, len(permits), im.batchSize)
	tracker.Start()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for start := 0; start < len(permits); start += im.batchSize {
		batch := permits[start:min(start+im.batchSize, len(permits))]

		wg.Add(1)
		err := im.pool.Submit(func() {
			defer wg.Done()
			err := retryWithBackoff(ctx, im.logger, func() error {
				_, err := im.repository.UpsertPermits(ctx, batch...)
				return err
			}, im.maxAttempts, im.retryDelay)
			if err != nil {
				im.logger.Error("error writing batch", "first", batch[0].ID, "size", len(batch), "err", err)
				tracker.Failed(len(batch))
				mu.Lock()
				errs = append(errs, fmt.Errorf("batch at %d: %w", batch[0].ID, err))
				mu.Unlock()
				return
			}
			tracker.Written(len(batch))
		})
		if err != nil {
			wg.Done()
			tracker.Failed(len(batch))
			mu.Lock()
			errs = append(errs, fmt.Errorf("submit batch at %d: %w", batch[0].ID, err))
			mu.Unlock()
		}
	}
	wg.Wait()

	if im.progress != nil {
		tracker.Finish()
	}
	written, failed := tracker.Counts()
	result := ImportResult{Written: written, Failed: failed, Elapsed: tracker.Elapsed()}
	im.logger.Info("import complete", "written", written, "failed", failed, "elapsed", result.Elapsed)
	return result, errors.Join(errs...)
}

// ImportFile decodes a .csv or .xlsx file and imports its permits.
// sheet selects the worksheet of an XLSX file; empty means the first.
func (im *Importer) ImportFile(ctx context.Context, path, sheet string) (ImportResult, error) {
	var (
		permits []*core.Permit
		stats   DecodeStats
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, openErr := os.Open(path)
		if openErr != nil {
			return ImportResult{}, openErr
		}
		defer f.Close()
		permits, stats, err = ReadCSV(f)
	case ".xlsx":
		permits, stats, err = ReadXLSX(path, sheet)
	default:
		return ImportResult{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return ImportResult{}, err
	}
	im.logger.Info("decoded dataset", "path", path, "rows", stats.Rows, "skipped", stats.Skipped, "hashIDs", stats.HashIDs)

	result, err := im.Import(ctx, permits)
	result.DecodeStats = stats
	return result, err
}

// Release releases the worker pool.
// The importer should not be used after calling Release.
func (im *Importer) Release() {
	if im.pool != nil {
		im.pool.Release()
	}
}
