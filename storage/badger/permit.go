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

package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/permitsearch/core"
	"github.com/poiesic/permitsearch/storage"
)

// PermitRepository implements storage.PermitRepository using BadgerDB.
//
// Permits are stored under big endian ID keys so a prefix scan yields them in
// ascending ID order. A secondary index keyed by status lets scans with an
// exact status filter skip records of other statuses.
type PermitRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.PermitRepository = (*PermitRepository)(nil)

// NewPermitRepository creates a new BadgerDB-backed permit repository.
func NewPermitRepository(backend *Backend) (*PermitRepository, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	return &PermitRepository{
		backend: backend,
		logger:  backend.logger.With("repository", "permit"),
	}, nil
}

// Close is a no-op; the backend is owned by the caller.
func (r *PermitRepository) Close() error {
	return nil
}

// UpsertPermits inserts or replaces permits keyed by ID.
// All permits are validated before anything is written; the batch is committed atomically.
func (r *PermitRepository) UpsertPermits(ctx context.Context, permits ...*core.Permit) (int, error) {
	if len(permits) == 0 {
		return 0, nil
	}
	for _, p := range permits {
		if err := core.ValidatePermit(p); err != nil {
			return 0, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, p := range permits {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.dropStaleStatus(tx, p); err != nil {
				return err
			}
			if err := tx.Set(makePermitKey(p.ID), storage.MarshalPermit(p)); err != nil {
				return err
			}
			if err := tx.Set(makeStatusKey(p.Status, p.ID), nil); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return len(permits), nil
}

// dropStaleStatus removes the status index entry of a previously stored
// version of p when its status is changing.
func (r *PermitRepository) dropStaleStatus(tx *badger.Txn, p *core.Permit) error {
	old, err := r.getPermit(tx, p.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if old.Status == p.Status {
		return nil
	}
	return tx.Delete(makeStatusKey(old.Status, old.ID))
}

func (r *PermitRepository) getPermit(tx *badger.Txn, id core.ID) (*core.Permit, error) {
	item, err := tx.Get(makePermitKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("permit %d: %w", id, storage.ErrNotFound)
		}
		return nil, err
	}
	var permit *core.Permit
	err = item.Value(func(val []byte) error {
		permit, err = storage.UnmarshalPermit(val)
		return err
	})
	return permit, err
}

// GetPermit retrieves a permit by ID. Returns storage.ErrNotFound if absent.
func (r *PermitRepository) GetPermit(ctx context.Context, id core.ID) (*core.Permit, error) {
	var permit *core.Permit
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		permit, err = r.getPermit(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return permit, nil
}

// DeletePermits removes permits by ID. Missing IDs are ignored.
func (r *PermitRepository) DeletePermits(ctx context.Context, ids ...core.ID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			old, err := r.getPermit(tx, id)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				return err
			}
			if err := tx.Delete(makeStatusKey(old.Status, id)); err != nil {
				return err
			}
			if err := tx.Delete(makePermitKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// CountPermits returns the number of stored permits.
func (r *PermitRepository) CountPermits(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(permitPrefix)
		opts.PrefetchValues = false
		it := tx.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ScanPermits returns every permit matching filter in ascending ID order.
// The scan runs inside a single read transaction and sees one snapshot.
func (r *PermitRepository) ScanPermits(ctx context.Context, filter core.Filter) ([]*core.Permit, error) {
	permits := make([]*core.Permit, 0)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if filter.Status != "" {
			return r.scanByStatus(ctx, tx, filter, &permits)
		}
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(permitPrefix)
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				permit, err := storage.UnmarshalPermit(val)
				if err != nil {
					return err
				}
				if filter.Match(permit) {
					permits = append(permits, permit)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("scanned permits", "matched", len(permits))
	return permits, nil
}

// scanByStatus walks the status index, whose keys end in big endian IDs,
// and loads each referenced permit.
func (r *PermitRepository) scanByStatus(ctx context.Context, tx *badger.Txn, filter core.Filter, permits *[]*core.Permit) error {
	prefix := makePartialStatusKey(filter.Status)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := tx.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := it.Item().Key()
		if len(key) != len(prefix)+8 {
			continue
		}
		id := core.ID(binary.BigEndian.Uint64(key[len(prefix):]))
		permit, err := r.getPermit(tx, id)
		if err != nil {
			return err
		}
		if filter.Match(permit) {
			*permits = append(*permits, permit)
		}
	}
	return nil
}
