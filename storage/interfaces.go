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

package storage

import (
	"context"

	"github.com/poiesic/permitsearch/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close closes the storage backend and releases resources.
	Close() error
}

// PermitScanner is the read side used by the query engine.
type PermitScanner interface {
	// ScanPermits returns every permit accepted by filter, in ascending ID order.
	// Implementations may push the filter down into the store but must return
	// exactly the permits for which filter.Match is true.
	// The scan observes a single consistent snapshot of the store.
	ScanPermits(ctx context.Context, filter core.Filter) ([]*core.Permit, error)
}

// PermitRepository provides operations for managing permits.
type PermitRepository interface {
	Repository
	PermitScanner

	// UpsertPermits inserts permits or replaces existing permits with the same ID.
	// Returns the number of permits written.
	UpsertPermits(ctx context.Context, permits ...*core.Permit) (int, error)

	// GetPermit retrieves a single permit by ID.
	// Returns ErrNotFound if the permit doesn't exist.
	GetPermit(ctx context.Context, id core.ID) (*core.Permit, error)

	// DeletePermits removes permits by their IDs.
	// IDs that are not stored are ignored.
	DeletePermits(ctx context.Context, ids ...core.ID) error

	// CountPermits returns the number of stored permits.
	CountPermits(ctx context.Context) (int, error)
}
