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

// Package storage provides the storage abstraction layer for permitsearch.
//
// This package defines repository interfaces that decouple the query engine from
// the store holding the permit dataset. Two backends implement them:
//
//   - storage/badger: embedded BadgerDB key-value store (default)
//   - storage/sqlite: embedded SQLite database with filter push-down
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - Repository: lifecycle shared by all repositories
//   - PermitScanner: the single read operation the search engine depends on
//   - PermitRepository: full permit management used by import and the CLI
//
// # Usage
//
// Create a repository instance:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	repo := badger.NewPermitRepository(backend)
//
// Use in tests with in-memory storage:
//
//	repo, backend, err := badger.NewMemoryRepository()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Ordering
//
// ScanPermits returns permits in ascending ID order. The dataset's location id is
// the ID, so this is the order rows have in the source table.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
