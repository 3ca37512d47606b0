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

// Package ingestion loads permit datasets into a permit repository.
//
// Tabular exports (CSV or XLSX) are decoded into core.Permit values using the
// dataset's header names and their known variants. The Importer writes them in
// batches on a worker pool, retrying failed batches with exponential backoff.
// Seed imports a dataset only when the repository is empty.
package ingestion
