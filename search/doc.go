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

// Package search implements the permit query engine.
//
// A Searcher takes core.Criteria and produces an ordered, bounded list of
// results in three stages:
//   - Filter: the store scans permits matching the applicant, street and status
//     terms, and every survivor is checked again against core.Filter.Match
//   - Rank: when the criteria carry an origin, only locatable permits are kept,
//     each is annotated with its great-circle distance in miles, and the list is
//     stably sorted nearest first
//   - Truncate: the list is cut to the criteria's limit
//
// Without an origin, results keep dataset order and carry no distance.
// A store failure yields ErrQueryFailed and no results, which callers can tell
// apart from an empty successful search.
package search
