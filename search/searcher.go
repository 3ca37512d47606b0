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

package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/permitsearch/core"
	"github.com/poiesic/permitsearch/geo"
	"github.com/poiesic/permitsearch/storage"
)

// Searcher filters, ranks and truncates permits held by a store.
// It holds no per-query state and is safe for concurrent use.
type Searcher struct {
	repository storage.PermitScanner
	monitor    SearchMonitor
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMonitor sets the monitor used by Search.
// Default is a monitor that does nothing.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// NewSearcher creates a new searcher over repository.
func NewSearcher(repository storage.PermitScanner, opts ...Option) (*Searcher, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}

	s := &Searcher{
		repository: repository,
		monitor:    &noopMonitor{},
		logger:     slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs criteria against the store using the searcher's monitor.
// Returns at most criteria.EffectiveLimit() results. An empty, non-nil slice
// means nothing matched.
func (s *Searcher) Search(ctx context.Context, criteria core.Criteria) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, criteria, s.monitor)
}

// SearchWithMonitor runs criteria against the store, reporting each stage to monitor.
func (s *Searcher) SearchWithMonitor(ctx context.Context, criteria core.Criteria, monitor SearchMonitor) ([]*core.SearchResult, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(criteria)
	if err := core.ValidateCriteria(criteria); err != nil {
		monitor.Failed(err)
		return nil, err
	}

	// 1. Filter
	permits, err := s.repository.ScanPermits(ctx, criteria.Filter)
	if err != nil {
		s.logger.Error("error scanning permits", "err", err)
		err = fmt.Errorf("%w: %w", ErrQueryFailed, err)
		monitor.Failed(err)
		return nil, err
	}
	matched := permits
	if !criteria.Filter.IsEmpty() {
		matched = make([]*core.Permit, 0, len(permits))
		for _, p := range permits {
			if criteria.Match(p) {
				matched = append(matched, p)
			}
		}
	}
	monitor.AfterScan(len(matched))

	// 2. Rank
	var results []*core.SearchResult
	if criteria.Proximity() {
		results = rankByDistance(*criteria.Origin, matched)
		monitor.AfterRanking(len(results))
	} else {
		results = make([]*core.SearchResult, 0, len(matched))
		for _, p := range matched {
			results = append(results, &core.SearchResult{Permit: p})
		}
	}

	// 3. Truncate
	if limit := criteria.EffectiveLimit(); len(results) > limit {
		results = results[:limit]
	}

	s.logger.Debug("search complete",
		"applicant", criteria.ApplicantName,
		"street", criteria.StreetName,
		"status", criteria.Status,
		"proximity", criteria.Proximity(),
		"matched", len(matched),
		"returned", len(results))
	monitor.Finish(results)

	return results, nil
}

// rankByDistance keeps locatable permits, annotates each with its distance from
// origin and sorts nearest first. Equal distances keep their input order.
func rankByDistance(origin core.Point, permits []*core.Permit) []*core.SearchResult {
	results := make([]*core.SearchResult, 0, len(permits))
	for _, p := range permits {
		d, ok := geo.DistanceTo(origin, p)
		if !ok {
			continue
		}
		results = append(results, &core.SearchResult{Permit: p, Distance: core.Float64(d)})
	}
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		return cmp.Compare(*a.Distance, *b.Distance)
	})
	return results
}
