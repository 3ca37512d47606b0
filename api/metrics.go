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

package api

import (
	"errors"
	"time"

	"github.com/poiesic/permitsearch/core"
	"github.com/poiesic/permitsearch/search"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry        *prometheus.Registry
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	searchTotal     *prometheus.CounterVec
	searchDuration  *prometheus.HistogramVec
	searchResults   prometheus.Histogram
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "permitsearch_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "permitsearch_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		searchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "permitsearch_searches_total",
				Help: "Total number of searches by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "permitsearch_search_duration_seconds",
				Help:    "Search latency in seconds, from store scan to truncation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		searchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "permitsearch_search_results",
				Help:    "Number of results returned per search",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 500},
			},
		),
	}
	m.registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.searchTotal,
		m.searchDuration,
		m.searchResults,
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// monitor returns a search.SearchMonitor recording one search.
func (m *Metrics) monitor() *searchMonitor {
	return &searchMonitor{metrics: m, mode: "plain"}
}

// searchMonitor records a single search. It is not shared between requests.
type searchMonitor struct {
	metrics *Metrics
	mode    string
	start   time.Time
}

var _ search.SearchMonitor = (*searchMonitor)(nil)

func (s *searchMonitor) Start(criteria core.Criteria) {
	s.start = time.Now()
	if criteria.Proximity() {
		s.mode = "proximity"
	}
}

func (s *searchMonitor) AfterScan(_ int) {}

func (s *searchMonitor) AfterRanking(_ int) {}

func (s *searchMonitor) Failed(err error) {
	outcome := "failed"
	if errors.Is(err, core.ErrInvalidCriteria) {
		outcome = "invalid"
	}
	s.metrics.searchTotal.WithLabelValues(s.mode, outcome).Inc()
}

func (s *searchMonitor) Finish(results []*core.SearchResult) {
	outcome := "ok"
	if len(results) == 0 {
		outcome = "empty"
	}
	s.metrics.searchTotal.WithLabelValues(s.mode, outcome).Inc()
	s.metrics.searchDuration.WithLabelValues(s.mode).Observe(time.Since(s.start).Seconds())
	s.metrics.searchResults.Observe(float64(len(results)))
}
