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
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports import progress to a writer.
// It is safe for concurrent use by the import workers.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	written        int
	failed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a tracker for total permits that reports
// every reportInterval permits. A nil writer discards output.
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	if writer == nil {
		writer = io.Discard
	}
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.written = 0
	p.failed = 0
	p.lastReported = 0
}

// Written records n permits stored.
func (p *ProgressTracker) Written(n int) {
	p.advance(n, 0)
}

// Failed records n permits that could not be stored.
func (p *ProgressTracker) Failed(n int) {
	p.advance(0, n)
}

func (p *ProgressTracker) advance(written, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.written += written
	p.failed += failed

	done := p.written + p.failed
	if done-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = done
	}
}

// Counts returns the permits written and failed so far.
func (p *ProgressTracker) Counts() (written, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written, p.failed
}

// Finish prints the final line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time since Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.written) / elapsed
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.written+p.failed) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rImported: %d/%d (%.1f%%), %d failed, %.1f permits/s",
		p.written, p.total, percentage, p.failed, rate)
}
