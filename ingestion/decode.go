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
	"strconv"
	"strings"

	"github.com/poiesic/permitsearch/core"
)

// DecodeStats summarizes a decoded table.
type DecodeStats struct {
	Rows    int // data rows read, excluding the header
	Decoded int // rows turned into permits
	Skipped int // rows without an applicant
	HashIDs int // rows whose ID was derived from content
}

// tableDecoder maps the cells of one table onto permits.
type tableDecoder struct {
	idIndex int
	indexes []int // per entry in columns; -1 when the table lacks it
}

func newTableDecoder(header []string) (*tableDecoder, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		key := normalizeHeader(name)
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	d := &tableDecoder{idIndex: -1, indexes: make([]int, len(columns))}
	if i, ok := positions[idHeader]; ok {
		d.idIndex = i
	}
	for c, col := range columns {
		d.indexes[c] = -1
		for _, name := range col.names {
			if i, ok := positions[normalizeHeader(name)]; ok {
				d.indexes[c] = i
				break
			}
		}
	}
	if d.indexes[0] < 0 {
		return nil, fmt.Errorf("%w: header %q", ErrMissingApplicantColumn, strings.Join(header, ","))
	}
	return d, nil
}

// decode converts one row. It returns nil when the row has no applicant.
// The bool reports whether the ID was derived from content.
func (d *tableDecoder) decode(row []string) (*core.Permit, bool) {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}

	p := &core.Permit{}
	for c, col := range columns {
		v := cell(d.indexes[c])
		switch {
		case col.coord != nil:
			if f, ok := parseFinite(v); ok {
				*col.coord(p) = core.Float64(f)
			}
		case col.kind == kindInt:
			*col.text(p) = normalizeInt(v)
		case col.kind == kindFloat:
			*col.text(p) = normalizeFloat(v)
		default:
			*col.text(p) = v
		}
	}
	if strings.TrimSpace(p.Applicant) == "" {
		return nil, false
	}

	if id, err := strconv.ParseUint(strings.TrimSpace(cell(d.idIndex)), 10, 63); err == nil {
		p.ID = core.ID(id)
		return p, false
	}
	p.ID = core.IDFromContent(p.Applicant + "|" + p.Address + "|" + p.PermitNumber)
	return p, true
}

// decodeTable converts a header row and data rows into permits.
func decodeTable(header []string, rows [][]string) ([]*core.Permit, DecodeStats, error) {
	var stats DecodeStats
	d, err := newTableDecoder(header)
	if err != nil {
		return nil, stats, err
	}

	permits := make([]*core.Permit, 0, len(rows))
	for _, row := range rows {
		stats.Rows++
		p, hashed := d.decode(row)
		if p == nil {
			stats.Skipped++
			continue
		}
		if hashed {
			stats.HashIDs++
		}
		stats.Decoded++
		permits = append(permits, p)
	}
	return permits, stats, nil
}
